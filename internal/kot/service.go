// Package kot runs kitchen order tickets: station routing output, status
// changes and the kitchen event feed.
package kot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"restaurant-pos/internal/kafka"
	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/metrics"
	"restaurant-pos/internal/models"
	"restaurant-pos/internal/sse"
	"restaurant-pos/internal/status"
	"restaurant-pos/internal/store"
	"restaurant-pos/internal/utils"
)

type Service struct {
	Store   *store.DB
	Emitter *sse.KitchenEventEmitter
	Events  *kafka.Events
	Logger  *logger.Logger
}

func NewService(db *store.DB, emitter *sse.KitchenEventEmitter, events *kafka.Events, log *logger.Logger) *Service {
	return &Service{Store: db, Emitter: emitter, Events: events, Logger: log}
}

func (s *Service) List(ctx context.Context, f models.KOTFilter) ([]*models.KOT, error) {
	if f.Status != "" && !status.KOT.Known(f.Status) {
		return nil, utils.Validation("unknown kot status %q", f.Status)
	}
	return s.Store.ListKOTs(ctx, f)
}

func (s *Service) Get(ctx context.Context, id string) (*models.KOT, error) {
	k, err := s.Store.GetKOT(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, utils.NotFound("kot %s not found", id)
	}
	return k, err
}

// UpdateStatus moves a ticket through the kitchen and re-derives the order
// status from all of the order's tickets. Cancelling a ticket also cancels its
// items and returns their stock.
func (s *Service) UpdateStatus(ctx context.Context, id, to string) (*models.KOT, error) {
	var (
		k     *models.KOT
		order *models.Order
	)

	err := s.Store.RunInTx(ctx, func(ctx context.Context, tx *store.DB) error {
		var err error
		k, err = tx.GetKOT(ctx, id)
		if errors.Is(err, sql.ErrNoRows) {
			return utils.NotFound("kot %s not found", id)
		}
		if err != nil {
			return err
		}
		if err := status.KOT.Check(k.Status, to); err != nil {
			return err
		}
		if to == models.KOTStatusCancelled {
			if err := ensureCancellable(ctx, tx, k.OrderID); err != nil {
				return err
			}
		}

		n, err := tx.TransitionKOT(ctx, id, k.Status, to)
		if err != nil {
			return err
		}
		if n == 0 {
			return utils.Conflict("kot %s changed concurrently", k.KOTNumber)
		}
		k.Status = to

		if to == models.KOTStatusCancelled {
			if err := cancelTicketItems(ctx, tx, k); err != nil {
				return err
			}
		}

		order, err = SyncOrderStatus(ctx, tx, k.OrderID)
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordKOTTransition(k.Station, to)
	s.Logger.LogKOT("STATUS", k.KOTNumber, fmt.Sprintf("%s at %s", to, k.Station))
	s.Notify(ctx, models.KOTEventUpdated, order, s.TableName(ctx, order), k)
	return k, nil
}

// ensureCancellable rejects ticket cancellation once the order is closed or billed.
func ensureCancellable(ctx context.Context, tx *store.DB, orderID string) error {
	o, err := tx.GetOrderHeader(ctx, orderID)
	if err != nil {
		return err
	}
	if !o.Open() {
		return utils.Conflict("order %s is %s", o.OrderNumber, o.Status)
	}
	return tx.EnsureUnbilled(ctx, o)
}

func cancelTicketItems(ctx context.Context, tx *store.DB, k *models.KOT) error {
	for _, line := range k.Items {
		if _, err := tx.CancelOrderItem(ctx, line.OrderItemID); err != nil {
			return err
		}
		if _, err := tx.ReverseMovements(ctx, line.OrderItemID, models.StockReasonOrder, models.StockReasonCancel); err != nil {
			return err
		}
	}
	_, err := tx.RecalculateSubtotal(ctx, k.OrderID)
	return err
}

// SyncOrderStatus applies the status implied by the order's tickets and
// returns the order header as stored afterwards.
func SyncOrderStatus(ctx context.Context, tx *store.DB, orderID string) (*models.Order, error) {
	order, err := tx.GetOrderHeader(ctx, orderID)
	if err != nil {
		return nil, err
	}
	kots, err := tx.KOTsForOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	derived := status.DeriveOrderStatus(order.Status, kots)
	if derived == order.Status || !status.Order.CanTransition(order.Status, derived) {
		return order, nil
	}
	n, err := tx.TransitionOrder(ctx, orderID, order.Status, derived)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		order.Status = derived
	}
	return order, nil
}

// Notify pushes ticket events to kitchen displays and the event bus.
func (s *Service) Notify(ctx context.Context, eventType string, order *models.Order, tableName string, kots ...*models.KOT) {
	for _, k := range kots {
		ev := models.KOTEvent{
			Type:      eventType,
			KOT:       k,
			TableName: tableName,
			Timestamp: utils.Now(),
		}
		if order != nil {
			ev.OrderNumber = order.OrderNumber
			ev.OrderStatus = order.Status
		}
		if s.Emitter != nil {
			s.Emitter.Emit(ev)
		}
		if s.Events != nil {
			s.Events.KOT(ctx, &ev)
		}
	}
}

// TableName resolves the display name of the order's table, if any.
func (s *Service) TableName(ctx context.Context, order *models.Order) string {
	if order == nil || order.TableID == "" {
		return ""
	}
	t, err := s.Store.GetTable(ctx, order.TableID)
	if err != nil {
		return ""
	}
	return t.Name
}
