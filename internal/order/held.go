package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"restaurant-pos/internal/models"
	"restaurant-pos/internal/store"
	"restaurant-pos/internal/utils"
)

// ---------------- HELD BILLS ----------------

// Hold parks an order that has not been sent to the kitchen yet.
func (s *Service) Hold(ctx context.Context, userID string, req models.HoldRequest) (*models.HeldBill, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	if err := checkOrderType(req.OrderType, req.TableID); err != nil {
		return nil, err
	}

	now := utils.Now()
	h := &models.HeldBill{
		ID:         utils.NewID(),
		Label:      strings.TrimSpace(req.Label),
		OrderType:  req.OrderType,
		TableID:    req.TableID,
		CustomerID: req.CustomerID,
		Notes:      req.Notes,
		CreatedBy:  userID,
		CreatedAt:  now,
	}
	if h.Label == "" {
		h.Label = fmt.Sprintf("%s %s", strings.ReplaceAll(req.OrderType, "_", "-"), now.Format("15:04"))
	}

	err := s.Store.RunInTx(ctx, func(ctx context.Context, tx *store.DB) error {
		items, err := priceItems(ctx, tx, h.ID, req.Items)
		if err != nil {
			return err
		}
		for _, item := range items {
			h.Items = append(h.Items, &models.HeldBillItem{
				ID:         utils.NewID(),
				HeldBillID: h.ID,
				MenuItemID: item.MenuItemID,
				Name:       item.Name,
				Quantity:   item.Quantity,
				UnitPrice:  item.UnitPrice,
				Notes:      item.Notes,
			})
			h.Total += item.Subtotal
		}
		return tx.CreateHeldBill(ctx, h)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.LogOrder("HELD", h.ID, fmt.Sprintf("%q, %d item(s)", h.Label, len(h.Items)))
	return h, nil
}

func (s *Service) ListHeld(ctx context.Context) ([]*models.HeldBill, error) {
	return s.Store.ListHeldBills(ctx)
}

func (s *Service) GetHeld(ctx context.Context, id string) (*models.HeldBill, error) {
	h, err := s.Store.GetHeldBill(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, utils.NotFound("held bill %s not found", id)
	}
	return h, err
}

// DeleteHeld drops a held bill and reports how many rows went.
func (s *Service) DeleteHeld(ctx context.Context, id string) (int64, error) {
	return s.Store.DeleteHeldBill(ctx, id)
}

// Recall turns a held bill into a placed order and removes the held bill in
// the same transaction. Items are charged at today's menu price.
func (s *Service) Recall(ctx context.Context, userID, id string) (*models.Order, error) {
	h, err := s.GetHeld(ctx, id)
	if err != nil {
		return nil, err
	}

	var (
		orderID string
		kots    []*models.KOT
	)
	err = s.withTableLock(ctx, h.TableID, func() error {
		return s.Store.RunInTx(ctx, func(ctx context.Context, tx *store.DB) error {
			held, err := tx.GetHeldBill(ctx, id)
			if errors.Is(err, sql.ErrNoRows) {
				return utils.Conflict("held bill %s was already recalled", id)
			}
			if err != nil {
				return err
			}

			o, created, err := s.place(ctx, tx, userID, placeRequest(held))
			if err != nil {
				return err
			}
			n, err := tx.DeleteHeldBill(ctx, held.ID)
			if err != nil {
				return err
			}
			if n == 0 {
				return utils.Conflict("held bill %s was already recalled", id)
			}
			orderID, kots = o.ID, created
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.Logger.LogOrder("RECALLED", h.ID, h.Label)
	return s.afterPlace(ctx, orderID, kots)
}

// PurgeHeld deletes held bills parked for longer than maxAge.
func (s *Service) PurgeHeld(ctx context.Context, maxAge time.Duration) (int64, error) {
	n, err := s.Store.PurgeHeldBills(ctx, utils.Now().Add(-maxAge))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.Logger.Info("ORDER", fmt.Sprintf("Purged %d held bill(s) older than %s", n, maxAge))
	}
	return n, nil
}

func placeRequest(h *models.HeldBill) models.PlaceOrderRequest {
	req := models.PlaceOrderRequest{
		OrderType:  h.OrderType,
		TableID:    h.TableID,
		CustomerID: h.CustomerID,
		Notes:      h.Notes,
		Items:      make([]models.OrderItemRequest, 0, len(h.Items)),
	}
	for _, item := range h.Items {
		req.Items = append(req.Items, models.OrderItemRequest{
			MenuItemID: item.MenuItemID,
			Quantity:   item.Quantity,
			Notes:      item.Notes,
		})
	}
	return req
}
