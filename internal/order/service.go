// Package order places dine-in, takeaway and delivery orders, routes their
// items to kitchen tickets and keeps tables and stock in step.
package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"restaurant-pos/internal/kafka"
	"restaurant-pos/internal/kot"
	"restaurant-pos/internal/lock"
	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/metrics"
	"restaurant-pos/internal/models"
	"restaurant-pos/internal/status"
	"restaurant-pos/internal/store"
	"restaurant-pos/internal/utils"
)

type Service struct {
	Store   *store.DB
	Locker  lock.Locker
	Kitchen *kot.Service
	Events  *kafka.Events
	Logger  *logger.Logger
}

func NewService(db *store.DB, locker lock.Locker, kitchen *kot.Service, events *kafka.Events, log *logger.Logger) *Service {
	if locker == nil {
		locker = lock.NewMemory()
	}
	return &Service{Store: db, Locker: locker, Kitchen: kitchen, Events: events, Logger: log}
}

// ---------------- ORDERS ----------------

func (s *Service) List(ctx context.Context, f models.OrderFilter) ([]*models.Order, error) {
	if f.Status != "" && !status.Order.Known(f.Status) {
		return nil, utils.Validation("unknown order status %q", f.Status)
	}
	return s.Store.ListOrders(ctx, f)
}

func (s *Service) Get(ctx context.Context, id string) (*models.Order, error) {
	o, err := s.Store.GetOrder(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, utils.NotFound("order %s not found", id)
	}
	return o, err
}

// PlaceOrder creates the order, its items and one kitchen ticket per station,
// consumes stock and seats the table, all in one transaction.
func (s *Service) PlaceOrder(ctx context.Context, userID string, req models.PlaceOrderRequest) (*models.Order, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	if err := checkOrderType(req.OrderType, req.TableID); err != nil {
		return nil, err
	}

	var (
		orderID string
		kots    []*models.KOT
	)
	err := s.withTableLock(ctx, req.TableID, func() error {
		return s.Store.RunInTx(ctx, func(ctx context.Context, tx *store.DB) error {
			o, created, err := s.place(ctx, tx, userID, req)
			if err != nil {
				return err
			}
			orderID, kots = o.ID, created
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return s.afterPlace(ctx, orderID, kots)
}

// AddItems appends items to an open order on new kitchen tickets. A ready
// order goes back to preparing.
func (s *Service) AddItems(ctx context.Context, orderID string, req models.AddItemsRequest) (*models.Order, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	var kots []*models.KOT
	err := s.Store.RunInTx(ctx, func(ctx context.Context, tx *store.DB) error {
		o, err := s.openOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		settings, err := tx.LoadSettings(ctx)
		if err != nil {
			return err
		}

		items, err := priceItems(ctx, tx, o.ID, req.Items)
		if err != nil {
			return err
		}
		if kots, err = routeToKitchen(ctx, tx, o.ID, items); err != nil {
			return err
		}
		if err := consumeStock(ctx, tx, items, settings.AllowNegativeStock); err != nil {
			return err
		}
		if _, err := tx.RecalculateSubtotal(ctx, o.ID); err != nil {
			return err
		}

		if o.Status == models.OrderStatusReady {
			n, err := tx.TransitionOrder(ctx, o.ID, o.Status, models.OrderStatusPreparing)
			if err != nil {
				return err
			}
			if n == 0 {
				return utils.Conflict("order %s changed concurrently", o.OrderNumber)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	o, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, kafka.OrderUpdated, o)
	s.Kitchen.Notify(ctx, models.KOTEventCreated, o, s.Kitchen.TableName(ctx, o), kots...)
	s.Logger.LogOrder("ITEMS_ADDED", o.OrderNumber, fmt.Sprintf("%d ticket(s), subtotal %s", len(kots), utils.FormatMoney(o.Subtotal)))
	return o, nil
}

// UpdateStatus applies a manual status change. Cancelling goes through Cancel
// so stock and tickets are unwound. Completing needs a paid bill, or nothing
// left to charge.
func (s *Service) UpdateStatus(ctx context.Context, orderID, to string) (*models.Order, error) {
	if to == models.OrderStatusCancelled {
		return s.Cancel(ctx, orderID, "")
	}

	err := s.Store.RunInTx(ctx, func(ctx context.Context, tx *store.DB) error {
		o, err := tx.GetOrderHeader(ctx, orderID)
		if errors.Is(err, sql.ErrNoRows) {
			return utils.NotFound("order %s not found", orderID)
		}
		if err != nil {
			return err
		}
		if err := status.Order.Check(o.Status, to); err != nil {
			return err
		}
		if to == models.OrderStatusCompleted {
			if err := ensureSettled(ctx, tx, o); err != nil {
				return err
			}
		}

		n, err := tx.TransitionOrder(ctx, o.ID, o.Status, to)
		if err != nil {
			return err
		}
		if n == 0 {
			return utils.Conflict("order %s changed concurrently", o.OrderNumber)
		}
		if to == models.OrderStatusCompleted {
			return ReleaseTable(ctx, tx, o)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	o, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, kafka.OrderUpdated, o)
	s.Logger.LogOrder("STATUS", o.OrderNumber, to)
	return o, nil
}

// Cancel cancels an unbilled order, its live tickets and returns the stock
// its items consumed. The table is freed when nobody else sits there.
func (s *Service) Cancel(ctx context.Context, orderID, reason string) (*models.Order, error) {
	var cancelled []*models.KOT

	err := s.Store.RunInTx(ctx, func(ctx context.Context, tx *store.DB) error {
		o, err := tx.GetOrderHeader(ctx, orderID)
		if errors.Is(err, sql.ErrNoRows) {
			return utils.NotFound("order %s not found", orderID)
		}
		if err != nil {
			return err
		}
		if err := status.Order.Check(o.Status, models.OrderStatusCancelled); err != nil {
			return err
		}
		if err := tx.EnsureUnbilled(ctx, o); err != nil {
			return err
		}

		n, err := tx.CancelOrder(ctx, o.ID, o.Status, reason)
		if err != nil {
			return err
		}
		if n == 0 {
			return utils.Conflict("order %s changed concurrently", o.OrderNumber)
		}

		kots, err := tx.KOTsForOrder(ctx, o.ID)
		if err != nil {
			return err
		}
		for _, k := range kots {
			if !status.KOT.CanTransition(k.Status, models.KOTStatusCancelled) {
				continue
			}
			n, err := tx.TransitionKOT(ctx, k.ID, k.Status, models.KOTStatusCancelled)
			if err != nil {
				return err
			}
			if n > 0 {
				k.Status = models.KOTStatusCancelled
				cancelled = append(cancelled, k)
			}
		}

		items, err := tx.ActiveOrderItems(ctx, o.ID)
		if err != nil {
			return err
		}
		for _, item := range items {
			if _, err := tx.ReverseMovements(ctx, item.ID, models.StockReasonOrder, models.StockReasonCancel); err != nil {
				return err
			}
		}
		return ReleaseTable(ctx, tx, o)
	})
	if err != nil {
		return nil, err
	}

	o, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, kafka.OrderCancelled, o)
	s.Kitchen.Notify(ctx, models.KOTEventUpdated, o, s.Kitchen.TableName(ctx, o), cancelled...)
	s.Logger.LogOrder("CANCELLED", o.OrderNumber, reason)
	return o, nil
}

// CancelItem removes one item whose ticket the kitchen has not started.
func (s *Service) CancelItem(ctx context.Context, orderID, itemID string) (*models.Order, error) {
	var ticket *models.KOT

	err := s.Store.RunInTx(ctx, func(ctx context.Context, tx *store.DB) error {
		o, err := s.openOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}

		item, err := tx.GetOrderItem(ctx, o.ID, itemID)
		if errors.Is(err, sql.ErrNoRows) {
			return utils.NotFound("item %s not found on order %s", itemID, o.OrderNumber)
		}
		if err != nil {
			return err
		}
		if item.Status != models.OrderItemActive {
			return utils.Conflict("item %s is already cancelled", item.Name)
		}

		k, err := tx.GetKOT(ctx, item.KOTID)
		if err != nil {
			return err
		}
		if k.Status != models.KOTStatusPending {
			return utils.Conflict("%s is already %s in the kitchen", item.Name, k.Status)
		}

		n, err := tx.CancelOrderItem(ctx, item.ID)
		if err != nil {
			return err
		}
		if n == 0 {
			return utils.Conflict("item %s changed concurrently", item.Name)
		}
		if _, err := tx.ReverseMovements(ctx, item.ID, models.StockReasonOrder, models.StockReasonCancel); err != nil {
			return err
		}

		remaining, err := tx.RemoveKOTItem(ctx, k.ID, item.ID)
		if err != nil {
			return err
		}
		if remaining == 0 {
			if _, err := tx.TransitionKOT(ctx, k.ID, models.KOTStatusPending, models.KOTStatusCancelled); err != nil {
				return err
			}
		}
		if ticket, err = tx.GetKOT(ctx, k.ID); err != nil {
			return err
		}

		if _, err := tx.RecalculateSubtotal(ctx, o.ID); err != nil {
			return err
		}
		_, err = kot.SyncOrderStatus(ctx, tx, o.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	o, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, kafka.OrderUpdated, o)
	s.Kitchen.Notify(ctx, models.KOTEventUpdated, o, s.Kitchen.TableName(ctx, o), ticket)
	s.Logger.LogOrder("ITEM_CANCELLED", o.OrderNumber, itemID)
	return o, nil
}

// ReleaseTable frees the order's table unless another open order still sits there.
func ReleaseTable(ctx context.Context, tx *store.DB, o *models.Order) error {
	if o.TableID == "" {
		return nil
	}
	open, err := tx.CountOpenOrdersForTable(ctx, o.TableID, o.ID)
	if err != nil || open > 0 {
		return err
	}
	_, err = tx.TransitionTable(ctx, o.TableID, models.TableStatusOccupied, models.TableStatusAvailable)
	return err
}

// ---------------- PLACEMENT ----------------

func checkOrderType(orderType, tableID string) error {
	switch {
	case orderType == models.OrderTypeDineIn && tableID == "":
		return utils.Validation("dine-in orders need a table")
	case orderType != models.OrderTypeDineIn && tableID != "":
		return utils.Validation("%s orders cannot have a table", orderType)
	}
	return nil
}

func (s *Service) withTableLock(ctx context.Context, tableID string, fn func() error) error {
	if tableID == "" {
		return fn()
	}
	return lock.WithLock(ctx, s.Locker, lock.TableKey(tableID), lock.DefaultWait, fn)
}

// place writes a new order inside tx and returns it with its kitchen tickets.
func (s *Service) place(ctx context.Context, tx *store.DB, userID string, req models.PlaceOrderRequest) (*models.Order, []*models.KOT, error) {
	settings, err := tx.LoadSettings(ctx)
	if err != nil {
		return nil, nil, err
	}

	if req.CustomerID != "" {
		if _, err := tx.GetCustomer(ctx, req.CustomerID); errors.Is(err, sql.ErrNoRows) {
			return nil, nil, utils.Validation("customer %s not found", req.CustomerID)
		} else if err != nil {
			return nil, nil, err
		}
	}
	if req.TableID != "" {
		if err := seatTable(ctx, tx, req.TableID, settings.AllowSharedTables); err != nil {
			return nil, nil, err
		}
	}

	now := utils.Now()
	number, err := tx.NextNumber(ctx, "ORD", now)
	if err != nil {
		return nil, nil, err
	}
	o := &models.Order{
		ID:          utils.NewID(),
		OrderNumber: number,
		OrderType:   req.OrderType,
		Status:      models.OrderStatusPending,
		TableID:     req.TableID,
		CustomerID:  req.CustomerID,
		CreatedBy:   userID,
		Notes:       req.Notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := tx.CreateOrder(ctx, o); err != nil {
		return nil, nil, err
	}

	items, err := priceItems(ctx, tx, o.ID, req.Items)
	if err != nil {
		return nil, nil, err
	}
	kots, err := routeToKitchen(ctx, tx, o.ID, items)
	if err != nil {
		return nil, nil, err
	}
	if err := consumeStock(ctx, tx, items, settings.AllowNegativeStock); err != nil {
		return nil, nil, err
	}
	if o.Subtotal, err = tx.RecalculateSubtotal(ctx, o.ID); err != nil {
		return nil, nil, err
	}
	return o, kots, nil
}

func (s *Service) afterPlace(ctx context.Context, orderID string, kots []*models.KOT) (*models.Order, error) {
	o, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, kafka.OrderPlaced, o)
	s.Kitchen.Notify(ctx, models.KOTEventCreated, o, s.Kitchen.TableName(ctx, o), kots...)
	metrics.RecordOrderPlaced(o.OrderType)
	s.Logger.LogOrder("PLACED", o.OrderNumber, fmt.Sprintf("%s, %d item(s), subtotal %s", o.OrderType, len(o.Items), utils.FormatMoney(o.Subtotal)))
	return o, nil
}

// seatTable marks a table occupied for a new order.
func seatTable(ctx context.Context, tx *store.DB, tableID string, allowShared bool) error {
	t, err := tx.GetTable(ctx, tableID)
	if errors.Is(err, sql.ErrNoRows) {
		return utils.Validation("table %s not found", tableID)
	}
	if err != nil {
		return err
	}
	if !t.IsActive {
		return utils.Validation("table %s is not in service", t.Name)
	}

	switch t.Status {
	case models.TableStatusAvailable, models.TableStatusReserved:
		n, err := tx.TransitionTable(ctx, t.ID, t.Status, models.TableStatusOccupied)
		if err != nil {
			return err
		}
		if n == 0 {
			return utils.Conflict("table %s changed concurrently", t.Name)
		}
		return nil
	case models.TableStatusOccupied:
		if allowShared {
			return nil
		}
		return utils.Conflict("table %s is occupied", t.Name)
	default:
		return utils.Conflict("table %s is %s", t.Name, t.Status)
	}
}

// priceItems builds order items at the current menu price.
func priceItems(ctx context.Context, tx *store.DB, orderID string, reqs []models.OrderItemRequest) ([]*models.OrderItem, error) {
	ids := make([]string, 0, len(reqs))
	for _, r := range reqs {
		ids = append(ids, r.MenuItemID)
	}
	menu, err := tx.GetMenuItemsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	now := utils.Now()
	items := make([]*models.OrderItem, 0, len(reqs))
	for _, r := range reqs {
		m, ok := menu[r.MenuItemID]
		if !ok {
			return nil, utils.Validation("menu item %s not found", r.MenuItemID)
		}
		if !m.IsAvailable {
			return nil, utils.Validation("%s is not available", m.Name)
		}
		if r.Quantity < 1 {
			return nil, utils.Validation("quantity for %s must be at least 1", m.Name)
		}
		items = append(items, &models.OrderItem{
			ID:         utils.NewID(),
			OrderID:    orderID,
			MenuItemID: m.ID,
			Name:       m.Name,
			Quantity:   r.Quantity,
			UnitPrice:  m.Price,
			Subtotal:   m.Price * int64(r.Quantity),
			Notes:      r.Notes,
			Status:     models.OrderItemActive,
			CreatedAt:  now,
			Station:    m.ResolvedStation(),
		})
	}
	return items, nil
}

// routeToKitchen opens one pending ticket per station and stores the items on them.
func routeToKitchen(ctx context.Context, tx *store.DB, orderID string, items []*models.OrderItem) ([]*models.KOT, error) {
	now := utils.Now()
	byStation := make(map[string]*models.KOT)
	kots := make([]*models.KOT, 0, 2)

	for _, item := range items {
		k, ok := byStation[item.Station]
		if !ok {
			number, err := tx.NextNumber(ctx, "KOT", now)
			if err != nil {
				return nil, err
			}
			k = &models.KOT{
				ID:        utils.NewID(),
				KOTNumber: number,
				OrderID:   orderID,
				Station:   item.Station,
				Status:    models.KOTStatusPending,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := tx.CreateKOT(ctx, k); err != nil {
				return nil, err
			}
			byStation[item.Station] = k
			kots = append(kots, k)
		}
		item.KOTID = k.ID
		k.Items = append(k.Items, &models.KOTItem{
			ID:          utils.NewID(),
			KOTID:       k.ID,
			OrderItemID: item.ID,
			Name:        item.Name,
			Quantity:    item.Quantity,
			Notes:       item.Notes,
		})
	}

	if err := tx.InsertOrderItems(ctx, items); err != nil {
		return nil, err
	}
	for _, k := range kots {
		if err := tx.InsertKOTItems(ctx, k.Items); err != nil {
			return nil, err
		}
	}
	return kots, nil
}

// consumeStock takes each item's recipe out of inventory, referenced by order item.
func consumeStock(ctx context.Context, tx *store.DB, items []*models.OrderItem, allowNegative bool) error {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.MenuItemID)
	}
	lines, err := tx.IngredientsFor(ctx, ids)
	if err != nil {
		return err
	}
	recipes := make(map[string][]*models.Ingredient)
	for _, l := range lines {
		recipes[l.MenuItemID] = append(recipes[l.MenuItemID], l)
	}

	for _, item := range items {
		for _, l := range recipes[item.MenuItemID] {
			n, err := tx.AdjustStock(ctx, l.InventoryItemID, -l.Quantity*float64(item.Quantity), models.StockReasonOrder, item.ID, allowNegative)
			if err != nil {
				return err
			}
			if n == 0 {
				return utils.Conflict("insufficient stock for %s", item.Name)
			}
		}
	}
	return nil
}

// openOrder loads an order that can still take changes and has no live bill.
func (s *Service) openOrder(ctx context.Context, tx *store.DB, orderID string) (*models.Order, error) {
	o, err := tx.GetOrderHeader(ctx, orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, utils.NotFound("order %s not found", orderID)
	}
	if err != nil {
		return nil, err
	}
	if !o.Open() {
		return nil, utils.Conflict("order %s is %s", o.OrderNumber, o.Status)
	}
	if err := tx.EnsureUnbilled(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// ensureSettled rejects completing an order that still has something to pay.
func ensureSettled(ctx context.Context, tx *store.DB, o *models.Order) error {
	b, err := tx.ActiveBillForOrder(ctx, o.ID)
	if errors.Is(err, sql.ErrNoRows) {
		if o.Subtotal == 0 {
			return nil
		}
		return utils.Conflict("order %s has no bill yet; bill it before completing", o.OrderNumber)
	}
	if err != nil {
		return err
	}
	if b.Status != models.BillStatusPaid {
		return utils.Conflict("order %s has bill %s that is %s", o.OrderNumber, b.BillNumber, b.Status)
	}
	return nil
}

func (s *Service) publish(ctx context.Context, eventType string, o *models.Order) {
	if s.Events != nil {
		s.Events.Order(ctx, eventType, o)
	}
}
