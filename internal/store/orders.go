package store

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"restaurant-pos/internal/models"
	"restaurant-pos/internal/utils"
)

// ---------------- ORDERS ----------------

func (d *DB) CreateOrder(ctx context.Context, o *models.Order) error {
	_, err := d.idb.NewInsert().Model(o).Exec(ctx)
	return err
}

func (d *DB) InsertOrderItems(ctx context.Context, items []*models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	_, err := d.idb.NewInsert().Model(&items).Exec(ctx)
	return err
}

// GetOrder loads an order with its items and kitchen tickets.
func (d *DB) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	var o models.Order
	err := d.idb.NewSelect().
		Model(&o).
		Relation("Items", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("created_at", "id")
		}).
		Relation("KOTs", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("created_at", "id")
		}).
		Relation("KOTs.Items").
		Where("o.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// GetOrderHeader loads only the order row.
func (d *DB) GetOrderHeader(ctx context.Context, id string) (*models.Order, error) {
	var o models.Order
	err := d.idb.NewSelect().Model(&o).Where("o.id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (d *DB) ListOrders(ctx context.Context, f models.OrderFilter) ([]*models.Order, error) {
	orders := make([]*models.Order, 0)
	q := d.idb.NewSelect().
		Model(&orders).
		Relation("Items", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("created_at", "id")
		}).
		OrderExpr("o.created_at DESC")
	if f.Status != "" {
		q = q.Where("o.status = ?", f.Status)
	}
	if f.OrderType != "" {
		q = q.Where("o.order_type = ?", f.OrderType)
	}
	if f.TableID != "" {
		q = q.Where("o.table_id = ?", f.TableID)
	}
	if !f.From.IsZero() {
		q = q.Where("o.created_at >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("o.created_at < ?", f.To)
	}
	return orders, applyPage(q, f.Limit, f.Offset).Scan(ctx)
}

// TransitionOrder moves an order from one status to another. Zero rows means
// the order changed underneath the caller.
func (d *DB) TransitionOrder(ctx context.Context, id, from, to string) (int64, error) {
	return rowsAffected(d.idb.NewUpdate().
		Model((*models.Order)(nil)).
		Set("status = ?", to).
		Set("updated_at = ?", utils.Now()).
		Where("id = ?", id).
		Where("status = ?", from).
		Exec(ctx))
}

func (d *DB) CancelOrder(ctx context.Context, id, from, reason string) (int64, error) {
	return rowsAffected(d.idb.NewUpdate().
		Model((*models.Order)(nil)).
		Set("status = ?", models.OrderStatusCancelled).
		Set("cancel_reason = ?", reason).
		Set("updated_at = ?", utils.Now()).
		Where("id = ?", id).
		Where("status = ?", from).
		Exec(ctx))
}

// RecalculateSubtotal sets the order subtotal to the sum of its active items and returns it.
func (d *DB) RecalculateSubtotal(ctx context.Context, orderID string) (int64, error) {
	var subtotal int64
	err := d.idb.NewSelect().
		Model((*models.OrderItem)(nil)).
		ColumnExpr("CAST(COALESCE(SUM(subtotal), 0) AS BIGINT)").
		Where("order_id = ?", orderID).
		Where("status = ?", models.OrderItemActive).
		Scan(ctx, &subtotal)
	if err != nil {
		return 0, err
	}
	_, err = d.idb.NewUpdate().
		Model((*models.Order)(nil)).
		Set("subtotal = ?", subtotal).
		Set("updated_at = ?", utils.Now()).
		Where("id = ?", orderID).
		Exec(ctx)
	return subtotal, err
}

func (d *DB) GetOrderItem(ctx context.Context, orderID, itemID string) (*models.OrderItem, error) {
	var item models.OrderItem
	err := d.idb.NewSelect().
		Model(&item).
		Where("id = ?", itemID).
		Where("order_id = ?", orderID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (d *DB) CancelOrderItem(ctx context.Context, itemID string) (int64, error) {
	return rowsAffected(d.idb.NewUpdate().
		Model((*models.OrderItem)(nil)).
		Set("status = ?", models.OrderItemCancelled).
		Where("id = ?", itemID).
		Where("status = ?", models.OrderItemActive).
		Exec(ctx))
}

// ActiveOrderItems lists the items of an order that still count.
func (d *DB) ActiveOrderItems(ctx context.Context, orderID string) ([]*models.OrderItem, error) {
	items := make([]*models.OrderItem, 0)
	err := d.idb.NewSelect().
		Model(&items).
		Where("order_id = ?", orderID).
		Where("status = ?", models.OrderItemActive).
		Order("created_at", "id").
		Scan(ctx)
	return items, err
}

// CountOpenOrdersForTable counts open orders seated at a table, excluding one order.
func (d *DB) CountOpenOrdersForTable(ctx context.Context, tableID, excludeOrderID string) (int, error) {
	q := d.idb.NewSelect().
		Model((*models.Order)(nil)).
		Where("o.table_id = ?", tableID).
		Where("o.status IN (?)", bun.In([]string{
			models.OrderStatusPending, models.OrderStatusPreparing, models.OrderStatusReady,
		}))
	if excludeOrderID != "" {
		q = q.Where("o.id <> ?", excludeOrderID)
	}
	return q.Count(ctx)
}

// OrdersCreatedBetween counts orders in [from, to).
func (d *DB) OrdersCreatedBetween(ctx context.Context, from, to time.Time) (int, error) {
	return d.idb.NewSelect().
		Model((*models.Order)(nil)).
		Where("o.created_at >= ?", from).
		Where("o.created_at < ?", to).
		Count(ctx)
}
