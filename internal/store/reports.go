package store

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"restaurant-pos/internal/models"
)

// ---------------- REPORTS ----------------

// SalesTotals aggregates paid bills created in [from, to).
func (d *DB) SalesTotals(ctx context.Context, from, to time.Time) (*models.SalesSummary, error) {
	var row struct {
		BillCount     int64 `bun:"bill_count"`
		Gross         int64 `bun:"gross"`
		Discounts     int64 `bun:"discounts"`
		ServiceCharge int64 `bun:"service_charge"`
		Tax           int64 `bun:"tax"`
		Net           int64 `bun:"net"`
	}
	err := d.idb.NewSelect().
		Model((*models.Bill)(nil)).
		ColumnExpr("COUNT(*) AS bill_count").
		ColumnExpr("CAST(COALESCE(SUM(bill.subtotal), 0) AS BIGINT) AS gross").
		ColumnExpr("CAST(COALESCE(SUM(bill.discount), 0) AS BIGINT) AS discounts").
		ColumnExpr("CAST(COALESCE(SUM(bill.service_charge), 0) AS BIGINT) AS service_charge").
		ColumnExpr("CAST(COALESCE(SUM(bill.tax), 0) AS BIGINT) AS tax").
		ColumnExpr("CAST(COALESCE(SUM(bill.total), 0) AS BIGINT) AS net").
		Where("bill.status = ?", models.BillStatusPaid).
		Where("bill.created_at >= ?", from).
		Where("bill.created_at < ?", to).
		Scan(ctx, &row)
	if err != nil {
		return nil, err
	}

	summary := &models.SalesSummary{
		From:          from,
		To:            to,
		BillCount:     row.BillCount,
		Gross:         row.Gross,
		Discounts:     row.Discounts,
		ServiceCharge: row.ServiceCharge,
		Tax:           row.Tax,
		Net:           row.Net,
	}
	if row.BillCount > 0 {
		summary.AverageTicket = row.Net / row.BillCount
	}
	return summary, nil
}

// TopItems ranks menu items by quantity sold on paid bills.
func (d *DB) TopItems(ctx context.Context, from, to time.Time, limit int) ([]models.ItemSales, error) {
	if limit <= 0 {
		limit = 10
	}
	rows := make([]models.ItemSales, 0)
	err := d.idb.NewSelect().
		TableExpr("order_items AS oi").
		Join("JOIN bills AS b ON b.order_id = oi.order_id").
		ColumnExpr("oi.menu_item_id AS menu_item_id").
		ColumnExpr("MAX(oi.name) AS name").
		ColumnExpr("CAST(SUM(oi.quantity) AS BIGINT) AS quantity").
		ColumnExpr("CAST(SUM(oi.subtotal) AS BIGINT) AS revenue").
		Where("oi.status = ?", models.OrderItemActive).
		Where("b.status = ?", models.BillStatusPaid).
		Where("b.created_at >= ?", from).
		Where("b.created_at < ?", to).
		GroupExpr("oi.menu_item_id").
		OrderExpr("quantity DESC, revenue DESC").
		Limit(limit).
		Scan(ctx, &rows)
	return rows, err
}

// PaymentsByMethod totals payments received in [from, to) per method.
func (d *DB) PaymentsByMethod(ctx context.Context, from, to time.Time) ([]models.PaymentMethodTotal, error) {
	rows := make([]models.PaymentMethodTotal, 0)
	err := d.idb.NewSelect().
		TableExpr("bill_payments AS p").
		Join("JOIN bills AS b ON b.id = p.bill_id").
		ColumnExpr("p.method AS method").
		ColumnExpr("COUNT(*) AS payment_count").
		ColumnExpr("CAST(SUM(p.amount) AS BIGINT) AS amount").
		Where("b.status <> ?", models.BillStatusVoid).
		Where("p.created_at >= ?", from).
		Where("p.created_at < ?", to).
		GroupExpr("p.method").
		OrderExpr("amount DESC").
		Scan(ctx, &rows)
	return rows, err
}

// DailySales groups paid bills by UTC calendar day.
func (d *DB) DailySales(ctx context.Context, from, to time.Time) ([]models.DailySales, error) {
	rows := make([]models.DailySales, 0)
	err := d.idb.NewSelect().
		TableExpr("bills AS b").
		ColumnExpr("CAST(DATE(b.created_at) AS TEXT) AS day").
		ColumnExpr("COUNT(*) AS bill_count").
		ColumnExpr("CAST(SUM(b.total) AS BIGINT) AS total").
		Where("b.status = ?", models.BillStatusPaid).
		Where("b.created_at >= ?", from).
		Where("b.created_at < ?", to).
		GroupExpr("CAST(DATE(b.created_at) AS TEXT)").
		OrderExpr("day ASC").
		Scan(ctx, &rows)
	return rows, err
}

// Snapshot reports the live floor state.
func (d *DB) Snapshot(ctx context.Context) (*models.Snapshot, error) {
	snap := &models.Snapshot{OrdersByStatus: map[string]int64{}}

	var byStatus []struct {
		Status string `bun:"status"`
		Count  int64  `bun:"order_count"`
	}
	err := d.idb.NewSelect().
		Model((*models.Order)(nil)).
		ColumnExpr("o.status AS status").
		ColumnExpr("COUNT(*) AS order_count").
		Where("o.status IN (?)", bun.In([]string{
			models.OrderStatusPending, models.OrderStatusPreparing, models.OrderStatusReady,
		})).
		GroupExpr("o.status").
		Scan(ctx, &byStatus)
	if err != nil {
		return nil, err
	}
	for _, r := range byStatus {
		snap.OrdersByStatus[r.Status] = r.Count
		snap.OpenOrders += r.Count
	}

	counts := []struct {
		dest  *int64
		query *bun.SelectQuery
	}{
		{&snap.ActiveTables, d.idb.NewSelect().Model((*models.DiningTable)(nil)).Where("dt.is_active = ?", true)},
		{&snap.OccupiedTables, d.idb.NewSelect().Model((*models.DiningTable)(nil)).
			Where("dt.is_active = ?", true).Where("dt.status = ?", models.TableStatusOccupied)},
		{&snap.PendingKOTs, d.idb.NewSelect().Model((*models.KOT)(nil)).
			Where("kot.status IN (?)", bun.In([]string{models.KOTStatusPending, models.KOTStatusPreparing}))},
		{&snap.UnpaidBills, d.idb.NewSelect().Model((*models.Bill)(nil)).
			Where("bill.status IN (?)", bun.In([]string{models.BillStatusUnpaid, models.BillStatusPartial}))},
		{&snap.LowStockItems, d.idb.NewSelect().Model((*models.InventoryItem)(nil)).Where("quantity <= reorder_level")},
	}
	for _, c := range counts {
		n, err := c.query.Count(ctx)
		if err != nil {
			return nil, err
		}
		*c.dest = int64(n)
	}

	err = d.idb.NewSelect().
		Model((*models.Bill)(nil)).
		ColumnExpr("CAST(COALESCE(SUM(bill.total - bill.paid_amount), 0) AS BIGINT)").
		Where("bill.status IN (?)", bun.In([]string{models.BillStatusUnpaid, models.BillStatusPartial})).
		Scan(ctx, &snap.OutstandingDue)
	if err != nil {
		return nil, err
	}

	snap.GeneratedAt = time.Now().UTC()
	return snap, nil
}
