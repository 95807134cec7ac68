package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"restaurant-pos/internal/models"
	"restaurant-pos/internal/utils"
)

// ---------------- BILLS ----------------

func (d *DB) CreateBill(ctx context.Context, b *models.Bill) error {
	_, err := d.idb.NewInsert().Model(b).Exec(ctx)
	return err
}

func (d *DB) GetBill(ctx context.Context, id string) (*models.Bill, error) {
	return d.getBill(ctx, "bill.id = ?", id)
}

func (d *DB) GetBillByNumber(ctx context.Context, number string) (*models.Bill, error) {
	return d.getBill(ctx, "bill.bill_number = ?", number)
}

func (d *DB) GetBillByPaymentIntent(ctx context.Context, intentID string) (*models.Bill, error) {
	return d.getBill(ctx, "bill.payment_intent_id = ?", intentID)
}

func (d *DB) getBill(ctx context.Context, where string, arg interface{}) (*models.Bill, error) {
	var b models.Bill
	err := d.idb.NewSelect().
		Model(&b).
		Relation("Payments", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("created_at", "id")
		}).
		Where(where, arg).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// ActiveBillForOrder returns the non-void bill of an order, or sql.ErrNoRows.
func (d *DB) ActiveBillForOrder(ctx context.Context, orderID string) (*models.Bill, error) {
	var b models.Bill
	err := d.idb.NewSelect().
		Model(&b).
		Where("bill.order_id = ?", orderID).
		Where("bill.status <> ?", models.BillStatusVoid).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// EnsureUnbilled fails with a conflict while the order has a non-void bill.
func (d *DB) EnsureUnbilled(ctx context.Context, o *models.Order) error {
	b, err := d.ActiveBillForOrder(ctx, o.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	return utils.Conflict("order %s has bill %s; void it first", o.OrderNumber, b.BillNumber)
}

func (d *DB) ListBills(ctx context.Context, f models.BillFilter) ([]*models.Bill, error) {
	bills := make([]*models.Bill, 0)
	q := d.idb.NewSelect().Model(&bills).OrderExpr("bill.created_at DESC")
	if f.Status != "" {
		q = q.Where("bill.status = ?", f.Status)
	}
	if !f.From.IsZero() {
		q = q.Where("bill.created_at >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("bill.created_at < ?", f.To)
	}
	return bills, applyPage(q, f.Limit, f.Offset).Scan(ctx)
}

// ApplyPayment moves paid_amount from expectedPaid to newPaid. It only
// succeeds when nobody else paid in between and the bill is still open.
func (d *DB) ApplyPayment(ctx context.Context, billID string, expectedPaid, newPaid int64, newStatus string) (int64, error) {
	return rowsAffected(d.idb.NewUpdate().
		Model((*models.Bill)(nil)).
		Set("paid_amount = ?", newPaid).
		Set("status = ?", newStatus).
		Set("updated_at = ?", utils.Now()).
		Where("id = ?", billID).
		Where("paid_amount = ?", expectedPaid).
		Where("status IN (?)", bun.In([]string{models.BillStatusUnpaid, models.BillStatusPartial})).
		Exec(ctx))
}

func (d *DB) TransitionBill(ctx context.Context, id, from, to string) (int64, error) {
	return rowsAffected(d.idb.NewUpdate().
		Model((*models.Bill)(nil)).
		Set("status = ?", to).
		Set("updated_at = ?", utils.Now()).
		Where("id = ?", id).
		Where("status = ?", from).
		Exec(ctx))
}

func (d *DB) SetBillPaymentIntent(ctx context.Context, id, intentID string) (int64, error) {
	return rowsAffected(d.idb.NewUpdate().
		Model((*models.Bill)(nil)).
		Set("payment_intent_id = ?", intentID).
		Set("updated_at = ?", utils.Now()).
		Where("id = ?", id).
		Exec(ctx))
}

// ---------------- PAYMENTS ----------------

func (d *DB) InsertBillPayment(ctx context.Context, p *models.BillPayment) error {
	_, err := d.idb.NewInsert().Model(p).Exec(ctx)
	return err
}

func (d *DB) GetPaymentByReference(ctx context.Context, reference string) (*models.BillPayment, error) {
	var p models.BillPayment
	err := d.idb.NewSelect().Model(&p).Where("reference = ?", reference).Limit(1).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (d *DB) PaymentsForBill(ctx context.Context, billID string) ([]*models.BillPayment, error) {
	payments := make([]*models.BillPayment, 0)
	err := d.idb.NewSelect().
		Model(&payments).
		Where("bill_id = ?", billID).
		Order("created_at", "id").
		Scan(ctx)
	return payments, err
}
