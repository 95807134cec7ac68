package store

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"restaurant-pos/internal/models"
)

// ---------------- HELD BILLS ----------------

// CreateHeldBill stores a held bill and its items. Call inside RunInTx.
func (d *DB) CreateHeldBill(ctx context.Context, h *models.HeldBill) error {
	if _, err := d.idb.NewInsert().Model(h).Exec(ctx); err != nil {
		return err
	}
	if len(h.Items) == 0 {
		return nil
	}
	_, err := d.idb.NewInsert().Model(&h.Items).Exec(ctx)
	return err
}

func (d *DB) GetHeldBill(ctx context.Context, id string) (*models.HeldBill, error) {
	var h models.HeldBill
	err := d.idb.NewSelect().
		Model(&h).
		Relation("Items").
		Where("held_bill.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (d *DB) ListHeldBills(ctx context.Context) ([]*models.HeldBill, error) {
	held := make([]*models.HeldBill, 0)
	err := d.idb.NewSelect().
		Model(&held).
		Relation("Items").
		OrderExpr("held_bill.created_at DESC").
		Scan(ctx)
	return held, err
}

func (d *DB) DeleteHeldBill(ctx context.Context, id string) (int64, error) {
	return rowsAffected(d.idb.NewDelete().
		Model((*models.HeldBill)(nil)).
		Where("id = ?", id).
		Exec(ctx))
}

// PurgeHeldBills deletes held bills parked before cutoff.
func (d *DB) PurgeHeldBills(ctx context.Context, cutoff time.Time) (int64, error) {
	var ids []string
	err := d.idb.NewSelect().
		Model((*models.HeldBill)(nil)).
		Column("id").
		Where("created_at < ?", cutoff).
		Scan(ctx, &ids)
	if err != nil || len(ids) == 0 {
		return 0, err
	}
	// Items go first for databases where the cascade is not enforced.
	if _, err := d.idb.NewDelete().
		Model((*models.HeldBillItem)(nil)).
		Where("held_bill_id IN (?)", bun.In(ids)).
		Exec(ctx); err != nil {
		return 0, err
	}
	return rowsAffected(d.idb.NewDelete().
		Model((*models.HeldBill)(nil)).
		Where("id IN (?)", bun.In(ids)).
		Exec(ctx))
}
