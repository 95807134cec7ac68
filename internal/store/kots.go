package store

import (
	"context"

	"github.com/uptrace/bun"

	"restaurant-pos/internal/models"
	"restaurant-pos/internal/utils"
)

// ---------------- KOTS ----------------

func (d *DB) CreateKOT(ctx context.Context, k *models.KOT) error {
	_, err := d.idb.NewInsert().Model(k).Exec(ctx)
	return err
}

func (d *DB) InsertKOTItems(ctx context.Context, items []*models.KOTItem) error {
	if len(items) == 0 {
		return nil
	}
	_, err := d.idb.NewInsert().Model(&items).Exec(ctx)
	return err
}

func (d *DB) GetKOT(ctx context.Context, id string) (*models.KOT, error) {
	var k models.KOT
	err := d.idb.NewSelect().
		Model(&k).
		Relation("Items").
		Where("kot.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &k, nil
}

func (d *DB) ListKOTs(ctx context.Context, f models.KOTFilter) ([]*models.KOT, error) {
	kots := make([]*models.KOT, 0)
	q := d.idb.NewSelect().
		Model(&kots).
		Relation("Items").
		OrderExpr("kot.created_at ASC")
	if f.Station != "" {
		q = q.Where("kot.station = ?", f.Station)
	}
	if f.Status != "" {
		q = q.Where("kot.status = ?", f.Status)
	} else {
		q = q.Where("kot.status IN (?)", bun.In([]string{
			models.KOTStatusPending, models.KOTStatusPreparing, models.KOTStatusReady,
		}))
	}
	if f.OrderID != "" {
		q = q.Where("kot.order_id = ?", f.OrderID)
	}
	return kots, applyPage(q, f.Limit, 0).Scan(ctx)
}

func (d *DB) KOTsForOrder(ctx context.Context, orderID string) ([]*models.KOT, error) {
	kots := make([]*models.KOT, 0)
	err := d.idb.NewSelect().
		Model(&kots).
		Relation("Items").
		Where("kot.order_id = ?", orderID).
		OrderExpr("kot.created_at ASC").
		Scan(ctx)
	return kots, err
}

func (d *DB) TransitionKOT(ctx context.Context, id, from, to string) (int64, error) {
	return rowsAffected(d.idb.NewUpdate().
		Model((*models.KOT)(nil)).
		Set("status = ?", to).
		Set("updated_at = ?", utils.Now()).
		Where("id = ?", id).
		Where("status = ?", from).
		Exec(ctx))
}

// RemoveKOTItem drops the ticket line of an order item and reports how many lines remain on the ticket.
func (d *DB) RemoveKOTItem(ctx context.Context, kotID, orderItemID string) (int, error) {
	_, err := d.idb.NewDelete().
		Model((*models.KOTItem)(nil)).
		Where("kot_id = ?", kotID).
		Where("order_item_id = ?", orderItemID).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return d.idb.NewSelect().
		Model((*models.KOTItem)(nil)).
		Where("kot_id = ?", kotID).
		Count(ctx)
}
