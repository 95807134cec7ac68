package store

import (
	"context"

	"restaurant-pos/internal/models"
	"restaurant-pos/internal/utils"
)

// stockEpsilon absorbs float rounding when checking for negative stock.
const stockEpsilon = 1e-9

// ---------------- INVENTORY ----------------

func (d *DB) CreateInventoryItem(ctx context.Context, item *models.InventoryItem) error {
	_, err := d.idb.NewInsert().Model(item).Exec(ctx)
	return err
}

func (d *DB) GetInventoryItem(ctx context.Context, id string) (*models.InventoryItem, error) {
	var item models.InventoryItem
	err := d.idb.NewSelect().Model(&item).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (d *DB) ListInventory(ctx context.Context) ([]*models.InventoryItem, error) {
	items := make([]*models.InventoryItem, 0)
	err := d.idb.NewSelect().Model(&items).Order("name").Scan(ctx)
	return items, err
}

// LowStock lists items at or below their reorder level.
func (d *DB) LowStock(ctx context.Context) ([]*models.InventoryItem, error) {
	items := make([]*models.InventoryItem, 0)
	err := d.idb.NewSelect().
		Model(&items).
		Where("quantity <= reorder_level").
		Order("name").
		Scan(ctx)
	return items, err
}

func (d *DB) UpdateInventoryItem(ctx context.Context, item *models.InventoryItem) (int64, error) {
	item.UpdatedAt = utils.Now()
	return rowsAffected(d.idb.NewUpdate().
		Model(item).
		Column("name", "unit", "reorder_level", "updated_at").
		WherePK().
		Exec(ctx))
}

func (d *DB) DeleteInventoryItem(ctx context.Context, id string) (int64, error) {
	res, err := d.idb.NewDelete().
		Model((*models.InventoryItem)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	return deleteRows(res, err, "inventory item", id)
}

// AdjustStock adds delta to an item's quantity and logs the movement. Unless
// allowNegative is set, a change that would take the quantity below zero
// affects no rows and logs nothing.
func (d *DB) AdjustStock(ctx context.Context, itemID string, delta float64, reason, referenceID string, allowNegative bool) (int64, error) {
	q := d.idb.NewUpdate().
		Model((*models.InventoryItem)(nil)).
		Set("quantity = quantity + ?", delta).
		Set("updated_at = ?", utils.Now()).
		Where("id = ?", itemID)
	if !allowNegative && delta < 0 {
		q = q.Where("quantity + ? >= ?", delta, -stockEpsilon)
	}
	n, err := rowsAffected(q.Exec(ctx))
	if err != nil || n == 0 {
		return n, err
	}

	_, err = d.idb.NewInsert().Model(&models.StockMovement{
		ID:              utils.NewID(),
		InventoryItemID: itemID,
		Delta:           delta,
		Reason:          reason,
		ReferenceID:     referenceID,
		CreatedAt:       utils.Now(),
	}).Exec(ctx)
	return n, err
}

func (d *DB) StockMovements(ctx context.Context, itemID string, limit int) ([]*models.StockMovement, error) {
	movements := make([]*models.StockMovement, 0)
	q := d.idb.NewSelect().
		Model(&movements).
		Where("inventory_item_id = ?", itemID).
		Order("created_at DESC")
	return movements, applyPage(q, limit, 0).Scan(ctx)
}

// MovementsForReference returns stock movements recorded against a document such as an order.
func (d *DB) MovementsForReference(ctx context.Context, referenceID, reason string) ([]*models.StockMovement, error) {
	movements := make([]*models.StockMovement, 0)
	err := d.idb.NewSelect().
		Model(&movements).
		Where("reference_id = ?", referenceID).
		Where("reason = ?", reason).
		Scan(ctx)
	return movements, err
}

// ReverseMovements undoes the stock movements recorded for referenceID under
// fromReason, logging the inverse deltas under reason. Reversals skip the
// negative guard. A reference that was already reversed is left alone.
func (d *DB) ReverseMovements(ctx context.Context, referenceID, fromReason, reason string) (int, error) {
	done, err := d.MovementsForReference(ctx, referenceID, reason)
	if err != nil || len(done) > 0 {
		return 0, err
	}
	movements, err := d.MovementsForReference(ctx, referenceID, fromReason)
	if err != nil {
		return 0, err
	}
	for _, m := range movements {
		if _, err := d.AdjustStock(ctx, m.InventoryItemID, -m.Delta, reason, referenceID, true); err != nil {
			return 0, err
		}
	}
	return len(movements), nil
}
