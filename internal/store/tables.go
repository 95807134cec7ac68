package store

import (
	"context"

	"restaurant-pos/internal/models"
	"restaurant-pos/internal/utils"
)

// ---------------- TABLES ----------------

func (d *DB) CreateTable(ctx context.Context, t *models.DiningTable) error {
	_, err := d.idb.NewInsert().Model(t).Exec(ctx)
	return err
}

// GetTable returns a table whether or not it is soft deleted.
func (d *DB) GetTable(ctx context.Context, id string) (*models.DiningTable, error) {
	var t models.DiningTable
	err := d.idb.NewSelect().Model(&t).Where("dt.id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (d *DB) ListTables(ctx context.Context, includeInactive bool, status string) ([]*models.DiningTable, error) {
	tables := make([]*models.DiningTable, 0)
	q := d.idb.NewSelect().Model(&tables).OrderExpr("dt.name ASC")
	if !includeInactive {
		q = q.Where("dt.is_active = ?", true)
	}
	if status != "" {
		q = q.Where("dt.status = ?", status)
	}
	return tables, q.Scan(ctx)
}

func (d *DB) UpdateTable(ctx context.Context, t *models.DiningTable) (int64, error) {
	t.UpdatedAt = utils.Now()
	return rowsAffected(d.idb.NewUpdate().
		Model(t).
		Column("name", "seats", "updated_at").
		WherePK().
		Where("is_active = ?", true).
		Exec(ctx))
}

// TransitionTable changes the status of an active table when it is still in from.
func (d *DB) TransitionTable(ctx context.Context, id, from, to string) (int64, error) {
	return rowsAffected(d.idb.NewUpdate().
		Model((*models.DiningTable)(nil)).
		Set("status = ?", to).
		Set("updated_at = ?", utils.Now()).
		Where("id = ?", id).
		Where("status = ?", from).
		Where("is_active = ?", true).
		Exec(ctx))
}

// SoftDeleteTable deactivates a table that is not seating anyone.
func (d *DB) SoftDeleteTable(ctx context.Context, id string) (int64, error) {
	return rowsAffected(d.idb.NewUpdate().
		Model((*models.DiningTable)(nil)).
		Set("is_active = ?", false).
		Set("updated_at = ?", utils.Now()).
		Where("id = ?", id).
		Where("is_active = ?", true).
		Where("status <> ?", models.TableStatusOccupied).
		Exec(ctx))
}
