package store

import (
	"context"
	"strings"

	"github.com/uptrace/bun"

	"restaurant-pos/internal/models"
	"restaurant-pos/internal/utils"
)

// ---------------- CATEGORIES ----------------

func (d *DB) CreateCategory(ctx context.Context, c *models.MenuCategory) error {
	_, err := d.idb.NewInsert().Model(c).Exec(ctx)
	return err
}

func (d *DB) GetCategory(ctx context.Context, id string) (*models.MenuCategory, error) {
	var c models.MenuCategory
	err := d.idb.NewSelect().Model(&c).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (d *DB) ListCategories(ctx context.Context, includeInactive bool) ([]*models.MenuCategory, error) {
	categories := make([]*models.MenuCategory, 0)
	q := d.idb.NewSelect().Model(&categories).Order("sort_order", "name")
	if !includeInactive {
		q = q.Where("is_active = ?", true)
	}
	return categories, q.Scan(ctx)
}

func (d *DB) UpdateCategory(ctx context.Context, c *models.MenuCategory) (int64, error) {
	return rowsAffected(d.idb.NewUpdate().
		Model(c).
		Column("name", "station", "sort_order", "is_active").
		WherePK().
		Exec(ctx))
}

func (d *DB) DeleteCategory(ctx context.Context, id string) (int64, error) {
	res, err := d.idb.NewDelete().
		Model((*models.MenuCategory)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	return deleteRows(res, err, "category", id)
}

// ---------------- MENU ITEMS ----------------

type MenuFilter struct {
	CategoryID    string
	AvailableOnly bool
	Search        string
}

func (d *DB) CreateMenuItem(ctx context.Context, m *models.MenuItem) error {
	_, err := d.idb.NewInsert().Model(m).Exec(ctx)
	return err
}

// GetMenuItem loads an item with its category and recipe.
func (d *DB) GetMenuItem(ctx context.Context, id string) (*models.MenuItem, error) {
	var m models.MenuItem
	err := d.idb.NewSelect().
		Model(&m).
		Relation("Category").
		Relation("Ingredients").
		Where("menu_item.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (d *DB) ListMenuItems(ctx context.Context, f MenuFilter) ([]*models.MenuItem, error) {
	items := make([]*models.MenuItem, 0)
	q := d.idb.NewSelect().
		Model(&items).
		Relation("Category").
		OrderExpr("menu_item.name ASC")
	if f.CategoryID != "" {
		q = q.Where("menu_item.category_id = ?", f.CategoryID)
	}
	if f.AvailableOnly {
		q = q.Where("menu_item.is_available = ?", true).
			Where("category.is_active = ?", true)
	}
	if f.Search != "" {
		q = q.Where("LOWER(menu_item.name) LIKE ?", "%"+strings.ToLower(f.Search)+"%")
	}
	return items, q.Scan(ctx)
}

// GetMenuItemsByIDs returns the requested items keyed by ID, categories attached.
func (d *DB) GetMenuItemsByIDs(ctx context.Context, ids []string) (map[string]*models.MenuItem, error) {
	out := make(map[string]*models.MenuItem, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var items []*models.MenuItem
	err := d.idb.NewSelect().
		Model(&items).
		Relation("Category").
		Where("menu_item.id IN (?)", bun.In(ids)).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	for _, m := range items {
		out[m.ID] = m
	}
	return out, nil
}

func (d *DB) UpdateMenuItem(ctx context.Context, m *models.MenuItem) (int64, error) {
	m.UpdatedAt = utils.Now()
	return rowsAffected(d.idb.NewUpdate().
		Model(m).
		Column("category_id", "name", "description", "price", "station", "is_available", "updated_at").
		WherePK().
		Exec(ctx))
}

func (d *DB) SetMenuItemAvailability(ctx context.Context, id string, available bool) (int64, error) {
	return rowsAffected(d.idb.NewUpdate().
		Model((*models.MenuItem)(nil)).
		Set("is_available = ?", available).
		Set("updated_at = ?", utils.Now()).
		Where("id = ?", id).
		Exec(ctx))
}

func (d *DB) SetMenuItemImage(ctx context.Context, id, key string) (int64, error) {
	return rowsAffected(d.idb.NewUpdate().
		Model((*models.MenuItem)(nil)).
		Set("image_key = ?", key).
		Set("updated_at = ?", utils.Now()).
		Where("id = ?", id).
		Exec(ctx))
}

func (d *DB) DeleteMenuItem(ctx context.Context, id string) (int64, error) {
	res, err := d.idb.NewDelete().
		Model((*models.MenuItem)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	return deleteRows(res, err, "menu item", id)
}

// ---------------- RECIPES ----------------

// ReplaceIngredients swaps the recipe of a menu item. Call inside RunInTx.
func (d *DB) ReplaceIngredients(ctx context.Context, menuItemID string, lines []*models.Ingredient) error {
	_, err := d.idb.NewDelete().
		Model((*models.Ingredient)(nil)).
		Where("menu_item_id = ?", menuItemID).
		Exec(ctx)
	if err != nil || len(lines) == 0 {
		return err
	}
	_, err = d.idb.NewInsert().Model(&lines).Exec(ctx)
	return err
}

// IngredientsFor returns recipe lines for the given menu items.
func (d *DB) IngredientsFor(ctx context.Context, menuItemIDs []string) ([]*models.Ingredient, error) {
	lines := make([]*models.Ingredient, 0)
	if len(menuItemIDs) == 0 {
		return lines, nil
	}
	err := d.idb.NewSelect().
		Model(&lines).
		Where("menu_item_id IN (?)", bun.In(menuItemIDs)).
		Scan(ctx)
	return lines, err
}
