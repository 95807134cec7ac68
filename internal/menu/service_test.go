package menu

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-pos/internal/database/dbtest"
	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/media"
	"restaurant-pos/internal/models"
	"restaurant-pos/internal/store"
	"restaurant-pos/internal/utils"
)

func newService(t *testing.T) (*Service, *store.DB, *media.MemoryStorage) {
	t.Helper()
	db := store.New(dbtest.New(t))
	storage := media.NewMemoryStorage("https://cdn.test")
	return NewService(db, storage, logger.NewWithWriter(io.Discard)), db, storage
}

func TestCreateItemValidation(t *testing.T) {
	svc, db, _ := newService(t)
	ctx := context.Background()
	cat := dbtest.SeedCategory(t, db.Bun, "Mains", "grill")

	_, err := svc.CreateItem(ctx, models.MenuItemRequest{CategoryID: cat.ID, Name: "Steak", Price: 0})
	assert.True(t, utils.IsCategory(err, utils.CategoryValidation), "price must be positive")

	_, err = svc.CreateItem(ctx, models.MenuItemRequest{CategoryID: cat.ID, Price: 100})
	assert.True(t, utils.IsCategory(err, utils.CategoryValidation), "name required")

	_, err = svc.CreateItem(ctx, models.MenuItemRequest{CategoryID: "nope", Name: "Steak", Price: 100})
	assert.True(t, utils.IsCategory(err, utils.CategoryValidation), "category must exist")

	item, err := svc.CreateItem(ctx, models.MenuItemRequest{CategoryID: cat.ID, Name: " Steak ", Price: 2500})
	require.NoError(t, err)
	assert.Equal(t, "Steak", item.Name)
	assert.True(t, item.IsAvailable)
	assert.Equal(t, "grill", item.ResolvedStation())
}

func TestMenuHidesUnavailableItems(t *testing.T) {
	svc, db, _ := newService(t)
	ctx := context.Background()
	cat := dbtest.SeedCategory(t, db.Bun, "Drinks", "bar")
	cola := dbtest.SeedMenuItem(t, db.Bun, cat.ID, "Cola", 300)
	tea := dbtest.SeedMenuItem(t, db.Bun, cat.ID, "Tea", 200)
	dbtest.SeedCategory(t, db.Bun, "Empty", "kitchen")

	_, err := svc.SetAvailability(ctx, tea.ID, false)
	require.NoError(t, err)

	sections, err := svc.Menu(ctx)
	require.NoError(t, err)
	require.Len(t, sections, 1)
	require.Len(t, sections[0].Items, 1)
	assert.Equal(t, cola.ID, sections[0].Items[0].ID)

	_, err = svc.SetAvailability(ctx, "missing", true)
	assert.True(t, utils.IsCategory(err, utils.CategoryNotFound))
}

func TestReplaceIngredients(t *testing.T) {
	svc, db, _ := newService(t)
	ctx := context.Background()
	cat := dbtest.SeedCategory(t, db.Bun, "Mains", "kitchen")
	item := dbtest.SeedMenuItem(t, db.Bun, cat.ID, "Fries", 400)
	potato := dbtest.SeedInventory(t, db.Bun, "Potato", 10, "", 0)
	oil := dbtest.SeedInventory(t, db.Bun, "Oil", 5, "", 0)

	lines, err := svc.ReplaceIngredients(ctx, item.ID, []models.IngredientRequest{
		{InventoryItemID: potato.ID, Quantity: 0.25},
		{InventoryItemID: oil.ID, Quantity: 0.05},
	})
	require.NoError(t, err)
	assert.Len(t, lines, 2)

	_, err = svc.ReplaceIngredients(ctx, item.ID, []models.IngredientRequest{
		{InventoryItemID: potato.ID, Quantity: 0.25},
		{InventoryItemID: potato.ID, Quantity: 0.5},
	})
	assert.True(t, utils.IsCategory(err, utils.CategoryValidation))

	_, err = svc.ReplaceIngredients(ctx, item.ID, []models.IngredientRequest{{InventoryItemID: "ghost", Quantity: 1}})
	assert.True(t, utils.IsCategory(err, utils.CategoryValidation), "unknown inventory item violates the foreign key")

	got, err := svc.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Len(t, got.Ingredients, 2, "failed replace rolls back")
}

func TestUploadImageReplacesPrevious(t *testing.T) {
	svc, db, storage := newService(t)
	ctx := context.Background()
	cat := dbtest.SeedCategory(t, db.Bun, "Mains", "kitchen")
	item := dbtest.SeedMenuItem(t, db.Bun, cat.ID, "Curry", 900)

	_, err := svc.UploadImage(ctx, item.ID, "curry.gif", "image/gif", strings.NewReader("gif"))
	assert.True(t, utils.IsCategory(err, utils.CategoryValidation))

	first, err := svc.UploadImage(ctx, item.ID, "curry.png", "image/png", strings.NewReader("one"))
	require.NoError(t, err)
	assert.NotEmpty(t, first.ImageURL)
	assert.True(t, storage.Exists(first.ImageKey))

	second, err := svc.UploadImage(ctx, item.ID, "curry-2.png", "image/png", strings.NewReader("two"))
	require.NoError(t, err)
	assert.NotEqual(t, first.ImageKey, second.ImageKey)
	assert.False(t, storage.Exists(first.ImageKey))

	n, err := svc.DeleteItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.False(t, storage.Exists(second.ImageKey))

	n, err = svc.DeleteItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDeleteCategoryInUse(t *testing.T) {
	svc, db, _ := newService(t)
	ctx := context.Background()
	cat := dbtest.SeedCategory(t, db.Bun, "Mains", "kitchen")
	dbtest.SeedMenuItem(t, db.Bun, cat.ID, "Rice", 300)

	_, err := svc.DeleteCategory(ctx, cat.ID)
	assert.True(t, utils.IsCategory(err, utils.CategoryConflict), "categories with items are still in use")

	categories, err := svc.ListCategories(ctx, true)
	require.NoError(t, err)
	assert.Len(t, categories, 1)
}
