// Package dbtest provides migrated in-memory databases and row fixtures for tests.
package dbtest

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"golang.org/x/crypto/bcrypt"

	"restaurant-pos/internal/database"
	"restaurant-pos/internal/database/migrations"
	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/models"
)

// DefaultPIN is the PIN of every user created by SeedUser.
const DefaultPIN = "1234"

// New returns a private in-memory SQLite database with every migration applied.
func New(t testing.TB) *bun.DB {
	t.Helper()
	ctx := context.Background()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := database.OpenSQLite(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	runner := migrations.NewRunner(db, migrations.DefaultOptions(), logger.NewWithWriter(io.Discard))
	require.NoError(t, runner.RunMigrations())
	return db
}

func now() time.Time {
	return time.Now().UTC()
}

// SeedUser inserts an active user with DefaultPIN.
func SeedUser(t testing.TB, db bun.IDB, username, role string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPIN), bcrypt.MinCost)
	require.NoError(t, err)

	u := &models.User{
		ID:        uuid.NewString(),
		Username:  username,
		FullName:  username,
		Role:      role,
		PinHash:   string(hash),
		IsActive:  true,
		CreatedAt: now(),
		UpdatedAt: now(),
	}
	_, err = db.NewInsert().Model(u).Exec(context.Background())
	require.NoError(t, err)
	return u
}

// SeedCategory inserts an active category routed to station.
func SeedCategory(t testing.TB, db bun.IDB, name, station string) *models.MenuCategory {
	t.Helper()
	c := &models.MenuCategory{
		ID:        uuid.NewString(),
		Name:      name,
		Station:   station,
		IsActive:  true,
		CreatedAt: now(),
	}
	_, err := db.NewInsert().Model(c).Exec(context.Background())
	require.NoError(t, err)
	return c
}

// SeedMenuItem inserts an available item priced in minor units.
func SeedMenuItem(t testing.TB, db bun.IDB, categoryID, name string, price int64) *models.MenuItem {
	t.Helper()
	m := &models.MenuItem{
		ID:          uuid.NewString(),
		CategoryID:  categoryID,
		Name:        name,
		Price:       price,
		IsAvailable: true,
		CreatedAt:   now(),
		UpdatedAt:   now(),
	}
	_, err := db.NewInsert().Model(m).Exec(context.Background())
	require.NoError(t, err)
	return m
}

// SeedTable inserts an active available table.
func SeedTable(t testing.TB, db bun.IDB, name string) *models.DiningTable {
	t.Helper()
	tbl := &models.DiningTable{
		ID:        uuid.NewString(),
		Name:      name,
		Seats:     4,
		Status:    models.TableStatusAvailable,
		IsActive:  true,
		CreatedAt: now(),
		UpdatedAt: now(),
	}
	_, err := db.NewInsert().Model(tbl).Exec(context.Background())
	require.NoError(t, err)
	return tbl
}

// SeedCustomer inserts a customer with the given credit limit.
func SeedCustomer(t testing.TB, db bun.IDB, name string, creditLimit int64) *models.Customer {
	t.Helper()
	c := &models.Customer{
		ID:          uuid.NewString(),
		Name:        name,
		CreditLimit: creditLimit,
		CreatedAt:   now(),
		UpdatedAt:   now(),
	}
	_, err := db.NewInsert().Model(c).Exec(context.Background())
	require.NoError(t, err)
	return c
}

// SeedInventory inserts a stock item and optionally links it as an ingredient of menuItemID.
func SeedInventory(t testing.TB, db bun.IDB, name string, quantity float64, menuItemID string, perUnit float64) *models.InventoryItem {
	t.Helper()
	ctx := context.Background()
	inv := &models.InventoryItem{
		ID:        uuid.NewString(),
		Name:      name,
		Unit:      "unit",
		Quantity:  quantity,
		CreatedAt: now(),
		UpdatedAt: now(),
	}
	_, err := db.NewInsert().Model(inv).Exec(ctx)
	require.NoError(t, err)

	if menuItemID != "" {
		_, err = db.NewInsert().Model(&models.Ingredient{
			ID:              uuid.NewString(),
			MenuItemID:      menuItemID,
			InventoryItemID: inv.ID,
			Quantity:        perUnit,
		}).Exec(ctx)
		require.NoError(t, err)
	}
	return inv
}
