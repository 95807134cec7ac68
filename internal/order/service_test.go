package order_test

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-pos/internal/config"
	"restaurant-pos/internal/database/dbtest"
	"restaurant-pos/internal/kafka"
	"restaurant-pos/internal/kot"
	"restaurant-pos/internal/lock"
	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/models"
	"restaurant-pos/internal/order"
	"restaurant-pos/internal/sse"
	"restaurant-pos/internal/store"
	"restaurant-pos/internal/utils"
)

type fixture struct {
	svc     *order.Service
	kitchen *kot.Service
	db      *store.DB
	emitter *sse.KitchenEventEmitter
	user    *models.User
	burger  *models.MenuItem
	cola    *models.MenuItem
	table   *models.DiningTable
}

func setup(t *testing.T) *fixture {
	t.Helper()
	bdb := dbtest.New(t)
	db := store.New(bdb)
	log := logger.NewWithWriter(io.Discard)
	emitter := sse.NewKitchenEventEmitter()
	events := kafka.NewEvents(nil, config.TopicConfig{}, log)
	kitchen := kot.NewService(db, emitter, events, log)

	mains := dbtest.SeedCategory(t, bdb, "Mains", "grill")
	drinks := dbtest.SeedCategory(t, bdb, "Drinks", "bar")

	return &fixture{
		svc:     order.NewService(db, lock.NewMemory(), kitchen, events, log),
		kitchen: kitchen,
		db:      db,
		emitter: emitter,
		user:    dbtest.SeedUser(t, bdb, "wendy", models.RoleWaiter),
		burger:  dbtest.SeedMenuItem(t, bdb, mains.ID, "Burger", 1200),
		cola:    dbtest.SeedMenuItem(t, bdb, drinks.ID, "Cola", 300),
		table:   dbtest.SeedTable(t, bdb, "T1"),
	}
}

func (f *fixture) dineIn(items ...models.OrderItemRequest) models.PlaceOrderRequest {
	return models.PlaceOrderRequest{OrderType: models.OrderTypeDineIn, TableID: f.table.ID, Items: items}
}

func line(id string, qty int) models.OrderItemRequest {
	return models.OrderItemRequest{MenuItemID: id, Quantity: qty}
}

func stockOf(t *testing.T, db *store.DB, id string) float64 {
	t.Helper()
	inv, err := db.GetInventoryItem(context.Background(), id)
	require.NoError(t, err)
	return inv.Quantity
}

func TestPlaceOrderRoutesItemsByStation(t *testing.T) {
	f := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bar := f.emitter.Subscribe(ctx, "bar")

	o, err := f.svc.PlaceOrder(ctx, f.user.ID, f.dineIn(line(f.burger.ID, 2), line(f.cola.ID, 1)))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(o.OrderNumber, "ORD-"))
	assert.Equal(t, models.OrderStatusPending, o.Status)
	assert.Equal(t, int64(2700), o.Subtotal)
	require.Len(t, o.Items, 2)

	var sum int64
	for _, item := range o.Items {
		sum += item.Subtotal
		assert.NotEmpty(t, item.KOTID)
	}
	assert.Equal(t, o.Subtotal, sum, "item subtotals add up to the order subtotal")

	require.Len(t, o.KOTs, 2)
	stations := []string{o.KOTs[0].Station, o.KOTs[1].Station}
	assert.ElementsMatch(t, []string{"grill", "bar"}, stations)

	tbl, err := f.db.GetTable(ctx, f.table.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TableStatusOccupied, tbl.Status)

	select {
	case ev := <-bar:
		assert.Equal(t, models.KOTEventCreated, ev.Type)
		assert.Equal(t, "T1", ev.TableName)
		assert.Equal(t, o.OrderNumber, ev.OrderNumber)
	case <-time.After(time.Second):
		t.Fatal("bar display got no ticket")
	}
}

func TestPlaceOrderValidation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  models.PlaceOrderRequest
	}{
		{"dine-in without table", models.PlaceOrderRequest{OrderType: models.OrderTypeDineIn, Items: []models.OrderItemRequest{line(f.burger.ID, 1)}}},
		{"takeaway with table", models.PlaceOrderRequest{OrderType: models.OrderTypeTakeaway, TableID: f.table.ID, Items: []models.OrderItemRequest{line(f.burger.ID, 1)}}},
		{"no items", models.PlaceOrderRequest{OrderType: models.OrderTypeTakeaway}},
		{"zero quantity", models.PlaceOrderRequest{OrderType: models.OrderTypeTakeaway, Items: []models.OrderItemRequest{line(f.burger.ID, 0)}}},
		{"unknown item", models.PlaceOrderRequest{OrderType: models.OrderTypeTakeaway, Items: []models.OrderItemRequest{line("nope", 1)}}},
		{"unknown customer", models.PlaceOrderRequest{OrderType: models.OrderTypeTakeaway, CustomerID: "nope", Items: []models.OrderItemRequest{line(f.burger.ID, 1)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.PlaceOrder(ctx, f.user.ID, tt.req)
			require.Error(t, err)
			assert.True(t, utils.IsCategory(err, utils.CategoryValidation), err.Error())
		})
	}

	t.Run("unavailable item", func(t *testing.T) {
		_, err := f.db.SetMenuItemAvailability(ctx, f.cola.ID, false)
		require.NoError(t, err)
		_, err = f.svc.PlaceOrder(ctx, f.user.ID, models.PlaceOrderRequest{
			OrderType: models.OrderTypeTakeaway,
			Items:     []models.OrderItemRequest{line(f.cola.ID, 1)},
		})
		assert.True(t, utils.IsCategory(err, utils.CategoryValidation))
	})

	orders, err := f.db.ListOrders(ctx, models.OrderFilter{})
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestPlaceOrderInsufficientStockRollsBack(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	patty := dbtest.SeedInventory(t, f.db.Bun, "Patty", 1, f.burger.ID, 1)

	_, err := f.svc.PlaceOrder(ctx, f.user.ID, f.dineIn(line(f.burger.ID, 2)))
	require.Error(t, err)
	assert.True(t, utils.IsCategory(err, utils.CategoryConflict))

	assert.Equal(t, 1.0, stockOf(t, f.db, patty.ID))
	tbl, err := f.db.GetTable(ctx, f.table.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TableStatusAvailable, tbl.Status, "table stays free when placement fails")

	require.NoError(t, f.db.UpsertSetting(ctx, models.SettingAllowNegativeStock, "true"))
	_, err = f.svc.PlaceOrder(ctx, f.user.ID, f.dineIn(line(f.burger.ID, 2)))
	require.NoError(t, err)
	assert.Equal(t, -1.0, stockOf(t, f.db, patty.ID))
}

func TestPlaceOrderTableRules(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.PlaceOrder(ctx, f.user.ID, f.dineIn(line(f.burger.ID, 1)))
	require.NoError(t, err)

	_, err = f.svc.PlaceOrder(ctx, f.user.ID, f.dineIn(line(f.cola.ID, 1)))
	assert.True(t, utils.IsCategory(err, utils.CategoryConflict), "occupied table")

	require.NoError(t, f.db.UpsertSetting(ctx, models.SettingAllowSharedTables, "true"))
	_, err = f.svc.PlaceOrder(ctx, f.user.ID, f.dineIn(line(f.cola.ID, 1)))
	assert.NoError(t, err, "shared tables take a second order")

	spare := dbtest.SeedTable(t, f.db.Bun, "T2")
	n, err := f.db.SoftDeleteTable(ctx, spare.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	_, err = f.svc.PlaceOrder(ctx, f.user.ID, models.PlaceOrderRequest{
		OrderType: models.OrderTypeDineIn,
		TableID:   spare.ID,
		Items:     []models.OrderItemRequest{line(f.burger.ID, 1)},
	})
	assert.True(t, utils.IsCategory(err, utils.CategoryValidation), "soft-deleted tables cannot take orders")
}

func TestCancelRestoresStockAndFreesTable(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	patty := dbtest.SeedInventory(t, f.db.Bun, "Patty", 10, f.burger.ID, 2)

	o, err := f.svc.PlaceOrder(ctx, f.user.ID, f.dineIn(line(f.burger.ID, 3)))
	require.NoError(t, err)
	assert.Equal(t, 4.0, stockOf(t, f.db, patty.ID))

	cancelled, err := f.svc.Cancel(ctx, o.ID, "guest left")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, "guest left", cancelled.CancelReason)
	for _, k := range cancelled.KOTs {
		assert.Equal(t, models.KOTStatusCancelled, k.Status)
	}

	assert.Equal(t, 10.0, stockOf(t, f.db, patty.ID))
	tbl, err := f.db.GetTable(ctx, f.table.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TableStatusAvailable, tbl.Status)

	_, err = f.svc.Cancel(ctx, o.ID, "")
	assert.True(t, utils.IsCategory(err, utils.CategoryConflict), "cancelled is terminal")
	assert.Equal(t, 10.0, stockOf(t, f.db, patty.ID), "stock is returned once")
}

func TestCancelRejectedOnceBilled(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	o, err := f.svc.PlaceOrder(ctx, f.user.ID, f.dineIn(line(f.burger.ID, 1)))
	require.NoError(t, err)
	require.NoError(t, f.db.CreateBill(ctx, &models.Bill{
		ID:         utils.NewID(),
		BillNumber: "BILL-TEST-0001",
		OrderID:    o.ID,
		Subtotal:   o.Subtotal,
		Total:      o.Subtotal,
		Status:     models.BillStatusUnpaid,
		CreatedBy:  f.user.ID,
		CreatedAt:  utils.Now(),
		UpdatedAt:  utils.Now(),
	}))

	_, err = f.svc.Cancel(ctx, o.ID, "")
	assert.True(t, utils.IsCategory(err, utils.CategoryConflict))

	_, err = f.svc.AddItems(ctx, o.ID, models.AddItemsRequest{Items: []models.OrderItemRequest{line(f.cola.ID, 1)}})
	assert.True(t, utils.IsCategory(err, utils.CategoryConflict))
}

func TestCancelItemOnlyWhileTicketPending(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	patty := dbtest.SeedInventory(t, f.db.Bun, "Patty", 5, f.burger.ID, 1)
	fries := dbtest.SeedMenuItem(t, f.db.Bun, f.burger.CategoryID, "Fries", 400)

	o, err := f.svc.PlaceOrder(ctx, f.user.ID, f.dineIn(line(f.burger.ID, 2), line(fries.ID, 1)))
	require.NoError(t, err)
	require.Len(t, o.KOTs, 1)

	var burgerLine, friesLine string
	for _, item := range o.Items {
		switch item.MenuItemID {
		case f.burger.ID:
			burgerLine = item.ID
		case fries.ID:
			friesLine = item.ID
		}
	}

	updated, err := f.svc.CancelItem(ctx, o.ID, burgerLine)
	require.NoError(t, err)
	assert.Equal(t, int64(400), updated.Subtotal)
	assert.Equal(t, 5.0, stockOf(t, f.db, patty.ID))
	require.Len(t, updated.KOTs[0].Items, 1, "ticket loses the cancelled line")

	_, err = f.kitchen.UpdateStatus(ctx, o.KOTs[0].ID, models.KOTStatusPreparing)
	require.NoError(t, err)

	_, err = f.svc.CancelItem(ctx, o.ID, friesLine)
	assert.True(t, utils.IsCategory(err, utils.CategoryConflict), "kitchen already started")
}

func TestAddItemsReopensReadyOrder(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	o, err := f.svc.PlaceOrder(ctx, f.user.ID, f.dineIn(line(f.burger.ID, 1)))
	require.NoError(t, err)

	kotID := o.KOTs[0].ID
	_, err = f.kitchen.UpdateStatus(ctx, kotID, models.KOTStatusPreparing)
	require.NoError(t, err)
	_, err = f.kitchen.UpdateStatus(ctx, kotID, models.KOTStatusReady)
	require.NoError(t, err)

	ready, err := f.svc.Get(ctx, o.ID)
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusReady, ready.Status)

	updated, err := f.svc.AddItems(ctx, o.ID, models.AddItemsRequest{Items: []models.OrderItemRequest{line(f.cola.ID, 2)}})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPreparing, updated.Status)
	assert.Equal(t, int64(1800), updated.Subtotal)
	assert.Len(t, updated.KOTs, 2)
}

func TestUpdateStatusUsesTransitionTable(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	o, err := f.svc.PlaceOrder(ctx, f.user.ID, f.dineIn(line(f.burger.ID, 1)))
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, o.ID, models.OrderStatusCompleted)
	assert.True(t, utils.IsCategory(err, utils.CategoryConflict))

	_, err = f.svc.UpdateStatus(ctx, o.ID, "eaten")
	assert.True(t, utils.IsCategory(err, utils.CategoryValidation))

	unchanged, err := f.svc.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, unchanged.Status)

	_, err = f.svc.UpdateStatus(ctx, o.ID, models.OrderStatusReady)
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, o.ID, models.OrderStatusCompleted)
	assert.True(t, utils.IsCategory(err, utils.CategoryConflict), "an unbilled order cannot be completed")

	ready, err := f.svc.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusReady, ready.Status)
}

func TestCompleteOrderWithNothingToCharge(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	o, err := f.svc.PlaceOrder(ctx, f.user.ID, f.dineIn(line(f.burger.ID, 1)))
	require.NoError(t, err)
	require.Len(t, o.Items, 1)

	emptied, err := f.svc.CancelItem(ctx, o.ID, o.Items[0].ID)
	require.NoError(t, err)
	require.Zero(t, emptied.Subtotal)

	_, err = f.svc.UpdateStatus(ctx, o.ID, models.OrderStatusReady)
	require.NoError(t, err)
	done, err := f.svc.UpdateStatus(ctx, o.ID, models.OrderStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCompleted, done.Status)

	tbl, err := f.db.GetTable(ctx, f.table.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TableStatusAvailable, tbl.Status)
}

func TestHoldAndRecall(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	held, err := f.svc.Hold(ctx, f.user.ID, models.HoldRequest{
		OrderType: models.OrderTypeTakeaway,
		Items:     []models.OrderItemRequest{line(f.burger.ID, 1), line(f.cola.ID, 2)},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1800), held.Total)
	assert.NotEmpty(t, held.Label)

	list, err := f.svc.ListHeld(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	o, err := f.svc.Recall(ctx, f.user.ID, held.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1800), o.Subtotal)
	assert.Len(t, o.Items, 2)

	_, err = f.svc.GetHeld(ctx, held.ID)
	assert.True(t, utils.IsCategory(err, utils.CategoryNotFound), "recall removes the held bill")

	_, err = f.svc.Recall(ctx, f.user.ID, held.ID)
	assert.Error(t, err)

	n, err := f.svc.DeleteHeld(ctx, held.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRecallKeepsHeldBillWhenPlacementFails(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	dbtest.SeedInventory(t, f.db.Bun, "Patty", 0, f.burger.ID, 1)

	held, err := f.svc.Hold(ctx, f.user.ID, models.HoldRequest{
		OrderType: models.OrderTypeTakeaway,
		Items:     []models.OrderItemRequest{line(f.burger.ID, 1)},
	})
	require.NoError(t, err)

	_, err = f.svc.Recall(ctx, f.user.ID, held.ID)
	assert.True(t, utils.IsCategory(err, utils.CategoryConflict))

	_, err = f.svc.GetHeld(ctx, held.ID)
	assert.NoError(t, err)
}

func TestPurgeHeld(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.Hold(ctx, f.user.ID, models.HoldRequest{
		OrderType: models.OrderTypeDelivery,
		Items:     []models.OrderItemRequest{line(f.cola.ID, 1)},
	})
	require.NoError(t, err)

	n, err := f.svc.PurgeHeld(ctx, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = f.svc.PurgeHeld(ctx, -time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
