package status

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"restaurant-pos/internal/models"
	"restaurant-pos/internal/utils"
)

func TestOrderTransitions(t *testing.T) {
	tests := []struct {
		from, to string
		allowed  bool
	}{
		{models.OrderStatusPending, models.OrderStatusPreparing, true},
		{models.OrderStatusPreparing, models.OrderStatusReady, true},
		{models.OrderStatusReady, models.OrderStatusCompleted, true},
		{models.OrderStatusReady, models.OrderStatusPreparing, true},
		{models.OrderStatusPending, models.OrderStatusCancelled, true},
		{models.OrderStatusPending, models.OrderStatusCompleted, false},
		{models.OrderStatusCompleted, models.OrderStatusPending, false},
		{models.OrderStatusCancelled, models.OrderStatusPreparing, false},
	}
	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			assert.Equal(t, tt.allowed, Order.CanTransition(tt.from, tt.to))
		})
	}
}

func TestCheckClassifiesErrors(t *testing.T) {
	err := KOT.Check(models.KOTStatusPending, "burnt")
	assert.True(t, utils.IsCategory(err, utils.CategoryValidation))

	err = KOT.Check(models.KOTStatusCompleted, models.KOTStatusPending)
	assert.True(t, utils.IsCategory(err, utils.CategoryConflict))

	err = KOT.Check(models.KOTStatusReady, models.KOTStatusReady)
	assert.True(t, utils.IsCategory(err, utils.CategoryConflict))

	assert.NoError(t, Bill.Check(models.BillStatusPartial, models.BillStatusPaid))
	assert.Error(t, Bill.Check(models.BillStatusPaid, models.BillStatusVoid))
}

func TestTableTransitions(t *testing.T) {
	assert.True(t, Table.CanTransition(models.TableStatusOccupied, models.TableStatusCleaning))
	assert.True(t, Table.CanTransition(models.TableStatusCleaning, models.TableStatusAvailable))
	assert.False(t, Table.CanTransition(models.TableStatusCleaning, models.TableStatusOccupied))
	assert.False(t, Table.CanTransition(models.TableStatusReserved, models.TableStatusCleaning))
}

func TestTerminalStatuses(t *testing.T) {
	assert.True(t, Order.Terminal(models.OrderStatusCompleted))
	assert.True(t, Order.Terminal(models.OrderStatusCancelled))
	assert.False(t, Order.Terminal(models.OrderStatusReady))
	assert.ElementsMatch(t, []string{models.BillStatusPaid, models.BillStatusVoid}, Bill.Next(models.BillStatusPartial))
}

func TestDeriveOrderStatus(t *testing.T) {
	kot := func(s string) *models.KOT { return &models.KOT{Status: s} }

	tests := []struct {
		name    string
		current string
		kots    []*models.KOT
		want    string
	}{
		{"no tickets", models.OrderStatusPending, nil, models.OrderStatusPending},
		{"all pending", models.OrderStatusPending, []*models.KOT{kot("pending"), kot("pending")}, models.OrderStatusPending},
		{"one preparing", models.OrderStatusPending, []*models.KOT{kot("preparing"), kot("pending")}, models.OrderStatusPreparing},
		{"partially ready", models.OrderStatusPreparing, []*models.KOT{kot("ready"), kot("pending")}, models.OrderStatusPreparing},
		{"all ready", models.OrderStatusPreparing, []*models.KOT{kot("ready"), kot("completed")}, models.OrderStatusReady},
		{"cancelled ignored", models.OrderStatusPreparing, []*models.KOT{kot("ready"), kot("cancelled")}, models.OrderStatusReady},
		{"new ticket after ready", models.OrderStatusReady, []*models.KOT{kot("completed"), kot("pending")}, models.OrderStatusPreparing},
		{"completed order untouched", models.OrderStatusCompleted, []*models.KOT{kot("pending")}, models.OrderStatusCompleted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveOrderStatus(tt.current, tt.kots))
		})
	}
}
