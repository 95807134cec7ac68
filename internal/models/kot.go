package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	KOTStatusPending   = "pending"
	KOTStatusPreparing = "preparing"
	KOTStatusReady     = "ready"
	KOTStatusCompleted = "completed"
	KOTStatusCancelled = "cancelled"
)

// KOT is a kitchen order ticket: the items of one order routed to one station.
type KOT struct {
	bun.BaseModel `bun:"table:kots,alias:kot"`

	ID        string    `bun:"id,pk" json:"id"`
	KOTNumber string    `bun:"kot_number,notnull" json:"kot_number"`
	OrderID   string    `bun:"order_id,notnull" json:"order_id"`
	Station   string    `bun:"station,notnull" json:"station"`
	Status    string    `bun:"status,notnull" json:"status"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,notnull" json:"updated_at"`

	Items []*KOTItem `bun:"rel:has-many,join:id=kot_id" json:"items,omitempty"`
}

// Live reports whether the ticket still counts towards the order's kitchen state.
func (k *KOT) Live() bool {
	return k.Status != KOTStatusCancelled
}

type KOTItem struct {
	bun.BaseModel `bun:"table:kot_items"`

	ID          string `bun:"id,pk" json:"id"`
	KOTID       string `bun:"kot_id,notnull" json:"kot_id"`
	OrderItemID string `bun:"order_item_id,notnull" json:"order_item_id"`
	Name        string `bun:"name,notnull" json:"name"`
	Quantity    int    `bun:"quantity,notnull" json:"quantity"`
	Notes       string `bun:"notes" json:"notes,omitempty"`
}

type KOTFilter struct {
	Station string
	Status  string
	OrderID string
	Limit   int
}

// Kitchen event types.
const (
	KOTEventCreated = "kot.created"
	KOTEventUpdated = "kot.updated"
)

// KOTEvent is pushed to kitchen displays and the printer relay.
type KOTEvent struct {
	Type        string    `json:"type"`
	KOT         *KOT      `json:"kot"`
	OrderNumber string    `json:"order_number,omitempty"`
	TableName   string    `json:"table_name,omitempty"`
	OrderStatus string    `json:"order_status,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}
