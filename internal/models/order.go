package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	OrderTypeDineIn   = "dine_in"
	OrderTypeTakeaway = "takeaway"
	OrderTypeDelivery = "delivery"
)

const (
	OrderStatusPending   = "pending"
	OrderStatusPreparing = "preparing"
	OrderStatusReady     = "ready"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
)

const (
	OrderItemActive    = "active"
	OrderItemCancelled = "cancelled"
)

type Order struct {
	bun.BaseModel `bun:"table:orders,alias:o"`

	ID           string    `bun:"id,pk" json:"id"`
	OrderNumber  string    `bun:"order_number,notnull" json:"order_number"`
	OrderType    string    `bun:"order_type,notnull" json:"order_type"`
	Status       string    `bun:"status,notnull" json:"status"`
	TableID      string    `bun:"table_id,nullzero" json:"table_id,omitempty"`
	CustomerID   string    `bun:"customer_id,nullzero" json:"customer_id,omitempty"`
	CreatedBy    string    `bun:"created_by,notnull" json:"created_by"`
	Subtotal     int64     `bun:"subtotal,notnull" json:"subtotal"`
	Notes        string    `bun:"notes" json:"notes,omitempty"`
	CancelReason string    `bun:"cancel_reason" json:"cancel_reason,omitempty"`
	CreatedAt    time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt    time.Time `bun:"updated_at,notnull" json:"updated_at"`

	Items []*OrderItem `bun:"rel:has-many,join:id=order_id" json:"items,omitempty"`
	KOTs  []*KOT       `bun:"rel:has-many,join:id=order_id" json:"kots,omitempty"`
}

// Open reports whether the order can still change.
func (o *Order) Open() bool {
	return o.Status != OrderStatusCompleted && o.Status != OrderStatusCancelled
}

type OrderItem struct {
	bun.BaseModel `bun:"table:order_items"`

	ID         string    `bun:"id,pk" json:"id"`
	OrderID    string    `bun:"order_id,notnull" json:"order_id"`
	MenuItemID string    `bun:"menu_item_id,notnull" json:"menu_item_id"`
	KOTID      string    `bun:"kot_id,nullzero" json:"kot_id,omitempty"`
	Name       string    `bun:"name,notnull" json:"name"`
	Quantity   int       `bun:"quantity,notnull" json:"quantity"`
	UnitPrice  int64     `bun:"unit_price,notnull" json:"unit_price"`
	Subtotal   int64     `bun:"subtotal,notnull" json:"subtotal"`
	Notes      string    `bun:"notes" json:"notes,omitempty"`
	Status     string    `bun:"status,notnull" json:"status"`
	CreatedAt  time.Time `bun:"created_at,notnull" json:"created_at"`

	Station string `bun:"-" json:"-"`
}

type OrderItemRequest struct {
	MenuItemID string `json:"menu_item_id" validate:"required"`
	Quantity   int    `json:"quantity" validate:"gte=1,lte=999"`
	Notes      string `json:"notes" validate:"max=500"`
}

type PlaceOrderRequest struct {
	OrderType  string             `json:"order_type" validate:"required,oneof=dine_in takeaway delivery"`
	TableID    string             `json:"table_id"`
	CustomerID string             `json:"customer_id"`
	Notes      string             `json:"notes" validate:"max=1000"`
	Items      []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
}

type AddItemsRequest struct {
	Items []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
}

type StatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type CancelOrderRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type OrderFilter struct {
	Status    string
	OrderType string
	TableID   string
	From      time.Time
	To        time.Time
	Limit     int
	Offset    int
}
