package models

import (
	"time"

	"github.com/uptrace/bun"
)

// HeldBill is an order parked before it reaches the kitchen.
type HeldBill struct {
	bun.BaseModel `bun:"table:held_bills,alias:held_bill"`

	ID         string    `bun:"id,pk" json:"id"`
	Label      string    `bun:"label,notnull" json:"label"`
	OrderType  string    `bun:"order_type,notnull" json:"order_type"`
	TableID    string    `bun:"table_id,nullzero" json:"table_id,omitempty"`
	CustomerID string    `bun:"customer_id,nullzero" json:"customer_id,omitempty"`
	Notes      string    `bun:"notes" json:"notes,omitempty"`
	Total      int64     `bun:"total,notnull" json:"total"`
	CreatedBy  string    `bun:"created_by,notnull" json:"created_by"`
	CreatedAt  time.Time `bun:"created_at,notnull" json:"created_at"`

	Items []*HeldBillItem `bun:"rel:has-many,join:id=held_bill_id" json:"items,omitempty"`
}

type HeldBillItem struct {
	bun.BaseModel `bun:"table:held_bill_items"`

	ID         string `bun:"id,pk" json:"id"`
	HeldBillID string `bun:"held_bill_id,notnull" json:"held_bill_id"`
	MenuItemID string `bun:"menu_item_id,notnull" json:"menu_item_id"`
	Name       string `bun:"name,notnull" json:"name"`
	Quantity   int    `bun:"quantity,notnull" json:"quantity"`
	UnitPrice  int64  `bun:"unit_price,notnull" json:"unit_price"`
	Notes      string `bun:"notes" json:"notes,omitempty"`
}

type HoldRequest struct {
	Label      string             `json:"label" validate:"max=100"`
	OrderType  string             `json:"order_type" validate:"required,oneof=dine_in takeaway delivery"`
	TableID    string             `json:"table_id"`
	CustomerID string             `json:"customer_id"`
	Notes      string             `json:"notes" validate:"max=1000"`
	Items      []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
}
