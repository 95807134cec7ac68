package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	TableStatusAvailable = "available"
	TableStatusOccupied  = "occupied"
	TableStatusReserved  = "reserved"
	TableStatusCleaning  = "cleaning"
)

// DiningTable is a seating table. Rows are soft deleted through IsActive.
type DiningTable struct {
	bun.BaseModel `bun:"table:tables,alias:dt"`

	ID        string    `bun:"id,pk" json:"id"`
	Name      string    `bun:"name,notnull" json:"name"`
	Seats     int       `bun:"seats,notnull" json:"seats"`
	Status    string    `bun:"status,notnull" json:"status"`
	IsActive  bool      `bun:"is_active,notnull" json:"is_active"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

type TableRequest struct {
	Name  string `json:"name" validate:"required,max=50"`
	Seats int    `json:"seats" validate:"gte=1,lte=100"`
}

type Customer struct {
	bun.BaseModel `bun:"table:customers"`

	ID            string    `bun:"id,pk" json:"id"`
	Name          string    `bun:"name,notnull" json:"name"`
	Phone         string    `bun:"phone,nullzero" json:"phone,omitempty"`
	Email         string    `bun:"email" json:"email,omitempty"`
	CreditLimit   int64     `bun:"credit_limit,notnull" json:"credit_limit"`
	CreditBalance int64     `bun:"credit_balance,notnull" json:"credit_balance"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt     time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

type CustomerRequest struct {
	Name        string `json:"name" validate:"required,max=150"`
	Phone       string `json:"phone" validate:"omitempty,max=30"`
	Email       string `json:"email" validate:"omitempty,email"`
	CreditLimit int64  `json:"credit_limit" validate:"gte=0"`
}

// CustomerPayment settles part of a customer's credit balance.
type CustomerPayment struct {
	bun.BaseModel `bun:"table:customer_payments"`

	ID         string    `bun:"id,pk" json:"id"`
	CustomerID string    `bun:"customer_id,notnull" json:"customer_id"`
	Amount     int64     `bun:"amount,notnull" json:"amount"`
	Method     string    `bun:"method,notnull" json:"method"`
	CreatedBy  string    `bun:"created_by,notnull" json:"created_by"`
	CreatedAt  time.Time `bun:"created_at,notnull" json:"created_at"`
}

type CustomerPaymentRequest struct {
	Amount int64  `json:"amount" validate:"gt=0"`
	Method string `json:"method" validate:"required,oneof=cash card upi"`
}

type InventoryItem struct {
	bun.BaseModel `bun:"table:inventory_items"`

	ID           string    `bun:"id,pk" json:"id"`
	Name         string    `bun:"name,notnull" json:"name"`
	Unit         string    `bun:"unit,notnull" json:"unit"`
	Quantity     float64   `bun:"quantity,notnull" json:"quantity"`
	ReorderLevel float64   `bun:"reorder_level,notnull" json:"reorder_level"`
	CreatedAt    time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt    time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

type InventoryItemRequest struct {
	Name         string  `json:"name" validate:"required,max=150"`
	Unit         string  `json:"unit" validate:"required,max=20"`
	Quantity     float64 `json:"quantity" validate:"gte=0"`
	ReorderLevel float64 `json:"reorder_level" validate:"gte=0"`
}

// Stock movement reasons.
const (
	StockReasonOrder      = "order"
	StockReasonCancel     = "cancel"
	StockReasonAdjustment = "adjustment"
	StockReasonRestock    = "restock"
	StockReasonWastage    = "wastage"
)

type StockMovement struct {
	bun.BaseModel `bun:"table:stock_movements"`

	ID              string    `bun:"id,pk" json:"id"`
	InventoryItemID string    `bun:"inventory_item_id,notnull" json:"inventory_item_id"`
	Delta           float64   `bun:"delta,notnull" json:"delta"`
	Reason          string    `bun:"reason,notnull" json:"reason"`
	ReferenceID     string    `bun:"reference_id" json:"reference_id,omitempty"`
	CreatedAt       time.Time `bun:"created_at,notnull" json:"created_at"`
}

type StockAdjustRequest struct {
	Delta  float64 `json:"delta" validate:"ne=0"`
	Reason string  `json:"reason" validate:"required,oneof=adjustment restock wastage"`
}

type EmployeeRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	FullName string `json:"full_name" validate:"required,max=150"`
	Role     string `json:"role" validate:"required,oneof=admin manager cashier waiter kitchen"`
	PIN      string `json:"pin" validate:"required"`
}

type EmployeeUpdateRequest struct {
	FullName *string `json:"full_name" validate:"omitempty,max=150"`
	Role     *string `json:"role" validate:"omitempty,oneof=admin manager cashier waiter kitchen"`
	IsActive *bool   `json:"is_active"`
}
