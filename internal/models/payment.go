package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	BillStatusUnpaid  = "unpaid"
	BillStatusPartial = "partial"
	BillStatusPaid    = "paid"
	BillStatusVoid    = "void"
)

const (
	PaymentMethodCash   = "cash"
	PaymentMethodCard   = "card"
	PaymentMethodUPI    = "upi"
	PaymentMethodCredit = "credit"
)

type Bill struct {
	bun.BaseModel `bun:"table:bills,alias:bill"`

	ID              string    `bun:"id,pk" json:"id"`
	BillNumber      string    `bun:"bill_number,notnull" json:"bill_number"`
	OrderID         string    `bun:"order_id,notnull" json:"order_id"`
	CustomerID      string    `bun:"customer_id,nullzero" json:"customer_id,omitempty"`
	Subtotal        int64     `bun:"subtotal,notnull" json:"subtotal"`
	Discount        int64     `bun:"discount,notnull" json:"discount"`
	ServiceCharge   int64     `bun:"service_charge,notnull" json:"service_charge"`
	Tax             int64     `bun:"tax,notnull" json:"tax"`
	Total           int64     `bun:"total,notnull" json:"total"`
	PaidAmount      int64     `bun:"paid_amount,notnull" json:"paid_amount"`
	Status          string    `bun:"status,notnull" json:"status"`
	PaymentIntentID string    `bun:"payment_intent_id,nullzero" json:"payment_intent_id,omitempty"`
	CreatedBy       string    `bun:"created_by,notnull" json:"created_by"`
	CreatedAt       time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt       time.Time `bun:"updated_at,notnull" json:"updated_at"`

	Payments []*BillPayment `bun:"rel:has-many,join:id=bill_id" json:"payments,omitempty"`
}

// Outstanding is the amount still owed on the bill.
func (b *Bill) Outstanding() int64 {
	if b.PaidAmount >= b.Total {
		return 0
	}
	return b.Total - b.PaidAmount
}

type BillPayment struct {
	bun.BaseModel `bun:"table:bill_payments"`

	ID         string    `bun:"id,pk" json:"id"`
	BillID     string    `bun:"bill_id,notnull" json:"bill_id"`
	Method     string    `bun:"method,notnull" json:"method"`
	Amount     int64     `bun:"amount,notnull" json:"amount"`
	Reference  string    `bun:"reference,nullzero" json:"reference,omitempty"`
	CustomerID string    `bun:"customer_id,nullzero" json:"customer_id,omitempty"`
	ReceivedBy string    `bun:"received_by,notnull" json:"received_by"`
	CreatedAt  time.Time `bun:"created_at,notnull" json:"created_at"`
}

type GenerateBillRequest struct {
	OrderID         string   `json:"order_id" validate:"required"`
	CustomerID      string   `json:"customer_id"`
	DiscountPercent *float64 `json:"discount_percent" validate:"omitempty,gte=0,lte=100"`
	DiscountAmount  int64    `json:"discount_amount" validate:"gte=0"`
}

type PaymentRequest struct {
	Method     string `json:"method" validate:"required,oneof=cash card upi credit"`
	Amount     int64  `json:"amount" validate:"gt=0"`
	Reference  string `json:"reference" validate:"max=100"`
	CustomerID string `json:"customer_id"`
}

// PaymentResult reports the state after a payment. Duplicate is set when the
// reference matched an earlier payment and nothing new was recorded.
type PaymentResult struct {
	Bill      *Bill        `json:"bill"`
	Payment   *BillPayment `json:"payment"`
	Change    int64        `json:"change"`
	RefundDue int64        `json:"refund_due,omitempty"`
	Duplicate bool         `json:"duplicate"`
}

type BillFilter struct {
	Status string
	From   time.Time
	To     time.Time
	Limit  int
	Offset int
}

// Receipt is the public view of a bill.
type Receipt struct {
	RestaurantName string         `json:"restaurant_name"`
	BillNumber     string         `json:"bill_number"`
	OrderNumber    string         `json:"order_number"`
	OrderType      string         `json:"order_type"`
	Items          []*OrderItem   `json:"items"`
	Subtotal       int64          `json:"subtotal"`
	Discount       int64          `json:"discount"`
	ServiceCharge  int64          `json:"service_charge"`
	Tax            int64          `json:"tax"`
	Total          int64          `json:"total"`
	PaidAmount     int64          `json:"paid_amount"`
	Status         string         `json:"status"`
	Currency       string         `json:"currency"`
	Footer         string         `json:"footer,omitempty"`
	Payments       []*BillPayment `json:"payments"`
	IssuedAt       time.Time      `json:"issued_at"`
}
