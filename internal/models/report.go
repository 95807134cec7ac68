package models

import "time"

type SalesSummary struct {
	From          time.Time `json:"from"`
	To            time.Time `json:"to"`
	BillCount     int64     `json:"bill_count"`
	Gross         int64     `json:"gross"`
	Discounts     int64     `json:"discounts"`
	ServiceCharge int64     `json:"service_charge"`
	Tax           int64     `json:"tax"`
	Net           int64     `json:"net"`
	AverageTicket int64     `json:"average_ticket"`
}

type ItemSales struct {
	MenuItemID string `bun:"menu_item_id" json:"menu_item_id"`
	Name       string `bun:"name" json:"name"`
	Quantity   int64  `bun:"quantity" json:"quantity"`
	Revenue    int64  `bun:"revenue" json:"revenue"`
}

type PaymentMethodTotal struct {
	Method string `bun:"method" json:"method"`
	Count  int64  `bun:"payment_count" json:"count"`
	Amount int64  `bun:"amount" json:"amount"`
}

type DailySales struct {
	Day       string `bun:"day" json:"day"`
	BillCount int64  `bun:"bill_count" json:"bill_count"`
	Total     int64  `bun:"total" json:"total"`
}

// Snapshot is the live floor state.
type Snapshot struct {
	OpenOrders     int64            `json:"open_orders"`
	OrdersByStatus map[string]int64 `json:"orders_by_status"`
	OccupiedTables int64            `json:"occupied_tables"`
	ActiveTables   int64            `json:"active_tables"`
	PendingKOTs    int64            `json:"pending_kots"`
	UnpaidBills    int64            `json:"unpaid_bills"`
	OutstandingDue int64            `json:"outstanding_due"`
	LowStockItems  int64            `json:"low_stock_items"`
	GeneratedAt    time.Time        `json:"generated_at"`
}
