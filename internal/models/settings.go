package models

import (
	"time"

	"github.com/uptrace/bun"
)

type SystemSetting struct {
	bun.BaseModel `bun:"table:system_settings"`

	Key       string    `bun:"setting_key,pk" json:"key"`
	Value     string    `bun:"setting_value,notnull" json:"value"`
	UpdatedAt time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

// Sequence backs the per-day document counters (orders, KOTs, bills).
type Sequence struct {
	bun.BaseModel `bun:"table:sequences"`

	Name  string `bun:"name,pk"`
	Value int64  `bun:"current_value,notnull"`
}

// Known setting keys.
const (
	SettingRestaurantName     = "restaurant_name"
	SettingTaxRate            = "tax_rate"
	SettingServiceChargeRate  = "service_charge_rate"
	SettingAllowNegativeStock = "allow_negative_stock"
	SettingAllowSharedTables  = "allow_shared_tables"
	SettingReceiptFooter      = "receipt_footer"
	SettingCurrency           = "currency"
)

// Settings is the typed view of system_settings.
type Settings struct {
	RestaurantName     string  `json:"restaurant_name"`
	TaxRate            float64 `json:"tax_rate"`
	ServiceChargeRate  float64 `json:"service_charge_rate"`
	AllowNegativeStock bool    `json:"allow_negative_stock"`
	AllowSharedTables  bool    `json:"allow_shared_tables"`
	ReceiptFooter      string  `json:"receipt_footer"`
	Currency           string  `json:"currency"`
}

// DefaultSettings applies when a key has never been written.
func DefaultSettings() Settings {
	return Settings{
		RestaurantName:    "Restaurant",
		TaxRate:           0,
		ServiceChargeRate: 0,
		Currency:          "usd",
	}
}

// SettingsUpdateRequest changes only the fields that are present.
type SettingsUpdateRequest struct {
	RestaurantName     *string  `json:"restaurant_name" validate:"omitempty,min=1,max=150"`
	TaxRate            *float64 `json:"tax_rate" validate:"omitempty,gte=0,lte=100"`
	ServiceChargeRate  *float64 `json:"service_charge_rate" validate:"omitempty,gte=0,lte=100"`
	AllowNegativeStock *bool    `json:"allow_negative_stock"`
	AllowSharedTables  *bool    `json:"allow_shared_tables"`
	ReceiptFooter      *string  `json:"receipt_footer" validate:"omitempty,max=500"`
	Currency           *string  `json:"currency" validate:"omitempty,len=3,alpha"`
}
