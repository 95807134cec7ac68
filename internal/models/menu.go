package models

import (
	"time"

	"github.com/uptrace/bun"
)

// DefaultStation receives items whose category and item carry no station.
const DefaultStation = "kitchen"

type MenuCategory struct {
	bun.BaseModel `bun:"table:menu_categories"`

	ID        string    `bun:"id,pk" json:"id"`
	Name      string    `bun:"name,notnull" json:"name"`
	Station   string    `bun:"station,notnull" json:"station"`
	SortOrder int       `bun:"sort_order,notnull" json:"sort_order"`
	IsActive  bool      `bun:"is_active,notnull" json:"is_active"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
}

type MenuItem struct {
	bun.BaseModel `bun:"table:menu_items,alias:menu_item"`

	ID          string    `bun:"id,pk" json:"id"`
	CategoryID  string    `bun:"category_id,notnull" json:"category_id"`
	Name        string    `bun:"name,notnull" json:"name"`
	Description string    `bun:"description" json:"description"`
	Price       int64     `bun:"price,notnull" json:"price"`
	Station     string    `bun:"station" json:"station"`
	IsAvailable bool      `bun:"is_available,notnull" json:"is_available"`
	ImageKey    string    `bun:"image_key,nullzero" json:"image_key,omitempty"`
	CreatedAt   time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt   time.Time `bun:"updated_at,notnull" json:"updated_at"`

	ImageURL    string        `bun:"-" json:"image_url,omitempty"`
	Category    *MenuCategory `bun:"rel:belongs-to,join:category_id=id" json:"category,omitempty"`
	Ingredients []*Ingredient `bun:"rel:has-many,join:id=menu_item_id" json:"ingredients,omitempty"`
}

// ResolvedStation picks the item's own station, then its category's, then the default.
func (m *MenuItem) ResolvedStation() string {
	if m.Station != "" {
		return m.Station
	}
	if m.Category != nil && m.Category.Station != "" {
		return m.Category.Station
	}
	return DefaultStation
}

// Ingredient is one recipe line: how much of an inventory item one unit of a menu item consumes.
type Ingredient struct {
	bun.BaseModel `bun:"table:ingredients"`

	ID              string  `bun:"id,pk" json:"id"`
	MenuItemID      string  `bun:"menu_item_id,notnull" json:"menu_item_id"`
	InventoryItemID string  `bun:"inventory_item_id,notnull" json:"inventory_item_id"`
	Quantity        float64 `bun:"quantity,notnull" json:"quantity"`
}

type MenuCategoryRequest struct {
	Name      string `json:"name" validate:"required,max=100"`
	Station   string `json:"station" validate:"omitempty,max=50"`
	SortOrder int    `json:"sort_order"`
	IsActive  *bool  `json:"is_active"`
}

type MenuItemRequest struct {
	CategoryID  string `json:"category_id" validate:"required"`
	Name        string `json:"name" validate:"required,max=150"`
	Description string `json:"description" validate:"max=1000"`
	Price       int64  `json:"price" validate:"gt=0"`
	Station     string `json:"station" validate:"omitempty,max=50"`
	IsAvailable *bool  `json:"is_available"`
}

type IngredientRequest struct {
	InventoryItemID string  `json:"inventory_item_id" validate:"required"`
	Quantity        float64 `json:"quantity" validate:"gt=0"`
}

// MenuSection is a category with its available items, as shown on the POS.
type MenuSection struct {
	Category *MenuCategory `json:"category"`
	Items    []*MenuItem   `json:"items"`
}
