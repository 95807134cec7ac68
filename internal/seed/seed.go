// Package seed loads a restaurant's starting data from a YAML file.
package seed

import (
	"context"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"restaurant-pos/internal/admin"
	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/menu"
	"restaurant-pos/internal/models"
	"restaurant-pos/internal/store"
)

type File struct {
	Settings   Settings    `yaml:"settings"`
	Employees  []Employee  `yaml:"employees"`
	Tables     []Table     `yaml:"tables"`
	Inventory  []Inventory `yaml:"inventory"`
	Categories []Category  `yaml:"categories"`
	Customers  []Customer  `yaml:"customers"`
}

type Settings struct {
	RestaurantName     *string  `yaml:"restaurant_name"`
	TaxRate            *float64 `yaml:"tax_rate"`
	ServiceChargeRate  *float64 `yaml:"service_charge_rate"`
	AllowNegativeStock *bool    `yaml:"allow_negative_stock"`
	AllowSharedTables  *bool    `yaml:"allow_shared_tables"`
	ReceiptFooter      *string  `yaml:"receipt_footer"`
	Currency           *string  `yaml:"currency"`
}

type Employee struct {
	Username string `yaml:"username"`
	FullName string `yaml:"full_name"`
	Role     string `yaml:"role"`
	PIN      string `yaml:"pin"`
}

type Table struct {
	Name  string `yaml:"name"`
	Seats int    `yaml:"seats"`
}

type Inventory struct {
	Name         string  `yaml:"name"`
	Unit         string  `yaml:"unit"`
	Quantity     float64 `yaml:"quantity"`
	ReorderLevel float64 `yaml:"reorder_level"`
}

type Category struct {
	Name    string `yaml:"name"`
	Station string `yaml:"station"`
	Items   []Item `yaml:"items"`
}

// Item prices are in minor units.
type Item struct {
	Name        string       `yaml:"name"`
	Description string       `yaml:"description"`
	Price       int64        `yaml:"price"`
	Station     string       `yaml:"station"`
	Ingredients []Ingredient `yaml:"ingredients"`
}

// Ingredient refers to an inventory item by name.
type Ingredient struct {
	Inventory string  `yaml:"inventory"`
	Quantity  float64 `yaml:"quantity"`
}

type Customer struct {
	Name        string `yaml:"name"`
	Phone       string `yaml:"phone"`
	Email       string `yaml:"email"`
	CreditLimit int64  `yaml:"credit_limit"`
}

// Parse decodes a seed file, rejecting unknown keys.
func Parse(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	return &f, nil
}

// Result counts the rows created by Apply.
type Result struct {
	Employees  int
	Tables     int
	Inventory  int
	Categories int
	Items      int
	Customers  int
	Skipped    int
}

type Seeder struct {
	Admin  *admin.Service
	Menu   *menu.Service
	Logger *logger.Logger
}

func NewSeeder(adminSvc *admin.Service, menuSvc *menu.Service, log *logger.Logger) *Seeder {
	return &Seeder{Admin: adminSvc, Menu: menuSvc, Logger: log}
}

func key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Apply creates everything in f that does not exist yet, matching existing rows
// by name (username for employees), so it can be re-run safely.
func (s *Seeder) Apply(ctx context.Context, f *File) (*Result, error) {
	res := &Result{}

	if err := s.applySettings(ctx, f.Settings); err != nil {
		return nil, err
	}

	users, err := s.Admin.ListEmployees(ctx)
	if err != nil {
		return nil, err
	}
	usernames := map[string]bool{}
	for _, u := range users {
		usernames[key(u.Username)] = true
	}
	for _, e := range f.Employees {
		if usernames[key(e.Username)] {
			res.Skipped++
			continue
		}
		if _, err := s.Admin.CreateEmployee(ctx, models.EmployeeRequest(e)); err != nil {
			return nil, fmt.Errorf("employee %s: %w", e.Username, err)
		}
		usernames[key(e.Username)] = true
		res.Employees++
	}

	tables, err := s.Admin.ListTables(ctx, true, "")
	if err != nil {
		return nil, err
	}
	tableNames := map[string]bool{}
	for _, t := range tables {
		tableNames[key(t.Name)] = true
	}
	for _, t := range f.Tables {
		if tableNames[key(t.Name)] {
			res.Skipped++
			continue
		}
		if _, err := s.Admin.CreateTable(ctx, models.TableRequest(t)); err != nil {
			return nil, fmt.Errorf("table %s: %w", t.Name, err)
		}
		tableNames[key(t.Name)] = true
		res.Tables++
	}

	stock, err := s.Admin.ListInventory(ctx)
	if err != nil {
		return nil, err
	}
	inventoryIDs := map[string]string{}
	for _, it := range stock {
		inventoryIDs[key(it.Name)] = it.ID
	}
	for _, it := range f.Inventory {
		if _, ok := inventoryIDs[key(it.Name)]; ok {
			res.Skipped++
			continue
		}
		created, err := s.Admin.CreateInventoryItem(ctx, models.InventoryItemRequest(it))
		if err != nil {
			return nil, fmt.Errorf("inventory %s: %w", it.Name, err)
		}
		inventoryIDs[key(it.Name)] = created.ID
		res.Inventory++
	}

	if err := s.applyMenu(ctx, f.Categories, inventoryIDs, res); err != nil {
		return nil, err
	}

	customers, err := s.Admin.ListCustomers(ctx, "", 500, 0)
	if err != nil {
		return nil, err
	}
	customerNames := map[string]bool{}
	for _, c := range customers {
		customerNames[key(c.Name)] = true
	}
	for _, c := range f.Customers {
		if customerNames[key(c.Name)] {
			res.Skipped++
			continue
		}
		if _, err := s.Admin.CreateCustomer(ctx, models.CustomerRequest(c)); err != nil {
			return nil, fmt.Errorf("customer %s: %w", c.Name, err)
		}
		customerNames[key(c.Name)] = true
		res.Customers++
	}

	s.Logger.Info("SEED", fmt.Sprintf("Seeded %d employees, %d tables, %d inventory items, %d categories, %d menu items, %d customers (%d already present)",
		res.Employees, res.Tables, res.Inventory, res.Categories, res.Items, res.Customers, res.Skipped))
	return res, nil
}

func (s *Seeder) applySettings(ctx context.Context, in Settings) error {
	req := models.SettingsUpdateRequest{
		RestaurantName:     in.RestaurantName,
		TaxRate:            in.TaxRate,
		ServiceChargeRate:  in.ServiceChargeRate,
		AllowNegativeStock: in.AllowNegativeStock,
		AllowSharedTables:  in.AllowSharedTables,
		ReceiptFooter:      in.ReceiptFooter,
		Currency:           in.Currency,
	}
	if req == (models.SettingsUpdateRequest{}) {
		return nil
	}
	if _, err := s.Admin.UpdateSettings(ctx, req); err != nil {
		return fmt.Errorf("settings: %w", err)
	}
	return nil
}

func (s *Seeder) applyMenu(ctx context.Context, categories []Category, inventoryIDs map[string]string, res *Result) error {
	existing, err := s.Menu.ListCategories(ctx, true)
	if err != nil {
		return err
	}
	categoryIDs := map[string]string{}
	for _, c := range existing {
		categoryIDs[key(c.Name)] = c.ID
	}

	items, err := s.Menu.ListItems(ctx, store.MenuFilter{})
	if err != nil {
		return err
	}
	itemNames := map[string]bool{}
	for _, it := range items {
		itemNames[key(it.Name)] = true
	}

	for _, c := range categories {
		catID, ok := categoryIDs[key(c.Name)]
		if !ok {
			created, err := s.Menu.CreateCategory(ctx, models.MenuCategoryRequest{Name: c.Name, Station: c.Station})
			if err != nil {
				return fmt.Errorf("category %s: %w", c.Name, err)
			}
			catID = created.ID
			categoryIDs[key(c.Name)] = catID
			res.Categories++
		}

		for _, it := range c.Items {
			if itemNames[key(it.Name)] {
				res.Skipped++
				continue
			}
			created, err := s.Menu.CreateItem(ctx, models.MenuItemRequest{
				CategoryID:  catID,
				Name:        it.Name,
				Description: it.Description,
				Price:       it.Price,
				Station:     it.Station,
			})
			if err != nil {
				return fmt.Errorf("menu item %s: %w", it.Name, err)
			}
			itemNames[key(it.Name)] = true
			res.Items++

			if len(it.Ingredients) == 0 {
				continue
			}
			reqs := make([]models.IngredientRequest, 0, len(it.Ingredients))
			for _, ing := range it.Ingredients {
				id, ok := inventoryIDs[key(ing.Inventory)]
				if !ok {
					return fmt.Errorf("menu item %s: unknown inventory item %q", it.Name, ing.Inventory)
				}
				reqs = append(reqs, models.IngredientRequest{InventoryItemID: id, Quantity: ing.Quantity})
			}
			if _, err := s.Menu.ReplaceIngredients(ctx, created.ID, reqs); err != nil {
				return fmt.Errorf("menu item %s ingredients: %w", it.Name, err)
			}
		}
	}
	return nil
}
