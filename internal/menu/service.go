// Package menu manages categories, menu items, recipes and item images.
package menu

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"

	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/media"
	"restaurant-pos/internal/models"
	"restaurant-pos/internal/store"
	"restaurant-pos/internal/utils"
)

type Service struct {
	Store  *store.DB
	Media  media.Storage
	Logger *logger.Logger
}

// NewService wires the menu service. storage may be nil when images are disabled.
func NewService(db *store.DB, storage media.Storage, log *logger.Logger) *Service {
	return &Service{Store: db, Media: storage, Logger: log}
}

// Menu returns the POS menu: active categories with their available items.
func (s *Service) Menu(ctx context.Context) ([]*models.MenuSection, error) {
	categories, err := s.Store.ListCategories(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	items, err := s.Store.ListMenuItems(ctx, store.MenuFilter{AvailableOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to list menu items: %w", err)
	}
	s.attachImages(ctx, items...)

	byCategory := make(map[string][]*models.MenuItem, len(categories))
	for _, item := range items {
		byCategory[item.CategoryID] = append(byCategory[item.CategoryID], item)
	}

	sections := make([]*models.MenuSection, 0, len(categories))
	for _, c := range categories {
		if len(byCategory[c.ID]) == 0 {
			continue
		}
		sections = append(sections, &models.MenuSection{Category: c, Items: byCategory[c.ID]})
	}
	return sections, nil
}

// ---------------- CATEGORIES ----------------

func (s *Service) ListCategories(ctx context.Context, includeInactive bool) ([]*models.MenuCategory, error) {
	return s.Store.ListCategories(ctx, includeInactive)
}

func (s *Service) CreateCategory(ctx context.Context, req models.MenuCategoryRequest) (*models.MenuCategory, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	c := &models.MenuCategory{
		ID:        utils.NewID(),
		CreatedAt: utils.Now(),
		IsActive:  true,
	}
	applyCategory(c, req)
	if err := s.Store.CreateCategory(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) UpdateCategory(ctx context.Context, id string, req models.MenuCategoryRequest) (*models.MenuCategory, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	c, err := s.Store.GetCategory(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, utils.NotFound("category %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	applyCategory(c, req)
	if _, err := s.Store.UpdateCategory(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteCategory fails with a validation error while items still reference it.
func (s *Service) DeleteCategory(ctx context.Context, id string) (int64, error) {
	return s.Store.DeleteCategory(ctx, id)
}

func applyCategory(c *models.MenuCategory, req models.MenuCategoryRequest) {
	c.Name = strings.TrimSpace(req.Name)
	c.Station = strings.ToLower(strings.TrimSpace(req.Station))
	if c.Station == "" {
		c.Station = models.DefaultStation
	}
	c.SortOrder = req.SortOrder
	if req.IsActive != nil {
		c.IsActive = *req.IsActive
	}
}

// ---------------- ITEMS ----------------

func (s *Service) ListItems(ctx context.Context, f store.MenuFilter) ([]*models.MenuItem, error) {
	items, err := s.Store.ListMenuItems(ctx, f)
	if err != nil {
		return nil, err
	}
	s.attachImages(ctx, items...)
	return items, nil
}

func (s *Service) GetItem(ctx context.Context, id string) (*models.MenuItem, error) {
	item, err := s.Store.GetMenuItem(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, utils.NotFound("menu item %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	s.attachImages(ctx, item)
	return item, nil
}

func (s *Service) CreateItem(ctx context.Context, req models.MenuItemRequest) (*models.MenuItem, error) {
	if err := s.validateItem(ctx, req); err != nil {
		return nil, err
	}
	now := utils.Now()
	item := &models.MenuItem{
		ID:          utils.NewID(),
		IsAvailable: true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	applyItem(item, req)
	if err := s.Store.CreateMenuItem(ctx, item); err != nil {
		return nil, err
	}
	s.Logger.Info("MENU", fmt.Sprintf("created menu item %s (%s)", item.Name, utils.FormatMoney(item.Price)))
	return s.GetItem(ctx, item.ID)
}

func (s *Service) UpdateItem(ctx context.Context, id string, req models.MenuItemRequest) (*models.MenuItem, error) {
	if err := s.validateItem(ctx, req); err != nil {
		return nil, err
	}
	item, err := s.Store.GetMenuItem(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, utils.NotFound("menu item %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	applyItem(item, req)
	if _, err := s.Store.UpdateMenuItem(ctx, item); err != nil {
		return nil, err
	}
	return s.GetItem(ctx, id)
}

func (s *Service) SetAvailability(ctx context.Context, id string, available bool) (*models.MenuItem, error) {
	n, err := s.Store.SetMenuItemAvailability(ctx, id, available)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, utils.NotFound("menu item %s not found", id)
	}
	return s.GetItem(ctx, id)
}

// DeleteItem removes the item and its stored image. Items already ordered stay
// referenced by order history and cannot be deleted; mark them unavailable instead.
func (s *Service) DeleteItem(ctx context.Context, id string) (int64, error) {
	item, err := s.Store.GetMenuItem(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	n, err := s.Store.DeleteMenuItem(ctx, id)
	if err != nil {
		return 0, err
	}
	if item.ImageKey != "" && s.Media != nil {
		if err := s.Media.Delete(ctx, item.ImageKey); err != nil {
			s.Logger.Warn("MENU", fmt.Sprintf("failed to delete image %s: %v", item.ImageKey, err))
		}
	}
	return n, nil
}

func (s *Service) validateItem(ctx context.Context, req models.MenuItemRequest) error {
	if err := utils.ValidateStruct(req); err != nil {
		return err
	}
	if _, err := s.Store.GetCategory(ctx, req.CategoryID); errors.Is(err, sql.ErrNoRows) {
		return utils.Validation("category %s does not exist", req.CategoryID)
	} else if err != nil {
		return err
	}
	return nil
}

func applyItem(item *models.MenuItem, req models.MenuItemRequest) {
	item.CategoryID = req.CategoryID
	item.Name = strings.TrimSpace(req.Name)
	item.Description = req.Description
	item.Price = req.Price
	item.Station = strings.ToLower(strings.TrimSpace(req.Station))
	if req.IsAvailable != nil {
		item.IsAvailable = *req.IsAvailable
	}
}

// ---------------- RECIPES ----------------

// ReplaceIngredients swaps the recipe of an item in one transaction.
func (s *Service) ReplaceIngredients(ctx context.Context, id string, reqs []models.IngredientRequest) ([]*models.Ingredient, error) {
	seen := make(map[string]bool, len(reqs))
	lines := make([]*models.Ingredient, 0, len(reqs))
	for i, req := range reqs {
		if err := utils.ValidateStruct(req); err != nil {
			return nil, utils.Validation("ingredient %d: %s", i, utils.AsAppError(err).Message)
		}
		if seen[req.InventoryItemID] {
			return nil, utils.Validation("inventory item %s listed twice", req.InventoryItemID)
		}
		seen[req.InventoryItemID] = true
		lines = append(lines, &models.Ingredient{
			ID:              utils.NewID(),
			MenuItemID:      id,
			InventoryItemID: req.InventoryItemID,
			Quantity:        req.Quantity,
		})
	}

	err := s.Store.RunInTx(ctx, func(ctx context.Context, tx *store.DB) error {
		if _, err := tx.GetMenuItem(ctx, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return utils.NotFound("menu item %s not found", id)
			}
			return err
		}
		return tx.ReplaceIngredients(ctx, id, lines)
	})
	if err != nil {
		return nil, err
	}
	return lines, nil
}

// ---------------- IMAGES ----------------

// UploadImage stores a new image for the item and removes the previous one.
func (s *Service) UploadImage(ctx context.Context, id, filename, contentType string, body io.Reader) (*models.MenuItem, error) {
	if s.Media == nil {
		return nil, utils.Validation("image storage is not configured")
	}
	if !media.AllowedContentType(contentType) {
		return nil, utils.Validation("unsupported image type %q", contentType)
	}

	item, err := s.Store.GetMenuItem(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, utils.NotFound("menu item %s not found", id)
	}
	if err != nil {
		return nil, err
	}

	key, err := s.Media.Upload(ctx, "menu/"+id, filename, contentType, body)
	if err != nil {
		return nil, utils.Internal("failed to store image", err)
	}
	if _, err := s.Store.SetMenuItemImage(ctx, id, key); err != nil {
		_ = s.Media.Delete(ctx, key)
		return nil, err
	}
	if item.ImageKey != "" {
		if err := s.Media.Delete(ctx, item.ImageKey); err != nil {
			s.Logger.Warn("MENU", fmt.Sprintf("failed to delete old image %s: %v", item.ImageKey, err))
		}
	}
	return s.GetItem(ctx, id)
}

func (s *Service) attachImages(ctx context.Context, items ...*models.MenuItem) {
	if s.Media == nil {
		return
	}
	for _, item := range items {
		if item.ImageKey == "" {
			continue
		}
		url, err := s.Media.PresignedURL(ctx, item.ImageKey)
		if err != nil {
			s.Logger.Warn("MENU", fmt.Sprintf("failed to presign %s: %v", item.ImageKey, err))
			continue
		}
		item.ImageURL = url
	}
}
