package admin

import (
	"context"
	"fmt"

	"restaurant-pos/internal/models"
	"restaurant-pos/internal/store"
	"restaurant-pos/internal/utils"
)

// ---------------- INVENTORY ----------------

func (s *Service) ListInventory(ctx context.Context) ([]*models.InventoryItem, error) {
	return s.Store.ListInventory(ctx)
}

func (s *Service) LowStock(ctx context.Context) ([]*models.InventoryItem, error) {
	return s.Store.LowStock(ctx)
}

func (s *Service) GetInventoryItem(ctx context.Context, id string) (*models.InventoryItem, error) {
	item, err := s.Store.GetInventoryItem(ctx, id)
	if err != nil {
		return nil, notFound(err, "inventory item", id)
	}
	return item, nil
}

// CreateInventoryItem logs any opening quantity as a restock movement.
func (s *Service) CreateInventoryItem(ctx context.Context, req models.InventoryItemRequest) (*models.InventoryItem, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	now := utils.Now()
	item := &models.InventoryItem{
		ID:           utils.NewID(),
		Name:         req.Name,
		Unit:         req.Unit,
		ReorderLevel: req.ReorderLevel,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err := s.Store.RunInTx(ctx, func(ctx context.Context, tx *store.DB) error {
		if err := tx.CreateInventoryItem(ctx, item); err != nil {
			return err
		}
		if req.Quantity > 0 {
			if _, err := tx.AdjustStock(ctx, item.ID, req.Quantity, models.StockReasonRestock, "", false); err != nil {
				return err
			}
			item.Quantity = req.Quantity
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// UpdateInventoryItem changes the description only; quantities move through AdjustStock.
func (s *Service) UpdateInventoryItem(ctx context.Context, id string, req models.InventoryItemRequest) (*models.InventoryItem, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	item, err := s.GetInventoryItem(ctx, id)
	if err != nil {
		return nil, err
	}
	item.Name, item.Unit, item.ReorderLevel = req.Name, req.Unit, req.ReorderLevel
	if _, err := s.Store.UpdateInventoryItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *Service) DeleteInventoryItem(ctx context.Context, id string) (int64, error) {
	return s.Store.DeleteInventoryItem(ctx, id)
}

// AdjustStock applies a manual change. Manual adjustments never take stock below zero.
func (s *Service) AdjustStock(ctx context.Context, id string, req models.StockAdjustRequest) (*models.InventoryItem, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	item, err := s.GetInventoryItem(ctx, id)
	if err != nil {
		return nil, err
	}
	n, err := s.Store.AdjustStock(ctx, id, req.Delta, req.Reason, "", false)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, utils.Conflict("%s has only %g %s in stock", item.Name, item.Quantity, item.Unit)
	}

	item, err = s.GetInventoryItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.Quantity <= item.ReorderLevel {
		s.Logger.Warn("INVENTORY", fmt.Sprintf("%s is low: %g %s left (reorder at %g)", item.Name, item.Quantity, item.Unit, item.ReorderLevel))
	}
	return item, nil
}

func (s *Service) StockMovements(ctx context.Context, id string, limit int) ([]*models.StockMovement, error) {
	if _, err := s.GetInventoryItem(ctx, id); err != nil {
		return nil, err
	}
	return s.Store.StockMovements(ctx, id, limit)
}
