package admin

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"restaurant-pos/internal/lock"
	"restaurant-pos/internal/models"
	"restaurant-pos/internal/status"
	"restaurant-pos/internal/store"
	"restaurant-pos/internal/utils"
)

// ---------------- TABLES ----------------

func (s *Service) ListTables(ctx context.Context, includeInactive bool, tableStatus string) ([]*models.DiningTable, error) {
	if tableStatus != "" && !status.Table.Known(tableStatus) {
		return nil, utils.Validation("unknown table status %q", tableStatus)
	}
	return s.Store.ListTables(ctx, includeInactive, tableStatus)
}

func (s *Service) GetTable(ctx context.Context, id string) (*models.DiningTable, error) {
	t, err := s.Store.GetTable(ctx, id)
	if err != nil {
		return nil, notFound(err, "table", id)
	}
	if !t.IsActive {
		return nil, utils.NotFound("table %s not found", id)
	}
	return t, nil
}

func (s *Service) CreateTable(ctx context.Context, req models.TableRequest) (*models.DiningTable, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	now := utils.Now()
	t := &models.DiningTable{
		ID:        utils.NewID(),
		Name:      req.Name,
		Seats:     req.Seats,
		Status:    models.TableStatusAvailable,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Store.CreateTable(ctx, t); err != nil {
		return nil, err
	}
	s.Logger.Info("TABLE", fmt.Sprintf("Created table %s (%d seats)", t.Name, t.Seats))
	return t, nil
}

func (s *Service) UpdateTable(ctx context.Context, id string, req models.TableRequest) (*models.DiningTable, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	t, err := s.GetTable(ctx, id)
	if err != nil {
		return nil, err
	}
	t.Name, t.Seats = req.Name, req.Seats
	n, err := s.Store.UpdateTable(ctx, t)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, utils.NotFound("table %s not found", id)
	}
	return t, nil
}

// SetTableStatus moves a table through its transition table. A table with
// open orders cannot be freed by hand.
func (s *Service) SetTableStatus(ctx context.Context, id, to string) (*models.DiningTable, error) {
	err := lock.WithLock(ctx, s.Locker, lock.TableKey(id), lock.DefaultWait, func() error {
		return s.Store.RunInTx(ctx, func(ctx context.Context, tx *store.DB) error {
			t, err := tx.GetTable(ctx, id)
			if err != nil {
				return notFound(err, "table", id)
			}
			if !t.IsActive {
				return utils.NotFound("table %s not found", id)
			}
			if err := status.Table.Check(t.Status, to); err != nil {
				return err
			}
			if t.Status == models.TableStatusOccupied {
				open, err := tx.CountOpenOrdersForTable(ctx, t.ID, "")
				if err != nil {
					return err
				}
				if open > 0 {
					return utils.Conflict("table %s still has %d open order(s)", t.Name, open)
				}
			}
			n, err := tx.TransitionTable(ctx, t.ID, t.Status, to)
			if err != nil {
				return err
			}
			if n == 0 {
				return utils.Conflict("table %s changed concurrently", t.Name)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info("TABLE", fmt.Sprintf("Table %s is now %s", id, to))
	return s.GetTable(ctx, id)
}

// DeleteTable soft deletes a table that is not occupied. Zero changes with a
// nil error means there was no such active table.
func (s *Service) DeleteTable(ctx context.Context, id string) (int64, error) {
	t, err := s.Store.GetTable(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if !t.IsActive {
		return 0, nil
	}
	if t.Status == models.TableStatusOccupied {
		return 0, utils.Conflict("table %s is occupied", t.Name)
	}
	n, err := s.Store.SoftDeleteTable(ctx, id)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, utils.Conflict("table %s changed concurrently", t.Name)
	}
	return n, nil
}

// TableQR renders the signed guest ordering link of a table as a PNG.
func (s *Service) TableQR(ctx context.Context, id string) ([]byte, error) {
	t, err := s.GetTable(ctx, id)
	if err != nil {
		return nil, err
	}
	png, err := s.QR.TableQR(t.ID)
	if err != nil {
		return nil, utils.Internal("render table qr", err)
	}
	return png, nil
}
