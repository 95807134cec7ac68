// Package analytics reports sales over date ranges and the live floor state.
package analytics

import (
	"context"
	"fmt"
	"time"

	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/models"
	"restaurant-pos/internal/store"
	"restaurant-pos/internal/utils"
)

// MaxRangeDays bounds the date ranges a report may cover.
const MaxRangeDays = 366

type Service struct {
	Store  *store.DB
	Logger *logger.Logger
}

func NewService(db *store.DB, log *logger.Logger) *Service {
	return &Service{Store: db, Logger: log}
}

func checkRange(from, to time.Time) error {
	if !to.After(from) {
		return utils.Validation("empty date range")
	}
	if to.Sub(from) > MaxRangeDays*24*time.Hour {
		return utils.Validation("date range is limited to %d days", MaxRangeDays)
	}
	return nil
}

// Sales summarises paid bills created in [from, to).
func (s *Service) Sales(ctx context.Context, from, to time.Time) (*models.SalesSummary, error) {
	if err := checkRange(from, to); err != nil {
		return nil, err
	}
	summary, err := s.Store.SalesTotals(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to total sales: %w", err)
	}
	return summary, nil
}

// TopItems ranks items by quantity sold on paid bills.
func (s *Service) TopItems(ctx context.Context, from, to time.Time, limit int) ([]models.ItemSales, error) {
	if err := checkRange(from, to); err != nil {
		return nil, err
	}
	if limit > 100 {
		limit = 100
	}
	return s.Store.TopItems(ctx, from, to, limit)
}

func (s *Service) PaymentsByMethod(ctx context.Context, from, to time.Time) ([]models.PaymentMethodTotal, error) {
	if err := checkRange(from, to); err != nil {
		return nil, err
	}
	return s.Store.PaymentsByMethod(ctx, from, to)
}

// Daily lists one row per day that had paid bills.
func (s *Service) Daily(ctx context.Context, from, to time.Time) ([]models.DailySales, error) {
	if err := checkRange(from, to); err != nil {
		return nil, err
	}
	return s.Store.DailySales(ctx, from, to)
}

func (s *Service) Snapshot(ctx context.Context) (*models.Snapshot, error) {
	snap, err := s.Store.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build snapshot: %w", err)
	}
	return snap, nil
}

// CloseDay totals the UTC day containing day and writes it to the log.
func (s *Service) CloseDay(ctx context.Context, day time.Time) (*models.SalesSummary, error) {
	from := utils.StartOfDay(day)
	to := from.AddDate(0, 0, 1)

	summary, err := s.Sales(ctx, from, to)
	if err != nil {
		return nil, err
	}
	orders, err := s.Store.OrdersCreatedBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	s.Logger.Info("REPORT", fmt.Sprintf("Day %s closed: %d orders, %d paid bills, net %s, tax %s, avg ticket %s",
		utils.FormatDate(from), orders, summary.BillCount,
		utils.FormatMoney(summary.Net), utils.FormatMoney(summary.Tax), utils.FormatMoney(summary.AverageTicket)))
	return summary, nil
}
