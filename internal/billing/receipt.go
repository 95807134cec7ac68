package billing

import (
	"context"
	"database/sql"
	"errors"

	"restaurant-pos/internal/models"
	"restaurant-pos/internal/utils"
)

// ReceiptQR renders the signed public receipt link of a bill as a PNG.
func (s *Service) ReceiptQR(ctx context.Context, billID string) ([]byte, error) {
	b, err := s.Get(ctx, billID)
	if err != nil {
		return nil, err
	}
	png, err := s.Receipts.ReceiptQR(b.BillNumber)
	if err != nil {
		return nil, utils.Internal("render receipt qr", err)
	}
	return png, nil
}

// Receipt returns the public view of a bill when sig matches its number.
func (s *Service) Receipt(ctx context.Context, billNumber, sig string) (*models.Receipt, error) {
	if !s.Receipts.Verify(billNumber, sig) {
		return nil, utils.Forbidden("invalid receipt signature")
	}

	b, err := s.Store.GetBillByNumber(ctx, billNumber)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, utils.NotFound("receipt %s not found", billNumber)
	}
	if err != nil {
		return nil, err
	}
	o, err := s.Store.GetOrder(ctx, b.OrderID)
	if err != nil {
		return nil, err
	}
	settings, err := s.Store.LoadSettings(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]*models.OrderItem, 0, len(o.Items))
	for _, item := range o.Items {
		if item.Status == models.OrderItemActive {
			items = append(items, item)
		}
	}
	payments := b.Payments
	if payments == nil {
		payments = []*models.BillPayment{}
	}

	return &models.Receipt{
		RestaurantName: settings.RestaurantName,
		BillNumber:     b.BillNumber,
		OrderNumber:    o.OrderNumber,
		OrderType:      o.OrderType,
		Items:          items,
		Subtotal:       b.Subtotal,
		Discount:       b.Discount,
		ServiceCharge:  b.ServiceCharge,
		Tax:            b.Tax,
		Total:          b.Total,
		PaidAmount:     b.PaidAmount,
		Status:         b.Status,
		Currency:       settings.Currency,
		Footer:         settings.ReceiptFooter,
		Payments:       payments,
		IssuedAt:       b.CreatedAt,
	}, nil
}
