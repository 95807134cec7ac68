// Package billing turns orders into bills, takes payments against them and
// settles the order and table once a bill is paid.
package billing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"restaurant-pos/internal/kafka"
	"restaurant-pos/internal/lock"
	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/metrics"
	"restaurant-pos/internal/models"
	"restaurant-pos/internal/order"
	"restaurant-pos/internal/qr"
	"restaurant-pos/internal/status"
	"restaurant-pos/internal/store"
	"restaurant-pos/internal/utils"
)

type Service struct {
	Store    *store.DB
	Locker   lock.Locker
	Events   *kafka.Events
	Receipts *qr.QRGenerator
	Logger   *logger.Logger

	// Card payments; both stay empty when Stripe is not configured.
	Gateway       PaymentGateway
	WebhookSecret string
	Currency      string
}

func NewService(db *store.DB, locker lock.Locker, events *kafka.Events, receipts *qr.QRGenerator, log *logger.Logger) *Service {
	if locker == nil {
		locker = lock.NewMemory()
	}
	return &Service{Store: db, Locker: locker, Events: events, Receipts: receipts, Logger: log}
}

// ---------------- BILLS ----------------

func (s *Service) List(ctx context.Context, f models.BillFilter) ([]*models.Bill, error) {
	if f.Status != "" && !status.Bill.Known(f.Status) {
		return nil, utils.Validation("unknown bill status %q", f.Status)
	}
	return s.Store.ListBills(ctx, f)
}

func (s *Service) Get(ctx context.Context, id string) (*models.Bill, error) {
	b, err := s.Store.GetBill(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, utils.NotFound("bill %s not found", id)
	}
	return b, err
}

// GenerateBill prices an open order. An order carries at most one non-void bill.
func (s *Service) GenerateBill(ctx context.Context, userID string, req models.GenerateBillRequest) (*models.Bill, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	var bill *models.Bill
	err := s.Store.RunInTx(ctx, func(ctx context.Context, tx *store.DB) error {
		o, err := tx.GetOrderHeader(ctx, req.OrderID)
		if errors.Is(err, sql.ErrNoRows) {
			return utils.NotFound("order %s not found", req.OrderID)
		}
		if err != nil {
			return err
		}
		if !o.Open() {
			return utils.Conflict("order %s is %s", o.OrderNumber, o.Status)
		}
		if existing, err := tx.ActiveBillForOrder(ctx, o.ID); err == nil {
			return utils.Conflict("order %s already has bill %s", o.OrderNumber, existing.BillNumber)
		} else if !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		subtotal, err := tx.RecalculateSubtotal(ctx, o.ID)
		if err != nil {
			return err
		}
		if subtotal <= 0 {
			return utils.Validation("order %s has nothing to bill", o.OrderNumber)
		}

		customerID := req.CustomerID
		if customerID == "" {
			customerID = o.CustomerID
		}
		if customerID != "" {
			if _, err := tx.GetCustomer(ctx, customerID); errors.Is(err, sql.ErrNoRows) {
				return utils.Validation("customer %s not found", customerID)
			} else if err != nil {
				return err
			}
		}

		discount, err := DiscountFor(subtotal, req.DiscountPercent, req.DiscountAmount)
		if err != nil {
			return err
		}
		settings, err := tx.LoadSettings(ctx)
		if err != nil {
			return err
		}
		totals := Compute(subtotal, discount, o.OrderType, settings)

		now := utils.Now()
		number, err := tx.NextNumber(ctx, "BILL", now)
		if err != nil {
			return err
		}
		bill = &models.Bill{
			ID:            utils.NewID(),
			BillNumber:    number,
			OrderID:       o.ID,
			CustomerID:    customerID,
			Subtotal:      totals.Subtotal,
			Discount:      totals.Discount,
			ServiceCharge: totals.ServiceCharge,
			Tax:           totals.Tax,
			Total:         totals.Total,
			Status:        models.BillStatusUnpaid,
			CreatedBy:     userID,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		return tx.CreateBill(ctx, bill)
	})
	if err != nil {
		return nil, err
	}

	bill.Payments = []*models.BillPayment{}
	s.publish(ctx, kafka.BillGenerated, bill)
	s.Logger.LogBill("GENERATED", bill.BillNumber, fmt.Sprintf("total %s", utils.FormatMoney(bill.Total)))
	return bill, nil
}

// AddPayment records a payment. Cash may exceed what is owed and the change
// is reported; other methods are capped at the outstanding amount. A payment
// whose reference was seen before returns the earlier payment unchanged.
// Bills with a pending card payment intent refuse other payments.
func (s *Service) AddPayment(ctx context.Context, userID, billID string, req models.PaymentRequest) (*models.PaymentResult, error) {
	return s.addPayment(ctx, userID, billID, req, false)
}

// addPayment with captured set books money the card network already took:
// the excess over the outstanding amount becomes RefundDue instead of an error.
func (s *Service) addPayment(ctx context.Context, userID, billID string, req models.PaymentRequest, captured bool) (*models.PaymentResult, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	if res, err := s.duplicate(ctx, s.Store, billID, req.Reference); res != nil || err != nil {
		return res, err
	}

	var res *models.PaymentResult
	err := lock.WithLock(ctx, s.Locker, lock.BillKey(billID), lock.DefaultWait, func() error {
		return s.Store.RunInTx(ctx, func(ctx context.Context, tx *store.DB) error {
			var err error
			res, err = s.applyPayment(ctx, tx, userID, billID, req, captured)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	if res.Duplicate {
		return res, nil
	}

	metrics.RecordPayment(res.Payment.Method, res.Payment.Amount)
	s.publish(ctx, kafka.PaymentAdded, res.Bill)
	s.Logger.LogBill("PAYMENT", res.Bill.BillNumber, fmt.Sprintf("%s %s, change %s, now %s",
		res.Payment.Method, utils.FormatMoney(res.Payment.Amount), utils.FormatMoney(res.Change), res.Bill.Status))

	if res.RefundDue > 0 {
		s.Logger.Error("PAYMENT", fmt.Sprintf("REFUND DUE: %s over the outstanding amount of bill %s (ref %s)",
			utils.FormatMoney(res.RefundDue), res.Bill.BillNumber, req.Reference))
	}

	if res.Bill.Status == models.BillStatusPaid {
		metrics.RecordBillSettled(models.BillStatusPaid)
		s.publish(ctx, kafka.BillPaid, res.Bill)
	}
	return res, nil
}

func (s *Service) duplicate(ctx context.Context, db *store.DB, billID, reference string) (*models.PaymentResult, error) {
	if reference == "" {
		return nil, nil
	}
	p, err := db.GetPaymentByReference(ctx, reference)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if p.BillID != billID {
		return nil, utils.Conflict("reference %s belongs to another bill", reference)
	}
	b, err := db.GetBill(ctx, billID)
	if err != nil {
		return nil, err
	}
	return &models.PaymentResult{Bill: b, Payment: p, Duplicate: true}, nil
}

func (s *Service) applyPayment(ctx context.Context, tx *store.DB, userID, billID string, req models.PaymentRequest, captured bool) (*models.PaymentResult, error) {
	if res, err := s.duplicate(ctx, tx, billID, req.Reference); res != nil || err != nil {
		return res, err
	}

	b, err := tx.GetBill(ctx, billID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, utils.NotFound("bill %s not found", billID)
	}
	if err != nil {
		return nil, err
	}
	if b.Status != models.BillStatusUnpaid && b.Status != models.BillStatusPartial {
		return nil, utils.Conflict("bill %s is %s", b.BillNumber, b.Status)
	}

	intentPayment := b.PaymentIntentID != "" && req.Reference == b.PaymentIntentID
	if b.PaymentIntentID != "" && !intentPayment {
		return nil, utils.Conflict("bill %s has a pending card payment %s; cancel it first", b.BillNumber, b.PaymentIntentID)
	}

	outstanding := b.Outstanding()
	applied, change, refundDue := req.Amount, int64(0), int64(0)
	if req.Amount > outstanding {
		switch {
		case req.Method == models.PaymentMethodCash:
			applied, change = outstanding, req.Amount-outstanding
		case captured:
			applied, refundDue = outstanding, req.Amount-outstanding
		default:
			return nil, utils.Validation("%s payment %s exceeds outstanding %s",
				req.Method, utils.FormatMoney(req.Amount), utils.FormatMoney(outstanding))
		}
	}

	customerID := ""
	if req.Method == models.PaymentMethodCredit {
		if customerID = req.CustomerID; customerID == "" {
			customerID = b.CustomerID
		}
		if err := chargeCredit(ctx, tx, customerID, applied); err != nil {
			return nil, err
		}
	}

	newPaid := b.PaidAmount + applied
	newStatus := models.BillStatusPartial
	if newPaid >= b.Total {
		newStatus = models.BillStatusPaid
	}
	n, err := tx.ApplyPayment(ctx, b.ID, b.PaidAmount, newPaid, newStatus)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, utils.Conflict("bill %s changed concurrently, retry", b.BillNumber)
	}

	p := &models.BillPayment{
		ID:         utils.NewID(),
		BillID:     b.ID,
		Method:     req.Method,
		Amount:     applied,
		Reference:  req.Reference,
		CustomerID: customerID,
		ReceivedBy: userID,
		CreatedAt:  utils.Now(),
	}
	if err := tx.InsertBillPayment(ctx, p); err != nil {
		return nil, err
	}
	if intentPayment {
		if _, err := tx.SetBillPaymentIntent(ctx, b.ID, ""); err != nil {
			return nil, err
		}
	}

	if newStatus == models.BillStatusPaid {
		if err := settleOrder(ctx, tx, b.OrderID); err != nil {
			return nil, err
		}
	}

	updated, err := tx.GetBill(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	return &models.PaymentResult{Bill: updated, Payment: p, Change: change, RefundDue: refundDue}, nil
}

func chargeCredit(ctx context.Context, tx *store.DB, customerID string, amount int64) error {
	if customerID == "" {
		return utils.Validation("credit payments need a customer")
	}
	c, err := tx.GetCustomer(ctx, customerID)
	if errors.Is(err, sql.ErrNoRows) {
		return utils.Validation("customer %s not found", customerID)
	}
	if err != nil {
		return err
	}
	n, err := tx.ChargeCredit(ctx, customerID, amount)
	if err != nil {
		return err
	}
	if n == 0 {
		return utils.Conflict("credit limit %s for %s would be exceeded (balance %s)",
			utils.FormatMoney(c.CreditLimit), c.Name, utils.FormatMoney(c.CreditBalance))
	}
	return nil
}

// settleOrder completes a paid order and frees its table.
func settleOrder(ctx context.Context, tx *store.DB, orderID string) error {
	o, err := tx.GetOrderHeader(ctx, orderID)
	if err != nil {
		return err
	}
	if !o.Open() {
		return nil
	}
	n, err := tx.TransitionOrder(ctx, o.ID, o.Status, models.OrderStatusCompleted)
	if err != nil {
		return err
	}
	if n == 0 {
		return utils.Conflict("order %s changed concurrently", o.OrderNumber)
	}
	o.Status = models.OrderStatusCompleted
	return order.ReleaseTable(ctx, tx, o)
}

// Void cancels an unpaid or part-paid bill, cancels its pending card intent
// and takes credit payments back off the customer's balance. The order can then be billed again or cancelled.
func (s *Service) Void(ctx context.Context, billID string) (*models.Bill, error) {
	var refundable int64

	err := lock.WithLock(ctx, s.Locker, lock.BillKey(billID), lock.DefaultWait, func() error {
		pending, err := s.Get(ctx, billID)
		if err != nil {
			return err
		}
		if err := status.Bill.Check(pending.Status, models.BillStatusVoid); err != nil {
			return err
		}
		if err := s.cancelIntent(ctx, pending); err != nil {
			return err
		}

		return s.Store.RunInTx(ctx, func(ctx context.Context, tx *store.DB) error {
			b, err := tx.GetBill(ctx, billID)
			if errors.Is(err, sql.ErrNoRows) {
				return utils.NotFound("bill %s not found", billID)
			}
			if err != nil {
				return err
			}
			if err := status.Bill.Check(b.Status, models.BillStatusVoid); err != nil {
				return err
			}

			n, err := tx.TransitionBill(ctx, b.ID, b.Status, models.BillStatusVoid)
			if err != nil {
				return err
			}
			if n == 0 {
				return utils.Conflict("bill %s changed concurrently", b.BillNumber)
			}

			for _, p := range b.Payments {
				if p.Method != models.PaymentMethodCredit {
					refundable += p.Amount
					continue
				}
				if err := reverseCredit(ctx, tx, p); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	b, err := s.Get(ctx, billID)
	if err != nil {
		return nil, err
	}
	metrics.RecordBillSettled(models.BillStatusVoid)
	s.publish(ctx, kafka.BillVoided, b)
	s.Logger.LogBill("VOIDED", b.BillNumber, fmt.Sprintf("total %s", utils.FormatMoney(b.Total)))
	if refundable > 0 {
		s.Logger.Warn("BILL", fmt.Sprintf("Voided bill %s had %s in non-credit payments to refund", b.BillNumber, utils.FormatMoney(refundable)))
	}
	return b, nil
}

// reverseCredit lowers the customer's balance by a voided credit payment,
// stopping at zero when the customer already settled part of it.
func reverseCredit(ctx context.Context, tx *store.DB, p *models.BillPayment) error {
	c, err := tx.GetCustomer(ctx, p.CustomerID)
	if err != nil {
		return err
	}
	amount := p.Amount
	if amount > c.CreditBalance {
		amount = c.CreditBalance
	}
	if amount <= 0 {
		return nil
	}
	_, err = tx.SettleCredit(ctx, c.ID, amount)
	return err
}

func (s *Service) publish(ctx context.Context, eventType string, b *models.Bill) {
	if s.Events != nil {
		s.Events.Bill(ctx, eventType, b)
	}
}
