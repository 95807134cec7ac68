package billing

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"

	"restaurant-pos/internal/lock"
	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/models"
	"restaurant-pos/internal/utils"
)

var ErrStripeNotConfigured = errors.New("stripe is not configured")

// PaymentGateway creates and cancels card payment intents.
type PaymentGateway interface {
	CreatePaymentIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*stripe.PaymentIntent, error)
	CancelPaymentIntent(ctx context.Context, id string) error
}

// StripeGateway talks to the Stripe API.
type StripeGateway struct {
	client *client.API
	log    *logger.Logger
}

func NewStripeGateway(secretKey string, log *logger.Logger) (*StripeGateway, error) {
	if secretKey == "" {
		return nil, ErrStripeNotConfigured
	}
	sc := client.New(secretKey, nil)
	log.Info("STRIPE", "Stripe client initialized successfully")
	return &StripeGateway{client: sc, log: log}, nil
}

func (g *StripeGateway) CreatePaymentIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*stripe.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	pi, err := g.client.PaymentIntents.New(params)
	if err != nil {
		g.log.Error("STRIPE", fmt.Sprintf("Failed to create payment intent: %v", err))
		return nil, err
	}
	return pi, nil
}

func (g *StripeGateway) CancelPaymentIntent(ctx context.Context, id string) error {
	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx
	if _, err := g.client.PaymentIntents.Cancel(id, params); err != nil {
		g.log.Error("STRIPE", fmt.Sprintf("Failed to cancel payment intent %s: %v", id, err))
		return err
	}
	return nil
}

// CreatePaymentIntent opens a card payment for the outstanding amount of a
// bill. A previous intent on the bill is cancelled first. Other payments are
// refused until the intent is paid or cancelled.
func (s *Service) CreatePaymentIntent(ctx context.Context, billID string) (*models.PaymentIntentResponse, error) {
	if s.Gateway == nil {
		return nil, utils.Validation("card payments are not configured")
	}

	var resp *models.PaymentIntentResponse
	err := lock.WithLock(ctx, s.Locker, lock.BillKey(billID), lock.DefaultWait, func() error {
		var err error
		resp, err = s.createPaymentIntent(ctx, billID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *Service) createPaymentIntent(ctx context.Context, billID string) (*models.PaymentIntentResponse, error) {
	b, err := s.Get(ctx, billID)
	if err != nil {
		return nil, err
	}
	if b.Status != models.BillStatusUnpaid && b.Status != models.BillStatusPartial {
		return nil, utils.Conflict("bill %s is %s", b.BillNumber, b.Status)
	}
	if err := s.cancelIntent(ctx, b); err != nil {
		return nil, err
	}

	currency := s.Currency
	if currency == "" {
		settings, err := s.Store.LoadSettings(ctx)
		if err != nil {
			return nil, err
		}
		currency = settings.Currency
	}
	currency = strings.ToLower(currency)

	amount := b.Outstanding()
	pi, err := s.Gateway.CreatePaymentIntent(ctx, amount, currency, map[string]string{
		"bill_id":     b.ID,
		"bill_number": b.BillNumber,
	})
	if err != nil {
		return nil, utils.Internal("create payment intent", err)
	}
	if _, err := s.Store.SetBillPaymentIntent(ctx, b.ID, pi.ID); err != nil {
		return nil, err
	}

	s.Logger.Info("PAYMENT", fmt.Sprintf("Created payment intent %s for bill %s (%s %s)", pi.ID, b.BillNumber, strings.ToUpper(currency), utils.FormatMoney(amount)))
	return &models.PaymentIntentResponse{
		PaymentIntentID: pi.ID,
		ClientSecret:    pi.ClientSecret,
		Amount:          amount,
		Currency:        currency,
		Status:          string(pi.Status),
	}, nil
}

// CancelPaymentIntent abandons the pending card payment of a bill so that
// other payment methods can be taken.
func (s *Service) CancelPaymentIntent(ctx context.Context, billID string) (*models.Bill, error) {
	err := lock.WithLock(ctx, s.Locker, lock.BillKey(billID), lock.DefaultWait, func() error {
		b, err := s.Get(ctx, billID)
		if err != nil {
			return err
		}
		if b.PaymentIntentID == "" {
			return utils.Conflict("bill %s has no pending card payment", b.BillNumber)
		}
		return s.cancelIntent(ctx, b)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, billID)
}

// cancelIntent cancels the bill's pending intent at Stripe and clears it. An
// intent Stripe refuses to cancel has usually been captured already, so the
// bill keeps it and waits for the webhook.
func (s *Service) cancelIntent(ctx context.Context, b *models.Bill) error {
	if b.PaymentIntentID == "" {
		return nil
	}
	if s.Gateway != nil {
		if err := s.Gateway.CancelPaymentIntent(ctx, b.PaymentIntentID); err != nil {
			return utils.Conflict("card payment %s on bill %s could not be cancelled: %v", b.PaymentIntentID, b.BillNumber, err)
		}
	}
	if _, err := s.Store.SetBillPaymentIntent(ctx, b.ID, ""); err != nil {
		return err
	}
	s.Logger.Info("PAYMENT", fmt.Sprintf("Cancelled payment intent %s on bill %s", b.PaymentIntentID, b.BillNumber))
	b.PaymentIntentID = ""
	return nil
}

// HandleStripeWebhook verifies a Stripe event and records succeeded intents
// as card payments. The intent ID is the payment reference, so redelivered
// events are recorded once.
func (s *Service) HandleStripeWebhook(ctx context.Context, payload []byte, signature string) error {
	if s.WebhookSecret == "" {
		return utils.Internal("stripe webhook", errors.New("webhook secret is not configured"))
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, s.WebhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		s.Logger.LogSecurity("WEBHOOK_SIGNATURE", err.Error())
		return utils.Validation("webhook signature verification failed")
	}

	s.Logger.Info("WEBHOOK", fmt.Sprintf("Processing Stripe webhook event: %s", event.Type))

	switch event.Type {
	case "payment_intent.succeeded":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return utils.Validation("invalid payment intent data")
		}
		return s.recordIntent(ctx, &pi)

	case "payment_intent.payment_failed":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return utils.Validation("invalid payment intent data")
		}
		s.Logger.Warn("WEBHOOK", fmt.Sprintf("Payment intent %s failed for bill %s", pi.ID, pi.Metadata["bill_number"]))

	default:
		s.Logger.Debug("WEBHOOK", fmt.Sprintf("Unhandled event type: %s", event.Type))
	}
	return nil
}

// recordIntent books a captured intent as a card payment. Captured money is
// never dropped: anything above the outstanding amount, or a capture on a bill
// that is already closed, is logged as a refund due.
func (s *Service) recordIntent(ctx context.Context, pi *stripe.PaymentIntent) error {
	b, err := s.billForIntent(ctx, pi)
	if errors.Is(err, sql.ErrNoRows) {
		s.Logger.Error("WEBHOOK", fmt.Sprintf("REFUND DUE: no bill for payment intent %s", pi.ID))
		return nil
	}
	if err != nil {
		return err
	}

	amount := pi.AmountReceived
	if amount == 0 {
		amount = pi.Amount
	}
	res, err := s.addPayment(ctx, b.CreatedBy, b.ID, models.PaymentRequest{
		Method:    models.PaymentMethodCard,
		Amount:    amount,
		Reference: pi.ID,
	}, true)
	if err != nil {
		if utils.IsCategory(err, utils.CategoryConflict) || utils.IsCategory(err, utils.CategoryValidation) {
			s.Logger.Error("WEBHOOK", fmt.Sprintf("REFUND DUE: payment intent %s (%s) not applied to bill %s: %v",
				pi.ID, utils.FormatMoney(amount), b.BillNumber, err))
			return nil
		}
		return err
	}

	s.Logger.Info("WEBHOOK", fmt.Sprintf("Recorded payment intent %s on bill %s (duplicate=%t)", pi.ID, b.BillNumber, res.Duplicate))
	return nil
}

func (s *Service) billForIntent(ctx context.Context, pi *stripe.PaymentIntent) (*models.Bill, error) {
	if id := pi.Metadata["bill_id"]; id != "" {
		return s.Store.GetBill(ctx, id)
	}
	b, err := s.Store.GetBillByPaymentIntent(ctx, pi.ID)
	if !errors.Is(err, sql.ErrNoRows) {
		return b, err
	}
	// Recorded intents are cleared from the bill; redeliveries find it through the payment.
	p, err := s.Store.GetPaymentByReference(ctx, pi.ID)
	if err != nil {
		return nil, err
	}
	return s.Store.GetBill(ctx, p.BillID)
}
