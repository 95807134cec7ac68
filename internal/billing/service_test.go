package billing_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"restaurant-pos/internal/billing"
	"restaurant-pos/internal/config"
	"restaurant-pos/internal/database/dbtest"
	"restaurant-pos/internal/kafka"
	"restaurant-pos/internal/kot"
	"restaurant-pos/internal/lock"
	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/models"
	"restaurant-pos/internal/order"
	"restaurant-pos/internal/qr"
	"restaurant-pos/internal/sse"
	"restaurant-pos/internal/store"
	"restaurant-pos/internal/utils"
)

const webhookSecret = "whsec_test_secret"

type fakeGateway struct {
	calls     int
	amount    int64
	currency  string
	metadata  map[string]string
	cancelled []string
	cancelErr error
}

func (g *fakeGateway) CreatePaymentIntent(_ context.Context, amount int64, currency string, metadata map[string]string) (*stripe.PaymentIntent, error) {
	g.calls++
	g.amount, g.currency, g.metadata = amount, currency, metadata
	return &stripe.PaymentIntent{
		ID:           fmt.Sprintf("pi_test_%d", g.calls),
		ClientSecret: "pi_secret",
		Amount:       amount,
		Status:       stripe.PaymentIntentStatusRequiresPaymentMethod,
	}, nil
}

func (g *fakeGateway) CancelPaymentIntent(_ context.Context, id string) error {
	if g.cancelErr != nil {
		return g.cancelErr
	}
	g.cancelled = append(g.cancelled, id)
	return nil
}

type fixture struct {
	svc     *billing.Service
	orders  *order.Service
	db      *store.DB
	gateway *fakeGateway
	user    *models.User
	item    *models.MenuItem
	table   *models.DiningTable
	seed    func(name string, limit int64) *models.Customer
}

func setup(t *testing.T) *fixture {
	t.Helper()
	bdb := dbtest.New(t)
	db := store.New(bdb)
	log := logger.NewWithWriter(io.Discard)
	events := kafka.NewEvents(nil, config.TopicConfig{}, log)
	kitchen := kot.NewService(db, sse.NewKitchenEventEmitter(), events, log)
	locker := lock.NewMemory()

	svc := billing.NewService(db, locker, events, qr.NewQRGenerator("receipt-secret", "http://pos.local"), log)
	gw := &fakeGateway{}
	svc.Gateway = gw
	svc.WebhookSecret = webhookSecret

	cat := dbtest.SeedCategory(t, bdb, "Mains", "grill")
	return &fixture{
		svc:     svc,
		orders:  order.NewService(db, locker, kitchen, events, log),
		db:      db,
		gateway: gw,
		user:    dbtest.SeedUser(t, bdb, "carla", models.RoleCashier),
		item:    dbtest.SeedMenuItem(t, bdb, cat.ID, "Steak", 500),
		table:   dbtest.SeedTable(t, bdb, "T7"),
		seed: func(name string, limit int64) *models.Customer {
			return dbtest.SeedCustomer(t, bdb, name, limit)
		},
	}
}

// placeAndBill puts qty steaks on the table and bills them with no tax.
func (f *fixture) placeAndBill(t *testing.T, qty int, customerID string) (*models.Order, *models.Bill) {
	t.Helper()
	ctx := context.Background()
	o, err := f.orders.PlaceOrder(ctx, f.user.ID, models.PlaceOrderRequest{
		OrderType: models.OrderTypeDineIn,
		TableID:   f.table.ID,
		Items:     []models.OrderItemRequest{{MenuItemID: f.item.ID, Quantity: qty}},
	})
	require.NoError(t, err)
	b, err := f.svc.GenerateBill(ctx, f.user.ID, models.GenerateBillRequest{OrderID: o.ID, CustomerID: customerID})
	require.NoError(t, err)
	return o, b
}

func (f *fixture) pay(t *testing.T, billID, method string, amount int64, ref string) (*models.PaymentResult, error) {
	t.Helper()
	return f.svc.AddPayment(context.Background(), f.user.ID, billID, models.PaymentRequest{Method: method, Amount: amount, Reference: ref})
}

func TestCompute(t *testing.T) {
	settings := models.Settings{TaxRate: 10, ServiceChargeRate: 5}

	dineIn := billing.Compute(10000, 1000, models.OrderTypeDineIn, settings)
	assert.Equal(t, billing.Totals{Subtotal: 10000, Discount: 1000, ServiceCharge: 450, Tax: 945, Total: 10395}, dineIn)

	takeaway := billing.Compute(10000, 0, models.OrderTypeTakeaway, settings)
	assert.Zero(t, takeaway.ServiceCharge)
	assert.Equal(t, int64(1000), takeaway.Tax)
	assert.Equal(t, int64(11000), takeaway.Total)
}

func TestDiscountFor(t *testing.T) {
	pct := func(v float64) *float64 { return &v }

	d, err := billing.DiscountFor(2000, pct(12.5), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(250), d)

	d, err = billing.DiscountFor(2000, nil, 300)
	require.NoError(t, err)
	assert.Equal(t, int64(300), d)

	for _, tc := range []struct {
		name    string
		percent *float64
		amount  int64
	}{
		{"both", pct(10), 100},
		{"percent over 100", pct(101), 0},
		{"negative percent", pct(-1), 0},
		{"amount over subtotal", nil, 2001},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := billing.DiscountFor(2000, tc.percent, tc.amount)
			assert.True(t, utils.IsCategory(err, utils.CategoryValidation), "got %v", err)
		})
	}
}

func TestGenerateBill(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	require.NoError(t, f.db.UpsertSetting(ctx, models.SettingTaxRate, "10"))
	require.NoError(t, f.db.UpsertSetting(ctx, models.SettingServiceChargeRate, "5"))

	o, err := f.orders.PlaceOrder(ctx, f.user.ID, models.PlaceOrderRequest{
		OrderType: models.OrderTypeDineIn,
		TableID:   f.table.ID,
		Items:     []models.OrderItemRequest{{MenuItemID: f.item.ID, Quantity: 4}},
	})
	require.NoError(t, err)

	pct := 10.0
	b, err := f.svc.GenerateBill(ctx, f.user.ID, models.GenerateBillRequest{OrderID: o.ID, DiscountPercent: &pct})
	require.NoError(t, err)
	assert.Equal(t, int64(2000), b.Subtotal)
	assert.Equal(t, int64(200), b.Discount)
	assert.Equal(t, int64(90), b.ServiceCharge)
	assert.Equal(t, int64(189), b.Tax)
	assert.Equal(t, int64(2079), b.Total)
	assert.Equal(t, models.BillStatusUnpaid, b.Status)
	assert.Contains(t, b.BillNumber, "BILL")

	_, err = f.svc.GenerateBill(ctx, f.user.ID, models.GenerateBillRequest{OrderID: o.ID})
	assert.True(t, utils.IsCategory(err, utils.CategoryConflict), "second bill: %v", err)

	_, err = f.svc.GenerateBill(ctx, f.user.ID, models.GenerateBillRequest{OrderID: "nope"})
	assert.True(t, utils.IsCategory(err, utils.CategoryNotFound))

	_, err = f.orders.Cancel(ctx, o.ID, "changed mind")
	assert.True(t, utils.IsCategory(err, utils.CategoryConflict), "cancel billed order: %v", err)
}

func TestGenerateBillUnknownCustomer(t *testing.T) {
	f := setup(t)
	o, err := f.orders.PlaceOrder(context.Background(), f.user.ID, models.PlaceOrderRequest{
		OrderType: models.OrderTypeTakeaway,
		Items:     []models.OrderItemRequest{{MenuItemID: f.item.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	_, err = f.svc.GenerateBill(context.Background(), f.user.ID, models.GenerateBillRequest{OrderID: o.ID, CustomerID: "ghost"})
	assert.True(t, utils.IsCategory(err, utils.CategoryValidation))
}

func TestPaymentsSettleOrderAndTable(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	o, b := f.placeAndBill(t, 2, "")
	require.Equal(t, int64(1000), b.Total)

	res, err := f.pay(t, b.ID, models.PaymentMethodCard, 400, "card-1")
	require.NoError(t, err)
	assert.Equal(t, models.BillStatusPartial, res.Bill.Status)
	assert.Equal(t, int64(400), res.Bill.PaidAmount)

	_, err = f.pay(t, b.ID, models.PaymentMethodUPI, 700, "")
	assert.True(t, utils.IsCategory(err, utils.CategoryValidation), "non-cash overpay: %v", err)

	res, err = f.pay(t, b.ID, models.PaymentMethodCash, 1000, "")
	require.NoError(t, err)
	assert.Equal(t, models.BillStatusPaid, res.Bill.Status)
	assert.Equal(t, int64(600), res.Payment.Amount)
	assert.Equal(t, int64(400), res.Change)
	assert.Len(t, res.Bill.Payments, 2)

	got, err := f.orders.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCompleted, got.Status)

	tbl, err := f.db.GetTable(ctx, f.table.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TableStatusAvailable, tbl.Status)

	_, err = f.pay(t, b.ID, models.PaymentMethodCash, 100, "")
	assert.True(t, utils.IsCategory(err, utils.CategoryConflict), "payment on paid bill: %v", err)
}

func TestPaymentReferenceIsIdempotent(t *testing.T) {
	f := setup(t)
	_, b := f.placeAndBill(t, 2, "")

	first, err := f.pay(t, b.ID, models.PaymentMethodCard, 300, "txn-42")
	require.NoError(t, err)
	assert.False(t, first.Duplicate)

	again, err := f.pay(t, b.ID, models.PaymentMethodCard, 300, "txn-42")
	require.NoError(t, err)
	assert.True(t, again.Duplicate)
	assert.Equal(t, first.Payment.ID, again.Payment.ID)
	assert.Equal(t, int64(300), again.Bill.PaidAmount)

	other, err := f.svc.Get(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Len(t, other.Payments, 1)
}

func TestReferenceFromAnotherBillConflicts(t *testing.T) {
	f := setup(t)
	_, first := f.placeAndBill(t, 1, "")

	o2, err := f.orders.PlaceOrder(context.Background(), f.user.ID, models.PlaceOrderRequest{
		OrderType: models.OrderTypeTakeaway,
		Items:     []models.OrderItemRequest{{MenuItemID: f.item.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	b2, err := f.svc.GenerateBill(context.Background(), f.user.ID, models.GenerateBillRequest{OrderID: o2.ID})
	require.NoError(t, err)

	_, err = f.pay(t, first.ID, models.PaymentMethodCard, 100, "shared-ref")
	require.NoError(t, err)
	_, err = f.pay(t, b2.ID, models.PaymentMethodCard, 100, "shared-ref")
	assert.True(t, utils.IsCategory(err, utils.CategoryConflict))
}

func TestCreditPaymentsRespectLimit(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	cust := f.seed("Regular", 800)
	_, b := f.placeAndBill(t, 2, cust.ID)

	_, err := f.pay(t, b.ID, models.PaymentMethodCredit, 1000, "")
	assert.True(t, utils.IsCategory(err, utils.CategoryConflict), "over limit: %v", err)

	res, err := f.pay(t, b.ID, models.PaymentMethodCredit, 800, "")
	require.NoError(t, err)
	assert.Equal(t, cust.ID, res.Payment.CustomerID)

	c, err := f.db.GetCustomer(ctx, cust.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(800), c.CreditBalance)

	// Voiding gives the credit back.
	voided, err := f.svc.Void(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BillStatusVoid, voided.Status)

	c, err = f.db.GetCustomer(ctx, cust.ID)
	require.NoError(t, err)
	assert.Zero(t, c.CreditBalance)

	_, err = f.svc.Void(ctx, b.ID)
	assert.True(t, utils.IsCategory(err, utils.CategoryConflict))
}

func TestCreditWithoutCustomer(t *testing.T) {
	f := setup(t)
	_, b := f.placeAndBill(t, 1, "")

	_, err := f.pay(t, b.ID, models.PaymentMethodCredit, 100, "")
	assert.True(t, utils.IsCategory(err, utils.CategoryValidation))
}

func TestVoidAllowsRebilling(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	o, b := f.placeAndBill(t, 1, "")

	_, err := f.svc.Void(ctx, b.ID)
	require.NoError(t, err)

	rebilled, err := f.svc.GenerateBill(ctx, f.user.ID, models.GenerateBillRequest{OrderID: o.ID})
	require.NoError(t, err)
	assert.NotEqual(t, b.BillNumber, rebilled.BillNumber)

	_, err = f.svc.Void(ctx, "missing")
	assert.True(t, utils.IsCategory(err, utils.CategoryNotFound))
}

func TestConcurrentPaymentsNeverOverpay(t *testing.T) {
	f := setup(t)
	_, b := f.placeAndBill(t, 2, "")

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.AddPayment(context.Background(), f.user.ID, b.ID, models.PaymentRequest{
				Method: models.PaymentMethodCard, Amount: 400, Reference: fmt.Sprintf("c-%d", i),
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	got, err := f.svc.Get(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, succeeded)
	assert.Equal(t, int64(800), got.PaidAmount)
	assert.Equal(t, models.BillStatusPartial, got.Status)
}

func TestReceipt(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	_, b := f.placeAndBill(t, 3, "")

	sig := f.svc.Receipts.Sign(b.BillNumber)
	r, err := f.svc.Receipt(ctx, b.BillNumber, sig)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), r.Total)
	require.Len(t, r.Items, 1)
	assert.Equal(t, "Steak", r.Items[0].Name)

	_, err = f.svc.Receipt(ctx, b.BillNumber, "forged")
	assert.True(t, utils.IsCategory(err, utils.CategoryForbidden))

	_, err = f.svc.Receipt(ctx, "BILL-none", f.svc.Receipts.Sign("BILL-none"))
	assert.True(t, utils.IsCategory(err, utils.CategoryNotFound))

	png, err := f.svc.ReceiptQR(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), png[:4])
}

func TestCreatePaymentIntent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	_, b := f.placeAndBill(t, 2, "")
	_, err := f.pay(t, b.ID, models.PaymentMethodCash, 250, "")
	require.NoError(t, err)

	resp, err := f.svc.CreatePaymentIntent(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(750), resp.Amount)
	assert.Equal(t, "usd", resp.Currency)
	assert.Equal(t, b.ID, f.gateway.metadata["bill_id"])

	stored, err := f.db.GetBill(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, resp.PaymentIntentID, stored.PaymentIntentID)

	f.svc.Gateway = nil
	_, err = f.svc.CreatePaymentIntent(ctx, b.ID)
	assert.True(t, utils.IsCategory(err, utils.CategoryValidation))
}

func signedEvent(t *testing.T, eventType string, pi map[string]interface{}) ([]byte, string) {
	t.Helper()
	raw, err := json.Marshal(map[string]interface{}{
		"id":          "evt_test",
		"object":      "event",
		"type":        eventType,
		"api_version": "2020-08-27",
		"data":        map[string]interface{}{"object": pi},
	})
	require.NoError(t, err)
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   raw,
		Secret:    webhookSecret,
		Timestamp: time.Now(),
	})
	return signed.Payload, signed.Header
}

func TestStripeWebhookRecordsCardPayment(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	o, b := f.placeAndBill(t, 2, "")
	intent, err := f.svc.CreatePaymentIntent(ctx, b.ID)
	require.NoError(t, err)

	// Metadata is omitted so the bill is found through the stored intent ID.
	payload, header := signedEvent(t, "payment_intent.succeeded", map[string]interface{}{
		"id":              intent.PaymentIntentID,
		"object":          "payment_intent",
		"amount":          1000,
		"amount_received": 1000,
		"status":          "succeeded",
	})
	require.NoError(t, f.svc.HandleStripeWebhook(ctx, payload, header))
	require.NoError(t, f.svc.HandleStripeWebhook(ctx, payload, header), "redelivery")

	got, err := f.svc.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BillStatusPaid, got.Status)
	require.Len(t, got.Payments, 1)
	assert.Equal(t, intent.PaymentIntentID, got.Payments[0].Reference)
	assert.Equal(t, models.PaymentMethodCard, got.Payments[0].Method)

	settled, err := f.orders.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCompleted, settled.Status)
}

func TestStripeWebhookRejectsBadSignature(t *testing.T) {
	f := setup(t)
	payload, _ := signedEvent(t, "payment_intent.succeeded", map[string]interface{}{"id": "pi_x"})

	err := f.svc.HandleStripeWebhook(context.Background(), payload, "t=1,v1=deadbeef")
	assert.True(t, utils.IsCategory(err, utils.CategoryValidation))
}

func TestStripeWebhookIgnoresOtherEvents(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	payload, header := signedEvent(t, "payment_intent.payment_failed", map[string]interface{}{
		"id": "pi_failed", "object": "payment_intent", "metadata": map[string]string{"bill_number": "BILL-1"},
	})
	assert.NoError(t, f.svc.HandleStripeWebhook(ctx, payload, header))

	payload, header = signedEvent(t, "charge.refunded", map[string]interface{}{"id": "ch_1", "object": "charge"})
	assert.NoError(t, f.svc.HandleStripeWebhook(ctx, payload, header))

	payload, header = signedEvent(t, "payment_intent.succeeded", map[string]interface{}{
		"id": "pi_orphan", "object": "payment_intent", "amount_received": 100,
	})
	assert.NoError(t, f.svc.HandleStripeWebhook(ctx, payload, header), "unknown intent is acknowledged")
}

func succeeded(t *testing.T, id string, amount int64) ([]byte, string) {
	t.Helper()
	return signedEvent(t, "payment_intent.succeeded", map[string]interface{}{
		"id":              id,
		"object":          "payment_intent",
		"amount":          amount,
		"amount_received": amount,
		"status":          "succeeded",
	})
}

func TestPendingIntentHoldsOtherPayments(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	_, b := f.placeAndBill(t, 2, "")
	intent, err := f.svc.CreatePaymentIntent(ctx, b.ID)
	require.NoError(t, err)

	_, err = f.pay(t, b.ID, models.PaymentMethodCash, 100, "")
	require.Error(t, err)
	assert.True(t, utils.IsCategory(err, utils.CategoryConflict), err.Error())

	payload, header := succeeded(t, intent.PaymentIntentID, 1000)
	require.NoError(t, f.svc.HandleStripeWebhook(ctx, payload, header))

	got, err := f.svc.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BillStatusPaid, got.Status)
	assert.Equal(t, int64(1000), got.PaidAmount)
	require.Len(t, got.Payments, 1)
	assert.Equal(t, models.PaymentMethodCard, got.Payments[0].Method)
	assert.Empty(t, got.PaymentIntentID)
}

func TestCancelPaymentIntentReopensOtherMethods(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	_, b := f.placeAndBill(t, 2, "")
	intent, err := f.svc.CreatePaymentIntent(ctx, b.ID)
	require.NoError(t, err)

	cleared, err := f.svc.CancelPaymentIntent(ctx, b.ID)
	require.NoError(t, err)
	assert.Empty(t, cleared.PaymentIntentID)
	assert.Equal(t, []string{intent.PaymentIntentID}, f.gateway.cancelled)

	_, err = f.svc.CancelPaymentIntent(ctx, b.ID)
	assert.True(t, utils.IsCategory(err, utils.CategoryConflict))

	res, err := f.pay(t, b.ID, models.PaymentMethodCash, 100, "")
	require.NoError(t, err)
	assert.Equal(t, models.BillStatusPartial, res.Bill.Status)

	// A new intent covers only what is still owed.
	next, err := f.svc.CreatePaymentIntent(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(900), next.Amount)
}

func TestNewIntentCancelsThePreviousOne(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	_, b := f.placeAndBill(t, 1, "")

	first, err := f.svc.CreatePaymentIntent(ctx, b.ID)
	require.NoError(t, err)
	second, err := f.svc.CreatePaymentIntent(ctx, b.ID)
	require.NoError(t, err)

	assert.Equal(t, []string{first.PaymentIntentID}, f.gateway.cancelled)
	stored, err := f.db.GetBill(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, second.PaymentIntentID, stored.PaymentIntentID)
}

func TestVoidCancelsPendingIntent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	_, b := f.placeAndBill(t, 1, "")
	intent, err := f.svc.CreatePaymentIntent(ctx, b.ID)
	require.NoError(t, err)

	f.gateway.cancelErr = errors.New("payment_intent_unexpected_state")
	_, err = f.svc.Void(ctx, b.ID)
	assert.True(t, utils.IsCategory(err, utils.CategoryConflict))
	unchanged, err := f.svc.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BillStatusUnpaid, unchanged.Status)
	assert.Equal(t, intent.PaymentIntentID, unchanged.PaymentIntentID)

	f.gateway.cancelErr = nil
	voided, err := f.svc.Void(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BillStatusVoid, voided.Status)
	assert.Empty(t, voided.PaymentIntentID)
	assert.Equal(t, []string{intent.PaymentIntentID}, f.gateway.cancelled)
}

func TestCapturedAmountAboveOutstandingIsStillRecorded(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	_, b := f.placeAndBill(t, 2, "")
	intent, err := f.svc.CreatePaymentIntent(ctx, b.ID)
	require.NoError(t, err)

	payload, header := succeeded(t, intent.PaymentIntentID, 1500)
	require.NoError(t, f.svc.HandleStripeWebhook(ctx, payload, header))

	got, err := f.svc.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BillStatusPaid, got.Status)
	require.Len(t, got.Payments, 1)
	assert.Equal(t, int64(1000), got.Payments[0].Amount)
	assert.Equal(t, intent.PaymentIntentID, got.Payments[0].Reference)
}
