package billing_api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-pos/internal/auth"
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
)

type envelope struct {
	Success bool            `json:"success"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
}

type testAPI struct {
	router   http.Handler
	bills    *billing.Service
	orderID  string
	receipts *qr.QRGenerator
}

func newTestAPI(t *testing.T, role string) *testAPI {
	t.Helper()
	bdb := dbtest.New(t)
	db := store.New(bdb)
	log := logger.NewWithWriter(io.Discard)
	events := kafka.NewEvents(nil, config.TopicConfig{}, log)
	locker := lock.NewMemory()
	kitchen := kot.NewService(db, sse.NewKitchenEventEmitter(), events, log)
	orders := order.NewService(db, locker, kitchen, events, log)
	receipts := qr.NewQRGenerator("secret", "http://pos.local")
	bills := billing.NewService(db, locker, events, receipts, log)
	bills.WebhookSecret = "whsec_api"

	user := dbtest.SeedUser(t, bdb, "cass", role)
	cat := dbtest.SeedCategory(t, bdb, "Sides", "kitchen")
	item := dbtest.SeedMenuItem(t, bdb, cat.ID, "Fries", 450)
	o, err := orders.PlaceOrder(context.Background(), user.ID, models.PlaceOrderRequest{
		OrderType: models.OrderTypeTakeaway,
		Items:     []models.OrderItemRequest{{MenuItemID: item.ID, Quantity: 2}},
	})
	require.NoError(t, err)

	h := NewHandler(bills, log)
	r := chi.NewRouter()
	h.PublicRoutes(r)
	r.Route("/api/restaurant", func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				p := &models.Principal{UserID: user.ID, Username: user.Username, Role: role}
				next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
			})
		})
		h.Routes(r)
	})
	return &testAPI{router: r, bills: bills, orderID: o.ID, receipts: receipts}
}

func (a *testAPI) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	if v != nil {
		require.NoError(t, json.Unmarshal(env.Data, v))
	}
	return env
}

func (a *testAPI) generate(t *testing.T) models.Bill {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/restaurant/bills", map[string]interface{}{"order_id": a.orderID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var b models.Bill
	decode(t, rec, &b)
	return b
}

func TestGenerateAndPay(t *testing.T) {
	api := newTestAPI(t, models.RoleCashier)
	b := api.generate(t)
	assert.Equal(t, int64(900), b.Total)

	rec := api.do(t, http.MethodPost, "/api/restaurant/bills", map[string]interface{}{"order_id": api.orderID})
	assert.Equal(t, http.StatusConflict, rec.Code)

	pay := map[string]interface{}{"method": "card", "amount": 500, "reference": "term-1"}
	rec = api.do(t, http.MethodPost, "/api/restaurant/bills/"+b.ID+"/payments", pay)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = api.do(t, http.MethodPost, "/api/restaurant/bills/"+b.ID+"/payments", pay)
	require.Equal(t, http.StatusOK, rec.Code)
	var res models.PaymentResult
	decode(t, rec, &res)
	assert.True(t, res.Duplicate)

	rec = api.do(t, http.MethodPost, "/api/restaurant/bills/"+b.ID+"/payments", map[string]interface{}{"method": "cheque", "amount": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/restaurant/bills/"+b.ID+"/payments", map[string]interface{}{"method": "cash", "amount": 1000})
	require.Equal(t, http.StatusCreated, rec.Code)
	decode(t, rec, &res)
	assert.Equal(t, models.BillStatusPaid, res.Bill.Status)
	assert.Equal(t, int64(600), res.Change)
}

func TestCashierCannotVoid(t *testing.T) {
	api := newTestAPI(t, models.RoleCashier)
	b := api.generate(t)

	rec := api.do(t, http.MethodPost, "/api/restaurant/bills/"+b.ID+"/void", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestManagerVoids(t *testing.T) {
	api := newTestAPI(t, models.RoleManager)
	b := api.generate(t)

	rec := api.do(t, http.MethodPost, "/api/restaurant/bills/"+b.ID+"/void", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var voided models.Bill
	decode(t, rec, &voided)
	assert.Equal(t, models.BillStatusVoid, voided.Status)
}

func TestReceiptQRAndPublicReceipt(t *testing.T) {
	api := newTestAPI(t, models.RoleCashier)
	b := api.generate(t)

	rec := api.do(t, http.MethodGet, "/api/restaurant/bills/"+b.ID+"/qr", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	rec = api.do(t, http.MethodGet, "/api/public/receipts/"+b.BillNumber+"?sig="+api.receipts.Sign(b.BillNumber), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var receipt models.Receipt
	decode(t, rec, &receipt)
	assert.Equal(t, b.BillNumber, receipt.BillNumber)
	assert.Equal(t, int64(900), receipt.Total)

	rec = api.do(t, http.MethodGet, "/api/public/receipts/"+b.BillNumber+"?sig=nope", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPaymentIntentWithoutStripe(t *testing.T) {
	api := newTestAPI(t, models.RoleCashier)
	b := api.generate(t)

	rec := api.do(t, http.MethodPost, "/api/restaurant/bills/"+b.ID+"/payment-intent", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookRejectsUnsignedBody(t *testing.T) {
	api := newTestAPI(t, models.RoleCashier)

	req := httptest.NewRequest(http.MethodPost, "/api/payments/stripe/webhook", bytes.NewBufferString(`{"type":"payment_intent.succeeded"}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=bad")
	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decode(t, rec, nil)
	assert.Equal(t, "validation", env.Code)
}

func TestCancelIntentWithoutPendingIntent(t *testing.T) {
	api := newTestAPI(t, models.RoleCashier)
	b := api.generate(t)

	rec := api.do(t, http.MethodDelete, "/api/restaurant/bills/"+b.ID+"/payment-intent", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	env := decode(t, rec, nil)
	assert.Equal(t, "conflict", env.Code)
}
