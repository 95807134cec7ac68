package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"restaurant-pos/internal/admin"
	"restaurant-pos/internal/analytics"
	"restaurant-pos/internal/auth"
	"restaurant-pos/internal/billing"
	"restaurant-pos/internal/config"
	"restaurant-pos/internal/database/dbtest"
	"restaurant-pos/internal/kafka"
	"restaurant-pos/internal/kot"
	"restaurant-pos/internal/lock"
	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/media"
	"restaurant-pos/internal/menu"
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

func buildServices(db *store.DB, log *logger.Logger) Services {
	events := kafka.NewEvents(nil, config.TopicConfig{}, log)
	locker := lock.NewMemory()
	codes := qr.NewQRGenerator("receipt-secret", "http://pos.local")
	authSvc := auth.NewService(db, nil, auth.NewTokenSigner("jwt-secret"), time.Hour, log)
	kitchen := kot.NewService(db, sse.NewKitchenEventEmitter(), events, log)

	return Services{
		Store:     db,
		Auth:      authSvc,
		Limiter:   auth.NewRateLimiter(60, 3, log),
		Menu:      menu.NewService(db, media.NewMemoryStorage("http://pos.local/media"), log),
		Orders:    order.NewService(db, locker, kitchen, events, log),
		KOTs:      kitchen,
		Bills:     billing.NewService(db, locker, events, codes, log),
		Admin:     admin.NewService(db, authSvc, locker, codes, log),
		Analytics: analytics.NewService(db, log),
	}
}

func newTestRouter(t *testing.T) (http.Handler, *bun.DB) {
	t.Helper()
	bdb := dbtest.New(t)
	log := logger.NewWithWriter(io.Discard)
	return NewRouter(buildServices(store.New(bdb), log), Options{CORSOrigins: []string{"*"}, Logger: log}), bdb
}

func call(t *testing.T, h http.Handler, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func login(t *testing.T, h http.Handler, username string) string {
	t.Helper()
	rec, env := call(t, h, http.MethodPost, "/api/auth/login", "", models.LoginRequest{Username: username, PIN: dbtest.DefaultPIN})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp models.LoginResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	return resp.Token
}

func TestHealth(t *testing.T) {
	h, _ := newTestRouter(t)

	rec, _ := call(t, h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"database":"up"`)
}

func TestHealthReportsDatabaseDown(t *testing.T) {
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer sqlDB.Close()
	mock.ExpectPing().WillReturnError(assert.AnError)

	rec := httptest.NewRecorder()
	healthHandler(store.New(bun.NewDB(sqlDB, sqlitedialect.New()))).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMetricsEndpoint(t *testing.T) {
	h, _ := newTestRouter(t)
	call(t, h, http.MethodGet, "/health", "", nil)

	rec, _ := call(t, h, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pos_http_requests_total")
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	h, _ := newTestRouter(t)

	for _, path := range []string{"/api/restaurant/menu", "/api/admin/reports/sales", "/api/auth/verify"} {
		rec, env := call(t, h, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
		assert.Equal(t, "unauthorized", env.Code, path)
	}
}

func TestLoginIsRateLimited(t *testing.T) {
	h, _ := newTestRouter(t)

	var last int
	for i := 0; i < 5; i++ {
		rec, _ := call(t, h, http.MethodPost, "/api/auth/login", "", models.LoginRequest{Username: "ghost", PIN: "0000"})
		last = rec.Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}

func TestOrderToPaymentFlow(t *testing.T) {
	h, bdb := newTestRouter(t)
	dbtest.SeedUser(t, bdb, "wendy", models.RoleWaiter)
	dbtest.SeedUser(t, bdb, "carl", models.RoleCashier)
	cat := dbtest.SeedCategory(t, bdb, "Mains", "kitchen")
	item := dbtest.SeedMenuItem(t, bdb, cat.ID, "Burger", 1250)
	table := dbtest.SeedTable(t, bdb, "T4")

	waiter := login(t, h, "wendy")
	cashier := login(t, h, "carl")

	rec, env := call(t, h, http.MethodPost, "/api/restaurant/orders", waiter, models.PlaceOrderRequest{
		OrderType: models.OrderTypeDineIn,
		TableID:   table.ID,
		Items:     []models.OrderItemRequest{{MenuItemID: item.ID, Quantity: 2}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var placed models.Order
	require.NoError(t, json.Unmarshal(env.Data, &placed))

	rec, _ = call(t, h, http.MethodPost, "/api/restaurant/bills", waiter, map[string]string{"order_id": placed.ID})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env = call(t, h, http.MethodPost, "/api/restaurant/bills", cashier, map[string]string{"order_id": placed.ID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var bill models.Bill
	require.NoError(t, json.Unmarshal(env.Data, &bill))
	assert.Equal(t, int64(2500), bill.Total)

	rec, _ = call(t, h, http.MethodPost, "/api/restaurant/bills/"+bill.ID+"/payments", cashier,
		map[string]interface{}{"method": "cash", "amount": 3000})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, env = call(t, h, http.MethodGet, "/api/restaurant/tables", waiter, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var tables []models.DiningTable
	require.NoError(t, json.Unmarshal(env.Data, &tables))
	require.Len(t, tables, 1)
	assert.Equal(t, models.TableStatusAvailable, tables[0].Status)
}

func TestCORSPreflight(t *testing.T) {
	h, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/restaurant/orders", nil)
	req.Header.Set("Origin", "http://terminal.local")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
