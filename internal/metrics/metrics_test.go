package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrumentHandlerUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(InstrumentHandler)
	r.Get("/api/restaurant/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/restaurant/orders/{id}", "418"))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/restaurant/orders/abc", nil))
	require.Equal(t, http.StatusTeapot, rec.Code)

	after := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/restaurant/orders/{id}", "418"))
	assert.Equal(t, before+1, after)
}

func TestDomainCounters(t *testing.T) {
	before := testutil.ToFloat64(paymentsAmount.WithLabelValues("upi"))
	RecordPayment("upi", 1250)
	assert.Equal(t, before+1250, testutil.ToFloat64(paymentsAmount.WithLabelValues("upi")))

	RecordJobRun("session_purge", 0, true)
	assert.GreaterOrEqual(t, testutil.ToFloat64(jobRuns.WithLabelValues("session_purge", "true")), 1.0)
}

func TestHandlerExposesRegistry(t *testing.T) {
	RecordOrderPlaced("dine_in")
	RecordJobRun("held_bill_purge", 15*time.Millisecond, false)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "pos_orders_placed_total"))
	assert.True(t, strings.Contains(body, "pos_jobs_runs_total"))
}
