package analytics_api

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"restaurant-pos/internal/analytics"
	"restaurant-pos/internal/auth"
	"restaurant-pos/internal/database/dbtest"
	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/models"
	"restaurant-pos/internal/store"
)

func newRouter(t *testing.T, role string) http.Handler {
	t.Helper()
	log := logger.NewWithWriter(io.Discard)
	h := NewHandler(analytics.NewService(store.New(dbtest.New(t)), log), log)

	r := chi.NewRouter()
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				p := &models.Principal{UserID: "u1", Role: role}
				next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
			})
		})
		h.AdminRoutes(r)
	})
	return r
}

func get(router http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestReportRoutes(t *testing.T) {
	router := newRouter(t, models.RoleManager)

	for _, path := range []string{"sales", "items", "payments", "daily", "snapshot"} {
		rec := get(router, "/api/admin/reports/"+path)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	rec := get(router, "/api/admin/reports/sales?from=2024-02-10&to=2024-02-01")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = get(router, "/api/admin/reports/daily?from=yesterday")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReportsNeedPermission(t *testing.T) {
	router := newRouter(t, models.RoleWaiter)

	rec := get(router, "/api/admin/reports/sales")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
