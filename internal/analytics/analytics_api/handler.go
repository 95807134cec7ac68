package analytics_api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"restaurant-pos/internal/analytics"
	"restaurant-pos/internal/auth"
	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/utils"
)

type Handler struct {
	Reports *analytics.Service
	Logger  *logger.Logger
}

func NewHandler(svc *analytics.Service, log *logger.Logger) *Handler {
	return &Handler{Reports: svc, Logger: log}
}

// AdminRoutes mounts the reports under /api/admin. Ranges come from
// ?from=YYYY-MM-DD&to=YYYY-MM-DD and default to today.
func (h *Handler) AdminRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.Use(auth.RequirePermission(auth.PermReportsRead))
		r.Get("/sales", h.Sales)
		r.Get("/items", h.TopItems)
		r.Get("/payments", h.Payments)
		r.Get("/daily", h.Daily)
		r.Get("/snapshot", h.Snapshot)
	})
}

func dateRange(r *http.Request) (time.Time, time.Time, error) {
	q := r.URL.Query()
	return utils.ParseDateRange(q.Get("from"), q.Get("to"), utils.Now())
}

func (h *Handler) Sales(w http.ResponseWriter, r *http.Request) {
	from, to, err := dateRange(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	summary, err := h.Reports.Sales(r.Context(), from, to)
	if err != nil {
		utils.Fail(w, h.Logger, "SalesReport", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Sales summary retrieved", summary)
}

func (h *Handler) TopItems(w http.ResponseWriter, r *http.Request) {
	from, to, err := dateRange(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	items, err := h.Reports.TopItems(r.Context(), from, to, limit)
	if err != nil {
		utils.Fail(w, h.Logger, "ItemsReport", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Item sales retrieved", items)
}

func (h *Handler) Payments(w http.ResponseWriter, r *http.Request) {
	from, to, err := dateRange(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	totals, err := h.Reports.PaymentsByMethod(r.Context(), from, to)
	if err != nil {
		utils.Fail(w, h.Logger, "PaymentsReport", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Payment totals retrieved", totals)
}

func (h *Handler) Daily(w http.ResponseWriter, r *http.Request) {
	from, to, err := dateRange(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	days, err := h.Reports.Daily(r.Context(), from, to)
	if err != nil {
		utils.Fail(w, h.Logger, "DailyReport", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Daily sales retrieved", days)
}

func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Reports.Snapshot(r.Context())
	if err != nil {
		utils.Fail(w, h.Logger, "Snapshot", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Snapshot retrieved", snap)
}
