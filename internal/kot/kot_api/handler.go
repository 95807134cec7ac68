package kot_api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"restaurant-pos/internal/auth"
	"restaurant-pos/internal/kot"
	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/models"
	"restaurant-pos/internal/utils"
)

type Handler struct {
	KOTs   *kot.Service
	Logger *logger.Logger
}

func NewHandler(svc *kot.Service, log *logger.Logger) *Handler {
	return &Handler{KOTs: svc, Logger: log}
}

// Routes mounts the kitchen tickets under /api/restaurant.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/kots", func(r chi.Router) {
		r.With(auth.RequirePermission(auth.PermKOTsRead)).Get("/", h.ListKOTs)
		r.With(auth.RequirePermission(auth.PermKOTsRead)).Get("/stream", h.Stream)
		r.With(auth.RequirePermission(auth.PermKOTsRead)).Get("/{id}", h.GetKOT)
		r.With(auth.RequirePermission(auth.PermKOTsUpdate)).Patch("/{id}/status", h.UpdateStatus)
	})
}

// ListKOTs returns live tickets unless a status is requested.
func (h *Handler) ListKOTs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	kots, err := h.KOTs.List(r.Context(), models.KOTFilter{
		Station: strings.ToLower(q.Get("station")),
		Status:  q.Get("status"),
		OrderID: q.Get("order_id"),
		Limit:   limit,
	})
	if err != nil {
		utils.Fail(w, h.Logger, "ListKOTs", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "KOTs retrieved", kots)
}

func (h *Handler) GetKOT(w http.ResponseWriter, r *http.Request) {
	k, err := h.KOTs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		utils.Fail(w, h.Logger, "GetKOT", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "KOT retrieved", k)
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req models.StatusRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		utils.WriteError(w, err)
		return
	}

	k, err := h.KOTs.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		utils.Fail(w, h.Logger, "UpdateKOTStatus", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "KOT status updated", k)
}
