package order_api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"restaurant-pos/internal/auth"
	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/models"
	"restaurant-pos/internal/order"
	"restaurant-pos/internal/utils"
)

type Handler struct {
	Orders *order.Service
	Logger *logger.Logger
}

func NewHandler(svc *order.Service, log *logger.Logger) *Handler {
	return &Handler{Orders: svc, Logger: log}
}

// Routes mounts orders and held bills under /api/restaurant.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.With(auth.RequirePermission(auth.PermOrdersRead)).Get("/", h.ListOrders)
		r.With(auth.RequirePermission(auth.PermOrdersCreate)).Post("/", h.PlaceOrder)
		r.With(auth.RequirePermission(auth.PermOrdersRead)).Get("/{id}", h.GetOrder)
		r.With(auth.RequirePermission(auth.PermOrdersUpdate)).Post("/{id}/items", h.AddItems)
		r.With(auth.RequirePermission(auth.PermOrdersUpdate)).Delete("/{id}/items/{itemId}", h.CancelItem)
		r.With(auth.RequirePermission(auth.PermOrdersUpdate)).Patch("/{id}/status", h.UpdateStatus)
		r.With(auth.RequirePermission(auth.PermOrdersCancel)).Post("/{id}/cancel", h.CancelOrder)
	})

	r.Route("/held-bills", func(r chi.Router) {
		r.Use(auth.RequirePermission(auth.PermHeldBills))
		r.Get("/", h.ListHeld)
		r.Post("/", h.Hold)
		r.Get("/{id}", h.GetHeld)
		r.Delete("/{id}", h.DeleteHeld)
		r.With(auth.RequirePermission(auth.PermOrdersCreate)).Post("/{id}/recall", h.Recall)
	})
}

// ---------------- ORDERS ----------------

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := models.OrderFilter{
		Status:    q.Get("status"),
		OrderType: q.Get("order_type"),
		TableID:   q.Get("table_id"),
	}
	f.Limit, _ = strconv.Atoi(q.Get("limit"))
	f.Offset, _ = strconv.Atoi(q.Get("offset"))
	if q.Get("from") != "" || q.Get("to") != "" {
		from, to, err := utils.ParseDateRange(q.Get("from"), q.Get("to"), utils.Now())
		if err != nil {
			utils.WriteError(w, err)
			return
		}
		f.From, f.To = from, to
	}

	orders, err := h.Orders.List(r.Context(), f)
	if err != nil {
		utils.Fail(w, h.Logger, "ListOrders", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Orders retrieved", orders)
}

func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req models.PlaceOrderRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}

	o, err := h.Orders.PlaceOrder(r.Context(), auth.UserID(r.Context()), req)
	if err != nil {
		utils.Fail(w, h.Logger, "PlaceOrder", err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Order placed", o)
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.Orders.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		utils.Fail(w, h.Logger, "GetOrder", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Order retrieved", o)
}

func (h *Handler) AddItems(w http.ResponseWriter, r *http.Request) {
	var req models.AddItemsRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}

	o, err := h.Orders.AddItems(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		utils.Fail(w, h.Logger, "AddItems", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Items added", o)
}

func (h *Handler) CancelItem(w http.ResponseWriter, r *http.Request) {
	o, err := h.Orders.CancelItem(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "itemId"))
	if err != nil {
		utils.Fail(w, h.Logger, "CancelItem", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Item cancelled", o)
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
	if req.Status == models.OrderStatusCancelled && !auth.Can(principalRole(r), auth.PermOrdersCancel) {
		utils.WriteError(w, utils.Forbidden("missing permission "+auth.PermOrdersCancel))
		return
	}

	o, err := h.Orders.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		utils.Fail(w, h.Logger, "UpdateOrderStatus", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Order status updated", o)
}

func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	var req models.CancelOrderRequest
	if r.ContentLength != 0 {
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.WriteError(w, err)
			return
		}
		if err := utils.ValidateStruct(req); err != nil {
			utils.WriteError(w, err)
			return
		}
	}

	o, err := h.Orders.Cancel(r.Context(), chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		utils.Fail(w, h.Logger, "CancelOrder", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Order cancelled", o)
}

// ---------------- HELD BILLS ----------------

func (h *Handler) ListHeld(w http.ResponseWriter, r *http.Request) {
	held, err := h.Orders.ListHeld(r.Context())
	if err != nil {
		utils.Fail(w, h.Logger, "ListHeld", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Held bills retrieved", held)
}

func (h *Handler) Hold(w http.ResponseWriter, r *http.Request) {
	var req models.HoldRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}

	held, err := h.Orders.Hold(r.Context(), auth.UserID(r.Context()), req)
	if err != nil {
		utils.Fail(w, h.Logger, "Hold", err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Bill held", held)
}

func (h *Handler) GetHeld(w http.ResponseWriter, r *http.Request) {
	held, err := h.Orders.GetHeld(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		utils.Fail(w, h.Logger, "GetHeld", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Held bill retrieved", held)
}

func (h *Handler) DeleteHeld(w http.ResponseWriter, r *http.Request) {
	n, err := h.Orders.DeleteHeld(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		utils.Fail(w, h.Logger, "DeleteHeld", err)
		return
	}
	utils.WriteChanges(w, "Held bill deleted", n)
}

func (h *Handler) Recall(w http.ResponseWriter, r *http.Request) {
	o, err := h.Orders.Recall(r.Context(), auth.UserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		utils.Fail(w, h.Logger, "Recall", err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Held bill recalled", o)
}

func principalRole(r *http.Request) string {
	if p, ok := auth.PrincipalFrom(r.Context()); ok {
		return p.Role
	}
	return ""
}
