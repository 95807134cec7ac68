package billing_api

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"restaurant-pos/internal/auth"
	"restaurant-pos/internal/billing"
	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/models"
	"restaurant-pos/internal/utils"
)

// maxWebhookBytes caps Stripe webhook bodies.
const maxWebhookBytes = 65536

type Handler struct {
	Bills  *billing.Service
	Logger *logger.Logger
}

func NewHandler(svc *billing.Service, log *logger.Logger) *Handler {
	return &Handler{Bills: svc, Logger: log}
}

// Routes mounts bills under /api/restaurant.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/bills", func(r chi.Router) {
		r.With(auth.RequirePermission(auth.PermBillsRead)).Get("/", h.ListBills)
		r.With(auth.RequirePermission(auth.PermBillsCreate)).Post("/", h.GenerateBill)
		r.With(auth.RequirePermission(auth.PermBillsRead)).Get("/{id}", h.GetBill)
		r.With(auth.RequirePermission(auth.PermBillsUpdate)).Post("/{id}/payments", h.AddPayment)
		r.With(auth.RequirePermission(auth.PermBillsVoid)).Post("/{id}/void", h.VoidBill)
		r.With(auth.RequirePermission(auth.PermBillsRead)).Get("/{id}/qr", h.ReceiptQR)
		r.With(auth.RequirePermission(auth.PermBillsUpdate)).Post("/{id}/payment-intent", h.CreatePaymentIntent)
		r.With(auth.RequirePermission(auth.PermBillsUpdate)).Delete("/{id}/payment-intent", h.CancelPaymentIntent)
	})
}

// PublicRoutes mounts the unauthenticated receipt and Stripe webhook endpoints at the root.
func (h *Handler) PublicRoutes(r chi.Router) {
	r.Get("/api/public/receipts/{billNumber}", h.PublicReceipt)
	r.Post("/api/payments/stripe/webhook", h.StripeWebhook)
}

func (h *Handler) ListBills(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	f := models.BillFilter{Status: q.Get("status"), Limit: limit, Offset: offset}
	if q.Get("from") != "" || q.Get("to") != "" {
		from, to, err := utils.ParseDateRange(q.Get("from"), q.Get("to"), utils.Now())
		if err != nil {
			utils.WriteError(w, err)
			return
		}
		f.From, f.To = from, to
	}

	bills, err := h.Bills.List(r.Context(), f)
	if err != nil {
		utils.Fail(w, h.Logger, "ListBills", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Bills retrieved", bills)
}

func (h *Handler) GetBill(w http.ResponseWriter, r *http.Request) {
	b, err := h.Bills.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		utils.Fail(w, h.Logger, "GetBill", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Bill retrieved", b)
}

func (h *Handler) GenerateBill(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateBillRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	b, err := h.Bills.GenerateBill(r.Context(), auth.UserID(r.Context()), req)
	if err != nil {
		utils.Fail(w, h.Logger, "GenerateBill", err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Bill generated", b)
}

func (h *Handler) AddPayment(w http.ResponseWriter, r *http.Request) {
	var req models.PaymentRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	res, err := h.Bills.AddPayment(r.Context(), auth.UserID(r.Context()), chi.URLParam(r, "id"), req)
	if err != nil {
		utils.Fail(w, h.Logger, "AddPayment", err)
		return
	}
	if res.Duplicate {
		utils.WriteSuccess(w, http.StatusOK, "Payment already recorded", res)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Payment recorded", res)
}

func (h *Handler) VoidBill(w http.ResponseWriter, r *http.Request) {
	b, err := h.Bills.Void(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		utils.Fail(w, h.Logger, "VoidBill", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Bill voided", b)
}

func (h *Handler) ReceiptQR(w http.ResponseWriter, r *http.Request) {
	png, err := h.Bills.ReceiptQR(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		utils.Fail(w, h.Logger, "ReceiptQR", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

func (h *Handler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	resp, err := h.Bills.CreatePaymentIntent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		utils.Fail(w, h.Logger, "CreatePaymentIntent", err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Payment intent created", resp)
}

func (h *Handler) CancelPaymentIntent(w http.ResponseWriter, r *http.Request) {
	b, err := h.Bills.CancelPaymentIntent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		utils.Fail(w, h.Logger, "CancelPaymentIntent", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Payment intent cancelled", b)
}

func (h *Handler) PublicReceipt(w http.ResponseWriter, r *http.Request) {
	receipt, err := h.Bills.Receipt(r.Context(), chi.URLParam(r, "billNumber"), r.URL.Query().Get("sig"))
	if err != nil {
		utils.Fail(w, h.Logger, "PublicReceipt", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Receipt retrieved", receipt)
}

// StripeWebhook acknowledges every verified event with 200 so Stripe stops retrying.
func (h *Handler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		utils.WriteError(w, utils.Validation("webhook body too large or unreadable"))
		return
	}

	if err := h.Bills.HandleStripeWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature")); err != nil {
		utils.Fail(w, h.Logger, "StripeWebhook", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Webhook processed", nil)
}
