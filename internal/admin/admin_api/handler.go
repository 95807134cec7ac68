package admin_api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"restaurant-pos/internal/admin"
	"restaurant-pos/internal/auth"
	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/models"
	"restaurant-pos/internal/utils"
)

type Handler struct {
	Admin  *admin.Service
	Logger *logger.Logger
}

func NewHandler(svc *admin.Service, log *logger.Logger) *Handler {
	return &Handler{Admin: svc, Logger: log}
}

// Routes mounts the floor view of tables under /api/restaurant.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/tables", func(r chi.Router) {
		r.With(auth.RequirePermission(auth.PermTablesRead)).Get("/", h.ListTables)
		r.With(auth.RequirePermission(auth.PermTablesUpdate)).Patch("/{id}/status", h.SetTableStatus)
		r.With(auth.RequirePermission(auth.PermTablesRead)).Get("/{id}/qr", h.TableQR)
	})
}

// AdminRoutes mounts back-office management under /api/admin.
func (h *Handler) AdminRoutes(r chi.Router) {
	r.Route("/tables", func(r chi.Router) {
		r.With(auth.RequirePermission(auth.PermTablesRead)).Get("/", h.ListTables)
		r.With(auth.RequirePermission(auth.PermTablesManage)).Post("/", h.CreateTable)
		r.With(auth.RequirePermission(auth.PermTablesRead)).Get("/{id}", h.GetTable)
		r.With(auth.RequirePermission(auth.PermTablesManage)).Put("/{id}", h.UpdateTable)
		r.With(auth.RequirePermission(auth.PermTablesManage)).Delete("/{id}", h.DeleteTable)
		r.With(auth.RequirePermission(auth.PermTablesUpdate)).Patch("/{id}/status", h.SetTableStatus)
		r.With(auth.RequirePermission(auth.PermTablesRead)).Get("/{id}/qr", h.TableQR)
	})

	r.Route("/customers", func(r chi.Router) {
		r.With(auth.RequirePermission(auth.PermCustomersRead)).Get("/", h.ListCustomers)
		r.With(auth.RequirePermission(auth.PermCustomersManage)).Post("/", h.CreateCustomer)
		r.With(auth.RequirePermission(auth.PermCustomersRead)).Get("/{id}", h.GetCustomer)
		r.With(auth.RequirePermission(auth.PermCustomersManage)).Put("/{id}", h.UpdateCustomer)
		r.With(auth.RequirePermission(auth.PermCustomersManage)).Delete("/{id}", h.DeleteCustomer)
		r.With(auth.RequirePermission(auth.PermCustomersRead)).Get("/{id}/payments", h.CustomerPayments)
		r.With(auth.RequirePermission(auth.PermCustomersManage)).Post("/{id}/payments", h.SettleCredit)
	})

	r.Route("/inventory", func(r chi.Router) {
		r.With(auth.RequirePermission(auth.PermInventoryRead)).Get("/", h.ListInventory)
		r.With(auth.RequirePermission(auth.PermInventoryManage)).Post("/", h.CreateInventoryItem)
		r.With(auth.RequirePermission(auth.PermInventoryRead)).Get("/low-stock", h.LowStock)
		r.With(auth.RequirePermission(auth.PermInventoryRead)).Get("/{id}", h.GetInventoryItem)
		r.With(auth.RequirePermission(auth.PermInventoryManage)).Put("/{id}", h.UpdateInventoryItem)
		r.With(auth.RequirePermission(auth.PermInventoryManage)).Delete("/{id}", h.DeleteInventoryItem)
		r.With(auth.RequirePermission(auth.PermInventoryManage)).Post("/{id}/adjust", h.AdjustStock)
		r.With(auth.RequirePermission(auth.PermInventoryRead)).Get("/{id}/movements", h.StockMovements)
	})

	r.Route("/employees", func(r chi.Router) {
		r.Use(auth.RequirePermission(auth.PermEmployeesManage))
		r.Get("/", h.ListEmployees)
		r.Post("/", h.CreateEmployee)
		r.Get("/{id}", h.GetEmployee)
		r.Put("/{id}", h.UpdateEmployee)
		r.Put("/{id}/pin", h.SetEmployeePIN)
	})

	r.Route("/settings", func(r chi.Router) {
		r.With(auth.RequirePermission(auth.PermSettingsRead)).Get("/", h.GetSettings)
		r.With(auth.RequirePermission(auth.PermSettingsManage)).Put("/", h.UpdateSettings)
	})
}

// ---------------- TABLES ----------------

func (h *Handler) ListTables(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	all, _ := strconv.ParseBool(q.Get("all"))
	tables, err := h.Admin.ListTables(r.Context(), all, q.Get("status"))
	if err != nil {
		utils.Fail(w, h.Logger, "ListTables", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Tables retrieved", tables)
}

func (h *Handler) GetTable(w http.ResponseWriter, r *http.Request) {
	t, err := h.Admin.GetTable(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		utils.Fail(w, h.Logger, "GetTable", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Table retrieved", t)
}

func (h *Handler) CreateTable(w http.ResponseWriter, r *http.Request) {
	var req models.TableRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	t, err := h.Admin.CreateTable(r.Context(), req)
	if err != nil {
		utils.Fail(w, h.Logger, "CreateTable", err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Table created", t)
}

func (h *Handler) UpdateTable(w http.ResponseWriter, r *http.Request) {
	var req models.TableRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	t, err := h.Admin.UpdateTable(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		utils.Fail(w, h.Logger, "UpdateTable", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Table updated", t)
}

func (h *Handler) DeleteTable(w http.ResponseWriter, r *http.Request) {
	n, err := h.Admin.DeleteTable(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		utils.Fail(w, h.Logger, "DeleteTable", err)
		return
	}
	utils.WriteChanges(w, "Table deleted", n)
}

func (h *Handler) SetTableStatus(w http.ResponseWriter, r *http.Request) {
	var req models.StatusRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		utils.WriteError(w, err)
		return
	}
	t, err := h.Admin.SetTableStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		utils.Fail(w, h.Logger, "SetTableStatus", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Table status updated", t)
}

func (h *Handler) TableQR(w http.ResponseWriter, r *http.Request) {
	png, err := h.Admin.TableQR(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		utils.Fail(w, h.Logger, "TableQR", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// ---------------- CUSTOMERS ----------------

func (h *Handler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	customers, err := h.Admin.ListCustomers(r.Context(), q.Get("q"), limit, offset)
	if err != nil {
		utils.Fail(w, h.Logger, "ListCustomers", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Customers retrieved", customers)
}

func (h *Handler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	c, err := h.Admin.GetCustomer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		utils.Fail(w, h.Logger, "GetCustomer", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Customer retrieved", c)
}

func (h *Handler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req models.CustomerRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	c, err := h.Admin.CreateCustomer(r.Context(), req)
	if err != nil {
		utils.Fail(w, h.Logger, "CreateCustomer", err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Customer created", c)
}

func (h *Handler) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	var req models.CustomerRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	c, err := h.Admin.UpdateCustomer(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		utils.Fail(w, h.Logger, "UpdateCustomer", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Customer updated", c)
}

func (h *Handler) DeleteCustomer(w http.ResponseWriter, r *http.Request) {
	n, err := h.Admin.DeleteCustomer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		utils.Fail(w, h.Logger, "DeleteCustomer", err)
		return
	}
	utils.WriteChanges(w, "Customer deleted", n)
}

func (h *Handler) CustomerPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.Admin.CustomerPayments(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		utils.Fail(w, h.Logger, "CustomerPayments", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Customer payments retrieved", payments)
}

func (h *Handler) SettleCredit(w http.ResponseWriter, r *http.Request) {
	var req models.CustomerPaymentRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	c, err := h.Admin.SettleCredit(r.Context(), auth.UserID(r.Context()), chi.URLParam(r, "id"), req)
	if err != nil {
		utils.Fail(w, h.Logger, "SettleCredit", err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Credit payment recorded", c)
}

// ---------------- INVENTORY ----------------

func (h *Handler) ListInventory(w http.ResponseWriter, r *http.Request) {
	items, err := h.Admin.ListInventory(r.Context())
	if err != nil {
		utils.Fail(w, h.Logger, "ListInventory", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Inventory retrieved", items)
}

func (h *Handler) LowStock(w http.ResponseWriter, r *http.Request) {
	items, err := h.Admin.LowStock(r.Context())
	if err != nil {
		utils.Fail(w, h.Logger, "LowStock", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Low stock items retrieved", items)
}

func (h *Handler) GetInventoryItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.Admin.GetInventoryItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		utils.Fail(w, h.Logger, "GetInventoryItem", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Inventory item retrieved", item)
}

func (h *Handler) CreateInventoryItem(w http.ResponseWriter, r *http.Request) {
	var req models.InventoryItemRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	item, err := h.Admin.CreateInventoryItem(r.Context(), req)
	if err != nil {
		utils.Fail(w, h.Logger, "CreateInventoryItem", err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Inventory item created", item)
}

func (h *Handler) UpdateInventoryItem(w http.ResponseWriter, r *http.Request) {
	var req models.InventoryItemRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	item, err := h.Admin.UpdateInventoryItem(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		utils.Fail(w, h.Logger, "UpdateInventoryItem", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Inventory item updated", item)
}

func (h *Handler) DeleteInventoryItem(w http.ResponseWriter, r *http.Request) {
	n, err := h.Admin.DeleteInventoryItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		utils.Fail(w, h.Logger, "DeleteInventoryItem", err)
		return
	}
	utils.WriteChanges(w, "Inventory item deleted", n)
}

func (h *Handler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	var req models.StockAdjustRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	item, err := h.Admin.AdjustStock(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		utils.Fail(w, h.Logger, "AdjustStock", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Stock adjusted", item)
}

func (h *Handler) StockMovements(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	movements, err := h.Admin.StockMovements(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		utils.Fail(w, h.Logger, "StockMovements", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Stock movements retrieved", movements)
}

// ---------------- EMPLOYEES ----------------

func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	users, err := h.Admin.ListEmployees(r.Context())
	if err != nil {
		utils.Fail(w, h.Logger, "ListEmployees", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Employees retrieved", users)
}

func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	u, err := h.Admin.GetEmployee(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		utils.Fail(w, h.Logger, "GetEmployee", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Employee retrieved", u)
}

func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req models.EmployeeRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	u, err := h.Admin.CreateEmployee(r.Context(), req)
	if err != nil {
		utils.Fail(w, h.Logger, "CreateEmployee", err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Employee created", u)
}

func (h *Handler) UpdateEmployee(w http.ResponseWriter, r *http.Request) {
	var req models.EmployeeUpdateRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	u, err := h.Admin.UpdateEmployee(r.Context(), auth.UserID(r.Context()), chi.URLParam(r, "id"), req)
	if err != nil {
		utils.Fail(w, h.Logger, "UpdateEmployee", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Employee updated", u)
}

func (h *Handler) SetEmployeePIN(w http.ResponseWriter, r *http.Request) {
	var req models.SetPINRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	if err := h.Admin.SetEmployeePIN(r.Context(), chi.URLParam(r, "id"), req.PIN); err != nil {
		utils.Fail(w, h.Logger, "SetEmployeePIN", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "PIN updated", nil)
}

// ---------------- SETTINGS ----------------

func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.Admin.Settings(r.Context())
	if err != nil {
		utils.Fail(w, h.Logger, "GetSettings", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Settings retrieved", settings)
}

func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req models.SettingsUpdateRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	settings, err := h.Admin.UpdateSettings(r.Context(), req)
	if err != nil {
		utils.Fail(w, h.Logger, "UpdateSettings", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Settings updated", settings)
}
