package menu_api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"restaurant-pos/internal/auth"
	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/media"
	"restaurant-pos/internal/menu"
	"restaurant-pos/internal/models"
	"restaurant-pos/internal/store"
	"restaurant-pos/internal/utils"
)

type Handler struct {
	Menu   *menu.Service
	Logger *logger.Logger
}

func NewHandler(svc *menu.Service, log *logger.Logger) *Handler {
	return &Handler{Menu: svc, Logger: log}
}

// Routes mounts the POS menu under /api/restaurant.
func (h *Handler) Routes(r chi.Router) {
	r.With(auth.RequirePermission(auth.PermMenuRead)).Get("/menu", h.GetMenu)
}

// AdminRoutes mounts category and product management under /api/admin.
func (h *Handler) AdminRoutes(r chi.Router) {
	r.Route("/categories", func(r chi.Router) {
		r.With(auth.RequirePermission(auth.PermMenuRead)).Get("/", h.ListCategories)
		r.With(auth.RequirePermission(auth.PermMenuCreate)).Post("/", h.CreateCategory)
		r.With(auth.RequirePermission(auth.PermMenuUpdate)).Put("/{id}", h.UpdateCategory)
		r.With(auth.RequirePermission(auth.PermMenuDelete)).Delete("/{id}", h.DeleteCategory)
	})

	r.Route("/products", func(r chi.Router) {
		r.With(auth.RequirePermission(auth.PermMenuRead)).Get("/", h.ListItems)
		r.With(auth.RequirePermission(auth.PermMenuCreate)).Post("/", h.CreateItem)
		r.With(auth.RequirePermission(auth.PermMenuRead)).Get("/{id}", h.GetItem)
		r.With(auth.RequirePermission(auth.PermMenuUpdate)).Put("/{id}", h.UpdateItem)
		r.With(auth.RequirePermission(auth.PermMenuDelete)).Delete("/{id}", h.DeleteItem)
		r.With(auth.RequirePermission(auth.PermMenuUpdate)).Patch("/{id}/availability", h.SetAvailability)
		r.With(auth.RequirePermission(auth.PermMenuUpdate)).Put("/{id}/ingredients", h.ReplaceIngredients)
		r.With(auth.RequirePermission(auth.PermMenuUpdate)).Post("/{id}/image", h.UploadImage)
	})
}

func (h *Handler) GetMenu(w http.ResponseWriter, r *http.Request) {
	sections, err := h.Menu.Menu(r.Context())
	if err != nil {
		utils.Fail(w, h.Logger, "GetMenu", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Menu retrieved", sections)
}

// ---------------- CATEGORIES ----------------

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	all, _ := strconv.ParseBool(r.URL.Query().Get("all"))
	categories, err := h.Menu.ListCategories(r.Context(), all)
	if err != nil {
		utils.Fail(w, h.Logger, "ListCategories", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Categories retrieved", categories)
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req models.MenuCategoryRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	c, err := h.Menu.CreateCategory(r.Context(), req)
	if err != nil {
		utils.Fail(w, h.Logger, "CreateCategory", err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Category created", c)
}

func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req models.MenuCategoryRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	c, err := h.Menu.UpdateCategory(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		utils.Fail(w, h.Logger, "UpdateCategory", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Category updated", c)
}

func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	n, err := h.Menu.DeleteCategory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		utils.Fail(w, h.Logger, "DeleteCategory", err)
		return
	}
	utils.WriteChanges(w, "Category deleted", n)
}

// ---------------- PRODUCTS ----------------

func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	available, _ := strconv.ParseBool(q.Get("available"))
	items, err := h.Menu.ListItems(r.Context(), store.MenuFilter{
		CategoryID:    q.Get("category_id"),
		AvailableOnly: available,
		Search:        q.Get("q"),
	})
	if err != nil {
		utils.Fail(w, h.Logger, "ListItems", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Products retrieved", items)
}

func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.Menu.GetItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		utils.Fail(w, h.Logger, "GetItem", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Product retrieved", item)
}

func (h *Handler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req models.MenuItemRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	item, err := h.Menu.CreateItem(r.Context(), req)
	if err != nil {
		utils.Fail(w, h.Logger, "CreateItem", err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Product created", item)
}

func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req models.MenuItemRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	item, err := h.Menu.UpdateItem(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		utils.Fail(w, h.Logger, "UpdateItem", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Product updated", item)
}

func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	n, err := h.Menu.DeleteItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		utils.Fail(w, h.Logger, "DeleteItem", err)
		return
	}
	utils.WriteChanges(w, "Product deleted", n)
}

func (h *Handler) SetAvailability(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IsAvailable *bool `json:"is_available" validate:"required"`
	}
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		utils.WriteError(w, err)
		return
	}
	item, err := h.Menu.SetAvailability(r.Context(), chi.URLParam(r, "id"), *req.IsAvailable)
	if err != nil {
		utils.Fail(w, h.Logger, "SetAvailability", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Availability updated", item)
}

func (h *Handler) ReplaceIngredients(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Ingredients []models.IngredientRequest `json:"ingredients"`
	}
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	lines, err := h.Menu.ReplaceIngredients(r.Context(), chi.URLParam(r, "id"), req.Ingredients)
	if err != nil {
		utils.Fail(w, h.Logger, "ReplaceIngredients", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Recipe updated", lines)
}

// UploadImage accepts a multipart form with an "image" file field.
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, media.MaxImageSize+1<<20)
	if err := r.ParseMultipartForm(media.MaxImageSize); err != nil {
		utils.WriteError(w, utils.Validation("invalid multipart form: %v", err))
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		utils.WriteError(w, utils.Validation("image file is required"))
		return
	}
	defer file.Close()

	item, err := h.Menu.UploadImage(r.Context(), chi.URLParam(r, "id"), header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		utils.Fail(w, h.Logger, "UploadImage", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Image uploaded", item)
}
