package menu_api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-pos/internal/auth"
	"restaurant-pos/internal/database/dbtest"
	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/media"
	"restaurant-pos/internal/menu"
	"restaurant-pos/internal/models"
	"restaurant-pos/internal/store"
)

type envelope struct {
	Success bool            `json:"success"`
	Code    string          `json:"code"`
	Changes *int64          `json:"changes"`
	Data    json.RawMessage `json:"data"`
}

func newRouter(t *testing.T, role string) http.Handler {
	t.Helper()
	bdb := dbtest.New(t)
	log := logger.NewWithWriter(io.Discard)
	h := NewHandler(menu.NewService(store.New(bdb), media.NewMemoryStorage("http://pos.local/media"), log), log)
	user := dbtest.SeedUser(t, bdb, "chef", role)

	withUser := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := &models.Principal{UserID: user.ID, Username: user.Username, Role: role}
			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
		})
	}

	r := chi.NewRouter()
	r.Route("/api/restaurant", func(r chi.Router) {
		r.Use(withUser)
		h.Routes(r)
	})
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(withUser)
		h.AdminRoutes(r)
	})
	return r
}

func do(t *testing.T, router http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func createItem(t *testing.T, router http.Handler) models.MenuItem {
	t.Helper()
	rec, env := do(t, router, http.MethodPost, "/api/admin/categories", map[string]interface{}{"name": "Mains", "station": "kitchen"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var cat models.MenuCategory
	require.NoError(t, json.Unmarshal(env.Data, &cat))

	rec, env = do(t, router, http.MethodPost, "/api/admin/products", map[string]interface{}{
		"category_id": cat.ID, "name": "Burger", "price": 1250,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var item models.MenuItem
	require.NoError(t, json.Unmarshal(env.Data, &item))
	return item
}

func TestMenuShowsOnlyAvailableItems(t *testing.T) {
	router := newRouter(t, models.RoleManager)
	item := createItem(t, router)

	rec, env := do(t, router, http.MethodGet, "/api/restaurant/menu", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var sections []models.MenuSection
	require.NoError(t, json.Unmarshal(env.Data, &sections))
	require.Len(t, sections, 1)
	require.Len(t, sections[0].Items, 1)
	assert.Equal(t, int64(1250), sections[0].Items[0].Price)

	rec, _ = do(t, router, http.MethodPatch, "/api/admin/products/"+item.ID+"/availability", map[string]bool{"is_available": false})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env = do(t, router, http.MethodGet, "/api/restaurant/menu", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &sections))
	assert.Empty(t, sections)
}

func TestProductValidation(t *testing.T) {
	router := newRouter(t, models.RoleManager)

	rec, env := do(t, router, http.MethodPost, "/api/admin/products", map[string]interface{}{
		"category_id": "missing", "name": "Ghost", "price": 100,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation", env.Code)

	item := createItem(t, router)
	rec, _ = do(t, router, http.MethodPut, "/api/admin/products/"+item.ID, map[string]interface{}{
		"category_id": item.CategoryID, "name": "Burger", "price": 0,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, router, http.MethodPatch, "/api/admin/products/"+item.ID+"/availability", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteProductReportsChanges(t *testing.T) {
	router := newRouter(t, models.RoleManager)
	item := createItem(t, router)

	rec, env := do(t, router, http.MethodDelete, "/api/admin/products/"+item.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, env.Changes)
	assert.Equal(t, int64(1), *env.Changes)

	rec, env = do(t, router, http.MethodDelete, "/api/admin/products/"+item.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, env.Changes)
	assert.Zero(t, *env.Changes)
}

func TestWaiterCannotEditMenu(t *testing.T) {
	router := newRouter(t, models.RoleWaiter)

	rec, _ := do(t, router, http.MethodPost, "/api/admin/categories", map[string]string{"name": "Drinks"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = do(t, router, http.MethodGet, "/api/restaurant/menu", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUploadImage(t *testing.T) {
	router := newRouter(t, models.RoleManager)
	item := createItem(t, router)

	upload := func(contentType string) *httptest.ResponseRecorder {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", `form-data; name="image"; filename="burger.png"`)
		hdr.Set("Content-Type", contentType)
		part, err := mw.CreatePart(hdr)
		require.NoError(t, err)
		_, err = part.Write([]byte("\x89PNG fake"))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/admin/products/%s/image", item.ID), &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	rec := upload("application/pdf")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = upload("image/png")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	var updated models.MenuItem
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	assert.Contains(t, updated.ImageURL, "http://pos.local/media/menu/"+item.ID)
}
