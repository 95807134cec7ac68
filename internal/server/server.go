// Package server assembles the HTTP surface of the POS service.
package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"restaurant-pos/internal/admin"
	"restaurant-pos/internal/admin/admin_api"
	"restaurant-pos/internal/analytics"
	"restaurant-pos/internal/analytics/analytics_api"
	"restaurant-pos/internal/auth"
	"restaurant-pos/internal/auth/auth_api"
	"restaurant-pos/internal/billing"
	"restaurant-pos/internal/billing/billing_api"
	"restaurant-pos/internal/kot"
	"restaurant-pos/internal/kot/kot_api"
	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/menu"
	"restaurant-pos/internal/menu/menu_api"
	"restaurant-pos/internal/metrics"
	"restaurant-pos/internal/order"
	"restaurant-pos/internal/order/order_api"
	"restaurant-pos/internal/store"
	"restaurant-pos/internal/utils"
)

// Services holds everything the router dispatches to.
type Services struct {
	Store     *store.DB
	Auth      *auth.Service
	Limiter   *auth.RateLimiter
	Menu      *menu.Service
	Orders    *order.Service
	KOTs      *kot.Service
	Bills     *billing.Service
	Admin     *admin.Service
	Analytics *analytics.Service
}

type Options struct {
	CORSOrigins []string
	Logger      *logger.Logger
}

type routeGroup interface {
	Routes(r chi.Router)
}

type adminGroup interface {
	AdminRoutes(r chi.Router)
}

// NewRouter wires every handler onto a chi router.
func NewRouter(svc Services, opts Options) http.Handler {
	log := opts.Logger

	menuH := menu_api.NewHandler(svc.Menu, log)
	orderH := order_api.NewHandler(svc.Orders, log)
	kotH := kot_api.NewHandler(svc.KOTs, log)
	billH := billing_api.NewHandler(svc.Bills, log)
	adminH := admin_api.NewHandler(svc.Admin, log)
	reportH := analytics_api.NewHandler(svc.Analytics, log)

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(metrics.InstrumentHandler)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Stripe-Signature"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(requestLogger(log))

	r.Get("/health", healthHandler(svc.Store))
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/auth", auth_api.NewHandler(svc.Auth, svc.Limiter, log).Routes)

	r.Route("/api/restaurant", func(r chi.Router) {
		r.Use(svc.Auth.Middleware)
		for _, g := range []routeGroup{menuH, orderH, kotH, billH, adminH} {
			g.Routes(r)
		}
	})
	log.Info("ROUTER", "Restaurant routes registered under /api/restaurant")

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(svc.Auth.Middleware)
		for _, g := range []adminGroup{menuH, adminH, reportH} {
			g.AdminRoutes(r)
		}
	})
	log.Info("ROUTER", "Admin routes registered under /api/admin")

	billH.PublicRoutes(r)
	log.Info("ROUTER", "Public receipt and webhook endpoints registered")

	return r
}

func healthHandler(db *store.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			utils.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "database": "down"})
			return
		}
		utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok", "database": "up"})
	}
}

func requestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.LogAPI(r.Method, r.URL.Path, strconv.Itoa(ww.Status()), time.Since(start).String())
		})
	}
}
