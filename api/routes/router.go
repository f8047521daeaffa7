package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tillpoint/tillpoint-backend/api/controllers"
	"github.com/tillpoint/tillpoint-backend/api/middleware"
	authsvc "github.com/tillpoint/tillpoint-backend/internal/auth"
	"github.com/tillpoint/tillpoint-backend/internal/catalog"
	checkoutsvc "github.com/tillpoint/tillpoint-backend/internal/checkout"
	"github.com/tillpoint/tillpoint-backend/internal/customers"
	"github.com/tillpoint/tillpoint-backend/internal/invoicing"
	"github.com/tillpoint/tillpoint-backend/internal/profile"
	"github.com/tillpoint/tillpoint-backend/internal/reports"
	"github.com/tillpoint/tillpoint-backend/internal/stock"
	"github.com/tillpoint/tillpoint-backend/pkg/auth/session"
	"github.com/tillpoint/tillpoint-backend/pkg/config"
	"github.com/tillpoint/tillpoint-backend/pkg/db"
	"github.com/tillpoint/tillpoint-backend/pkg/logger"
	pkgredis "github.com/tillpoint/tillpoint-backend/pkg/redis"
)

// Deps bundles everything the HTTP surface needs.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       db.Pinger
	Redis    *pkgredis.Client
	Sessions *session.Manager
	Registry *prometheus.Registry

	Auth      authsvc.Service
	Catalog   catalog.Service
	Checkout  checkoutsvc.Service
	Invoicing invoicing.Service
	Customers customers.Service
	Stock     stock.Service
	Profile   profile.Service
	Reports   reports.Service
}

// NewRouter assembles the chi router. The POS surface (lookup, checkout,
// invoices, customers) is open like the till screen; inventory management,
// profile, and reports sit behind the inventory session.
func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	var sessions middleware.SessionChecker
	if deps.Sessions != nil {
		sessions = deps.Sessions
	}
	var idempotencyStore pkgredis.IdempotencyStore
	var limiterStore middleware.RateLimiterStore
	var cachePinger db.Pinger
	if deps.Redis != nil {
		idempotencyStore = deps.Redis
		limiterStore = deps.Redis
		cachePinger = deps.Redis
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, cachePinger))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
	)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(loginPolicy, limiterStore, logg)).
				Post("/login", controllers.AuthLogin(deps.Auth, logg))
			r.With(middleware.Auth(cfg.JWT, sessions, logg)).
				Post("/logout", controllers.AuthLogout(deps.Auth, logg))
		})

		// The POS till surface stays open; the terminal sits inside the shop.
		r.Get("/products/lookup", controllers.ProductLookup(deps.Catalog, logg))
		r.With(middleware.Idempotency(idempotencyStore, logg)).
			Post("/checkout", controllers.Checkout(deps.Checkout, logg))

		r.Route("/invoices", func(r chi.Router) {
			r.Get("/", controllers.InvoiceList(deps.Invoicing, logg))
			r.Get("/{invoiceID}", controllers.InvoiceGet(deps.Invoicing, logg))
			r.Patch("/{invoiceID}/items/{itemID}", controllers.InvoiceItemUpdate(deps.Invoicing, logg))
			r.Delete("/{invoiceID}/items/{itemID}", controllers.InvoiceItemDelete(deps.Invoicing, logg))
		})

		r.Route("/customers", func(r chi.Router) {
			r.Get("/", controllers.CustomerList(deps.Customers, logg))
			r.Post("/", controllers.CustomerCreate(deps.Customers, logg))
			r.Get("/{customerID}", controllers.CustomerGet(deps.Customers, logg))
			r.Put("/{customerID}", controllers.CustomerUpdate(deps.Customers, logg))
			r.Delete("/{customerID}", controllers.CustomerDelete(deps.Customers, logg))
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, sessions, logg))

			r.Route("/products", func(r chi.Router) {
				r.Get("/", controllers.ProductList(deps.Catalog, logg))
				r.Post("/", controllers.ProductCreate(deps.Catalog, logg))
				r.Get("/{productID}", controllers.ProductGet(deps.Catalog, logg))
				r.Put("/{productID}", controllers.ProductUpdate(deps.Catalog, logg))
				r.Delete("/{productID}", controllers.ProductDelete(deps.Catalog, logg))
			})

			r.Route("/stock", func(r chi.Router) {
				r.Post("/adjust", controllers.StockAdjust(deps.Stock, logg))
				r.Post("/purchase", controllers.StockPurchase(deps.Stock, logg))
				r.Get("/movements", controllers.StockMovements(deps.Stock, logg))
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, sessions, logg))

			r.Route("/profile", func(r chi.Router) {
				r.Get("/", controllers.ProfileGet(deps.Profile, logg))
				r.Put("/", controllers.ProfileUpdate(deps.Profile, logg))
				r.Post("/password", controllers.ProfileSetPassword(deps.Profile, logg))
			})

			r.Route("/reports", func(r chi.Router) {
				r.Get("/dashboard", controllers.ReportDashboard(deps.Reports, logg))
				r.Get("/monthly", controllers.ReportMonthly(deps.Reports, logg))
				r.Get("/sales", controllers.ReportSales(deps.Reports, logg))
				r.Get("/sales/export.xlsx", controllers.ReportSalesExport(deps.Reports, logg))
			})
		})
	})

	return r
}
