package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/VishalVrk/rfid-cart/internal/service"
	"github.com/VishalVrk/rfid-cart/pkg/health"
	"github.com/VishalVrk/rfid-cart/pkg/middleware"
)

// ServiceName labels request metrics and spans.
const ServiceName = "trolley-storefront"

const (
	defaultRequestTimeout = 15 * time.Second
	productCacheSeconds   = 30
)

// RouterConfig carries the services and settings the router needs.
type RouterConfig struct {
	Cart     *service.CartSession
	Catalog  *service.CatalogService
	Payments *service.PaymentService
	Accounts *service.AccountService
	Health   *health.Handler

	// AdminToken and AdminJWTSecret guard /api/v1/admin. Leaving both empty
	// disables the admin API.
	AdminToken     string
	AdminJWTSecret string
	CORS           middleware.CORSConfig
	RequestTimeout time.Duration
	PprofCIDRs     []string

	// RateLimitRPS bounds public requests per client IP, zero disables it.
	RateLimitRPS   float64
	RateLimitBurst int
}

// NewRouter creates a chi router with all storefront routes registered.
func NewRouter(cfg RouterConfig, logger *slog.Logger) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(ServiceName))
	r.Use(middleware.Tracing(ServiceName))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", cfg.Health.LivenessHandler())
	r.Get("/health/ready", cfg.Health.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())
	if len(cfg.PprofCIDRs) > 0 {
		middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)
	}

	cartHandler := NewCartHandler(cfg.Cart, logger)
	productHandler := NewProductHandler(cfg.Catalog, logger)
	paymentHandler := NewPaymentHandler(cfg.Payments, logger)
	accountHandler := NewAccountHandler(cfg.Accounts, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(chimw.Timeout(cfg.RequestTimeout))
		r.Use(ContentTypeJSON)
		r.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst, logger))

		r.Route("/cart", func(r chi.Router) {
			r.Use(middleware.NoStore)

			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)
			r.Post("/sync", cartHandler.SyncCart)
			r.Post("/items", cartHandler.AddItem)
			r.Put("/items/{productId}", cartHandler.UpdateQuantity)
			r.Delete("/items/{productId}", cartHandler.RemoveItem)
		})

		r.With(middleware.CacheControl(productCacheSeconds)).Route("/products", func(r chi.Router) {
			r.Get("/", productHandler.ListProducts)
			r.Get("/{id}", productHandler.GetProduct)
		})

		r.With(middleware.NoStore).Post("/checkout", paymentHandler.Checkout)
		r.With(middleware.NoStore).Get("/payments/{id}", paymentHandler.GetPayment)

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.NoStore)
			r.Use(middleware.Auth(adminValidator(cfg)))
			r.Use(middleware.RequireRole(middleware.RoleAdmin))

			r.Post("/products", productHandler.CreateProduct)
			r.Put("/products/{id}", productHandler.UpdateProduct)
			r.Delete("/products/{id}", productHandler.DeleteProduct)

			r.Get("/payments", paymentHandler.ListPayments)
			r.Put("/payments/{id}/status", paymentHandler.UpdateStatus)

			r.Get("/payment-accounts", accountHandler.ListAccounts)
			r.Get("/payment-accounts/default", accountHandler.GetDefaultAccount)
			r.Post("/payment-accounts", accountHandler.CreateAccount)
			r.Put("/payment-accounts/{id}", accountHandler.UpdateAccount)
			r.Delete("/payment-accounts/{id}", accountHandler.DeleteAccount)
		})
	})

	return r
}

func adminValidator(cfg RouterConfig) middleware.TokenValidator {
	static := middleware.StaticTokens(map[string]middleware.Claims{
		cfg.AdminToken: {UserID: "admin", Role: middleware.RoleAdmin},
	})
	if cfg.AdminJWTSecret == "" {
		return static
	}
	return middleware.AnyOf(static, middleware.JWTValidator([]byte(cfg.AdminJWTSecret)))
}
