// Package http exposes the storefront API over HTTP.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/cimillas/storefront/services/api/internal/ratelimit"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const defaultRequestTimeout = 15 * time.Second

// RouterConfig carries everything the router needs. Limiter may be nil.
type RouterConfig struct {
	Catalog        ProductCatalog
	Orders         OrderService
	Tokens         TokenVerifier
	Limiter        ratelimit.Limiter
	CORSOrigins    []string
	Logger         *slog.Logger
	RequestTimeout time.Duration

	// TrustProxyHeaders takes the client address from X-Forwarded-For or
	// X-Real-IP. Enable it only behind a proxy that overwrites them.
	TrustProxyHeaders bool
}

// OrderService is the combined order surface used by the router.
type OrderService interface {
	OrderPlacer
	OrderLister
}

func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if cfg.TrustProxyHeaders {
		r.Use(middleware.RealIP)
	}
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(CORS(cfg.CORSOrigins))
	r.Use(middleware.Timeout(timeout))

	r.NotFound(NotFoundHandler().ServeHTTP)
	r.MethodNotAllowed(MethodNotAllowedHandler().ServeHTTP)

	r.Get("/health", HealthHandler)
	r.Head("/health", HealthHandler)

	r.Route("/products", func(r chi.Router) {
		r.Get("/", HandleListProducts(cfg.Catalog, logger))
		r.Post("/generate", HandleGenerateProducts(cfg.Catalog, logger))
		r.Get("/{productId}", HandleGetProduct(cfg.Catalog, logger))
	})

	r.Route("/orders", func(r chi.Router) {
		r.With(RateLimit(cfg.Limiter, logger)).Post("/", HandlePlaceOrder(cfg.Orders, logger))
		r.With(Authenticate(cfg.Tokens)).Get("/me", HandleMyOrders(cfg.Orders, logger))
		r.Get("/{userId}", HandleUserOrders(cfg.Orders, logger))
	})

	return r
}
