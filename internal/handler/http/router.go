package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/catalog-search/internal/service"
	"github.com/utafrali/catalog-search/pkg/health"
	"github.com/utafrali/catalog-search/pkg/middleware"
)

// RouterConfig holds everything the router mounts.
type RouterConfig struct {
	ServiceName string
	Search      *service.SearchService
	Catalog     *service.CatalogService
	Health      *health.Handler
	// Registry receives the HTTP metrics and is served on /metrics.
	Registry *prometheus.Registry
	// AdminToken guards catalog writes; empty disables the check.
	AdminToken string
	// SearchMaxAge is the Cache-Control max-age of search responses.
	SearchMaxAge   time.Duration
	RequestTimeout time.Duration
	PprofCIDRs     []string
	Logger         *slog.Logger
}

// NewRouter creates a chi router with all catalog search routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(timeout))
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.NewHTTPMetrics(cfg.Registry, cfg.ServiceName).Middleware)

	// Health check endpoints
	r.Get("/health/live", cfg.Health.LivenessHandler())
	r.Get("/health/ready", cfg.Health.ReadinessHandler())
	r.Handle("/metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{Registry: cfg.Registry}))
	middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)

	// Public search endpoint
	searchHandler := NewSearchHandler(cfg.Search, logger)
	r.With(middleware.CacheControl(cfg.SearchMaxAge)).Get("/products", searchHandler.Search)

	// Catalog administration
	productHandler := NewProductHandler(cfg.Catalog, logger)
	brandHandler := NewBrandHandler(cfg.Catalog, logger)
	categoryHandler := NewCategoryHandler(cfg.Catalog, logger)
	cacheHandler := NewCacheHandler(cfg.Search, logger)
	admin := middleware.AdminToken(cfg.AdminToken)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products/{id}", productHandler.GetProduct)
		r.Get("/brands", brandHandler.ListBrands)
		r.Get("/categories", categoryHandler.ListCategories)

		r.Group(func(r chi.Router) {
			r.Use(admin)

			r.Post("/products", productHandler.CreateProduct)
			r.Put("/products/{id}", productHandler.UpdateProduct)
			r.Delete("/products/{id}", productHandler.DeleteProduct)

			r.Post("/brands", brandHandler.GetOrCreateBrand)
			r.Delete("/brands/{id}", brandHandler.DeleteBrand)

			r.Post("/categories", categoryHandler.GetOrCreateCategory)
			r.Delete("/categories/{id}", categoryHandler.DeleteCategory)

			r.Delete("/search/cache", cacheHandler.PurgeCache)
		})
	})

	return r
}
