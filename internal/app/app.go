package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/catalog-search/internal/cache"
	"github.com/utafrali/catalog-search/internal/config"
	"github.com/utafrali/catalog-search/internal/event"
	handler "github.com/utafrali/catalog-search/internal/handler/http"
	"github.com/utafrali/catalog-search/internal/repository"
	"github.com/utafrali/catalog-search/internal/repository/memory"
	"github.com/utafrali/catalog-search/internal/repository/postgres"
	"github.com/utafrali/catalog-search/internal/service"
	"github.com/utafrali/catalog-search/pkg/database"
	"github.com/utafrali/catalog-search/pkg/health"
	pkgkafka "github.com/utafrali/catalog-search/pkg/kafka"
	"github.com/utafrali/catalog-search/pkg/tracing"
)

// App wires together all dependencies and runs the catalog search service.
type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	registry   *prometheus.Registry
	pool       *pgxpool.Pool
	redis      *redis.Client
	producer   *pkgkafka.Producer
	consumers  []*pkgkafka.Consumer
	tracerDown func(context.Context) error
	httpServer *http.Server
}

// stores groups the repositories of one store backend.
type stores struct {
	products   repository.ProductRepository
	brands     repository.BrandRepository
	categories repository.CategoryRepository
	candidates repository.CandidateStore
}

// NewApp creates a new application instance, initializing all dependencies.
// On error, whatever was already opened is closed again.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	a := &App{
		cfg:        cfg,
		logger:     logger,
		registry:   prometheus.NewRegistry(),
		tracerDown: func(context.Context) error { return nil },
	}
	defer func() {
		if err != nil {
			_ = a.close(context.Background())
		}
	}()

	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Tracing.
	tracerDown, err := tracing.InitTracer(ctx, cfg.Tracing())
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.tracerDown = tracerDown
	database.SetSlowQueryLogging(cfg.SlowQueryThreshold(), logger)

	healthHandler := health.NewHandler()

	// Catalog store.
	st, err := a.initStore(ctx, healthHandler)
	if err != nil {
		return nil, err
	}

	// Search result cache.
	resultCache, err := a.initCache(ctx, healthHandler)
	if err != nil {
		return nil, err
	}

	// Catalog events.
	var events service.CatalogEvents = event.Nop{}
	if cfg.KafkaEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.ProducerConfig{
			Brokers:      cfg.KafkaBrokers,
			BatchSize:    1,
			BatchTimeout: 10 * time.Millisecond,
			WriteTimeout: 10 * time.Second,
		}, logger)
		events = event.NewProducer(a.producer, logger)
		healthHandler.RegisterOptional("kafka", a.producer.Ping)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

		a.initConsumers(resultCache)
	}

	// Services.
	searchService := service.NewSearchService(st.candidates, st.products, resultCache, cfg.CacheTTL, logger)
	catalogService := service.NewCatalogService(service.CatalogConfig{
		Products:          st.products,
		Brands:            st.brands,
		Categories:        st.categories,
		Events:            events,
		Cache:             resultCache,
		InvalidateOnWrite: cfg.CacheInvalidateOnWrite,
		Logger:            logger,
	})

	// HTTP router.
	router := handler.NewRouter(handler.RouterConfig{
		ServiceName:    config.ServiceName,
		Search:         searchService,
		Catalog:        catalogService,
		Health:         healthHandler,
		Registry:       a.registry,
		AdminToken:     cfg.AdminToken,
		SearchMaxAge:   cfg.SearchMaxAge,
		RequestTimeout: cfg.RequestTimeout,
		PprofCIDRs:     cfg.PprofCIDRs,
		Logger:         logger,
	})
	if cfg.AdminToken == "" {
		logger.Warn("ADMIN_TOKEN is empty, catalog write endpoints are unauthenticated")
	}

	a.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return a, nil
}

func (a *App) initStore(ctx context.Context, healthHandler *health.Handler) (stores, error) {
	cfg, logger := a.cfg, a.logger

	if cfg.StoreBackend == config.StoreMemory {
		store := memory.New()
		logger.Info("in-memory catalog store initialized")
		return stores{
			products:   store.Products(),
			brands:     store.Brands(),
			categories: store.Categories(),
			candidates: store,
		}, nil
	}

	pgCfg := cfg.Postgres()
	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return stores{}, fmt.Errorf("connect to postgres: %w", err)
	}
	a.pool = pool

	if err := database.RunMigrations(ctx, pool, postgres.Migrations(), logger); err != nil {
		return stores{}, fmt.Errorf("run migrations: %w", err)
	}
	if err := database.RegisterPoolMetrics(a.registry, pool, config.ServiceName); err != nil {
		return stores{}, fmt.Errorf("register pool metrics: %w", err)
	}
	healthHandler.Register("postgres", pool.Ping)

	logger.Info("postgres catalog store initialized",
		slog.String("host", cfg.PostgresHost),
		slog.String("database", cfg.PostgresDB),
	)
	return stores{
		products:   postgres.NewProductRepository(pool),
		brands:     postgres.NewBrandRepository(pool),
		categories: postgres.NewCategoryRepository(pool),
		candidates: postgres.NewSearchRepository(pool),
	}, nil
}

func (a *App) initCache(ctx context.Context, healthHandler *health.Handler) (cache.ResultCache, error) {
	cfg, logger := a.cfg, a.logger
	metrics := cache.NewMetrics(a.registry)

	switch cfg.CacheBackend {
	case config.CacheNone:
		logger.Info("search result cache disabled")
		return cache.Nop{}, nil

	case config.CacheMemory:
		logger.Info("in-memory search result cache initialized",
			slog.Int("max_entries", cfg.CacheMaxEntries),
			slog.Duration("ttl", cfg.CacheTTL),
		)
		return cache.NewObserved(cache.NewMemoryCache(cfg.CacheMaxEntries), metrics), nil

	default:
		client, err := database.NewRedisClient(ctx, cfg.Redis())
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.redis = client
		redisCache := cache.NewRedisCache(client)
		healthHandler.RegisterOptional("redis", redisCache.Ping)

		logger.Info("redis search result cache initialized",
			slog.String("addr", cfg.RedisAddr),
			slog.Duration("ttl", cfg.CacheTTL),
		)
		breaker := cache.NewBreaker(redisCache, cache.DefaultBreakerConfig("search-cache"), metrics, logger)
		return cache.NewObserved(breaker, metrics), nil
	}
}

// initConsumers subscribes this replica to catalog events so that its
// in-process cache is purged on writes made through other replicas. A
// shared Redis cache is already purged by the writer.
func (a *App) initConsumers(resultCache cache.ResultCache) {
	cfg := a.cfg
	if !cfg.CacheInvalidateOnWrite || cfg.CacheBackend != config.CacheMemory {
		return
	}

	// One group per replica so every replica sees every event.
	groupID := fmt.Sprintf("%s-%s", cfg.KafkaConsumerGroup, uuid.NewString())
	invalidator := event.NewCacheInvalidator(resultCache, a.logger)

	for _, topic := range event.Topics() {
		a.consumers = append(a.consumers, pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
			Brokers:  cfg.KafkaBrokers,
			GroupID:  groupID,
			Topic:    topic,
			MinBytes: 1,
			MaxBytes: 1e6,
		}, invalidator.Handle, a.logger))
	}
	a.logger.Info("kafka cache invalidation consumers initialized",
		slog.String("group_id", groupID),
		slog.Int("topic_count", len(a.consumers)),
	)
}

// Handler returns the HTTP handler of the service.
func (a *App) Handler() http.Handler {
	return a.httpServer.Handler
}

// Run starts the HTTP server and Kafka consumers, blocking until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1+len(a.consumers))

	// Start Kafka consumers in background goroutines.
	for _, c := range a.consumers {
		go func() {
			if err := c.Start(ctx); err != nil {
				errCh <- fmt.Errorf("kafka consumer %s: %w", c.Topic(), err)
			}
		}()
	}

	// Start HTTP server.
	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case runErr = <-errCh:
		a.logger.Error("component failed, shutting down", slog.String("error", runErr.Error()))
	}

	return errors.Join(runErr, a.Shutdown())
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}
	errs = append(errs, a.close(ctx))

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// close releases every dependency opened by NewApp.
func (a *App) close(ctx context.Context) error {
	var errs []error

	for _, c := range a.consumers {
		if err := c.Close(); err != nil {
			a.logger.Error("kafka consumer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if err := a.tracerDown(ctx); err != nil {
		a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
