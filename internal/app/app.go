package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fleetroad/pricingservice/internal/cache"
	"github.com/fleetroad/pricingservice/internal/config"
	"github.com/fleetroad/pricingservice/internal/db"
	"github.com/fleetroad/pricingservice/internal/events"
	"github.com/fleetroad/pricingservice/internal/log"
	"github.com/fleetroad/pricingservice/internal/metrics"
	"github.com/fleetroad/pricingservice/internal/pricing"
	"github.com/fleetroad/pricingservice/internal/pricing/postgres"
	"github.com/fleetroad/pricingservice/internal/ratelimit"
	"github.com/fleetroad/pricingservice/internal/tracing"
	"github.com/fleetroad/pricingservice/internal/transport/httpapi"
)

// App represents the application
type App struct {
	config        *config.Config
	logger        *zap.Logger
	store         pricing.RuleStore
	engine        *pricing.Engine
	publisher     events.Publisher
	httpServer    *http.Server
	metricsServer *metrics.Server
	closers       []func()
}

// New creates a new application instance
func New(ctx context.Context, cfg *config.Config) (_ *App, err error) {
	if err := log.Init(cfg.Log.Level); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger := log.L(ctx)

	logger.Info("Initializing pricing service application",
		zap.String("app_name", cfg.AppName),
		zap.String("http_address", cfg.HTTP.Address),
		zap.Bool("postgres", cfg.Postgres.DSN != ""),
		zap.Bool("redis", cfg.Redis.Addr != ""),
		zap.Bool("kafka", cfg.Kafka.Enabled))

	a := &App{config: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	tcfg := tracing.DefaultConfig()
	tcfg.Enabled = cfg.Tracing.Enabled
	tcfg.ServiceName = cfg.AppName
	tcfg.Environment = cfg.Tracing.Environment
	tcfg.JaegerEndpoint = cfg.Tracing.JaegerEndpoint
	tcfg.SamplingRatio = cfg.Tracing.SamplingRatio
	shutdownTracing, err := tracing.Init(tcfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.closers = append(a.closers, shutdownTracing)

	store, closeStore, err := OpenRuleStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closeStore)

	var limiter ratelimit.RateLimiter
	if cfg.Redis.Addr != "" {
		c, err := cache.NewCache(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Warn("Redis initialization failed, continuing without snapshot cache",
				zap.Error(err),
				zap.String("redis_addr", cfg.Redis.Addr))
		} else {
			a.closers = append(a.closers, func() {
				if err := c.Close(); err != nil {
					logger.Error("Failed to close redis client", zap.Error(err))
				}
			})
			store = cache.NewCachedRepository(store, c, cfg.Redis.SnapshotTTL)
			if cfg.Limits.Enabled {
				limiter = ratelimit.NewRedisRateLimiter(c.Client(), ratelimit.Config{
					RequestsPerMinute: cfg.Limits.RequestsPerMinute,
				})
			}
		}
	}

	a.publisher = NewPublisher(cfg, logger)
	a.store = events.NewNotifyingStore(store, a.publisher)
	a.engine = pricing.NewEngine(a.store, EngineConfig(cfg))

	gin.SetMode(gin.ReleaseMode)
	handler := httpapi.NewHandler(a.engine, a.store, a.publisher)
	a.httpServer = &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      httpapi.NewRouter(handler, cfg.HTTP.WriteTimeout, limiter),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}
	a.metricsServer = metrics.NewServer(cfg.Metrics.Address, logger, func(ctx context.Context) error {
		_, err := a.store.Snapshot(ctx)
		return err
	})

	return a, nil
}

// OpenRuleStore opens the configured rule store: PostgreSQL when a DSN is set,
// otherwise an in-memory store. The returned func releases its resources.
func OpenRuleStore(ctx context.Context, cfg *config.Config) (pricing.RuleStore, func(), error) {
	if cfg.Postgres.DSN == "" {
		log.Warn(ctx, "No postgres DSN configured, using in-memory rule store")
		return pricing.NewMemoryRuleStore(), func() {}, nil
	}

	dbConfig := db.DefaultConfig(cfg.Postgres.DSN)
	dbConfig.MaxConns = cfg.Postgres.MaxConns
	pool, err := db.NewPool(ctx, dbConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	store, err := postgres.NewRuleStore(pool)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to create rule store: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to migrate rule store: %w", err)
	}

	return store, pool.Close, nil
}

// EngineConfig maps service configuration onto engine tunables.
func EngineConfig(cfg *config.Config) pricing.Config {
	return pricing.Config{
		TaxRate:          decimal.NewFromFloat(cfg.Pricing.TaxRate),
		DemandFreshness:  cfg.Pricing.DemandFreshness,
		BatchConcurrency: cfg.Pricing.BatchConcurrency,
		MaxScenarios:     cfg.Pricing.MaxScenarios,
	}
}

// NewPublisher returns a Kafka publisher when enabled. Connection failures degrade to a no-op publisher.
func NewPublisher(cfg *config.Config, logger *zap.Logger) events.Publisher {
	if !cfg.Kafka.Enabled {
		return events.NoopPublisher{}
	}
	p, err := events.NewSaramaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
	if err != nil {
		logger.Warn("Kafka initialization failed, continuing without pricing events",
			zap.Error(err),
			zap.Strings("brokers", cfg.Kafka.Brokers))
		return events.NoopPublisher{}
	}
	return p
}

// Engine returns the pricing engine
func (a *App) Engine() *pricing.Engine {
	return a.engine
}

// Store returns the rule store, including cache and event decorators
func (a *App) Store() pricing.RuleStore {
	return a.store
}

// Handler returns the HTTP API handler
func (a *App) Handler() http.Handler {
	return a.httpServer.Handler
}

// Run serves the API and metrics until ctx is done, then shuts down.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("Starting pricing service application")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("Starting pricing API server", zap.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return a.metricsServer.Start(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.HTTP.ShutdownTimeout)
		defer cancel()
		return a.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Shutdown gracefully shuts down the application
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("Shutting down pricing service application")

	var errs []error
	if err := a.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http server shutdown error: %w", err))
	}
	if err := a.metricsServer.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	a.close()

	a.logger.Info("Application shutdown complete")
	return errors.Join(errs...)
}

func (a *App) close() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Error("Failed to close event publisher", zap.Error(err))
		}
		a.publisher = nil
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
