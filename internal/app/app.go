package app

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/example/lodging-aggregator/internal/cache"
	"github.com/example/lodging-aggregator/internal/config"
	handlers "github.com/example/lodging-aggregator/internal/http"
	"github.com/example/lodging-aggregator/internal/inventory"
	"github.com/example/lodging-aggregator/internal/obs"
	"github.com/example/lodging-aggregator/internal/pricing"
	"github.com/example/lodging-aggregator/internal/providers"
	"github.com/example/lodging-aggregator/internal/routes"
	"github.com/example/lodging-aggregator/internal/search"
)

// App holds every dependency constructed at process start. Components are
// explicit fields passed by reference; there is no ambient global state.
type App struct {
	Router  http.Handler
	Service *search.Service
	Metrics *obs.Metrics
	Logger  *slog.Logger

	pgPool *pgxpool.Pool
	rdb    *redis.Client
}

// New wires the whole service from configuration. External backends are
// optional: without DATABASE_URL the local source is the seeded in-memory
// repo, without REDIS_ADDR the cache is in-process.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	customRegistry := prometheus.NewRegistry()
	metrics := obs.NewMetrics(customRegistry)

	app := &App{Metrics: metrics, Logger: logger}

	var repo inventory.Repository
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		app.pgPool = pool
		repo = inventory.NewPostgresRepo(pool)
		logger.Info("local inventory: postgres")
	} else {
		mem := inventory.NewMemoryRepo()
		inventory.Seed(mem)
		repo = mem
		logger.Info("local inventory: in-memory seed")
	}

	var store cache.Store
	if cfg.RedisAddr != "" {
		app.rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		store = cache.NewRedisStore(app.rdb)
		logger.Info("result cache: redis", "addr", cfg.RedisAddr)
	} else {
		store = cache.NewMemoryStore()
		logger.Info("result cache: in-memory")
	}
	resultCache := cache.NewResultCache(store, cache.TTLs{
		Search:       cfg.SearchCacheTTL,
		Detail:       cfg.DetailCacheTTL,
		Availability: cfg.AvailabilityCacheTTL,
	}, metrics, logger)

	provs := []providers.Provider{
		providers.NewLocalProvider(repo, cfg.MaxPageSize*4),
		providers.NewPartnerProvider(providers.PartnerConfig{
			BaseURL:       cfg.PartnerBaseURL,
			APIKey:        cfg.PartnerAPIKey,
			Timeout:       cfg.PartnerTimeout,
			MaxRetries:    cfg.PartnerMaxRetries,
			MaxCandidates: cfg.MaxPageSize,
		}, logger),
	}

	pricer := pricing.NewAdjuster(cfg.BaseMarkupPercent)
	coalescer := search.NewCoalescer(100*time.Millisecond, metrics)
	engine := search.NewEngine(provs, resultCache, coalescer, pricer, metrics, logger,
		cfg.PartnerTimeout+time.Second, cfg.MaxPageSize)
	svc := search.NewService(engine, resultCache, pricer, provs, logger)

	rl := search.NewIPRateLimiter(cfg.RateLimitPerMinute, time.Minute)
	h := handlers.NewHandler(svc, rl, metrics, cfg.DefaultPageSize)

	app.Router = routes.GetRoutes(h, metrics, logger)
	app.Service = svc
	return app, nil
}

// Close releases external connections.
func (a *App) Close() {
	if a.pgPool != nil {
		a.pgPool.Close()
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
}
