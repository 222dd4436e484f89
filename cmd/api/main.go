package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	validator "github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	redis "github.com/redis/go-redis/v9"

	"github.com/conectapr/backend-b2b/internal/auth"
	"github.com/conectapr/backend-b2b/internal/common"
	"github.com/conectapr/backend-b2b/internal/config"
	"github.com/conectapr/backend-b2b/internal/health"
	"github.com/conectapr/backend-b2b/internal/obs"
	"github.com/conectapr/backend-b2b/internal/product"
	"github.com/conectapr/backend-b2b/internal/quotation"
	"github.com/conectapr/backend-b2b/internal/quote"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Logger()

	if cfg.MetricsEnabled {
		obs.MustRegisterDomainMetrics(cfg.MetricsNamespace, nil)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "conecta-api"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	productStore := product.NewStore(pool, product.NewCache(redisClient, cfg.PriceCacheTTL))

	engine, err := quote.NewEngine(productStore, quote.DefaultPolicy())
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise pricing engine")
	}

	quotationStore := quotation.NewStore(pool)
	quotationSvc := &quotation.Service{
		Store:  quotationStore,
		Engine: engine,
		Lookup: productStore,
	}
	quotationHandler := &quotation.Handler{
		Svc:             quotationSvc,
		Engine:          engine,
		Validate:        validator.New(),
		DefaultPageSize: cfg.QuotationPageSize,
	}

	authMiddleware := auth.Middleware{Secret: []byte(cfg.JWTSecret), ClockSkew: 30 * time.Second}

	var httpMetrics *obs.HTTPMetrics
	if cfg.MetricsEnabled {
		httpMetrics = obs.NewHTTPMetrics(cfg.MetricsNamespace, obs.ParseBucketsCSV(cfg.MetricsBuckets), nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if cfg.MetricsEnabled && httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Total-Count"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if cfg.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	healthHandler := health.Handler{
		Checker: readinessChecker{db: pool, redis: redisClient},
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Route("/quotations", func(q chi.Router) {
			q.Use(authMiddleware.RequireAuth)
			q.Post("/", quotationHandler.Create)
			q.Get("/", quotationHandler.List)
			q.Post("/calculate", quotationHandler.Calculate)
			q.Get("/{id}", quotationHandler.Get)
			q.Get("/{id}/calculations", quotationHandler.Calculations)
		})

		v.Route("/admin/quotations", func(a chi.Router) {
			a.Use(authMiddleware.RequireRole(common.RoleAdmin))
			a.Get("/", quotationHandler.AdminList)
			a.Put("/{id}", quotationHandler.AdminUpdate)
			a.Post("/{id}/process", quotationHandler.AdminProcess)
		})
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	logger.Info().Str("addr", srv.Addr).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

type readinessChecker struct {
	db    *pgxpool.Pool
	redis *redis.Client
}

func (c readinessChecker) PingDB(ctx context.Context) error {
	return c.db.Ping(ctx)
}

func (c readinessChecker) PingRedis(ctx context.Context) error {
	return c.redis.Ping(ctx).Err()
}
