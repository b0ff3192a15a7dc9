package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	leaderboardapp "github.com/sellerboard/backend/internal/application/leaderboard"
	"github.com/sellerboard/backend/internal/infrastructure/auth"
	"github.com/sellerboard/backend/internal/infrastructure/cache"
	"github.com/sellerboard/backend/internal/infrastructure/config"
	"github.com/sellerboard/backend/internal/infrastructure/logger"
	"github.com/sellerboard/backend/internal/infrastructure/persistence"
	"github.com/sellerboard/backend/internal/infrastructure/telemetry"
	"github.com/sellerboard/backend/internal/interfaces/http/handler"
	"github.com/sellerboard/backend/internal/interfaces/http/middleware"
	"github.com/sellerboard/backend/internal/interfaces/http/router"
	"go.uber.org/zap"

	_ "github.com/sellerboard/backend/docs"
)

//	@title			Sellerboard API
//	@version		1.0
//	@description	Seller leaderboard read service: ranked seller metrics as JSON and as a server-rendered page.

//	@contact.name	API Support

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := logger.ConfigFor(cfg.App.Env, cfg.Log.Level, cfg.Log.Output, cfg.App.Name)
	if cfg.Log.Format != "" && !cfg.IsProduction() {
		logCfg.Format = cfg.Log.Format
	}
	bootLog, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	tel, err := setupTelemetry(ctx, cfg, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize telemetry", zap.Error(err))
	}

	// Re-create the logger so records are also exported over OTLP
	log := bootLog
	if tel.logs.IsEnabled() {
		log, err = logger.New(logCfg, tel.logs.NewZapCore(logger.ParseLevel(cfg.Log.Level)))
		if err != nil {
			bootLog.Fatal("Failed to attach OTEL log core", zap.Error(err))
		}
	}
	defer logger.Sync(log)

	log.Info("Starting Sellerboard",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", telemetry.ServiceVersion),
	)

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh),
	)
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
	}, log)
	if err := dbTracing.Register(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	dbMetrics, err := telemetry.RegisterDBMetrics(db.DB, tel.metrics, telemetry.DefaultDBMetricsConfig(), log)
	if err != nil {
		log.Fatal("Failed to register database metrics", zap.Error(err))
	}
	if dbMetrics != nil {
		dbMetrics.StartPoolStatsCollection(ctx)
		defer dbMetrics.Stop()
	}

	// Leaderboard read path
	repo := persistence.NewGormLeaderboardRepository(db.DB,
		persistence.WithLeaderboardTable(cfg.Leaderboard.Table),
	)

	serviceOpts := []leaderboardapp.ServiceOption{
		leaderboardapp.WithFetchTimeout(cfg.Leaderboard.FetchTimeout),
		leaderboardapp.WithLogger(log.Named("leaderboard")),
	}

	var systemOpts []handler.SystemHandlerOption
	if cfg.Leaderboard.CacheEnabled {
		snapshotCache, err := cache.NewSnapshotCacheFactory(cfg.Redis,
			cache.WithLogger(log.Named("cache")),
			cache.WithInMemoryFallback(!cfg.IsProduction()),
			cache.WithFactoryL1TTL(cfg.Leaderboard.CacheL1TTL),
		).CreateCache(ctx)
		if err != nil {
			log.Fatal("Failed to create leaderboard cache", zap.Error(err))
		}
		if closer, ok := snapshotCache.(io.Closer); ok {
			defer closer.Close()
		}
		switch c := snapshotCache.(type) {
		case *cache.TieredSnapshotCache:
			systemOpts = append(systemOpts,
				handler.WithCacheCheck(c),
				handler.WithCacheStats(func() any { return c.Stats() }),
			)
		case *cache.InMemorySnapshotCache:
			systemOpts = append(systemOpts, handler.WithCacheStats(func() any { return c.Stats() }))
		}
		serviceOpts = append(serviceOpts, leaderboardapp.WithSnapshotCache(snapshotCache, cfg.Leaderboard.CacheTTL))
	}

	if tel.metrics.IsEnabled() {
		lbMetrics, err := telemetry.NewLeaderboardMetrics(tel.metrics.Meter("leaderboard"))
		if err != nil {
			log.Fatal("Failed to create leaderboard metrics", zap.Error(err))
		}
		serviceOpts = append(serviceOpts, leaderboardapp.WithMetrics(lbMetrics))
	}

	leaderboardService := leaderboardapp.NewService(repo, serviceOpts...)
	loader := leaderboardapp.NewLoader(leaderboardService,
		leaderboardapp.WithLoadTimeout(cfg.Leaderboard.FetchTimeout),
		leaderboardapp.WithLoaderLogger(log.Named("loader")),
	)
	defer loader.Close()

	jwtService := auth.NewJWTService(cfg.JWT)

	// Handlers
	leaderboardHandler := handler.NewLeaderboardHandler(leaderboardService)
	pageHandler := handler.NewPageHandler(loader,
		handler.WithRenderWait(cfg.Leaderboard.RenderWait),
		handler.WithFormatter(handler.NewFormatter(cfg.Leaderboard.CurrencySymbol, cfg.Leaderboard.Locale)),
	)
	systemHandler := handler.NewSystemHandler("Sellerboard API", db, systemOpts...)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Middleware stack in order:
	// 1. Tracing - root span for the request, then profile labels
	// 2. RequestID - generate/propagate request ID
	// 3. Recovery - catch panics
	// 4. Logger - log requests
	// 5. Metrics - request counters and latency
	// 6. Security headers, CORS, body limit, request timeout
	// 7. Span enrichment once request id is known
	tracingCfg := middleware.DefaultTracingConfig()
	tracingCfg.ServiceName = cfg.Telemetry.ServiceName
	tracingCfg.Enabled = cfg.Telemetry.Enabled
	engine.Use(middleware.TracingWithConfig(tracingCfg))
	profilingCfg := middleware.DefaultProfilingConfig()
	profilingCfg.Enabled = tel.profiler.IsEnabled()
	engine.Use(middleware.ProfilingWithConfig(profilingCfg))
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
		MeterProvider: tel.metrics,
		Enabled:       cfg.Telemetry.MetricsEnabled,
		Logger:        log,
	}))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfigFromHTTP(cfg.HTTP)))
	engine.Use(middleware.BodyLimit(middleware.DefaultBodyLimit))
	engine.Use(middleware.Timeout(cfg.HTTP.WriteTimeout))
	engine.Use(middleware.TracingAttributeInjector())
	engine.Use(middleware.SpanErrorMarker())

	// Bearer tokens only on the JSON API; the page guard reads the cookie
	jwtConfig := middleware.DefaultJWTConfig(jwtService)
	jwtConfig.Logger = log
	guards := router.Guards{
		Auth:         middleware.JWTAuthMiddlewareWithConfig(jwtConfig),
		OptionalAuth: middleware.OptionalJWTAuthMiddleware(jwtService),
		Swagger: middleware.SwaggerProtection(
			middleware.SwaggerConfigFrom(cfg.Swagger),
			middleware.JWTAuthMiddlewareWithConfig(jwtConfig),
		),
	}

	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		defer rateLimiter.Stop()
		guards.RateLimit = middleware.RateLimit(rateLimiter)
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	router.NewRouter(engine, router.WithAPIVersion("v1")).
		Register(router.LeaderboardRoutes(leaderboardHandler, guards)).
		Register(router.SystemRoutes(systemHandler)).
		Setup()
	router.RegisterRootRoutes(engine, pageHandler, systemHandler, guards)

	// Also keep a simple ping at root API level for basic health checks
	engine.GET("/api/v1/ping", systemHandler.Ping)

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	stop()
	tel.shutdown(shutdownCtx, log)

	log.Info("Server exited gracefully")
}
