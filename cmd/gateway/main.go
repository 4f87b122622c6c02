package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"streamgate/internal/core/services"
	httphandlers "streamgate/internal/handlers/http"
	"streamgate/internal/infrastructure/geo"
	"streamgate/internal/infrastructure/middleware"
	"streamgate/internal/infrastructure/monitoring"
	repositories "streamgate/internal/infrastructure/repositories"
	"streamgate/internal/infrastructure/upstream"
	"streamgate/pkg/config"
	"streamgate/pkg/logger"
	"streamgate/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	startTime := time.Now()

	// Try multiple config paths
	configPaths := []string{
		"configs/config.yaml",
		"./configs/config.yaml",
		"/etc/streamgate/config.yaml",
		"config.yaml",
	}

	var cfg *config.Config
	var err error

	for _, path := range configPaths {
		cfg, err = config.Load(path)
		if err == nil {
			break
		}
	}

	if err != nil {
		// Fallback to defaults if config cannot be loaded
		cfg = config.DefaultConfig()
	}

	// Initialize logger
	zapLogger := logger.New(cfg.Logging.Level)
	defer zapLogger.Sync()

	log := zapLogger.Sugar()

	// Initialize tracing
	tracerProvider, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: "streamgate",
		JaegerURL:   cfg.Tracing.JaegerURL,
		Environment: cfg.Tracing.Environment,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		log.Warnw("failed to initialize tracing", "error", err)
	} else {
		defer tracerProvider.Shutdown(context.Background())
	}

	// Initialize repository factory
	repoFactory, err := repositories.NewRepositoryFactory(cfg, log)
	if err != nil {
		log.Fatalw("failed to create repository factory", "error", err)
	}
	defer repoFactory.Close()

	accountRepo := repoFactory.CreateAccountRepository()

	// Initialize services
	sessionService := services.NewSessionService(
		cfg.Session.JWTSecret,
		cfg.Session.AccessTokenTTL,
		cfg.Session.RefreshTokenTTL,
	)
	tokenService := services.NewTokenService(cfg.Playback.Secret, cfg.Playback.TokenTTL)
	deviceGuard := services.NewDeviceGuard(accountRepo, cfg.Playback.DeviceLimit)
	rewriter := services.NewManifestRewriter(cfg.Playback.ProxyPath)

	fetcher := upstream.NewClient(upstream.Options{
		Timeout:         cfg.Upstream.Timeout,
		UserAgent:       cfg.Upstream.UserAgent,
		MaxIdleConns:    cfg.Upstream.MaxIdleConns,
		MaxConnsPerHost: cfg.Upstream.MaxConnsPerHost,
	})
	prober := services.NewHealthProber(fetcher, cfg.Probe.BatchSize, cfg.Probe.Timeout, log)
	geoResolver := geo.NewStaticResolver(cfg.Playback.GeoRanges)

	// Initialize monitoring
	prometheusCollector := monitoring.NewPrometheusCollector()

	// Initialize HTTP handlers
	authHandler := httphandlers.NewAuthHandler(sessionService, cfg.Session.AccessTokenTTL)
	tokenHandler := httphandlers.NewTokenHandler(
		tokenService,
		deviceGuard,
		geoResolver,
		cfg.Playback.GeoBlockedCountries,
		cfg.Playback.TokenTTL,
		cfg.Playback.DeviceLimit,
		prometheusCollector,
		log,
	)
	proxyHandler := httphandlers.NewProxyHandler(
		tokenService,
		fetcher,
		rewriter,
		cfg.Playback.ProxyPath,
		prometheusCollector,
		log,
	)
	probeHandler := httphandlers.NewProbeHandler(prober, cfg.Probe.MaxURLs, prometheusCollector, log)
	deviceHandler := httphandlers.NewDeviceHandler(accountRepo)

	// Configure Gin
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.RequestLoggerMiddleware(logger.NewContextLogger(zapLogger)))
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.ErrorHandlerMiddleware(log))
	if cfg.Tracing.Enabled {
		router.Use(middleware.TracingMiddleware())
	}

	// Global HTTP rate limiting (if enabled)
	router.Use(middleware.NewHTTPRateLimitMiddleware(cfg))

	requireAuth := middleware.AuthMiddleware(sessionService)

	authHandler.SetupRoutes(router)
	tokenHandler.SetupRoutes(router, requireAuth)
	probeHandler.SetupRoutes(router, requireAuth)
	deviceHandler.SetupRoutes(router, requireAuth)

	// The proxy route authenticates with playback tokens, not sessions, so
	// players can fetch segments without carrying an Authorization header.
	proxyHandler.SetupRoutes(router)

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"uptime":    time.Since(startTime).String(),
		})
	})

	// Readiness checks cover storage dependencies
	healthChecker := monitoring.NewHealthChecker()
	healthChecker.AddRepositoryCheck(accountRepo, 30*time.Second, 2*time.Second)
	if redisClient := repoFactory.RedisClient(); redisClient != nil {
		healthChecker.AddRedisCheck(redisClient, 30*time.Second, 2*time.Second)
	}

	// Periodic checks keep storage connections warm between readiness polls
	checksCtx, stopChecks := context.WithCancel(context.Background())
	defer stopChecks()
	healthChecker.StartBackgroundChecks(checksCtx)

	router.GET("/ready", func(c *gin.Context) {
		status := healthChecker.GetReadinessStatus(c.Request.Context())
		code := 200
		if status.Status != "healthy" {
			code = 503
		}
		c.JSON(code, status)
	})

	// Prometheus metrics endpoint
	if cfg.Monitoring.PrometheusEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
		log.Info("Prometheus metrics enabled")
	}

	// Create HTTP server with timeouts
	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		log.Infof("Starting StreamGate server on %s", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Wait for shutdown signals or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Fatalw("Server failed", "error", err)
	case sig := <-sigChan:
		log.Infow("Received shutdown signal", "signal", sig)
	}

	log.Info("Shutting down StreamGate server...")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Shutdown HTTP server gracefully
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error during server shutdown", "error", err)
		// Force close if graceful shutdown fails
		if closeErr := srv.Close(); closeErr != nil {
			log.Errorw("Error force closing server", "error", closeErr)
		}
	} else {
		log.Info("Server shutdown gracefully")
	}

	// Close repository factory
	if err := repoFactory.Close(); err != nil {
		log.Errorw("Error closing repository factory", "error", err)
	}

	log.Info("StreamGate server stopped")
}
