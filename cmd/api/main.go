package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/toothdoctor-api/internal/api/router"
	"github.com/wolfman30/toothdoctor-api/internal/app/bootstrap"
	"github.com/wolfman30/toothdoctor-api/internal/audit"
	"github.com/wolfman30/toothdoctor-api/internal/catalog"
	appconfig "github.com/wolfman30/toothdoctor-api/internal/config"
	"github.com/wolfman30/toothdoctor-api/internal/identity"
	"github.com/wolfman30/toothdoctor-api/internal/observability/metrics"
	"github.com/wolfman30/toothdoctor-api/internal/scheduling"
	"github.com/wolfman30/toothdoctor-api/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting toothdoctor API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"memory_store", cfg.UseMemoryStore,
	)
	if cfg.AuthJWTSecret == "" {
		logger.Warn("AUTH_JWT_SECRET not set; authenticated endpoints will reject every request")
	}

	ctx := context.Background()
	stores, err := bootstrap.BuildStores(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer stores.Close()

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer redisClient.Close()
		logger.Info("identity cache enabled", "ttl", cfg.IdentityCacheTTL)
	}

	metricsHandler, schedulingMetrics := setupMetrics()
	handler := buildRouter(cfg, stores, bootstrap.BuildIdentityCache(redisClient, cfg.IdentityCacheTTL), schedulingMetrics, metricsHandler, logger)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// setupMetrics builds a private registry with process/runtime collectors and
// the scheduling metrics.
func setupMetrics() (http.Handler, *metrics.SchedulingMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewSchedulingMetrics(reg)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), m
}

func buildRouter(
	cfg *appconfig.Config,
	stores *bootstrap.Stores,
	cache identity.Cache,
	m *metrics.SchedulingMetrics,
	metricsHandler http.Handler,
	logger *logging.Logger,
) http.Handler {
	resolver := identity.NewResolver(stores.Directory, cache, logger)

	scheduler := scheduling.NewService(stores.Appointments, logger).
		WithIdentityCache(resolver).
		WithMetrics(m)
	if cfg.EnforceDoctorAvailability {
		scheduler = scheduler.WithAvailability(catalog.NewAvailabilityRule(stores.Catalog))
	}

	return router.New(&router.Config{
		Logger:             logger,
		Appointments:       scheduling.NewHandler(scheduler, logger),
		Catalog:            catalog.NewHandler(catalog.NewService(stores.Catalog, logger), logger),
		Audit:              audit.NewHandler(stores.Audit, logger),
		Resolver:           resolver,
		AuthSecret:         cfg.AuthJWTSecret,
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitRPS:       cfg.RateLimitRPS,
		RateLimitBurst:     cfg.RateLimitBurst,
		HealthCheck:        stores.HealthCheck,
	})
}
