package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/bizsite-ai-platform/cmd/mainconfig"
	"github.com/wolfman30/bizsite-ai-platform/internal/agent"
	"github.com/wolfman30/bizsite-ai-platform/internal/api/router"
	"github.com/wolfman30/bizsite-ai-platform/internal/app/bootstrap"
	appconfig "github.com/wolfman30/bizsite-ai-platform/internal/config"
	"github.com/wolfman30/bizsite-ai-platform/internal/leads"
	"github.com/wolfman30/bizsite-ai-platform/internal/observability/metrics"
	"github.com/wolfman30/bizsite-ai-platform/internal/webchat"
	"github.com/wolfman30/bizsite-ai-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.NewWithFormat(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting bizsite-ai-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	fmt.Println("Server exited gracefully")
}

func run(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) error {
	app, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.cleanup()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

type application struct {
	handler http.Handler
	engine  *agent.Engine
	cleanup func()
}

// buildApp wires stores, providers and handlers from config. Every backing
// service is optional; without them the server runs fully in memory.
func buildApp(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*application, error) {
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}
	fail := func(err error) (*application, error) {
		cleanup()
		return nil, err
	}

	metricsHandler, chatMetrics := setupMetrics()
	var checks []router.HealthCheck

	var awsCfg *aws.Config
	if mainconfig.NeedsAWS(cfg) {
		loaded, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			return fail(fmt.Errorf("load aws config: %w", err))
		}
		awsCfg = &loaded
	}

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		cleanups = append(cleanups, func() { _ = redisClient.Close() })
		checks = append(checks, router.HealthCheck{Name: "redis", Check: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}})
	}

	mongoClient, err := bootstrap.BuildMongoClient(ctx, cfg, logger)
	if err != nil {
		return fail(err)
	}
	if mongoClient != nil {
		cleanups = append(cleanups, func() { _ = mongoClient.Disconnect(context.Background()) })
		checks = append(checks, router.HealthCheck{Name: "mongo", Check: func(ctx context.Context) error {
			return mongoClient.Ping(ctx, nil)
		}})
	}

	pool, err := bootstrap.BuildPostgresPool(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return fail(err)
	}
	if pool != nil {
		cleanups = append(cleanups, pool.Close)
		checks = append(checks, router.HealthCheck{Name: "postgres", Check: pool.Ping})
	}

	catalogStore, err := bootstrap.BuildCatalogStore(ctx, cfg, mongoClient, redisClient, logger)
	if err != nil {
		return fail(err)
	}

	completionClient, closeCompletion, err := bootstrap.BuildCompletionClient(ctx, cfg, awsCfg, chatMetrics, logger)
	if err != nil {
		return fail(err)
	}
	cleanups = append(cleanups, closeCompletion)

	sender, err := bootstrap.BuildEmailSender(cfg, awsCfg, logger)
	if err != nil {
		return fail(err)
	}
	leadRepo := bootstrap.BuildLeadRepository(cfg, pool, sender, logger)

	engine, err := bootstrap.BuildAgentEngine(cfg, bootstrap.AgentDeps{
		Catalog:    catalogStore,
		Completion: completionClient,
		Leads:      leadRepo,
		Metrics:    chatMetrics,
		Audit:      bootstrap.BuildAuditor(pool, logger),
	}, logger)
	if err != nil {
		return fail(err)
	}

	handler := router.New(&router.Config{
		Logger:             logger,
		ChatHandler:        agent.NewHandler(engine, logger),
		WebChat:            webchat.NewHandler(engine, logger),
		LeadsHandler:       leads.NewHandler(leadRepo, logger),
		MetricsHandler:     metricsHandler,
		HealthChecks:       checks,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		AdminAuthSecret:    cfg.AdminJWTSecret,
		DefaultOrgID:       cfg.DefaultOrgID,
		RateLimitRPS:       cfg.RateLimitRPS,
		RateLimitBurst:     cfg.RateLimitBurst,
	})

	return &application{handler: handler, engine: engine, cleanup: cleanup}, nil
}

// setupMetrics registers the agent metrics plus Go runtime collectors on a
// dedicated registry.
func setupMetrics() (http.Handler, *metrics.ChatMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}), metrics.NewChatMetrics(reg)
}
