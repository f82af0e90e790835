package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/keiri-audit-go/internal/audit"
	"github.com/boddenberg/keiri-audit-go/internal/config"
	"github.com/boddenberg/keiri-audit-go/internal/domain"
	"github.com/boddenberg/keiri-audit-go/internal/handler"
	"github.com/boddenberg/keiri-audit-go/internal/infra/boltstore"
	"github.com/boddenberg/keiri-audit-go/internal/infra/cache"
	"github.com/boddenberg/keiri-audit-go/internal/infra/ledgerapi"
	"github.com/boddenberg/keiri-audit-go/internal/infra/observability"
	"github.com/boddenberg/keiri-audit-go/internal/infra/resilience"
	"github.com/boddenberg/keiri-audit-go/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("ledger_api_url", cfg.LedgerAPIURL),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.String("timezone", cfg.Timezone),
		zap.String("bolt_path", cfg.BoltPath),
		zap.Bool("auth_off", cfg.AuthOff),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "keiri-audit")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Scoring thresholds ---
	thresholds, err := config.LoadThresholds(cfg.RulesFile)
	if err != nil {
		logger.Fatal("failed to load threshold rules", zap.String("file", cfg.RulesFile), zap.Error(err))
	}
	if cfg.RulesFile != "" {
		logger.Info("threshold overrides loaded", zap.String("file", cfg.RulesFile))
	}

	// --- Timezone (day-gate semantics) ---
	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Fatal("invalid timezone", zap.String("timezone", cfg.Timezone), zap.Error(err))
	}

	// --- Cache ---
	resultCache := cache.New[*domain.AuditResult](cfg.CacheTTL)

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	cb := resilience.NewCircuitBreaker("ledger-api")

	// --- Clients ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	ledgerClient := ledgerapi.NewClient(httpClient, cfg.LedgerAPIURL, cb, resilienceCfg, logger)

	// --- Result store ---
	store, err := boltstore.Open(cfg.BoltPath, logger)
	if err != nil {
		logger.Fatal("failed to open result store", zap.String("path", cfg.BoltPath), zap.Error(err))
	}
	defer store.Close()

	// --- Services ---
	engine := audit.NewEngine(thresholds, cfg.Parallelism)
	auditSvc := service.NewAuditService(
		engine,
		ledgerClient,
		ledgerClient,
		store,
		resultCache,
		metrics,
		logger,
		location,
	)

	// --- Router ---
	auth := handler.AuthConfig{Secret: cfg.JWTSecret, Disabled: cfg.AuthOff}
	if cfg.AuthOff {
		logger.Warn("bearer authentication disabled")
	}
	router := handler.NewRouter(auditSvc, auth, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
