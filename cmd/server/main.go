// Package main is the entry point for the padihub API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"padihub/internal/config"
	"padihub/internal/domain/bulk"
	"padihub/internal/domain/events"
	"padihub/internal/domain/season"
	"padihub/internal/domain/split"
	"padihub/internal/domain/transaction"
	"padihub/internal/domain/verification"
	"padihub/internal/domain/weighing"
	v1 "padihub/internal/infrastructure/http/v1"
	"padihub/internal/infrastructure/numerator"
	"padihub/internal/infrastructure/storage/postgres"
	"padihub/internal/infrastructure/storage/postgres/season_repo"
	"padihub/internal/infrastructure/storage/postgres/session_store"
	"padihub/internal/infrastructure/storage/postgres/transaction_repo"
	"padihub/internal/observability/metrics"
	"padihub/pkg/logger"
)

var version = "dev"

func main() {
	cfg := config.Load()

	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: cfg.App.Env == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log.Infow("starting padihub server", "env", cfg.App.Env, "version", version)

	// --- Database ---
	poolCfg := postgres.DefaultPoolConfig(cfg.Database.DSN())
	poolCfg.MaxConns = cfg.Database.MaxConns
	poolCfg.MinConns = cfg.Database.MinConns

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	txManager := postgres.NewTxManager(pool)

	// --- Infrastructure services ---
	numeratorService := numerator.New(pool.Unwrap())

	auditService, err := postgres.NewAuditService(txManager)
	if err != nil {
		log.Fatalw("failed to initialize audit service", "error", err)
	}

	// --- Event bus and metrics ---
	bus := events.NewBus()
	metrics.Init()

	bus.SubscribeTransactionCompleted(func(_ context.Context, e events.TransactionCompleted) error {
		metrics.IncReceipt(e.Type)
		return nil
	})
	bus.SubscribeSaleAssembled(func(_ context.Context, e events.SaleAssembled) error {
		metrics.AddSplits(e.SplitCreated)
		metrics.IncSaleAssembly(metrics.ResultSuccess)
		return nil
	})

	// --- Repositories ---
	receiptRepo := transaction_repo.New(txManager)
	sessionStore := session_store.New(txManager)
	seasonRepo := season_repo.New(txManager)

	// --- Domain services ---
	receiptService := transaction.NewService(receiptRepo, numeratorService, txManager, bus, auditService)
	splitEngine := split.NewEngine(receiptService, bus)
	seasonService := season.NewService(seasonRepo, txManager, bus)
	weighManager := weighing.NewManager(sessionStore, receiptService, splitEngine, bus, cfg.Weighing.StaleSessionWindow)
	propagator := bulk.NewPropagator(receiptService)
	gate := verification.NewGate(cfg.Weighing.VerificationTTL)

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Logger:  log,
		Pool:    pool.Unwrap(),
		Version: version,

		Weighing:   weighManager,
		Receipts:   receiptService,
		Splitter:   splitEngine,
		Propagator: propagator,
		Gate:       gate,
		Seasons:    seasonService,
	})

	// --- HTTP server ---
	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", cfg.App.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
