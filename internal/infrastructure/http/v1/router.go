// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"padihub/internal/domain/bulk"
	"padihub/internal/domain/season"
	"padihub/internal/domain/split"
	"padihub/internal/domain/transaction"
	"padihub/internal/domain/verification"
	"padihub/internal/domain/weighing"
	"padihub/internal/infrastructure/http/v1/handlers"
	"padihub/internal/infrastructure/http/v1/middleware"
	"padihub/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	Logger  *logger.Logger
	Pool    *pgxpool.Pool
	Version string

	Weighing   *weighing.Manager
	Receipts   *transaction.Service
	Splitter   *split.Engine
	Propagator *bulk.Propagator
	Gate       *verification.Gate
	Seasons    *season.Service
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	healthHandler := handlers.NewHealthHandler(cfg.Pool, cfg.Version)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	base := handlers.NewBaseHandler()

	api := router.Group("/api/v1")
	{
		weighingHandler := handlers.NewWeighingHandler(base, cfg.Weighing, cfg.Seasons)
		weighingHandler.RegisterRoutes(api.Group("/weighings"))

		transactionHandler := handlers.NewTransactionHandler(
			base, cfg.Receipts, cfg.Splitter, cfg.Propagator, cfg.Gate, cfg.Seasons)
		transactionHandler.RegisterRoutes(api.Group("/transactions"))

		seasonHandler := handlers.NewSeasonHandler(base, cfg.Seasons)
		seasonHandler.RegisterRoutes(api.Group("/seasons"))
	}

	return router
}
