package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"restock-sync/internal/auth"
	"restock-sync/internal/cache"
	"restock-sync/internal/config"
	"restock-sync/internal/events"
	"restock-sync/internal/handlers"
	"restock-sync/internal/orders"
	"restock-sync/internal/remote"
	"restock-sync/internal/repository"
	"restock-sync/internal/store"
	"restock-sync/pkg/logger"
	"restock-sync/pkg/middleware"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "restock-sync/docs" // Import docs for Swagger
)

// @title           Restock Sync API
// @version         1.0
// @description     Offline-tolerant inventory and ordering API for restaurant supply clients.

// @host      localhost:8090
// @BasePath  /api/v1

// @schemes   http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg := config.Load()

	appLogger := logger.New(cfg.Environment)
	defer appLogger.Sync()

	if err := cfg.Validate(); err != nil {
		appLogger.Fatal("Invalid configuration", zap.Error(err))
	}

	appLogger.Info("🚀 Starting Restock Sync",
		zap.String("environment", cfg.Environment),
		zap.String("port", cfg.Port),
		zap.String("backend", cfg.BackendBaseURL),
		zap.String("batch_policy", cfg.BatchWritePolicy),
		zap.String("custom_supply_policy", cfg.CustomSupplyWritePolicy),
	)

	batchPolicy, err := repository.ParseWritePolicy(cfg.BatchWritePolicy)
	if err != nil {
		appLogger.Fatal("Invalid batch write policy", zap.Error(err))
	}
	customSupplyPolicy, err := repository.ParseWritePolicy(cfg.CustomSupplyWritePolicy)
	if err != nil {
		appLogger.Fatal("Invalid custom supply write policy", zap.Error(err))
	}

	appLogger.Info("🔧 Opening local batch store...", zap.String("path", cfg.SQLitePath))
	batchStore, err := store.NewSQLiteBatchStore(cfg.SQLitePath, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to open batch store", zap.Error(err))
	}
	defer batchStore.Close()

	backend := remote.NewHTTPClient(cfg.BackendBaseURL, cfg.BackendTimeout, appLogger)
	supplyCache := cache.NewCache(cfg, appLogger)

	publisher := events.NewPublisher(cfg, appLogger)
	defer publisher.Close()

	reconciler := repository.NewBatchReconciler(backend, batchStore, publisher, batchPolicy, appLogger)
	catalog := repository.NewCustomSupplyCatalog(backend, batchStore, publisher, customSupplyPolicy, appLogger, nil)
	supplies := repository.NewSupplyRepository(backend, supplyCache, cache.TTL(cfg.SupplyCacheTTL), appLogger)

	composer := orders.NewComposer(backend, publisher, appLogger)
	tracker := orders.NewTracker(backend, publisher, appLogger)
	carts := orders.NewCarts()

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, appLogger)
	appLogger.Info("✅ Services initialized successfully")

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// CORS must run first to answer preflight requests
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.RecoveryHandler(appLogger))
	router.Use(logger.GinMiddleware(appLogger))
	router.Use(middleware.RequestIDMiddleware(appLogger))
	router.Use(middleware.ErrorHandler(appLogger))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	h := handlers.Handlers{
		Batches:        handlers.NewBatchHandler(appLogger, reconciler, catalog),
		CustomSupplies: handlers.NewCustomSupplyHandler(appLogger, catalog),
		Supplies:       handlers.NewSupplyHandler(supplies),
		Cart:           handlers.NewCartHandler(appLogger, carts, reconciler, composer),
		Orders:         handlers.NewOrderHandler(appLogger, tracker),
		Monitoring:     handlers.NewMonitoringHandler(batchStore, appLogger),
	}

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)

		// Idempotency keys are scoped per user, so it runs after authentication
		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware(jwtManager, appLogger))
		protected.Use(middleware.IdempotencyMiddleware(middleware.NewCacheRequestIDStore(supplyCache), appLogger, 5*time.Minute))
		handlers.RegisterRoutes(protected, h)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		appLogger.Info("Listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	appLogger.Info("Server exited")
}

// healthCheck godoc
// @Summary      Health check
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "restock-sync",
	})
}
