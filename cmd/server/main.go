package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ruralpay/creditledger/docs"
	"github.com/ruralpay/creditledger/internal/allowlist"
	"github.com/ruralpay/creditledger/internal/audit"
	"github.com/ruralpay/creditledger/internal/config"
	"github.com/ruralpay/creditledger/internal/database"
	"github.com/ruralpay/creditledger/internal/events"
	"github.com/ruralpay/creditledger/internal/handlers"
	"github.com/ruralpay/creditledger/internal/ledger"
	"github.com/ruralpay/creditledger/internal/logger"
	mW "github.com/ruralpay/creditledger/internal/middleware"
	"github.com/ruralpay/creditledger/internal/store/postgres"
)

// @title Credit Ledger API
// @version 1.0
// @description Seller credit balances, approval workflow and spends
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zl := logger.Must(cfg.IsProduction())
	defer zl.Sync()

	docs.SwaggerInfo.Host = "localhost:" + cfg.Port

	ctx := context.Background()

	db, err := database.OpenPostgres(ctx, cfg.Database, zl)
	if err != nil {
		zl.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	redisClient := database.OpenRedis(ctx, cfg.Redis, zl)
	if redisClient != nil {
		defer redisClient.Close()
	}

	var publisher ledger.Publisher = ledger.NopPublisher{}
	if redisClient != nil {
		publisher = events.NewRedisPublisher(redisClient, cfg.Ledger.EventQueue)
	}

	phones := allowlist.NewChecker(db, redisClient, cfg.Allow.CacheTTL, zl)
	service := ledger.New(postgres.New(db), phones,
		ledger.WithLogger(zl),
		ledger.WithAuditor(audit.NewAuditLogger(zl)),
		ledger.WithPublisher(publisher),
		ledger.WithLockTimeout(cfg.Ledger.LockTimeout),
		ledger.WithPageSizes(cfg.Ledger.DefaultPageSize, cfg.Ledger.MaxPageSize),
	)

	router := handlers.NewRouter(handlers.RouterConfig{
		Service: service,
		Phones:  phones,
		Auth:    mW.NewAuthenticator(cfg.JWT.SecretKey, redisClient, zl),
		Logger:  zl,
		Health:  db.PingContext,
	})

	// Start server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		zl.Info("server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zl.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zl.Fatal("server forced to shutdown", zap.Error(err))
	}

	zl.Info("server stopped")
}
