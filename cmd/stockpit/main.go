package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/stockpit-erp/stockpit-erp/internal/app"
	"github.com/stockpit-erp/stockpit-erp/internal/closing"
	"github.com/stockpit-erp/stockpit-erp/internal/ledger"
	"github.com/stockpit-erp/stockpit-erp/internal/masterdata"
	"github.com/stockpit-erp/stockpit-erp/internal/observability"
	"github.com/stockpit-erp/stockpit-erp/internal/platform/cache"
	"github.com/stockpit-erp/stockpit-erp/internal/platform/db"
	"github.com/stockpit-erp/stockpit-erp/internal/pos"
	"github.com/stockpit-erp/stockpit-erp/internal/revenue"
	"github.com/stockpit-erp/stockpit-erp/internal/shared"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, revenue cache disabled", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}
	}()

	auditLogger := shared.NewAuditLogger(pool)
	idempotencyStore := shared.NewIdempotencyStore(pool)
	go idempotencyStore.CleanupLoop(ctx, logger, time.Hour, cfg.IdempotencyRetention)

	revenueCache := revenue.NewCache(redisClient, cfg.RevenueCacheTTL)
	revenueRepo := revenue.NewRepository(pool)
	revenueService := revenue.NewService(revenueRepo, revenueCache)
	if err := revenueCache.ListenForInvalidation(ctx); err != nil {
		logger.Warn("cache invalidation listener", slog.Any("error", err))
	}

	ledgerRepo := ledger.NewRepository(pool)
	ledgerService := ledger.NewService(ledgerRepo, auditLogger)

	posRepo := pos.NewRepository(pool)
	posService := pos.NewService(posRepo, auditLogger, idempotencyStore, revenueService, pos.ServiceConfig{
		VoidWindow: cfg.VoidWindow,
	})

	catalogRepo := masterdata.NewRepository(pool)

	closingRepo := closing.NewRepository(pool)
	closingService := closing.NewService(closingRepo, catalogRepo, auditLogger, revenueService, closing.ServiceConfig{
		PaymentMethod: cfg.ClosingPaymentMethod,
	})

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		LedgerHandler:     ledger.NewHandler(logger, ledgerService),
		PosHandler:        pos.NewHandler(logger, posService, cfg.OverridePINHash),
		ClosingHandler:    closing.NewHandler(logger, closingService),
		RevenueHandler:    revenue.NewHandler(logger, revenueService),
		MasterDataHandler: masterdata.NewHandler(logger, catalogRepo),
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
