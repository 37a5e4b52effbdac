package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/multilazos/multilazos/internal/app"
	"github.com/multilazos/multilazos/internal/installments"
	"github.com/multilazos/multilazos/internal/observability"
	"github.com/multilazos/multilazos/internal/payments"
	"github.com/multilazos/multilazos/internal/platform/cache"
	"github.com/multilazos/multilazos/internal/platform/db"
	"github.com/multilazos/multilazos/internal/reconciliation"
	"github.com/multilazos/multilazos/internal/sales"
	"github.com/multilazos/multilazos/internal/shared"
	"github.com/multilazos/multilazos/jobs"
	"github.com/multilazos/multilazos/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		// Views degrade to uncached reads without Redis.
		logger.Warn("redis unavailable, caching disabled", slog.Any("error", err))
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	reconciliationRepo := reconciliation.NewRepository(dbpool)
	reconciliationCache := reconciliation.NewCache(redisClient, cfg.CacheTTL)
	reconciliationService := reconciliation.NewService(reconciliationRepo, reconciliationCache)

	salesRepo := sales.NewRepository(dbpool)
	salesService := sales.NewService(salesRepo)
	salesHandler := sales.NewHandler(logger, salesService)

	installmentsRepo := installments.NewRepository(dbpool)
	installmentsService := installments.NewService(installmentsRepo, reconciliationService)
	installmentsHandler := installments.NewHandler(logger, installmentsService)

	paymentsRepo := payments.NewRepository(dbpool)
	paymentsService := payments.NewService(paymentsRepo, installmentsRepo, idempotencyStore, reconciliationService)
	paymentsHandler := payments.NewHandler(logger, paymentsService)

	reportClient := report.NewClient(cfg.GotenbergURL)
	reconciliationHandler := reconciliation.NewHandler(logger, reconciliationService, reportClient)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:                logger,
		Config:                cfg,
		SalesHandler:          salesHandler,
		InstallmentsHandler:   installmentsHandler,
		PaymentsHandler:       paymentsHandler,
		ReconciliationHandler: reconciliationHandler,
		JobHandler:            jobHandler,
		Metrics:               metrics,
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
