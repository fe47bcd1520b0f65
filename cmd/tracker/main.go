package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"tracker/internal/backend"
	"tracker/internal/cache"
	"tracker/internal/cli"
	"tracker/internal/core"
	"tracker/internal/format"
	apphttp "tracker/internal/http"
	"tracker/internal/log"
	"tracker/internal/metrics"
	"tracker/internal/services"
)

const cacheSweepInterval = 10 * time.Minute

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)
	ctx := context.Background()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	be, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	money, err := format.NewMoneyFormatter(cfg.Locale, cfg.Currency)
	if err != nil {
		logger.Error("Invalid money format", log.FieldError, err)
		os.Exit(1)
	}
	period, _ := core.ParsePeriod(cfg.DefaultPeriod)
	m := metrics.New()

	txs := services.NewTransactionService(be.Store, be.Publisher, m, logger)
	cats := services.NewCategoryService(be.Store, be.Store, be.Store, logger)
	dashCache := cache.NewLRUCache[services.Dashboard](cfg.CacheSize, cfg.CacheTTL)
	dashboards := services.NewDashboardService(be.Store, cats, core.SystemClock{}, dashCache, m, logger)
	txs.OnChange(dashboards.Invalidate)
	cats.OnChange(dashboards.Invalidate)

	if ts, err := be.Store.ListTransactions(ctx); err == nil {
		m.SetLedgerSize(len(ts))
	}

	caches := cache.NewManager(logger)
	caches.Register(dashCache)
	caches.StartCleanup(cacheSweepInterval)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Transactions:  txs,
		Categories:    cats,
		Dashboards:    dashboards,
		Money:         money,
		Metrics:       m,
		Logger:        logger,
		DefaultPeriod: period,
		Ready:         be.Ready,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		caches.Stop()
		if err := be.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	})

	logger.Info("Starting tracker server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"events", be.Publisher != nil,
		"currency", cfg.Currency,
		"locale", cfg.Locale)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
}
