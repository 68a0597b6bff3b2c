package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairy/internal/config"
	"github.com/mamadbah2/dairy/internal/ledger"
	"github.com/mamadbah2/dairy/internal/repository"
	"github.com/mamadbah2/dairy/internal/repository/memory"
	"github.com/mamadbah2/dairy/internal/repository/mongodb"
	"github.com/mamadbah2/dairy/internal/repository/sheets"
	"github.com/mamadbah2/dairy/internal/scheduler"
	"github.com/mamadbah2/dairy/internal/server/handlers"
	"github.com/mamadbah2/dairy/internal/server/middleware"
	"github.com/mamadbah2/dairy/internal/server/router"
	farmersvc "github.com/mamadbah2/dairy/internal/service/farmers"
	milksvc "github.com/mamadbah2/dairy/internal/service/milk"
	"github.com/mamadbah2/dairy/internal/service/notify"
	reportingsvc "github.com/mamadbah2/dairy/internal/service/reporting"
	retailsvc "github.com/mamadbah2/dairy/internal/service/retail"
	whatsappclient "github.com/mamadbah2/dairy/pkg/clients/whatsapp"
	"github.com/mamadbah2/dairy/pkg/logger"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Log.Level))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	loc, err := cfg.Reporting.Location()
	if err != nil {
		baseLogger.Fatal("invalid timezone", zap.Error(err))
	}

	var (
		farmerStore repository.FarmerStore
		retailStore repository.RetailStore
	)
	switch cfg.MongoDB.Backend {
	case config.StoreMemory:
		baseLogger.Warn("using in-memory store, data is lost on restart")
		farmerStore = memory.NewFarmerStore()
		retailStore = memory.NewRetailStore()
	default:
		connectCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		store, err := mongodb.NewStore(connectCtx, cfg.MongoDB.URI, cfg.MongoDB.DBName, logger.Named(baseLogger, "repo.mongo"))
		cancel()
		if err != nil {
			baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
		}
		defer func() {
			if err := store.Close(context.Background()); err != nil {
				baseLogger.Error("failed to close mongodb connection", zap.Error(err))
			}
		}()
		farmerStore = store.Farmers()
		retailStore = store.Retail()
	}

	var notifier notify.Notifier = notify.Nop{}
	if cfg.WhatsApp.Enabled() {
		notifier = notify.NewWhatsAppNotifier(cfg.WhatsApp, whatsappclient.NewClient(cfg.WhatsApp), logger.Named(baseLogger, "svc.notify"))
		baseLogger.Info("whatsapp notifications enabled")
	} else {
		baseLogger.Warn("whatsapp credentials missing, notifications disabled")
	}

	var exporter scheduler.SummaryExporter
	if cfg.Sheets.Enabled() {
		sheetsRepo, err := sheets.NewGoogleSheetRepository(context.Background(), cfg.Sheets, logger.Named(baseLogger, "repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
		exporter = sheets.NewSummaryExporter(sheetsRepo, cfg.Sheets.SummarySheet, logger.Named(baseLogger, "export.sheets"))
	}

	engine := ledger.NewEngine()
	milkSvc := milksvc.NewService(farmerStore, engine, notifier, cfg.Ledger.RetryAttempts, logger.Named(baseLogger, "svc.milk"))
	farmerSvc := farmersvc.NewService(farmerStore, cfg.Ledger.RetryAttempts, logger.Named(baseLogger, "svc.farmers"))
	reportingSvc := reportingsvc.NewService(farmerStore, loc, logger.Named(baseLogger, "svc.reporting"))
	retailSvc := retailsvc.NewService(retailStore, loc, logger.Named(baseLogger, "svc.retail"))

	auth := middleware.NewAuthenticator(cfg.Auth, logger.Named(baseLogger, "auth"))

	gin.SetMode(gin.ReleaseMode)
	httpEngine := router.New(router.Handlers{
		Farmers:  handlers.NewFarmerHandler(farmerSvc, logger.Named(baseLogger, "handlers.farmers")),
		Ledger:   handlers.NewLedgerHandler(milkSvc, reportingSvc, logger.Named(baseLogger, "handlers.ledger")),
		Reports:  handlers.NewReportHandler(reportingSvc, logger.Named(baseLogger, "handlers.reports")),
		Retail:   handlers.NewRetailHandler(retailSvc, logger.Named(baseLogger, "handlers.retail")),
		Messages: handlers.NewMessageHandler(notifier, logger.Named(baseLogger, "handlers.messages")),
	}, auth, logger.Named(baseLogger, "router"))

	sched, err := scheduler.NewScheduler(cfg.Reporting, reportingSvc, exporter, notifier, logger.Named(baseLogger, "scheduler"))
	if err != nil {
		baseLogger.Fatal("failed to init scheduler", zap.Error(err))
	}
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      httpEngine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port), zap.String("store", cfg.MongoDB.Backend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
