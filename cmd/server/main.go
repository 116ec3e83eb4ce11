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
	_ "time/tzdata"

	"go.uber.org/zap"

	"github.com/mamadbah2/hpp/internal/config"
	"github.com/mamadbah2/hpp/internal/repository/memory"
	"github.com/mamadbah2/hpp/internal/repository/mongodb"
	"github.com/mamadbah2/hpp/internal/repository/sheets"
	"github.com/mamadbah2/hpp/internal/scheduler"
	"github.com/mamadbah2/hpp/internal/server/handlers"
	"github.com/mamadbah2/hpp/internal/server/router"
	"github.com/mamadbah2/hpp/internal/service/archival"
	"github.com/mamadbah2/hpp/internal/service/costing"
	"github.com/mamadbah2/hpp/internal/service/jobs"
	"github.com/mamadbah2/hpp/internal/service/notify"
	"github.com/mamadbah2/hpp/internal/service/orchestrator"
	"github.com/mamadbah2/hpp/internal/service/snapshot"
	whatsappclient "github.com/mamadbah2/hpp/pkg/clients/whatsapp"
	"github.com/mamadbah2/hpp/pkg/logger"
)

// store is everything the jobs read and write.
type store interface {
	handlers.Pinger
	orchestrator.RecipeLister
	snapshot.RecipeReader
	snapshot.Writer
	costing.OperationalCostReader
	costing.ProductionReader
	archival.LiveStore
	archival.ColdStore
}

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Log.Level))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	st, closeStore, err := openStore(cfg, baseLogger)
	if err != nil {
		baseLogger.Fatal("failed to init store", zap.Error(err))
	}
	defer closeStore()

	var costs costing.OperationalCostReader = st
	if cfg.Store.CostSource == config.CostSourceSheets {
		sheetsRepo, err := sheets.NewGoogleSheetRepository(context.Background(), cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
		costs = sheets.NewOperationalCostReader(sheetsRepo, cfg.Sheets.CostsRange, sheets.DefaultCacheTTL, baseLogger.Named("repo.sheets.costs"))
		baseLogger.Info("operational costs read from google sheets")
	}

	aggregator := costing.NewAggregator(costs, st, baseLogger.Named("svc.costing"))
	builder := snapshot.NewBuilder(st, aggregator, st, baseLogger.Named("svc.snapshot"))
	orch := orchestrator.New(st, builder, orchestrator.Config{
		TenantBatchSize: cfg.HPP.TenantBatchSize,
		BatchDelay:      cfg.HPP.BatchDelay,
		WarnThreshold:   cfg.HPP.WarnThreshold,
	}, baseLogger.Named("svc.orchestrator"))
	archiver := archival.NewEngine(st, st, archival.Config{
		BatchSize:      cfg.Archive.BatchSize,
		BatchDelay:     cfg.Archive.BatchDelay,
		RetentionYears: cfg.Archive.RetentionYears,
	}, baseLogger.Named("svc.archival"))
	runner := jobs.NewRunner(orch, archiver, baseLogger.Named("svc.jobs"))

	jobsHandler := handlers.NewJobsHandler(runner, st, baseLogger.Named("handlers.jobs"))
	engine := router.New(jobsHandler, cfg.Server.CronSecret, baseLogger.Named("router"))

	var sched *scheduler.Scheduler
	if cfg.Schedule.Enabled {
		var notifier scheduler.Notifier
		if cfg.WhatsApp.Enabled() {
			whatsClient := whatsappclient.NewClient(cfg.WhatsApp)
			notifier = notify.NewNotifier(whatsClient, cfg.WhatsApp.RecipientID, baseLogger.Named("svc.notify"))
			baseLogger.Info("whatsapp run summaries enabled")
		} else {
			baseLogger.Warn("whatsapp settings missing, run summaries disabled")
		}

		sched, err = scheduler.NewScheduler(cfg.Schedule, runner, notifier, baseLogger.Named("scheduler"))
		if err != nil {
			baseLogger.Fatal("failed to init scheduler", zap.Error(err))
		}
		if err := sched.Start(); err != nil {
			baseLogger.Fatal("failed to start scheduler", zap.Error(err))
		}
	}

	// Runs triggered over HTTP can take minutes.
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if sched != nil {
		sched.Stop(shutdownCtx)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func openStore(cfg *config.Config, baseLogger *zap.Logger) (store, func(), error) {
	if cfg.Store.Driver == config.StoreDriverMemory {
		baseLogger.Warn("using in-memory store, data is lost on restart")
		return memory.New(), func() {}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	repo, err := mongodb.NewMongoDBRepository(ctx, cfg.MongoDB.URI, cfg.MongoDB.DBName, baseLogger.Named("repo.mongodb"))
	if err != nil {
		return nil, nil, err
	}
	if err := repo.EnsureIndexes(ctx); err != nil {
		_ = repo.Close(context.Background())
		return nil, nil, fmt.Errorf("ensure indexes: %w", err)
	}

	closeFn := func() {
		if err := repo.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close mongodb connection", zap.Error(err))
		}
	}
	return repo, closeFn, nil
}
