package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/02loveslollipop/corrosight/internal/feed"
	"github.com/02loveslollipop/corrosight/internal/observability"
	"github.com/02loveslollipop/corrosight/internal/params"
	"github.com/02loveslollipop/corrosight/internal/pipeline"
	"github.com/02loveslollipop/corrosight/internal/store"
	"github.com/02loveslollipop/corrosight/services/api/config"
	httpserver "github.com/02loveslollipop/corrosight/services/api/http"
	"github.com/02loveslollipop/corrosight/services/api/scheduler"
)

func main() {
	if err := run(); err != nil {
		slog.Error("api failed", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	prm, err := params.Load(cfg.ParamsPath)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var (
		db       *store.Store
		recorder pipeline.Recorder
		history  httpserver.RunHistory
	)
	if cfg.DatabaseURL != "" {
		db, err = store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			return err
		}
		recorder, history = db, db
	}

	var source interface {
		pipeline.Source
		scheduler.Versioned
	}
	switch cfg.Source {
	case config.SourceFeed:
		source = feed.Source{Client: &http.Client{Timeout: cfg.RequestTimeout}, URL: cfg.FeedURL}
	default:
		source = store.DatasetSource{Store: db, DatasetID: cfg.DatasetID}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	exec := &pipeline.Executor{Params: prm, Logger: logger, Metrics: observability.NewMetrics(reg)}
	manager := pipeline.NewManager(source, exec, recorder)
	trigger := scheduler.NewTrigger(manager, source, logger)

	if cfg.RunOnStart {
		trigger.Tick(ctx)
	}
	if cfg.AutoRunSchedule != "" {
		c, err := scheduler.Schedule(ctx, cfg.AutoRunSchedule, trigger)
		if err != nil {
			return err
		}
		c.Start()
		defer c.Stop()
		logger.Info("auto-run scheduled", "schedule", cfg.AutoRunSchedule)
	}

	srv := httpserver.New(cfg, manager, history, reg)
	logger.Info("REST API listening", "addr", cfg.ListenAddr(), "source", cfg.Source)

	err = srv.Run(ctx)
	manager.Wait()
	return err
}
