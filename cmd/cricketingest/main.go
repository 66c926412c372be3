// Package main wires together the cricket ingestion service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/crickstream/cricket-ingest/internal/api"
	archivelocal "github.com/crickstream/cricket-ingest/internal/archive/local"
	"github.com/crickstream/cricket-ingest/internal/clock/system"
	"github.com/crickstream/cricket-ingest/internal/config"
	"github.com/crickstream/cricket-ingest/internal/fetcher/cricapi"
	"github.com/crickstream/cricket-ingest/internal/id/uuid"
	"github.com/crickstream/cricket-ingest/internal/ingest"
	"github.com/crickstream/cricket-ingest/internal/logging"
	"github.com/crickstream/cricket-ingest/internal/metrics"
	"github.com/crickstream/cricket-ingest/internal/storage/postgres"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()
	zap.ReplaceGlobals(logger)

	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clock := system.New()
	ids := uuid.New()

	store, err := postgres.New(ctx, postgres.Config{
		DSN:          cfg.DB.DSN,
		Table:        cfg.DB.Table,
		MaxConns:     cfg.DB.MaxConns,
		MinConns:     cfg.DB.MinConns,
		WriteTimeout: cfg.WriteTimeout(),
	}, clock)
	if err != nil {
		logger.Fatal("store init failed", zap.Error(err))
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		logger.Fatal("schema ensure failed", zap.Error(err))
	}

	fetcher, err := cricapi.New(cricapi.Config{
		Endpoint:  cfg.API.Endpoint,
		APIKey:    cfg.API.APIKey,
		Timeout:   cfg.FetchTimeout(),
		UserAgent: cfg.API.UserAgent,
	})
	if err != nil {
		logger.Fatal("fetcher init failed", zap.Error(err))
	}

	var archiver ingest.Archiver
	if cfg.Archive.Enabled {
		a, err := archivelocal.New(archivelocal.Config{BaseDir: cfg.Archive.BaseDir})
		if err != nil {
			logger.Warn("archiver init failed, continuing without archival", zap.Error(err))
		} else {
			archiver = a
		}
	}

	normalizer := ingest.NewNormalizer(clock, ingest.NormalizerConfig{
		SkipStatuses: cfg.Ingest.SkipStatuses,
	})
	runner := ingest.NewRunner(
		fetcher,
		normalizer,
		store,
		archiver,
		clock,
		ids,
		ingest.RunnerConfig{Interval: cfg.Interval()},
		logger.Named("ingest"),
	)

	apiServer := api.NewServer(store, logger.Named("api"))
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	runnerDone := make(chan struct{})
	go func() {
		defer close(runnerDone)
		logger.Info("ingestion loop started",
			zap.Duration("interval", cfg.Interval()),
			zap.String("endpoint", cfg.API.Endpoint),
		)
		runner.Run(ctx)
	}()

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	<-runnerDone
	logger.Info("shutdown complete")
}
