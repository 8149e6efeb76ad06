package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/wind-stream-service/internal/adapter/cache"
	httpadapter "github.com/couchcryptid/wind-stream-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/wind-stream-service/internal/adapter/kafka"
	"github.com/couchcryptid/wind-stream-service/internal/adapter/sqlite"
	"github.com/couchcryptid/wind-stream-service/internal/config"
	"github.com/couchcryptid/wind-stream-service/internal/observability"
	"github.com/couchcryptid/wind-stream-service/internal/pipeline"
	"github.com/couchcryptid/wind-stream-service/internal/query"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.Open(ctx, cfg.SQLitePath, logger)
	if err != nil {
		logger.Error("failed to open snapshot store", "error", err)
		os.Exit(1)
	}

	// Reads and ingest writes share the cache so a re-ingested hour is never served stale.
	var snapshots cache.SnapshotStore = store
	if cfg.SnapshotCacheSize > 0 {
		snapshots = cache.New(store, cfg.SnapshotCacheSize, metrics)
		logger.Info("snapshot cache enabled", "size", cfg.SnapshotCacheSize)
	}

	service := query.NewService(snapshots, logger, metrics)
	srv := httpadapter.NewServer(cfg.HTTPAddr, service, store, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	var reader *kafkaadapter.Reader
	if cfg.IngestEnabled {
		reader = kafkaadapter.NewReader(cfg, logger)
		transformer := pipeline.NewTransformer(logger, metrics)
		loader := pipeline.NewStoreLoader(snapshots)
		p := pipeline.New(reader, transformer, loader, logger, metrics, cfg.BatchSize)

		go func() {
			if err := p.Run(ctx); err != nil {
				logger.Error("pipeline error", "error", err)
			}
		}()
		logger.Info("snapshot ingest enabled", "topic", cfg.KafkaSnapshotTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("snapshot ingest disabled")
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if reader != nil {
		if err := reader.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}
	if err := store.Close(); err != nil {
		logger.Error("snapshot store close error", "error", err)
	}

	logger.Info("shutdown complete")
}
