package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/storm-exposure/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/storm-exposure/internal/adapter/kafka"
	"github.com/couchcryptid/storm-exposure/internal/adapter/pointfile"
	"github.com/couchcryptid/storm-exposure/internal/config"
	"github.com/couchcryptid/storm-exposure/internal/domain"
	"github.com/couchcryptid/storm-exposure/internal/exposure"
	"github.com/couchcryptid/storm-exposure/internal/observability"
	"github.com/couchcryptid/storm-exposure/internal/pipeline"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load(".env.local")

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing, logger)
	if err != nil {
		logger.Error("failed to init tracing", "error", err)
		os.Exit(1)
	}

	// Default points for track messages that carry none.
	var points []domain.QueryPoint
	if cfg.QueryPointsPath != "" {
		points, err = pointfile.Load(cfg.QueryPointsPath)
		if err != nil {
			logger.Error("failed to load query points", "error", err, "path", cfg.QueryPointsPath)
			os.Exit(1)
		}
		logger.Info("query points loaded", "count", len(points), "path", cfg.QueryPointsPath)
	}

	evaluator, err := exposure.NewEvaluator(cfg.Exposure,
		exposure.WithWorkers(cfg.Workers),
		exposure.WithCache(exposure.NewModelCache(cfg.EnvelopeCacheSize)),
		exposure.WithMetrics(metrics),
		exposure.WithLogger(logger),
	)
	if err != nil {
		logger.Error("invalid exposure parameters", "error", err)
		os.Exit(1)
	}
	logger.Info("exposure model configured",
		"threshold", cfg.Exposure.Threshold.String(),
		"alpha", cfg.Exposure.Alpha,
		"interval", cfg.Exposure.Interval,
		"workers", cfg.Workers,
		"params_file", cfg.ParamsFile,
	)

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	transformer := pipeline.NewTransformer(evaluator, points, cfg.StormTimeout, logger)

	p := pipeline.New(reader, transformer, writer, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, evaluator, points, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start exposure pipeline.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}
	observability.ShutdownTracing(shutdownCtx, shutdownTracing, logger)

	logger.Info("shutdown complete")
}
