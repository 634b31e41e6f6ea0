package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"courtstats/internal/amqp"
	"courtstats/internal/cli"
	apphttp "courtstats/internal/http"
	applog "courtstats/internal/log"
	"courtstats/internal/storage"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentApp)

	analyzer, err := cli.NewAnalyzer(cfg, logger)
	if err != nil {
		logger.ErrorErr(context.Background(), "Failed to load venue catalog", err, "path", cfg.CatalogFile)
		os.Exit(1)
	}

	src, err := cli.OpenSource(context.Background(), cfg, logger)
	if err != nil {
		logger.ErrorErr(context.Background(), "Failed to open row source", err, "source", cfg.DataSource)
		os.Exit(1)
	}
	if src.Cleanup != nil {
		defer src.Cleanup()
	}

	jobs, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.ErrorErr(context.Background(), "Failed to open job store", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer jobs.Close()

	opts := apphttp.Options{
		Analyzer:           analyzer,
		Source:             src.Source,
		Jobs:               jobs,
		Logger:             logger,
		MaxUploadBytes:     cfg.MaxUploadBytes,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		CacheSize:          cfg.CacheSize,
		CacheTTL:           cfg.CacheTTL,
	}

	// Job messaging is optional; without a broker /api/jobs answers 503.
	var amqpClient *amqp.Client
	if cfg.MessagingEnabled() {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, amqp.Options{
			ReportRoutingKey: cfg.AMQPReportRoutingKey,
			Logger:           logger.Slog(),
		})
		if err != nil {
			logger.ErrorErr(context.Background(), "Failed to initialize AMQP client", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		opts.Publisher = amqpClient
		logger.Info("AMQP publisher enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	}

	srv := apphttp.NewServer(":"+cfg.Port, opts)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.ErrorErr(shutdownCtx, "Server shutdown error", err)
		}
	})

	logger.Info("Starting courtstats server", "port", cfg.Port, "source", cfg.DataSource, "timezone", cfg.Timezone)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.ErrorErr(context.Background(), "Server error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
