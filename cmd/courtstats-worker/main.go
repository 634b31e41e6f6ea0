package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"courtstats/internal/amqp"
	"courtstats/internal/cli"
	applog "courtstats/internal/log"
	"courtstats/internal/storage"
	"courtstats/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentWorker)

	if !cfg.MessagingEnabled() {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	logger.Info("Starting courtstats-worker", "concurrency", cfg.WorkerConcurrency)

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

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, amqp.Options{
		ReportRoutingKey: cfg.AMQPReportRoutingKey,
		Prefetch:         cfg.WorkerConcurrency,
		Logger:           logger.Slog(),
	})
	if err != nil {
		logger.ErrorErr(context.Background(), "Failed to initialize AMQP client", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	jobs, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.ErrorErr(context.Background(), "Failed to open job store", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer jobs.Close()

	aw := worker.NewAnalysisWorker(src.Source, analyzer, amqpClient, logger, worker.WithJobRecorder(jobs))

	// Metrics and liveness for the orchestrator.
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	probe := &http.Server{Addr: ":" + cfg.Port, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := probe.Shutdown(shutdownCtx); err != nil {
			logger.ErrorErr(shutdownCtx, "Probe server shutdown error", err)
		}
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := amqpClient.ConsumeAnalysisRequests(gctx, aw.HandleAnalysisRequest)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		logger.Info("Serving worker metrics", "port", cfg.Port)
		if err := probe.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		pruneJobs(gctx, logger, jobs, cfg.JobRetention)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return probe.Shutdown(context.Background())
	})

	if err := g.Wait(); err != nil {
		logger.ErrorErr(context.Background(), "Worker stopped with error", err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}

// pruneJobs drops finished jobs older than retention, once at start-up and
// then hourly.
func pruneJobs(ctx context.Context, logger *applog.Logger, jobs *storage.SQLiteRepository, retention time.Duration) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		n, err := jobs.PruneJobs(ctx, time.Now().Add(-retention))
		if err != nil && ctx.Err() == nil {
			logger.ErrorErr(ctx, "Job pruning failed", err)
		} else if n > 0 {
			logger.Info("Pruned finished jobs", "count", n)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
