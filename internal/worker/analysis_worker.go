// Package worker handles analysis jobs delivered over AMQP.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"courtstats/internal/amqp"
	"courtstats/internal/analysis"
	"courtstats/internal/core"
	applog "courtstats/internal/log"
	"courtstats/internal/metrics"
	"courtstats/internal/sheets"
	"courtstats/internal/storage"
)

const defaultJobTimeout = 2 * time.Minute

// ReportPublisher announces finished jobs.
type ReportPublisher interface {
	PublishReportReady(ctx context.Context, msg *amqp.ReportReady) error
}

// JobRecorder keeps the outcome of each job for later lookup.
type JobRecorder interface {
	CompleteJob(ctx context.Context, id string, res storage.JobResult) error
}

// AnalysisWorker reads the workbook a job points at, analyses it and
// publishes the outcome.
type AnalysisWorker struct {
	source    sheets.TableReader
	analyzer  *analysis.Analyzer
	publisher ReportPublisher
	jobs      JobRecorder
	logger    *applog.Logger
	timeout   time.Duration
}

type Option func(*AnalysisWorker)

// WithJobRecorder stores every published outcome in r.
func WithJobRecorder(r JobRecorder) Option {
	return func(w *AnalysisWorker) { w.jobs = r }
}

// WithTimeout bounds the time spent on one job.
func WithTimeout(d time.Duration) Option {
	return func(w *AnalysisWorker) { w.timeout = d }
}

func NewAnalysisWorker(source sheets.TableReader, analyzer *analysis.Analyzer, publisher ReportPublisher, logger *applog.Logger, opts ...Option) *AnalysisWorker {
	if logger == nil {
		logger = applog.Discard()
	}
	w := &AnalysisWorker{
		source:    source,
		analyzer:  analyzer,
		publisher: publisher,
		logger:    logger.WithComponent(applog.ComponentWorker),
		timeout:   defaultJobTimeout,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// HandleAnalysisRequest processes one job. Jobs that can never succeed
// (unknown workbook, unusable data) publish a failed report and return a
// permanent error; infrastructure failures return a plain error so the
// message is redelivered.
func (w *AnalysisWorker) HandleAnalysisRequest(ctx context.Context, req *amqp.AnalysisRequest) error {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	logger := w.logger.With(applog.NewFields().WithJob(req.JobID, req.SourceRef).ToSlice()...)
	start := time.Now()

	tbl, err := w.source.ReadTable(ctx, req.SourceRef)
	if err != nil {
		if errors.Is(err, sheets.ErrSourceNotFound) || errors.Is(err, sheets.ErrInvalidRef) {
			return w.reject(ctx, logger, req, core.Report{}, err)
		}
		metrics.RecordJob(metrics.OutcomeFailure)
		return fmt.Errorf("read source %q: %w", req.SourceRef, err)
	}

	report, err := w.analyzer.IncludingOrders(req.IncludeOrders).AnalyzeTable(ctx, tbl)
	if err != nil {
		if analysis.IsInputError(err) {
			return w.reject(ctx, logger, req, report, err)
		}
		metrics.RecordJob(metrics.OutcomeFailure)
		return fmt.Errorf("analyze %q: %w", req.SourceRef, err)
	}

	if err := w.finish(ctx, logger, amqp.NewReportReady(req, report, nil)); err != nil {
		metrics.RecordJob(metrics.OutcomeFailure)
		return fmt.Errorf("publish report: %w", err)
	}

	metrics.RecordJob(metrics.OutcomeSuccess)
	logger.InfoContext(ctx, "Analysis job completed",
		applog.FieldActivities, report.Statistics.TotalActivities,
		applog.FieldWarnings, len(report.Warnings),
		applog.FieldNetSpent, report.Statistics.NetSpent.StringFixed(2),
		applog.FieldDuration, time.Since(start).Milliseconds())
	return nil
}

func (w *AnalysisWorker) reject(ctx context.Context, logger *applog.Logger, req *amqp.AnalysisRequest, report core.Report, cause error) error {
	if err := w.finish(ctx, logger, amqp.NewReportReady(req, report, cause)); err != nil {
		metrics.RecordJob(metrics.OutcomeFailure)
		return fmt.Errorf("publish failed report: %w", err)
	}
	metrics.RecordJob(metrics.OutcomeInvalid)
	logger.WarnContext(ctx, "Analysis job rejected", applog.FieldError, cause)
	return amqp.Permanent(cause)
}

// finish publishes msg and records it. A failed record is logged only;
// the published message is the source of truth.
func (w *AnalysisWorker) finish(ctx context.Context, logger *applog.Logger, msg *amqp.ReportReady) error {
	if err := w.publisher.PublishReportReady(ctx, msg); err != nil {
		return err
	}
	if w.jobs == nil {
		return nil
	}
	res := storage.JobResult{
		SourceRef:   msg.SourceRef,
		Summary:     msg.Summary,
		Health:      msg.Health,
		Warnings:    msg.Warnings,
		Error:       msg.Error,
		CompletedAt: msg.CompletedAt,
	}
	if err := w.jobs.CompleteJob(ctx, msg.JobID, res); err != nil {
		logger.ErrorErr(ctx, "Failed to record job outcome", err)
	}
	return nil
}
