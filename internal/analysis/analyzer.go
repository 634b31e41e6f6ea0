// Package analysis runs the full pipeline: parse, filter, merge, aggregate.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"courtstats/internal/catalog"
	"courtstats/internal/core"
	"courtstats/internal/ingest"
	applog "courtstats/internal/log"
	"courtstats/internal/metrics"
	"courtstats/internal/reconcile"
	"courtstats/internal/stats"
	"courtstats/internal/venue"
)

// Analyzer is safe for concurrent use; every call owns its inputs.
type Analyzer struct {
	classifier  *venue.Classifier
	merger      *reconcile.Merger
	engine      *stats.Engine
	location    *time.Location
	logger      *applog.Logger
	includeRows bool
}

type Option func(*Analyzer)

// WithLocation sets the zone for timestamps without an offset.
func WithLocation(loc *time.Location) Option {
	return func(a *Analyzer) { a.location = loc }
}

func WithLogger(l *applog.Logger) Option {
	return func(a *Analyzer) { a.logger = l }
}

// WithOrders copies the parsed order rows into reports.
func WithOrders(include bool) Option {
	return func(a *Analyzer) { a.includeRows = include }
}

func New(c catalog.Catalog, opts ...Option) *Analyzer {
	a := &Analyzer{
		classifier: venue.NewClassifier(c),
		engine:     stats.NewEngine(c),
		location:   time.Local,
		logger:     applog.Discard(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.WithComponent(applog.ComponentAnalysis)
	a.merger = reconcile.NewMerger(a.classifier, a.logger.Slog())
	return a
}

// IncludingOrders returns a copy of a that copies order rows into reports
// when include is set.
func (a *Analyzer) IncludingOrders(include bool) *Analyzer {
	if a.includeRows == include {
		return a
	}
	cp := *a
	cp.includeRows = include
	return &cp
}

// Classifier exposes the venue classifier built from the catalog.
func (a *Analyzer) Classifier() *venue.Classifier {
	return a.classifier
}

// Analyze runs the pipeline over parsed orders.
func (a *Analyzer) Analyze(ctx context.Context, orders []core.OrderRow) (core.Report, error) {
	return a.run(ctx, orders, 0)
}

// run analyses orders; warnings is the number of rows dropped upstream.
func (a *Analyzer) run(ctx context.Context, orders []core.OrderRow, warnings int) (core.Report, error) {
	start := time.Now()
	report, err := a.analyze(ctx, orders, warnings)
	metrics.RecordAnalysis(outcome(err), time.Since(start), len(report.Activities))
	return report, err
}

func (a *Analyzer) analyze(ctx context.Context, orders []core.OrderRow, warnings int) (core.Report, error) {
	filtered := reconcile.Filter(orders)
	if len(filtered.Outgoing) == 0 {
		return core.Report{}, fmt.Errorf("analyze: %w", core.ErrNoOutgoingOrders)
	}

	activities := a.merger.Merge(ctx, filtered.Outgoing)

	s, err := a.engine.Compute(activities, filtered.NetSpent, filtered.TotalOutgoing, filtered.TotalIncoming)
	if err != nil {
		return core.Report{}, fmt.Errorf("analyze: %w", err)
	}
	s.TotalOrders = len(orders)
	s.OrderActivityRatio = float64(len(filtered.Outgoing)) / float64(len(activities))

	report := core.Report{
		Statistics: s,
		Monthly:    stats.Monthly(activities),
		Quarterly:  stats.Quarterly(activities),
		Venues:     stats.Venues(activities, a.classifier.Fallback()),
		Weekdays:   stats.Weekdays(activities),
		Health:     a.engine.Gauge(s.AvgPerWeek),
		Activities: activities,
	}
	if a.includeRows {
		report.Orders = append([]core.OrderRow(nil), orders...)
	}

	applog.NewStructuredLogger(a.logger).LogAnalysis(ctx,
		len(orders), len(filtered.Outgoing), len(activities), warnings,
		s.NetSpent.StringFixed(2), string(s.HealthLevel))

	return report, nil
}

// AnalyzeTable parses a spreadsheet table and analyses the accepted rows.
// Row warnings are attached to the report.
func (a *Analyzer) AnalyzeTable(ctx context.Context, t ingest.Table) (core.Report, error) {
	parsed, err := ingest.ParseOrders(t, a.location)
	if err != nil {
		metrics.RecordAnalysis(metrics.OutcomeInvalid, 0, 0)
		return core.Report{}, fmt.Errorf("parse orders: %w", err)
	}
	metrics.RecordIngest(len(parsed.Orders), len(parsed.Warnings))
	if len(parsed.Warnings) > 0 {
		a.logger.WarnContext(ctx, "Rows skipped during ingest",
			applog.FieldWarnings, len(parsed.Warnings),
			applog.FieldOrders, len(parsed.Orders))
	}

	report, err := a.run(ctx, parsed.Orders, len(parsed.Warnings))
	if err != nil {
		return core.Report{Warnings: parsed.Warnings}, err
	}
	report.Warnings = parsed.Warnings
	return report, nil
}

// IsInputError reports whether err was caused by the data rather than the system.
func IsInputError(err error) bool {
	return errors.Is(err, core.ErrEmptyInput) ||
		errors.Is(err, core.ErrNoOutgoingOrders) ||
		errors.Is(err, ingest.ErrEmptyTable) ||
		errors.Is(err, ingest.ErrMissingColumns) ||
		errors.Is(err, ingest.ErrNoSheets) ||
		errors.Is(err, ingest.ErrUnreadableWorkbook)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case IsInputError(err):
		return metrics.OutcomeEmpty
	default:
		return metrics.OutcomeFailure
	}
}
