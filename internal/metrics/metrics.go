// Package metrics exposes prometheus collectors for the analysis pipeline,
// the report cache, the HTTP layer and the worker.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "courtstats"

// Outcome labels.
const (
	OutcomeSuccess  = "success"
	OutcomeEmpty    = "empty"
	OutcomeInvalid  = "invalid"
	OutcomeFailure  = "failure"
	OutcomeHit      = "hit"
	OutcomeMiss     = "miss"
	OutcomeShared   = "shared"
	OutcomeRejected = "rejected"
)

var (
	analysesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "analysis",
		Name:      "runs_total",
		Help:      "Number of pipeline runs by outcome.",
	}, []string{"outcome"})

	analysisDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "analysis",
		Name:      "duration_seconds",
		Help:      "Time spent running the pipeline on one batch.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	ordersIngested = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ingest",
		Name:      "orders_total",
		Help:      "Order rows accepted by the parser.",
	})

	rowWarnings = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ingest",
		Name:      "row_warnings_total",
		Help:      "Order rows rejected with a warning.",
	})

	activitiesDerived = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "analysis",
		Name:      "activities_total",
		Help:      "Activities derived from orders.",
	})

	cacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "Report cache lookups by outcome.",
	}, []string{"outcome"})

	cacheEntries = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "entries",
		Help:      "Reports currently held in the cache.",
	})

	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route and status code class.",
	}, []string{"route", "code"})

	jobsProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "worker",
		Name:      "jobs_total",
		Help:      "Analysis jobs handled by the worker by outcome.",
	}, []string{"outcome"})
)

func init() {
	prometheus.MustRegister(
		analysesTotal,
		analysisDuration,
		ordersIngested,
		rowWarnings,
		activitiesDerived,
		cacheLookups,
		cacheEntries,
		httpRequests,
		jobsProcessed,
	)
}

// RecordAnalysis records one pipeline run.
func RecordAnalysis(outcome string, elapsed time.Duration, activities int) {
	analysesTotal.WithLabelValues(outcome).Inc()
	analysisDuration.Observe(elapsed.Seconds())
	if activities > 0 {
		activitiesDerived.Add(float64(activities))
	}
}

// RecordIngest records accepted and rejected rows of one table.
func RecordIngest(orders, warnings int) {
	ordersIngested.Add(float64(orders))
	rowWarnings.Add(float64(warnings))
}

// RecordCacheLookup records a report cache hit, miss or shared computation.
func RecordCacheLookup(outcome string) {
	cacheLookups.WithLabelValues(outcome).Inc()
}

// SetCacheEntries publishes the current cache size.
func SetCacheEntries(n int) {
	cacheEntries.Set(float64(n))
}

// RecordHTTPRequest counts a finished request. code is the status class, e.g. "2xx".
func RecordHTTPRequest(route string, status int) {
	httpRequests.WithLabelValues(route, statusClass(status)).Inc()
}

// RecordJob records one worker job.
func RecordJob(outcome string) {
	jobsProcessed.WithLabelValues(outcome).Inc()
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
