// Package http serves the analysis API.
package http

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"courtstats/internal/amqp"
	"courtstats/internal/analysis"
	"courtstats/internal/cache"
	applog "courtstats/internal/log"
	"courtstats/internal/middleware/ratelimit"
	"courtstats/internal/middleware/security"
	"courtstats/internal/middleware/trace"
	"courtstats/internal/sheets"
	"courtstats/internal/storage"
)

// JobPublisher queues analysis jobs for the worker.
type JobPublisher interface {
	PublishAnalysisRequest(ctx context.Context, req *amqp.AnalysisRequest) error
}

// JobStore tracks queued jobs and their outcomes.
type JobStore interface {
	CreateJob(ctx context.Context, id, sourceRef string, includeOrders bool, requestedAt time.Time) error
	CompleteJob(ctx context.Context, id string, res storage.JobResult) error
	GetJob(ctx context.Context, id string) (storage.Job, error)
	ListJobs(ctx context.Context, limit int) ([]storage.Job, error)
}

// Options wires the server's collaborators. Publisher may be nil, which
// disables job submission; Jobs may be nil, which disables job lookup.
type Options struct {
	Analyzer           *analysis.Analyzer
	Source             sheets.Source
	Publisher          JobPublisher
	Jobs               JobStore
	Logger             *applog.Logger
	MaxUploadBytes     int64
	RateLimitPerMinute int
	CacheSize          int
	CacheTTL           time.Duration
}

type Server struct {
	http.Server
	analyzer  *analysis.Analyzer
	source    sheets.Source
	publisher JobPublisher
	jobs      JobStore
	logger    *applog.Logger
	maxUpload int64

	reports     *cache.ReportCache
	cacheMgr    *cache.Manager
	rateLimiter *ratelimit.Limiter
	tracer      *trace.Middleware
	detector    *security.Detector

	ready        atomic.Bool
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.Discard()
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 64
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 15 * time.Minute
	}

	s := &Server{
		analyzer:    opts.Analyzer,
		source:      opts.Source,
		publisher:   opts.Publisher,
		jobs:        opts.Jobs,
		logger:      logger,
		maxUpload:   opts.MaxUploadBytes,
		reports:     cache.NewReportCache(opts.CacheSize, opts.CacheTTL),
		cacheMgr:    cache.NewManager(logger.WithComponent(applog.ComponentCache).Slog()),
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector:    security.NewDetector(),
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP)

	s.cacheMgr.Register(s.reports)
	s.cacheMgr.StartCleanup(cacheSweepInterval(opts.CacheTTL))

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/analyze", s.handleAnalyze)
	mux.HandleFunc("GET /api/sources", s.handleListSources)
	mux.HandleFunc("PUT /api/sources/{ref}", s.handleUploadSource)
	mux.HandleFunc("GET /api/sources/{ref}/report", s.handleSourceReport)
	mux.HandleFunc("POST /api/jobs", s.handleCreateJob)
	mux.HandleFunc("GET /api/jobs", s.handleListJobs)
	mux.HandleFunc("GET /api/jobs/{id}", s.handleGetJob)
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	var h http.Handler = mux
	h = s.rateLimiter.Middleware(s.detector.ExtractClientIP, s.onRateLimited, http.MethodPost, http.MethodPut)(h)
	h = s.detector.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.tracer.Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	s.ready.Store(true)
	return s
}

func cacheSweepInterval(ttl time.Duration) time.Duration {
	if ttl < time.Minute {
		return time.Minute
	}
	return ttl
}

// Shutdown stops background routines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.ready.Store(false)
		s.cacheMgr.Stop()
		s.rateLimiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
