package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"courtstats/internal/amqp"
	"courtstats/internal/cache"
	"courtstats/internal/core"
	"courtstats/internal/ingest"
	applog "courtstats/internal/log"
	"courtstats/internal/sheets"
	"courtstats/internal/storage"
	"courtstats/internal/validation"
)

const uploadField = "file"

// handleAnalyze runs the pipeline over an uploaded workbook. Identical
// uploads are served from the report cache by content digest.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := applog.FromContext(ctx)

	data, err := s.readUpload(w, r)
	if err != nil {
		s.writeUploadError(w, r, err)
		return
	}

	digest := cache.Digest(data)
	report, err := s.reports.GetOrCompute("upload:"+digest, func() (core.Report, error) {
		// Shared by concurrent identical uploads; one caller going away
		// must not cancel the others.
		ctx := context.WithoutCancel(ctx)
		tbl, err := ingest.ReadXLSX(bytes.NewReader(data))
		if err != nil {
			return core.Report{}, err
		}
		return s.analyzer.AnalyzeTable(ctx, tbl)
	})
	if err != nil {
		s.writeAnalysisError(w, r, report, err)
		return
	}

	logger.InfoContext(ctx, "Workbook analysed",
		applog.FieldDigest, digest[:12],
		applog.FieldActivities, report.Statistics.TotalActivities,
		applog.FieldWarnings, len(report.Warnings))
	writeJSON(w, http.StatusOK, report)
}

// readUpload returns the bytes of the multipart "file" field, or the raw
// body when the request is not multipart.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		return io.ReadAll(r.Body)
	}

	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		return nil, err
	}
	defer r.MultipartForm.RemoveAll()

	f, _, err := r.FormFile(uploadField)
	if err != nil {
		return nil, errMissingFile
	}
	defer f.Close()
	return io.ReadAll(f)
}

var errMissingFile = errors.New("请上传Excel文件")

func (s *Server) handleSourceReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ref := r.PathValue("ref")
	if !validation.ValidSourceRef(ref) {
		writeError(w, http.StatusBadRequest, sheets.ErrInvalidRef.Error())
		return
	}
	if s.source == nil {
		writeError(w, http.StatusServiceUnavailable, "no row source configured")
		return
	}

	if r.URL.Query().Get("refresh") == "1" {
		s.reports.Invalidate("source:" + ref)
	}

	report, err := s.reports.GetOrCompute("source:"+ref, func() (core.Report, error) {
		ctx := context.WithoutCancel(ctx)
		tbl, err := s.source.ReadTable(ctx, ref)
		if err != nil {
			return core.Report{}, err
		}
		return s.analyzer.AnalyzeTable(ctx, tbl)
	})
	if err != nil {
		s.writeAnalysisError(w, r, report, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleListSources(w http.ResponseWriter, r *http.Request) {
	if s.source == nil {
		writeJSON(w, http.StatusOK, map[string]any{"sources": []sheets.SourceInfo{}})
		return
	}
	list, err := s.source.List(r.Context())
	if err != nil {
		applog.FromContext(r.Context()).ErrorErr(r.Context(), "Failed to list sources", err, applog.FieldOperation, applog.OpList)
		writeError(w, http.StatusBadGateway, "failed to list sources")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sources": list})
}

// handleUploadSource stores a workbook in a writable source so jobs can
// reference it later.
func (s *Server) handleUploadSource(w http.ResponseWriter, r *http.Request) {
	ref := r.PathValue("ref")
	if !validation.ValidSourceRef(ref) {
		writeError(w, http.StatusBadRequest, sheets.ErrInvalidRef.Error())
		return
	}
	up, ok := s.source.(sheets.Uploader)
	if !ok {
		writeError(w, http.StatusMethodNotAllowed, "source is read-only")
		return
	}

	data, err := s.readUpload(w, r)
	if err != nil {
		s.writeUploadError(w, r, err)
		return
	}
	// Reject anything the reader could not open later.
	if _, err := ingest.ReadXLSX(bytes.NewReader(data)); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := up.Save(r.Context(), ref, bytes.NewReader(data)); err != nil {
		applog.FromContext(r.Context()).ErrorErr(r.Context(), "Failed to store workbook", err, applog.FieldSourceRef, ref)
		writeError(w, http.StatusInternalServerError, "failed to store workbook")
		return
	}
	s.reports.Invalidate("source:" + ref)
	writeJSON(w, http.StatusCreated, map[string]string{"ref": ref})
}

type createJobRequest struct {
	SourceRef     string `json:"source_ref"`
	IncludeOrders bool   `json:"include_orders"`
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	if s.publisher == nil {
		writeError(w, http.StatusServiceUnavailable, "job messaging is disabled")
		return
	}

	var body createJobRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<10))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	req := amqp.NewAnalysisRequest(strings.TrimSpace(body.SourceRef))
	req.IncludeOrders = body.IncludeOrders
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	logger := applog.FromContext(ctx)
	if s.jobs != nil {
		if err := s.jobs.CreateJob(ctx, req.JobID, req.SourceRef, req.IncludeOrders, req.RequestedAt); err != nil {
			logger.ErrorErr(ctx, "Failed to record job", err, applog.FieldJobID, req.JobID)
			writeError(w, http.StatusInternalServerError, "failed to record job")
			return
		}
	}

	if err := s.publisher.PublishAnalysisRequest(ctx, req); err != nil {
		logger.ErrorErr(ctx, "Failed to queue job", err,
			applog.FieldJobID, req.JobID, applog.FieldOperation, applog.OpPublish)
		if s.jobs != nil {
			res := storage.JobResult{SourceRef: req.SourceRef, Error: "failed to queue job"}
			if err := s.jobs.CompleteJob(context.WithoutCancel(ctx), req.JobID, res); err != nil {
				logger.ErrorErr(ctx, "Failed to record job", err, applog.FieldJobID, req.JobID)
			}
		}
		writeError(w, http.StatusServiceUnavailable, "failed to queue job")
		return
	}

	w.Header().Set("Location", "/api/jobs/"+req.JobID)
	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": req.JobID, "source_ref": req.SourceRef})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	if s.jobs == nil {
		writeError(w, http.StatusNotFound, storage.ErrJobNotFound.Error())
		return
	}
	job, err := s.jobs.GetJob(r.Context(), r.PathValue("id"))
	if errors.Is(err, storage.ErrJobNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		applog.FromContext(r.Context()).ErrorErr(r.Context(), "Failed to load job", err, applog.FieldJobID, r.PathValue("id"))
		writeError(w, http.StatusInternalServerError, "failed to load job")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	if s.jobs == nil {
		writeJSON(w, http.StatusOK, map[string]any{"jobs": []storage.Job{}})
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}
	jobs, err := s.jobs.ListJobs(r.Context(), limit)
	if err != nil {
		applog.FromContext(r.Context()).ErrorErr(r.Context(), "Failed to list jobs", err)
		writeError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if !s.ready.Load() || s.analyzer == nil {
		writeError(w, http.StatusServiceUnavailable, "not ready")
		return
	}
	m := s.tracer.GetMetrics()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":            "ready",
		"cached_reports":    s.reports.Size(),
		"rate_limited":      s.rateLimiter.Rejected(),
		"requests":          m.TotalRequests,
		"avg_response_us":   m.AverageResponseTime,
		"messaging_enabled": s.publisher != nil,
	})
}
