package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"courtstats/internal/analysis"
	"courtstats/internal/core"
	"courtstats/internal/ingest"
	applog "courtstats/internal/log"
	"courtstats/internal/sheets"
)

type errorBody struct {
	Error    string   `json:"error"`
	Warnings []string `json:"warnings,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

func (s *Server) writeUploadError(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "文件过大")
	case errors.Is(err, errMissingFile):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Unreadable upload", applog.FieldError, err)
		writeError(w, http.StatusBadRequest, "invalid upload")
	}
}

// writeAnalysisError maps pipeline failures onto status codes. Problems
// with the data are 422 and carry the row warnings collected so far.
func (s *Server) writeAnalysisError(w http.ResponseWriter, r *http.Request, report core.Report, err error) {
	switch {
	case errors.Is(err, sheets.ErrSourceNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, sheets.ErrInvalidRef):
		writeError(w, http.StatusBadRequest, err.Error())
	case analysis.IsInputError(err):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: inputMessage(err), Warnings: report.Warnings})
	default:
		applog.NewStructuredLogger(applog.FromContext(r.Context())).
			LogError(r.Context(), "Analysis failed", err, applog.OpAnalyze, nil)
		writeError(w, http.StatusInternalServerError, "analysis failed")
	}
}

// inputMessage returns the user-facing part of a data error without the
// wrapping prefixes added along the pipeline.
func inputMessage(err error) string {
	var missing *ingest.MissingColumnsError
	if errors.As(err, &missing) {
		return missing.Error()
	}
	for _, target := range []error{
		core.ErrNoOutgoingOrders, core.ErrEmptyInput,
		ingest.ErrEmptyTable, ingest.ErrNoSheets, ingest.ErrUnreadableWorkbook,
	} {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return err.Error()
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded", applog.FieldClientIP, s.detector.ExtractClientIP(r))
	writeError(w, http.StatusTooManyRequests, "请求过于频繁，请稍后再试")
}
