package trace

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	applog "courtstats/internal/log"
)

func TestGenerateRequestID(t *testing.T) {
	re := regexp.MustCompile(`^req_[0-9a-f]{16}$`)
	a, b := GenerateRequestID(), GenerateRequestID()
	if !re.MatchString(a) || a == b {
		t.Fatalf("unexpected ids %q %q", a, b)
	}
}

func TestMiddlewareLogsAndPropagates(t *testing.T) {
	var buf bytes.Buffer
	logger := applog.New(applog.Config{Output: &buf, Format: applog.FormatJSON, Component: applog.ComponentHTTP})
	m := NewMiddleware(logger, func(*http.Request) string { return "10.1.1.1" })

	mux := http.NewServeMux()
	var seenID string
	mux.HandleFunc("GET /api/sources/{ref}/report", func(w http.ResponseWriter, r *http.Request) {
		seenID = GetRequestID(r.Context())
		applog.FromContext(r.Context()).Info("inside handler")
		w.WriteHeader(http.StatusNotFound)
	})

	rr := httptest.NewRecorder()
	m.Middleware(mux).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/sources/march/report", nil))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rr.Code)
	}
	if seenID == "" || rr.Header().Get(HeaderRequestID) != seenID {
		t.Fatalf("request id not propagated: handler=%q header=%q", seenID, rr.Header().Get(HeaderRequestID))
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var last map[string]any
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &last); err != nil {
		t.Fatal(err)
	}
	if last["level"] != "WARN" || last[applog.FieldStatusCode] != float64(404) || last[applog.FieldRequestID] != seenID {
		t.Errorf("unexpected completion record: %v", last)
	}
	if !strings.Contains(buf.String(), "inside handler") {
		t.Error("handler log missing")
	}
	if m.GetMetrics().TotalRequests != 1 {
		t.Errorf("TotalRequests = %d", m.GetMetrics().TotalRequests)
	}
}

func TestMiddlewareKeepsCallerRequestID(t *testing.T) {
	m := NewMiddleware(nil, nil)
	r := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	r.Header.Set(HeaderRequestID, "upstream-42")
	rr := httptest.NewRecorder()
	m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetRequestID(r.Context()) != "upstream-42" {
			t.Errorf("request id = %q", GetRequestID(r.Context()))
		}
	})).ServeHTTP(rr, r)

	r.Header.Set(HeaderRequestID, "has spaces")
	rr = httptest.NewRecorder()
	m.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})).ServeHTTP(rr, r)
	if !strings.HasPrefix(rr.Header().Get(HeaderRequestID), "req_") {
		t.Errorf("invalid caller id should be replaced, got %q", rr.Header().Get(HeaderRequestID))
	}
}
