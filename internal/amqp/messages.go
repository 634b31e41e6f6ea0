package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"courtstats/internal/core"
	"courtstats/internal/validation"
)

// AnalysisRequest asks a worker to analyse one stored workbook.
// The worker fetches the rows itself; the message carries only the reference.
type AnalysisRequest struct {
	JobID         string    `json:"job_id" validate:"required,uuid4"`
	SourceRef     string    `json:"source_ref" validate:"required,source_ref"`
	IncludeOrders bool      `json:"include_orders,omitempty"`
	RequestedAt   time.Time `json:"requested_at" validate:"required"`
}

func NewAnalysisRequest(sourceRef string) *AnalysisRequest {
	return &AnalysisRequest{
		JobID:       uuid.NewString(),
		SourceRef:   sourceRef,
		RequestedAt: time.Now(),
	}
}

func (m *AnalysisRequest) Validate() error {
	return validation.Get().Struct(m)
}

func (m *AnalysisRequest) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// AnalysisRequestFromJSON decodes and validates a request body.
func AnalysisRequestFromJSON(data []byte) (*AnalysisRequest, error) {
	var msg AnalysisRequest
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decode analysis request: %w", err)
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ReportReady announces the outcome of an analysis job. Error is set and
// Summary is zero when the job failed.
type ReportReady struct {
	JobID       string           `json:"job_id"`
	SourceRef   string           `json:"source_ref"`
	Summary     core.Statistics  `json:"summary"`
	Health      core.HealthGauge `json:"health"`
	Warnings    []string         `json:"warnings,omitempty"`
	Orders      []core.OrderRow  `json:"orders,omitempty"`
	Error       string           `json:"error,omitempty"`
	CompletedAt time.Time        `json:"completed_at"`
}

// NewReportReady builds the completion message for req.
func NewReportReady(req *AnalysisRequest, report core.Report, err error) *ReportReady {
	msg := &ReportReady{
		JobID:       req.JobID,
		SourceRef:   req.SourceRef,
		Warnings:    report.Warnings,
		CompletedAt: time.Now(),
	}
	if err != nil {
		msg.Error = err.Error()
		return msg
	}
	msg.Summary = report.Statistics
	msg.Health = report.Health
	if req.IncludeOrders {
		msg.Orders = report.Orders
	}
	return msg
}

func (m *ReportReady) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ReportReadyFromJSON(data []byte) (*ReportReady, error) {
	var msg ReportReady
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
