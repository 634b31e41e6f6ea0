package log

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldSubcomponent  = "subcomponent"
	FieldRequestID     = "request_id"
	FieldClientIP      = "client_ip"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldQuery         = "query"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldDurationHuman = "duration_human"
	FieldUserAgent     = "user_agent"
	FieldSuccess       = "success"
	FieldError         = "error"
	FieldOperation     = "operation"
	FieldSourceRef     = "source_ref"
	FieldDigest        = "digest"
	FieldJobID         = "job_id"
	FieldOrders        = "orders"
	FieldOutgoing      = "outgoing"
	FieldActivities    = "activities"
	FieldWarnings      = "warnings"
	FieldNetSpent      = "net_spent"
	FieldHealthLevel   = "health_level"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentIngest    = "ingest"
	ComponentAnalysis  = "analysis"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentSheets    = "sheets"
	ComponentCache     = "cache"
	ComponentRateLimit = "rate_limit"
	ComponentTrace     = "trace"
	ComponentBackend   = "backend"
	ComponentCLI       = "cli"
)

// Operations defines standard operation names
const (
	OpAnalyze  = "analyze"
	OpIngest   = "ingest"
	OpRead     = "read"
	OpList     = "list"
	OpPublish  = "publish"
	OpConsume  = "consume"
	OpValidate = "validate"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithBatch adds the sizes of one analysed batch
func (f LogFields) WithBatch(orders, outgoing, activities, warnings int) LogFields {
	f[FieldOrders] = orders
	f[FieldOutgoing] = outgoing
	f[FieldActivities] = activities
	f[FieldWarnings] = warnings
	return f
}

// WithJob adds job identification fields
func (f LogFields) WithJob(jobID, sourceRef string) LogFields {
	f[FieldJobID] = jobID
	f[FieldSourceRef] = sourceRef
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
