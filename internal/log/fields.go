package log

// Canonical field names for structured logging.
const (
	FieldRequestID   = "request_id"
	FieldComponent   = "component"
	FieldBackend     = "backend"
	FieldAction      = "action"
	FieldContentType = "content_type"
	FieldGenre       = "genre"
	FieldStreamID    = "stream_id"
	FieldDuration    = "duration_ms"
)
