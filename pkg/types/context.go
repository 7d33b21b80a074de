package types

// ContextKey is a typed key for request-scoped context values.
type ContextKey string

const (
	// ContextKeyRequestID carries the per-request ID assigned by the server.
	ContextKeyRequestID ContextKey = "request_id"
	// ContextKeyRequestSource marks where a request entered the system.
	ContextKeyRequestSource ContextKey = "request_source"
)
