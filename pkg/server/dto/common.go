package dto

import "errors"

// Validation errors
var (
	ErrNoTexts         = errors.New("texts cannot be null")
	ErrEmptyText       = errors.New("texts must not contain empty strings")
	ErrTooManyTexts    = errors.New("texts count exceeds maximum (10000)")
	ErrTextTooLong     = errors.New("text exceeds maximum length (1MB)")
	ErrBadBatchSize    = errors.New("batch_size must be positive")
	ErrBadThreads      = errors.New("threads must be positive")
	ErrNegativeAvgLen  = errors.New("avg_len must be non-negative")
	ErrNoKindRequested = errors.New("at least one of return_sparse, return_dense, return_multivector must be true")
)

// MaxFieldLengths defines maximum sizes for request fields to prevent abuse
const (
	MaxTextsCount = 10000
	MaxTextLength = 1024 * 1024 // 1MB
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

// Error codes returned in ErrorResponse.Error
const (
	CodeInvalidRequest      = "invalid_request"
	CodeAuthorizationFailed = "authorization_failed"
	CodeBackendUnavailable  = "backend_unavailable"
	CodeInvocationFailed    = "embedding_generation_failed"
	CodeInternalError       = "internal_error"
)
