package backend

import (
	"fmt"

	"github.com/soundprediction/vectorgate/pkg/types"
)

// InvocationError wraps an error raised by an available backend during a
// specific call, carrying the backend kind and the underlying message.
type InvocationError struct {
	Kind types.Kind
	Err  error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("embedding generation failed (%s): %v", e.Kind, e.Err)
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support for InvocationError.
// This allows errors.Is(err, &InvocationError{}) to work with wrapped errors.
func (e *InvocationError) Is(target error) bool {
	_, ok := target.(*InvocationError)
	return ok
}

// NewInvocationError creates a new invocation error for the given backend kind.
func NewInvocationError(kind types.Kind, err error) *InvocationError {
	return &InvocationError{Kind: kind, Err: err}
}
