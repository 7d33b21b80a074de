package orchestrator

import (
	"errors"
	"fmt"

	"github.com/soundprediction/vectorgate/pkg/types"
)

// ErrBackendUnavailable is the sentinel matched by errors.Is for any
// capability-gap failure. Availability is fixed at startup, so callers
// should not retry these.
var ErrBackendUnavailable = errors.New("backend unavailable")

// ErrNoKindsRequested is returned when a request names no output kind.
var ErrNoKindsRequested = errors.New("at least one output kind must be requested")

// ErrInvariantViolation is the sentinel for internal defects such as a
// backend returning the wrong vector count or dimensionality.
var ErrInvariantViolation = errors.New("invariant violation")

// UnavailableError reports that a requested kind has no backend capable of
// serving it.
type UnavailableError struct {
	Kind types.Kind
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("no backend available for %s embeddings", e.Kind)
}

func (e *UnavailableError) Unwrap() error {
	return ErrBackendUnavailable
}

// InvariantError reports an internal defect in a backend's output. It is
// always fatal to the request and never coerced into a partial result.
type InvariantError struct {
	Kind   types.Kind
	Reason string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("internal error in %s output: %s", e.Kind, e.Reason)
}

func (e *InvariantError) Unwrap() error {
	return ErrInvariantViolation
}
