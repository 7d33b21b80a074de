package backend

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
	"github.com/soundprediction/vectorgate/pkg/alert"
	"github.com/soundprediction/vectorgate/pkg/config"
	"github.com/soundprediction/vectorgate/pkg/types"
)

// newBreaker builds the shared gobreaker settings for one wrapped backend.
// A tripped breaker rejects calls immediately; it never retries, matching
// the gateway's no-internal-retry policy.
func newBreaker(cfg config.CircuitBreakerConfig, alerter alert.Alerter, name string) *gobreaker.CircuitBreaker {
	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    time.Duration(cfg.Interval) * time.Second,
		Timeout:     time.Duration(cfg.Timeout) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= cfg.ReadyToTripRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				msg := fmt.Sprintf("Circuit Breaker '%s' changed status from %s to %s. Too many failures detected.", name, from, to)
				if alerter != nil {
					_ = alerter.Alert(fmt.Sprintf("URGENT: Circuit Breaker Tripped - %s", name), msg)
				}
				slog.Warn("circuit breaker tripped", "breaker", name, "from", from.String(), "to", to.String())
			}
		},
	}
	return gobreaker.NewCircuitBreaker(st)
}

// BreakerSparse wraps a SparseBackend with circuit breaking logic.
type BreakerSparse struct {
	inner SparseBackend
	cb    *gobreaker.CircuitBreaker
}

// WrapSparseWithBreaker wraps backend when the breaker is enabled; otherwise
// it returns the backend unchanged.
func WrapSparseWithBreaker(b SparseBackend, cfg config.CircuitBreakerConfig, alerter alert.Alerter) SparseBackend {
	if !cfg.Enabled {
		return b
	}
	return &BreakerSparse{inner: b, cb: newBreaker(cfg, alerter, "sparse:"+b.Model())}
}

// EmbedSparse implements SparseBackend
func (w *BreakerSparse) EmbedSparse(ctx context.Context, texts []string, opts Options) ([]types.SparseVector, error) {
	out, err := w.cb.Execute(func() (interface{}, error) {
		return w.inner.EmbedSparse(ctx, texts, opts)
	})
	if err != nil {
		return nil, err
	}
	return out.([]types.SparseVector), nil
}

// Model implements SparseBackend
func (w *BreakerSparse) Model() string { return w.inner.Model() }

// Close implements SparseBackend
func (w *BreakerSparse) Close() error { return w.inner.Close() }

// BreakerDense wraps a DenseBackend with circuit breaking logic.
type BreakerDense struct {
	inner DenseBackend
	cb    *gobreaker.CircuitBreaker
}

// WrapDenseWithBreaker wraps backend when the breaker is enabled; otherwise
// it returns the backend unchanged.
func WrapDenseWithBreaker(b DenseBackend, cfg config.CircuitBreakerConfig, alerter alert.Alerter) DenseBackend {
	if !cfg.Enabled {
		return b
	}
	return &BreakerDense{inner: b, cb: newBreaker(cfg, alerter, "dense:"+b.Model())}
}

// EmbedDense implements DenseBackend
func (w *BreakerDense) EmbedDense(ctx context.Context, texts []string, opts Options) ([]types.DenseVector, error) {
	out, err := w.cb.Execute(func() (interface{}, error) {
		return w.inner.EmbedDense(ctx, texts, opts)
	})
	if err != nil {
		return nil, err
	}
	return out.([]types.DenseVector), nil
}

// Model implements DenseBackend
func (w *BreakerDense) Model() string { return w.inner.Model() }

// Dimensions implements DenseBackend
func (w *BreakerDense) Dimensions() int { return w.inner.Dimensions() }

// Close implements DenseBackend
func (w *BreakerDense) Close() error { return w.inner.Close() }

// BreakerMulti wraps a MultiBackend with circuit breaking logic.
type BreakerMulti struct {
	inner MultiBackend
	cb    *gobreaker.CircuitBreaker
}

// WrapMultiWithBreaker wraps backend when the breaker is enabled; otherwise
// it returns the backend unchanged.
func WrapMultiWithBreaker(b MultiBackend, cfg config.CircuitBreakerConfig, alerter alert.Alerter) MultiBackend {
	if !cfg.Enabled {
		return b
	}
	return &BreakerMulti{inner: b, cb: newBreaker(cfg, alerter, "multi:"+b.Model())}
}

// EmbedAll implements MultiBackend
func (w *BreakerMulti) EmbedAll(ctx context.Context, texts []string, opts Options, want types.KindSet) (*Fragment, error) {
	out, err := w.cb.Execute(func() (interface{}, error) {
		return w.inner.EmbedAll(ctx, texts, opts, want)
	})
	if err != nil {
		return nil, err
	}
	return out.(*Fragment), nil
}

// Model implements MultiBackend
func (w *BreakerMulti) Model() string { return w.inner.Model() }

// Dimensions implements MultiBackend
func (w *BreakerMulti) Dimensions() int { return w.inner.Dimensions() }

// Close implements MultiBackend
func (w *BreakerMulti) Close() error { return w.inner.Close() }
