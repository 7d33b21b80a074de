// Package registry acquires the configured embedding backends at startup and
// exposes an immutable view of which vector kinds the gateway can serve.
// Availability is fixed for the lifetime of the process: a backend that fails
// to load stays unavailable, and no backend is added later.
package registry

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/soundprediction/vectorgate/pkg/alert"
	"github.com/soundprediction/vectorgate/pkg/backend"
	"github.com/soundprediction/vectorgate/pkg/cache"
	"github.com/soundprediction/vectorgate/pkg/config"
	"github.com/soundprediction/vectorgate/pkg/types"
)

// Registry holds the backends acquired at startup. All fields are set once
// in New and never mutated afterwards, so it is safe for concurrent reads.
type Registry struct {
	sparse backend.SparseBackend
	dense  backend.DenseBackend
	multi  backend.MultiBackend

	store *cache.Store

	meta map[types.Kind]types.ModelInfo

	logger *slog.Logger
}

// New loads the configured backends. The sparse backend is the baseline
// capability: if it cannot be acquired the whole startup fails. Dense and
// multi-functional backends degrade gracefully to "unavailable".
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Registry, error) {
	r := &Registry{
		meta:   make(map[types.Kind]types.ModelInfo),
		logger: logger,
	}

	alerter := buildAlerter(cfg)

	// Multi-functional first: when it loads, combined requests are served
	// by a single call instead of fanning out to the dedicated backends.
	if cfg.Backends.Multi.Enabled {
		multi, err := backend.NewMultiFunctional(cfg.Backends.Multi)
		if err != nil {
			logger.Warn("multi-functional backend rejected configuration, continuing without it", "error", err)
		} else if err := multi.Load(ctx); err != nil {
			logger.Warn("multi-functional backend failed to load, continuing without it",
				"endpoint", cfg.Backends.Multi.Endpoint, "error", err)
			_ = multi.Close()
		} else {
			r.multi = backend.WrapMultiWithBreaker(multi, cfg.CircuitBreaker, alerter)
			r.meta[types.KindMultiVector] = types.ModelInfo{Name: multi.Model(), Dimensions: multi.Dimensions()}
			logger.Info("multi-functional backend loaded",
				"model", multi.Model(), "dimensions", multi.Dimensions())
		}
	}

	// Sparse is mandatory. Lexical retrieval is the one capability every
	// deployment is promised, so a missing sparse backend is fatal.
	if !cfg.Backends.Sparse.Enabled {
		return nil, fmt.Errorf("sparse backend is disabled but required as baseline capability")
	}
	sparse, err := backend.NewBM25(cfg.Backends.Sparse)
	if err != nil {
		return nil, fmt.Errorf("failed to load sparse backend: %w", err)
	}
	r.sparse = backend.WrapSparseWithBreaker(sparse, cfg.CircuitBreaker, alerter)
	r.meta[types.KindSparse] = types.ModelInfo{Name: sparse.Model()}
	logger.Info("sparse backend loaded", "model", sparse.Model())

	// Dense is optional; a load failure only removes dense-only service.
	if cfg.Backends.Dense.Enabled {
		dense, err := buildDense(cfg)
		if err != nil {
			logger.Warn("dense backend failed to load, continuing without it",
				"provider", cfg.Backends.Dense.Provider, "error", err)
		} else {
			if cfg.Cache.Enabled {
				store, cerr := cache.Open(cfg.Cache.Path)
				if cerr != nil {
					logger.Warn("embedding cache unavailable, dense backend runs uncached", "error", cerr)
				} else {
					r.store = store
					dense = cache.NewCachedDense(dense, store)
				}
			}
			r.dense = backend.WrapDenseWithBreaker(dense, cfg.CircuitBreaker, alerter)
			r.meta[types.KindDense] = types.ModelInfo{Name: dense.Model(), Dimensions: dense.Dimensions()}
			logger.Info("dense backend loaded",
				"provider", cfg.Backends.Dense.Provider,
				"model", dense.Model(), "dimensions", dense.Dimensions())
		}
	}

	// A loaded multi-functional backend can also serve dense requests, so
	// it backfills dense metadata when no dedicated dense backend loaded.
	if _, ok := r.meta[types.KindDense]; !ok && r.multi != nil {
		r.meta[types.KindDense] = types.ModelInfo{Name: r.multi.Model(), Dimensions: r.multi.Dimensions()}
	}

	return r, nil
}

// NewFromBackends assembles a registry directly from already constructed
// backends. It skips configuration loading entirely, which makes it the
// entry point for embedding the gateway as a library and for tests.
func NewFromBackends(sparse backend.SparseBackend, dense backend.DenseBackend, multi backend.MultiBackend, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		meta:   make(map[types.Kind]types.ModelInfo),
		logger: logger,
	}
	if multi != nil {
		r.multi = multi
		r.meta[types.KindMultiVector] = types.ModelInfo{Name: multi.Model(), Dimensions: multi.Dimensions()}
	}
	if sparse != nil {
		r.sparse = sparse
		r.meta[types.KindSparse] = types.ModelInfo{Name: sparse.Model()}
	}
	if dense != nil {
		r.dense = dense
		r.meta[types.KindDense] = types.ModelInfo{Name: dense.Model(), Dimensions: dense.Dimensions()}
	} else if multi != nil {
		r.meta[types.KindDense] = types.ModelInfo{Name: multi.Model(), Dimensions: multi.Dimensions()}
	}
	return r
}

func buildAlerter(cfg *config.Config) alert.Alerter {
	if cfg.Alert.Enabled {
		return alert.NewEmailAlerter(cfg.Alert)
	}
	return &alert.NoOpAlerter{}
}

func buildDense(cfg *config.Config) (backend.DenseBackend, error) {
	switch cfg.Backends.Dense.Provider {
	case "openai":
		return backend.NewOpenAIDense(cfg.Backends.Dense.APIKey, cfg.Backends.Dense)
	case "embedeverything", "":
		return backend.NewEmbedEverything(cfg.Backends.Dense)
	default:
		return nil, fmt.Errorf("unknown dense provider: %s", cfg.Backends.Dense.Provider)
	}
}

// Available reports whether the given vector kind can be produced by any
// loaded backend.
func (r *Registry) Available(kind types.Kind) bool {
	switch kind {
	case types.KindSparse:
		return r.sparse != nil || r.multi != nil
	case types.KindDense:
		return r.dense != nil || r.multi != nil
	case types.KindMultiVector:
		return r.multi != nil
	default:
		return false
	}
}

// Metadata returns the model info recorded for a kind at load time.
func (r *Registry) Metadata(kind types.Kind) (types.ModelInfo, bool) {
	info, ok := r.meta[kind]
	return info, ok
}

// Sparse returns the dedicated sparse backend, or nil when unavailable.
func (r *Registry) Sparse() backend.SparseBackend { return r.sparse }

// Dense returns the dedicated dense backend, or nil when unavailable.
func (r *Registry) Dense() backend.DenseBackend { return r.dense }

// Multi returns the multi-functional backend, or nil when unavailable.
func (r *Registry) Multi() backend.MultiBackend { return r.multi }

// Close releases every loaded backend. Errors are collected so one failing
// backend does not leak the others.
func (r *Registry) Close() error {
	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if r.multi != nil {
		record(r.multi.Close())
	}
	if r.dense != nil {
		record(r.dense.Close())
	}
	if r.sparse != nil {
		record(r.sparse.Close())
	}
	if r.store != nil {
		record(r.store.Close())
	}
	return firstErr
}
