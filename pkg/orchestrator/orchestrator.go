// Package orchestrator routes embedding requests across the loaded backends.
// It resolves which backends serve which of the requested output kinds,
// invokes them, degrades to partial results on capability gaps, and
// assembles the per-kind fragments into one positionally aligned result.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/soundprediction/vectorgate/pkg/backend"
	"github.com/soundprediction/vectorgate/pkg/config"
	"github.com/soundprediction/vectorgate/pkg/registry"
	"github.com/soundprediction/vectorgate/pkg/types"
	"github.com/soundprediction/vectorgate/pkg/utils"
)

// State tracks a request through the orchestration pipeline. States are not
// persisted across requests.
type State string

const (
	StateReceived         State = "received"
	StateResolving        State = "resolving"
	StateInvoking         State = "invoking"
	StateAssembling       State = "assembling"
	StateCompleted        State = "completed"
	StatePartialCompleted State = "partial_completed"
	StateFailed           State = "failed"
)

// Request is one parsed embedding call. Immutable once constructed.
type Request struct {
	Texts []string

	// BatchSize and Threads fall back to configured defaults when zero.
	BatchSize int
	Threads   int

	// AvgLen, when non-nil, is used verbatim instead of being computed.
	AvgLen *float64

	Kinds types.KindSet
}

// Result aggregates the per-kind outputs of one request. Every populated
// vector slice has length len(Request.Texts), aligned positionally.
type Result struct {
	State State

	Sparse []types.SparseVector
	Dense  []types.DenseVector
	Multi  []types.MultiVector

	// AvgLen is set iff sparse output was requested.
	AvgLen *float64

	// Models records which model produced each delivered kind.
	Models map[types.Kind]types.ModelInfo

	// Omitted lists requested kinds dropped because no backend could serve
	// them while the rest of the request succeeded.
	Omitted []types.Kind
}

// Orchestrator is safe for concurrent use; it holds no per-request state.
type Orchestrator struct {
	reg      *registry.Registry
	defaults config.EmbeddingConfig
	logger   *slog.Logger
}

// New builds an orchestrator over an initialized registry.
func New(reg *registry.Registry, defaults config.EmbeddingConfig, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{reg: reg, defaults: defaults, logger: logger}
}

// plan is the resolved backend selection for one request.
type plan struct {
	// useMulti routes multiWant kinds through the multi-functional backend
	// in a single call.
	useMulti  bool
	multiWant types.KindSet

	// useSparse / useDense route through the dedicated adapters.
	useSparse bool
	useDense  bool

	omitted []types.Kind
}

// Embed runs the full pipeline for one request. It returns a Result in a
// Completed or PartialCompleted state, or an error (the Failed state).
func (o *Orchestrator) Embed(ctx context.Context, req Request) (*Result, error) {
	log := o.logger.With("texts", len(req.Texts), "kinds", kindNames(req.Kinds))
	log.Debug("embedding request received", "state", StateReceived)

	p, err := o.resolve(req.Kinds)
	if err != nil {
		log.Warn("embedding request rejected", "state", StateFailed, "error", err)
		return nil, err
	}
	log.Debug("backend selection resolved", "state", StateResolving,
		"multi", p.useMulti, "sparse", p.useSparse, "dense", p.useDense)

	opts := backend.Options{
		BatchSize: req.BatchSize,
		Threads:   req.Threads,
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = o.defaults.BatchSizeDefault
	}
	if opts.Threads <= 0 {
		opts.Threads = o.defaults.ThreadsDefault
	}

	frags, err := o.invoke(ctx, req.Texts, opts, p)
	if err != nil {
		log.Error("backend invocation failed", "state", StateFailed, "error", err)
		return nil, err
	}

	res, err := o.assemble(req, p, frags)
	if err != nil {
		log.Error("result assembly failed", "state", StateFailed, "error", err)
		return nil, err
	}
	log.Debug("embedding request finished", "state", res.State, "omitted", res.Omitted)
	return res, nil
}

// resolve maps the requested kinds onto the available backends. It fails
// fast on capability gaps that cannot degrade to a partial result, before
// any backend is invoked.
func (o *Orchestrator) resolve(kinds types.KindSet) (*plan, error) {
	if !kinds.Any() {
		return nil, ErrNoKindsRequested
	}

	haveMulti := o.reg.Multi() != nil
	haveDense := o.reg.Dense() != nil
	haveSparse := o.reg.Sparse() != nil

	// Sparse is the baseline guarantee: if no sparse-capable backend exists
	// the whole request fails regardless of what else was asked for.
	if kinds.Sparse && !haveSparse && !haveMulti {
		return nil, &UnavailableError{Kind: types.KindSparse}
	}
	if kinds.Count() == 1 {
		if kinds.Dense && !haveDense && !haveMulti {
			return nil, &UnavailableError{Kind: types.KindDense}
		}
		if kinds.MultiVector && !haveMulti {
			return nil, &UnavailableError{Kind: types.KindMultiVector}
		}
	}

	p := &plan{}
	combined := kinds.Count() > 1

	switch {
	case combined && haveMulti:
		// One call covers every requested kind; no redundant invocations.
		p.useMulti = true
		p.multiWant = kinds

	case combined:
		// Fan out to the dedicated adapters. Multi-vector output only ever
		// comes from the multi-functional backend, so it is dropped here.
		if kinds.MultiVector {
			p.omitted = append(p.omitted, types.KindMultiVector)
		}
		if kinds.Sparse {
			p.useSparse = haveSparse
		}
		if kinds.Dense {
			if haveDense {
				p.useDense = true
			} else {
				p.omitted = append(p.omitted, types.KindDense)
			}
		}
		if !p.useSparse && !p.useDense {
			// Nothing can be served, so a partial result is impossible.
			if kinds.Dense {
				return nil, &UnavailableError{Kind: types.KindDense}
			}
			return nil, &UnavailableError{Kind: types.KindMultiVector}
		}

	case kinds.Sparse:
		// Single-kind sparse keeps the legacy dedicated route even when the
		// multi-functional backend could serve it.
		if haveSparse {
			p.useSparse = true
		} else {
			p.useMulti = true
			p.multiWant = types.KindSet{Sparse: true}
		}

	case kinds.Dense:
		if haveDense {
			p.useDense = true
		} else {
			p.useMulti = true
			p.multiWant = types.KindSet{Dense: true}
		}

	case kinds.MultiVector:
		p.useMulti = true
		p.multiWant = types.KindSet{MultiVector: true}
	}

	return p, nil
}

// invoke runs the planned backend calls. Dedicated adapters that appear in
// the same plan have independent failure domains and run concurrently; any
// invocation error fails the whole request.
func (o *Orchestrator) invoke(ctx context.Context, texts []string, opts backend.Options, p *plan) ([]*backend.Fragment, error) {
	// An empty batch is valid and produces empty outputs for every planned
	// kind without touching a backend.
	if len(texts) == 0 {
		return nil, nil
	}

	var fns []func() (*backend.Fragment, error)

	if p.useMulti {
		want := p.multiWant
		fns = append(fns, func() (*backend.Fragment, error) {
			frag, err := o.reg.Multi().EmbedAll(ctx, texts, opts, want)
			if err != nil {
				return nil, invocationFailure(firstKind(want), err)
			}
			return frag, nil
		})
	}
	if p.useSparse {
		fns = append(fns, func() (*backend.Fragment, error) {
			vecs, err := o.reg.Sparse().EmbedSparse(ctx, texts, opts)
			if err != nil {
				return nil, invocationFailure(types.KindSparse, err)
			}
			return &backend.Fragment{Sparse: vecs}, nil
		})
	}
	if p.useDense {
		fns = append(fns, func() (*backend.Fragment, error) {
			vecs, err := o.reg.Dense().EmbedDense(ctx, texts, opts)
			if err != nil {
				return nil, invocationFailure(types.KindDense, err)
			}
			return &backend.Fragment{Dense: vecs}, nil
		})
	}

	frags, errs := utils.ExecuteWithResults(ctx, opts.Threads, fns...)
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return frags, nil
}

// assemble merges fragments into the final result and enforces the output
// invariants: positional alignment, recorded dimensionality, and unique
// sparse indices. Violations fail the request rather than being coerced.
func (o *Orchestrator) assemble(req Request, p *plan, frags []*backend.Fragment) (*Result, error) {
	res := &Result{
		Models:  make(map[types.Kind]types.ModelInfo),
		Omitted: p.omitted,
	}

	merged := backend.Fragment{}
	for _, frag := range frags {
		if frag == nil {
			continue
		}
		if frag.Sparse != nil {
			merged.Sparse = frag.Sparse
		}
		if frag.Dense != nil {
			merged.Dense = frag.Dense
		}
		if frag.Multi != nil {
			merged.Multi = frag.Multi
		}
	}

	n := len(req.Texts)

	wantSparse := p.useSparse || (p.useMulti && p.multiWant.Sparse)
	if wantSparse {
		if merged.Sparse == nil {
			merged.Sparse = []types.SparseVector{}
		}
		if len(merged.Sparse) != n {
			return nil, &InvariantError{Kind: types.KindSparse,
				Reason: countMismatch(len(merged.Sparse), n)}
		}
		for _, v := range merged.Sparse {
			if err := v.Validate(); err != nil {
				return nil, &InvariantError{Kind: types.KindSparse, Reason: err.Error()}
			}
		}
		res.Sparse = merged.Sparse
		res.Models[types.KindSparse] = o.modelFor(types.KindSparse, p.useMulti && p.multiWant.Sparse)
	}

	wantDense := p.useDense || (p.useMulti && p.multiWant.Dense)
	if wantDense {
		if merged.Dense == nil {
			merged.Dense = []types.DenseVector{}
		}
		if len(merged.Dense) != n {
			return nil, &InvariantError{Kind: types.KindDense,
				Reason: countMismatch(len(merged.Dense), n)}
		}
		info := o.modelFor(types.KindDense, p.useMulti && p.multiWant.Dense)
		if info.Dimensions > 0 {
			for _, v := range merged.Dense {
				if len(v) != info.Dimensions {
					return nil, &InvariantError{Kind: types.KindDense,
						Reason: dimMismatch(len(v), info.Dimensions)}
				}
			}
		}
		res.Dense = merged.Dense
		res.Models[types.KindDense] = info
	}

	if p.useMulti && p.multiWant.MultiVector {
		if merged.Multi == nil {
			merged.Multi = []types.MultiVector{}
		}
		if len(merged.Multi) != n {
			return nil, &InvariantError{Kind: types.KindMultiVector,
				Reason: countMismatch(len(merged.Multi), n)}
		}
		res.Multi = merged.Multi
		res.Models[types.KindMultiVector] = o.modelFor(types.KindMultiVector, true)
	}

	if req.Kinds.Sparse {
		avgLen := AverageTokenLength(req.Texts, req.AvgLen)
		res.AvgLen = &avgLen
	}

	if len(res.Omitted) > 0 {
		res.State = StatePartialCompleted
	} else {
		res.State = StateCompleted
	}
	return res, nil
}

// modelFor returns the identity of the backend that produced a kind. When
// the multi-functional backend served it, its model and dimensionality apply
// even if a dedicated adapter for the same kind is also loaded; otherwise the
// registry's per-kind record does.
func (o *Orchestrator) modelFor(kind types.Kind, viaMulti bool) types.ModelInfo {
	if viaMulti {
		if m := o.reg.Multi(); m != nil {
			return types.ModelInfo{Name: m.Model(), Dimensions: m.Dimensions()}
		}
	}
	if info, ok := o.reg.Metadata(kind); ok {
		return info
	}
	if m := o.reg.Multi(); m != nil {
		return types.ModelInfo{Name: m.Model(), Dimensions: m.Dimensions()}
	}
	return types.ModelInfo{}
}

// invocationFailure classifies a backend error. Adapters already wrap their
// own failures; everything else (circuit breaker rejections, panics
// recovered by the executor) is wrapped here with the affected kind.
func invocationFailure(kind types.Kind, err error) error {
	var invErr *backend.InvocationError
	if errors.As(err, &invErr) {
		return err
	}
	return backend.NewInvocationError(kind, err)
}

func firstKind(k types.KindSet) types.Kind {
	switch {
	case k.Sparse:
		return types.KindSparse
	case k.Dense:
		return types.KindDense
	default:
		return types.KindMultiVector
	}
}

func kindNames(k types.KindSet) []string {
	var names []string
	if k.Sparse {
		names = append(names, string(types.KindSparse))
	}
	if k.Dense {
		names = append(names, string(types.KindDense))
	}
	if k.MultiVector {
		names = append(names, string(types.KindMultiVector))
	}
	return names
}

func countMismatch(got, want int) string {
	return fmt.Sprintf("backend returned %d vectors for %d texts", got, want)
}

func dimMismatch(got, want int) string {
	return fmt.Sprintf("backend returned a %d-dimensional vector, expected %d", got, want)
}
