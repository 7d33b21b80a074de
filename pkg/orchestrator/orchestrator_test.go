package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/vectorgate/pkg/backend"
	"github.com/soundprediction/vectorgate/pkg/config"
	"github.com/soundprediction/vectorgate/pkg/logger"
	"github.com/soundprediction/vectorgate/pkg/registry"
	"github.com/soundprediction/vectorgate/pkg/types"
)

// fakeSparse produces one single-entry sparse vector per text.
type fakeSparse struct {
	err   error
	calls int
}

func (f *fakeSparse) EmbedSparse(_ context.Context, texts []string, _ backend.Options) ([]types.SparseVector, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([]types.SparseVector, len(texts))
	for i := range texts {
		out[i] = types.SparseVector{Indices: []uint32{uint32(i)}, Values: []float32{1}}
	}
	return out, nil
}

func (f *fakeSparse) Model() string { return "fake-sparse" }
func (f *fakeSparse) Close() error  { return nil }

// fakeDense produces dims-length vectors, with an optional wrong-size batch
// or wrong dimensionality to exercise the invariant checks.
type fakeDense struct {
	dims      int
	err       error
	extraVecs int
	badDims   bool
	calls     int
}

func (f *fakeDense) EmbedDense(_ context.Context, texts []string, _ backend.Options) ([]types.DenseVector, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	dims := f.dims
	if f.badDims {
		dims++
	}
	out := make([]types.DenseVector, 0, len(texts)+f.extraVecs)
	for i := 0; i < len(texts)+f.extraVecs; i++ {
		out = append(out, make(types.DenseVector, dims))
	}
	return out, nil
}

func (f *fakeDense) Model() string   { return "fake-dense" }
func (f *fakeDense) Dimensions() int { return f.dims }
func (f *fakeDense) Close() error    { return nil }

// fakeMulti records the kinds it was asked for and serves all of them.
type fakeMulti struct {
	dims     int
	err      error
	calls    int
	lastWant types.KindSet
}

func (f *fakeMulti) EmbedAll(_ context.Context, texts []string, _ backend.Options, want types.KindSet) (*backend.Fragment, error) {
	f.calls++
	f.lastWant = want
	if f.err != nil {
		return nil, f.err
	}
	frag := &backend.Fragment{}
	if want.Sparse {
		frag.Sparse = make([]types.SparseVector, len(texts))
		for i := range texts {
			frag.Sparse[i] = types.SparseVector{Indices: []uint32{7}, Values: []float32{0.5}}
		}
	}
	if want.Dense {
		frag.Dense = make([]types.DenseVector, len(texts))
		for i := range texts {
			frag.Dense[i] = make(types.DenseVector, f.dims)
		}
	}
	if want.MultiVector {
		frag.Multi = make([]types.MultiVector, len(texts))
		for i := range texts {
			frag.Multi[i] = types.MultiVector{make(types.DenseVector, f.dims)}
		}
	}
	return frag, nil
}

func (f *fakeMulti) Model() string   { return "fake-multi" }
func (f *fakeMulti) Dimensions() int { return f.dims }
func (f *fakeMulti) Close() error    { return nil }

func newTestOrchestrator(sparse backend.SparseBackend, dense backend.DenseBackend, multi backend.MultiBackend) *Orchestrator {
	reg := registry.NewFromBackends(sparse, dense, multi, logger.NewDefaultLogger(slog.LevelError))
	return New(reg, config.EmbeddingConfig{BatchSizeDefault: 256, ThreadsDefault: 1}, logger.NewDefaultLogger(slog.LevelError))
}

func TestEmbedSparseOnly(t *testing.T) {
	sparse := &fakeSparse{}
	o := newTestOrchestrator(sparse, &fakeDense{dims: 4}, nil)

	res, err := o.Embed(context.Background(), Request{
		Texts: []string{"hello world", "a"},
		Kinds: types.KindSet{Sparse: true},
	})
	require.NoError(t, err)

	assert.Equal(t, StateCompleted, res.State)
	assert.Len(t, res.Sparse, 2)
	assert.Nil(t, res.Dense)
	assert.Nil(t, res.Multi)
	require.NotNil(t, res.AvgLen)
	assert.Equal(t, 1.5, *res.AvgLen)
	assert.Equal(t, 1, sparse.calls)
}

func TestEmbedSparseOnlyPrefersDedicatedBackend(t *testing.T) {
	sparse := &fakeSparse{}
	multi := &fakeMulti{dims: 4}
	o := newTestOrchestrator(sparse, nil, multi)

	res, err := o.Embed(context.Background(), Request{
		Texts: []string{"hello"},
		Kinds: types.KindSet{Sparse: true},
	})
	require.NoError(t, err)

	assert.Equal(t, StateCompleted, res.State)
	assert.Equal(t, 1, sparse.calls)
	assert.Equal(t, 0, multi.calls)
	assert.Equal(t, "fake-sparse", res.Models[types.KindSparse].Name)
}

func TestEmbedHybridPrefersMultiBackend(t *testing.T) {
	sparse := &fakeSparse{}
	dense := &fakeDense{dims: 4}
	multi := &fakeMulti{dims: 8}
	o := newTestOrchestrator(sparse, dense, multi)

	res, err := o.Embed(context.Background(), Request{
		Texts: []string{"hello", "world"},
		Kinds: types.KindSet{Sparse: true, Dense: true, MultiVector: true},
	})
	require.NoError(t, err)

	assert.Equal(t, StateCompleted, res.State)
	// One call to the multi backend serves every kind; the dedicated
	// backends stay untouched.
	assert.Equal(t, 1, multi.calls)
	assert.Equal(t, 0, sparse.calls)
	assert.Equal(t, 0, dense.calls)
	assert.Equal(t, types.KindSet{Sparse: true, Dense: true, MultiVector: true}, multi.lastWant)

	assert.Len(t, res.Sparse, 2)
	assert.Len(t, res.Dense, 2)
	assert.Len(t, res.Multi, 2)
	require.NotNil(t, res.AvgLen)
	assert.Equal(t, 1.0, *res.AvgLen)

	// Every kind came out of the multi backend, so every kind carries its
	// identity, not the dedicated adapters'.
	assert.Equal(t, "fake-multi", res.Models[types.KindSparse].Name)
	assert.Equal(t, "fake-multi", res.Models[types.KindDense].Name)
	assert.Equal(t, "fake-multi", res.Models[types.KindMultiVector].Name)
	assert.Equal(t, 8, res.Models[types.KindDense].Dimensions)
}

func TestEmbedHybridViaMultiWithDifferentDenseDimensions(t *testing.T) {
	// The dedicated dense backend and the multi-functional backend embed
	// into different spaces. A hybrid request is served entirely by the
	// multi backend, so its dimensionality governs the invariant check and
	// the reported metadata.
	dense := &fakeDense{dims: 4}
	multi := &fakeMulti{dims: 8}
	o := newTestOrchestrator(&fakeSparse{}, dense, multi)

	res, err := o.Embed(context.Background(), Request{
		Texts: []string{"hello", "world"},
		Kinds: types.KindSet{Sparse: true, Dense: true},
	})
	require.NoError(t, err)

	assert.Equal(t, StateCompleted, res.State)
	assert.Equal(t, 0, dense.calls)
	require.Len(t, res.Dense, 2)
	assert.Len(t, res.Dense[0], 8)
	assert.Equal(t, "fake-multi", res.Models[types.KindDense].Name)
	assert.Equal(t, 8, res.Models[types.KindDense].Dimensions)
	assert.Equal(t, "fake-multi", res.Models[types.KindSparse].Name)
}

func TestEmbedHybridFansOutWithoutMulti(t *testing.T) {
	sparse := &fakeSparse{}
	dense := &fakeDense{dims: 4}
	o := newTestOrchestrator(sparse, dense, nil)

	res, err := o.Embed(context.Background(), Request{
		Texts: []string{"hello"},
		Kinds: types.KindSet{Sparse: true, Dense: true},
	})
	require.NoError(t, err)

	assert.Equal(t, StateCompleted, res.State)
	assert.Equal(t, 1, sparse.calls)
	assert.Equal(t, 1, dense.calls)
	assert.Len(t, res.Sparse, 1)
	assert.Len(t, res.Dense, 1)
}

// concurrencyGauge tracks how many backend calls overlap in time.
type concurrencyGauge struct {
	inFlight atomic.Int32
	max      atomic.Int32
}

func (g *concurrencyGauge) enter() {
	cur := g.inFlight.Add(1)
	for {
		prev := g.max.Load()
		if cur <= prev || g.max.CompareAndSwap(prev, cur) {
			return
		}
	}
}

func (g *concurrencyGauge) exit() { g.inFlight.Add(-1) }

type gaugedSparse struct {
	fakeSparse
	gauge *concurrencyGauge
}

func (g *gaugedSparse) EmbedSparse(ctx context.Context, texts []string, opts backend.Options) ([]types.SparseVector, error) {
	g.gauge.enter()
	defer g.gauge.exit()
	time.Sleep(5 * time.Millisecond)
	return g.fakeSparse.EmbedSparse(ctx, texts, opts)
}

type gaugedDense struct {
	fakeDense
	gauge *concurrencyGauge
}

func (g *gaugedDense) EmbedDense(ctx context.Context, texts []string, opts backend.Options) ([]types.DenseVector, error) {
	g.gauge.enter()
	defer g.gauge.exit()
	time.Sleep(5 * time.Millisecond)
	return g.fakeDense.EmbedDense(ctx, texts, opts)
}

func TestEmbedFanOutHonorsThreadsHint(t *testing.T) {
	gauge := &concurrencyGauge{}
	sparse := &gaugedSparse{gauge: gauge}
	dense := &gaugedDense{fakeDense: fakeDense{dims: 4}, gauge: gauge}
	o := newTestOrchestrator(sparse, dense, nil)

	res, err := o.Embed(context.Background(), Request{
		Texts:   []string{"hello"},
		Threads: 1,
		Kinds:   types.KindSet{Sparse: true, Dense: true},
	})
	require.NoError(t, err)

	assert.Equal(t, StateCompleted, res.State)
	assert.Equal(t, int32(1), gauge.max.Load())
}

func TestEmbedDenseOnlyUnavailable(t *testing.T) {
	o := newTestOrchestrator(&fakeSparse{}, nil, nil)

	_, err := o.Embed(context.Background(), Request{
		Texts: []string{"hello"},
		Kinds: types.KindSet{Dense: true},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBackendUnavailable)

	var unavail *UnavailableError
	require.ErrorAs(t, err, &unavail)
	assert.Equal(t, types.KindDense, unavail.Kind)
}

func TestEmbedDenseOnlyServedByMulti(t *testing.T) {
	multi := &fakeMulti{dims: 8}
	o := newTestOrchestrator(&fakeSparse{}, nil, multi)

	res, err := o.Embed(context.Background(), Request{
		Texts: []string{"hello"},
		Kinds: types.KindSet{Dense: true},
	})
	require.NoError(t, err)

	assert.Equal(t, StateCompleted, res.State)
	assert.Equal(t, 1, multi.calls)
	assert.Len(t, res.Dense, 1)
	// avg_len only accompanies sparse output
	assert.Nil(t, res.AvgLen)
}

func TestEmbedHybridDegradesToPartialWithoutDense(t *testing.T) {
	o := newTestOrchestrator(&fakeSparse{}, nil, nil)

	res, err := o.Embed(context.Background(), Request{
		Texts: []string{"hello world", "a"},
		Kinds: types.KindSet{Sparse: true, Dense: true},
	})
	require.NoError(t, err)

	assert.Equal(t, StatePartialCompleted, res.State)
	assert.Len(t, res.Sparse, 2)
	assert.Nil(t, res.Dense)
	assert.Equal(t, []types.Kind{types.KindDense}, res.Omitted)
	require.NotNil(t, res.AvgLen)
	assert.Equal(t, 1.5, *res.AvgLen)
}

func TestEmbedMultiVectorDroppedSilently(t *testing.T) {
	o := newTestOrchestrator(&fakeSparse{}, &fakeDense{dims: 4}, nil)

	res, err := o.Embed(context.Background(), Request{
		Texts: []string{"hello"},
		Kinds: types.KindSet{Sparse: true, Dense: true, MultiVector: true},
	})
	require.NoError(t, err)

	assert.Equal(t, StatePartialCompleted, res.State)
	assert.Len(t, res.Sparse, 1)
	assert.Len(t, res.Dense, 1)
	assert.Nil(t, res.Multi)
	assert.Equal(t, []types.Kind{types.KindMultiVector}, res.Omitted)
}

func TestEmbedMultiVectorOnlyUnavailable(t *testing.T) {
	o := newTestOrchestrator(&fakeSparse{}, &fakeDense{dims: 4}, nil)

	_, err := o.Embed(context.Background(), Request{
		Texts: []string{"hello"},
		Kinds: types.KindSet{MultiVector: true},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBackendUnavailable)
}

func TestEmbedNothingServable(t *testing.T) {
	// Dense and multi-vector requested, neither servable: no partial result
	// is possible because nothing would succeed.
	o := newTestOrchestrator(&fakeSparse{}, nil, nil)

	_, err := o.Embed(context.Background(), Request{
		Texts: []string{"hello"},
		Kinds: types.KindSet{Dense: true, MultiVector: true},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBackendUnavailable)
}

func TestEmbedNoKindsRequested(t *testing.T) {
	o := newTestOrchestrator(&fakeSparse{}, nil, nil)

	_, err := o.Embed(context.Background(), Request{Texts: []string{"hello"}})
	assert.ErrorIs(t, err, ErrNoKindsRequested)
}

func TestEmbedInvocationErrorFailsRequest(t *testing.T) {
	// An erroring backend fails the whole request even though the sparse
	// half would have succeeded: partial results come only from
	// availability gaps, never from invocation errors.
	boom := errors.New("backend exploded")
	sparse := &fakeSparse{}
	o := newTestOrchestrator(sparse, &fakeDense{dims: 4, err: boom}, nil)

	_, err := o.Embed(context.Background(), Request{
		Texts: []string{"hello"},
		Kinds: types.KindSet{Sparse: true, Dense: true},
	})
	require.Error(t, err)

	var invErr *backend.InvocationError
	require.ErrorAs(t, err, &invErr)
	assert.Equal(t, types.KindDense, invErr.Kind)
	assert.ErrorIs(t, err, boom)
}

func TestEmbedEmptyBatch(t *testing.T) {
	sparse := &fakeSparse{}
	o := newTestOrchestrator(sparse, nil, nil)

	res, err := o.Embed(context.Background(), Request{
		Texts: []string{},
		Kinds: types.KindSet{Sparse: true},
	})
	require.NoError(t, err)

	assert.Equal(t, StateCompleted, res.State)
	assert.NotNil(t, res.Sparse)
	assert.Empty(t, res.Sparse)
	require.NotNil(t, res.AvgLen)
	assert.Equal(t, 0.0, *res.AvgLen)
	// No backend is invoked for an empty batch
	assert.Equal(t, 0, sparse.calls)
}

func TestEmbedWrongVectorCount(t *testing.T) {
	o := newTestOrchestrator(&fakeSparse{}, &fakeDense{dims: 4, extraVecs: 1}, nil)

	_, err := o.Embed(context.Background(), Request{
		Texts: []string{"hello"},
		Kinds: types.KindSet{Dense: true},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvariantViolation)
}

func TestEmbedWrongDimensionality(t *testing.T) {
	o := newTestOrchestrator(&fakeSparse{}, &fakeDense{dims: 4, badDims: true}, nil)

	_, err := o.Embed(context.Background(), Request{
		Texts: []string{"hello"},
		Kinds: types.KindSet{Dense: true},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvariantViolation)
}

func TestEmbedShapeDeterminism(t *testing.T) {
	o := newTestOrchestrator(&fakeSparse{}, &fakeDense{dims: 4}, nil)
	req := Request{
		Texts: []string{"hello world", "a b c"},
		Kinds: types.KindSet{Sparse: true, Dense: true},
	}

	first, err := o.Embed(context.Background(), req)
	require.NoError(t, err)
	second, err := o.Embed(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, *first.AvgLen, *second.AvgLen)
	assert.Equal(t, len(first.Sparse), len(second.Sparse))
	assert.Equal(t, len(first.Dense), len(second.Dense))
	for i := range first.Dense {
		assert.Equal(t, len(first.Dense[i]), len(second.Dense[i]))
	}
}
