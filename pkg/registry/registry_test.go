package registry

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/vectorgate/pkg/backend"
	"github.com/soundprediction/vectorgate/pkg/config"
	"github.com/soundprediction/vectorgate/pkg/logger"
	"github.com/soundprediction/vectorgate/pkg/types"
)

func baselineConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Backends.Sparse = config.SparseBackendConfig{
		Enabled: true, Model: "bm25", K1: 1.2, B: 0.75, AvgDocLen: 256,
	}
	// Dense and multi stay disabled so tests never load models or dial out
	return cfg
}

func testLogger() *slog.Logger {
	return logger.NewDefaultLogger(slog.LevelError)
}

func TestNewSparseBaseline(t *testing.T) {
	reg, err := New(context.Background(), baselineConfig(), testLogger())
	require.NoError(t, err)
	defer reg.Close()

	assert.True(t, reg.Available(types.KindSparse))
	assert.False(t, reg.Available(types.KindDense))
	assert.False(t, reg.Available(types.KindMultiVector))

	info, ok := reg.Metadata(types.KindSparse)
	require.True(t, ok)
	assert.Equal(t, "bm25", info.Name)

	_, ok = reg.Metadata(types.KindDense)
	assert.False(t, ok)
}

func TestNewFailsWithoutSparse(t *testing.T) {
	cfg := baselineConfig()
	cfg.Backends.Sparse.Enabled = false

	_, err := New(context.Background(), cfg, testLogger())
	assert.Error(t, err)
}

func TestNewFailsOnInvalidSparseConfig(t *testing.T) {
	cfg := baselineConfig()
	cfg.Backends.Sparse.K1 = -1

	_, err := New(context.Background(), cfg, testLogger())
	assert.Error(t, err)
}

type stubMulti struct{ dims int }

func (s *stubMulti) EmbedAll(context.Context, []string, backend.Options, types.KindSet) (*backend.Fragment, error) {
	return &backend.Fragment{}, nil
}
func (s *stubMulti) Model() string   { return "stub-multi" }
func (s *stubMulti) Dimensions() int { return s.dims }
func (s *stubMulti) Close() error    { return nil }

func TestNewFromBackendsDenseMetadataFallsBackToMulti(t *testing.T) {
	sparse, err := backend.NewBM25(config.SparseBackendConfig{
		Enabled: true, K1: 1.2, B: 0.75, AvgDocLen: 256,
	})
	require.NoError(t, err)

	reg := NewFromBackends(sparse, nil, &stubMulti{dims: 16}, testLogger())

	// Dense requests can be served through the multi backend, so the kind
	// is available and described by the multi backend's identity.
	assert.True(t, reg.Available(types.KindDense))
	info, ok := reg.Metadata(types.KindDense)
	require.True(t, ok)
	assert.Equal(t, "stub-multi", info.Name)
	assert.Equal(t, 16, info.Dimensions)
}
