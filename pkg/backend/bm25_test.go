package backend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/vectorgate/pkg/config"
)

func testBM25Config() config.SparseBackendConfig {
	return config.SparseBackendConfig{
		Enabled:   true,
		Model:     "bm25",
		K1:        1.2,
		B:         0.75,
		AvgDocLen: 256,
	}
}

func TestNewBM25Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.SparseBackendConfig)
		wantErr bool
	}{
		{"defaults", func(c *config.SparseBackendConfig) {}, false},
		{"negative k1", func(c *config.SparseBackendConfig) { c.K1 = -0.1 }, true},
		{"b above one", func(c *config.SparseBackendConfig) { c.B = 1.5 }, true},
		{"b below zero", func(c *config.SparseBackendConfig) { c.B = -0.5 }, true},
		{"zero avg doc len", func(c *config.SparseBackendConfig) { c.AvgDocLen = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testBM25Config()
			tt.mutate(&cfg)
			_, err := NewBM25(cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBM25EmbedSparse(t *testing.T) {
	b, err := NewBM25(testBM25Config())
	require.NoError(t, err)

	vecs, err := b.EmbedSparse(context.Background(), []string{"hello world", "hello hello hello"}, Options{})
	require.NoError(t, err)
	require.Len(t, vecs, 2)

	for _, v := range vecs {
		require.NoError(t, v.Validate())
		// Indices are emitted in ascending order
		for i := 1; i < len(v.Indices); i++ {
			assert.Less(t, v.Indices[i-1], v.Indices[i])
		}
		for _, val := range v.Values {
			assert.Greater(t, val, float32(0))
		}
	}

	// Two distinct terms in the first text, one unique term in the second
	assert.Len(t, vecs[0].Indices, 2)
	assert.Len(t, vecs[1].Indices, 1)
}

func TestBM25TermSaturation(t *testing.T) {
	b, err := NewBM25(testBM25Config())
	require.NoError(t, err)

	vecs, err := b.EmbedSparse(context.Background(), []string{"term", "term term term"}, Options{})
	require.NoError(t, err)
	require.Len(t, vecs, 2)

	// Higher term frequency weighs more, but sublinearly: the tripled term
	// must not triple the weight.
	single := vecs[0].Values[0]
	tripled := vecs[1].Values[0]
	assert.Greater(t, tripled, single)
	assert.Less(t, tripled, 3*single)
}

func TestBM25Deterministic(t *testing.T) {
	b, err := NewBM25(testBM25Config())
	require.NoError(t, err)

	texts := []string{"the quick brown fox", "jumps over the lazy dog"}
	first, err := b.EmbedSparse(context.Background(), texts, Options{})
	require.NoError(t, err)
	second, err := b.EmbedSparse(context.Background(), texts, Options{})
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestBM25TokenizeNormalizesCase(t *testing.T) {
	b, err := NewBM25(testBM25Config())
	require.NoError(t, err)

	vecs, err := b.EmbedSparse(context.Background(), []string{"Hello HELLO hello"}, Options{})
	require.NoError(t, err)
	require.Len(t, vecs, 1)
	// Case variants collapse to one feature
	assert.Len(t, vecs[0].Indices, 1)
}

func TestBM25EmptyBatch(t *testing.T) {
	b, err := NewBM25(testBM25Config())
	require.NoError(t, err)

	vecs, err := b.EmbedSparse(context.Background(), nil, Options{})
	require.NoError(t, err)
	assert.Empty(t, vecs)
}

func TestBM25ContextCancellation(t *testing.T) {
	b, err := NewBM25(testBM25Config())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = b.EmbedSparse(ctx, []string{"hello"}, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}
