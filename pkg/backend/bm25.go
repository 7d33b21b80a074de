package backend

import (
	"context"
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
	"unicode"

	"github.com/soundprediction/vectorgate/pkg/config"
	"github.com/soundprediction/vectorgate/pkg/types"
)

// BM25 is an in-process sparse backend producing document-side BM25 term
// weights compatible with the Qdrant/bm25 scheme: each token is hashed into
// a 31-bit index space and weighted with tf-saturation and length
// normalization. IDF is applied query-side by the consumer, so it does not
// appear here.
type BM25 struct {
	model     string
	k1        float64
	b         float64
	avgDocLen float64
}

// NewBM25 creates the BM25 sparse backend from configuration. Parameter
// validation failures are load failures: the sparse backend is the service
// baseline, so they abort startup.
func NewBM25(cfg config.SparseBackendConfig) (*BM25, error) {
	if cfg.K1 < 0 {
		return nil, fmt.Errorf("bm25: k1 must be non-negative, got %v", cfg.K1)
	}
	if cfg.B < 0 || cfg.B > 1 {
		return nil, fmt.Errorf("bm25: b must be in [0, 1], got %v", cfg.B)
	}
	if cfg.AvgDocLen <= 0 {
		return nil, fmt.Errorf("bm25: avg_doc_len must be positive, got %v", cfg.AvgDocLen)
	}
	model := cfg.Model
	if model == "" {
		model = "bm25"
	}
	return &BM25{
		model:     model,
		k1:        cfg.K1,
		b:         cfg.B,
		avgDocLen: cfg.AvgDocLen,
	}, nil
}

// EmbedSparse implements SparseBackend.
func (m *BM25) EmbedSparse(ctx context.Context, texts []string, _ Options) ([]types.SparseVector, error) {
	vectors := make([]types.SparseVector, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, NewInvocationError(types.KindSparse, err)
		}
		vectors[i] = m.encode(text)
	}
	return vectors, nil
}

// encode computes the sparse weighting for one document.
func (m *BM25) encode(text string) types.SparseVector {
	tokens := Tokenize(text)
	counts := make(map[uint32]int, len(tokens))
	for _, tok := range tokens {
		counts[hashToken(tok)]++
	}

	docLen := float64(len(tokens))
	norm := m.k1 * (1 - m.b + m.b*docLen/m.avgDocLen)

	indices := make([]uint32, 0, len(counts))
	for idx := range counts {
		indices = append(indices, idx)
	}
	// Stable output order for identical inputs.
	sort.Slice(indices, func(a, b int) bool { return indices[a] < indices[b] })

	values := make([]float32, len(indices))
	for i, idx := range indices {
		tf := float64(counts[idx])
		values[i] = float32(tf * (m.k1 + 1) / (tf + norm))
	}

	return types.SparseVector{Indices: indices, Values: values}
}

// Model implements SparseBackend.
func (m *BM25) Model() string {
	return m.model
}

// Close implements SparseBackend. The encoder holds no resources.
func (m *BM25) Close() error {
	return nil
}

// Tokenize lower-cases the text and splits it on any rune that is neither a
// letter nor a digit. It intentionally matches the whitespace-ish
// tokenization the service's avg_len statistic assumes.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// hashToken maps a token into the 31-bit index space.
func hashToken(token string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(token))
	return h.Sum32() & 0x7fffffff
}
