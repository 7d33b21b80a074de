package backend

import (
	"context"

	"github.com/soundprediction/vectorgate/pkg/types"
)

// Options carries per-request batching parameters, resolved from the
// request or the service defaults before an adapter is invoked.
type Options struct {
	BatchSize int
	Threads   int
}

// Fragment is a partial embedding result produced by one adapter call.
// Only the slices for the kinds the adapter was asked for are populated;
// each populated slice is positionally aligned with the input texts.
type Fragment struct {
	Sparse []types.SparseVector
	Dense  []types.DenseVector
	Multi  []types.MultiVector
}

// SparseBackend produces lexical index/value vectors.
type SparseBackend interface {
	// EmbedSparse generates one SparseVector per input text, order-preserving.
	EmbedSparse(ctx context.Context, texts []string, opts Options) ([]types.SparseVector, error)

	// Model returns the backend's model identifier.
	Model() string

	// Close cleans up any resources.
	Close() error
}

// DenseBackend produces fixed-dimension semantic embeddings.
type DenseBackend interface {
	// EmbedDense generates one DenseVector per input text, order-preserving.
	EmbedDense(ctx context.Context, texts []string, opts Options) ([]types.DenseVector, error)

	// Model returns the backend's model identifier.
	Model() string

	// Dimensions returns the fixed output dimensionality, recorded at load time.
	Dimensions() int

	// Close cleans up any resources.
	Close() error
}

// MultiBackend produces any combination of output kinds in a single call,
// avoiding duplicate invocations when a request spans multiple kinds.
type MultiBackend interface {
	// EmbedAll generates the requested kinds for all texts at once and
	// demultiplexes them into a Fragment.
	EmbedAll(ctx context.Context, texts []string, opts Options, want types.KindSet) (*Fragment, error)

	// Model returns the backend's model identifier.
	Model() string

	// Dimensions returns the dense output dimensionality, recorded at load time.
	Dimensions() int

	// Close cleans up any resources.
	Close() error
}
