package backend

import (
	"context"
	"fmt"

	"github.com/soundprediction/go-embedeverything/pkg/embedder"
	"github.com/soundprediction/vectorgate/pkg/config"
	"github.com/soundprediction/vectorgate/pkg/types"
	"github.com/soundprediction/vectorgate/pkg/utils"
)

// EmbedEverything is the local dense backend backed by go-embedeverything.
type EmbedEverything struct {
	client    *embedder.Embedder
	model     string
	dims      int
	normalize bool
}

// NewEmbedEverything loads the local model and records its output
// dimensionality. When the configuration does not declare dimensions, a
// single probe embedding is run to learn them, so the value is fixed before
// the backend is registered.
func NewEmbedEverything(cfg config.DenseBackendConfig) (*EmbedEverything, error) {
	client, err := embedder.NewEmbedder(cfg.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	dims := cfg.Dimensions
	if dims == 0 {
		probe, err := client.Embed([]string{"dimension probe"})
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to probe embedding dimensions: %w", err)
		}
		if len(probe) == 0 || len(probe[0]) == 0 {
			client.Close()
			return nil, fmt.Errorf("dimension probe returned no embedding")
		}
		dims = len(probe[0])
	}

	return &EmbedEverything{
		client:    client,
		model:     cfg.Model,
		dims:      dims,
		normalize: cfg.Normalize,
	}, nil
}

// EmbedDense implements DenseBackend.
func (e *EmbedEverything) EmbedDense(ctx context.Context, texts []string, opts Options) ([]types.DenseVector, error) {
	out := make([]types.DenseVector, 0, len(texts))
	for _, batch := range utils.Batch(texts, opts.BatchSize) {
		if err := ctx.Err(); err != nil {
			return nil, NewInvocationError(types.KindDense, err)
		}
		// go-embedeverything does not support context yet
		embeddings, err := e.client.Embed(batch)
		if err != nil {
			return nil, NewInvocationError(types.KindDense, err)
		}
		for _, vec := range embeddings {
			if e.normalize {
				vec = utils.Normalize(vec)
			}
			out = append(out, vec)
		}
	}
	return out, nil
}

// Model implements DenseBackend.
func (e *EmbedEverything) Model() string {
	return e.model
}

// Dimensions implements DenseBackend.
func (e *EmbedEverything) Dimensions() int {
	return e.dims
}

// Close implements DenseBackend.
func (e *EmbedEverything) Close() error {
	e.client.Close()
	return nil
}
