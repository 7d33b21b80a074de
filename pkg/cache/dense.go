package cache

import (
	"context"

	"github.com/soundprediction/vectorgate/pkg/backend"
	"github.com/soundprediction/vectorgate/pkg/types"
)

// CachedDense layers a Store in front of a DenseBackend. Only the texts that
// miss the cache are forwarded, and the backend's results are written back
// before the combined batch is returned in request order.
type CachedDense struct {
	inner backend.DenseBackend
	store *Store
}

// NewCachedDense wraps inner with the given store.
func NewCachedDense(inner backend.DenseBackend, store *Store) *CachedDense {
	return &CachedDense{inner: inner, store: store}
}

// EmbedDense implements backend.DenseBackend
func (c *CachedDense) EmbedDense(ctx context.Context, texts []string, opts backend.Options) ([]types.DenseVector, error) {
	model := c.inner.Model()
	out := make([]types.DenseVector, len(texts))

	var missTexts []string
	var missIdx []int
	for i, text := range texts {
		if v, ok := c.store.Get(model, text); ok {
			out[i] = v
			continue
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}

	if len(missTexts) > 0 {
		fresh, err := c.inner.EmbedDense(ctx, missTexts, opts)
		if err != nil {
			return nil, err
		}
		for j, v := range fresh {
			out[missIdx[j]] = v
			c.store.Put(model, missTexts[j], v)
		}
	}

	return out, nil
}

// Model implements backend.DenseBackend
func (c *CachedDense) Model() string { return c.inner.Model() }

// Dimensions implements backend.DenseBackend
func (c *CachedDense) Dimensions() int { return c.inner.Dimensions() }

// Close implements backend.DenseBackend
func (c *CachedDense) Close() error { return c.inner.Close() }
