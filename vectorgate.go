package vectorgate

import (
	"context"
	"log/slog"

	"github.com/soundprediction/vectorgate/pkg/backend"
	"github.com/soundprediction/vectorgate/pkg/config"
	"github.com/soundprediction/vectorgate/pkg/orchestrator"
	"github.com/soundprediction/vectorgate/pkg/registry"
	"github.com/soundprediction/vectorgate/pkg/types"
)

// Gateway is the library interface to the embedding gateway. It mirrors the
// HTTP surface: one orchestrated embed operation plus read-only capability
// queries.
type Gateway interface {
	// Embed routes one request across the loaded backends and assembles
	// the combined result. See orchestrator.Request for the request shape.
	Embed(ctx context.Context, req orchestrator.Request) (*orchestrator.Result, error)

	// Available reports whether the given output kind can be served.
	Available(kind types.Kind) bool

	// Metadata returns the model info recorded for a kind at startup.
	Metadata(kind types.Kind) (types.ModelInfo, bool)

	// Close releases every loaded backend.
	Close() error
}

// Client is the default Gateway implementation.
type Client struct {
	reg  *registry.Registry
	orch *orchestrator.Orchestrator
}

// New loads the configured backends and returns a ready gateway. A nil
// logger falls back to slog.Default. The sparse backend is the baseline
// capability: New fails if it cannot be acquired.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	reg, err := registry.New(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	return &Client{
		reg:  reg,
		orch: orchestrator.New(reg, cfg.Embedding, logger),
	}, nil
}

// NewWithBackends builds a gateway over already constructed backends,
// bypassing configuration loading. Any backend may be nil; requests naming a
// kind no backend serves fail with orchestrator.ErrBackendUnavailable.
func NewWithBackends(sparse backend.SparseBackend, dense backend.DenseBackend, multi backend.MultiBackend, defaults config.EmbeddingConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	reg := registry.NewFromBackends(sparse, dense, multi, logger)
	return &Client{
		reg:  reg,
		orch: orchestrator.New(reg, defaults, logger),
	}
}

// Embed implements Gateway.
func (c *Client) Embed(ctx context.Context, req orchestrator.Request) (*orchestrator.Result, error) {
	return c.orch.Embed(ctx, req)
}

// Available implements Gateway.
func (c *Client) Available(kind types.Kind) bool {
	return c.reg.Available(kind)
}

// Metadata implements Gateway.
func (c *Client) Metadata(kind types.Kind) (types.ModelInfo, bool) {
	return c.reg.Metadata(kind)
}

// Close implements Gateway.
func (c *Client) Close() error {
	return c.reg.Close()
}
