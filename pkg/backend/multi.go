package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/soundprediction/vectorgate/pkg/config"
	"github.com/soundprediction/vectorgate/pkg/types"
)

// MultiFunctional is an HTTP client for a BGE-M3-style inference server
// that produces dense, sparse, and multi-vector (ColBERT) output from a
// single encode call.
type MultiFunctional struct {
	endpoint   string
	model      string
	apiKey     string
	httpClient *http.Client
	dims       int
}

// multiEmbedRequest mirrors the inference server's encode request body.
type multiEmbedRequest struct {
	Texts             []string `json:"texts"`
	BatchSize         int      `json:"batch_size,omitempty"`
	ReturnDense       bool     `json:"return_dense"`
	ReturnSparse      bool     `json:"return_sparse"`
	ReturnColbertVecs bool     `json:"return_colbert_vecs"`
}

// multiEmbedResponse mirrors the inference server's encode response body.
type multiEmbedResponse struct {
	DenseVectors   [][]float32          `json:"dense_vectors,omitempty"`
	SparseVectors  []types.SparseVector `json:"sparse_vectors,omitempty"`
	ColbertVectors [][][]float32        `json:"colbert_vectors,omitempty"`
	Model          string               `json:"model,omitempty"`
	Dimensions     map[string]int       `json:"dimensions,omitempty"`
}

// NewMultiFunctional creates the client. The model is not contacted here;
// Load performs the startup probe so the registry can treat an unreachable
// server as a non-fatal acquisition failure.
func NewMultiFunctional(cfg config.MultiBackendConfig) (*MultiFunctional, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("multi: endpoint is required")
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &MultiFunctional{
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		model:      cfg.Model,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Load probes the inference server with a single dense encode and records
// the dense output dimensionality. Called once during registry
// initialization; a failure marks the capability unavailable.
func (m *MultiFunctional) Load(ctx context.Context) error {
	frag, err := m.EmbedAll(ctx, []string{"load probe"}, Options{BatchSize: 1}, types.KindSet{Dense: true})
	if err != nil {
		return err
	}
	if len(frag.Dense) != 1 || len(frag.Dense[0]) == 0 {
		return fmt.Errorf("multi: load probe returned no dense embedding")
	}
	m.dims = len(frag.Dense[0])
	return nil
}

// EmbedAll implements MultiBackend.
func (m *MultiFunctional) EmbedAll(ctx context.Context, texts []string, opts Options, want types.KindSet) (*Fragment, error) {
	req := multiEmbedRequest{
		Texts:             texts,
		BatchSize:         opts.BatchSize,
		ReturnDense:       want.Dense,
		ReturnSparse:      want.Sparse,
		ReturnColbertVecs: want.MultiVector,
	}

	var resp multiEmbedResponse
	if err := m.postJSON(ctx, m.endpoint+"/embed", req, &resp); err != nil {
		return nil, NewInvocationError(primaryKind(want), err)
	}

	frag := &Fragment{}
	if want.Dense {
		frag.Dense = make([]types.DenseVector, len(resp.DenseVectors))
		for i, v := range resp.DenseVectors {
			frag.Dense[i] = v
		}
	}
	if want.Sparse {
		frag.Sparse = resp.SparseVectors
	}
	if want.MultiVector {
		frag.Multi = make([]types.MultiVector, len(resp.ColbertVectors))
		for i, v := range resp.ColbertVectors {
			frag.Multi[i] = v
		}
	}
	return frag, nil
}

// primaryKind picks the kind reported when a combined call fails.
func primaryKind(want types.KindSet) types.Kind {
	switch {
	case want.Sparse:
		return types.KindSparse
	case want.Dense:
		return types.KindDense
	default:
		return types.KindMultiVector
	}
}

// postJSON sends an HTTP POST request to the inference server. It marshals
// the given body as JSON, attaches headers and bearer auth, treats non-2xx
// statuses as errors, and decodes the response JSON into out.
func (m *MultiFunctional) postJSON(ctx context.Context, url string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if m.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+m.apiKey)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("http %d for %s", resp.StatusCode, url)
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// Model implements MultiBackend.
func (m *MultiFunctional) Model() string {
	return m.model
}

// Dimensions implements MultiBackend.
func (m *MultiFunctional) Dimensions() int {
	return m.dims
}

// Close implements MultiBackend.
func (m *MultiFunctional) Close() error {
	m.httpClient.CloseIdleConnections()
	return nil
}
