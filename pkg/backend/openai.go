package backend

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"github.com/soundprediction/vectorgate/pkg/config"
	"github.com/soundprediction/vectorgate/pkg/types"
	"github.com/soundprediction/vectorgate/pkg/utils"
)

// Known output dimensionalities for OpenAI embedding models. Models not
// listed here require an explicit dimensions setting in the configuration.
var openAIModelDimensions = map[string]int{
	string(openai.AdaEmbeddingV2):  1536,
	string(openai.SmallEmbedding3): 1536,
	string(openai.LargeEmbedding3): 3072,
}

// OpenAIDense is a dense backend talking to an OpenAI-compatible
// /v1/embeddings endpoint.
type OpenAIDense struct {
	client    *openai.Client
	model     string
	dims      int
	normalize bool
}

// NewOpenAIDense creates the remote dense backend. A BaseURL in the config
// points the client at any OpenAI-compatible service.
func NewOpenAIDense(apiKey string, cfg config.DenseBackendConfig) (*OpenAIDense, error) {
	var client *openai.Client
	if cfg.BaseURL != "" {
		clientConfig := openai.DefaultConfig(apiKey)
		clientConfig.BaseURL = cfg.BaseURL
		client = openai.NewClientWithConfig(clientConfig)
	} else {
		client = openai.NewClient(apiKey)
	}

	model := cfg.Model
	if model == "" {
		model = string(openai.SmallEmbedding3)
	}

	dims := cfg.Dimensions
	if dims == 0 {
		dims = openAIModelDimensions[model]
	}
	if dims == 0 {
		return nil, fmt.Errorf("openai: dimensions must be configured for model %q", model)
	}

	return &OpenAIDense{
		client:    client,
		model:     model,
		dims:      dims,
		normalize: cfg.Normalize,
	}, nil
}

// EmbedDense implements DenseBackend.
func (o *OpenAIDense) EmbedDense(ctx context.Context, texts []string, opts Options) ([]types.DenseVector, error) {
	out := make([]types.DenseVector, 0, len(texts))
	for _, batch := range utils.Batch(texts, opts.BatchSize) {
		resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
			Input: batch,
			Model: openai.EmbeddingModel(o.model),
		})
		if err != nil {
			return nil, NewInvocationError(types.KindDense, err)
		}
		if len(resp.Data) != len(batch) {
			return nil, NewInvocationError(types.KindDense,
				fmt.Errorf("expected %d embeddings, got %d", len(batch), len(resp.Data)))
		}

		// The API documents order-preserving output, but the response
		// carries explicit indices; honor them.
		batchOut := make([]types.DenseVector, len(batch))
		for _, item := range resp.Data {
			if item.Index < 0 || item.Index >= len(batch) {
				return nil, NewInvocationError(types.KindDense,
					fmt.Errorf("embedding index %d out of range", item.Index))
			}
			vec := item.Embedding
			if o.normalize {
				vec = utils.Normalize(vec)
			}
			batchOut[item.Index] = vec
		}
		out = append(out, batchOut...)
	}
	return out, nil
}

// Model implements DenseBackend.
func (o *OpenAIDense) Model() string {
	return o.model
}

// Dimensions implements DenseBackend.
func (o *OpenAIDense) Dimensions() int {
	return o.dims
}

// Close implements DenseBackend. The HTTP client holds no resources that
// need explicit cleanup.
func (o *OpenAIDense) Close() error {
	return nil
}
