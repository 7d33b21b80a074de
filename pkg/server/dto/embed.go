package dto

import (
	"github.com/soundprediction/vectorgate/pkg/orchestrator"
	"github.com/soundprediction/vectorgate/pkg/types"
)

// EmbedRequest represents a unified embedding request spanning any
// combination of output kinds.
type EmbedRequest struct {
	Texts []string `json:"texts"`

	BatchSize int `json:"batch_size,omitempty"`
	Threads   int `json:"threads,omitempty"`

	// AvgLen overrides the computed average token length when present,
	// including an explicit zero.
	AvgLen *float64 `json:"avg_len,omitempty"`

	ReturnSparse      bool `json:"return_sparse"`
	ReturnDense       bool `json:"return_dense"`
	ReturnMultivector bool `json:"return_multivector"`
}

// Validate performs validation on EmbedRequest
func (r *EmbedRequest) Validate() error {
	if r.Texts == nil {
		return ErrNoTexts
	}
	if len(r.Texts) > MaxTextsCount {
		return ErrTooManyTexts
	}
	for _, text := range r.Texts {
		if text == "" {
			return ErrEmptyText
		}
		if len(text) > MaxTextLength {
			return ErrTextTooLong
		}
	}
	if r.BatchSize < 0 {
		return ErrBadBatchSize
	}
	if r.Threads < 0 {
		return ErrBadThreads
	}
	if r.AvgLen != nil && *r.AvgLen < 0 {
		return ErrNegativeAvgLen
	}
	if !r.ReturnSparse && !r.ReturnDense && !r.ReturnMultivector {
		return ErrNoKindRequested
	}
	return nil
}

// Kinds maps the inclusion flags to the orchestrator's kind set.
func (r *EmbedRequest) Kinds() types.KindSet {
	return types.KindSet{
		Sparse:      r.ReturnSparse,
		Dense:       r.ReturnDense,
		MultiVector: r.ReturnMultivector,
	}
}

// SparseRequest represents a legacy sparse-only (BM25) request.
type SparseRequest struct {
	Texts  []string `json:"texts"`
	AvgLen *float64 `json:"avg_len,omitempty"`
}

// Validate performs validation on SparseRequest
func (r *SparseRequest) Validate() error {
	e := EmbedRequest{Texts: r.Texts, AvgLen: r.AvgLen, ReturnSparse: true}
	return e.Validate()
}

// DenseRequest represents a legacy dense-only request.
type DenseRequest struct {
	Texts     []string `json:"texts"`
	BatchSize int      `json:"batch_size,omitempty"`
	Threads   int      `json:"threads,omitempty"`
}

// Validate performs validation on DenseRequest
func (r *DenseRequest) Validate() error {
	e := EmbedRequest{Texts: r.Texts, BatchSize: r.BatchSize, Threads: r.Threads, ReturnDense: true}
	return e.Validate()
}

// SparseVector is the wire shape of one sparse embedding.
type SparseVector struct {
	Indices []uint32  `json:"indices"`
	Values  []float32 `json:"values"`
}

// ModelInfo describes the model that produced one output kind. Languages
// and MaxLength are populated only for the multi-functional model, which is
// the only backend whose capability description carries them.
type ModelInfo struct {
	Name       string `json:"name"`
	Dimensions int    `json:"dimensions,omitempty"`
	Languages  string `json:"languages,omitempty"`
	MaxLength  int    `json:"max_length,omitempty"`
}

// EmbedResponse is the unified response shape. Pointer fields distinguish
// "absent" (nil, kind not delivered) from "present but empty" (empty batch):
// absent fields are omitted from the JSON entirely.
type EmbedResponse struct {
	SparseVectors *[]SparseVector `json:"sparse_vectors,omitempty"`
	DenseVectors  *[][]float32    `json:"dense_vectors,omitempty"`
	MultiVectors  *[][][]float32  `json:"multi_vectors,omitempty"`

	AvgLen *float64 `json:"avg_len,omitempty"`

	ModelInfo map[string]ModelInfo `json:"model_info,omitempty"`
}

// NewEmbedResponse maps an orchestrator result to the wire shape. Kinds the
// orchestrator omitted stay absent rather than null-filled.
func NewEmbedResponse(res *orchestrator.Result) *EmbedResponse {
	out := &EmbedResponse{AvgLen: res.AvgLen}

	if res.Sparse != nil {
		sparse := make([]SparseVector, len(res.Sparse))
		for i, v := range res.Sparse {
			sparse[i] = SparseVector{Indices: v.Indices, Values: v.Values}
		}
		out.SparseVectors = &sparse
	}
	if res.Dense != nil {
		dense := make([][]float32, len(res.Dense))
		for i, v := range res.Dense {
			dense[i] = v
		}
		out.DenseVectors = &dense
	}
	if res.Multi != nil {
		multi := make([][][]float32, len(res.Multi))
		for i, mv := range res.Multi {
			vecs := make([][]float32, len(mv))
			for j, v := range mv {
				vecs[j] = v
			}
			multi[i] = vecs
		}
		out.MultiVectors = &multi
	}

	if len(res.Models) > 0 {
		out.ModelInfo = make(map[string]ModelInfo, len(res.Models))
		for kind, info := range res.Models {
			out.ModelInfo[string(kind)] = ModelInfo{Name: info.Name, Dimensions: info.Dimensions}
		}
	}

	return out
}
