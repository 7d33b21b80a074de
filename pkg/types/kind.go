package types

// Kind identifies one embedding output kind.
type Kind string

const (
	// KindSparse is the lexical/BM25 output kind.
	KindSparse Kind = "sparse"
	// KindDense is the fixed-dimension semantic output kind.
	KindDense Kind = "dense"
	// KindMultiVector is the per-token (ColBERT-style) output kind.
	KindMultiVector Kind = "multivector"
)

// KindSet is the set of output kinds requested by one call.
type KindSet struct {
	Sparse      bool
	Dense       bool
	MultiVector bool
}

// Any reports whether at least one kind is requested.
func (k KindSet) Any() bool {
	return k.Sparse || k.Dense || k.MultiVector
}

// Count returns the number of requested kinds.
func (k KindSet) Count() int {
	n := 0
	if k.Sparse {
		n++
	}
	if k.Dense {
		n++
	}
	if k.MultiVector {
		n++
	}
	return n
}

// ModelInfo describes the model that produced an output kind.
type ModelInfo struct {
	Name string `json:"name"`
	// Dimensions is 0 for variable-dimensionality kinds (sparse, multi-vector).
	Dimensions int `json:"dimensions,omitempty"`
}
