package types

import "errors"

// Validation errors
var (
	ErrIndexValueMismatch = errors.New("sparse vector indices and values must have the same length")
	ErrDuplicateIndex     = errors.New("sparse vector contains duplicate indices")
	ErrEmptyVector        = errors.New("vector cannot be empty")
)

// SparseVector is a bag-of-features weighting as parallel arrays of indices
// and values. Indices are positions in the token hash space and must be
// unique within one vector; they are not required to be sorted or contiguous.
type SparseVector struct {
	Indices []uint32  `json:"indices"`
	Values  []float32 `json:"values"`
}

// Validate checks the SparseVector invariants.
func (v *SparseVector) Validate() error {
	if len(v.Indices) != len(v.Values) {
		return ErrIndexValueMismatch
	}
	seen := make(map[uint32]struct{}, len(v.Indices))
	for _, idx := range v.Indices {
		if _, ok := seen[idx]; ok {
			return ErrDuplicateIndex
		}
		seen[idx] = struct{}{}
	}
	return nil
}

// DenseVector is a fixed-length semantic embedding. Its length is constant
// across all vectors produced by the same backend within a process lifetime.
type DenseVector = []float32

// MultiVector holds per-token dense vectors for one input text. Its length
// varies with the token count of the text.
type MultiVector = [][]float32
