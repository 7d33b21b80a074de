// Package types defines the core data types for the vectorgate embedding
// gateway.
//
// This package contains the fundamental types used throughout vectorgate:
//   - SparseVector: Lexical/BM25-style weighting as unique index/value pairs
//   - DenseVector: Fixed-dimension semantic embedding
//   - MultiVector: Per-token dense vectors for fine-grained matching
//   - Kind/KindSet: The output kinds a request asks for
//   - ModelInfo: Metadata about the model that produced an output kind
//
// # Invariants
//
// SparseVector carries two parallel arrays whose lengths must match, with
// unique indices per vector. DenseVector length is fixed per backend for the
// process lifetime. MultiVector length varies with the token count of the
// input text.
//
// # Validation
//
// Types provide Validate() methods for invariant checking:
//
//	vec := &types.SparseVector{Indices: []uint32{3, 17}, Values: []float32{0.5, 1.2}}
//	if err := vec.Validate(); err != nil {
//	    // Handle validation error
//	}
//
// # JSON Serialization
//
// All types are designed to be JSON-serializable with appropriate struct tags.
package types
