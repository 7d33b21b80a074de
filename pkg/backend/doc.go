// Package backend provides embedding backend adapters for vectorgate.
//
// Each adapter normalizes one backend's native call signature and output
// shape into the canonical vector types, preserving input order. Adapters
// exist for three backend kinds:
//
//   - Sparse: an in-process BM25 encoder producing index/value vectors
//     compatible with Qdrant/bm25 document-side weighting.
//   - Dense: fixed-dimension semantic embeddings, via a local
//     go-embedeverything model or a remote OpenAI-compatible endpoint.
//   - Multi-functional: a BGE-M3-style inference server reached over HTTP
//     that produces dense, sparse, and multi-vector output in a single call.
//
// Backends are treated as shared, stateless-per-call resources: once loaded
// they are safe for concurrent invocation across requests.
//
// # Failure Contract
//
// Any invocation error is wrapped as an *InvocationError carrying the
// backend kind and the underlying message. Adapters never swallow a failure
// into an empty result.
package backend
