// Package cache provides a persistent embedding cache backed by BadgerDB.
// Dense embeddings are deterministic per (model, text), so cached entries
// never expire; the store is keyed on a hash of both.
package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/soundprediction/vectorgate/pkg/types"
)

// Store is a persistent key-value cache for dense embeddings.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) a Badger store at path. An empty path opens an
// in-memory store, which is useful in tests.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open embedding cache: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// key derives the cache key for one text under one model. The model name is
// part of the key so switching models never serves stale vectors.
func key(model, text string) []byte {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return h.Sum(nil)
}

// encodeVector serializes a dense vector as little-endian float32 bits.
func encodeVector(v types.DenseVector) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

// decodeVector deserializes a vector written by encodeVector.
func decodeVector(buf []byte) (types.DenseVector, error) {
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("corrupt cache entry: %d bytes", len(buf))
	}
	v := make(types.DenseVector, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return v, nil
}

// Get returns the cached vector for (model, text), or ok=false on a miss.
func (s *Store) Get(model, text string) (types.DenseVector, bool) {
	var out types.DenseVector
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(model, text))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			v, err := decodeVector(val)
			if err != nil {
				return err
			}
			out = v
			return nil
		})
	})
	if err != nil {
		if err != badger.ErrKeyNotFound {
			slog.Warn("embedding cache read failed", "error", err)
		}
		return nil, false
	}
	return out, true
}

// Put stores the vector for (model, text). Write failures are logged and
// swallowed; the cache is an optimization, not a source of truth.
func (s *Store) Put(model, text string, v types.DenseVector) {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(model, text), encodeVector(v))
	})
	if err != nil {
		slog.Warn("embedding cache write failed", "error", err)
	}
}
