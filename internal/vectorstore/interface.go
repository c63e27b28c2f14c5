// Package vectorstore persists chunk vectors and performs exhaustive cosine
// top-K retrieval over them.
package vectorstore

import (
	"context"
	"errors"
)

// Sentinel errors for vector store operations.
var (
	// ErrDimensionMismatch is returned when the query and a stored vector differ in length.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrNonFiniteVector is returned when a compared vector holds NaN or Inf.
	ErrNonFiniteVector = errors.New("vector contains NaN or Inf")

	// ErrCorruptVector is returned when a persisted blob cannot be decoded.
	ErrCorruptVector = errors.New("corrupt vector encoding")

	// ErrStoreIO wraps failures of the underlying storage.
	ErrStoreIO = errors.New("vector store I/O failed")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidVector is returned when a backend cannot accept a vector.
	ErrInvalidVector = errors.New("invalid vector")
)

// Record is one stored chunk.
type Record struct {
	ID         int64     `json:"id"`
	FileName   string    `json:"file_name"`
	ChunkIndex int       `json:"chunk_index"`
	Text       string    `json:"text"`
	Vector     []float32 `json:"-"`
}

// Result is a scored record returned by TopK.
type Result struct {
	Record Record  `json:"record"`
	Score  float32 `json:"score"`
	// Rank is 1-based.
	Rank int `json:"rank"`
}

// Store is the interface for vector storage operations.
//
// Records are append-only within a session. TopK is an exhaustive scan over
// a snapshot of all records taken when the call starts.
type Store interface {
	// Save appends a record and returns its ID. Duplicates are allowed.
	Save(ctx context.Context, fileName string, chunkIndex int, text string, vector []float32) (int64, error)

	// TopK returns the min(k, count) records most similar to query, sorted by
	// descending score with ties kept in insertion order.
	TopK(ctx context.Context, query []float32, k int) ([]Result, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// Reset removes every record.
	Reset(ctx context.Context) error

	// Close releases the store.
	Close() error
}
