// Package embeddings converts text into fixed-length vectors.
//
// A model handle is not safe for concurrent use, so every Backend is driven
// through a Serial, which admits callers one at a time in arrival order.
package embeddings

import (
	"context"
	"errors"
)

var (
	// ErrEmptyInput indicates empty input text.
	ErrEmptyInput = errors.New("empty input text")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrBackend wraps every failure reported by the embedding model.
	ErrBackend = errors.New("embedding backend failed")

	// ErrDisposed is returned by calls made after Close.
	ErrDisposed = errors.New("embedding provider disposed")
)

// Backend is a single embedding model handle. Implementations need not be
// safe for concurrent use.
type Backend interface {
	// Embed returns the vector for text.
	Embed(ctx context.Context, text string) ([]float32, error)
	// Dimension returns the vector length, or 0 when unknown until the first call.
	Dimension() int
	// Close releases the model.
	Close() error
}

// Embedder is the consumer view of a provider.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
