//go:build !cgo

package embeddings

import (
	"context"
	"errors"
)

// ErrFastEmbedNotAvailable is returned when the binary was built without cgo.
var ErrFastEmbedNotAvailable = errors.New("fastembed: not available (binary built without CGO support, use the tei or openai provider instead)")

// FastEmbedConfig holds configuration for the local ONNX backend.
type FastEmbedConfig struct {
	Model     string
	CacheDir  string
	MaxLength int
}

// FastEmbedBackend is a stub for non-cgo builds.
type FastEmbedBackend struct{}

// NewFastEmbedBackend returns ErrFastEmbedNotAvailable.
func NewFastEmbedBackend(_ FastEmbedConfig) (*FastEmbedBackend, error) {
	return nil, ErrFastEmbedNotAvailable
}

// Embed returns ErrFastEmbedNotAvailable.
func (b *FastEmbedBackend) Embed(_ context.Context, _ string) ([]float32, error) {
	return nil, ErrFastEmbedNotAvailable
}

// Dimension returns 0.
func (b *FastEmbedBackend) Dimension() int { return 0 }

// Close is a no-op.
func (b *FastEmbedBackend) Close() error { return nil }
