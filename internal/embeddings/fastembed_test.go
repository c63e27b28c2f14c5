//go:build cgo

package embeddings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFastEmbedBackend(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping FastEmbed test in short mode")
	}
	if ONNXLibraryPath() == "" {
		t.Skip("ONNX runtime not available, skipping FastEmbed test")
	}

	tests := []struct {
		name    string
		model   string
		wantDim int
	}{
		{name: "default model", model: "", wantDim: 384},
		{name: "fastembed model name", model: "fast-bge-small-en-v1.5", wantDim: 384},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := NewFastEmbedBackend(FastEmbedConfig{Model: tt.model, CacheDir: t.TempDir()})
			require.NoError(t, err)
			defer b.Close()

			assert.Equal(t, tt.wantDim, b.Dimension())

			vec, err := b.Embed(context.Background(), "hello world")
			require.NoError(t, err)
			assert.Len(t, vec, tt.wantDim)
		})
	}
}

func TestFastEmbedBackend_UnknownModel(t *testing.T) {
	_, err := NewFastEmbedBackend(FastEmbedConfig{Model: "no-such-model"})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
