//go:build cgo

package embeddings

import (
	"context"
	"fmt"
	"os"

	fastembed "github.com/anush008/fastembed-go"
)

// FastEmbedConfig holds configuration for the local ONNX backend.
type FastEmbedConfig struct {
	// Model is the embedding model, e.g. BAAI/bge-small-en-v1.5 (default).
	Model string
	// CacheDir is where model files are downloaded. Defaults to ./local_cache.
	CacheDir string
	// MaxLength is the maximum input sequence length. Defaults to 512.
	MaxLength int
}

// FastEmbedBackend embeds text with a local ONNX model.
type FastEmbedBackend struct {
	model     *fastembed.FlagEmbedding
	dimension int
}

var fastEmbedModels = map[string]fastembed.EmbeddingModel{
	"BAAI/bge-small-en-v1.5":                 fastembed.BGESmallENV15,
	"BAAI/bge-small-en":                      fastembed.BGESmallEN,
	"BAAI/bge-base-en-v1.5":                  fastembed.BGEBaseENV15,
	"BAAI/bge-base-en":                       fastembed.BGEBaseEN,
	"BAAI/bge-small-zh-v1.5":                 fastembed.BGESmallZH,
	"sentence-transformers/all-MiniLM-L6-v2": fastembed.AllMiniLML6V2,
}

// NewFastEmbedBackend loads the model, downloading it into CacheDir on first use.
func NewFastEmbedBackend(cfg FastEmbedConfig) (*FastEmbedBackend, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultFastEmbedModel
	}
	model, ok := fastEmbedModels[cfg.Model]
	if !ok {
		model = fastembed.EmbeddingModel(cfg.Model)
	}
	dimension, ok := FastEmbedDimension(cfg.Model)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported model %q", ErrInvalidConfig, cfg.Model)
	}

	if cfg.CacheDir == "" {
		cfg.CacheDir = "local_cache"
	}
	if cfg.MaxLength == 0 {
		cfg.MaxLength = 512
	}

	if os.Getenv("ONNX_PATH") == "" {
		if path := ONNXLibraryPath(); path != "" {
			_ = os.Setenv("ONNX_PATH", path)
		}
	}

	showProgress := false
	flagEmbed, err := fastembed.NewFlagEmbedding(&fastembed.InitOptions{
		Model:                model,
		CacheDir:             cfg.CacheDir,
		MaxLength:            cfg.MaxLength,
		ShowDownloadProgress: &showProgress,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: initializing fastembed: %v", ErrBackend, err)
	}

	return &FastEmbedBackend{model: flagEmbed, dimension: dimension}, nil
}

// Embed implements Backend. Chunks and questions share one embedding space,
// so both are embedded as passages.
func (b *FastEmbedBackend) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vectors, err := b.model.PassageEmbed([]string{text}, 1)
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("empty result")
	}
	return vectors[0], nil
}

// Dimension implements Backend.
func (b *FastEmbedBackend) Dimension() int { return b.dimension }

// Close implements Backend.
func (b *FastEmbedBackend) Close() error {
	return b.model.Destroy()
}
