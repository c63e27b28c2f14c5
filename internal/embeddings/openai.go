package embeddings

import (
	"context"
	"fmt"
	"net/http"

	lcembeddings "github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// OpenAIConfig holds configuration for an OpenAI-compatible embeddings API.
type OpenAIConfig struct {
	BaseURL   string
	Model     string
	APIKey    string
	Dimension int
	// HTTPClient defaults to http.DefaultClient.
	HTTPClient *http.Client
}

// OpenAIBackend embeds text with an OpenAI-compatible /embeddings endpoint
// through langchaingo.
type OpenAIBackend struct {
	embedder  lcembeddings.Embedder
	dimension int
}

// NewOpenAIBackend creates an OpenAI-compatible backend.
func NewOpenAIBackend(cfg OpenAIConfig) (*OpenAIBackend, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: embedding model required", ErrInvalidConfig)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: api key required for openai embeddings", ErrInvalidConfig)
	}

	opts := []openai.Option{
		openai.WithToken(cfg.APIKey),
		openai.WithEmbeddingModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, openai.WithHTTPClient(cfg.HTTPClient))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating openai client: %w", err)
	}
	embedder, err := lcembeddings.NewEmbedder(llm, lcembeddings.WithStripNewLines(false))
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	return &OpenAIBackend{embedder: embedder, dimension: cfg.Dimension}, nil
}

// Embed implements Backend.
func (b *OpenAIBackend) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := b.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	if b.dimension == 0 {
		b.dimension = len(vec)
	}
	return vec, nil
}

// Dimension implements Backend.
func (b *OpenAIBackend) Dimension() int { return b.dimension }

// Close implements Backend.
func (b *OpenAIBackend) Close() error { return nil }
