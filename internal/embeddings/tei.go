package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// TEIConfig holds configuration for a Text Embeddings Inference server.
type TEIConfig struct {
	// BaseURL is the server root, e.g. http://localhost:8080.
	BaseURL string
	// Dimension is the expected vector length. 0 means unknown.
	Dimension int
	// HTTPClient defaults to http.DefaultClient.
	HTTPClient *http.Client
}

// TEIBackend embeds text through the TEI /embed endpoint.
type TEIBackend struct {
	baseURL   string
	client    *http.Client
	dimension int
}

type teiRequest struct {
	Inputs   string `json:"inputs"`
	Truncate bool   `json:"truncate"`
}

// NewTEIBackend creates a TEI backend.
func NewTEIBackend(cfg TEIConfig) (*TEIBackend, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: base URL required", ErrInvalidConfig)
	}
	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	return &TEIBackend{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		client:    client,
		dimension: cfg.Dimension,
	}, nil
}

// Embed implements Backend.
func (b *TEIBackend) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(teiRequest{Inputs: text, Truncate: true})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody))
	}

	var vectors [][]float32
	if err := json.NewDecoder(resp.Body).Decode(&vectors); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("empty response")
	}
	if b.dimension == 0 {
		b.dimension = len(vectors[0])
	}
	return vectors[0], nil
}

// Dimension implements Backend.
func (b *TEIBackend) Dimension() int { return b.dimension }

// Close is a no-op for TEI since it uses HTTP.
func (b *TEIBackend) Close() error { return nil }
