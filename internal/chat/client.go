// Package chat talks to an OpenAI-style chat-completions endpoint, blocking
// or streamed.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("docmind.chat")

const (
	DefaultBaseURL     = "https://api.deepseek.com"
	DefaultPath        = "/chat/completions"
	DefaultModel       = "deepseek-chat"
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 2048
)

var (
	// ErrHTTP matches every *HTTPError.
	ErrHTTP = errors.New("chat API returned an error status")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmptyResponse is returned when a blocking call yields no choices.
	ErrEmptyResponse = errors.New("chat API returned no choices")
)

// HTTPError is a non-2xx response from the chat API.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Body)
}

// Is reports whether target is ErrHTTP.
func (e *HTTPError) Is(target error) bool { return target == ErrHTTP }

// Config holds chat client configuration.
type Config struct {
	BaseURL     string  `koanf:"base_url"`
	Path        string  `koanf:"path"`
	Model       string  `koanf:"model"`
	APIKey      string  `koanf:"api_key"`
	Temperature float64 `koanf:"temperature"`
	MaxTokens   int     `koanf:"max_tokens"`
	// Timeout bounds blocking calls. Streams are never timed out by the client.
	Timeout time.Duration `koanf:"timeout"`
	// RateLimit is requests per second; 0 disables limiting.
	RateLimit float64 `koanf:"rate_limit"`
	Burst     int     `koanf:"burst"`
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Path == "" {
		c.Path = DefaultPath
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Temperature == 0 {
		c.Temperature = DefaultTemperature
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.Burst == 0 {
		c.Burst = 1
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: chat.base_url is required", ErrInvalidConfig)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: chat.temperature must be in [0, 2], got %v", ErrInvalidConfig, c.Temperature)
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("%w: chat.max_tokens must be >= 0", ErrInvalidConfig)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("%w: chat.rate_limit must be >= 0", ErrInvalidConfig)
	}
	return nil
}

// Client sends chat-completion requests. It is safe for concurrent use.
type Client struct {
	cfg        Config
	endpoint   string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the transport used for all requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a Client.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}

	c := &Client{
		cfg:        cfg,
		endpoint:   strings.TrimRight(cfg.BaseURL, "/") + "/" + strings.TrimLeft(cfg.Path, "/"),
		httpClient: &http.Client{},
		limiter:    rate.NewLimiter(limit, cfg.Burst),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.cfg.Model }

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type request struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Stream      bool      `json:"stream"`
}

type completionResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

// Complete sends one blocking request and returns the first choice's content.
func (c *Client) Complete(ctx context.Context, user, system string) (string, error) {
	ctx, span := tracer.Start(ctx, "chat.Complete")
	defer span.End()
	span.SetAttributes(attribute.String("model", c.cfg.Model))

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	resp, err := c.send(ctx, user, system, false)
	if err != nil {
		failSpan(span, err)
		return "", err
	}
	defer resp.Body.Close()

	var out completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		err = fmt.Errorf("decoding response: %w", err)
		failSpan(span, err)
		return "", err
	}
	if len(out.Choices) == 0 {
		failSpan(span, ErrEmptyResponse)
		return "", ErrEmptyResponse
	}

	content := out.Choices[0].Message.Content
	span.SetAttributes(attribute.Int("response_length", len(content)))
	span.SetStatus(codes.Ok, "success")
	return content, nil
}

// Stream starts a streamed request. The caller must Close the returned
// Stream. A non-2xx initial status is returned as *HTTPError.
func (c *Client) Stream(ctx context.Context, user, system string) (*Stream, error) {
	ctx, span := tracer.Start(ctx, "chat.Stream")
	span.SetAttributes(attribute.String("model", c.cfg.Model))

	ctx, cancel := context.WithCancel(ctx)
	resp, err := c.send(ctx, user, system, true)
	if err != nil {
		cancel()
		failSpan(span, err)
		span.End()
		return nil, err
	}
	return newStream(resp.Body, cancel, span, c.logger), nil
}

// send posts the request and returns a 2xx response.
func (c *Client) send(ctx context.Context, user, system string, stream bool) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	body, err := json.Marshal(request{
		Model: c.cfg.Model,
		Messages: []message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
		Stream:      stream,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	}

	c.logger.Debug("sending chat request",
		zap.String("model", c.cfg.Model),
		zap.Bool("stream", stream),
		zap.Int("prompt_length", len(user)),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	return resp, nil
}
