package embeddings

import (
	"fmt"

	"go.uber.org/zap"
)

// Provider names accepted by Config.Provider.
const (
	ProviderFastEmbed = "fastembed"
	ProviderTEI       = "tei"
	ProviderOpenAI    = "openai"
)

// Config holds configuration for creating an embedding provider.
type Config struct {
	// Provider is "fastembed" (default), "tei" or "openai".
	Provider string `koanf:"provider"`
	// Model is the embedding model name.
	Model string `koanf:"model"`
	// BaseURL is the TEI or OpenAI-compatible endpoint.
	BaseURL string `koanf:"base_url"`
	// APIKey authenticates the openai provider.
	APIKey string `koanf:"api_key"`
	// CacheDir is the model cache directory (fastembed only).
	CacheDir string `koanf:"cache_dir"`
	// MaxLength is the maximum input sequence length (fastembed only).
	MaxLength int `koanf:"max_length"`
	// Dimension overrides the vector length when the backend cannot report it.
	Dimension int `koanf:"dimension"`
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = ProviderFastEmbed
	}
	switch c.Provider {
	case ProviderFastEmbed:
		if c.Model == "" {
			c.Model = DefaultFastEmbedModel
		}
	case ProviderTEI:
		if c.BaseURL == "" {
			c.BaseURL = "http://localhost:8080"
		}
	case ProviderOpenAI:
		if c.Model == "" {
			c.Model = "text-embedding-3-small"
		}
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderFastEmbed:
		if _, ok := FastEmbedDimension(c.Model); !ok {
			return fmt.Errorf("%w: unsupported fastembed model %q", ErrInvalidConfig, c.Model)
		}
	case ProviderTEI:
		if c.BaseURL == "" {
			return fmt.Errorf("%w: embeddings.base_url required for tei", ErrInvalidConfig)
		}
	case ProviderOpenAI:
		if c.APIKey == "" {
			return fmt.Errorf("%w: embeddings.api_key required for openai", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, c.Provider)
	}
	if c.Dimension < 0 {
		return fmt.Errorf("%w: dimension must be >= 0", ErrInvalidConfig)
	}
	return nil
}

// NewBackend creates the raw backend selected by cfg.
func NewBackend(cfg Config) (Backend, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Provider {
	case ProviderTEI:
		return NewTEIBackend(TEIConfig{BaseURL: cfg.BaseURL, Dimension: cfg.Dimension})
	case ProviderOpenAI:
		return NewOpenAIBackend(OpenAIConfig{
			BaseURL:   cfg.BaseURL,
			Model:     cfg.Model,
			APIKey:    cfg.APIKey,
			Dimension: cfg.Dimension,
		})
	default:
		return NewFastEmbedBackend(FastEmbedConfig{
			Model:     cfg.Model,
			CacheDir:  cfg.CacheDir,
			MaxLength: cfg.MaxLength,
		})
	}
}

// NewProvider creates the configured backend wrapped in a Serial.
func NewProvider(cfg Config, logger *zap.Logger) (*Serial, error) {
	cfg.ApplyDefaults()
	backend, err := NewBackend(cfg)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("embedding provider initialized",
		zap.String("provider", cfg.Provider),
		zap.String("model", cfg.Model),
		zap.Int("dimension", backend.Dimension()),
	)
	return NewSerial(backend, WithLogger(logger), WithModelName(cfg.Model)), nil
}
