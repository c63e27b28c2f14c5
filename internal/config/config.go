// Package config loads docmind configuration from an optional YAML file
// and DOCMIND_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/fyrsmithlabs/docmind/internal/chat"
	"github.com/fyrsmithlabs/docmind/internal/chunker"
	"github.com/fyrsmithlabs/docmind/internal/embeddings"
	"github.com/fyrsmithlabs/docmind/internal/extraction"
	"github.com/fyrsmithlabs/docmind/internal/logging"
	"github.com/fyrsmithlabs/docmind/internal/rag"
	"github.com/fyrsmithlabs/docmind/internal/telemetry"
	"github.com/fyrsmithlabs/docmind/internal/vectorstore"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the complete docmind configuration.
type Config struct {
	Server     ServerConfig       `koanf:"server"`
	Logging    LoggingConfig      `koanf:"logging"`
	Telemetry  telemetry.Config   `koanf:"telemetry"`
	Chunker    chunker.Config     `koanf:"chunker"`
	Embeddings EmbeddingsConfig   `koanf:"embeddings"`
	Store      vectorstore.Config `koanf:"store"`
	Chat       ChatConfig         `koanf:"chat"`
	RAG        rag.Config         `koanf:"rag"`
	Extraction extraction.Config  `koanf:"extraction"`
	Watch      WatchConfig        `koanf:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// Addr returns host:port for net.Listen.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// LoggingConfig is the user-facing subset of logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	// File appends JSON logs to a path in addition to stdout.
	File string `koanf:"file"`
	// Stderr moves console output from stdout to stderr. The MCP stdio
	// transport needs this.
	Stderr bool `koanf:"stderr"`
	OTEL   bool `koanf:"otel"`
}

// Build expands the section into a full logging.Config.
func (l LoggingConfig) Build() (*logging.Config, error) {
	cfg := logging.NewDefaultConfig()
	if l.Level != "" {
		lvl, err := logging.LevelFromString(l.Level)
		if err != nil {
			return nil, err
		}
		cfg.Level = lvl
	}
	if l.Format != "" {
		cfg.Format = l.Format
	}
	if l.Stderr {
		cfg.Output.Stdout = false
		cfg.Output.Stderr = true
	}
	cfg.Output.File = l.File
	cfg.Output.OTEL = l.OTEL
	return cfg, cfg.Validate()
}

// EmbeddingsConfig mirrors embeddings.Config with a redacted API key.
type EmbeddingsConfig struct {
	Provider  string `koanf:"provider"`
	Model     string `koanf:"model"`
	BaseURL   string `koanf:"base_url"`
	APIKey    Secret `koanf:"api_key"`
	CacheDir  string `koanf:"cache_dir"`
	MaxLength int    `koanf:"max_length"`
	Dimension int    `koanf:"dimension"`
}

// ProviderConfig returns the embeddings package configuration.
func (e EmbeddingsConfig) ProviderConfig() embeddings.Config {
	return embeddings.Config{
		Provider:  e.Provider,
		Model:     e.Model,
		BaseURL:   e.BaseURL,
		APIKey:    e.APIKey.Value(),
		CacheDir:  e.CacheDir,
		MaxLength: e.MaxLength,
		Dimension: e.Dimension,
	}
}

// ChatConfig mirrors chat.Config with a redacted API key.
type ChatConfig struct {
	BaseURL     string   `koanf:"base_url"`
	Path        string   `koanf:"path"`
	Model       string   `koanf:"model"`
	APIKey      Secret   `koanf:"api_key"`
	Temperature float64  `koanf:"temperature"`
	MaxTokens   int      `koanf:"max_tokens"`
	Timeout     Duration `koanf:"timeout"`
	RateLimit   float64  `koanf:"rate_limit"`
	Burst       int      `koanf:"burst"`
}

// ClientConfig returns the chat package configuration.
func (c ChatConfig) ClientConfig() chat.Config {
	return chat.Config{
		BaseURL:     c.BaseURL,
		Path:        c.Path,
		Model:       c.Model,
		APIKey:      c.APIKey.Value(),
		Temperature: c.Temperature,
		MaxTokens:   c.MaxTokens,
		Timeout:     c.Timeout.Duration(),
		RateLimit:   c.RateLimit,
		Burst:       c.Burst,
	}
}

// WatchConfig controls re-import on file changes.
type WatchConfig struct {
	Enabled  bool     `koanf:"enabled"`
	Debounce Duration `koanf:"debounce"`
}

// Default returns a Config with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults fills zero values. Package-owned sections use their own
// ApplyDefaults.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8765
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(10 * time.Second)
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	cfg.Telemetry.ApplyDefaults()

	if cfg.Chunker.MaxChunkSize == 0 {
		cfg.Chunker.MaxChunkSize = chunker.DefaultMaxChunkSize
		if cfg.Chunker.Overlap == 0 {
			cfg.Chunker.Overlap = chunker.DefaultOverlap
		}
	}

	if cfg.Embeddings.Provider == "" {
		cfg.Embeddings.Provider = embeddings.ProviderFastEmbed
	}
	cfg.Store.ApplyDefaults()

	if cfg.Chat.BaseURL == "" {
		cfg.Chat.BaseURL = chat.DefaultBaseURL
	}
	if cfg.Chat.Path == "" {
		cfg.Chat.Path = chat.DefaultPath
	}
	if cfg.Chat.Model == "" {
		cfg.Chat.Model = chat.DefaultModel
	}
	if cfg.Chat.Temperature == 0 {
		cfg.Chat.Temperature = chat.DefaultTemperature
	}
	if cfg.Chat.MaxTokens == 0 {
		cfg.Chat.MaxTokens = chat.DefaultMaxTokens
	}

	cfg.RAG.ApplyDefaults()

	if cfg.Extraction.MaxFileSize == 0 {
		cfg.Extraction.MaxFileSize = extraction.DefaultMaxFileSize
	}
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = Duration(500 * time.Millisecond)
	}
}

// Validate checks every section.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be in [0, 65535], got %d", c.Server.Port))
	}
	if _, err := c.Logging.Build(); err != nil {
		errs = append(errs, fmt.Errorf("logging: %w", err))
	}
	if err := c.Telemetry.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("telemetry: %w", err))
	}
	if err := c.Chunker.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("chunker: %w", err))
	}
	emb := c.Embeddings.ProviderConfig()
	emb.ApplyDefaults()
	if err := emb.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("embeddings: %w", err))
	}
	if err := c.Store.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("store: %w", err))
	}
	chatCfg := c.Chat.ClientConfig()
	if err := chatCfg.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("chat: %w", err))
	}
	if err := c.RAG.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("rag: %w", err))
	}
	if c.Extraction.MaxFileSize < 0 {
		errs = append(errs, fmt.Errorf("extraction.max_file_size must be >= 0, got %d", c.Extraction.MaxFileSize))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}
