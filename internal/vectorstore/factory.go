package vectorstore

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Backend names accepted by Config.Backend.
const (
	BackendSQLite  = "sqlite"
	BackendChromem = "chromem"
)

// Config selects and configures the store backend.
type Config struct {
	// Backend is "sqlite" (default) or "chromem".
	Backend string `koanf:"backend"`

	// Path is the SQLite database file, or ":memory:". Ignored by chromem.
	// Default: "docmind.db"
	Path string `koanf:"path"`
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Backend == "" {
		c.Backend = BackendSQLite
	}
	if c.Path == "" {
		c.Path = "docmind.db"
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendSQLite:
		if c.Path == "" {
			return fmt.Errorf("%w: store.path is required for sqlite", ErrInvalidConfig)
		}
	case BackendChromem:
	default:
		return fmt.Errorf("%w: unsupported store backend %q (supported: sqlite, chromem)", ErrInvalidConfig, c.Backend)
	}
	return nil
}

// NewStore creates a new, empty Store based on the configuration.
//
//	store, err := vectorstore.NewStore(ctx, cfg.Store, logger)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
func NewStore(ctx context.Context, cfg Config, logger *zap.Logger) (Store, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Backend {
	case BackendChromem:
		return NewChromemStore(logger)
	default:
		return NewSQLiteStore(ctx, cfg.Path, logger)
	}
}
