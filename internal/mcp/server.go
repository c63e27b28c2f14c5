// Package mcp exposes the document library and query flow as MCP tools.
//
// The server is built on the MCP SDK (github.com/modelcontextprotocol/go-sdk/mcp)
// and calls the services registry directly. Tool failures are reported as
// tool results with IsError set, never as protocol errors.
package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docmind/internal/services"
)

// Server is an MCP server backed by a services registry.
type Server struct {
	mcp     *mcp.Server
	reg     services.Registry
	metrics *Metrics
	logger  *zap.Logger
}

// Config configures the MCP server.
type Config struct {
	// Name is the server implementation name (default: "docmind")
	Name string

	// Version is the server version (default: "dev")
	Version string

	// Logger for structured logging. It must not write to stdout when the
	// stdio transport is in use.
	Logger *zap.Logger

	// Meter for tool metrics. Nil uses the global provider.
	Meter metric.Meter
}

// DefaultConfig returns the defaults.
func DefaultConfig() *Config {
	return &Config{
		Name:    "docmind",
		Version: "dev",
		Logger:  zap.NewNop(),
	}
}

// NewServer creates an MCP server and registers the document tools.
func NewServer(cfg *Config, reg services.Registry) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if reg == nil {
		return nil, errors.New("services registry is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	name, version := cfg.Name, cfg.Version
	if name == "" {
		name = "docmind"
	}
	if version == "" {
		version = "dev"
	}

	s := &Server{
		mcp: mcp.NewServer(
			&mcp.Implementation{Name: name, Version: version},
			nil,
		),
		reg:     reg,
		metrics: NewMetrics(cfg.Meter, logger),
		logger:  logger,
	}
	s.registerTools()
	return s, nil
}

// Run serves MCP on stdin/stdout until ctx is done or the client hangs up.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting MCP server on stdio transport")
	if err := s.mcp.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("server run failed: %w", err)
	}
	return nil
}

// Connect starts a session on an arbitrary transport.
func (s *Server) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	return s.mcp.Connect(ctx, t, nil)
}
