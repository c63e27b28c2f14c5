package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/docmind/internal/mcp"
)

func init() {
	rootCmd.AddCommand(mcpCmd)
}

var mcpCmd = &cobra.Command{
	Use:   "mcp [files...]",
	Short: "Run as an MCP server over stdio",
	Long: `Run docmind as a Model Context Protocol server on stdin/stdout.

Logs go to stderr so the protocol stream stays clean. Files given on the
command line are imported before the server starts.

Tools:
  list_documents, import_document, reload_documents, read_page,
  ask, locate_citations

Example MCP client configuration:
  {"command": "docmind", "args": ["mcp"]}`,
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, logStderr)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if _, err := a.importFiles(ctx, args); err != nil {
		return err
	}

	srv, err := mcp.NewServer(&mcp.Config{
		Name:    "docmind",
		Version: version,
		Logger:  a.logger.Underlying(),
		Meter:   a.tel.Meter("github.com/fyrsmithlabs/docmind/internal/mcp"),
	}, a.reg)
	if err != nil {
		return fmt.Errorf("failed to create mcp server: %w", err)
	}
	return srv.Run(ctx)
}
