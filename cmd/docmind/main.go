// Package main implements docmind, a question-answering assistant over
// local documents.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Build information, set via ldflags.
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"

	configPath string
	logLevel   string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "docmind",
	Short: "Ask questions about your documents",
	Long: `docmind answers questions about PDF, Word, PowerPoint, Excel, Markdown and
plain text documents using retrieval-augmented generation.

Documents are split into chunks, embedded and stored locally. Each question
retrieves the most similar chunks and asks a chat model to answer from them.
With sourcing enabled the answer is traced back to verbatim passages of the
document.

Examples:
  # Ask a single question
  docmind ask report.pdf "What was the revenue in 2023?"

  # Chat interactively with citation highlighting
  docmind chat report.pdf

  # Serve the HTTP API with a document preloaded
  docmind serve report.pdf

  # Run as an MCP server over stdio
  docmind mcp`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/docmind/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging.level")
	rootCmd.SetVersionTemplate(versionString() + "\n")
}
