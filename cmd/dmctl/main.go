// Package main implements dmctl, a command-line client for a running
// docmind HTTP server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// serverURL is the base URL of the docmind HTTP server
	serverURL string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "dmctl",
	Short: "CLI for docmind HTTP server operations",
	Long: `dmctl talks to a running "docmind serve". It imports documents, asks
questions with streamed answers and locates citations.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://127.0.0.1:8765", "docmind server URL")
	rootCmd.AddCommand(healthCmd, listCmd, importCmd, reloadCmd, pageCmd, askCmd, citeCmd)
}
