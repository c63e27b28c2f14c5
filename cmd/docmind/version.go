package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println(versionString())
	},
}

func versionString() string {
	return fmt.Sprintf("docmind\n  Version:    %s\n  Commit:     %s\n  Build Date: %s", version, gitCommit, buildDate)
}
