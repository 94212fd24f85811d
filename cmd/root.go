// Package cmd implements the CLI commands for confpipe using Cobra.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "confpipe",
	Short: "Export Confluence pages into a chunked, hash-indexed corpus",
	Long: `confpipe is a deterministic ingestion pipeline that converts Confluence
pages into normalized Markdown sections, retrieval-sized chunks with stable
IDs and content hashes, and a change report telling an embedding system
which chunks need re-embedding.

Usage:
  confpipe export --space DOCS --root-page-id 12345 [flags]`,
}

// Execute runs the root command. The context carries process-level
// cancellation (interrupt signals) down to the commands.
func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
