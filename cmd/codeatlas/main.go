// Package main is the entry point for the codeatlas CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/codeatlas-ai/codeatlas/internal/config"
	"github.com/codeatlas-ai/codeatlas/internal/log"
)

// Version information set via ldflags during build.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "codeatlas",
		Short: "CodeAtlas code-indexing server",
		Long:  `CodeAtlas mirrors Git repositories, indexes their source code, and answers natural-language queries with hybrid lexical+semantic retrieval.`,
	}

	cmd.AddCommand(serveCmd())
	cmd.AddCommand(indexCmd())
	cmd.AddCommand(queryCmd())
	cmd.AddCommand(benchCmd())
	cmd.AddCommand(versionCmd())

	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("codeatlas %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}

// loadConfig loads configuration from a .env file and environment variables,
// and configures logging.
func loadConfig(envFile string) (config.AppConfig, error) {
	cfg, err := config.LoadConfig(envFile)
	if err != nil {
		return config.AppConfig{}, fmt.Errorf("load config: %w", err)
	}
	log.Configure(cfg)
	return cfg, nil
}
