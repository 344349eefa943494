package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/codeatlas-ai/codeatlas"
	"github.com/codeatlas-ai/codeatlas/internal/bench"
	"github.com/codeatlas-ai/codeatlas/internal/log"
)

func benchCmd() *cobra.Command {
	var envFile string
	var repo string
	var branch string
	var suiteFile string

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run an indexing+query benchmark suite",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(envFile)
			if err != nil {
				return err
			}

			data, err := os.ReadFile(suiteFile)
			if err != nil {
				return fmt.Errorf("read suite file: %w", err)
			}
			var suite bench.QuerySet
			if err := json.Unmarshal(data, &suite); err != nil {
				return fmt.Errorf("parse suite file: %w", err)
			}

			client, err := codeatlas.New(cfg, codeatlas.WithLogger(log.Default().Slog()))
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			ctx := cmd.Context()
			if err := client.Initialize(ctx); err != nil {
				return err
			}

			branchName := branch
			if branchName == "" {
				r, err := client.Tracker().Repository(ctx, repo)
				if err != nil {
					return err
				}
				branchName = r.DefaultBranch()
			}
			if branchName == "" {
				branchName = "main"
			}

			runner := bench.NewRunner(client.Tracker(), client.Indexer(), client.QueryService(), client.Stores(), nil)
			report, err := runner.Run(ctx, repo, branchName, suite)
			if err != nil {
				return err
			}

			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(report)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file")
	cmd.Flags().StringVarP(&repo, "repository", "r", "", "Repository name (required)")
	cmd.Flags().StringVarP(&branch, "branch", "b", "", "Branch to benchmark")
	cmd.Flags().StringVarP(&suiteFile, "suite", "s", "", "Path to the JSON query set (required)")
	_ = cmd.MarkFlagRequired("repository")
	_ = cmd.MarkFlagRequired("suite")
	return cmd
}
