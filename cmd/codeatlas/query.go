package main

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/codeatlas-ai/codeatlas"
	"github.com/codeatlas-ai/codeatlas/application/service"
	"github.com/codeatlas-ai/codeatlas/internal/log"
)

func queryCmd() *cobra.Command {
	var envFile string
	var repo string
	var branch string
	var profile string
	var maxResults int

	cmd := &cobra.Command{
		Use:   "query <text>...",
		Short: "Run one query and print the JSON response",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(envFile)
			if err != nil {
				return err
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

			resp, err := client.Query(ctx, service.QueryRequest{
				Repository: repo,
				Text:       strings.Join(args, " "),
				Branch:     branch,
				MaxResults: maxResults,
				Profile:    profile,
			})
			if err != nil {
				return err
			}

			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(resp)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file")
	cmd.Flags().StringVarP(&repo, "repository", "r", "", "Repository name (required)")
	cmd.Flags().StringVarP(&branch, "branch", "b", "", "Branch to query")
	cmd.Flags().StringVarP(&profile, "profile", "p", "", "Retrieval profile: Fast, Hybrid, or Semantic")
	cmd.Flags().IntVarP(&maxResults, "max-results", "n", 0, "Maximum number of results")
	_ = cmd.MarkFlagRequired("repository")
	return cmd
}
