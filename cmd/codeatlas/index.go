package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codeatlas-ai/codeatlas"
	"github.com/codeatlas-ai/codeatlas/internal/log"
)

func indexCmd() *cobra.Command {
	var envFile string
	var branch string

	cmd := &cobra.Command{
		Use:   "index <repository>",
		Short: "Eagerly index one repository branch",
		Args:  cobra.ExactArgs(1),
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

			repoName := args[0]
			branchName := branch
			if branchName == "" {
				repo, err := client.Tracker().Repository(ctx, repoName)
				if err != nil {
					return err
				}
				branchName = repo.DefaultBranch()
			}
			if branchName == "" {
				branchName = "main"
			}

			if err := client.IndexBranch(ctx, repoName, branchName); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "indexed %s/%s\n", repoName, branchName)
			return nil
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file")
	cmd.Flags().StringVarP(&branch, "branch", "b", "", "Branch to index (default: repository default branch)")
	return cmd
}
