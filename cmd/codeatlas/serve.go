package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/codeatlas-ai/codeatlas"
	"github.com/codeatlas-ai/codeatlas/infrastructure/api"
	"github.com/codeatlas-ai/codeatlas/internal/log"
)

func serveCmd() *cobra.Command {
	var envFile string
	var stdio bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the query server (HTTP, or MCP over stdio)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(envFile)
			if err != nil {
				return err
			}

			client, err := codeatlas.New(cfg, codeatlas.WithLogger(log.Default().Slog()))
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := client.Initialize(ctx); err != nil {
				return err
			}

			if stdio {
				mcpServer := api.NewMCPServer(
					client.QueryService(),
					client.Tracker().RepositoryNames,
					version,
					log.Default().Slog(),
				)
				return mcpServer.ServeStdio()
			}

			httpServer := api.NewServer(client.QueryService(), client.Tracker(), log.Default().Slog())
			addr := fmt.Sprintf("%s:%d", cfg.Host(), cfg.Port())
			return httpServer.ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file")
	cmd.Flags().BoolVar(&stdio, "stdio", false, "Serve MCP over stdio instead of HTTP")
	return cmd
}
