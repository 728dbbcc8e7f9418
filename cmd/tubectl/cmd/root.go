package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Never2333/tfl-status/internal/app"
	"github.com/Never2333/tfl-status/internal/config"
	"github.com/Never2333/tfl-status/internal/logger"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:          "tubectl",
	Short:        "Tube station directory tool",
	Long:         "Build and inspect offline station snapshots, and search stations the way the API does.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load(".env")
		_ = godotenv.Overload(".env.local")
		logger.Setup()

		cfg = config.Load()
		return cfg.Validate()
	},
}

// services builds the shared components for a command
func services(ctx context.Context) (*app.Services, error) {
	svc, err := app.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}
	return svc, nil
}

// Execute runs the root command.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(searchCmd)
}
