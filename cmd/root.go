// Package cmd defines the CLI commands for the wayback-archiver executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/waybackd/wayback-archiver/internal/config"
	"github.com/waybackd/wayback-archiver/internal/logging"
)

var cfgFile string

// appKeyType is the key for storing the runtime in the command context.
type appKeyType string

const appKey appKeyType = "app"

// runtime holds what subcommands need after configuration is loaded.
type runtime struct {
	cfg    config.Config
	viper  *viper.Viper
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wayback-archiver",
		Short: "Archive an entire subdomain with the Wayback Machine",
		Long: `wayback-archiver crawls every reachable page under one subdomain,
respecting robots.txt and exclusion patterns, and submits each page to the
Wayback Machine's Save Page Now API with rate limiting and retries.`,

		// Runs after flags are parsed but before the subcommand's RunE, so
		// flag bindings participate in configuration precedence.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			v := viper.GetViper()
			cfg, err := config.Load(v, cfgFile)
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			logger, err := logging.New(cfg.Logging.Development)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			rt := &runtime{cfg: cfg, viper: v, logger: logger}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, rt))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if rt, ok := cmd.Context().Value(appKey).(*runtime); ok && rt != nil {
				// Best effort; stderr sync errors are not actionable.
				_ = rt.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./wayback-archiver.yaml if present)")

	cmd.AddCommand(newArchiveCmd())
	cmd.AddCommand(newRetryCmd())

	return cmd
}

func resolveRuntime(ctx context.Context) (*runtime, error) {
	rt, ok := ctx.Value(appKey).(*runtime)
	if !ok || rt == nil {
		return nil, errors.New("application runtime not initialized")
	}
	return rt, nil
}

// Execute is the main entry point for the CLI.
func Execute() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
