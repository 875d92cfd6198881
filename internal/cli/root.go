// Package cli wires configuration and dependencies into the snapgram
// subcommands.
package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	config "example.com/snapgram/internal/init"
	"example.com/snapgram/internal/logger"
	"github.com/spf13/cobra"
)

var logg = logger.New()

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigFile string
}

// NewRootCommand creates the root command. Without a subcommand it runs the
// mode named by the MODE setting.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "snapgram",
		Short:         "snapgram social backend",
		Long:          "HTTP API, counter reconciler and schema migrations for the snapgram photo sharing backend.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Init(opts.ConfigFile)
			switch cfg.Mode {
			case "server":
				return withSignals(cmd.Context(), func(ctx context.Context) error { return runServer(ctx, cfg) })
			case "worker":
				return withSignals(cmd.Context(), func(ctx context.Context) error { return runWorker(ctx, cfg) })
			default:
				return fmt.Errorf("unknown mode: %s", cfg.Mode)
			}
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "path to a config file (default ./config.yaml)")

	cmd.AddCommand(NewServerCommand(opts))
	cmd.AddCommand(NewWorkerCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))

	return cmd
}

// withSignals runs fn with a context cancelled on SIGINT or SIGTERM.
func withSignals(parent context.Context, fn func(ctx context.Context) error) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := fn(ctx); err != nil {
		return err
	}
	logg.Info("main", "Shutdown completed")
	return nil
}
