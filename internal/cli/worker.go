package cli

import (
	"context"
	"fmt"

	"example.com/snapgram/cmd/worker"
	appkafka "example.com/snapgram/internal/broker"
	config "example.com/snapgram/internal/init"
	"example.com/snapgram/internal/store"
	"github.com/spf13/cobra"
)

// NewWorkerCommand creates the worker command.
func NewWorkerCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Consume activity events and reconcile counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Init(rootOpts.ConfigFile)
			return withSignals(cmd.Context(), func(ctx context.Context) error {
				return runWorker(ctx, cfg)
			})
		},
	}
}

func runWorker(ctx context.Context, cfg *config.Config) error {
	st, err := store.New(cfg)
	if err != nil {
		return fmt.Errorf("cassandra connection failed: %w", err)
	}

	reader := appkafka.NewKafkaReader(kafkaConfig(cfg))
	w := worker.New(st, reader, cfg.WorkerCount, cfg.WorkerQueueSize)
	w.Run(ctx)
	return w.Close()
}
