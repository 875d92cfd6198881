package cli

import (
	config "example.com/snapgram/internal/init"
	"example.com/snapgram/internal/store"
	"github.com/spf13/cobra"
)

// MigrateOptions holds flags for the migrate command.
type MigrateOptions struct {
	*RootOptions
	Down bool
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MigrateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply Cassandra schema migrations",
		Long: `Create the keyspace if it does not exist and apply every pending
migration from MIGRATIONS_PATH.

Example:
  snapgram migrate
  snapgram migrate --down --config ./config.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Init(opts.ConfigFile)
			if opts.Down {
				return store.RollbackMigrations(cfg)
			}
			return store.Migrate(cfg)
		},
	}

	cmd.Flags().BoolVar(&opts.Down, "down", false, "roll back every applied migration")
	return cmd
}
