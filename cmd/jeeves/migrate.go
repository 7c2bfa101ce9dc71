package main

import (
	"context"

	"github.com/spf13/cobra"

	"jeeves/internal/config"
	"jeeves/internal/logging"
	"jeeves/internal/paths"
	"jeeves/internal/store"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		Long: `migrate opens the sqlite store and closes it again. store.Open applies
every pending schema migration as part of opening the database, so this
subcommand exists purely so an operator or deploy script can run the
migration step explicitly, ahead of starting "jeeves serve", rather than
paying for it on the first real request.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context())
		},
	}
}

func runMigrate(ctx context.Context) error {
	logger := logging.NewComponentLogger("migrate")

	cfg := config.Load(nil)
	layout := paths.ResolveDefault()
	if cfg.DataDir != "" {
		layout = paths.Layout{Root: cfg.DataDir}
	}

	st, err := store.Open(ctx, layout.DatabasePath())
	if err != nil {
		return err
	}
	defer st.Close()

	logger.Info("database at %s is up to date", layout.DatabasePath())
	return nil
}
