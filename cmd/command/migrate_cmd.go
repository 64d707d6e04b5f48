package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iota-uz/taskgate/modules"
	"github.com/iota-uz/taskgate/pkg/application"
	"github.com/iota-uz/taskgate/pkg/configuration"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply, roll back or inspect database migrations",
	}
	cmd.AddCommand(
		newMigrateStepCmd("up", "Apply all pending migrations", func(cmd *cobra.Command, m application.MigrationManager) error {
			return m.Up(cmd.Context())
		}),
		newMigrateStepCmd("down", "Roll back the most recent migration", func(cmd *cobra.Command, m application.MigrationManager) error {
			return m.Down(cmd.Context())
		}),
		newMigrateStepCmd("status", "Print migration status", func(cmd *cobra.Command, m application.MigrationManager) error {
			statuses, err := m.Status(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), statuses)
		}),
	)
	return cmd
}

func newMigrateStepCmd(
	use, short string,
	run func(cmd *cobra.Command, m application.MigrationManager) error,
) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf := configuration.Use()
			defer conf.Unload()
			if conf.StorageDriver == configuration.StorageDriverMemory {
				return fmt.Errorf("migrations require STORAGE_DRIVER=postgres")
			}

			pool, err := connectDB(cmd.Context(), conf)
			if err != nil {
				return err
			}
			defer pool.Close()

			app := application.New(&application.ApplicationOptions{Pool: pool, Logger: conf.Logger()})
			if err := modules.Load(app, modules.BuiltInModules(conf, nil)...); err != nil {
				return err
			}
			return run(cmd, app.Migrations())
		},
	}
}
