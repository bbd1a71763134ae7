package cmd

import (
	"github.com/spf13/cobra"

	"github.com/restock-systems/stockwatch/internal/repository"
	"github.com/restock-systems/stockwatch/pkg/output"
)

var migrateDown bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Long:  `Applies the embedded schema migrations to the postgres data store configured under datastore.postgres.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := repository.Migrate(cfg.Datastore.Postgres.DSN(), migrateDown); err != nil {
			return err
		}
		if migrateDown {
			output.Success(cmd.OutOrStdout(), "Migrations rolled back")
		} else {
			output.Success(cmd.OutOrStdout(), "Migrations applied")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().BoolVar(&migrateDown, "down", false, "roll back every migration")
}
