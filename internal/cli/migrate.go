package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"medconnect-server/internal/models"
)

func migrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB()
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			if err := models.Migrate(db); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			a.logger.WithComponent("migrate").
				WithField("tables", len(models.AllModels())).
				Info("Database migrated")
			return nil
		},
	}
}
