package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"medconnect-server/internal/models"
	"medconnect-server/internal/seed"
	"medconnect-server/internal/store"
)

func seedCmd(a *app) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load sample doctors, hospitals, medicines and lab tests",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("SEED_PASSWORD")
			}
			db, err := a.openDB()
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			if err := models.Migrate(db); err != nil {
				return fmt.Errorf("migrate database: %w", err)
			}

			report, err := seed.New(store.New(db), a.logger).Run(context.Background(), password)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "Password for every seeded account (default $SEED_PASSWORD)")
	return cmd
}
