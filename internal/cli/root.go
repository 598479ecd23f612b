// Package cli holds the medconnect command tree.
package cli

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"medconnect-server/internal/config"
	"medconnect-server/internal/logger"
	"medconnect-server/internal/models"
)

// app is the state shared by every subcommand once the root has run.
type app struct {
	cfg    *config.Config
	logger *logger.Logger
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}
	var logLevel string

	root := &cobra.Command{
		Use:           "medconnect",
		Short:         "MedConnect healthcare API server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// A missing .env is fine; the environment may already be set.
			_ = godotenv.Load()

			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			a.cfg = cfg
			a.logger = logger.New(cfg.LogLevel)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override LOG_LEVEL (debug, info, warn, error)")

	root.AddCommand(serveCmd(a))
	root.AddCommand(migrateCmd(a))
	root.AddCommand(seedCmd(a))
	root.AddCommand(entitiesCmd(a))
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	root := NewRootCommand()
	if err := root.Execute(); err != nil {
		root.PrintErrln("Error:", err)
		os.Exit(1)
	}
}

func (a *app) openDB() (*gorm.DB, error) {
	return models.InitDB(models.DatabaseConfig{
		Driver: a.cfg.Database.Driver,
		DSN:    a.cfg.Database.DSN,
		Debug:  a.cfg.Environment == "development" && a.cfg.LogLevel == "debug",
	})
}
