package cmd

import (
	"fmt"

	"fundtracker/config"
	"fundtracker/database"
	"fundtracker/repository/sqlite"

	"github.com/spf13/cobra"
	log "github.com/sirupsen/logrus"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down|status] [steps]",
	Short:     "Manage the database schema",
	Args:      cobra.RangeArgs(1, 2),
	ValidArgs: []string{"up", "down", "status"},
	RunE:      runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	// The sqlite store applies its schema on open
	if cfg.StoreDriver == config.StoreDriverSQLite {
		store, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return err
		}
		log.WithField("path", cfg.SQLitePath).Info("SQLite schema is up to date")
		return store.Close()
	}

	databaseURL := cfg.GetDatabaseURL()
	switch args[0] {
	case "up":
		return database.MigrateUp(databaseURL)
	case "down":
		steps := "1"
		if len(args) > 1 {
			steps = args[1]
		}
		return database.MigrateDown(databaseURL, steps)
	case "status":
		return database.MigrateStatus(databaseURL)
	default:
		return fmt.Errorf("unknown migration command: %s", args[0])
	}
}
