package cmd

import (
	"context"
	"fmt"
	"os"

	"fundtracker/config"

	"github.com/spf13/cobra"
	log "github.com/sirupsen/logrus"
)

// cfg is loaded once before any subcommand runs
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "fundtracker",
	Short: "Crowdfunding progress tracker",
	Long:  "Scrape a crowdfunding campaign's cumulative totals, derive today's progress against goals and report it.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
		setupLogging(cfg)
		return nil
	},
	SilenceUsage: true,
}

// Execute is the main entry point called from main.go
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func setupLogging(cfg *config.Config) {
	log.SetOutput(os.Stdout)

	if cfg.IsProduction() {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("logLevel", cfg.LogLevel).Warn("Unknown log level, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)
}
