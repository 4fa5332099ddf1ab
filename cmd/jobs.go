package cmd

import (
	"errors"
	"fmt"
	"time"

	"fundtracker/jobs"
	"fundtracker/report"

	"github.com/spf13/cobra"
	log "github.com/sirupsen/logrus"
)

var scrapeOnceCmd = &cobra.Command{
	Use:   "scrape-once",
	Short: "Fetch the campaign totals once and store a snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.close()

		snapshot, err := a.ingest.IngestSnapshot(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "snapshot %d: amount=%d quantity=%d at %s\n",
			snapshot.ID, snapshot.TotalAmount, snapshot.TotalQuantity,
			snapshot.ScrapedAt.In(a.loc).Format(time.RFC3339))
		return nil
	},
}

var todayMetricsCmd = &cobra.Command{
	Use:   "today-metrics",
	Short: "Compute today's metrics and print the report",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.close()

		result, err := a.metrics.ComputeTodayMetrics(cmd.Context(), time.Now())
		fmt.Fprintln(cmd.OutOrStdout(), report.Render(result, err))
		return err
	},
}

var runHourlyCmd = &cobra.Command{
	Use:   "run-hourly",
	Short: "Scrape a snapshot and refresh today's rollup",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.close()

		_, err = a.runner.RunHourly(cmd.Context())
		return skipIfLocked(err)
	},
}

var computeDailyCmd = &cobra.Command{
	Use:   "compute-daily",
	Short: "Finalize today's rollup",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.close()

		_, err = a.runner.ComputeDaily(cmd.Context())
		return skipIfLocked(err)
	},
}

func init() {
	rootCmd.AddCommand(scrapeOnceCmd, todayMetricsCmd, runHourlyCmd, computeDailyCmd)
}

// skipIfLocked treats a run already in progress elsewhere as success
func skipIfLocked(err error) error {
	if errors.Is(err, jobs.ErrLocked) {
		log.Info("Job already running elsewhere, nothing to do")
		return nil
	}
	return err
}
