package cmd

import (
	"fmt"
	"time"

	"fundtracker/models"
	"fundtracker/service"

	"github.com/spf13/cobra"
	log "github.com/sirupsen/logrus"
)

var (
	flagSeedBaselineAmount   int64
	flagSeedBaselineQuantity int64
	flagSeedAmountDelta      int64
	flagSeedQuantityDelta    int64
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert a demo baseline (yesterday 23:30) and a current reading",
	Long: "Insert two snapshots so today's metrics can be computed on a fresh database: " +
		"a baseline at 23:30 local time yesterday and a reading taken now.",
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().Int64Var(&flagSeedBaselineAmount, "baseline-amount", 10_000_000, "Cumulative amount of the baseline snapshot")
	seedCmd.Flags().Int64Var(&flagSeedBaselineQuantity, "baseline-quantity", 1000, "Cumulative backer count of the baseline snapshot")
	seedCmd.Flags().Int64Var(&flagSeedAmountDelta, "amount-delta", 890_000, "Amount raised since the baseline")
	seedCmd.Flags().Int64Var(&flagSeedQuantityDelta, "quantity-delta", 24, "Backers gained since the baseline")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	now := time.Now()
	baselineAt := service.BaselineCutoff(service.LocalDate(now, a.loc), a.loc).Add(30 * time.Minute)

	stored, err := a.appendSnapshots(ctx, []*models.Snapshot{
		{
			ScrapedAt:     baselineAt.UTC(),
			TotalAmount:   flagSeedBaselineAmount,
			TotalQuantity: flagSeedBaselineQuantity,
		},
		{
			ScrapedAt:     now.UTC(),
			TotalAmount:   flagSeedBaselineAmount + flagSeedAmountDelta,
			TotalQuantity: flagSeedBaselineQuantity + flagSeedQuantityDelta,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to seed snapshots: %w", err)
	}

	for _, s := range stored {
		log.WithFields(log.Fields{
			"snapshotID":    s.ID,
			"scrapedAt":     s.ScrapedAt.In(a.loc).Format(time.RFC3339),
			"totalAmount":   s.TotalAmount,
			"totalQuantity": s.TotalQuantity,
		}).Info("Seeded snapshot")
	}

	fmt.Fprintf(cmd.OutOrStdout(), "seeded %d snapshots\n", len(stored))
	return nil
}
