package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"fundtracker/models"
	"fundtracker/report"
	"fundtracker/service"

	"github.com/spf13/cobra"
)

var flagRollupDays int

var rollupsCmd = &cobra.Command{
	Use:   "rollups",
	Short: "List the stored daily rollups",
	RunE:  runRollups,
}

func init() {
	rollupsCmd.Flags().IntVarP(&flagRollupDays, "days", "n", 7, "Number of days to list, ending today")
	rootCmd.AddCommand(rollupsCmd)
}

func runRollups(cmd *cobra.Command, args []string) error {
	if flagRollupDays < 1 {
		return fmt.Errorf("--days must be at least 1")
	}

	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.close()

	to := service.LocalDate(time.Now(), a.loc)
	from := to.AddDate(0, 0, -(flagRollupDays - 1))

	rollups, err := a.store.ListDailyRollups(cmd.Context(), from, to)
	if err != nil {
		return err
	}
	if len(rollups) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "no rollups between %s and %s\n", models.DateKey(from), models.DateKey(to))
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tAMOUNT\tQTY\tGOAL AMOUNT\tGOAL QTY\tGAP AMOUNT\tGAP QTY\tTOTAL\tUPDATED")
	for _, r := range rollups {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%d\t%s\t%d\t%s\t%s\n",
			models.DateKey(r.Date),
			report.FormatWan(r.DailyAmount()),
			r.DailyQuantity(),
			report.FormatWan(r.GoalDailyAmount),
			r.GoalDailyQuantity,
			report.FormatWan(r.DiffDailyAmount),
			r.DiffDailyQuantity,
			report.FormatWan(r.EndAmount),
			r.UpdatedAt.In(a.loc).Format("01-02 15:04"),
		)
	}
	return w.Flush()
}
