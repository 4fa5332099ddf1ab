package cmd

import (
	"fmt"

	"fundtracker/database"
	"fundtracker/events"
	"fundtracker/goals"
	"fundtracker/repository"

	"github.com/spf13/cobra"
)

var goalsCmd = &cobra.Command{
	Use:   "goals",
	Short: "Manage the daily goal schedule",
}

var goalsImportCmd = &cobra.Command{
	Use:   "import <csv>",
	Short: "Load a goal schedule CSV into the daily_goals table",
	Args:  cobra.ExactArgs(1),
	RunE:  runGoalsImport,
}

func init() {
	goalsCmd.AddCommand(goalsImportCmd)
	rootCmd.AddCommand(goalsCmd)
}

func runGoalsImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	schedule, err := goals.LoadCSV(args[0], loc)
	if err != nil {
		return err
	}
	if len(schedule) == 0 {
		return fmt.Errorf("no goals found in %s", args[0])
	}

	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("goals import requires the postgres store: %w", err)
	}
	defer db.Close()

	if err := repository.NewGoalRepository(db, events.NewBus()).UpsertGoals(ctx, schedule); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "imported %d goals from %s\n", len(schedule), args[0])
	return nil
}
