package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"fundtracker/repository"

	"github.com/spf13/cobra"
)

const rollupTable = "daily_metrics"

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose",
	Short: "Check the rollup table for columns older deployments are missing",
	RunE:  runDiagnose,
}

func init() {
	rootCmd.AddCommand(diagnoseCmd)
}

func runDiagnose(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	var missing []string
	if a.db != nil {
		missing, err = diagnosePostgres(ctx, out, repository.NewSchemaRepository(a.db))
	} else {
		missing, err = diagnoseSQLite(ctx, out, a)
	}
	if err != nil {
		return err
	}

	if len(missing) > 0 {
		fmt.Fprintf(out, "\nmissing columns in %s: %s\n", rollupTable, strings.Join(missing, ", "))
		return fmt.Errorf("schema is out of date, run `fundtracker migrate up`")
	}

	fmt.Fprintln(out, "\nschema OK")
	return nil
}

func diagnosePostgres(ctx context.Context, out io.Writer, schema *repository.SchemaRepository) ([]string, error) {
	columns, err := schema.Columns(ctx, rollupTable)
	if err != nil {
		return nil, err
	}

	fmt.Fprintf(out, "%s columns:\n", rollupTable)
	for _, c := range columns {
		fmt.Fprintf(out, "  %-22s %s\n", c.Name, c.DataType)
	}

	fmt.Fprintln(out, "\nrow counts:")
	for _, table := range []string{"raw_snapshots", "daily_metrics", "daily_goals"} {
		count, err := schema.CountRows(ctx, table)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(out, "  %-22s %d\n", table, count)
	}

	return schema.MissingColumns(ctx, rollupTable, repository.RequiredRollupColumns)
}

func diagnoseSQLite(ctx context.Context, out io.Writer, a *app) ([]string, error) {
	columns, err := a.sqlite.Columns(ctx, rollupTable)
	if err != nil {
		return nil, err
	}

	present := make(map[string]bool, len(columns))
	fmt.Fprintf(out, "%s columns:\n", rollupTable)
	for _, name := range columns {
		present[name] = true
		fmt.Fprintf(out, "  %s\n", name)
	}

	var missing []string
	for _, name := range repository.RequiredRollupColumns {
		if !present[name] {
			missing = append(missing, name)
		}
	}
	return missing, nil
}
