package repository

import (
	"context"
	"fmt"

	"fundtracker/database"
)

// RequiredRollupColumns are the daily_metrics columns the engine writes and
// that older deployments were known to be missing
var RequiredRollupColumns = []string{
	"updated_at",
	"goal_daily_amount",
	"goal_daily_quantity",
	"diff_daily_amount",
	"diff_daily_quantity",
}

// Column describes one column of a table
type Column struct {
	Name     string
	DataType string
}

// SchemaRepository inspects the live database schema
type SchemaRepository struct {
	q queryable
}

// NewSchemaRepository creates a new schema repository
func NewSchemaRepository(db *database.DB) *SchemaRepository {
	return &SchemaRepository{q: db.Pool}
}

// Columns lists the columns of a table in the public schema, in ordinal order
func (r *SchemaRepository) Columns(ctx context.Context, table string) ([]Column, error) {
	query := `
		SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_schema = 'public' AND table_name = $1
		ORDER BY ordinal_position
	`

	rows, err := r.q.Query(ctx, query, table)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns of %s: %w", table, err)
	}
	defer rows.Close()

	var columns []Column
	for rows.Next() {
		var c Column
		if err := rows.Scan(&c.Name, &c.DataType); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		columns = append(columns, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating columns: %w", err)
	}

	return columns, nil
}

// MissingColumns returns the required columns absent from table
func (r *SchemaRepository) MissingColumns(ctx context.Context, table string, required []string) ([]string, error) {
	columns, err := r.Columns(ctx, table)
	if err != nil {
		return nil, err
	}

	present := make(map[string]bool, len(columns))
	for _, c := range columns {
		present[c.Name] = true
	}

	var missing []string
	for _, name := range required {
		if !present[name] {
			missing = append(missing, name)
		}
	}
	return missing, nil
}

// CountRows returns the number of rows in one of the tracker's tables
func (r *SchemaRepository) CountRows(ctx context.Context, table string) (int64, error) {
	switch table {
	case "raw_snapshots", "daily_metrics", "daily_goals":
	default:
		return 0, fmt.Errorf("unknown table %q", table)
	}

	var count int64
	if err := r.q.QueryRow(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count rows of %s: %w", table, err)
	}
	return count, nil
}
