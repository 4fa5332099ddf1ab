package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fundtracker/models"

	_ "modernc.org/sqlite"
)

// timestampLayout is fixed width so that TEXT comparison orders instants correctly
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

const dateLayout = "2006-01-02"

// Store is a single-file SnapshotStore for deployments without PostgreSQL
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database at path and applies the schema
func New(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite: path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: failed to migrate: %w", err)
	}

	return store, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Append(ctx context.Context, totalAmount, totalQuantity int64, scrapedAt time.Time) (*models.Snapshot, error) {
	createdAt := time.Now().UTC()
	scrapedAt = scrapedAt.UTC()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO raw_snapshots (scraped_at, total_amount, total_quantity, created_at)
		VALUES (?, ?, ?, ?)
	`, formatTimestamp(scrapedAt), totalAmount, totalQuantity, formatTimestamp(createdAt))
	if err != nil {
		return nil, fmt.Errorf("failed to append snapshot: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot id: %w", err)
	}

	return &models.Snapshot{
		ID:            id,
		ScrapedAt:     scrapedAt,
		TotalAmount:   totalAmount,
		TotalQuantity: totalQuantity,
		CreatedAt:     createdAt,
	}, nil
}

func (s *Store) LatestAtOrBefore(ctx context.Context, t time.Time) (*models.Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, scraped_at, total_amount, total_quantity, created_at
		FROM raw_snapshots
		WHERE scraped_at <= ?
		ORDER BY scraped_at DESC, id DESC
		LIMIT 1
	`, formatTimestamp(t))

	snapshot, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest snapshot: %w", err)
	}
	return snapshot, nil
}

func (s *Store) Between(ctx context.Context, from, to time.Time) ([]*models.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, scraped_at, total_amount, total_quantity, created_at
		FROM raw_snapshots
		WHERE scraped_at >= ? AND scraped_at < ?
		ORDER BY scraped_at ASC, id ASC
	`, formatTimestamp(from), formatTimestamp(to))
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*models.Snapshot
	for rows.Next() {
		snapshot, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snapshots = append(snapshots, snapshot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}

	return snapshots, nil
}

func (s *Store) UpsertDailyRollup(ctx context.Context, rollup *models.DailyRollup) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO daily_metrics (
			date,
			baseline_amount, baseline_quantity, end_amount, end_quantity,
			goal_daily_amount, goal_daily_quantity, goal_total_amount, goal_total_quantity,
			diff_daily_amount, diff_daily_quantity, diff_total_amount, diff_total_quantity,
			updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			baseline_amount = excluded.baseline_amount,
			baseline_quantity = excluded.baseline_quantity,
			end_amount = excluded.end_amount,
			end_quantity = excluded.end_quantity,
			goal_daily_amount = excluded.goal_daily_amount,
			goal_daily_quantity = excluded.goal_daily_quantity,
			goal_total_amount = excluded.goal_total_amount,
			goal_total_quantity = excluded.goal_total_quantity,
			diff_daily_amount = excluded.diff_daily_amount,
			diff_daily_quantity = excluded.diff_daily_quantity,
			diff_total_amount = excluded.diff_total_amount,
			diff_total_quantity = excluded.diff_total_quantity,
			updated_at = excluded.updated_at
	`,
		rollup.Date.Format(dateLayout),
		rollup.BaselineAmount,
		rollup.BaselineQuantity,
		rollup.EndAmount,
		rollup.EndQuantity,
		rollup.GoalDailyAmount,
		rollup.GoalDailyQuantity,
		rollup.GoalTotalAmount,
		rollup.GoalTotalQuantity,
		rollup.DiffDailyAmount,
		rollup.DiffDailyQuantity,
		rollup.DiffTotalAmount,
		rollup.DiffTotalQuantity,
		formatTimestamp(rollup.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert daily rollup for %s: %w", rollup.Date.Format(dateLayout), err)
	}
	return nil
}

// GetDailyRollup returns the rollup for a date, or nil if none was written
func (s *Store) GetDailyRollup(ctx context.Context, date time.Time) (*models.DailyRollup, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+rollupColumns+` FROM daily_metrics WHERE date = ?`, date.Format(dateLayout))

	rollup, err := scanRollup(row, date.Location())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get daily rollup: %w", err)
	}
	return rollup, nil
}

// ListDailyRollups returns rollups for from <= date <= to, oldest first
func (s *Store) ListDailyRollups(ctx context.Context, from, to time.Time) ([]*models.DailyRollup, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+rollupColumns+` FROM daily_metrics WHERE date >= ? AND date <= ? ORDER BY date ASC`,
		from.Format(dateLayout), to.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to query daily rollups: %w", err)
	}
	defer rows.Close()

	var rollups []*models.DailyRollup
	for rows.Next() {
		rollup, err := scanRollup(rows, from.Location())
		if err != nil {
			return nil, fmt.Errorf("failed to scan daily rollup: %w", err)
		}
		rollups = append(rollups, rollup)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily rollups: %w", err)
	}

	return rollups, nil
}

// Columns lists the columns of a table, for schema diagnostics
func (s *Store) Columns(ctx context.Context, table string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM pragma_table_info(?)`, table)
	if err != nil {
		return nil, fmt.Errorf("failed to read table info for %s: %w", table, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		columns = append(columns, name)
	}
	return columns, rows.Err()
}

func (s *Store) migrate() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS raw_snapshots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			scraped_at TEXT NOT NULL,
			total_amount INTEGER NOT NULL,
			total_quantity INTEGER NOT NULL,
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_raw_snapshots_scraped_at ON raw_snapshots (scraped_at);`,
		`CREATE TABLE IF NOT EXISTS daily_metrics (
			date TEXT PRIMARY KEY,
			baseline_amount INTEGER NOT NULL,
			baseline_quantity INTEGER NOT NULL,
			end_amount INTEGER NOT NULL,
			end_quantity INTEGER NOT NULL,
			goal_daily_amount INTEGER NOT NULL DEFAULT 0,
			goal_daily_quantity INTEGER NOT NULL DEFAULT 0,
			goal_total_amount INTEGER NOT NULL DEFAULT 0,
			goal_total_quantity INTEGER NOT NULL DEFAULT 0,
			diff_daily_amount INTEGER NOT NULL DEFAULT 0,
			diff_daily_quantity INTEGER NOT NULL DEFAULT 0,
			diff_total_amount INTEGER NOT NULL DEFAULT 0,
			diff_total_quantity INTEGER NOT NULL DEFAULT 0,
			updated_at TEXT NOT NULL
		);`,
	}

	for _, statement := range statements {
		if _, err := s.db.Exec(statement); err != nil {
			return err
		}
	}
	return nil
}

const rollupColumns = `date,
	baseline_amount, baseline_quantity, end_amount, end_quantity,
	goal_daily_amount, goal_daily_quantity, goal_total_amount, goal_total_quantity,
	diff_daily_amount, diff_daily_quantity, diff_total_amount, diff_total_quantity,
	updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scanner) (*models.Snapshot, error) {
	var snapshot models.Snapshot
	var scrapedAt, createdAt string
	if err := row.Scan(&snapshot.ID, &scrapedAt, &snapshot.TotalAmount, &snapshot.TotalQuantity, &createdAt); err != nil {
		return nil, err
	}

	var err error
	if snapshot.ScrapedAt, err = parseTimestamp(scrapedAt); err != nil {
		return nil, err
	}
	if snapshot.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func scanRollup(row scanner, loc *time.Location) (*models.DailyRollup, error) {
	var rollup models.DailyRollup
	var date, updatedAt string
	if err := row.Scan(
		&date,
		&rollup.BaselineAmount,
		&rollup.BaselineQuantity,
		&rollup.EndAmount,
		&rollup.EndQuantity,
		&rollup.GoalDailyAmount,
		&rollup.GoalDailyQuantity,
		&rollup.GoalTotalAmount,
		&rollup.GoalTotalQuantity,
		&rollup.DiffDailyAmount,
		&rollup.DiffDailyQuantity,
		&rollup.DiffTotalAmount,
		&rollup.DiffTotalQuantity,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	if loc == nil {
		loc = time.UTC
	}
	day, err := time.ParseInLocation(dateLayout, date, loc)
	if err != nil {
		return nil, fmt.Errorf("invalid rollup date %q: %w", date, err)
	}
	rollup.Date = day

	if rollup.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return nil, err
	}
	return &rollup, nil
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTimestamp(value string) (time.Time, error) {
	t, err := time.Parse(timestampLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", value, err)
	}
	return t.UTC(), nil
}
