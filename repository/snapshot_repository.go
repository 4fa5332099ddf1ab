package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fundtracker/database"
	"fundtracker/models"

	"github.com/jackc/pgx/v5"
)

// SnapshotRepository stores raw snapshots and daily rollups in PostgreSQL
type SnapshotRepository struct {
	q queryable
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db *database.DB) *SnapshotRepository {
	return &SnapshotRepository{q: db.Pool}
}

// newSnapshotRepositoryWithTx creates a snapshot repository bound to a transaction
func newSnapshotRepositoryWithTx(tx queryable) *SnapshotRepository {
	return &SnapshotRepository{q: tx}
}

// Append records a new snapshot
func (r *SnapshotRepository) Append(ctx context.Context, totalAmount, totalQuantity int64, scrapedAt time.Time) (*models.Snapshot, error) {
	query := `
		INSERT INTO raw_snapshots (scraped_at, total_amount, total_quantity)
		VALUES ($1, $2, $3)
		RETURNING id, scraped_at, total_amount, total_quantity, created_at
	`

	var snapshot models.Snapshot
	err := r.q.QueryRow(ctx, query, scrapedAt.UTC(), totalAmount, totalQuantity).Scan(
		&snapshot.ID,
		&snapshot.ScrapedAt,
		&snapshot.TotalAmount,
		&snapshot.TotalQuantity,
		&snapshot.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to append snapshot: %w", err)
	}

	snapshot.ScrapedAt = snapshot.ScrapedAt.UTC()
	snapshot.CreatedAt = snapshot.CreatedAt.UTC()
	return &snapshot, nil
}

// LatestAtOrBefore returns the most recent snapshot at or before t.
// Equal timestamps are broken by id so the later insert wins.
func (r *SnapshotRepository) LatestAtOrBefore(ctx context.Context, t time.Time) (*models.Snapshot, error) {
	query := `
		SELECT id, scraped_at, total_amount, total_quantity, created_at
		FROM raw_snapshots
		WHERE scraped_at <= $1
		ORDER BY scraped_at DESC, id DESC
		LIMIT 1
	`

	snapshot, err := scanSnapshot(r.q.QueryRow(ctx, query, t.UTC()))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest snapshot at or before %s: %w", t.UTC().Format(time.RFC3339), err)
	}

	return snapshot, nil
}

// Between returns snapshots with from <= scraped_at < to, oldest first
func (r *SnapshotRepository) Between(ctx context.Context, from, to time.Time) ([]*models.Snapshot, error) {
	query := `
		SELECT id, scraped_at, total_amount, total_quantity, created_at
		FROM raw_snapshots
		WHERE scraped_at >= $1 AND scraped_at < $2
		ORDER BY scraped_at ASC, id ASC
	`

	rows, err := r.q.Query(ctx, query, from.UTC(), to.UTC())
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

// UpsertDailyRollup writes the rollup for its date, replacing any existing row
func (r *SnapshotRepository) UpsertDailyRollup(ctx context.Context, rollup *models.DailyRollup) error {
	query := `
		INSERT INTO daily_metrics (
			date,
			baseline_amount, baseline_quantity, end_amount, end_quantity,
			goal_daily_amount, goal_daily_quantity, goal_total_amount, goal_total_quantity,
			diff_daily_amount, diff_daily_quantity, diff_total_amount, diff_total_quantity,
			updated_at
		)
		VALUES ($1::date, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (date) DO UPDATE SET
			baseline_amount = EXCLUDED.baseline_amount,
			baseline_quantity = EXCLUDED.baseline_quantity,
			end_amount = EXCLUDED.end_amount,
			end_quantity = EXCLUDED.end_quantity,
			goal_daily_amount = EXCLUDED.goal_daily_amount,
			goal_daily_quantity = EXCLUDED.goal_daily_quantity,
			goal_total_amount = EXCLUDED.goal_total_amount,
			goal_total_quantity = EXCLUDED.goal_total_quantity,
			diff_daily_amount = EXCLUDED.diff_daily_amount,
			diff_daily_quantity = EXCLUDED.diff_daily_quantity,
			diff_total_amount = EXCLUDED.diff_total_amount,
			diff_total_quantity = EXCLUDED.diff_total_quantity,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.q.Exec(ctx, query,
		models.DateKey(rollup.Date),
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
		rollup.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert daily rollup for %s: %w", models.DateKey(rollup.Date), err)
	}

	return nil
}

// GetDailyRollup returns the rollup for a date, or nil if none was written
func (r *SnapshotRepository) GetDailyRollup(ctx context.Context, date time.Time) (*models.DailyRollup, error) {
	query := `
		SELECT ` + rollupColumns + `
		FROM daily_metrics
		WHERE date = $1::date
	`

	rollup, err := scanRollup(r.q.QueryRow(ctx, query, models.DateKey(date)), date.Location())
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get daily rollup for %s: %w", models.DateKey(date), err)
	}

	return rollup, nil
}

// ListDailyRollups returns rollups for from <= date <= to, oldest first
func (r *SnapshotRepository) ListDailyRollups(ctx context.Context, from, to time.Time) ([]*models.DailyRollup, error) {
	query := `
		SELECT ` + rollupColumns + `
		FROM daily_metrics
		WHERE date >= $1::date AND date <= $2::date
		ORDER BY date ASC
	`

	rows, err := r.q.Query(ctx, query, models.DateKey(from), models.DateKey(to))
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

const rollupColumns = `date,
			baseline_amount, baseline_quantity, end_amount, end_quantity,
			goal_daily_amount, goal_daily_quantity, goal_total_amount, goal_total_quantity,
			diff_daily_amount, diff_daily_quantity, diff_total_amount, diff_total_quantity,
			updated_at`

func scanSnapshot(row pgx.Row) (*models.Snapshot, error) {
	var snapshot models.Snapshot
	if err := row.Scan(
		&snapshot.ID,
		&snapshot.ScrapedAt,
		&snapshot.TotalAmount,
		&snapshot.TotalQuantity,
		&snapshot.CreatedAt,
	); err != nil {
		return nil, err
	}

	snapshot.ScrapedAt = snapshot.ScrapedAt.UTC()
	snapshot.CreatedAt = snapshot.CreatedAt.UTC()
	return &snapshot, nil
}

// scanRollup reads a daily_metrics row. DATE columns come back as UTC
// midnight, so the date is rebuilt as midnight in loc.
func scanRollup(row pgx.Row, loc *time.Location) (*models.DailyRollup, error) {
	var rollup models.DailyRollup
	var date time.Time
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
		&rollup.UpdatedAt,
	); err != nil {
		return nil, err
	}

	rollup.Date = calendarDate(date, loc)
	rollup.UpdatedAt = rollup.UpdatedAt.UTC()
	return &rollup, nil
}

// calendarDate keeps the year/month/day of a DATE value and places it at midnight in loc
func calendarDate(date time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)
}

// AppendAll inserts the given readings in one transaction, in order
func AppendAll(ctx context.Context, db *database.DB, snapshots []*models.Snapshot) ([]*models.Snapshot, error) {
	stored := make([]*models.Snapshot, 0, len(snapshots))

	err := db.WithTransaction(ctx, func(tx pgx.Tx) error {
		repo := newSnapshotRepositoryWithTx(tx)
		for _, s := range snapshots {
			snapshot, err := repo.Append(ctx, s.TotalAmount, s.TotalQuantity, s.ScrapedAt)
			if err != nil {
				return err
			}
			stored = append(stored, snapshot)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return stored, nil
}
