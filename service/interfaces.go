package service

import (
	"context"
	"time"

	"fundtracker/events"
	"fundtracker/models"
)

// SnapshotStore defines the interface for snapshot and rollup persistence
type SnapshotStore interface {
	// Append records a new snapshot taken at scrapedAt
	Append(ctx context.Context, totalAmount, totalQuantity int64, scrapedAt time.Time) (*models.Snapshot, error)

	// LatestAtOrBefore returns the most recent snapshot taken at or before t, or nil if none exists
	LatestAtOrBefore(ctx context.Context, t time.Time) (*models.Snapshot, error)

	// Between returns snapshots with from <= scraped_at < to in ascending order
	Between(ctx context.Context, from, to time.Time) ([]*models.Snapshot, error)

	// UpsertDailyRollup writes the rollup for its date, replacing any existing row
	UpsertDailyRollup(ctx context.Context, rollup *models.DailyRollup) error
}

// GoalProvider maps a local calendar date to its goals
type GoalProvider interface {
	// GoalForDate returns the goal for the date, or nil if none is defined
	GoalForDate(ctx context.Context, date time.Time) (*models.DailyGoal, error)
}

// SnapshotSource produces one fresh reading of the campaign counters
type SnapshotSource interface {
	// Fetch returns the current cumulative amount and backer count
	Fetch(ctx context.Context) (totalAmount, totalQuantity int64, err error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// MetricsService computes the "today" progress view
type MetricsService interface {
	// ComputeTodayMetrics derives today's metrics relative to now and persists the rollup.
	// It returns (nil, nil) when there is not enough snapshot history (NoData).
	ComputeTodayMetrics(ctx context.Context, now time.Time) (*models.MetricsResult, error)
}

// IngestService records fresh snapshots
type IngestService interface {
	// IngestSnapshot fetches one reading from the source and appends it to the store
	IngestSnapshot(ctx context.Context) (*models.Snapshot, error)
}
