package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fundtracker/events"
	"fundtracker/models"
	"fundtracker/service"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	hourlyLockKey = "fundtracker:job:run-hourly"
	dailyLockKey  = "fundtracker:job:compute-daily"
)

// Runner executes the scheduled jobs. Each run gets its own run_id for log correlation.
type Runner struct {
	ingest    service.IngestService
	metrics   service.MetricsService
	publisher service.EventPublisher
	locker    Locker
	lockTTL   time.Duration
	clock     func() time.Time
}

// RunnerConfig holds the optional parts of a Runner
type RunnerConfig struct {
	Locker  Locker
	LockTTL time.Duration
	Clock   func() time.Time
}

// NewRunner creates a job runner. publisher may be nil.
func NewRunner(ingest service.IngestService, metrics service.MetricsService, publisher service.EventPublisher, cfg RunnerConfig) *Runner {
	locker := cfg.Locker
	if locker == nil {
		locker = NoopLocker{}
	}
	ttl := cfg.LockTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Runner{
		ingest:    ingest,
		metrics:   metrics,
		publisher: publisher,
		locker:    locker,
		lockTTL:   ttl,
		clock:     clock,
	}
}

// RunHourly ingests a fresh snapshot and then refreshes today's rollup.
// It returns (nil, nil) when the snapshot was stored but there is no baseline yet.
func (r *Runner) RunHourly(ctx context.Context) (*models.MetricsResult, error) {
	runID := uuid.NewString()
	logger := log.WithFields(log.Fields{"job": "run_hourly", "run_id": runID})

	release, err := r.locker.Acquire(ctx, hourlyLockKey, r.lockTTL)
	if err != nil {
		return nil, r.lockError(logger, err)
	}
	defer release()

	snapshot, err := r.ingest.IngestSnapshot(ctx)
	if err != nil {
		logger.WithError(err).Error("Snapshot ingest failed")
		return nil, fmt.Errorf("run_hourly: %w", err)
	}
	logger.WithFields(log.Fields{
		"totalAmount":   snapshot.TotalAmount,
		"totalQuantity": snapshot.TotalQuantity,
	}).Info("Scraped snapshot")

	result, err := r.metrics.ComputeTodayMetrics(ctx, r.clock())
	if err != nil {
		logger.WithError(err).Error("Failed to update today's metrics")
		return result, fmt.Errorf("run_hourly: %w", err)
	}
	if result == nil {
		logger.Info("Not enough data to compute today's metrics yet")
		return nil, nil
	}

	logger.WithFields(log.Fields{
		"dailyQuantity": result.DailyQuantity,
		"dailyAmount":   result.DailyAmount,
	}).Info("Updated daily metrics")
	return result, nil
}

// ComputeDaily finalizes today's rollup and announces it with a DailyFinalizedEvent.
// NoData is logged as a warning and is not an error.
func (r *Runner) ComputeDaily(ctx context.Context) (*models.MetricsResult, error) {
	runID := uuid.NewString()
	logger := log.WithFields(log.Fields{"job": "compute_daily", "run_id": runID})

	release, err := r.locker.Acquire(ctx, dailyLockKey, r.lockTTL)
	if err != nil {
		return nil, r.lockError(logger, err)
	}
	defer release()

	result, err := r.metrics.ComputeTodayMetrics(ctx, r.clock())
	if err != nil {
		logger.WithError(err).Error("Daily finalization failed")
		return result, fmt.Errorf("compute_daily: %w", err)
	}
	if result == nil {
		logger.Warn("Not enough data to compute today's metrics")
		return nil, nil
	}

	if r.publisher != nil {
		r.publisher.Publish(events.DailyFinalizedEvent{RunID: runID, Result: *result})
	}

	logger.WithFields(log.Fields{
		"date":          models.DateKey(result.Date),
		"dailyAmount":   result.DailyAmount,
		"dailyQuantity": result.DailyQuantity,
	}).Info("Daily metrics finalized")
	return result, nil
}

func (r *Runner) lockError(logger *log.Entry, err error) error {
	if errors.Is(err, ErrLocked) {
		logger.Info("Another run holds the job lock, skipping")
		return err
	}
	logger.WithError(err).Error("Failed to acquire job lock")
	return err
}
