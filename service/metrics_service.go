package service

import (
	"context"
	"fmt"
	"time"

	"fundtracker/events"
	"fundtracker/models"

	log "github.com/sirupsen/logrus"
)

// MetricsConfig carries what the engine needs besides its collaborators
type MetricsConfig struct {
	// Location defines the local day boundary
	Location *time.Location

	// Clock stamps rollup writes; defaults to time.Now
	Clock func() time.Time
}

// metricsService implements the MetricsService interface
type metricsService struct {
	store          SnapshotStore
	goals          GoalProvider
	eventPublisher EventPublisher
	loc            *time.Location
	clock          func() time.Time
}

// NewMetricsService creates a new metrics service
func NewMetricsService(store SnapshotStore, goals GoalProvider, eventPublisher EventPublisher, cfg MetricsConfig) MetricsService {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	return &metricsService{
		store:          store,
		goals:          goals,
		eventPublisher: eventPublisher,
		loc:            loc,
		clock:          clock,
	}
}

// ComputeTodayMetrics derives today's metrics relative to now and persists the rollup.
//
// Outcomes:
//   - (nil, nil): NoData, no baseline or no current reading exists yet
//   - (result, nil): computed and persisted
//   - (result, err): computed, but the rollup write failed (err wraps ErrPersistence)
//   - (nil, err): the store could not be read
func (s *metricsService) ComputeTodayMetrics(ctx context.Context, now time.Time) (*models.MetricsResult, error) {
	today := LocalDate(now, s.loc)

	baseline, err := s.selectBaseline(ctx, today)
	if err != nil {
		return nil, err
	}

	latest, err := s.store.LatestAtOrBefore(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest snapshot: %w", err)
	}

	if baseline == nil || latest == nil {
		log.WithFields(log.Fields{
			"date":        models.DateKey(today),
			"hasBaseline": baseline != nil,
			"hasLatest":   latest != nil,
		}).Info("Not enough snapshot history to compute today's metrics")
		return nil, nil
	}

	goal := s.lookupGoal(ctx, today)
	result := buildResult(today, baseline, latest, goal, s.loc)

	rollup := result.Rollup(s.clock().UTC())
	if err := s.store.UpsertDailyRollup(ctx, rollup); err != nil {
		log.WithFields(log.Fields{
			"date":  models.DateKey(today),
			"error": err,
		}).Error("Failed to persist daily rollup")
		return result, fmt.Errorf("%w for %s: %v", ErrPersistence, models.DateKey(today), err)
	}

	if s.eventPublisher != nil {
		s.eventPublisher.Publish(events.DailyRollupUpdatedEvent{
			Date:   today,
			Rollup: *rollup,
		})
	}

	log.WithFields(log.Fields{
		"date":          models.DateKey(today),
		"dailyAmount":   result.DailyAmount,
		"dailyQuantity": result.DailyQuantity,
		"totalAmount":   result.TotalAmount,
		"totalQuantity": result.TotalQuantity,
	}).Debug("Computed today's metrics")

	return result, nil
}

// selectBaseline picks the start-of-day reference for today. The last reading
// in [yesterday 23:00, today 00:00) wins; if that window is empty the latest
// reading at or before the cutoff is used.
func (s *metricsService) selectBaseline(ctx context.Context, today time.Time) (*models.Snapshot, error) {
	cutoff := BaselineCutoff(today, s.loc)

	closing, err := s.store.Between(ctx, cutoff, today)
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshots after baseline cutoff: %w", err)
	}
	if len(closing) > 0 {
		return closing[len(closing)-1], nil
	}

	baseline, err := s.store.LatestAtOrBefore(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to get baseline snapshot: %w", err)
	}
	return baseline, nil
}

// lookupGoal returns the goal for today; failures degrade to "no goal"
func (s *metricsService) lookupGoal(ctx context.Context, today time.Time) *models.DailyGoal {
	if s.goals == nil {
		return nil
	}

	goal, err := s.goals.GoalForDate(ctx, today)
	if err != nil {
		log.WithFields(log.Fields{
			"date":  models.DateKey(today),
			"error": err,
		}).Warn("Goal lookup failed, treating goals as zero")
		return nil
	}
	return goal
}

func buildResult(today time.Time, baseline, latest *models.Snapshot, goal *models.DailyGoal, loc *time.Location) *models.MetricsResult {
	result := &models.MetricsResult{
		Date:          today,
		NowAt:         latest.ScrapedAt.In(loc),
		DailyAmount:   latest.TotalAmount - baseline.TotalAmount,
		DailyQuantity: latest.TotalQuantity - baseline.TotalQuantity,
		TotalAmount:   latest.TotalAmount,
		TotalQuantity: latest.TotalQuantity,
		Baseline:      baseline,
		Latest:        latest,
	}

	if goal != nil {
		result.GoalDailyAmount = goal.GoalDailyAmount
		result.GoalDailyQuantity = goal.GoalDailyQuantity
		result.GoalTotalAmount = goal.GoalTotalAmount
		result.GoalTotalQuantity = goal.GoalTotalQuantity
	}

	result.GapDailyAmount = result.GoalDailyAmount - result.DailyAmount
	result.GapDailyQuantity = result.GoalDailyQuantity - result.DailyQuantity
	result.GapTotalAmount = result.GoalTotalAmount - result.TotalAmount
	result.GapTotalQuantity = result.GoalTotalQuantity - result.TotalQuantity

	result.PctDailyAmount = PercentOfGoal(result.DailyAmount, result.GoalDailyAmount)
	result.PctDailyQuantity = PercentOfGoal(result.DailyQuantity, result.GoalDailyQuantity)
	result.PctTotalAmount = PercentOfGoal(result.TotalAmount, result.GoalTotalAmount)
	result.PctTotalQuantity = PercentOfGoal(result.TotalQuantity, result.GoalTotalQuantity)

	return result
}

// PercentOfGoal returns actual as a percentage of goal, or 0 when there is no goal
func PercentOfGoal(actual, goal int64) float64 {
	if goal <= 0 {
		return 0
	}
	return float64(actual) * 100 / float64(goal)
}
