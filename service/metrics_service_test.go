package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"fundtracker/events"
	"fundtracker/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestMetricsService_EndToEndScenario(t *testing.T) {
	ctx := context.Background()
	loc := shanghai(t)
	store := newMemStore()

	store.add(t, time.Date(2025, 2, 10, 23, 0, 0, int(time.Millisecond), loc), 10_000_000, 1000)
	store.add(t, time.Date(2025, 2, 11, 13, 0, 0, 0, loc), 10_890_000, 1024)

	goals := staticGoals{
		"2025-02-11": {
			Date:              time.Date(2025, 2, 11, 0, 0, 0, 0, loc),
			GoalDailyAmount:   1_000_000,
			GoalDailyQuantity: 30,
			GoalTotalAmount:   20_000_000,
			GoalTotalQuantity: 2000,
		},
	}

	persistedAt := time.Date(2025, 2, 11, 6, 0, 5, 0, time.UTC)
	svc := NewMetricsService(store, goals, nil, MetricsConfig{Location: loc, Clock: fixedClock(persistedAt)})

	now := time.Date(2025, 2, 11, 14, 0, 0, 0, loc)
	result, err := svc.ComputeTodayMetrics(ctx, now)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, int64(890_000), result.DailyAmount)
	assert.Equal(t, int64(24), result.DailyQuantity)
	assert.Equal(t, int64(10_890_000), result.TotalAmount)
	assert.Equal(t, int64(1024), result.TotalQuantity)

	assert.Equal(t, int64(110_000), result.GapDailyAmount)
	assert.Equal(t, int64(6), result.GapDailyQuantity)
	assert.Equal(t, int64(9_110_000), result.GapTotalAmount)
	assert.Equal(t, int64(976), result.GapTotalQuantity)

	assert.InDelta(t, 89.0, result.PctDailyAmount, 1e-9)
	assert.InDelta(t, 80.0, result.PctDailyQuantity, 1e-9)
	assert.InDelta(t, 54.45, result.PctTotalAmount, 1e-9)
	assert.InDelta(t, 51.2, result.PctTotalQuantity, 1e-9)

	// NowAt is the local time of the latest snapshot, not of "now"
	assert.Equal(t, time.Date(2025, 2, 11, 13, 0, 0, 0, loc), result.NowAt)
	assert.Equal(t, loc, result.NowAt.Location())

	rollup := store.rollups["2025-02-11"]
	require.NotNil(t, rollup)
	assert.Equal(t, int64(10_000_000), rollup.BaselineAmount)
	assert.Equal(t, int64(1000), rollup.BaselineQuantity)
	assert.Equal(t, int64(10_890_000), rollup.EndAmount)
	assert.Equal(t, int64(1024), rollup.EndQuantity)
	assert.Equal(t, int64(1_000_000), rollup.GoalDailyAmount)
	assert.Equal(t, int64(30), rollup.GoalDailyQuantity)
	assert.Equal(t, int64(20_000_000), rollup.GoalTotalAmount)
	assert.Equal(t, int64(2000), rollup.GoalTotalQuantity)
	assert.Equal(t, int64(110_000), rollup.DiffDailyAmount)
	assert.Equal(t, int64(6), rollup.DiffDailyQuantity)
	assert.Equal(t, int64(9_110_000), rollup.DiffTotalAmount)
	assert.Equal(t, int64(976), rollup.DiffTotalQuantity)
	assert.Equal(t, persistedAt, rollup.UpdatedAt)

	// Rollup invariants
	assert.Equal(t, rollup.GoalDailyAmount-(rollup.EndAmount-rollup.BaselineAmount), rollup.DiffDailyAmount)
	assert.Equal(t, rollup.GoalDailyQuantity-(rollup.EndQuantity-rollup.BaselineQuantity), rollup.DiffDailyQuantity)
	assert.Equal(t, rollup.GoalTotalAmount-rollup.EndAmount, rollup.DiffTotalAmount)
	assert.Equal(t, rollup.GoalTotalQuantity-rollup.EndQuantity, rollup.DiffTotalQuantity)
}

func TestMetricsService_BaselineBoundary(t *testing.T) {
	ctx := context.Background()
	loc := shanghai(t)
	now := time.Date(2025, 3, 5, 11, 0, 0, 0, loc)

	t.Run("last reading after the cutoff is the baseline", func(t *testing.T) {
		store := newMemStore()
		store.add(t, time.Date(2025, 3, 4, 22, 0, 0, 0, loc), 100, 1)
		store.add(t, time.Date(2025, 3, 4, 23, 30, 0, 0, loc), 150, 2)
		store.add(t, time.Date(2025, 3, 5, 10, 0, 0, 0, loc), 200, 3)

		svc := NewMetricsService(store, nil, nil, MetricsConfig{Location: loc})
		result, err := svc.ComputeTodayMetrics(ctx, now)
		require.NoError(t, err)
		require.NotNil(t, result)

		assert.Equal(t, int64(150), result.Baseline.TotalAmount)
		assert.Equal(t, int64(50), result.DailyAmount)
		assert.Equal(t, int64(1), result.DailyQuantity)
	})

	t.Run("reading exactly at the cutoff counts", func(t *testing.T) {
		store := newMemStore()
		store.add(t, time.Date(2025, 3, 4, 22, 0, 0, 0, loc), 100, 1)
		store.add(t, time.Date(2025, 3, 4, 23, 0, 0, 0, loc), 120, 1)
		store.add(t, time.Date(2025, 3, 5, 10, 0, 0, 0, loc), 200, 3)

		svc := NewMetricsService(store, nil, nil, MetricsConfig{Location: loc})
		result, err := svc.ComputeTodayMetrics(ctx, now)
		require.NoError(t, err)
		require.NotNil(t, result)

		assert.Equal(t, int64(80), result.DailyAmount)
	})

	t.Run("falls back to the latest reading before the cutoff", func(t *testing.T) {
		store := newMemStore()
		store.add(t, time.Date(2025, 3, 3, 9, 0, 0, 0, loc), 50, 1)
		store.add(t, time.Date(2025, 3, 4, 22, 0, 0, 0, loc), 100, 1)
		store.add(t, time.Date(2025, 3, 5, 10, 0, 0, 0, loc), 200, 3)

		svc := NewMetricsService(store, nil, nil, MetricsConfig{Location: loc})
		result, err := svc.ComputeTodayMetrics(ctx, now)
		require.NoError(t, err)
		require.NotNil(t, result)

		assert.Equal(t, int64(100), result.Baseline.TotalAmount)
		assert.Equal(t, int64(100), result.DailyAmount)
	})

	t.Run("reading at local midnight belongs to today", func(t *testing.T) {
		store := newMemStore()
		store.add(t, time.Date(2025, 3, 4, 23, 30, 0, 0, loc), 150, 2)
		store.add(t, time.Date(2025, 3, 5, 0, 0, 0, 0, loc), 170, 2)
		store.add(t, time.Date(2025, 3, 5, 10, 0, 0, 0, loc), 200, 3)

		svc := NewMetricsService(store, nil, nil, MetricsConfig{Location: loc})
		result, err := svc.ComputeTodayMetrics(ctx, now)
		require.NoError(t, err)
		require.NotNil(t, result)

		assert.Equal(t, int64(150), result.Baseline.TotalAmount)
		assert.Equal(t, int64(50), result.DailyAmount)
	})

	t.Run("readings after now are ignored", func(t *testing.T) {
		store := newMemStore()
		store.add(t, time.Date(2025, 3, 4, 23, 30, 0, 0, loc), 150, 2)
		store.add(t, time.Date(2025, 3, 5, 10, 0, 0, 0, loc), 200, 3)
		store.add(t, time.Date(2025, 3, 5, 12, 0, 0, 0, loc), 999, 9)

		svc := NewMetricsService(store, nil, nil, MetricsConfig{Location: loc})
		result, err := svc.ComputeTodayMetrics(ctx, now)
		require.NoError(t, err)
		require.NotNil(t, result)

		assert.Equal(t, int64(200), result.TotalAmount)
	})
}

func TestMetricsService_NoData(t *testing.T) {
	ctx := context.Background()
	loc := shanghai(t)
	now := time.Date(2025, 3, 5, 11, 0, 0, 0, loc)

	t.Run("only a reading from today", func(t *testing.T) {
		store := newMemStore()
		store.add(t, time.Date(2025, 3, 5, 9, 0, 0, 0, loc), 200, 3)

		svc := NewMetricsService(store, nil, nil, MetricsConfig{Location: loc})
		result, err := svc.ComputeTodayMetrics(ctx, now)

		assert.Nil(t, result)
		assert.NoError(t, err)
		assert.True(t, IsNoData(result, err))
		assert.Empty(t, store.rollups)
	})

	t.Run("empty store", func(t *testing.T) {
		store := newMemStore()

		svc := NewMetricsService(store, nil, nil, MetricsConfig{Location: loc})
		result, err := svc.ComputeTodayMetrics(ctx, now)

		assert.True(t, IsNoData(result, err))
		assert.Zero(t, store.upserts)
	})
}

func TestMetricsService_NoGoalDefaults(t *testing.T) {
	ctx := context.Background()
	loc := shanghai(t)
	store := newMemStore()
	store.add(t, time.Date(2025, 3, 4, 23, 10, 0, 0, loc), 1_000, 10)
	store.add(t, time.Date(2025, 3, 5, 9, 0, 0, 0, loc), 1_500, 14)

	svc := NewMetricsService(store, staticGoals{}, nil, MetricsConfig{Location: loc})
	result, err := svc.ComputeTodayMetrics(ctx, time.Date(2025, 3, 5, 9, 30, 0, 0, loc))
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Zero(t, result.GoalDailyAmount)
	assert.Zero(t, result.GoalDailyQuantity)
	assert.Zero(t, result.GoalTotalAmount)
	assert.Zero(t, result.GoalTotalQuantity)

	assert.Equal(t, -result.DailyAmount, result.GapDailyAmount)
	assert.Equal(t, -result.DailyQuantity, result.GapDailyQuantity)
	assert.Equal(t, -result.TotalAmount, result.GapTotalAmount)
	assert.Equal(t, -result.TotalQuantity, result.GapTotalQuantity)

	assert.Equal(t, 0.0, result.PctDailyAmount)
	assert.Equal(t, 0.0, result.PctDailyQuantity)
	assert.Equal(t, 0.0, result.PctTotalAmount)
	assert.Equal(t, 0.0, result.PctTotalQuantity)
}

func TestMetricsService_ZeroGoalPercentage(t *testing.T) {
	ctx := context.Background()
	loc := shanghai(t)
	store := newMemStore()
	store.add(t, time.Date(2025, 3, 4, 23, 10, 0, 0, loc), 1_000, 10)
	store.add(t, time.Date(2025, 3, 5, 9, 0, 0, 0, loc), 1_500, 20)

	goals := staticGoals{
		"2025-03-05": {GoalDailyAmount: 0, GoalDailyQuantity: 20, GoalTotalAmount: 3_000, GoalTotalQuantity: 0},
	}

	svc := NewMetricsService(store, goals, nil, MetricsConfig{Location: loc})
	result, err := svc.ComputeTodayMetrics(ctx, time.Date(2025, 3, 5, 9, 30, 0, 0, loc))
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, int64(500), result.DailyAmount)
	assert.Equal(t, 0.0, result.PctDailyAmount)
	assert.InDelta(t, 50.0, result.PctDailyQuantity, 1e-9)
	assert.InDelta(t, 50.0, result.PctTotalAmount, 1e-9)
	assert.Equal(t, 0.0, result.PctTotalQuantity)
}

func TestMetricsService_Idempotent(t *testing.T) {
	ctx := context.Background()
	loc := shanghai(t)
	store := newMemStore()
	store.add(t, time.Date(2025, 3, 4, 23, 10, 0, 0, loc), 1_000, 10)
	store.add(t, time.Date(2025, 3, 5, 9, 0, 0, 0, loc), 1_500, 14)

	goals := staticGoals{
		"2025-03-05": {GoalDailyAmount: 800, GoalDailyQuantity: 5, GoalTotalAmount: 5_000, GoalTotalQuantity: 50},
	}
	clock := fixedClock(time.Date(2025, 3, 5, 2, 0, 0, 0, time.UTC))
	svc := NewMetricsService(store, goals, nil, MetricsConfig{Location: loc, Clock: clock})

	now := time.Date(2025, 3, 5, 10, 0, 0, 0, loc)
	first, err := svc.ComputeTodayMetrics(ctx, now)
	require.NoError(t, err)
	firstRollup := *store.rollups["2025-03-05"]

	second, err := svc.ComputeTodayMetrics(ctx, now)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, store.rollups, 1)
	assert.Equal(t, 2, store.upserts)
	assert.Equal(t, firstRollup, *store.rollups["2025-03-05"])
}

func TestMetricsService_DeterministicAcrossInputZones(t *testing.T) {
	ctx := context.Background()
	loc := shanghai(t)
	store := newMemStore()
	store.add(t, time.Date(2025, 3, 4, 23, 10, 0, 0, loc), 1_000, 10)
	store.add(t, time.Date(2025, 3, 5, 9, 0, 0, 0, loc), 1_500, 14)

	svc := NewMetricsService(store, nil, nil, MetricsConfig{Location: loc, Clock: fixedClock(time.Unix(0, 0))})

	local := time.Date(2025, 3, 5, 10, 0, 0, 0, loc)
	fromLocal, err := svc.ComputeTodayMetrics(ctx, local)
	require.NoError(t, err)
	fromUTC, err := svc.ComputeTodayMetrics(ctx, local.UTC())
	require.NoError(t, err)

	assert.Equal(t, fromLocal, fromUTC)
	assert.Equal(t, "2025-03-05", models.DateKey(fromUTC.Date))
}

func TestMetricsService_LocalDayDiffersFromUTCDay(t *testing.T) {
	ctx := context.Background()
	loc := shanghai(t)
	store := newMemStore()

	// 2025-03-04 23:30 local is 15:30 UTC the same day; 2025-03-05 01:00 local is still 03-04 in UTC
	store.add(t, time.Date(2025, 3, 4, 23, 30, 0, 0, loc), 1_000, 10)
	store.add(t, time.Date(2025, 3, 5, 1, 0, 0, 0, loc), 1_100, 11)

	svc := NewMetricsService(store, nil, nil, MetricsConfig{Location: loc})
	result, err := svc.ComputeTodayMetrics(ctx, time.Date(2025, 3, 4, 17, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, "2025-03-05", models.DateKey(result.Date))
	assert.Equal(t, int64(100), result.DailyAmount)
	assert.Contains(t, store.rollups, "2025-03-05")
}

func TestMetricsService_NonMonotonicPassthrough(t *testing.T) {
	ctx := context.Background()
	loc := shanghai(t)
	store := newMemStore()
	store.add(t, time.Date(2025, 3, 4, 23, 10, 0, 0, loc), 2_000, 20)
	store.add(t, time.Date(2025, 3, 5, 9, 0, 0, 0, loc), 1_500, 18)

	goals := staticGoals{"2025-03-05": {GoalDailyAmount: 1_000, GoalDailyQuantity: 10}}
	svc := NewMetricsService(store, goals, nil, MetricsConfig{Location: loc})

	result, err := svc.ComputeTodayMetrics(ctx, time.Date(2025, 3, 5, 10, 0, 0, 0, loc))
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, int64(-500), result.DailyAmount)
	assert.Equal(t, int64(-2), result.DailyQuantity)
	assert.Equal(t, int64(1_500), result.GapDailyAmount)
	assert.Equal(t, int64(12), result.GapDailyQuantity)
	assert.InDelta(t, -50.0, result.PctDailyAmount, 1e-9)
}

func TestMetricsService_GapSignConvention(t *testing.T) {
	ctx := context.Background()
	loc := shanghai(t)

	tests := []struct {
		name        string
		end         int64
		goal        int64
		expectedGap int64
		underTarget bool
	}{
		{name: "short of goal", end: 1_400, goal: 500, expectedGap: 100, underTarget: true},
		{name: "exactly on goal", end: 1_500, goal: 500, expectedGap: 0, underTarget: false},
		{name: "over goal", end: 1_800, goal: 500, expectedGap: -300, underTarget: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			store.add(t, time.Date(2025, 3, 4, 23, 10, 0, 0, loc), 1_000, 0)
			store.add(t, time.Date(2025, 3, 5, 9, 0, 0, 0, loc), tt.end, 0)

			goals := staticGoals{"2025-03-05": {GoalDailyAmount: tt.goal}}
			svc := NewMetricsService(store, goals, nil, MetricsConfig{Location: loc})

			result, err := svc.ComputeTodayMetrics(ctx, time.Date(2025, 3, 5, 10, 0, 0, 0, loc))
			require.NoError(t, err)
			require.NotNil(t, result)

			assert.Equal(t, tt.expectedGap, result.GapDailyAmount)
			assert.Equal(t, result.GoalDailyAmount-result.DailyAmount, result.GapDailyAmount)
			assert.Equal(t, tt.underTarget, result.GapDailyAmount > 0)
		})
	}
}

func TestMetricsService_PersistenceFailure(t *testing.T) {
	ctx := context.Background()
	loc := shanghai(t)

	mockStore := new(MockSnapshotStore)
	mockGoals := new(MockGoalProvider)
	mockPublisher := new(MockEventPublisher)

	now := time.Date(2025, 3, 5, 10, 0, 0, 0, loc)
	today := time.Date(2025, 3, 5, 0, 0, 0, 0, loc)
	cutoff := time.Date(2025, 3, 4, 23, 0, 0, 0, loc)
	baseline := &models.Snapshot{ID: 1, ScrapedAt: cutoff.Add(10 * time.Minute).UTC(), TotalAmount: 1_000, TotalQuantity: 10}
	latest := &models.Snapshot{ID: 2, ScrapedAt: now.Add(-time.Hour).UTC(), TotalAmount: 1_200, TotalQuantity: 12}

	mockStore.On("Between", ctx, cutoff, today).Return([]*models.Snapshot{baseline}, nil)
	mockStore.On("LatestAtOrBefore", ctx, now).Return(latest, nil)
	mockGoals.On("GoalForDate", ctx, today).Return(nil, nil)
	mockStore.On("UpsertDailyRollup", ctx, mock.AnythingOfType("*models.DailyRollup")).Return(errors.New("connection reset"))

	svc := NewMetricsService(mockStore, mockGoals, mockPublisher, MetricsConfig{Location: loc})
	result, err := svc.ComputeTodayMetrics(ctx, now)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPersistence)
	require.NotNil(t, result, "computed result is still returned")
	assert.Equal(t, int64(200), result.DailyAmount)
	assert.False(t, IsNoData(result, err))

	mockStore.AssertExpectations(t)
	mockGoals.AssertExpectations(t)
	mockPublisher.AssertNotCalled(t, "Publish", mock.Anything)
}

func TestMetricsService_StoreReadFailure(t *testing.T) {
	ctx := context.Background()
	loc := shanghai(t)

	mockStore := new(MockSnapshotStore)
	mockStore.On("Between", ctx, mock.Anything, mock.Anything).Return(nil, errors.New("database is down"))

	svc := NewMetricsService(mockStore, nil, nil, MetricsConfig{Location: loc})
	result, err := svc.ComputeTodayMetrics(ctx, time.Date(2025, 3, 5, 10, 0, 0, 0, loc))

	require.Error(t, err)
	assert.Nil(t, result)
	assert.NotErrorIs(t, err, ErrPersistence)
	mockStore.AssertNotCalled(t, "UpsertDailyRollup", mock.Anything, mock.Anything)
}

func TestMetricsService_GoalLookupFailureDegradesToZero(t *testing.T) {
	ctx := context.Background()
	loc := shanghai(t)
	store := newMemStore()
	store.add(t, time.Date(2025, 3, 4, 23, 10, 0, 0, loc), 1_000, 10)
	store.add(t, time.Date(2025, 3, 5, 9, 0, 0, 0, loc), 1_500, 14)

	mockGoals := new(MockGoalProvider)
	mockGoals.On("GoalForDate", ctx, mock.Anything).Return(nil, errors.New("goal table missing"))

	svc := NewMetricsService(store, mockGoals, nil, MetricsConfig{Location: loc})
	result, err := svc.ComputeTodayMetrics(ctx, time.Date(2025, 3, 5, 10, 0, 0, 0, loc))
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Zero(t, result.GoalDailyAmount)
	assert.Equal(t, int64(-500), result.GapDailyAmount)
	mockGoals.AssertExpectations(t)
}

func TestMetricsService_PublishesRollupEvent(t *testing.T) {
	ctx := context.Background()
	loc := shanghai(t)
	store := newMemStore()
	store.add(t, time.Date(2025, 3, 4, 23, 10, 0, 0, loc), 1_000, 10)
	store.add(t, time.Date(2025, 3, 5, 9, 0, 0, 0, loc), 1_500, 14)

	mockPublisher := new(MockEventPublisher)
	mockPublisher.On("Publish", mock.MatchedBy(func(e events.DailyRollupUpdatedEvent) bool {
		return models.DateKey(e.Date) == "2025-03-05" &&
			e.Rollup.BaselineAmount == 1_000 &&
			e.Rollup.EndAmount == 1_500
	})).Return()

	svc := NewMetricsService(store, nil, mockPublisher, MetricsConfig{Location: loc})
	_, err := svc.ComputeTodayMetrics(ctx, time.Date(2025, 3, 5, 10, 0, 0, 0, loc))
	require.NoError(t, err)

	mockPublisher.AssertExpectations(t)
}

func TestPercentOfGoal(t *testing.T) {
	assert.Equal(t, 0.0, PercentOfGoal(500, 0))
	assert.Equal(t, 0.0, PercentOfGoal(500, -10))
	assert.InDelta(t, 89.0, PercentOfGoal(890_000, 1_000_000), 1e-9)
	assert.InDelta(t, 150.0, PercentOfGoal(15, 10), 1e-9)
}
