package service

import (
	"context"
	"time"

	"fundtracker/events"
	"fundtracker/models"

	"github.com/stretchr/testify/mock"
)

// MockSnapshotStore is a mock implementation of SnapshotStore
type MockSnapshotStore struct {
	mock.Mock
}

func (m *MockSnapshotStore) Append(ctx context.Context, totalAmount, totalQuantity int64, scrapedAt time.Time) (*models.Snapshot, error) {
	args := m.Called(ctx, totalAmount, totalQuantity, scrapedAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Snapshot), args.Error(1)
}

func (m *MockSnapshotStore) LatestAtOrBefore(ctx context.Context, t time.Time) (*models.Snapshot, error) {
	args := m.Called(ctx, t)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Snapshot), args.Error(1)
}

func (m *MockSnapshotStore) Between(ctx context.Context, from, to time.Time) ([]*models.Snapshot, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Snapshot), args.Error(1)
}

func (m *MockSnapshotStore) UpsertDailyRollup(ctx context.Context, rollup *models.DailyRollup) error {
	args := m.Called(ctx, rollup)
	return args.Error(0)
}

// MockGoalProvider is a mock implementation of GoalProvider
type MockGoalProvider struct {
	mock.Mock
}

func (m *MockGoalProvider) GoalForDate(ctx context.Context, date time.Time) (*models.DailyGoal, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DailyGoal), args.Error(1)
}

// MockSnapshotSource is a mock implementation of SnapshotSource
type MockSnapshotSource struct {
	mock.Mock
}

func (m *MockSnapshotSource) Fetch(ctx context.Context) (int64, int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Get(1).(int64), args.Error(2)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.Called(event)
}

// MockMetricsService is a mock implementation of MetricsService
type MockMetricsService struct {
	mock.Mock
}

func (m *MockMetricsService) ComputeTodayMetrics(ctx context.Context, now time.Time) (*models.MetricsResult, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MetricsResult), args.Error(1)
}

// MockIngestService is a mock implementation of IngestService
type MockIngestService struct {
	mock.Mock
}

func (m *MockIngestService) IngestSnapshot(ctx context.Context) (*models.Snapshot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Snapshot), args.Error(1)
}
