package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"fundtracker/models"

	"github.com/stretchr/testify/require"
)

// memStore is an in-memory SnapshotStore used to exercise the engine end to end
type memStore struct {
	mu        sync.Mutex
	nextID    int64
	snapshots []*models.Snapshot
	rollups   map[string]*models.DailyRollup
	upserts   int
}

func newMemStore() *memStore {
	return &memStore{rollups: make(map[string]*models.DailyRollup)}
}

func (s *memStore) Append(ctx context.Context, totalAmount, totalQuantity int64, scrapedAt time.Time) (*models.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	snapshot := &models.Snapshot{
		ID:            s.nextID,
		ScrapedAt:     scrapedAt.UTC(),
		TotalAmount:   totalAmount,
		TotalQuantity: totalQuantity,
		CreatedAt:     scrapedAt.UTC(),
	}
	s.snapshots = append(s.snapshots, snapshot)
	return snapshot, nil
}

func (s *memStore) LatestAtOrBefore(ctx context.Context, t time.Time) (*models.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var latest *models.Snapshot
	for _, snapshot := range s.snapshots {
		if snapshot.ScrapedAt.After(t) {
			continue
		}
		if latest == nil || !snapshot.ScrapedAt.Before(latest.ScrapedAt) {
			latest = snapshot
		}
	}
	return latest, nil
}

func (s *memStore) Between(ctx context.Context, from, to time.Time) ([]*models.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []*models.Snapshot
	for _, snapshot := range s.snapshots {
		if !snapshot.ScrapedAt.Before(from) && snapshot.ScrapedAt.Before(to) {
			result = append(result, snapshot)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].ScrapedAt.Before(result[j].ScrapedAt)
	})
	return result, nil
}

func (s *memStore) UpsertDailyRollup(ctx context.Context, rollup *models.DailyRollup) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *rollup
	s.rollups[models.DateKey(rollup.Date)] = &copied
	s.upserts++
	return nil
}

func (s *memStore) add(t *testing.T, at time.Time, amount, quantity int64) *models.Snapshot {
	t.Helper()
	snapshot, err := s.Append(context.Background(), amount, quantity, at)
	require.NoError(t, err)
	return snapshot
}

// staticGoals is a map-backed GoalProvider
type staticGoals map[string]*models.DailyGoal

func (g staticGoals) GoalForDate(ctx context.Context, date time.Time) (*models.DailyGoal, error) {
	return g[models.DateKey(date)], nil
}

func shanghai(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Shanghai")
	require.NoError(t, err)
	return loc
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
