package testutil

import (
	"time"

	"fundtracker/models"
)

// CreateTestSnapshot builds an unsaved snapshot taken at scrapedAt
func CreateTestSnapshot(scrapedAt time.Time, totalAmount, totalQuantity int64) *models.Snapshot {
	return &models.Snapshot{
		ScrapedAt:     scrapedAt.UTC(),
		TotalAmount:   totalAmount,
		TotalQuantity: totalQuantity,
	}
}

// CreateTestGoal creates a goal with default targets for a date
func CreateTestGoal(date time.Time) *models.DailyGoal {
	return &models.DailyGoal{
		Date:              date,
		GoalDailyAmount:   1_000_000,
		GoalDailyQuantity: 30,
		GoalTotalAmount:   20_000_000,
		GoalTotalQuantity: 2000,
	}
}

// CreateTestGoalWithTargets creates a goal with specific daily targets
func CreateTestGoalWithTargets(date time.Time, dailyAmount, dailyQuantity int64) *models.DailyGoal {
	goal := CreateTestGoal(date)
	goal.GoalDailyAmount = dailyAmount
	goal.GoalDailyQuantity = dailyQuantity
	return goal
}

// CreateTestRollup creates a rollup whose diffs are consistent with its inputs
func CreateTestRollup(date time.Time, baselineAmount, endAmount int64) *models.DailyRollup {
	rollup := &models.DailyRollup{
		Date:              date,
		BaselineAmount:    baselineAmount,
		BaselineQuantity:  100,
		EndAmount:         endAmount,
		EndQuantity:       110,
		GoalDailyAmount:   1_000_000,
		GoalDailyQuantity: 30,
		GoalTotalAmount:   20_000_000,
		GoalTotalQuantity: 2000,
		UpdatedAt:         time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	rollup.DiffDailyAmount = rollup.GoalDailyAmount - rollup.DailyAmount()
	rollup.DiffDailyQuantity = rollup.GoalDailyQuantity - rollup.DailyQuantity()
	rollup.DiffTotalAmount = rollup.GoalTotalAmount - rollup.EndAmount
	rollup.DiffTotalQuantity = rollup.GoalTotalQuantity - rollup.EndQuantity
	return rollup
}
