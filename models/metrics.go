package models

import (
	"time"
)

// MetricsResult is the computed "today" view. It is never persisted as such;
// the DailyRollup carries its durable subset.
type MetricsResult struct {
	Date  time.Time // local calendar date at midnight
	NowAt time.Time // local time of the latest snapshot used

	// Actuals
	DailyAmount   int64
	DailyQuantity int64
	TotalAmount   int64
	TotalQuantity int64

	// Goals (zero when no goal is defined for the date)
	GoalDailyAmount   int64
	GoalDailyQuantity int64
	GoalTotalAmount   int64
	GoalTotalQuantity int64

	// Gap = goal - actual. Positive means shortfall.
	GapDailyAmount   int64
	GapDailyQuantity int64
	GapTotalAmount   int64
	GapTotalQuantity int64

	// Percent of goal, 0 when the goal is 0
	PctDailyAmount   float64
	PctDailyQuantity float64
	PctTotalAmount   float64
	PctTotalQuantity float64

	Baseline *Snapshot
	Latest   *Snapshot
}

// Rollup derives the persisted row for this result
func (m *MetricsResult) Rollup(updatedAt time.Time) *DailyRollup {
	return &DailyRollup{
		Date:              m.Date,
		BaselineAmount:    m.Baseline.TotalAmount,
		BaselineQuantity:  m.Baseline.TotalQuantity,
		EndAmount:         m.Latest.TotalAmount,
		EndQuantity:       m.Latest.TotalQuantity,
		GoalDailyAmount:   m.GoalDailyAmount,
		GoalDailyQuantity: m.GoalDailyQuantity,
		GoalTotalAmount:   m.GoalTotalAmount,
		GoalTotalQuantity: m.GoalTotalQuantity,
		DiffDailyAmount:   m.GapDailyAmount,
		DiffDailyQuantity: m.GapDailyQuantity,
		DiffTotalAmount:   m.GapTotalAmount,
		DiffTotalQuantity: m.GapTotalQuantity,
		UpdatedAt:         updatedAt,
	}
}

// DateKey formats a local date as the YYYY-MM-DD key used by the rollup table
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}
