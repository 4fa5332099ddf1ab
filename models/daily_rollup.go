package models

import (
	"time"
)

// DailyRollup is the persisted per-date summary, one row per local date.
// DiffDaily* = GoalDaily* - (End* - Baseline*), DiffTotal* = GoalTotal* - End*.
type DailyRollup struct {
	Date time.Time `db:"date"`

	BaselineAmount   int64 `db:"baseline_amount"`
	BaselineQuantity int64 `db:"baseline_quantity"`
	EndAmount        int64 `db:"end_amount"`
	EndQuantity      int64 `db:"end_quantity"`

	GoalDailyAmount   int64 `db:"goal_daily_amount"`
	GoalDailyQuantity int64 `db:"goal_daily_quantity"`
	GoalTotalAmount   int64 `db:"goal_total_amount"`
	GoalTotalQuantity int64 `db:"goal_total_quantity"`

	DiffDailyAmount   int64 `db:"diff_daily_amount"`
	DiffDailyQuantity int64 `db:"diff_daily_quantity"`
	DiffTotalAmount   int64 `db:"diff_total_amount"`
	DiffTotalQuantity int64 `db:"diff_total_quantity"`

	UpdatedAt time.Time `db:"updated_at"`
}

// DailyAmount returns the amount raised between baseline and end
func (r *DailyRollup) DailyAmount() int64 {
	return r.EndAmount - r.BaselineAmount
}

// DailyQuantity returns the backers gained between baseline and end
func (r *DailyRollup) DailyQuantity() int64 {
	return r.EndQuantity - r.BaselineQuantity
}
