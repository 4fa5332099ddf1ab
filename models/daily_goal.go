package models

import (
	"time"
)

// DailyGoal holds the targets for a single local calendar date
type DailyGoal struct {
	Date              time.Time `db:"date"`
	GoalDailyAmount   int64     `db:"goal_daily_amount"`
	GoalDailyQuantity int64     `db:"goal_daily_quantity"`
	GoalTotalAmount   int64     `db:"goal_total_amount"`
	GoalTotalQuantity int64     `db:"goal_total_quantity"`
}
