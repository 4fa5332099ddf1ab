package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fundtracker/database"
	"fundtracker/events"
	"fundtracker/models"

	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"
)

// GoalRepository reads and writes the daily_goals table
type GoalRepository struct {
	db       *database.DB
	q        queryable
	eventBus *events.Bus
}

// NewGoalRepository creates a new goal repository. eventBus may be nil.
func NewGoalRepository(db *database.DB, eventBus *events.Bus) *GoalRepository {
	return &GoalRepository{db: db, q: db.Pool, eventBus: eventBus}
}

// GoalForDate returns the goal for a local calendar date, or nil if none is defined
func (r *GoalRepository) GoalForDate(ctx context.Context, date time.Time) (*models.DailyGoal, error) {
	query := `
		SELECT date, goal_daily_amount, goal_daily_quantity, goal_total_amount, goal_total_quantity
		FROM daily_goals
		WHERE date = $1::date
	`

	var goal models.DailyGoal
	var day time.Time
	err := r.q.QueryRow(ctx, query, models.DateKey(date)).Scan(
		&day,
		&goal.GoalDailyAmount,
		&goal.GoalDailyQuantity,
		&goal.GoalTotalAmount,
		&goal.GoalTotalQuantity,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get goal for %s: %w", models.DateKey(date), err)
	}

	goal.Date = calendarDate(day, date.Location())
	return &goal, nil
}

// UpsertGoals writes a goal schedule atomically. Existing dates are overwritten.
// A GoalsImportedEvent is published only after the transaction commits.
func (r *GoalRepository) UpsertGoals(ctx context.Context, goals []*models.DailyGoal) error {
	if len(goals) == 0 {
		return nil
	}

	query := `
		INSERT INTO daily_goals (date, goal_daily_amount, goal_daily_quantity, goal_total_amount, goal_total_quantity, updated_at)
		VALUES ($1::date, $2, $3, $4, $5, NOW())
		ON CONFLICT (date) DO UPDATE SET
			goal_daily_amount = EXCLUDED.goal_daily_amount,
			goal_daily_quantity = EXCLUDED.goal_daily_quantity,
			goal_total_amount = EXCLUDED.goal_total_amount,
			goal_total_quantity = EXCLUDED.goal_total_quantity,
			updated_at = NOW()
	`

	var bus *events.TransactionalBus
	if r.eventBus != nil {
		bus = events.NewTransactionalBus(r.eventBus)
	}

	from, to := goals[0].Date, goals[0].Date
	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		for _, goal := range goals {
			if _, err := tx.Exec(ctx, query,
				models.DateKey(goal.Date),
				goal.GoalDailyAmount,
				goal.GoalDailyQuantity,
				goal.GoalTotalAmount,
				goal.GoalTotalQuantity,
			); err != nil {
				return fmt.Errorf("failed to upsert goal for %s: %w", models.DateKey(goal.Date), err)
			}

			if goal.Date.Before(from) {
				from = goal.Date
			}
			if goal.Date.After(to) {
				to = goal.Date
			}
		}

		if bus != nil {
			bus.Publish(events.GoalsImportedEvent{Count: len(goals), From: from, To: to})
		}
		return nil
	})
	if err != nil {
		if bus != nil {
			bus.Discard()
		}
		return err
	}

	if bus != nil {
		bus.Flush()
	}

	log.WithFields(log.Fields{
		"count": len(goals),
		"from":  models.DateKey(from),
		"to":    models.DateKey(to),
	}).Info("Imported goal schedule")

	return nil
}
