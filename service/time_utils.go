package service

import (
	"time"
)

// BaselineCutoffHour is the local hour on the previous day from which the
// daily baseline is taken
const BaselineCutoffHour = 23

// LocalDate returns local midnight of the calendar day containing t
func LocalDate(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// BaselineCutoff returns the absolute instant of yesterday at BaselineCutoffHour local time
func BaselineCutoff(today time.Time, loc *time.Location) time.Time {
	return time.Date(today.Year(), today.Month(), today.Day()-1, BaselineCutoffHour, 0, 0, 0, loc)
}

// NextDailyRun returns the next instant at hour:minute local time strictly after now
func NextDailyRun(now time.Time, hour, minute int, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)

	// If the run time has already passed today, schedule for tomorrow
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, hour, minute, 0, 0, loc)
	}

	return next
}
