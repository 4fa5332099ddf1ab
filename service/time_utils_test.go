package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLocalDate(t *testing.T) {
	loc := shanghai(t)

	// 16:30 UTC on the 4th is 00:30 on the 5th in Shanghai
	got := LocalDate(time.Date(2025, 3, 4, 16, 30, 0, 0, time.UTC), loc)
	assert.Equal(t, time.Date(2025, 3, 5, 0, 0, 0, 0, loc), got)

	got = LocalDate(time.Date(2025, 3, 4, 15, 59, 59, 0, time.UTC), loc)
	assert.Equal(t, time.Date(2025, 3, 4, 0, 0, 0, 0, loc), got)
}

func TestBaselineCutoff(t *testing.T) {
	loc := shanghai(t)

	tests := []struct {
		name     string
		today    time.Time
		expected time.Time
	}{
		{
			name:     "mid month",
			today:    time.Date(2025, 3, 5, 0, 0, 0, 0, loc),
			expected: time.Date(2025, 3, 4, 23, 0, 0, 0, loc),
		},
		{
			name:     "first of month",
			today:    time.Date(2025, 3, 1, 0, 0, 0, 0, loc),
			expected: time.Date(2025, 2, 28, 23, 0, 0, 0, loc),
		},
		{
			name:     "new year",
			today:    time.Date(2026, 1, 1, 0, 0, 0, 0, loc),
			expected: time.Date(2025, 12, 31, 23, 0, 0, 0, loc),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BaselineCutoff(tt.today, loc)
			assert.True(t, tt.expected.Equal(got), "expected %v, got %v", tt.expected, got)
			assert.Equal(t, time.Hour, tt.today.Sub(got))
		})
	}
}

func TestNextDailyRun(t *testing.T) {
	loc := shanghai(t)

	tests := []struct {
		name     string
		now      time.Time
		expected time.Time
	}{
		{
			name:     "earlier the same day",
			now:      time.Date(2025, 3, 5, 10, 0, 0, 0, loc),
			expected: time.Date(2025, 3, 5, 23, 15, 0, 0, loc),
		},
		{
			name:     "exactly at run time rolls to tomorrow",
			now:      time.Date(2025, 3, 5, 23, 15, 0, 0, loc),
			expected: time.Date(2025, 3, 6, 23, 15, 0, 0, loc),
		},
		{
			name:     "after run time",
			now:      time.Date(2025, 3, 5, 23, 40, 0, 0, loc),
			expected: time.Date(2025, 3, 6, 23, 15, 0, 0, loc),
		},
		{
			name:     "now given in UTC",
			now:      time.Date(2025, 3, 5, 16, 0, 0, 0, time.UTC),
			expected: time.Date(2025, 3, 6, 23, 15, 0, 0, loc),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextDailyRun(tt.now, 23, 15, loc)
			assert.True(t, tt.expected.Equal(got), "expected %v, got %v", tt.expected, got)
		})
	}
}
