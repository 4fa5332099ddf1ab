package service

import (
	"errors"

	"fundtracker/models"
)

var (
	// ErrSourceUnavailable is returned when the snapshot source exhausted its retries
	ErrSourceUnavailable = errors.New("snapshot source unavailable")

	// ErrPersistence is returned when a computed rollup could not be written
	ErrPersistence = errors.New("failed to persist daily rollup")
)

// IsNoData reports whether a ComputeTodayMetrics outcome is the NoData variant:
// not enough snapshot history to establish a baseline and a current reading.
func IsNoData(result *models.MetricsResult, err error) bool {
	return result == nil && err == nil
}
