package jobs

import (
	"context"
	"errors"
	"time"

	"fundtracker/service"

	log "github.com/sirupsen/logrus"
)

// StartHourlyWorker runs RunHourly now and then every interval.
// Returns a cleanup function to stop the worker gracefully.
func (r *Runner) StartHourlyWorker(ctx context.Context, interval time.Duration) func() {
	ticker := time.NewTicker(interval)
	stopChan := make(chan struct{})

	run := func() {
		if _, err := r.RunHourly(ctx); err != nil && !errors.Is(err, ErrLocked) {
			log.WithError(err).Error("Hourly job failed")
		}
	}

	go func() {
		log.WithField("interval", interval).Info("Hourly scrape worker started")

		// Run immediately on startup
		run()

		for {
			select {
			case <-ctx.Done():
				log.Info("Hourly scrape worker shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("Hourly scrape worker shutting down (stop requested)...")
				return
			case <-ticker.C:
				run()
			}
		}
	}()

	return func() {
		ticker.Stop()
		close(stopChan)
	}
}

// StartDailyFinalizeWorker runs ComputeDaily once a day at hour:minute local time.
// Returns a cleanup function to stop the worker gracefully.
func (r *Runner) StartDailyFinalizeWorker(ctx context.Context, hour, minute int, loc *time.Location) func() {
	stopChan := make(chan struct{})

	go func() {
		log.WithFields(log.Fields{
			"hour":     hour,
			"minute":   minute,
			"timezone": loc.String(),
		}).Info("Daily finalize worker started")

		for {
			next := service.NextDailyRun(r.clock(), hour, minute, loc)
			timer := time.NewTimer(time.Until(next))
			log.WithField("nextRun", next.Format(time.RFC3339)).Debug("Scheduled daily finalization")

			select {
			case <-ctx.Done():
				timer.Stop()
				log.Info("Daily finalize worker shutting down (context cancelled)...")
				return
			case <-stopChan:
				timer.Stop()
				log.Info("Daily finalize worker shutting down (stop requested)...")
				return
			case <-timer.C:
				if _, err := r.ComputeDaily(ctx); err != nil && !errors.Is(err, ErrLocked) {
					log.WithError(err).Error("Daily finalize job failed")
				}
			}
		}
	}()

	return func() {
		close(stopChan)
	}
}
