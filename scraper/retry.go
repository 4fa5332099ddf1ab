package scraper

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"
)

// RetryPolicy bounds how often and how fast a fetch is retried
type RetryPolicy struct {
	// MaxAttempts is the total number of tries, including the first
	MaxAttempts int

	// InitialInterval is the wait before the first retry; 0 retries immediately
	InitialInterval time.Duration

	// MaxInterval caps the exponential growth of the wait
	MaxInterval time.Duration
}

// DefaultRetryPolicy tries three times with no pause in between
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3}
}

// Do runs op until it succeeds, returns a permanent error, the attempts run
// out or ctx is done. The last error is returned.
func (p RetryPolicy) Do(ctx context.Context, op func() error) error {
	attempt := 0
	operation := func() error {
		attempt++
		return op()
	}

	notify := func(err error, wait time.Duration) {
		log.WithFields(log.Fields{
			"attempt": attempt,
			"wait":    wait,
			"error":   err,
		}).Warn("Fetch attempt failed, retrying")
	}

	return backoff.RetryNotify(operation, p.backOff(ctx), notify)
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	var b backoff.BackOff = &backoff.ZeroBackOff{}
	if p.InitialInterval > 0 {
		exp := backoff.NewExponentialBackOff()
		exp.InitialInterval = p.InitialInterval
		if p.MaxInterval > 0 {
			exp.MaxInterval = p.MaxInterval
		}
		exp.MaxElapsedTime = 0
		b = exp
	}

	retries := p.MaxAttempts - 1
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)
}
