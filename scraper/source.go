package scraper

import (
	"context"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"
)

// HTTPSource reads the campaign counters from the hero widget page
type HTTPSource struct {
	url     string
	fetcher *Fetcher
	retry   RetryPolicy
}

// NewHTTPSource creates a source for url
func NewHTTPSource(url string, fetcher *Fetcher, retry RetryPolicy) *HTTPSource {
	return &HTTPSource{url: url, fetcher: fetcher, retry: retry}
}

// Fetch downloads and parses the page. Download failures are retried per the
// policy; a page that downloads but does not parse is not.
func (s *HTTPSource) Fetch(ctx context.Context) (int64, int64, error) {
	var amount, quantity int64

	err := s.retry.Do(ctx, func() error {
		page, err := s.fetcher.FetchPage(ctx, s.url)
		if err != nil {
			return err
		}

		amount, quantity, err = ParseMetrics(page)
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to fetch metrics from %s: %w", s.url, err)
	}

	log.WithFields(log.Fields{
		"totalAmount":   amount,
		"totalQuantity": quantity,
	}).Debug("Fetched campaign counters")

	return amount, quantity, nil
}
