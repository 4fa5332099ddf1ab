package service

import (
	"context"
	"fmt"
	"time"

	"fundtracker/events"
	"fundtracker/models"

	log "github.com/sirupsen/logrus"
)

// ingestService implements the IngestService interface
type ingestService struct {
	source         SnapshotSource
	store          SnapshotStore
	eventPublisher EventPublisher
	clock          func() time.Time
}

// NewIngestService creates a new ingest service. A nil clock defaults to time.Now.
func NewIngestService(source SnapshotSource, store SnapshotStore, eventPublisher EventPublisher, clock func() time.Time) IngestService {
	if clock == nil {
		clock = time.Now
	}
	return &ingestService{
		source:         source,
		store:          store,
		eventPublisher: eventPublisher,
		clock:          clock,
	}
}

// IngestSnapshot fetches one reading from the source and appends it to the store.
// Retrying is the source's job; a source failure here is final for this call.
func (s *ingestService) IngestSnapshot(ctx context.Context) (*models.Snapshot, error) {
	amount, quantity, err := s.source.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	scrapedAt := s.clock().UTC()
	snapshot, err := s.store.Append(ctx, amount, quantity, scrapedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to store snapshot: %w", err)
	}

	if s.eventPublisher != nil {
		s.eventPublisher.Publish(events.SnapshotIngestedEvent{
			SnapshotID:    snapshot.ID,
			ScrapedAt:     snapshot.ScrapedAt,
			TotalAmount:   snapshot.TotalAmount,
			TotalQuantity: snapshot.TotalQuantity,
		})
	}

	log.WithFields(log.Fields{
		"snapshotID":    snapshot.ID,
		"totalAmount":   snapshot.TotalAmount,
		"totalQuantity": snapshot.TotalQuantity,
	}).Info("Ingested snapshot")

	return snapshot, nil
}
