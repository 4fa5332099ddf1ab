package models

import (
	"time"
)

// Snapshot is one observation of the campaign's cumulative counters
type Snapshot struct {
	ID            int64     `db:"id"`
	ScrapedAt     time.Time `db:"scraped_at"` // always UTC
	TotalAmount   int64     `db:"total_amount"`
	TotalQuantity int64     `db:"total_quantity"`
	CreatedAt     time.Time `db:"created_at"`
}
