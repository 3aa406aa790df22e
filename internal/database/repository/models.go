package repository

import "time"

// Batch represents a processed batch row.
type Batch struct {
	ID        string
	Records   int
	Discarded int
	Errors    int
	CreatedAt time.Time
}

// RecordFilter narrows a batch record listing.
type RecordFilter struct {
	Status string
}
