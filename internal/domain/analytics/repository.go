// Package analytics defines the interfaces for accessing the local event ledger.
package analytics

import (
	"context"
	"time"
)

// Event is one tracked event as recorded in the ledger.
type Event struct {
	ID        string
	VisitorID string
	Name      string
	PixelName string
	Country   string
	City      string
	Device    string
	ItemName  string
	Params    map[string]any
	CreatedAt time.Time
}

// EventRepository defines the contract for storing and retrieving ledger events.
type EventRepository interface {
	// Store saves an event to the persistence layer.
	Store(ctx context.Context, event *Event) error

	// FindInRange retrieves all events with start <= created_at < end, oldest first.
	FindInRange(ctx context.Context, start, end time.Time) ([]*Event, error)
}
