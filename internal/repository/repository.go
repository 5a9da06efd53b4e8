package repository

import (
	"context"
	"time"

	"enclosure-monitor/internal/models"
)

// EventRepo records and queries journal entries.
type EventRepo interface {
	Append(ctx context.Context, e models.Event) error
	List(ctx context.Context, from, to time.Time, typ string) ([]models.Event, error)
}

// Repository groups the storage-facing dependencies. The journal is a
// bounded in-memory ring: the daemon keeps no history beyond it, and fan
// state is recomputed from sensors and commands rather than stored.
type Repository struct {
	Events EventRepo
}

// NewRepository builds the repository with a journal of the given capacity;
// capacity <= 0 selects the default.
func NewRepository(journalCapacity int) *Repository {
	return &Repository{
		Events: NewEventRing(journalCapacity),
	}
}
