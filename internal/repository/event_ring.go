package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"enclosure-monitor/internal/models"
)

// DefaultJournalCapacity holds enough recent history for an ops screen
// without growing into the storage layer this daemon deliberately lacks.
const DefaultJournalCapacity = 512

// EventRing is a fixed-capacity journal. Once full, the oldest entry is
// overwritten. Appends come from the control loop, reads from HTTP handlers;
// both paths are safe concurrently.
type EventRing struct {
	mu   sync.RWMutex
	buf  []models.Event
	next int // write position
	size int // valid entries
}

// NewEventRing allocates a ring of the given capacity; capacity <= 0 selects
// DefaultJournalCapacity.
func NewEventRing(capacity int) *EventRing {
	if capacity <= 0 {
		capacity = DefaultJournalCapacity
	}
	return &EventRing{buf: make([]models.Event, capacity)}
}

// Append stores an event. If EventID or OccurredAt are empty, they're set.
func (r *EventRing) Append(_ context.Context, e models.Event) error {
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	} else {
		e.OccurredAt = e.OccurredAt.UTC()
	}
	e.Type = strings.ToUpper(strings.TrimSpace(e.Type))

	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf[r.next] = e
	r.next = (r.next + 1) % len(r.buf)
	if r.size < len(r.buf) {
		r.size++
	}
	return nil
}

// List returns events filtered by [from, to] (inclusive) and/or type,
// oldest first. Zero bounds mean unbounded.
func (r *EventRing) List(_ context.Context, from, to time.Time, typ string) ([]models.Event, error) {
	typ = strings.ToUpper(strings.TrimSpace(typ))
	if !from.IsZero() {
		from = from.UTC()
	}
	if !to.IsZero() {
		to = to.UTC()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Event, 0, r.size)
	start := r.next - r.size
	for i := 0; i < r.size; i++ {
		ev := r.buf[(start+i+len(r.buf))%len(r.buf)]
		if !from.IsZero() && ev.OccurredAt.Before(from) {
			continue
		}
		if !to.IsZero() && ev.OccurredAt.After(to) {
			continue
		}
		if typ != "" && ev.Type != typ {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}
