package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"enclosure-monitor/internal/models"
	"enclosure-monitor/internal/repository"
)

// LogFilter narrows a journal query. Zero times mean unbounded, an empty
// Type matches every entry.
type LogFilter struct {
	From time.Time // inclusive
	To   time.Time // inclusive
	Type string    // TRANSITION | COMMAND | SENSOR_ERROR | BUS
}

var errInvalidTimeRange = errors.New("invalid time range: From must be <= To")

// EventLogService answers journal queries from the repository ring.
type EventLogService struct {
	events repository.EventRepo
}

func NewEventLogService(events repository.EventRepo) *EventLogService {
	return &EventLogService{events: events}
}

// List returns matching journal entries, oldest first. Bounds are
// normalized to UTC and the type filter to upper case before they reach
// the repository, so callers in any timezone read the same window.
func (s *EventLogService) List(ctx context.Context, f LogFilter) ([]models.Event, error) {
	from, to := toUTC(f.From), toUTC(f.To)
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return nil, errInvalidTimeRange
	}
	typ := strings.ToUpper(strings.TrimSpace(f.Type))
	return s.events.List(ctx, from, to, typ)
}
