package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"enclosure-monitor/internal/models"
)

func ctx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	t.Cleanup(cancel)
	return c
}

func TestAppend_FillsDefaults(t *testing.T) {
	ring := NewEventRing(8)

	before := time.Now().UTC()
	if err := ring.Append(ctx(t), models.Event{Type: " transition ", Description: "fan on"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, err := ring.List(ctx(t), time.Time{}, time.Time{}, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
	ev := got[0]
	if ev.EventID == "" {
		t.Fatalf("expected generated event id")
	}
	if ev.OccurredAt.Before(before) || ev.OccurredAt.Location() != time.UTC {
		t.Fatalf("expected UTC timestamp set on append, got %v", ev.OccurredAt)
	}
	if ev.Type != models.EventTransition {
		t.Fatalf("expected normalized type %q, got %q", models.EventTransition, ev.Type)
	}
}

func TestAppend_KeepsProvidedValues(t *testing.T) {
	ring := NewEventRing(8)

	loc := time.FixedZone("UTC+3", 3*3600)
	at := time.Date(2025, 6, 1, 15, 0, 0, 0, loc)
	e := models.Event{EventID: "fixed-id", OccurredAt: at, Type: "BUS", Description: "connected"}
	if err := ring.Append(ctx(t), e); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, _ := ring.List(ctx(t), time.Time{}, time.Time{}, "")
	if got[0].EventID != "fixed-id" {
		t.Fatalf("event id overwritten: %q", got[0].EventID)
	}
	want := at.UTC()
	if !got[0].OccurredAt.Equal(want) || got[0].OccurredAt.Location() != time.UTC {
		t.Fatalf("expected %v normalized to UTC, got %v", want, got[0].OccurredAt)
	}
}

func TestList_FiltersByWindowAndType(t *testing.T) {
	ring := NewEventRing(16)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		typ := models.EventTransition
		if i%2 == 1 {
			typ = models.EventCommand
		}
		err := ring.Append(ctx(t), models.Event{
			OccurredAt:  base.Add(time.Duration(i) * time.Minute),
			Type:        typ,
			Description: fmt.Sprintf("event %d", i),
		})
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	t.Run("window is inclusive", func(t *testing.T) {
		got, err := ring.List(ctx(t), base.Add(time.Minute), base.Add(3*time.Minute), "")
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("expected 3 events in window, got %d", len(got))
		}
		if got[0].Description != "event 1" || got[2].Description != "event 3" {
			t.Fatalf("unexpected window contents: %v .. %v", got[0].Description, got[2].Description)
		}
	})

	t.Run("type filter normalizes case", func(t *testing.T) {
		got, err := ring.List(ctx(t), time.Time{}, time.Time{}, "command")
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 COMMAND events, got %d", len(got))
		}
	})

	t.Run("oldest first", func(t *testing.T) {
		got, _ := ring.List(ctx(t), time.Time{}, time.Time{}, "")
		for i := 1; i < len(got); i++ {
			if got[i].OccurredAt.Before(got[i-1].OccurredAt) {
				t.Fatalf("events out of order at %d", i)
			}
		}
	})
}

func TestRing_OverwritesOldestAtCapacity(t *testing.T) {
	ring := NewEventRing(4)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 10; i++ {
		err := ring.Append(ctx(t), models.Event{
			OccurredAt:  base.Add(time.Duration(i) * time.Second),
			Type:        models.EventTransition,
			Description: fmt.Sprintf("event %d", i),
		})
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	got, err := ring.List(ctx(t), time.Time{}, time.Time{}, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("expected capacity-bounded 4 events, got %d", len(got))
	}
	if got[0].Description != "event 6" || got[3].Description != "event 9" {
		t.Fatalf("expected the most recent 4 oldest-first, got %q .. %q", got[0].Description, got[3].Description)
	}
}

func TestNewEventRing_DefaultCapacity(t *testing.T) {
	ring := NewEventRing(0)
	if len(ring.buf) != DefaultJournalCapacity {
		t.Fatalf("expected default capacity %d, got %d", DefaultJournalCapacity, len(ring.buf))
	}
}
