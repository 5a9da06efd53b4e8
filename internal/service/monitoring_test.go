package service

import (
	"context"
	"testing"
	"time"

	"enclosure-monitor/internal/models"
)

func TestMonitoringService_GetState(t *testing.T) {
	t.Parallel()

	type testCase struct {
		name       string
		stored     *models.Snapshot // nil: leave the store untouched
		assertFunc func(t *testing.T, got models.Snapshot, err error)
	}

	now := time.Now()

	cases := []testCase{
		{
			name:   "returns baseline before the first loop pass",
			stored: nil,
			assertFunc: func(t *testing.T, got models.Snapshot, err error) {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if got.Fan.Power {
					t.Errorf("baseline Power: want false, got true")
				}
				if got.Fan.Mode != models.ModeAuto {
					t.Errorf("baseline Mode: want %q, got %q", models.ModeAuto, got.Fan.Mode)
				}
				if got.Reading != nil {
					t.Errorf("baseline Reading: want nil, got %+v", got.Reading)
				}
				if got.Online {
					t.Errorf("baseline Online: want false, got true")
				}
				if got.UpdatedAt.IsZero() {
					t.Fatalf("baseline UpdatedAt must be set, got zero")
				}
				if got.UpdatedAt.Location() != time.UTC {
					t.Errorf("baseline UpdatedAt must be UTC, got %v", got.UpdatedAt.Location())
				}
				assertWithin(t, got.UpdatedAt, time.Since(now)+200*time.Millisecond)
			},
		},
		{
			name: "normalizes non-zero UpdatedAt to UTC for stored snapshot",
			stored: &models.Snapshot{
				Fan:       models.FanState{Power: true, Mode: models.ModeManual, Since: time.Date(2025, 1, 2, 3, 0, 0, 0, time.UTC)},
				Reading:   &models.Reading{Temperature: 31.5, Humidity: 44, TakenAt: time.Date(2025, 1, 2, 3, 4, 0, 0, time.UTC)},
				Online:    true,
				UpdatedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.FixedZone("X", -3*3600)), // UTC-3
			},
			assertFunc: func(t *testing.T, got models.Snapshot, err error) {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if !got.Fan.Power || got.Fan.Mode != models.ModeManual {
					t.Errorf("unexpected fan state: %+v", got.Fan)
				}
				if got.Reading == nil || got.Reading.Temperature != 31.5 {
					t.Errorf("unexpected reading: %+v", got.Reading)
				}
				if !got.Online {
					t.Errorf("Online: want true, got false")
				}
				if got.UpdatedAt.Location() != time.UTC {
					t.Errorf("UpdatedAt must be UTC, got %v", got.UpdatedAt.Location())
				}
				wantUTC := time.Date(2025, 1, 2, 6, 4, 5, 0, time.UTC) // 03:04:05 -03:00 => 06:04:05 UTC
				if !got.UpdatedAt.Equal(wantUTC) {
					t.Errorf("UpdatedAt: want %v, got %v", wantUTC, got.UpdatedAt)
				}
			},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()

			store := NewStateStore()
			if tc.stored != nil {
				store.Set(*tc.stored)
			}

			svc := NewMonitoringService(store)

			got, err := svc.GetState(ctx)
			tc.assertFunc(t, got, err)
		})
	}
}

func TestStateStore_CopiesReading(t *testing.T) {
	t.Parallel()

	store := NewStateStore()
	r := &models.Reading{Temperature: 20, Humidity: 50, TakenAt: time.Now().UTC()}
	store.Set(models.Snapshot{Reading: r, UpdatedAt: time.Now().UTC()})

	// mutating the original after Set must not leak into the store
	r.Temperature = 99
	if got := store.Get(); got.Reading.Temperature != 20 {
		t.Fatalf("Set must copy the reading; got %.2f", got.Reading.Temperature)
	}

	// mutating a Get result must not leak back either
	out := store.Get()
	out.Reading.Temperature = 77
	if got := store.Get(); got.Reading.Temperature != 20 {
		t.Fatalf("Get must copy the reading; got %.2f", got.Reading.Temperature)
	}
}

func TestToUTC(t *testing.T) {
	t.Parallel()

	t.Run("zero time is preserved", func(t *testing.T) {
		t.Parallel()
		var z time.Time
		if got := toUTC(z); !got.IsZero() {
			t.Fatalf("expected zero time, got %v", got)
		}
	})

	t.Run("non-zero converted to UTC", func(t *testing.T) {
		t.Parallel()
		local := time.Date(2025, 2, 3, 10, 0, 0, 0, time.FixedZone("Z+2", 2*3600))
		got := toUTC(local)
		want := time.Date(2025, 2, 3, 8, 0, 0, 0, time.UTC)
		if got.Location() != time.UTC {
			t.Fatalf("expected UTC location, got %v", got.Location())
		}
		if !got.Equal(want) {
			t.Fatalf("want %v, got %v", want, got)
		}
	})
}

// assertWithin checks that got is within dur of now.
func assertWithin(t *testing.T, got time.Time, dur time.Duration) {
	t.Helper()
	if got.IsZero() {
		t.Fatalf("time is zero")
	}
	diff := time.Since(got)
	if diff < 0 {
		diff = -diff
	}
	if diff > dur {
		t.Fatalf("time %v not within %v of now; diff=%v", got, dur, diff)
	}
}
