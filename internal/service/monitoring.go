package service

import (
	"context"
	"time"

	"enclosure-monitor/internal/models"
)

type MonitoringService struct {
	state *StateStore
}

func NewMonitoringService(state *StateStore) *MonitoringService {
	return &MonitoringService{state: state}
}

// GetState returns the latest control-loop snapshot.
// Before the loop's first pass it returns a baseline OFF/AUTO snapshot.
func (s *MonitoringService) GetState(ctx context.Context) (models.Snapshot, error) {
	snap := s.state.Get()
	if snap.UpdatedAt.IsZero() {
		return s.baselineSnapshot(), nil
	}
	snap.UpdatedAt = toUTC(snap.UpdatedAt)
	return snap, nil
}

// baselineSnapshot is what clients see between process start and the first
// control tick: fan off, auto mode, no reading yet.
func (s *MonitoringService) baselineSnapshot() models.Snapshot {
	now := time.Now().UTC()
	return models.Snapshot{
		Fan:       models.FanState{Power: false, Mode: models.ModeAuto, Since: now},
		Reading:   nil,
		Online:    false,
		UpdatedAt: now,
	}
}

// toUTC normalizes non-zero time to UTC, preserving zero values.
func toUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}
