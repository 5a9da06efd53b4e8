package service

import (
	"sync"

	"enclosure-monitor/internal/models"
)

// StateStore holds the latest snapshot. The control loop is the only
// writer; HTTP handlers, the websocket pusher and the gateway read it
// concurrently.
type StateStore struct {
	mu   sync.RWMutex
	snap models.Snapshot
}

func NewStateStore() *StateStore {
	return &StateStore{}
}

// Set replaces the snapshot. The reading is copied so later loop-side
// updates cannot leak into readers.
func (s *StateStore) Set(snap models.Snapshot) {
	if snap.Reading != nil {
		r := *snap.Reading
		snap.Reading = &r
	}
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
}

// Get returns a copy of the latest snapshot.
func (s *StateStore) Get() models.Snapshot {
	s.mu.RLock()
	snap := s.snap
	s.mu.RUnlock()
	if snap.Reading != nil {
		r := *snap.Reading
		snap.Reading = &r
	}
	return snap
}
