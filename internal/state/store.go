package state

import (
	"sync"
	"time"

	"github.com/five82/smashtrack/internal/analysis"
)

// Snapshot is a point-in-time copy of the current report.
type Snapshot struct {
	Report    analysis.Report
	HasReport bool
	MediaID   string
	Version   uint64 // incremented on every Set
	UpdatedAt time.Time
}

// Store holds the single current report. Writes replace the whole value
// under the lock, so readers never see a partially written report. The zero
// value is ready to use.
type Store struct {
	mu        sync.RWMutex
	snapshot  Snapshot
	listeners map[int]func(Snapshot)
	nextID    int
}

// Set publishes report as current, superseding the previous one.
func (s *Store) Set(report analysis.Report, mediaID string) {
	s.mu.Lock()
	s.snapshot = Snapshot{
		Report:    report.Canonical(),
		HasReport: true,
		MediaID:   mediaID,
		Version:   s.snapshot.Version + 1,
		UpdatedAt: time.Now(),
	}
	snap := s.copyLocked()
	listeners := make([]func(Snapshot), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(snap.clone())
	}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyLocked()
}

// Report returns the current report, or the zero report before any Set.
func (s *Store) Report() analysis.Report {
	return s.Snapshot().Report
}

// Subscribe registers fn to receive a copy after every Set. The returned
// function removes the subscription.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	if fn == nil {
		return func() {}
	}
	s.mu.Lock()
	if s.listeners == nil {
		s.listeners = make(map[int]func(Snapshot))
	}
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Store) copyLocked() Snapshot {
	if !s.snapshot.HasReport {
		snap := s.snapshot
		snap.Report = analysis.Zero()
		return snap
	}
	return s.snapshot.clone()
}

func (s Snapshot) clone() Snapshot {
	s.Report = s.Report.Clone()
	return s
}
