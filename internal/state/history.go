package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/five82/smashtrack/internal/history"
)

// HistorySnapshot is the latest history page seen by the poller.
type HistorySnapshot struct {
	Page                history.Page
	Stats               history.Stats
	HasPage             bool
	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int // Number of consecutive poll failures
}

// IsOffline returns true when the backend has been unreachable for multiple polls.
func (s HistorySnapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// HistoryStore coordinates poller writes with UI reads.
type HistoryStore struct {
	mu       sync.RWMutex
	snapshot HistorySnapshot
}

// Update replaces the stored page. When err is non-nil the previous page is
// kept but the error is recorded for visibility.
func (s *HistoryStore) Update(page *history.Page, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.snapshot.LastError = err
		s.snapshot.LastUpdated = time.Now()
		s.snapshot.ConsecutiveFailures++
		return
	}

	if page != nil {
		s.snapshot.Page = clonePage(*page)
		s.snapshot.Stats = history.Summarize(*page)
		s.snapshot.HasPage = true
	} else {
		s.snapshot.Page = history.Page{}
		s.snapshot.Stats = history.Stats{}
		s.snapshot.HasPage = false
	}
	s.snapshot.LastError = nil
	s.snapshot.LastUpdated = time.Now()
	s.snapshot.ConsecutiveFailures = 0
}

// Reset forgets everything, e.g. after logout.
func (s *HistoryStore) Reset() {
	s.mu.Lock()
	s.snapshot = HistorySnapshot{}
	s.mu.Unlock()
}

// Snapshot returns a copy of the current snapshot.
func (s *HistoryStore) Snapshot() HistorySnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Page = clonePage(s.snapshot.Page)
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}

func clonePage(p history.Page) history.Page {
	if len(p.Items) == 0 {
		p.Items = nil
		return p
	}
	items := make([]history.Item, len(p.Items))
	copy(items, p.Items)
	p.Items = items
	return p
}
