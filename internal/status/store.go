// Package status publishes a thread-safe snapshot of the monitor session
// for the UI and metrics readers. The session itself stays single-owner
// inside the scheduler loop; the loop pushes a copy here once per probe.
package status

import (
	"sync"
	"time"

	"github.com/uniquode/cmon-go/internal/monitor"
)

const defaultHistorySize = 120

// Point records a single RTT measurement.
type Point struct {
	Time time.Time
	RTT  time.Duration
}

// Snapshot is a copy of the session's observable state.
type Snapshot struct {
	Host              string
	State             monitor.State
	ConsecutiveErrors int
	ProbeCount        int
	LastDiagnostic    string
	LastRTT           time.Duration
	LastProbeAt       time.Time
	History           []Point
}

// Store holds the latest snapshot plus a bounded RTT history.
type Store struct {
	mu          sync.RWMutex
	snap        Snapshot
	historySize int
}

// NewStore creates a store for a single monitored host.
func NewStore(host string) *Store {
	return &Store{
		snap:        Snapshot{Host: host, State: monitor.StateUnknown},
		historySize: defaultHistorySize,
	}
}

// Publish records the session state after one probe. rtt of zero means no
// round trip was measured and adds no history point.
func (s *Store) Publish(state monitor.State, consecutiveErrors, probeCount int, diagnostic string, rtt time.Duration, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snap.State = state
	s.snap.ConsecutiveErrors = consecutiveErrors
	s.snap.ProbeCount = probeCount
	s.snap.LastDiagnostic = diagnostic
	s.snap.LastRTT = rtt
	s.snap.LastProbeAt = at
	if rtt > 0 {
		s.appendHistory(Point{Time: at, RTT: rtt})
	}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	clone := s.snap
	if len(s.snap.History) > 0 {
		clone.History = append([]Point(nil), s.snap.History...)
	}
	return clone
}

func (s *Store) appendHistory(point Point) {
	if s.historySize <= 0 {
		return
	}
	if len(s.snap.History) < s.historySize {
		s.snap.History = append(s.snap.History, point)
		return
	}
	copy(s.snap.History, s.snap.History[1:])
	s.snap.History[len(s.snap.History)-1] = point
}
