// Package monitor holds the reachability state machine: it consumes one
// classified signal per probe and decides when the connection has
// genuinely gone down or recovered.
package monitor

import "time"

// State is the machine's current belief about reachability.
type State int

const (
	// StateUnknown is the initial state before any baseline exists.
	StateUnknown State = iota
	// StateUp means the target answered its own echo recently.
	StateUp
	// StateDown means the consecutive-failure threshold was reached.
	StateDown
)

func (s State) String() string {
	switch s {
	case StateUp:
		return "UP"
	case StateDown:
		return "DOWN"
	default:
		return "UNKNOWN"
	}
}

// Transition is emitted when the machine changes state. PrevDuration is
// how long the prior state lasted, valid only when KnownDuration is set
// (a DOWN reached from UNKNOWN has no uptime to report).
type Transition struct {
	To            State
	At            time.Time
	PrevDuration  time.Duration
	KnownDuration bool
}

// Session tracks one monitored connection for the lifetime of the run.
//
// Going DOWN requires threshold consecutive failures so that transient
// packet loss does not flap the state; returning UP requires a single
// success. UNKNOWN accumulates failures exactly like UP with no history,
// so a connection that is dead from the very first probe still reaches
// DOWN after threshold failures. That first-signal policy differs between
// deployed variants of this tool; it is a deliberate choice here, not an
// accident.
type Session struct {
	threshold int

	state             State
	consecutiveErrors int
	probeCount        int
	upSince           time.Time
	downSince         time.Time
}

// NewSession creates a session in the UNKNOWN state. threshold is the
// number of consecutive failed probes required to declare DOWN; values
// below 1 are clamped to 1.
func NewSession(threshold int) *Session {
	if threshold < 1 {
		threshold = 1
	}
	return &Session{threshold: threshold, state: StateUnknown}
}

// Observe feeds one classified signal into the machine and returns the
// transition it caused, or nil. at is the probe's send timestamp and
// becomes the transition timestamp and the anchor for duration
// accounting.
func (s *Session) Observe(reachable bool, at time.Time) *Transition {
	s.probeCount++

	if reachable {
		var tr *Transition
		if s.state == StateDown {
			tr = &Transition{To: StateUp, At: at}
			if !s.downSince.IsZero() {
				tr.PrevDuration = at.Sub(s.downSince)
				tr.KnownDuration = true
			}
		}
		// From UNKNOWN this establishes the baseline silently. upSince
		// anchors at the transition into UP, not at every success, so a
		// later outage reports the full uptime.
		if s.state != StateUp {
			s.upSince = at
		}
		s.state = StateUp
		s.consecutiveErrors = 0
		s.downSince = time.Time{}
		return tr
	}

	// downSince anchors the streak at its first failure and is set once
	// per streak.
	if s.downSince.IsZero() {
		s.downSince = at
	}
	s.consecutiveErrors++
	if s.state == StateDown {
		return nil
	}
	if s.consecutiveErrors >= s.threshold {
		tr := &Transition{To: StateDown, At: at}
		if !s.upSince.IsZero() {
			tr.PrevDuration = at.Sub(s.upSince)
			tr.KnownDuration = true
		}
		s.state = StateDown
		return tr
	}
	return nil
}

// State returns the current debounced state.
func (s *Session) State() State { return s.state }

// ConsecutiveErrors returns the length of the current failure streak.
func (s *Session) ConsecutiveErrors() int { return s.consecutiveErrors }

// ProbeCount returns how many signals have been observed.
func (s *Session) ProbeCount() int { return s.probeCount }

// ExitCode is the session verdict: 0 when the final state is UP, 1
// otherwise (DOWN and UNKNOWN both count as failure).
func (s *Session) ExitCode() int {
	if s.state == StateUp {
		return 0
	}
	return 1
}
