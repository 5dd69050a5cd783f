package monitor

import (
	"testing"
	"time"
)

func at(sec int) time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(sec) * time.Second)
}

func TestSessionStartsUnknown(t *testing.T) {
	s := NewSession(4)
	if s.State() != StateUnknown {
		t.Fatalf("expected UNKNOWN, got %s", s.State())
	}
	if s.ExitCode() != 1 {
		t.Fatalf("UNKNOWN must exit 1, got %d", s.ExitCode())
	}
}

func TestFirstSuccessEstablishesBaselineSilently(t *testing.T) {
	s := NewSession(4)
	tr := s.Observe(true, at(0))
	if tr != nil {
		t.Fatalf("first success from UNKNOWN must not emit a transition, got %+v", tr)
	}
	if s.State() != StateUp {
		t.Fatalf("expected UP, got %s", s.State())
	}
	if s.ExitCode() != 0 {
		t.Fatalf("UP must exit 0, got %d", s.ExitCode())
	}
}

func TestDownRequiresExactlyThresholdFailures(t *testing.T) {
	s := NewSession(4)
	s.Observe(true, at(0))

	for i := 1; i <= 3; i++ {
		if tr := s.Observe(false, at(i)); tr != nil {
			t.Fatalf("failure %d must not transition yet, got %+v", i, tr)
		}
		if s.ConsecutiveErrors() != i {
			t.Fatalf("expected %d consecutive errors, got %d", i, s.ConsecutiveErrors())
		}
		if s.State() != StateUp {
			t.Fatalf("still expected UP after %d failures, got %s", i, s.State())
		}
	}

	tr := s.Observe(false, at(4))
	if tr == nil || tr.To != StateDown {
		t.Fatalf("fourth failure must transition to DOWN, got %+v", tr)
	}
	if !tr.KnownDuration {
		t.Fatal("uptime was known, duration must be set")
	}
	// upSince was at(0), the transition probe at(4).
	if tr.PrevDuration != 4*time.Second {
		t.Fatalf("expected uptime 4s, got %v", tr.PrevDuration)
	}

	// Further failures stay DOWN without new events.
	if tr := s.Observe(false, at(5)); tr != nil {
		t.Fatalf("already DOWN, no further event expected, got %+v", tr)
	}
}

func TestRecoveryNeedsSingleSuccess(t *testing.T) {
	s := NewSession(2)
	s.Observe(true, at(0))
	s.Observe(false, at(1))
	s.Observe(false, at(2))
	if s.State() != StateDown {
		t.Fatalf("expected DOWN, got %s", s.State())
	}

	tr := s.Observe(true, at(10))
	if tr == nil || tr.To != StateUp {
		t.Fatalf("single success must recover, got %+v", tr)
	}
	if !tr.KnownDuration {
		t.Fatal("downtime was known, duration must be set")
	}
	// The streak began at(1), recovery probe at(10).
	if tr.PrevDuration != 9*time.Second {
		t.Fatalf("expected downtime 9s, got %v", tr.PrevDuration)
	}
	if s.ConsecutiveErrors() != 0 {
		t.Fatalf("recovery must reset error count, got %d", s.ConsecutiveErrors())
	}
}

func TestUnknownAccumulatesFailures(t *testing.T) {
	s := NewSession(2)
	if tr := s.Observe(false, at(0)); tr != nil {
		t.Fatalf("first failure below threshold must not transition, got %+v", tr)
	}
	if s.ConsecutiveErrors() != 1 {
		t.Fatalf("expected 1 error, got %d", s.ConsecutiveErrors())
	}

	tr := s.Observe(false, at(1))
	if tr == nil || tr.To != StateDown {
		t.Fatalf("threshold reached from UNKNOWN must declare DOWN, got %+v", tr)
	}
	if tr.KnownDuration {
		t.Fatal("no UP baseline existed, uptime must be unknown")
	}
}

func TestUnknownRecoveryAfterPartialStreakIsSilent(t *testing.T) {
	s := NewSession(4)
	s.Observe(false, at(0))
	s.Observe(false, at(1))
	tr := s.Observe(true, at(2))
	if tr != nil {
		t.Fatalf("no DOWN was declared, success must be silent, got %+v", tr)
	}
	if s.State() != StateUp || s.ConsecutiveErrors() != 0 {
		t.Fatalf("expected clean UP baseline, got %s errors=%d", s.State(), s.ConsecutiveErrors())
	}
}

func TestDownSinceAnchorsAtFirstFailureOfStreak(t *testing.T) {
	s := NewSession(3)
	s.Observe(true, at(0))
	s.Observe(false, at(5))
	s.Observe(false, at(6))
	s.Observe(false, at(7)) // DOWN declared here
	s.Observe(false, at(8))

	tr := s.Observe(true, at(20))
	if tr == nil || !tr.KnownDuration {
		t.Fatalf("expected recovery with known downtime, got %+v", tr)
	}
	// Downtime counts from the first failure at(5), not from the DOWN
	// declaration at(7).
	if tr.PrevDuration != 15*time.Second {
		t.Fatalf("expected downtime 15s, got %v", tr.PrevDuration)
	}
}

func TestUptimeMeasuredFromUpTransitionNotLastSuccess(t *testing.T) {
	s := NewSession(2)
	s.Observe(true, at(0))
	s.Observe(true, at(1))
	s.Observe(true, at(2))
	s.Observe(false, at(3))
	tr := s.Observe(false, at(4))
	if tr == nil || tr.To != StateDown || !tr.KnownDuration {
		t.Fatalf("expected DOWN with known uptime, got %+v", tr)
	}
	if tr.PrevDuration != 4*time.Second {
		t.Fatalf("uptime must anchor at the UP transition at(0), got %v", tr.PrevDuration)
	}
}

func TestAlternatingSignalsNeverGoDown(t *testing.T) {
	s := NewSession(4)
	for i := 0; i < 30; i += 3 {
		if tr := s.Observe(true, at(i)); tr != nil && tr.To == StateDown {
			t.Fatalf("unexpected DOWN at %d", i)
		}
		if tr := s.Observe(false, at(i+1)); tr != nil {
			t.Fatalf("single failure must never transition, got %+v", tr)
		}
		if tr := s.Observe(true, at(i+2)); tr != nil {
			t.Fatalf("no DOWN was declared, success must be silent, got %+v", tr)
		}
	}
	if s.State() != StateUp || s.ExitCode() != 0 {
		t.Fatalf("expected UP/exit 0, got %s/%d", s.State(), s.ExitCode())
	}
}

func TestProbeCountCountsEverySignal(t *testing.T) {
	s := NewSession(2)
	s.Observe(true, at(0))
	s.Observe(false, at(1))
	s.Observe(false, at(2))
	s.Observe(true, at(3))
	if s.ProbeCount() != 4 {
		t.Fatalf("expected 4 probes, got %d", s.ProbeCount())
	}
}

func TestThresholdClampedToOne(t *testing.T) {
	s := NewSession(0)
	tr := s.Observe(false, at(0))
	if tr == nil || tr.To != StateDown {
		t.Fatalf("threshold 0 clamps to 1, first failure must declare DOWN, got %+v", tr)
	}
}
