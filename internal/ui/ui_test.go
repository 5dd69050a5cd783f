package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/uniquode/cmon-go/internal/monitor"
	"github.com/uniquode/cmon-go/internal/status"
)

func TestStatusLineShowsHostAndState(t *testing.T) {
	snap := status.Snapshot{Host: "8.8.8.8", State: monitor.StateDown}
	line := statusLine(snap)
	if !strings.Contains(line, "8.8.8.8") || !strings.Contains(line, "DOWN") {
		t.Fatalf("unexpected status line: %q", line)
	}
}

func TestProbeLineShowsCountersAndDiagnostic(t *testing.T) {
	snap := status.Snapshot{
		Host:              "8.8.8.8",
		State:             monitor.StateUp,
		ProbeCount:        42,
		ConsecutiveErrors: 2,
		LastRTT:           30 * time.Millisecond,
		LastProbeAt:       time.Date(2025, 6, 1, 12, 30, 15, 0, time.Local),
		LastDiagnostic:    "timeout",
	}
	line := probeLine(snap)
	for _, want := range []string{"probes=42", "errors=2", "rtt=30ms", "12:30:15", "timeout"} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %q", want, line)
		}
	}
}

func TestRTTBarScaling(t *testing.T) {
	tests := []struct {
		rtt   time.Duration
		width int
		want  int
	}{
		{0, 40, 0},
		{5 * time.Millisecond, 40, 1},  // rounds up to one cell
		{100 * time.Millisecond, 40, 10},
		{time.Second, 40, 40}, // clamped to width
		{100 * time.Millisecond, 0, 0},
	}
	for _, tt := range tests {
		got := len(rttBar(tt.rtt, tt.width))
		if got != tt.want {
			t.Fatalf("rttBar(%v, %d): got %d cells, want %d", tt.rtt, tt.width, got, tt.want)
		}
	}
}

func TestRecentPointsKeepsTail(t *testing.T) {
	history := []status.Point{
		{RTT: 1 * time.Millisecond},
		{RTT: 2 * time.Millisecond},
		{RTT: 3 * time.Millisecond},
	}
	points := recentPoints(history, 2)
	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(points))
	}
	if points[0].RTT != 2*time.Millisecond || points[1].RTT != 3*time.Millisecond {
		t.Fatalf("expected the newest points, got %+v", points)
	}
	if got := recentPoints(history, 0); got != nil {
		t.Fatalf("zero rows must return nil, got %+v", got)
	}
}

func TestFormatRTTUnits(t *testing.T) {
	tests := []struct {
		rtt  time.Duration
		want string
	}{
		{0, "-"},
		{500 * time.Microsecond, "500us"},
		{30 * time.Millisecond, "30ms"},
		{1500 * time.Millisecond, "1.5s"},
	}
	for _, tt := range tests {
		if got := formatRTT(tt.rtt); got != tt.want {
			t.Fatalf("formatRTT(%v): got %q, want %q", tt.rtt, got, tt.want)
		}
	}
}

func TestPadOrTrim(t *testing.T) {
	if got := padOrTrim("abc", 5); got != "abc  " {
		t.Fatalf("pad: got %q", got)
	}
	if got := padOrTrim("abcdef", 4); got != "abcd" {
		t.Fatalf("trim: got %q", got)
	}
	if got := padOrTrim("abc", 0); got != "" {
		t.Fatalf("zero width: got %q", got)
	}
}
