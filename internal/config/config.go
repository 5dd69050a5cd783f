// Package config holds the parsed run settings.
package config

import (
	"fmt"
	"time"
)

// Options is the full configuration of one monitoring run, produced by
// the flag surface in main.
type Options struct {
	// Host is the target to probe.
	Host string
	// Interval is the wall-clock budget of each probe iteration. It also
	// bounds how long a single probe waits for a reply.
	Interval time.Duration
	// ErrorThreshold is the consecutive-failure count that declares DOWN.
	ErrorThreshold int
	// MaxProbes limits the run; 0 means run until interrupted.
	MaxProbes int
	// LogFile appends human-readable log lines when non-empty.
	LogFile string
	// CSVFile appends per-probe records when non-empty.
	CSVFile string
	// Verbosity: 0 warnings only, 1 info, 2+ debug.
	Verbosity int
	// MetricsListen serves Prometheus metrics when non-empty (e.g. :9100).
	MetricsListen string
	// UI enables the live terminal status pane.
	UI bool
}

// Defaults returns the baseline settings.
func Defaults() Options {
	return Options{
		Host:           "8.8.8.8",
		Interval:       time.Second,
		ErrorThreshold: 4,
	}
}

// Timeout is the per-probe reply deadline, tied to the interval so a
// probe never outlives its iteration budget.
func (o Options) Timeout() time.Duration { return o.Interval }

// Validate rejects settings the loop cannot run with.
func (o Options) Validate() error {
	if o.Host == "" {
		return fmt.Errorf("host must not be empty")
	}
	if o.Interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", o.Interval)
	}
	if o.ErrorThreshold < 1 {
		return fmt.Errorf("error threshold must be at least 1, got %d", o.ErrorThreshold)
	}
	if o.MaxProbes < 0 {
		return fmt.Errorf("max probe count must not be negative, got %d", o.MaxProbes)
	}
	return nil
}
