// Package scheduler drives the probe loop at a fixed cadence and routes
// each result through the classifier, the state machine, and the sinks.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/uniquode/cmon-go/internal/classify"
	"github.com/uniquode/cmon-go/internal/metrics"
	"github.com/uniquode/cmon-go/internal/monitor"
	"github.com/uniquode/cmon-go/internal/probe"
	"github.com/uniquode/cmon-go/internal/status"
)

// Options configures a monitoring run.
type Options struct {
	Host           string
	Interval       time.Duration
	Timeout        time.Duration
	ErrorThreshold int
	// MaxProbes stops the loop after that many probes; 0 runs forever.
	MaxProbes int
}

// RecordSink receives one row per probe.
type RecordSink interface {
	Add(timestamp float64, host, state, status string, rtt float64) error
}

// Scheduler owns the session and runs the sequential probe loop: one
// probe in flight at a time, each iteration budgeted exactly Interval
// from its own start.
type Scheduler struct {
	opts    Options
	pinger  probe.Pinger
	session *monitor.Session
	log     *zap.Logger

	records   RecordSink
	store     *status.Store
	collector *metrics.Collector
}

// New constructs a scheduler with a fresh session.
func New(opts Options, pinger probe.Pinger, log *zap.Logger) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	if opts.Timeout <= 0 {
		opts.Timeout = opts.Interval
	}
	return &Scheduler{
		opts:    opts,
		pinger:  pinger,
		session: monitor.NewSession(opts.ErrorThreshold),
		log:     log,
	}
}

// AttachRecords routes per-probe rows to sink.
func (s *Scheduler) AttachRecords(sink RecordSink) { s.records = sink }

// AttachStatus publishes a snapshot after every probe.
func (s *Scheduler) AttachStatus(store *status.Store) { s.store = store }

// AttachMetrics updates collector after every probe and transition.
func (s *Scheduler) AttachMetrics(c *metrics.Collector) { s.collector = c }

// Run executes the probe loop until MaxProbes is reached, the context is
// cancelled, or a privilege failure surfaces. It returns the process exit
// code: 0 when the final state is UP, 1 otherwise.
//
// Timing invariant: an iteration that finishes in d < Interval sleeps for
// the remainder; one that overruns proceeds immediately. The loop may
// drift late under sustained overrun but never fires early.
func (s *Scheduler) Run(ctx context.Context) int {
	probes := 0
	for s.opts.MaxProbes == 0 || probes < s.opts.MaxProbes {
		if ctx.Err() != nil {
			s.terminated("interrupt")
			return s.session.ExitCode()
		}

		start := time.Now()
		outcome := s.pinger.Probe(ctx, s.opts.Host, s.opts.Timeout)
		probes++

		if probe.IsPrivilegeError(outcome.Err) {
			s.terminated("privilege")
			s.log.Error("raw ICMP not permitted", zap.Error(outcome.Err))
			return 1
		}
		if ctx.Err() != nil {
			// Cancelled mid-probe; the aborted outcome is not a signal.
			s.terminated("interrupt")
			return s.session.ExitCode()
		}

		s.handle(outcome, start)

		if s.opts.MaxProbes > 0 && probes >= s.opts.MaxProbes {
			// No further iteration: sleeping out the last budget would
			// only delay the exit code.
			break
		}
		if remaining := s.opts.Interval - time.Since(start); remaining > 0 {
			select {
			case <-ctx.Done():
				s.terminated("interrupt")
				return s.session.ExitCode()
			case <-time.After(remaining):
			}
		}
	}
	return s.session.ExitCode()
}

// Session exposes the state machine for inspection after Run returns.
func (s *Scheduler) Session() *monitor.Session { return s.session }

func (s *Scheduler) handle(outcome probe.Outcome, start time.Time) {
	sig := classify.Evaluate(outcome)
	at := outcome.SentAt
	if at.IsZero() {
		at = start
	}

	if s.records != nil {
		err := s.records.Add(unixSeconds(at), s.opts.Host, sig.StateLetter(), sig.Diagnostic, sig.RTTMillis())
		if err != nil {
			s.log.Error("data sink write failed", zap.Error(err))
		}
	}

	if sig.RTT > 0 {
		s.log.Debug(fmt.Sprintf("%s icmp %s %.3f ms", s.opts.Host, sig.Diagnostic, sig.RTTMillis()))
	} else {
		s.log.Debug(fmt.Sprintf("%s icmp %s", s.opts.Host, sig.Diagnostic))
	}

	tr := s.session.Observe(sig.Reachable, at)
	if tr != nil {
		s.announce(tr)
		if s.collector != nil {
			s.collector.ObserveTransition(tr.To == monitor.StateUp)
		}
	}

	if s.collector != nil {
		s.collector.ObserveProbe(sig.Reachable, sig.RTT)
		s.collector.ObserveState(s.session.State() == monitor.StateUp)
	}
	if s.store != nil {
		s.store.Publish(s.session.State(), s.session.ConsecutiveErrors(), s.session.ProbeCount(),
			sig.Diagnostic, sig.RTT, at)
	}
}

func (s *Scheduler) announce(tr *monitor.Transition) {
	if tr.To == monitor.StateDown {
		if tr.KnownDuration {
			s.log.Warn(fmt.Sprintf("%s DOWN", s.opts.Host),
				zap.String("uptime", FormatDuration(tr.PrevDuration)))
			return
		}
		s.log.Warn(fmt.Sprintf("%s DOWN", s.opts.Host))
		return
	}
	if tr.KnownDuration {
		s.log.Warn(fmt.Sprintf("%s UP", s.opts.Host),
			zap.String("downtime", FormatDuration(tr.PrevDuration)))
		return
	}
	s.log.Warn(fmt.Sprintf("%s UP", s.opts.Host))
}

func (s *Scheduler) terminated(reason string) {
	s.log.Error("terminated", zap.String("reason", reason))
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixMicro()) / 1e6
}

// FormatDuration renders d the way transition log lines expect:
// H:MM:SS with a day count prefix when needed and fractional seconds
// only when sub-second precision exists.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = -d
	}
	total := int64(d / time.Second)
	micros := int64((d % time.Second) / time.Microsecond)

	days := total / 86400
	hours := (total % 86400) / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	out := fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	if micros > 0 {
		out += fmt.Sprintf(".%06d", micros)
	}
	switch {
	case days == 1:
		out = "1 day, " + out
	case days > 1:
		out = fmt.Sprintf("%d days, %s", days, out)
	}
	return out
}
