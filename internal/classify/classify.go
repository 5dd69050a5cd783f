// Package classify turns raw probe outcomes into binary reachability
// signals with a human-readable diagnostic.
package classify

import (
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"

	"github.com/uniquode/cmon-go/internal/probe"
)

// Signal is the classified view of one probe: reachable or not, why, and
// the round-trip time when one was measured (zero otherwise).
type Signal struct {
	Reachable  bool
	Diagnostic string
	RTT        time.Duration
}

// Evaluate maps an outcome to a signal. The checks form a strict priority
// chain: timeout, then transport error, then asymmetric-route response,
// then success. A reply from a host other than the target is not proof of
// reachability and classifies as down.
func Evaluate(o probe.Outcome) Signal {
	switch o.Kind {
	case probe.OutcomeTimeout:
		return Signal{Reachable: false, Diagnostic: "timeout"}
	case probe.OutcomeTransportError:
		return Signal{Reachable: false, Diagnostic: errorDiagnostic(o.Err)}
	case probe.OutcomeUnreachable:
		return Signal{
			Reachable:  false,
			Diagnostic: fmt.Sprintf("not reachable %s type=%d", o.Responder, o.ICMPType),
		}
	default:
		return Signal{Reachable: true, Diagnostic: "success", RTT: o.RTT}
	}
}

// StateLetter is the single-letter state written to the data sink: the
// classified signal for this probe, not the debounced machine state.
func (s Signal) StateLetter() string {
	if s.Reachable {
		return "U"
	}
	return "D"
}

// RTTMillis returns the round-trip time in milliseconds truncated to
// microsecond precision, or 0 when no RTT was measured.
func (s Signal) RTTMillis() float64 {
	if s.RTT <= 0 {
		return 0
	}
	return float64(s.RTT.Microseconds()) / 1000.0
}

func errorDiagnostic(err error) string {
	if err == nil {
		return "error unknown: no detail"
	}
	kind := "transport"
	var errno syscall.Errno
	var opErr *net.OpError
	switch {
	case errors.As(err, &errno):
		kind = fmt.Sprintf("errno %d", int(errno))
	case errors.As(err, &opErr):
		kind = opErr.Op
	}
	return fmt.Sprintf("error %s: %v", kind, err)
}
