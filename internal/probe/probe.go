package probe

import (
	"context"
	"time"
)

// OutcomeKind identifies what happened to a single echo request.
type OutcomeKind int

const (
	// OutcomeSuccess means the target itself replied in time.
	OutcomeSuccess OutcomeKind = iota
	// OutcomeTimeout means no reply arrived before the deadline.
	OutcomeTimeout
	// OutcomeTransportError means the OS failed to send or receive.
	OutcomeTransportError
	// OutcomeUnreachable means a host other than the target answered,
	// typically an intermediate router returning an ICMP error.
	OutcomeUnreachable
)

// Outcome captures the result of a single ICMP echo probe.
type Outcome struct {
	Kind   OutcomeKind
	SentAt time.Time
	RTT    time.Duration
	Err    error

	// Responder and ICMPType are set for OutcomeUnreachable only.
	Responder string
	ICMPType  int
}

// Pinger sends a single echo request and reports the outcome.
type Pinger interface {
	Probe(ctx context.Context, host string, timeout time.Duration) Outcome
}
