package probe

import (
	"context"
	"fmt"
	"net"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

const echoData = "cmon-go"

// ICMPPinger sends ICMP echo requests using raw sockets.
type ICMPPinger struct {
	id  int
	seq uint32
}

// NewICMPPinger initializes a pinger with a process-scoped identifier.
func NewICMPPinger() *ICMPPinger {
	return &ICMPPinger{id: os.Getpid() & 0xffff}
}

// Preflight verifies that the process may open a raw ICMP socket for the
// address family of host. It must be called before the probe loop starts;
// a wrapped ErrPrivilege is returned when the OS denies the socket.
func (p *ICMPPinger) Preflight(host string) error {
	network := "ip4:icmp"
	if ip, _, err := resolveIP(host); err == nil && ip.IP.To4() == nil {
		network = "ip6:ipv6-icmp"
	}
	conn, err := icmp.ListenPacket(network, "")
	if err != nil {
		if IsPrivilegeError(err) {
			return wrapPrivilege(err)
		}
		return fmt.Errorf("open icmp socket: %w", err)
	}
	return conn.Close()
}

// Probe sends one ICMP echo request and waits up to timeout for a reply.
// Replies from hosts other than the target are reported as
// OutcomeUnreachable rather than discarded, so the caller can tell an
// intermediary's ICMP error apart from silence.
func (p *ICMPPinger) Probe(ctx context.Context, host string, timeout time.Duration) Outcome {
	sentAt := time.Now()
	if err := ctx.Err(); err != nil {
		return Outcome{Kind: OutcomeTransportError, SentAt: sentAt, Err: err}
	}

	ip, ipNet, err := resolveIP(host)
	if err != nil {
		return Outcome{Kind: OutcomeTransportError, SentAt: sentAt, Err: err}
	}

	network, protocol, requestType, replyType := icmpSettings(ipNet)
	conn, err := icmp.ListenPacket(network, "")
	if err != nil {
		return Outcome{Kind: OutcomeTransportError, SentAt: sentAt, Err: wrapPrivilege(err)}
	}
	defer conn.Close()

	seq := int(atomic.AddUint32(&p.seq, 1)) & 0xffff
	msg := icmp.Message{
		Type: requestType,
		Code: 0,
		Body: &icmp.Echo{
			ID:   p.id,
			Seq:  seq,
			Data: []byte(echoData),
		},
	}

	payload, err := msg.Marshal(nil)
	if err != nil {
		return Outcome{Kind: OutcomeTransportError, SentAt: sentAt, Err: err}
	}

	deadline := effectiveDeadline(ctx, sentAt, timeout)
	if err := conn.SetDeadline(deadline); err != nil {
		return Outcome{Kind: OutcomeTransportError, SentAt: sentAt, Err: err}
	}

	sentAt = time.Now()
	if _, err := conn.WriteTo(payload, ip); err != nil {
		return Outcome{Kind: OutcomeTransportError, SentAt: sentAt, Err: wrapPrivilege(err)}
	}

	buf := make([]byte, 1500)
	for {
		if err := ctx.Err(); err != nil {
			return Outcome{Kind: OutcomeTransportError, SentAt: sentAt, Err: err}
		}

		n, peer, err := conn.ReadFrom(buf)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				return Outcome{Kind: OutcomeTimeout, SentAt: sentAt}
			}
			return Outcome{Kind: OutcomeTransportError, SentAt: sentAt, Err: wrapPrivilege(err)}
		}
		if peer == nil {
			continue
		}

		reply, err := icmp.ParseMessage(protocol, buf[:n])
		if err != nil {
			continue
		}

		if reply.Type == replyType {
			body, ok := reply.Body.(*icmp.Echo)
			if !ok || body.ID != p.id || body.Seq != seq {
				continue
			}
			if !peerIs(peer, ip.IP) {
				// Echo reply relayed from an unexpected source.
				return Outcome{
					Kind:      OutcomeUnreachable,
					SentAt:    sentAt,
					Responder: peerString(peer),
					ICMPType:  typeNumber(reply.Type),
				}
			}
			return Outcome{Kind: OutcomeSuccess, SentAt: sentAt, RTT: time.Since(sentAt)}
		}

		if isErrorReply(reply.Type) {
			return Outcome{
				Kind:      OutcomeUnreachable,
				SentAt:    sentAt,
				Responder: peerString(peer),
				ICMPType:  typeNumber(reply.Type),
			}
		}
	}
}

func resolveIP(addr string) (*net.IPAddr, net.IP, error) {
	ipAddr, err := net.ResolveIPAddr("ip", addr)
	if err != nil {
		return nil, nil, err
	}
	if ipAddr.IP == nil {
		return nil, nil, fmt.Errorf("invalid IP address: %s", addr)
	}
	return ipAddr, ipAddr.IP, nil
}

func icmpSettings(ip net.IP) (network string, protocol int, requestType icmp.Type, replyType icmp.Type) {
	if ip.To4() != nil {
		return "ip4:icmp", ipv4.ICMPTypeEcho.Protocol(), ipv4.ICMPTypeEcho, ipv4.ICMPTypeEchoReply
	}
	return "ip6:ipv6-icmp", ipv6.ICMPTypeEchoRequest.Protocol(), ipv6.ICMPTypeEchoRequest, ipv6.ICMPTypeEchoReply
}

func effectiveDeadline(ctx context.Context, from time.Time, timeout time.Duration) time.Time {
	deadline := from.Add(timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		return ctxDeadline
	}
	return deadline
}

func isErrorReply(t icmp.Type) bool {
	switch t {
	case ipv4.ICMPTypeDestinationUnreachable, ipv4.ICMPTypeTimeExceeded, ipv4.ICMPTypeParameterProblem,
		ipv4.ICMPTypeRedirect:
		return true
	case ipv6.ICMPTypeDestinationUnreachable, ipv6.ICMPTypeTimeExceeded, ipv6.ICMPTypeParameterProblem,
		ipv6.ICMPTypePacketTooBig:
		return true
	}
	return false
}

func typeNumber(t icmp.Type) int {
	switch v := t.(type) {
	case ipv4.ICMPType:
		return int(v)
	case ipv6.ICMPType:
		return int(v)
	}
	return -1
}

func peerIs(peer net.Addr, target net.IP) bool {
	switch a := peer.(type) {
	case *net.IPAddr:
		return a.IP.Equal(target)
	case *net.UDPAddr:
		return a.IP.Equal(target)
	}
	return false
}

func peerString(peer net.Addr) string {
	switch a := peer.(type) {
	case *net.IPAddr:
		return a.IP.String()
	case *net.UDPAddr:
		return a.IP.String()
	}
	return peer.String()
}
