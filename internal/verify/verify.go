// Package verify provides an on-demand ICMP echo liveness check for a
// resolved IP, exposed only through the admin API. It never runs on the
// resolver's hot path: spec.md §5's suspension-free contract forbids
// blocking I/O from a public resolver call, so this lives entirely on
// the API's own goroutine against a dedicated ICMP socket.
package verify

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"

	"github.com/athena-dhcpd/arpd/internal/metrics"
)

// Prober sends ICMP Echo Requests to check whether a resolved peer is
// still alive. The ICMP socket is opened once at startup and shared
// across every call to Probe.
type Prober struct {
	conn      *icmp.PacketConn
	logger    *slog.Logger
	available bool
	seq       uint16
	mu        sync.Mutex
}

// NewProber opens a raw ICMP socket. If that fails (missing
// CAP_NET_RAW), it logs a loud warning and returns a Prober whose Probe
// always reports not-alive rather than failing the caller.
func NewProber(logger *slog.Logger) (*Prober, error) {
	p := &Prober{logger: logger}

	conn, err := icmp.ListenPacket("ip4:icmp", "0.0.0.0")
	if err != nil {
		logger.Error("FAILED TO OPEN ICMP SOCKET — liveness verification is DISABLED",
			"error", err,
			"hint", "grant CAP_NET_RAW capability or run as root")
		p.available = false
		return p, nil
	}

	p.conn = conn
	p.available = true
	logger.Info("ICMP prober initialized")
	return p, nil
}

// Available reports whether Probe has a working socket.
func (p *Prober) Available() bool {
	return p.available
}

// Close releases the underlying socket.
func (p *Prober) Close() error {
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// Probe sends one ICMP Echo Request to targetIP and waits for a reply
// until ctx's deadline (A11). Returns true if a reply was observed.
func (p *Prober) Probe(ctx context.Context, targetIP net.IP) (bool, error) {
	if !p.available {
		metrics.ProbeResults.WithLabelValues("unavailable").Inc()
		return false, nil
	}

	p.mu.Lock()
	p.seq++
	seq := p.seq
	p.mu.Unlock()

	start := time.Now()
	defer func() {
		metrics.ProbeDuration.Observe(time.Since(start).Seconds())
	}()

	msg := &icmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Code: 0,
		Body: &icmp.Echo{
			ID:   os.Getpid() & 0xffff,
			Seq:  int(seq),
			Data: []byte("arpd-verify"),
		},
	}

	msgBytes, err := msg.Marshal(nil)
	if err != nil {
		metrics.ProbeResults.WithLabelValues("error").Inc()
		return false, fmt.Errorf("marshalling ICMP echo request: %w", err)
	}

	dst := &net.IPAddr{IP: targetIP}

	if deadline, ok := ctx.Deadline(); ok {
		if err := p.conn.SetDeadline(deadline); err != nil {
			metrics.ProbeResults.WithLabelValues("error").Inc()
			return false, fmt.Errorf("setting ICMP deadline: %w", err)
		}
	}

	if _, err := p.conn.WriteTo(msgBytes, dst); err != nil {
		metrics.ProbeResults.WithLabelValues("error").Inc()
		return false, fmt.Errorf("sending ICMP echo to %s: %w", targetIP, err)
	}

	buf := make([]byte, 1500)
	for {
		select {
		case <-ctx.Done():
			metrics.ProbeResults.WithLabelValues("timeout").Inc()
			return false, nil
		default:
		}

		n, peer, err := p.conn.ReadFrom(buf)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				metrics.ProbeResults.WithLabelValues("timeout").Inc()
				return false, nil
			}
			metrics.ProbeResults.WithLabelValues("error").Inc()
			return false, fmt.Errorf("reading ICMP reply: %w", err)
		}

		reply, err := icmp.ParseMessage(1, buf[:n])
		if err != nil {
			continue
		}
		if reply.Type != ipv4.ICMPTypeEchoReply {
			continue
		}

		if echo, ok := reply.Body.(*icmp.Echo); ok {
			if echo.ID == os.Getpid()&0xffff && echo.Seq == int(seq) {
				p.logger.Debug("verify probe reply received",
					"target_ip", targetIP.String(),
					"responder", peer.String(),
					"duration", time.Since(start).String())
				metrics.ProbeResults.WithLabelValues("alive").Inc()
				return true, nil
			}
		}
	}
}
