// Package rdns provides best-effort asynchronous reverse-DNS (PTR)
// lookups to enrich learned cache entries with a hostname, purely for
// display in the admin API's /cache endpoint. A lookup failure or
// timeout never affects cache state or resolver behavior.
package rdns

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/miekg/dns"
)

// Resolver performs PTR lookups against a configured DNS server and
// caches the results in memory.
type Resolver struct {
	client *dns.Client
	server string
	logger *slog.Logger

	mu    sync.RWMutex
	names map[string]string // ip string -> hostname
}

// New constructs a Resolver querying server (host:port, e.g.
// "127.0.0.1:53") with a short per-query timeout.
func New(server string, logger *slog.Logger) *Resolver {
	return &Resolver{
		client: &dns.Client{Timeout: 2 * time.Second},
		server: server,
		logger: logger,
		names:  make(map[string]string),
	}
}

// Lookup performs a synchronous PTR query for ip, returning the first
// answer's hostname with the trailing dot trimmed.
func (r *Resolver) Lookup(ctx context.Context, ip net.IP) (string, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(reverseAddr(ip)), dns.TypePTR)

	reply, _, err := r.client.ExchangeContext(ctx, msg, r.server)
	if err != nil {
		return "", fmt.Errorf("querying PTR record for %s: %w", ip, err)
	}
	if reply.Rcode != dns.RcodeSuccess {
		return "", fmt.Errorf("PTR query for %s returned %s", ip, dns.RcodeToString[reply.Rcode])
	}

	for _, rr := range reply.Answer {
		if ptr, ok := rr.(*dns.PTR); ok {
			return trimTrailingDot(ptr.Ptr), nil
		}
	}

	return "", fmt.Errorf("no PTR record for %s", ip)
}

// EnrichAsync looks up ip's hostname in the background and caches it
// for later retrieval via Cached. Errors are logged, never returned:
// this is a display-only enrichment, never on the resolver's path.
func (r *Resolver) EnrichAsync(ip net.IP) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		name, err := r.Lookup(ctx, ip)
		if err != nil {
			r.logger.Debug("reverse DNS lookup failed", "ip", ip.String(), "error", err)
			return
		}

		r.mu.Lock()
		r.names[ip.String()] = name
		r.mu.Unlock()
	}()
}

// Cached returns a previously resolved hostname for ip, if any.
func (r *Resolver) Cached(ip net.IP) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.names[ip.String()]
	return name, ok
}

func reverseAddr(ip net.IP) string {
	addr, err := dns.ReverseAddr(ip.String())
	if err != nil {
		return ""
	}
	return addr
}

func trimTrailingDot(s string) string {
	if len(s) > 0 && s[len(s)-1] == '.' {
		return s[:len(s)-1]
	}
	return s
}
