// Package arp implements the resolver's cache state machine and its
// outbound/inbound entry points for a single network interface: a
// bounded IPv4-to-Ethernet binding cache, a request/reply dispatcher,
// and the learn paths that keep the cache fresh from observed traffic.
package arp

import (
	"errors"
	"net"

	"github.com/athena-dhcpd/arpd/internal/pbuf"
)

// Result is the outcome of a public resolver call that can fail visibly
// (Output, Query). Inbound handlers and Tick never return a Result —
// they drop malformed or unresolvable input silently, per design.
type Result int

const (
	// ResultOK indicates the operation completed and, where applicable,
	// a frame was handed to the link layer or queued.
	ResultOK Result = iota
	// ResultOutOfMemory indicates no buffer was allocatable, or the
	// cache was full with every slot pending.
	ResultOutOfMemory
	// ResultBufferError indicates the caller's buffer could not be
	// grown to make room for the Ethernet header.
	ResultBufferError
	// ResultNoRoute indicates an off-link destination with no gateway
	// configured.
	ResultNoRoute
)

func (r Result) String() string {
	switch r {
	case ResultOK:
		return "ok"
	case ResultOutOfMemory:
		return "out-of-memory"
	case ResultBufferError:
		return "buffer-error"
	case ResultNoRoute:
		return "no-route"
	default:
		return "unknown"
	}
}

// Sentinel errors mirroring Result, for callers that prefer Go's error
// idiom (errors.Is) over inspecting a Result value directly.
var (
	ErrOutOfMemory = errors.New("arp: out of memory")
	ErrBufferError = errors.New("arp: buffer error")
	ErrNoRoute     = errors.New("arp: no route to destination")
	ErrNotFound    = errors.New("arp: no cache entry")
)

// ResultToError converts a Result to the equivalent sentinel error, or
// nil for ResultOK.
func ResultToError(r Result) error {
	switch r {
	case ResultOK:
		return nil
	case ResultOutOfMemory:
		return ErrOutOfMemory
	case ResultBufferError:
		return ErrBufferError
	case ResultNoRoute:
		return ErrNoRoute
	default:
		return nil
	}
}

// LinkOutput is the link-layer driver's transmit capability: hand it a
// fully-formed Ethernet frame and it enqueues it for transmission. It
// must not block and must not call back into the resolver synchronously.
type LinkOutput func(buf *pbuf.Buffer) error

// DHCPNotifier is the optional hook invoked when an ARP reply addressed
// to us is observed, mirroring the source stack's dhcp_on_reply hook. No
// DHCP server is implemented in this repository; the hook point exists
// so one could be wired in without touching the resolver.
type DHCPNotifier func(senderIP net.IP)

// Interface is the resolver's view of the single network interface it
// serves: local address, netmask, gateway, local hardware address, and
// the capability to transmit a frame.
type Interface struct {
	Name       string
	IP         net.IP
	Netmask    net.IPMask
	Gateway    net.IP
	HWAddr     net.HardwareAddr
	LinkOutput LinkOutput
}

// Broadcast returns the interface's subnet-directed broadcast address
// (iface.IP | ^netmask).
func (i *Interface) Broadcast() net.IP {
	ip4 := i.IP.To4()
	if ip4 == nil || len(i.Netmask) != 4 {
		return net.IPv4zero
	}
	out := make(net.IP, 4)
	for j := 0; j < 4; j++ {
		out[j] = ip4[j] | ^i.Netmask[j]
	}
	return out
}

// OnLink reports whether ip shares this interface's network address.
func (i *Interface) OnLink(ip net.IP) bool {
	ip4, iface4 := ip.To4(), i.IP.To4()
	if ip4 == nil || iface4 == nil || len(i.Netmask) != 4 {
		return false
	}
	for j := 0; j < 4; j++ {
		if ip4[j]&i.Netmask[j] != iface4[j]&i.Netmask[j] {
			return false
		}
	}
	return true
}
