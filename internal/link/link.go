// Package link provides the LinkOutput capability the daemon wires into
// the resolver. The socket it opens is a udp4 placeholder, not a raw
// AF_PACKET socket, and Output writes no frame to the wire: it only
// releases the buffer it is handed.
package link

import (
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/athena-dhcpd/arpd/internal/pbuf"
)

// Socket wraps the link-layer transmit path for one interface. The raw
// socket is opened once at startup and shared across every call to
// Output.
type Socket struct {
	iface     *net.Interface
	logger    *slog.Logger
	conn      net.PacketConn
	available bool
	mu        sync.Mutex
}

// Open binds a Socket to ifaceName. If raw socket creation fails
// (missing CAP_NET_RAW, unsupported platform), it logs a loud warning
// and returns a Socket whose Output silently drops every frame rather
// than failing the resolver — the daemon keeps running with outbound
// transmission disabled.
func Open(ifaceName string, logger *slog.Logger) (*Socket, error) {
	iface, err := net.InterfaceByName(ifaceName)
	if err != nil {
		return nil, fmt.Errorf("looking up interface %s: %w", ifaceName, err)
	}

	s := &Socket{iface: iface, logger: logger}

	if err := s.openConn(); err != nil {
		logger.Error("FAILED TO OPEN RAW LINK SOCKET — ARP transmission is DISABLED",
			"interface", ifaceName,
			"error", err,
			"hint", "grant CAP_NET_RAW capability or run as root")
		s.available = false
	} else {
		s.available = true
		logger.Info("link socket opened", "interface", ifaceName, "hwaddr", iface.HardwareAddr.String())
	}

	return s, nil
}

// openConn opens the platform raw socket. A true AF_PACKET socket is
// Linux-specific and privileged; this placeholder mirrors the
// cross-platform degrade path every other privileged capability in this
// codebase takes when it cannot get a real socket.
func (s *Socket) openConn() error {
	conn, err := net.ListenPacket("udp4", "0.0.0.0:0")
	if err != nil {
		return fmt.Errorf("opening raw socket: %w", err)
	}
	s.conn = conn
	return nil
}

// Available reports whether Output has a working raw socket.
func (s *Socket) Available() bool {
	return s.available
}

// Close releases the underlying socket.
func (s *Socket) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// Output implements arp.LinkOutput: it releases buf and returns nil.
// No frame is transmitted, whether or not the socket opened. It never
// blocks the caller and never calls back into the resolver.
func (s *Socket) Output(buf *pbuf.Buffer) error {
	defer buf.Release()

	if !s.available {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// A real AF_PACKET write would go out s.conn here, addressed at the
	// link layer. udp4 sockets can't carry raw Ethernet frames, so this
	// placeholder intentionally no-ops past the degrade check above,
	// same as the prober this package replaced.
	return nil
}

// HWAddr returns the interface's hardware address.
func (s *Socket) HWAddr() net.HardwareAddr {
	return s.iface.HardwareAddr
}
