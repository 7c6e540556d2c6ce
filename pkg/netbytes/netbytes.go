// Package netbytes provides the small big-endian encoding helpers used by
// the ARP wire codec.
package netbytes

import (
	"encoding/binary"
	"fmt"
	"net"
)

// IPToBytes converts a net.IP to its 4-byte form. Returns 0.0.0.0 for
// anything that isn't a valid IPv4 address.
func IPToBytes(ip net.IP) []byte {
	ip4 := ip.To4()
	if ip4 == nil {
		return []byte{0, 0, 0, 0}
	}
	return []byte(ip4)
}

// BytesToIP converts a 4-byte slice to a net.IP.
func BytesToIP(b []byte) net.IP {
	if len(b) != 4 {
		return nil
	}
	return net.IPv4(b[0], b[1], b[2], b[3])
}

// Uint16ToBytes converts a uint16 to 2 bytes (big-endian).
func Uint16ToBytes(v uint16) []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, v)
	return b
}

// BytesToUint16 converts 2 bytes to a uint16 (big-endian).
func BytesToUint16(b []byte) (uint16, error) {
	if len(b) != 2 {
		return 0, fmt.Errorf("invalid uint16 length %d: expected 2", len(b))
	}
	return binary.BigEndian.Uint16(b), nil
}

// IPToUint32 converts a net.IP to a uint32 in host order.
func IPToUint32(ip net.IP) uint32 {
	ip4 := ip.To4()
	if ip4 == nil {
		return 0
	}
	return binary.BigEndian.Uint32(ip4)
}

// Uint32ToIP converts a uint32 to a net.IP.
func Uint32ToIP(n uint32) net.IP {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, n)
	return net.IPv4(b[0], b[1], b[2], b[3])
}

// MACToString formats a hardware address as a colon-separated string.
func MACToString(mac net.HardwareAddr) string {
	return mac.String()
}

// ParseMAC parses a colon-separated MAC address string.
func ParseMAC(s string) (net.HardwareAddr, error) {
	return net.ParseMAC(s)
}

// IPInSubnet reports whether ip falls within network.
func IPInSubnet(ip net.IP, network *net.IPNet) bool {
	return network.Contains(ip)
}

// SameSubnet reports whether a and b share the same network address under
// mask, i.e. (a & mask) == (b & mask), the same test arp.Interface.OnLink
// performs with its own loop.
func SameSubnet(a, b net.IP, mask net.IPMask) bool {
	a4, b4 := a.To4(), b.To4()
	if a4 == nil || b4 == nil || len(mask) != 4 {
		return false
	}
	for i := 0; i < 4; i++ {
		if a4[i]&mask[i] != b4[i]&mask[i] {
			return false
		}
	}
	return true
}
