// Package arpwire encodes and decodes ARP-over-Ethernet frames (RFC 826).
package arpwire

import (
	"errors"
	"fmt"
	"net"

	"github.com/athena-dhcpd/arpd/pkg/netbytes"
)

// Frame layout constants.
const (
	EthernetHeaderLen = 14
	HeaderLen         = 28 // ARP header, offsets 0..27 per RFC 826
	FrameLen          = EthernetHeaderLen + HeaderLen
)

// HardwareType identifies the link-layer hardware in an ARP header.
type HardwareType uint16

// HardwareTypeEthernet is the only hardware type this codec supports.
const HardwareTypeEthernet HardwareType = 1

// EtherType is an Ethernet frame's payload type field.
type EtherType uint16

// EtherType values used by ARP and the IPv4 traffic it resolves for.
const (
	EtherTypeIPv4 EtherType = 0x0800
	EtherTypeARP  EtherType = 0x0806
)

// Opcode is the ARP operation field.
type Opcode uint16

// Opcode values defined by RFC 826.
const (
	OpRequest Opcode = 1
	OpReply   Opcode = 2
)

// ErrMalformed is returned when a buffer is too short or declares hardware
// or protocol parameters this codec does not support.
var ErrMalformed = errors.New("malformed arp frame")

// BroadcastMAC is the Ethernet broadcast address.
var BroadcastMAC = net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// ZeroMAC is the all-zero hardware address used as a placeholder target.
var ZeroMAC = net.HardwareAddr{0x00, 0x00, 0x00, 0x00, 0x00, 0x00}

// EthernetHeader is the 14-byte frame header preceding an ARP payload.
type EthernetHeader struct {
	Dest      net.HardwareAddr
	Src       net.HardwareAddr
	EtherType EtherType
}

// EncodeInto writes the 14-byte Ethernet header into b[:EthernetHeaderLen].
func (h EthernetHeader) EncodeInto(b []byte) error {
	if len(b) < EthernetHeaderLen {
		return fmt.Errorf("ethernet header: %w: buffer too short (%d bytes)", ErrMalformed, len(b))
	}
	copy(b[0:6], padMAC(h.Dest))
	copy(b[6:12], padMAC(h.Src))
	copy(b[12:14], netbytes.Uint16ToBytes(uint16(h.EtherType)))
	return nil
}

// DecodeEthernetHeader parses the leading 14 bytes of an Ethernet frame.
func DecodeEthernetHeader(b []byte) (EthernetHeader, error) {
	if len(b) < EthernetHeaderLen {
		return EthernetHeader{}, fmt.Errorf("ethernet header: %w: buffer too short (%d bytes)", ErrMalformed, len(b))
	}
	etherType, _ := netbytes.BytesToUint16(b[12:14])
	return EthernetHeader{
		Dest:      net.HardwareAddr(append([]byte(nil), b[0:6]...)),
		Src:       net.HardwareAddr(append([]byte(nil), b[6:12]...)),
		EtherType: EtherType(etherType),
	}, nil
}

// Header is the 28-byte ARP-over-Ethernet payload (RFC 826).
type Header struct {
	HWType    HardwareType
	Proto     EtherType
	HWLen     uint8
	ProtoLen  uint8
	Opcode    Opcode
	SenderMAC net.HardwareAddr
	SenderIP  net.IP
	TargetMAC net.HardwareAddr
	TargetIP  net.IP
}

// NewHeader builds a Header with the fixed Ethernet/IPv4 parameters this
// codec supports (hwtype 1, hwlen 6, proto 0x0800, protolen 4).
func NewHeader(op Opcode, senderMAC net.HardwareAddr, senderIP net.IP, targetMAC net.HardwareAddr, targetIP net.IP) Header {
	return Header{
		HWType:    HardwareTypeEthernet,
		Proto:     EtherTypeIPv4,
		HWLen:     6,
		ProtoLen:  4,
		Opcode:    op,
		SenderMAC: senderMAC,
		SenderIP:  senderIP,
		TargetMAC: targetMAC,
		TargetIP:  targetIP,
	}
}

// EncodeInto writes the 28-byte ARP header into b[:HeaderLen].
func (h Header) EncodeInto(b []byte) error {
	if len(b) < HeaderLen {
		return fmt.Errorf("arp header: %w: buffer too short (%d bytes)", ErrMalformed, len(b))
	}
	copy(b[0:2], netbytes.Uint16ToBytes(uint16(h.HWType)))
	copy(b[2:4], netbytes.Uint16ToBytes(uint16(h.Proto)))
	b[4] = h.HWLen
	b[5] = h.ProtoLen
	copy(b[6:8], netbytes.Uint16ToBytes(uint16(h.Opcode)))
	copy(b[8:14], padMAC(h.SenderMAC))
	copy(b[14:18], netbytes.IPToBytes(h.SenderIP))
	copy(b[18:24], padMAC(h.TargetMAC))
	copy(b[24:28], netbytes.IPToBytes(h.TargetIP))
	return nil
}

// Encode allocates and returns the 28-byte wire form of h.
func (h Header) Encode() []byte {
	b := make([]byte, HeaderLen)
	h.EncodeInto(b) //nolint:errcheck // b is always long enough
	return b
}

// DecodeHeader parses an ARP header and validates it declares the
// Ethernet/IPv4 parameters this codec understands. The opcode is decoded
// as-is and left for the caller to classify (request/reply/other).
func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderLen {
		return Header{}, fmt.Errorf("%w: buffer too short (%d bytes, want %d)", ErrMalformed, len(b), HeaderLen)
	}
	hwtype, _ := netbytes.BytesToUint16(b[0:2])
	proto, _ := netbytes.BytesToUint16(b[2:4])
	hwlen := b[4]
	protolen := b[5]
	opcode, _ := netbytes.BytesToUint16(b[6:8])

	if HardwareType(hwtype) != HardwareTypeEthernet || hwlen != 6 {
		return Header{}, fmt.Errorf("%w: unsupported hardware type %d/len %d", ErrMalformed, hwtype, hwlen)
	}
	if EtherType(proto) != EtherTypeIPv4 || protolen != 4 {
		return Header{}, fmt.Errorf("%w: unsupported protocol type %#x/len %d", ErrMalformed, proto, protolen)
	}

	return Header{
		HWType:    HardwareType(hwtype),
		Proto:     EtherType(proto),
		HWLen:     hwlen,
		ProtoLen:  protolen,
		Opcode:    Opcode(opcode),
		SenderMAC: net.HardwareAddr(append([]byte(nil), b[8:14]...)),
		SenderIP:  netbytes.BytesToIP(b[14:18]),
		TargetMAC: net.HardwareAddr(append([]byte(nil), b[18:24]...)),
		TargetIP:  netbytes.BytesToIP(b[24:28]),
	}, nil
}

// padMAC returns a 6-byte hardware address, zero-filled if mac is shorter
// (e.g. the target field of a freshly emitted request).
func padMAC(mac net.HardwareAddr) []byte {
	out := make([]byte, 6)
	copy(out, mac)
	return out
}
