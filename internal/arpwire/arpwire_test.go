package arpwire

import (
	"errors"
	"net"
	"testing"
)

func mac(s string) net.HardwareAddr {
	m, err := net.ParseMAC(s)
	if err != nil {
		panic(err)
	}
	return m
}

func TestHeaderRoundTrip(t *testing.T) {
	h := NewHeader(OpRequest,
		mac("02:00:00:00:00:02"), net.IPv4(10, 0, 0, 2),
		ZeroMAC, net.IPv4(10, 0, 0, 6))

	wire := h.Encode()
	if len(wire) != HeaderLen {
		t.Fatalf("encoded length = %d, want %d", len(wire), HeaderLen)
	}

	got, err := DecodeHeader(wire)
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}

	if got.Opcode != OpRequest {
		t.Errorf("Opcode = %v, want %v", got.Opcode, OpRequest)
	}
	if got.SenderMAC.String() != h.SenderMAC.String() {
		t.Errorf("SenderMAC = %v, want %v", got.SenderMAC, h.SenderMAC)
	}
	if !got.SenderIP.Equal(h.SenderIP) {
		t.Errorf("SenderIP = %v, want %v", got.SenderIP, h.SenderIP)
	}
	if !got.TargetIP.Equal(h.TargetIP) {
		t.Errorf("TargetIP = %v, want %v", got.TargetIP, h.TargetIP)
	}
	if got.HWType != HardwareTypeEthernet || got.HWLen != 6 || got.Proto != EtherTypeIPv4 || got.ProtoLen != 4 {
		t.Errorf("unexpected fixed fields: %+v", got)
	}
}

func TestDecodeHeaderTooShort(t *testing.T) {
	_, err := DecodeHeader(make([]byte, HeaderLen-1))
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("expected ErrMalformed, got %v", err)
	}
}

func TestDecodeHeaderBadHardwareType(t *testing.T) {
	h := NewHeader(OpRequest, mac("02:00:00:00:00:02"), net.IPv4(10, 0, 0, 2), ZeroMAC, net.IPv4(10, 0, 0, 6))
	wire := h.Encode()
	wire[1] = 2 // hwtype = 2 (not Ethernet)
	if _, err := DecodeHeader(wire); !errors.Is(err, ErrMalformed) {
		t.Errorf("expected ErrMalformed for bad hardware type, got %v", err)
	}
}

func TestDecodeHeaderBadProtoLen(t *testing.T) {
	h := NewHeader(OpReply, mac("02:00:00:00:00:02"), net.IPv4(10, 0, 0, 2), mac("02:00:00:00:00:06"), net.IPv4(10, 0, 0, 6))
	wire := h.Encode()
	wire[5] = 6 // protolen tampered
	if _, err := DecodeHeader(wire); !errors.Is(err, ErrMalformed) {
		t.Errorf("expected ErrMalformed for bad protolen, got %v", err)
	}
}

func TestEthernetHeaderRoundTrip(t *testing.T) {
	e := EthernetHeader{
		Dest:      BroadcastMAC,
		Src:       mac("02:00:00:00:00:02"),
		EtherType: EtherTypeARP,
	}
	buf := make([]byte, EthernetHeaderLen)
	if err := e.EncodeInto(buf); err != nil {
		t.Fatalf("EncodeInto: %v", err)
	}

	got, err := DecodeEthernetHeader(buf)
	if err != nil {
		t.Fatalf("DecodeEthernetHeader: %v", err)
	}
	if got.Dest.String() != BroadcastMAC.String() {
		t.Errorf("Dest = %v, want broadcast", got.Dest)
	}
	if got.EtherType != EtherTypeARP {
		t.Errorf("EtherType = %#x, want %#x", got.EtherType, EtherTypeARP)
	}
}

func TestEncodeIntoBufferTooShort(t *testing.T) {
	h := NewHeader(OpRequest, mac("02:00:00:00:00:02"), net.IPv4(10, 0, 0, 2), ZeroMAC, net.IPv4(10, 0, 0, 6))
	if err := h.EncodeInto(make([]byte, 10)); !errors.Is(err, ErrMalformed) {
		t.Errorf("expected ErrMalformed, got %v", err)
	}
}
