package arp

import (
	"net"

	"github.com/athena-dhcpd/arpd/internal/arpwire"
	"github.com/athena-dhcpd/arpd/internal/pbuf"
)

// updateEntry implements spec.md §4.2's learn path. ip must be non-nil;
// a zero/nil IP is a precondition violation and this is a no-op (I6, P4).
//
// A pending entry is made stable with the new MAC and its queue is
// flushed right there, so the queue is flushed exactly once (I3); a
// stable entry only has its MAC overwritten and its age reset.
func (c *Cache) updateEntry(iface *Interface, ip net.IP, mac net.HardwareAddr, allowInsert bool, hooks hookSet) {
	if ip == nil || ip.Equal(net.IPv4zero) || ip.IsUnspecified() {
		return
	}

	idx := c.findByIP(ip)
	if idx == -1 {
		if !allowInsert {
			return
		}
		slot, ok := c.findSlot()
		if !ok {
			return
		}
		e := &c.entries[slot]
		e.ip = append(net.IP(nil), ip...)
		e.mac = append(net.HardwareAddr(nil), mac...)
		e.age = 0
		e.state = stateStable
		e.queued = nil
		hooks.entryLearned(e.ip, e.mac)
		return
	}

	e := &c.entries[idx]
	switch e.state {
	case statePending:
		e.mac = append(net.HardwareAddr(nil), mac...)
		e.age = 0
		e.state = stateStable
		hooks.entryLearned(e.ip, e.mac)
		flushQueue(iface, e)
	case stateStable:
		if !macEqual(e.mac, mac) {
			hooks.entryReMACed(e.ip, e.mac, mac)
		}
		e.mac = append(net.HardwareAddr(nil), mac...)
		e.age = 0
	}
}

func macEqual(a, b net.HardwareAddr) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// flushQueue drains e's queued buffers in FIFO order, filling the
// Ethernet header in place for each and handing it to LinkOutput, then
// releasing it. e.queued is nil when this returns, satisfying I3.
func flushQueue(iface *Interface, e *entry) {
	buf := e.queued
	e.queued = nil
	for buf != nil {
		next := buf.TailDequeue()

		hdr := arpwire.EthernetHeader{
			Dest:      e.mac,
			Src:       iface.HWAddr,
			EtherType: arpwire.EtherTypeIPv4,
		}
		if err := hdr.EncodeInto(buf.Data()); err == nil {
			if iface.LinkOutput != nil {
				_ = iface.LinkOutput(buf)
			}
		}
		buf.Release()
		buf = next
	}
}

// queueBuffer attaches buf to e's deferred-send queue. Only one buffer
// is kept canonically (spec.md §9 open question (c)): a second
// attachment while one is already queued is dropped rather than
// appended, and reported via ok=false so the caller can log it.
func queueBuffer(e *entry, buf *pbuf.Buffer) (ok bool) {
	if e.queued != nil {
		buf.Release()
		return false
	}
	e.queued = buf
	return true
}
