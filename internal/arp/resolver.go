package arp

import (
	"log/slog"
	"net"
	"time"

	"github.com/athena-dhcpd/arpd/internal/arpwire"
	"github.com/athena-dhcpd/arpd/internal/events"
	"github.com/athena-dhcpd/arpd/internal/metrics"
	"github.com/athena-dhcpd/arpd/internal/pbuf"
)

// hookSet bundles the observability side-channels the learn path and
// aging tick publish through. None of it participates in the cache
// invariants (SPEC_FULL.md §3): it is pure fan-out after state has
// already changed.
type hookSet struct {
	bus    *events.Bus
	logger *slog.Logger
	dhcp   DHCPNotifier
}

func (h hookSet) entryLearned(ip net.IP, mac net.HardwareAddr) {
	if h.bus == nil {
		return
	}
	h.bus.Publish(events.Event{
		Type:      events.EventEntryLearned,
		Timestamp: time.Now(),
		IP:        ip,
		MAC:       mac,
	})
}

func (h hookSet) entryReMACed(ip net.IP, oldMAC, newMAC net.HardwareAddr) {
	metrics.CacheReMACs.Inc()
	if h.bus == nil {
		return
	}
	h.bus.Publish(events.Event{
		Type:      events.EventEntryReMACed,
		Timestamp: time.Now(),
		IP:        ip,
		MAC:       newMAC,
		OldMAC:    oldMAC,
	})
}

// Resolver is the public face of the ARP resolver for one interface: the
// outbound dispatcher and the inbound handlers, wired to a Cache and an
// Interface. It holds no locks and performs no blocking I/O — every
// method runs to completion synchronously (spec.md §5).
type Resolver struct {
	iface  *Interface
	cache  *Cache
	bus    *events.Bus
	dhcp   DHCPNotifier
	logger *slog.Logger
}

// NewResolver constructs a Resolver over iface and cache. bus and dhcp
// may be nil (no event fan-out / no DHCP hook configured).
func NewResolver(iface *Interface, cache *Cache, bus *events.Bus, dhcp DHCPNotifier, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{iface: iface, cache: cache, bus: bus, dhcp: dhcp, logger: logger}
}

func (r *Resolver) hooks() hookSet {
	return hookSet{bus: r.bus, logger: r.logger, dhcp: r.dhcp}
}

// Cache exposes the underlying cache for read-only inspection (the
// admin API's Snapshot/Lookup calls).
func (r *Resolver) Cache() *Cache {
	return r.cache
}

// multicastMAC synthesizes the Ethernet multicast address for an IPv4
// multicast destination: 01:00:5e:(b2&0x7f):b3:b4.
func multicastMAC(ip net.IP) net.HardwareAddr {
	ip4 := ip.To4()
	return net.HardwareAddr{0x01, 0x00, 0x5e, ip4[1] & 0x7f, ip4[2], ip4[3]}
}

func isMulticast(ip net.IP) bool {
	ip4 := ip.To4()
	return ip4 != nil && ip4[0]&0xf0 == 0xe0
}

func isBroadcast(iface *Interface, ip net.IP) bool {
	if ip.Equal(net.IPv4zero) || ip.Equal(net.IPv4bcast) {
		return true
	}
	return ip.Equal(iface.Broadcast())
}

// Output implements spec.md §4.4: the caller presents an IP datagram in
// buf destined for destIP. Ownership of buf transfers to the dispatcher;
// on ResultBufferError or ResultNoRoute it has already been released, on
// ResultOK ownership has passed to LinkOutput or to the cache.
func (r *Resolver) Output(destIP net.IP, buf *pbuf.Buffer) Result {
	if err := buf.GrowHead(arpwire.EthernetHeaderLen); err != nil {
		buf.Release()
		metrics.OutputResults.WithLabelValues(ResultBufferError.String()).Inc()
		return ResultBufferError
	}

	switch {
	case isBroadcast(r.iface, destIP):
		return r.sendLinkLayer(arpwire.BroadcastMAC, buf)
	case isMulticast(destIP):
		return r.sendLinkLayer(multicastMAC(destIP), buf)
	default:
		key := destIP
		if !r.iface.OnLink(destIP) {
			key = r.iface.Gateway
			if key == nil || key.Equal(net.IPv4zero) {
				buf.Release()
				metrics.OutputResults.WithLabelValues(ResultNoRoute.String()).Inc()
				return ResultNoRoute
			}
		}
		return r.query(key, buf)
	}
}

// sendLinkLayer fills the Ethernet header for a broadcast/multicast
// frame and hands it to LinkOutput.
func (r *Resolver) sendLinkLayer(dest net.HardwareAddr, buf *pbuf.Buffer) Result {
	hdr := arpwire.EthernetHeader{Dest: dest, Src: r.iface.HWAddr, EtherType: arpwire.EtherTypeIPv4}
	if err := hdr.EncodeInto(buf.Data()); err != nil {
		buf.Release()
		metrics.OutputResults.WithLabelValues(ResultBufferError.String()).Inc()
		return ResultBufferError
	}
	if r.iface.LinkOutput != nil {
		_ = r.iface.LinkOutput(buf)
	}
	metrics.OutputResults.WithLabelValues(ResultOK.String()).Inc()
	return ResultOK
}

// Query is the public entry point for spec.md §4.6: emit one ARP
// request for targetIP, then locate/create a cache entry and attach buf
// (if supplied) according to its state.
func (r *Resolver) Query(targetIP net.IP, buf *pbuf.Buffer) Result {
	return r.query(targetIP, buf)
}

// query is the shared implementation behind Query and Output's unicast
// path. Already-stable targets skip straight to transmission without
// re-requesting (seed scenario 1); anything else follows spec.md §4.6's
// emit-then-locate-then-attach order (seed scenarios 2, 3, and boundary
// behavior (a)).
func (r *Resolver) query(targetIP net.IP, buf *pbuf.Buffer) Result {
	if idx := r.cache.findByIP(targetIP); idx != -1 && r.cache.entries[idx].state == stateStable {
		if buf == nil {
			metrics.OutputResults.WithLabelValues(ResultOK.String()).Inc()
			return ResultOK
		}
		res := r.sendLinkLayer(r.cache.entries[idx].mac, buf)
		metrics.OutputResults.WithLabelValues(res.String()).Inc()
		return res
	}

	result := r.emitRequest(targetIP)
	trigger := "query"
	if targetIP.Equal(r.iface.IP) {
		trigger = "announce"
	}
	metrics.RequestsSent.WithLabelValues(trigger).Inc()

	idx := r.cache.findByIP(targetIP)
	if idx == -1 || r.cache.entries[idx].state != statePending {
		slot, ok := r.cache.findSlot()
		if !ok {
			if buf != nil {
				buf.Release()
			}
			metrics.OutputResults.WithLabelValues(ResultOutOfMemory.String()).Inc()
			return ResultOutOfMemory
		}
		e := &r.cache.entries[slot]
		e.ip = append(net.IP(nil), targetIP...)
		e.mac = nil
		e.age = 0
		e.state = statePending
		e.queued = nil
		idx = slot
	}

	if buf == nil {
		metrics.OutputResults.WithLabelValues(result.String()).Inc()
		return result
	}

	if !r.cache.queueing {
		buf.Release()
		metrics.OutputResults.WithLabelValues(result.String()).Inc()
		return result
	}

	owned := buf.Take()
	buf.Release()
	if !queueBuffer(&r.cache.entries[idx], owned) {
		r.logger.Debug("dropping overflow queued buffer", "ip", targetIP.String())
	}
	metrics.OutputResults.WithLabelValues(result.String()).Inc()
	return result
}

// emitRequest allocates, fills, and transmits one ARP request frame for
// targetIP, per spec.md §4.6 step 1. Allocation/encode failure yields
// ResultOutOfMemory but processing continues (the caller still attempts
// cache bookkeeping).
func (r *Resolver) emitRequest(targetIP net.IP) Result {
	frame := pbuf.Alloc(0, arpwire.FrameLen)
	data := frame.Data()

	ethHdr := arpwire.EthernetHeader{
		Dest:      arpwire.BroadcastMAC,
		Src:       r.iface.HWAddr,
		EtherType: arpwire.EtherTypeARP,
	}
	if err := ethHdr.EncodeInto(data[:arpwire.EthernetHeaderLen]); err != nil {
		frame.Release()
		return ResultOutOfMemory
	}

	arpHdr := arpwire.NewHeader(arpwire.OpRequest, r.iface.HWAddr, r.iface.IP, arpwire.ZeroMAC, targetIP)
	if err := arpHdr.EncodeInto(data[arpwire.EthernetHeaderLen:]); err != nil {
		frame.Release()
		return ResultOutOfMemory
	}

	if r.iface.LinkOutput != nil {
		_ = r.iface.LinkOutput(frame)
	} else {
		frame.Release()
	}
	return ResultOK
}

// Announce emits a gratuitous ARP request (sender == target == the
// interface's own IPv4), per spec.md §4.5 "Gratuitous ARP".
func (r *Resolver) Announce() Result {
	return r.query(r.iface.IP, nil)
}

// OnIPInput implements spec.md §4.5's IP-packet snoop: if srcIP is
// on-link, opportunistically learn (srcIP, srcMAC) without creating a
// reply. It takes only the addresses, never the packet buffer.
func (r *Resolver) OnIPInput(srcIP net.IP, srcMAC net.HardwareAddr) {
	if !r.iface.OnLink(srcIP) {
		return
	}
	r.cache.updateEntry(r.iface, srcIP, srcMAC, true, r.hooks())
}

// OnARPInput implements spec.md §4.5's ARP frame input. buf is owned by
// this call and is released before return.
func (r *Resolver) OnARPInput(buf *pbuf.Buffer) {
	defer buf.Release()

	data := buf.Data()
	if len(data) < arpwire.HeaderLen {
		metrics.FramesDropped.WithLabelValues("too_short").Inc()
		return
	}

	hdr, err := arpwire.DecodeHeader(data)
	if err != nil {
		metrics.FramesDropped.WithLabelValues("malformed").Inc()
		return
	}

	forUs := r.iface.IP != nil && !r.iface.IP.Equal(net.IPv4zero) && hdr.TargetIP.Equal(r.iface.IP)

	r.cache.updateEntry(r.iface, hdr.SenderIP, hdr.SenderMAC, forUs, r.hooks())

	switch hdr.Opcode {
	case arpwire.OpRequest:
		metrics.FramesReceived.WithLabelValues("request").Inc()
		if forUs {
			r.replyTo(hdr)
		}
	case arpwire.OpReply:
		metrics.FramesReceived.WithLabelValues("reply").Inc()
		if forUs && r.dhcp != nil {
			r.dhcp(hdr.SenderIP)
		}
		if forUs && r.bus != nil {
			r.bus.Publish(events.Event{
				Type:      events.EventARPReplyObserved,
				Timestamp: time.Now(),
				IP:        hdr.SenderIP,
				MAC:       hdr.SenderMAC,
			})
		}
	default:
		metrics.FramesDropped.WithLabelValues("unknown_opcode").Inc()
	}
}

// replyTo emits one ARP reply frame answering a request targeting us.
func (r *Resolver) replyTo(req arpwire.Header) {
	frame := pbuf.Alloc(0, arpwire.FrameLen)
	data := frame.Data()

	ethHdr := arpwire.EthernetHeader{
		Dest:      req.SenderMAC,
		Src:       r.iface.HWAddr,
		EtherType: arpwire.EtherTypeARP,
	}
	if err := ethHdr.EncodeInto(data[:arpwire.EthernetHeaderLen]); err != nil {
		frame.Release()
		return
	}

	replyHdr := arpwire.NewHeader(arpwire.OpReply, r.iface.HWAddr, r.iface.IP, req.SenderMAC, req.SenderIP)
	if err := replyHdr.EncodeInto(data[arpwire.EthernetHeaderLen:]); err != nil {
		frame.Release()
		return
	}

	if r.iface.LinkOutput != nil {
		_ = r.iface.LinkOutput(frame)
		metrics.RepliesSent.Inc()
	} else {
		frame.Release()
	}
}

// Tick runs the aging pass and publishes one TickCompleted summary
// event, per spec.md §4.3 and SPEC_FULL.md §4.3's added observability.
func (r *Resolver) Tick() TickResult {
	start := time.Now()
	res := r.cache.Tick()
	metrics.TickDuration.Observe(time.Since(start).Seconds())
	if res.Removed > 0 {
		metrics.TickExpirations.Add(float64(res.Removed))
	}
	if r.bus != nil {
		r.bus.Publish(events.Event{
			Type:      events.EventTickCompleted,
			Timestamp: time.Now(),
			Removed:   res.Removed,
		})
	}
	r.reportOccupancy()
	return res
}

func (r *Resolver) reportOccupancy() {
	counts := map[string]int{"empty": 0, "pending": 0, "stable": 0}
	for i := range r.cache.entries {
		counts[r.cache.entries[i].state.String()]++
	}
	for state, n := range counts {
		metrics.CacheEntriesByState.WithLabelValues(state).Set(float64(n))
	}
}
