package arp

import (
	"net"

	"github.com/athena-dhcpd/arpd/internal/metrics"
	"github.com/athena-dhcpd/arpd/internal/pbuf"
)

// state is the cache entry's closed tagged-union lifecycle state.
// expired is transient: it is assigned and resolved entirely within a
// single aging tick and never observed by any other public call (P1).
type state int

const (
	stateEmpty state = iota
	statePending
	stateStable
	stateExpired
)

func (s state) String() string {
	switch s {
	case stateEmpty:
		return "empty"
	case statePending:
		return "pending"
	case stateStable:
		return "stable"
	case stateExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// entry is a single cache slot. The zero value is a valid empty slot
// (ip nil, state stateEmpty, queued nil), matching I1.
type entry struct {
	ip     net.IP
	mac    net.HardwareAddr
	state  state
	age    uint8
	queued *pbuf.Buffer
}

func (e *entry) reset() {
	if e.queued != nil {
		releaseChain(e.queued)
	}
	e.ip = nil
	e.mac = nil
	e.state = stateEmpty
	e.queued = nil
	e.age = 0
}

// releaseChain releases head and every buffer chained after it via the
// tail-queue link.
func releaseChain(head *pbuf.Buffer) {
	for head != nil {
		next := head.TailDequeue()
		head.Release()
		head = next
	}
}

// Cache is the fixed-size array of entries that holds the resolver's
// entire mutable state. N is fixed at construction time (ARP_TABLE_SIZE).
type Cache struct {
	entries  []entry
	maxAge   uint8 // ARP_MAXAGE, in ticks
	maxPend  uint8 // ARP_MAXPENDING, in ticks
	queueing bool  // ARP_QUEUEING
}

// NewCache constructs a cache with n slots. Panics if n <= 0: this is a
// programmer error (a misconfigured compile-time constant), not a
// runtime condition callers should need to handle.
func NewCache(n int, maxAge, maxPending uint8, queueing bool) *Cache {
	if n <= 0 {
		panic("arp: cache size must be positive")
	}
	return &Cache{
		entries:  make([]entry, n),
		maxAge:   maxAge,
		maxPend:  maxPending,
		queueing: queueing,
	}
}

// Size returns the configured number of slots (N).
func (c *Cache) Size() int {
	return len(c.entries)
}

// findByIP returns the index of the entry matching ip in any non-empty
// state, or -1 if none matches. ip must be non-nil and non-zero.
func (c *Cache) findByIP(ip net.IP) int {
	for i := range c.entries {
		if c.entries[i].state != stateEmpty && c.entries[i].ip.Equal(ip) {
			return i
		}
	}
	return -1
}

// findSlot implements spec.md §4.1's find_slot: prefer the first empty
// slot; otherwise the stable slot with the greatest age (ties: first
// encountered); otherwise signal out-of-memory. A chosen stable victim
// is released and reset before its index is returned. Pending entries
// are never eligible for eviction.
func (c *Cache) findSlot() (int, bool) {
	for i := range c.entries {
		if c.entries[i].state == stateEmpty {
			return i, true
		}
	}

	victim := -1
	var oldestAge uint8
	for i := range c.entries {
		if c.entries[i].state != stateStable {
			continue
		}
		if victim == -1 || c.entries[i].age > oldestAge {
			victim = i
			oldestAge = c.entries[i].age
		}
	}
	if victim == -1 {
		return -1, false
	}
	metrics.CacheReplacements.Inc()
	c.entries[victim].reset()
	return victim, true
}

// Occupied returns the number of slots not in stateEmpty, satisfying P6
// (occupied <= N trivially, since len(entries) == N).
func (c *Cache) Occupied() int {
	n := 0
	for i := range c.entries {
		if c.entries[i].state != stateEmpty {
			n++
		}
	}
	return n
}

// Snapshot is a read-only view of one cache entry, used by the admin
// API. It never aliases cache-owned buffers.
type Snapshot struct {
	IP    net.IP
	MAC   net.HardwareAddr
	State string
	Age   uint8
}

// Snapshot returns a point-in-time copy of every occupied entry. It
// never mutates the cache (A10): a pure clone-on-read.
func (c *Cache) Snapshot() []Snapshot {
	out := make([]Snapshot, 0, len(c.entries))
	for i := range c.entries {
		e := &c.entries[i]
		if e.state == stateEmpty {
			continue
		}
		out = append(out, Snapshot{
			IP:    append(net.IP(nil), e.ip...),
			MAC:   append(net.HardwareAddr(nil), e.mac...),
			State: e.state.String(),
			Age:   e.age,
		})
	}
	return out
}

// Lookup returns the MAC address for ip if it has a stable entry.
func (c *Cache) Lookup(ip net.IP) (net.HardwareAddr, bool) {
	idx := c.findByIP(ip)
	if idx == -1 || c.entries[idx].state != stateStable {
		return nil, false
	}
	return append(net.HardwareAddr(nil), c.entries[idx].mac...), true
}

// TickResult summarizes one aging pass, published as a single
// events.TickCompleted{Removed} notification rather than per-slot.
type TickResult struct {
	Removed int
}

// Tick runs spec.md §4.3's aging pass once over every slot: increment
// age, then expire stable entries at age >= maxAge and pending entries
// at age >= maxPend, releasing any queued buffers on expiry. No entry
// is left in stateExpired when Tick returns (P1).
func (c *Cache) Tick() TickResult {
	removed := 0
	for i := range c.entries {
		e := &c.entries[i]
		switch e.state {
		case stateEmpty:
			continue
		case statePending, stateStable:
			if e.age < 255 {
				e.age++
			}
		}

		switch {
		case e.state == stateStable && e.age >= c.maxAge:
			e.state = stateExpired
		case e.state == statePending && e.age >= c.maxPend:
			e.state = stateExpired
		}

		if e.state == stateExpired {
			e.reset()
			removed++
		}
	}
	return TickResult{Removed: removed}
}
