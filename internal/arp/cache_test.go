package arp

import (
	"fmt"
	"net"
	"testing"
)

func testHooks() hookSet {
	return hookSet{}
}

func mustMAC(s string) net.HardwareAddr {
	m, err := net.ParseMAC(s)
	if err != nil {
		panic(err)
	}
	return m
}

func testInterface() *Interface {
	return &Interface{
		Name:    "eth0",
		IP:      net.IPv4(10, 0, 0, 2),
		Netmask: net.CIDRMask(24, 32),
		Gateway: net.IPv4(10, 0, 0, 1),
		HWAddr:  mustMAC("02:00:00:00:00:02"),
	}
}

// P4: update_entry(_, 0.0.0.0, _, _) is a no-op.
func TestUpdateEntryZeroIPNoOp(t *testing.T) {
	c := NewCache(4, 120, 1, true)
	iface := testInterface()

	c.updateEntry(iface, net.IPv4zero, mustMAC("02:00:00:00:00:09"), true, testHooks())

	if c.Occupied() != 0 {
		t.Errorf("Occupied() = %d, want 0 after zero-IP update", c.Occupied())
	}
}

// P2: at most one cache entry exists per non-zero IPv4.
func TestAtMostOneEntryPerIP(t *testing.T) {
	c := NewCache(4, 120, 1, true)
	iface := testInterface()
	ip := net.IPv4(10, 0, 0, 5)

	c.updateEntry(iface, ip, mustMAC("02:00:00:00:00:05"), true, testHooks())
	c.updateEntry(iface, ip, mustMAC("02:00:00:00:00:06"), true, testHooks())

	count := 0
	for i := range c.entries {
		if c.entries[i].state != stateEmpty && c.entries[i].ip.Equal(ip) {
			count++
		}
	}
	if count != 1 {
		t.Errorf("found %d entries for %s, want 1", count, ip)
	}
}

// Learning into an existing stable entry overwrites the MAC and resets age.
func TestLearnOverwritesStableMAC(t *testing.T) {
	c := NewCache(4, 120, 1, true)
	iface := testInterface()
	ip := net.IPv4(10, 0, 0, 5)

	c.updateEntry(iface, ip, mustMAC("02:00:00:00:00:05"), true, testHooks())
	c.entries[0].age = 50

	c.updateEntry(iface, ip, mustMAC("02:00:00:00:00:09"), true, testHooks())

	mac, ok := c.Lookup(ip)
	if !ok {
		t.Fatal("expected stable entry after re-learn")
	}
	if mac.String() != "02:00:00:00:00:09" {
		t.Errorf("mac = %v, want 02:00:00:00:00:09", mac)
	}
	if c.entries[0].age != 0 {
		t.Errorf("age = %d, want 0 after re-learn", c.entries[0].age)
	}
}

// Passive snoop (allow_insert=false) never creates a new entry.
func TestPassiveSnoopDoesNotInsert(t *testing.T) {
	c := NewCache(4, 120, 1, true)
	iface := testInterface()

	c.updateEntry(iface, net.IPv4(10, 0, 0, 8), mustMAC("02:00:00:00:00:08"), false, testHooks())

	if c.Occupied() != 0 {
		t.Errorf("Occupied() = %d, want 0 after snoop with allow_insert=false", c.Occupied())
	}
}

// find_slot: prefer an empty slot when one exists.
func TestFindSlotPrefersEmpty(t *testing.T) {
	c := NewCache(2, 120, 1, true)
	c.entries[0].state = stateStable
	c.entries[0].ip = net.IPv4(10, 0, 0, 5)
	c.entries[0].age = 10

	idx, ok := c.findSlot()
	if !ok || idx != 1 {
		t.Fatalf("findSlot() = (%d, %v), want (1, true)", idx, ok)
	}
}

// find_slot: when full of stable entries, evict the oldest (greatest age).
func TestFindSlotEvictsOldestStable(t *testing.T) {
	c := NewCache(2, 120, 1, true)
	c.entries[0].state = stateStable
	c.entries[0].ip = net.IPv4(10, 0, 0, 5)
	c.entries[0].age = 10
	c.entries[1].state = stateStable
	c.entries[1].ip = net.IPv4(10, 0, 0, 6)
	c.entries[1].age = 90

	idx, ok := c.findSlot()
	if !ok || idx != 1 {
		t.Fatalf("findSlot() = (%d, %v), want (1, true) — should evict oldest", idx, ok)
	}
	if c.entries[1].state != stateEmpty {
		t.Errorf("victim state = %v, want empty after reset", c.entries[1].state)
	}
}

// find_slot: pending entries are never eviction candidates.
func TestFindSlotNeverEvictsPending(t *testing.T) {
	c := NewCache(2, 120, 1, true)
	c.entries[0].state = statePending
	c.entries[0].ip = net.IPv4(10, 0, 0, 5)
	c.entries[1].state = statePending
	c.entries[1].ip = net.IPv4(10, 0, 0, 6)

	if _, ok := c.findSlot(); ok {
		t.Error("findSlot() should fail (out-of-memory) when every slot is pending")
	}
}

// P1: after Tick, no entry has state = expired.
func TestTickNeverLeavesExpiredState(t *testing.T) {
	c := NewCache(4, 120, 1, true)
	c.entries[0].state = stateStable
	c.entries[0].ip = net.IPv4(10, 0, 0, 5)
	c.entries[0].age = 119
	c.entries[1].state = statePending
	c.entries[1].ip = net.IPv4(10, 0, 0, 6)

	c.Tick()

	for i := range c.entries {
		if c.entries[i].state == stateExpired {
			t.Errorf("entry %d left in expired state after Tick", i)
		}
	}
}

// P5: a stable entry's age reaching ARP_MAXAGE implies removal on the
// very next tick (seed scenario 6).
func TestStableEntryExpiresAtMaxAge(t *testing.T) {
	c := NewCache(4, 120, 1, true)
	c.entries[0].state = stateStable
	c.entries[0].ip = net.IPv4(10, 0, 0, 5)
	c.entries[0].mac = mustMAC("02:00:00:00:00:05")
	c.entries[0].age = 119

	res := c.Tick()

	if res.Removed != 1 {
		t.Errorf("Removed = %d, want 1", res.Removed)
	}
	if c.entries[0].state != stateEmpty {
		t.Errorf("state = %v, want empty", c.entries[0].state)
	}
	if c.entries[0].ip != nil {
		t.Errorf("ip = %v, want nil", c.entries[0].ip)
	}
}

// A pending entry expires after a single tick (ARP_MAXPENDING default 1),
// since no retry timer exists (spec.md §1 Non-goals).
func TestPendingEntryExpiresAfterOneTick(t *testing.T) {
	c := NewCache(4, 120, 1, true)
	c.entries[0].state = statePending
	c.entries[0].ip = net.IPv4(10, 0, 0, 6)

	c.Tick()

	if c.entries[0].state != stateEmpty {
		t.Errorf("state = %v, want empty after one tick", c.entries[0].state)
	}
}

// P6: the number of entries with state != empty is <= N at all times.
func TestOccupiedNeverExceedsN(t *testing.T) {
	c := NewCache(3, 120, 1, true)
	iface := testInterface()

	for i := 1; i <= 10; i++ {
		ip := net.IPv4(10, 0, 0, byte(i))
		mac := mustMAC(fmt.Sprintf("02:00:00:00:00:%02x", i))
		c.updateEntry(iface, ip, mac, true, testHooks())
		if c.Occupied() > c.Size() {
			t.Fatalf("Occupied() = %d exceeds N = %d", c.Occupied(), c.Size())
		}
	}
}

// I6: 0.0.0.0 is never inserted via find_slot-driven creation either.
func TestZeroIPNeverStored(t *testing.T) {
	c := NewCache(2, 120, 1, true)
	iface := testInterface()
	c.updateEntry(iface, net.IPv4zero, mustMAC("02:00:00:00:00:01"), true, testHooks())
	for i := range c.entries {
		if c.entries[i].ip != nil && c.entries[i].ip.Equal(net.IPv4zero) {
			t.Error("0.0.0.0 stored in cache")
		}
	}
}
