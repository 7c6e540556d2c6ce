package audit

import (
	"bytes"
	"context"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/athena-dhcpd/arpd/internal/events"
	"github.com/athena-dhcpd/arpd/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := store.Open(path, testLogger())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// seedRecord drives the same path production code uses: publish an
// EventEntryLearned and let a running Store.Run consumer persist it.
func seedRecord(t *testing.T, s *store.Store, ip net.IP, mac net.HardwareAddr) {
	t.Helper()

	ch := make(chan events.Event, 1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx, ch)
		close(done)
	}()

	ch <- events.Event{Type: events.EventEntryLearned, Timestamp: time.Now(), IP: ip, MAC: mac}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if r := s.Get(ip); r != nil {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if s.Get(ip) == nil {
		t.Fatalf("record for %s was not persisted in time", ip)
	}

	cancel()
	<-done
}

func TestExportEmptyStore(t *testing.T) {
	s := newTestStore(t)
	records := Export(s, QueryParams{})
	if len(records) != 0 {
		t.Errorf("Export() = %d records, want 0", len(records))
	}
}

func TestExportFiltersByIP(t *testing.T) {
	s := newTestStore(t)
	seedRecord(t, s, net.IPv4(10, 0, 0, 5), net.HardwareAddr{0x02, 0, 0, 0, 0, 0x05})
	seedRecord(t, s, net.IPv4(10, 0, 0, 6), net.HardwareAddr{0x02, 0, 0, 0, 0, 0x06})

	records := Export(s, QueryParams{IP: "10.0.0.5"})
	if len(records) != 1 {
		t.Fatalf("Export() = %d records, want 1", len(records))
	}
	if records[0].IP != "10.0.0.5" {
		t.Errorf("IP = %q, want 10.0.0.5", records[0].IP)
	}
}

func TestExportRespectsLimit(t *testing.T) {
	s := newTestStore(t)
	seedRecord(t, s, net.IPv4(10, 0, 0, 1), net.HardwareAddr{0x02, 0, 0, 0, 0, 0x01})
	seedRecord(t, s, net.IPv4(10, 0, 0, 2), net.HardwareAddr{0x02, 0, 0, 0, 0, 0x02})

	records := Export(s, QueryParams{Limit: 1})
	if len(records) != 1 {
		t.Fatalf("Export() = %d records, want 1", len(records))
	}
}

func TestWriteJSONLOneObjectPerLine(t *testing.T) {
	s := newTestStore(t)
	seedRecord(t, s, net.IPv4(10, 0, 0, 5), net.HardwareAddr{0x02, 0, 0, 0, 0, 0x05})

	records := Export(s, QueryParams{})
	var buf bytes.Buffer
	if err := WriteJSONL(&buf, records); err != nil {
		t.Fatalf("WriteJSONL: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %q", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], `"10.0.0.5"`) {
		t.Errorf("line missing IP: %q", lines[0])
	}
}

func TestWriteCSVIncludesHeader(t *testing.T) {
	s := newTestStore(t)
	seedRecord(t, s, net.IPv4(10, 0, 0, 5), net.HardwareAddr{0x02, 0, 0, 0, 0, 0x05})

	records := Export(s, QueryParams{})
	var buf bytes.Buffer
	if err := WriteCSV(&buf, records); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "ip,mac,previous_mac") {
		t.Errorf("CSV missing expected header, got %q", out)
	}
	if !strings.Contains(out, "10.0.0.5") {
		t.Errorf("CSV missing seeded IP: %q", out)
	}
}
