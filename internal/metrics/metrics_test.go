package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRegistered(t *testing.T) {
	// promauto registers automatically, so we just verify they exist by
	// writing a value and collecting it.

	CacheEntriesByState.WithLabelValues("stable").Set(3)
	CacheQueueDepth.Set(1)
	CacheReplacements.Inc()
	CacheReMACs.Inc()
	TickExpirations.Inc()
	RequestsSent.WithLabelValues("query").Inc()
	RepliesSent.Inc()
	FramesReceived.WithLabelValues("request").Inc()
	FramesDropped.WithLabelValues("malformed").Inc()
	OutputResults.WithLabelValues("ok").Inc()
	ProbeResults.WithLabelValues("alive").Inc()
	EventsPublished.WithLabelValues("tick.completed").Inc()
	EventBufferDrops.Inc()
	StoreWrites.WithLabelValues("binding").Inc()
	StoreWriteErrors.Inc()
	APIRequests.WithLabelValues("GET", "/cache", "200").Inc()
	SSEConnections.Set(2)
	ServerStartTime.SetToCurrentTime()
	ServerInfo.WithLabelValues("dev").Set(1)

	if got := testutil.ToFloat64(CacheQueueDepth); got != 1 {
		t.Errorf("CacheQueueDepth = %v, want 1", got)
	}
	if got := testutil.ToFloat64(SSEConnections); got != 2 {
		t.Errorf("SSEConnections = %v, want 2", got)
	}
	if got := testutil.ToFloat64(EventBufferDrops); got != 1 {
		t.Errorf("EventBufferDrops = %v, want 1", got)
	}
	if got := testutil.ToFloat64(StoreWriteErrors); got != 1 {
		t.Errorf("StoreWriteErrors = %v, want 1", got)
	}
}

func TestMetricsNamespace(t *testing.T) {
	// All metrics should use the arpd_ namespace.
	mfs, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}

	for _, mf := range mfs {
		name := mf.GetName()
		if strings.HasPrefix(name, "go_") ||
			strings.HasPrefix(name, "process_") ||
			strings.HasPrefix(name, "promhttp_") {
			continue
		}
		if !strings.HasPrefix(name, "arpd_") {
			t.Errorf("metric %q does not have arpd_ prefix", name)
		}
	}
}
