// Package metrics defines all Prometheus metrics for arpd.
// All metrics use the "arpd_" prefix.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "arpd"

// --- Cache Metrics ---

var (
	// CacheEntriesByState is a gauge of cache entries in each lifecycle
	// state (empty, pending, stable).
	CacheEntriesByState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "cache_entries",
		Help:      "Number of cache entries by state.",
	}, []string{"state"})

	// CacheQueueDepth is a gauge of the total number of buffers queued
	// across all pending entries.
	CacheQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "cache_queue_depth",
		Help:      "Total number of packet buffers currently queued on pending entries.",
	})

	// CacheReplacements counts find_slot evictions of a stable entry to
	// make room for a new insert.
	CacheReplacements = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_replacements_total",
		Help:      "Total stable-entry evictions performed by find_slot under cache pressure.",
	})

	// CacheReMACs counts learn-path overwrites where a stable IP's MAC
	// changed to a different value.
	CacheReMACs = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_remac_total",
		Help:      "Total times a stable entry's MAC address was overwritten with a different one.",
	})

	// TickDuration tracks aging-tick processing latency.
	TickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "tick_duration_seconds",
		Help:      "Aging tick processing duration in seconds.",
		Buckets:   []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
	})

	// TickExpirations counts entries removed by the aging tick.
	TickExpirations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tick_expirations_total",
		Help:      "Total cache entries removed by the aging tick.",
	})
)

// --- Request/Reply Metrics ---

var (
	// RequestsSent counts ARP requests emitted, by trigger (query,
	// announce).
	RequestsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "requests_sent_total",
		Help:      "Total ARP requests emitted, by trigger.",
	}, []string{"trigger"})

	// RepliesSent counts ARP replies emitted in answer to inbound
	// requests targeting the local address.
	RepliesSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "replies_sent_total",
		Help:      "Total ARP replies emitted for requests targeting the local address.",
	})

	// FramesReceived counts inbound ARP frames by opcode.
	FramesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "frames_received_total",
		Help:      "Total inbound ARP frames received, by opcode.",
	}, []string{"opcode"})

	// FramesDropped counts malformed or unsupported inbound frames.
	FramesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "frames_dropped_total",
		Help:      "Total inbound ARP frames dropped, by reason.",
	}, []string{"reason"})

	// OutputResults counts Output/Query outcomes by result code.
	OutputResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "output_results_total",
		Help:      "Total Output/Query calls, by result.",
	}, []string{"result"})
)

// --- Verify (ICMP probe) Metrics ---

var (
	// ProbeDuration tracks on-demand ICMP liveness-check latency.
	ProbeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "probe_duration_seconds",
		Help:      "On-demand ICMP liveness probe duration in seconds.",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 2.0},
	})

	// ProbeResults counts probe outcomes (alive, timeout, error,
	// unavailable).
	ProbeResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "probe_results_total",
		Help:      "Total ICMP liveness probes, by result.",
	}, []string{"result"})
)

// --- Event Bus Metrics ---

var (
	// EventsPublished counts events published to the bus.
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_published_total",
		Help:      "Total events published to the event bus.",
	}, []string{"event_type"})

	// EventBufferDrops counts events dropped due to full buffer.
	EventBufferDrops = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "event_buffer_drops_total",
		Help:      "Total events dropped due to full event bus buffer.",
	})
)

// --- Store Metrics ---

var (
	// StoreWrites counts audit-store write operations by record kind.
	StoreWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "store_writes_total",
		Help:      "Total audit store writes, by record kind.",
	}, []string{"kind"})

	// StoreWriteErrors counts failed audit-store writes.
	StoreWriteErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "store_write_errors_total",
		Help:      "Total audit store write errors.",
	})
)

// --- API Metrics ---

var (
	// APIRequests counts HTTP API requests by method, path, and status.
	APIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "api_requests_total",
		Help:      "Total HTTP API requests.",
	}, []string{"method", "path", "status"})

	// APIRequestDuration tracks API request latency.
	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "api_request_duration_seconds",
		Help:      "HTTP API request duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})

	// SSEConnections is a gauge of active event-stream websocket
	// connections.
	SSEConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "event_stream_connections_active",
		Help:      "Number of active event stream connections.",
	})
)

// --- Server Info ---

var (
	// ServerInfo is a constant gauge with server build/version info.
	ServerInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "server_info",
		Help:      "Server build and version info.",
	}, []string{"version"})

	// ServerStartTime tracks process start time as a unix timestamp.
	ServerStartTime = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "server_start_time_seconds",
		Help:      "Server start time as Unix timestamp.",
	})
)
