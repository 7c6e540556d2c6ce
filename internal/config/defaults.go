package config

import "time"

// Default configuration values.
const (
	DefaultInterface      = "eth0"
	DefaultLogLevel       = "info"
	DefaultCacheSize      = 8   // ARP_TABLE_SIZE
	DefaultMaxAgeTicks    = 120 // ARP_MAXAGE
	DefaultMaxPendingTicks = 1
	DefaultQueueing       = true // ARP_QUEUEING
	DefaultTickInterval   = 10 * time.Second
	DefaultAnnounceOnStart = true
	DefaultStorePath      = "/var/lib/arpd/arpd.db"
	DefaultMetricsListen  = "127.0.0.1:9107"
	DefaultAPIListen      = "127.0.0.1:8078"
)
