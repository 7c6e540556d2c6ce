// Package config handles YAML configuration parsing, defaulting, and
// validation for arpd.
package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for arpd.
type Config struct {
	Interface InterfaceConfig `yaml:"interface"`
	Cache     CacheConfig     `yaml:"cache"`
	Announce  AnnounceConfig  `yaml:"announce"`
	Store     StoreConfig     `yaml:"store"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	API       APIConfig       `yaml:"api"`
	Log       LogConfig       `yaml:"log"`
	RDNS      RDNSConfig      `yaml:"rdns"`
}

// RDNSConfig holds the optional reverse-DNS enrichment settings. An
// empty Server disables lookups entirely.
type RDNSConfig struct {
	Server string `yaml:"server"`
}

// InterfaceConfig names the interface the resolver binds to and its
// default gateway, used for off-link destination redirection.
type InterfaceConfig struct {
	Name    string `yaml:"name"`
	Gateway string `yaml:"gateway"`
}

// CacheConfig holds the fixed ARP cache's sizing and aging settings.
type CacheConfig struct {
	Size            int    `yaml:"size"`              // ARP_TABLE_SIZE
	MaxAgeTicks     int    `yaml:"max_age_ticks"`      // ARP_MAXAGE
	MaxPendingTicks int    `yaml:"max_pending_ticks"`
	Queueing        bool   `yaml:"queueing"` // ARP_QUEUEING
	TickInterval    string `yaml:"tick_interval"`
}

// AnnounceConfig controls gratuitous ARP announcements.
type AnnounceConfig struct {
	OnStart  bool   `yaml:"on_start"`
	Interval string `yaml:"interval"` // "0s" disables periodic re-announce
}

// StoreConfig holds the binding-history database path.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// MetricsConfig holds the Prometheus scrape listener.
type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

// APIConfig holds the admin/read API listener and auth settings.
type APIConfig struct {
	Listen    string `yaml:"listen"`
	AuthToken string `yaml:"auth_token"`
}

// LogConfig holds slog setup.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns a Config populated with arpd's defaults.
func Default() *Config {
	cfg := &Config{}
	cfg.Cache.Queueing = DefaultQueueing
	cfg.Announce.OnStart = DefaultAnnounceOnStart
	applyDefaults(cfg)
	return cfg
}

// Load reads and parses a YAML config file, applies defaults, and validates.
func Load(path string) (*Config, error) {
	cfg := Default()
	if err := loadYAML(path, cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, out)
}

func applyDefaults(cfg *Config) {
	if cfg.Interface.Name == "" {
		cfg.Interface.Name = DefaultInterface
	}
	if cfg.Cache.Size == 0 {
		cfg.Cache.Size = DefaultCacheSize
	}
	if cfg.Cache.MaxAgeTicks == 0 {
		cfg.Cache.MaxAgeTicks = DefaultMaxAgeTicks
	}
	if cfg.Cache.MaxPendingTicks == 0 {
		cfg.Cache.MaxPendingTicks = DefaultMaxPendingTicks
	}
	if cfg.Cache.TickInterval == "" {
		cfg.Cache.TickInterval = DefaultTickInterval.String()
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = DefaultStorePath
	}
	if cfg.Metrics.Listen == "" {
		cfg.Metrics.Listen = DefaultMetricsListen
	}
	if cfg.API.Listen == "" {
		cfg.API.Listen = DefaultAPIListen
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Announce.Interval == "" {
		cfg.Announce.Interval = "0s"
	}
}

func validate(cfg *Config) error {
	if cfg.Interface.Name == "" {
		return fmt.Errorf("interface.name is required")
	}
	if cfg.Cache.Size <= 0 {
		return fmt.Errorf("cache.size must be positive, got %d", cfg.Cache.Size)
	}
	if cfg.Cache.MaxAgeTicks <= 0 {
		return fmt.Errorf("cache.max_age_ticks must be positive, got %d", cfg.Cache.MaxAgeTicks)
	}
	if cfg.Cache.MaxPendingTicks <= 0 {
		return fmt.Errorf("cache.max_pending_ticks must be positive, got %d", cfg.Cache.MaxPendingTicks)
	}
	if _, err := ParseDuration(cfg.Cache.TickInterval); err != nil {
		return fmt.Errorf("cache.tick_interval: %w", err)
	}
	if _, err := ParseDuration(cfg.Announce.Interval); err != nil {
		return fmt.Errorf("announce.interval: %w", err)
	}
	if cfg.Store.Path == "" {
		return fmt.Errorf("store.path is required")
	}
	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug/info/warn/error, got %q", cfg.Log.Level)
	}
	return nil
}

// ParseDuration wraps time.ParseDuration with field-context errors.
func ParseDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return d, nil
}

// TickInterval returns the parsed aging-tick interval.
func (cfg *Config) TickInterval() time.Duration {
	d, _ := ParseDuration(cfg.Cache.TickInterval)
	return d
}

// AnnounceInterval returns the parsed periodic re-announce interval,
// or 0 if periodic re-announce is disabled.
func (cfg *Config) AnnounceInterval() time.Duration {
	d, _ := ParseDuration(cfg.Announce.Interval)
	return d
}

// GatewayIP parses the configured gateway address, returning nil if
// none is configured (off-link destinations then resolve as no-route).
func (cfg *Config) GatewayIP() net.IP {
	if cfg.Interface.Gateway == "" {
		return nil
	}
	return net.ParseIP(cfg.Interface.Gateway).To4()
}

// BindIP resolves the configured interface's first IPv4 address.
func BindIP(ifaceName string) (net.IP, *net.IPNet, error) {
	iface, err := net.InterfaceByName(ifaceName)
	if err != nil {
		return nil, nil, fmt.Errorf("looking up interface %s: %w", ifaceName, err)
	}
	addrs, err := iface.Addrs()
	if err != nil {
		return nil, nil, fmt.Errorf("reading addresses for %s: %w", ifaceName, err)
	}
	for _, addr := range addrs {
		if ipNet, ok := addr.(*net.IPNet); ok {
			if ip4 := ipNet.IP.To4(); ip4 != nil {
				return ip4, ipNet, nil
			}
		}
	}
	return nil, nil, fmt.Errorf("interface %s has no IPv4 address", ifaceName)
}
