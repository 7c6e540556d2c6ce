package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "arpd.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("writing config fixture: %v", err)
	}
	return path
}

func TestLoadMinimalConfig(t *testing.T) {
	path := writeConfig(t, `
interface:
  name: eth0
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Interface.Name != "eth0" {
		t.Errorf("Interface.Name = %q, want eth0", cfg.Interface.Name)
	}
	if cfg.Cache.Size != DefaultCacheSize {
		t.Errorf("Cache.Size = %d, want default %d", cfg.Cache.Size, DefaultCacheSize)
	}
	if cfg.Cache.MaxAgeTicks != DefaultMaxAgeTicks {
		t.Errorf("Cache.MaxAgeTicks = %d, want default %d", cfg.Cache.MaxAgeTicks, DefaultMaxAgeTicks)
	}
	if cfg.Store.Path != DefaultStorePath {
		t.Errorf("Store.Path = %q, want default %q", cfg.Store.Path, DefaultStorePath)
	}
	if cfg.Log.Level != DefaultLogLevel {
		t.Errorf("Log.Level = %q, want default %q", cfg.Log.Level, DefaultLogLevel)
	}
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
interface:
  name: eth1
  gateway: 10.0.0.254

cache:
  size: 16
  max_age_ticks: 60
  max_pending_ticks: 2
  queueing: false
  tick_interval: 5s

announce:
  on_start: false
  interval: 30s

store:
  path: /tmp/arpd-test.db

metrics:
  listen: 127.0.0.1:9200

api:
  listen: 127.0.0.1:8200
  auth_token: secret

log:
  level: debug
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Cache.Size != 16 {
		t.Errorf("Cache.Size = %d, want 16", cfg.Cache.Size)
	}
	if cfg.Cache.Queueing {
		t.Error("Cache.Queueing = true, want false")
	}
	if cfg.TickInterval().String() != "5s" {
		t.Errorf("TickInterval() = %s, want 5s", cfg.TickInterval())
	}
	if cfg.AnnounceInterval().String() != "30s" {
		t.Errorf("AnnounceInterval() = %s, want 30s", cfg.AnnounceInterval())
	}
	if cfg.API.AuthToken != "secret" {
		t.Errorf("API.AuthToken = %q, want secret", cfg.API.AuthToken)
	}
	if cfg.GatewayIP() == nil || cfg.GatewayIP().String() != "10.0.0.254" {
		t.Errorf("GatewayIP() = %v, want 10.0.0.254", cfg.GatewayIP())
	}
}

func TestLoadConfigFileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/arpd.yaml")
	if err == nil {
		t.Error("expected error loading a nonexistent config file")
	}
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	path := writeConfig(t, "not: valid: yaml: [[[")
	_, err := Load(path)
	if err == nil {
		t.Error("expected error parsing invalid YAML")
	}
}

func TestValidateRejectsZeroCacheSize(t *testing.T) {
	path := writeConfig(t, `
interface:
  name: eth0
cache:
  size: 0
`)
	cfg, err := Load(path)
	if err == nil {
		t.Fatalf("expected validation error, got cfg=%+v", cfg)
	}
}

func TestValidateRejectsBadLogLevel(t *testing.T) {
	path := writeConfig(t, `
interface:
  name: eth0
log:
  level: verbose
`)
	_, err := Load(path)
	if err == nil {
		t.Error("expected validation error for invalid log level")
	}
}

func TestValidateRejectsBadDuration(t *testing.T) {
	path := writeConfig(t, `
interface:
  name: eth0
cache:
  tick_interval: not-a-duration
`)
	_, err := Load(path)
	if err == nil {
		t.Error("expected validation error for invalid tick_interval")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)

	if cfg.Interface.Name != DefaultInterface {
		t.Errorf("Interface.Name = %q, want %q", cfg.Interface.Name, DefaultInterface)
	}
	if cfg.Cache.Size != DefaultCacheSize {
		t.Errorf("Cache.Size = %d, want %d", cfg.Cache.Size, DefaultCacheSize)
	}
	if cfg.Metrics.Listen != DefaultMetricsListen {
		t.Errorf("Metrics.Listen = %q, want %q", cfg.Metrics.Listen, DefaultMetricsListen)
	}
	if cfg.Announce.Interval != "0s" {
		t.Errorf("Announce.Interval = %q, want 0s", cfg.Announce.Interval)
	}
}
