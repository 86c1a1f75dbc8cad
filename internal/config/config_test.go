package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Server.BindAddress != "127.0.0.1" {
		t.Errorf("expected loopback bind address, got %q", cfg.Server.BindAddress)
	}
	if cfg.Server.APIPort != 8479 {
		t.Errorf("expected api port 8479, got %d", cfg.Server.APIPort)
	}
	if cfg.Storage.Type != "bolt" {
		t.Errorf("expected bolt backend, got %q", cfg.Storage.Type)
	}
	if cfg.Tracking.MaxDeltaMs != 60000 {
		t.Errorf("expected 60000ms delta cap, got %d", cfg.Tracking.MaxDeltaMs)
	}
	if cfg.Tracking.EventRetentionDays != 30 {
		t.Errorf("expected 30 day retention, got %d", cfg.Tracking.EventRetentionDays)
	}
	if len(cfg.Tracking.StatCategories) != 2 {
		t.Errorf("expected default categories [shorts regular], got %v", cfg.Tracking.StatCategories)
	}
	if cfg.Tracking.Timezone != "utc" {
		t.Errorf("expected utc timezone, got %q", cfg.Tracking.Timezone)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  api_port: 9000
storage:
  type: redis
  redis:
    host: redis.local
    port: 6380
logging:
  level: debug
tracking:
  max_delta_ms: 30000
  timezone: local
  stat_categories:
    - shorts
    - regular
    - live
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Server.APIPort != 9000 {
		t.Errorf("expected api port 9000, got %d", cfg.Server.APIPort)
	}
	if cfg.Storage.Type != "redis" || cfg.Storage.Redis.Host != "redis.local" || cfg.Storage.Redis.Port != 6380 {
		t.Errorf("unexpected redis config: %+v", cfg.Storage)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected debug level, got %q", cfg.Logging.Level)
	}
	if cfg.Tracking.MaxDeltaMs != 30000 {
		t.Errorf("expected 30000ms delta cap, got %d", cfg.Tracking.MaxDeltaMs)
	}
	if len(cfg.Tracking.StatCategories) != 3 {
		t.Errorf("expected 3 categories, got %v", cfg.Tracking.StatCategories)
	}
	if cfg.Location() != time.Local {
		t.Error("expected local location")
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown storage type", "storage:\n  type: sqlite\n"},
		{"missing bolt path", "storage:\n  type: bolt\n  path: \"\"\n"},
		{"missing redis host", "storage:\n  type: redis\n  redis:\n    host: \"\"\n"},
		{"non-positive delta cap", "tracking:\n  max_delta_ms: 0\n"},
		{"non-positive retention", "tracking:\n  event_retention_days: -1\n"},
		{"empty categories", "tracking:\n  stat_categories: []\n"},
		{"bad timezone", "tracking:\n  timezone: UTC+2\n"},
		{"bad tick interval", "tracking:\n  tick_interval: soon\n"},
		{"api port out of range", "server:\n  api_port: 70000\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.content)); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestDerivedDurations(t *testing.T) {
	path := writeConfig(t, "tracking:\n  event_retention_days: 7\n  tick_interval: 250ms\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.EventRetention() != 7*24*time.Hour {
		t.Errorf("expected 7 day retention window, got %v", cfg.EventRetention())
	}
	if cfg.TickInterval() != 250*time.Millisecond {
		t.Errorf("expected 250ms tick, got %v", cfg.TickInterval())
	}
}
