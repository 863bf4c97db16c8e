package config

import (
	"os"
	"testing"
	"time"
)

// writeTempConfig creates a minimal configuration file required for LoadConfig
// and returns its path.
func writeTempConfig(t *testing.T) string {
	t.Helper()
	content := `tradeflow:
  name: "TestApp"
  version: "1.0"
channels:
  raw_buffer: 1
  norm_buffer: 1
catalog:
  spot_url: "https://example.com/api/spot/v3/instruments"
  swap_url: "https://example.com/api/swap/v3/instruments"
  futures_url: "https://example.com/api/futures/v3/instruments"
source:
  okex:
    websocket_url: "wss://example.com/ws/v3"
    pairs: ["BTCUSD"]
storage:
  s3:
    enabled: false
`
	f, err := os.CreateTemp("", "cfg-*.yml")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close temp file: %v", err)
	}
	return f.Name()
}

func TestLoadConfig(t *testing.T) {
	path := writeTempConfig(t)
	defer os.Remove(path)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Tradeflow.Name != "TestApp" {
		t.Errorf("unexpected name: %s", cfg.Tradeflow.Name)
	}
	if cfg.Dispatcher.BatchWindow != 30*time.Millisecond {
		t.Errorf("unexpected default batch window: %v", cfg.Dispatcher.BatchWindow)
	}
	if cfg.Reader.PingInterval != 30*time.Second {
		t.Errorf("unexpected default ping interval: %v", cfg.Reader.PingInterval)
	}
}

func TestLoadConfigMissingPairs(t *testing.T) {
	content := `tradeflow:
  name: "TestApp"
  version: "1.0"
channels:
  raw_buffer: 1
  norm_buffer: 1
catalog:
  spot_url: "https://example.com/spot"
  swap_url: "https://example.com/swap"
  futures_url: "https://example.com/futures"
source:
  okex:
    websocket_url: "wss://example.com/ws/v3"
    pairs: []
`
	f, err := os.CreateTemp("", "cfg-*.yml")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	f.Close()
	defer os.Remove(f.Name())

	if _, err := LoadConfig(f.Name()); err == nil {
		t.Fatal("expected validation error for empty pairs")
	}
}

func TestResolveConfigPathExplicit(t *testing.T) {
	t.Setenv(appEnvVar, "production")
	if got := resolveConfigPath("custom.yml"); got != "custom.yml" {
		t.Errorf("explicit path overridden: %s", got)
	}
}
