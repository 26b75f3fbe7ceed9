package config

import (
	"os"
	"testing"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("STORE_PATH", "/tmp/bridge.db")
	t.Setenv("FEED_URL", "ws://localhost:8080/feed")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.Addr != ":9091" {
		t.Fatalf("Addr = %q, want :9091", cfg.Addr)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.PollIntervalMs != 2000 || cfg.CleanupIntervalSec != 30 || cfg.SessionTTLSec != 30 {
		t.Fatalf("intervals = %d/%d/%d", cfg.PollIntervalMs, cfg.CleanupIntervalSec, cfg.SessionTTLSec)
	}
	if cfg.CORSAllowOrigin != "*" {
		t.Fatalf("CORSAllowOrigin = %q", cfg.CORSAllowOrigin)
	}
	if cfg.InsecureTLS {
		t.Fatalf("InsecureTLS defaulted to true")
	}
}

func TestFromEnvMissingRequired(t *testing.T) {
	// t.Setenv snapshots the variables for restore; the parse must see them
	// unset, not empty.
	t.Setenv("STORE_PATH", "")
	t.Setenv("FEED_URL", "")
	os.Unsetenv("STORE_PATH")
	os.Unsetenv("FEED_URL")
	if _, err := FromEnv(); err == nil {
		t.Fatalf("FromEnv succeeded without required values")
	}
}

func TestFromEnvOverridesAndClamps(t *testing.T) {
	t.Setenv("STORE_PATH", "/tmp/bridge.db")
	t.Setenv("FEED_URL", "wss://feed.example.com")
	t.Setenv("ADDR", ":8000")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SESSION_POLL_INTERVAL_MS", "-5")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.Addr != ":8000" || cfg.LogLevel != "debug" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.PollIntervalMs != 2000 {
		t.Fatalf("PollIntervalMs = %d, want fallback 2000", cfg.PollIntervalMs)
	}
}
