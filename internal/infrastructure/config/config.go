package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config is loaded from the environment at process start. Missing required
// values are the only fatal startup condition.
type Config struct {
	Addr     string `env:"ADDR" envDefault:":9091"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// StorePath names the persistent store. Empty is rejected at start.
	StorePath string `env:"STORE_PATH,required"`
	// FeedURL is the live-feed websocket endpoint the bridge dials per
	// broadcaster handle.
	FeedURL     string `env:"FEED_URL,required"`
	InsecureTLS bool   `env:"INSECURE_TLS" envDefault:"false"`

	CORSAllowOrigin string `env:"CORS_ALLOW_ORIGIN" envDefault:"*"`

	// PollInterval drives the session watcher; it stands in for realtime
	// change notifications on the sessions table.
	PollIntervalMs int `env:"SESSION_POLL_INTERVAL_MS" envDefault:"2000"`
	// Stale sessions (terminal or never adopted) older than SessionTTLSec
	// are removed every CleanupIntervalSec.
	CleanupIntervalSec int `env:"SESSION_CLEANUP_INTERVAL_SEC" envDefault:"30"`
	SessionTTLSec      int `env:"SESSION_TTL_SEC" envDefault:"30"`
}

// FromEnv parses and validates the configuration.
func FromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.PollIntervalMs <= 0 {
		cfg.PollIntervalMs = 2000
	}
	if cfg.CleanupIntervalSec <= 0 {
		cfg.CleanupIntervalSec = 30
	}
	if cfg.SessionTTLSec <= 0 {
		cfg.SessionTTLSec = 30
	}
	return cfg, nil
}
