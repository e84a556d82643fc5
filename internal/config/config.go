// Package config loads runtime configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/NotSquiz/atlas-bridge/internal/bridge"
)

// Defaults applied when the corresponding variable is unset.
const (
	DefaultDBPath           = "atlas_session.db"
	DefaultStreamAddrs      = "127.0.0.1:8765"
	DefaultSampleRate       = 16000
	DefaultLanguage         = "en-US"
	DefaultHTTPPort         = "8080"
	DefaultPollInterval     = 100 * time.Millisecond
	DefaultRequestTimeout   = 60 * time.Second
	DefaultSnapshotInterval = 100 * time.Millisecond
)

// Config is the process configuration.
type Config struct {
	// BridgeDir enables the file-sentinel control channel when set. The
	// directory must already exist.
	BridgeDir string

	// DBPath is the session buffer database file.
	DBPath string

	// StreamAddrs are the candidate listen/dial addresses for the raw
	// socket transport, in preference order.
	StreamAddrs []string

	SampleRate int
	Language   string
	Voice      string

	HTTPPort     string
	JWTSecret    string
	DeviceSecret string

	PollInterval     time.Duration
	RequestTimeout   time.Duration
	SnapshotInterval time.Duration
	StrictSnapshots  bool
}

// Load reads configuration from the environment, applying defaults.
func Load() (*Config, error) {
	cfg := &Config{
		BridgeDir:        os.Getenv("ATLAS_BRIDGE_DIR"),
		DBPath:           envOr("ATLAS_DB_PATH", DefaultDBPath),
		StreamAddrs:      splitAddrs(envOr("ATLAS_STREAM_ADDRS", DefaultStreamAddrs)),
		SampleRate:       DefaultSampleRate,
		Language:         envOr("ATLAS_LANGUAGE", DefaultLanguage),
		Voice:            os.Getenv("ATLAS_VOICE"),
		HTTPPort:         envOr("PORT", DefaultHTTPPort),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		DeviceSecret:     os.Getenv("ATLAS_DEVICE_SECRET"),
		PollInterval:     DefaultPollInterval,
		RequestTimeout:   DefaultRequestTimeout,
		SnapshotInterval: DefaultSnapshotInterval,
	}

	if v := os.Getenv("ATLAS_SAMPLE_RATE"); v != "" {
		rate, err := strconv.Atoi(v)
		if err != nil || rate <= 0 {
			return nil, fmt.Errorf("invalid ATLAS_SAMPLE_RATE %q", v)
		}
		cfg.SampleRate = rate
	}
	if v := os.Getenv("ATLAS_POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid ATLAS_POLL_INTERVAL %q", v)
		}
		cfg.PollInterval = d
	}
	if v := os.Getenv("ATLAS_REQUEST_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid ATLAS_REQUEST_TIMEOUT %q", v)
		}
		cfg.RequestTimeout = d
	}
	if v := os.Getenv("ATLAS_SNAPSHOT_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid ATLAS_SNAPSHOT_INTERVAL %q", v)
		}
		cfg.SnapshotInterval = d
	}
	if v := os.Getenv("ATLAS_STRICT_SNAPSHOTS"); v != "" {
		strict, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid ATLAS_STRICT_SNAPSHOTS %q", v)
		}
		cfg.StrictSnapshots = strict
	}

	if len(cfg.StreamAddrs) == 0 {
		return nil, fmt.Errorf("ATLAS_STREAM_ADDRS must name at least one address")
	}

	return cfg, nil
}

// Requester maps the control-channel tuning settings onto the requester
// configuration.
func (c *Config) Requester() bridge.RequesterConfig {
	return bridge.RequesterConfig{
		PollInterval:    c.PollInterval,
		Timeout:         c.RequestTimeout,
		StrictSnapshots: c.StrictSnapshots,
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitAddrs(value string) []string {
	var addrs []string
	for _, addr := range strings.Split(value, ",") {
		addr = strings.TrimSpace(addr)
		if addr != "" {
			addrs = append(addrs, addr)
		}
	}
	return addrs
}
