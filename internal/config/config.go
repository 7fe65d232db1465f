// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Defaults live in New; Load layers file, dotenv and environment on top.
// - External errors are wrapped with this package's sentinel kinds.
package config

import (
	"runtime"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the slog handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// DataDir is the root under which one directory per challenge date lives.
	DataDir string `koanf:"data_dir"`

	// DefaultLimit is used when GET /api/captions omits limit.
	DefaultLimit int `koanf:"default_limit"`

	// MaxLeaderboardLimit caps GET /api/captions?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// WriteRetries bounds optimistic read-modify-write attempts.
	WriteRetries int `koanf:"write_retries"`

	// ComputeURL is the scoring collaborator endpoint. Empty disables compute.
	ComputeURL string `koanf:"compute_url"`

	// ComputeSecret is sent to the collaborator and required by the cron trigger.
	ComputeSecret string `koanf:"compute_secret"`

	// ComputeSecretHeader names the header carrying ComputeSecret.
	ComputeSecretHeader string `koanf:"compute_secret_header"`

	ComputeTimeoutMS    int `koanf:"compute_timeout_ms"`
	ComputeRetries      int `koanf:"compute_retries"`
	ComputeRetryDelayMS int `koanf:"compute_retry_delay_ms"`

	// AutoCompute lets the leaderboard read path run a scoring pass for
	// dates that are not yet marked computed.
	AutoCompute bool `koanf:"auto_compute"`

	// ComputeOnSubmit enqueues a background scoring job after each submission.
	ComputeOnSubmit bool `koanf:"compute_on_submit"`

	// QueueSize bounds the in-memory compute job queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of compute workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize bounds the pending-date coalescing set.
	DedupeSize int `koanf:"dedupe_size"`

	// StoriesURL is the upstream for community stories. Empty serves [].
	StoriesURL string `koanf:"stories_url"`

	// StoriesTTLMS is how long a fetched stories list stays fresh.
	StoriesTTLMS int `koanf:"stories_ttl_ms"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		DataDir:             "data/captions",
		DefaultLimit:        20,
		MaxLeaderboardLimit: 100,
		WriteRetries:        5,
		ComputeSecretHeader: "x-cron-secret",
		ComputeTimeoutMS:    30_000,
		ComputeRetries:      3,
		ComputeRetryDelayMS: 500,
		QueueSize:           1_024,
		WorkerCount:         runtime.NumCPU(),
		DedupeSize:          10_000,
		StoriesTTLMS:        300_000,
	}
}

// ComputeTimeout returns ComputeTimeoutMS as a duration.
func (c *Config) ComputeTimeout() time.Duration {
	return time.Duration(c.ComputeTimeoutMS) * time.Millisecond
}

// ComputeRetryDelay returns ComputeRetryDelayMS as a duration.
func (c *Config) ComputeRetryDelay() time.Duration {
	return time.Duration(c.ComputeRetryDelayMS) * time.Millisecond
}

// StoriesTTL returns StoriesTTLMS as a duration.
func (c *Config) StoriesTTL() time.Duration {
	return time.Duration(c.StoriesTTLMS) * time.Millisecond
}
