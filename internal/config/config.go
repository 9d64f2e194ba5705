// Package config defines service configuration and how it is loaded.
package config

import (
	"runtime"
	"time"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// StoreDriver selects the epoch and score store: memory or postgres.
	StoreDriver string `koanf:"store_driver"`

	// PostgresDSN is required when StoreDriver is postgres.
	PostgresDSN      string `koanf:"postgres_dsn"`
	PostgresMaxConns int32  `koanf:"postgres_max_conns"`

	// Retention windows, in versions, per cadence.
	RetentionDaily   int64 `koanf:"retention_daily"`
	RetentionWeekly  int64 `koanf:"retention_weekly"`
	RetentionMonthly int64 `koanf:"retention_monthly"`

	// ReapWorkers, ReapQueueSize and ReapTimeoutMS size the async reaper.
	ReapWorkers   int `koanf:"reap_workers"`
	ReapQueueSize int `koanf:"reap_queue_size"`
	ReapTimeoutMS int `koanf:"reap_timeout_ms"`

	// LongIdleWarnPeriods is the number of periods elapsed in one resolution
	// above which the resolver logs a warning.
	LongIdleWarnPeriods int64 `koanf:"long_idle_warn_periods"`

	// MaxTopLimit caps GET /leaderboards/{id}/top?limit.
	MaxTopLimit int `koanf:"max_top_limit"`
}

// New returns a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		StoreDriver:         DriverMemory,
		PostgresMaxConns:    10,
		RetentionDaily:      7,
		RetentionWeekly:     8,
		RetentionMonthly:    12,
		ReapWorkers:         max(2, runtime.NumCPU()/2),
		ReapQueueSize:       1024,
		ReapTimeoutMS:       10_000,
		LongIdleWarnPeriods: 365,
		MaxTopLimit:         100,
	}
}

// ReapTimeout returns ReapTimeoutMS as a duration.
func (c *Config) ReapTimeout() time.Duration {
	return time.Duration(c.ReapTimeoutMS) * time.Millisecond
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return invalid("addr must not be empty")
	case c.StoreDriver != DriverMemory && c.StoreDriver != DriverPostgres:
		return invalid("unknown store_driver %q", c.StoreDriver)
	case c.StoreDriver == DriverPostgres && c.PostgresDSN == "":
		return invalid("postgres_dsn is required for the postgres driver")
	case c.RetentionDaily < 1 || c.RetentionWeekly < 1 || c.RetentionMonthly < 1:
		return invalid("retention windows must be positive")
	case c.ReapQueueSize < 1:
		return invalid("reap_queue_size must be positive")
	case c.ReapTimeoutMS < 1:
		return invalid("reap_timeout_ms must be positive")
	case c.MaxTopLimit < 1:
		return invalid("max_top_limit must be positive")
	}
	return nil
}
