package classauth

import (
	"errors"
	"time"
)

// Config carries every tunable of the session engine. Configure once before
// Build and treat as immutable afterwards.
type Config struct {
	Restore RestoreConfig
	Audit   AuditConfig
	Metrics MetricsConfig
}

/*
====================================
RESTORE CONFIG
====================================
*/

// RestoreConfig tunes the startup session-restore phase.
type RestoreConfig struct {
	// ExpirySkew widens the local token expiry pre-check: a stored token
	// expiring within the skew is treated as already expired and never sent
	// to the backend.
	ExpirySkew time.Duration
	// VerifyTimeout bounds the verification round-trip so a slow backend can
	// never hang the loading flag.
	VerifyTimeout time.Duration
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig controls the audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull drops events instead of blocking the emitter when the
	// buffer is full. Dropped events are counted.
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig controls the in-process metrics counters.
type MetricsConfig struct {
	Enabled bool
}

func defaultConfig() Config {
	return Config{
		Restore: RestoreConfig{
			ExpirySkew:    30 * time.Second,
			VerifyTimeout: 10 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func validateConfig(cfg Config) error {
	if cfg.Restore.ExpirySkew < 0 {
		return errors.New("restore expiry skew must not be negative")
	}
	if cfg.Restore.VerifyTimeout < 0 {
		return errors.New("restore verify timeout must not be negative")
	}
	if cfg.Audit.Enabled && cfg.Audit.BufferSize <= 0 {
		return errors.New("audit buffer size must be positive when audit is enabled")
	}
	return nil
}
