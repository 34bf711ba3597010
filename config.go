package authgate

import (
	"errors"
	"time"
)

// GuardConfig is the brute-force policy.
type GuardConfig struct {
	// MaxAttempts is the failed-attempt threshold that triggers a ban.
	MaxAttempts int
	// BanDuration is how long a triggered ban lasts, anchored at the
	// attempt that crossed the threshold.
	BanDuration time.Duration
	// AttemptWindow is the rolling window failed attempts are counted
	// over. Records older than the window are pruned on every read.
	AttemptWindow time.Duration
	// TrackOrigin additionally counts attempts against the client IP
	// carried in the context, when one is present.
	TrackOrigin bool
}

// AdvisoryConfig tunes the best-effort remote ban advisory.
type AdvisoryConfig struct {
	Enabled bool
	// CheckInterval spaces out remote status checks so per-keystroke
	// CheckStatus calls do not hammer the backend. Zero disables the
	// throttle.
	CheckInterval time.Duration
	CheckBurst    int
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull drops events rather than blocking the auth path when
	// the buffer is full. Dropped counts are observable via
	// Service.AuditDropped.
	DropIfFull bool
}

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

// Config defines a public type used by authgate APIs.
//
// Config instances are intended to be configured during initialization and
// then treated as immutable.
type Config struct {
	Guard    GuardConfig
	Advisory AdvisoryConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

// DefaultConfig describes the defaultconfig operation and its observable
// behavior.
//
// DefaultConfig returns the stock policy: 5 failed attempts within a
// 60 minute window trigger a 15 minute ban, origin tracking on, advisory
// checks throttled to one per second, audit and metrics off.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Guard: GuardConfig{
			MaxAttempts:   5,
			BanDuration:   15 * time.Minute,
			AttemptWindow: 60 * time.Minute,
			TrackOrigin:   true,
		},
		Advisory: AdvisoryConfig{
			Enabled:       true,
			CheckInterval: time.Second,
			CheckBurst:    1,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
		},
	}
}

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when a policy field is outside its legal
// range. It does not mutate the receiver.
func (c Config) Validate() error {
	if c.Guard.MaxAttempts < 1 {
		return errors.New("Guard.MaxAttempts must be at least 1")
	}
	if c.Guard.BanDuration <= 0 {
		return errors.New("Guard.BanDuration must be positive")
	}
	if c.Guard.AttemptWindow <= 0 {
		return errors.New("Guard.AttemptWindow must be positive")
	}
	if c.Guard.AttemptWindow < c.Guard.BanDuration {
		return errors.New("Guard.AttemptWindow must cover Guard.BanDuration")
	}
	if c.Advisory.Enabled && c.Advisory.CheckInterval < 0 {
		return errors.New("Advisory.CheckInterval must not be negative")
	}
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit.BufferSize must be positive when audit is enabled")
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	// All fields are values; a copy is a deep clone.
	return cfg
}
