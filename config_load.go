package authgate

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// duration lets TOML carry Go duration strings ("15m", "1h").
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

type fileConfig struct {
	Guard struct {
		MaxAttempts   *int      `toml:"max_attempts"`
		BanDuration   *duration `toml:"ban_duration"`
		AttemptWindow *duration `toml:"attempt_window"`
		TrackOrigin   *bool     `toml:"track_origin"`
	} `toml:"guard"`
	Advisory struct {
		Enabled       *bool     `toml:"enabled"`
		CheckInterval *duration `toml:"check_interval"`
		CheckBurst    *int      `toml:"check_burst"`
	} `toml:"advisory"`
	Audit struct {
		Enabled    *bool `toml:"enabled"`
		BufferSize *int  `toml:"buffer_size"`
		DropIfFull *bool `toml:"drop_if_full"`
	} `toml:"audit"`
	Metrics struct {
		Enabled *bool `toml:"enabled"`
	} `toml:"metrics"`
}

// LoadConfig reads a TOML file and overlays it on the defaults. Fields
// absent from the file keep their default values. The result is validated
// before it is returned.
func LoadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	if fc.Guard.MaxAttempts != nil {
		cfg.Guard.MaxAttempts = *fc.Guard.MaxAttempts
	}
	if fc.Guard.BanDuration != nil {
		cfg.Guard.BanDuration = fc.Guard.BanDuration.Duration
	}
	if fc.Guard.AttemptWindow != nil {
		cfg.Guard.AttemptWindow = fc.Guard.AttemptWindow.Duration
	}
	if fc.Guard.TrackOrigin != nil {
		cfg.Guard.TrackOrigin = *fc.Guard.TrackOrigin
	}
	if fc.Advisory.Enabled != nil {
		cfg.Advisory.Enabled = *fc.Advisory.Enabled
	}
	if fc.Advisory.CheckInterval != nil {
		cfg.Advisory.CheckInterval = fc.Advisory.CheckInterval.Duration
	}
	if fc.Advisory.CheckBurst != nil {
		cfg.Advisory.CheckBurst = *fc.Advisory.CheckBurst
	}
	if fc.Audit.Enabled != nil {
		cfg.Audit.Enabled = *fc.Audit.Enabled
	}
	if fc.Audit.BufferSize != nil {
		cfg.Audit.BufferSize = *fc.Audit.BufferSize
	}
	if fc.Audit.DropIfFull != nil {
		cfg.Audit.DropIfFull = *fc.Audit.DropIfFull
	}
	if fc.Metrics.Enabled != nil {
		cfg.Metrics.Enabled = *fc.Metrics.Enabled
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
