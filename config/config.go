// Package config loads the analysis configuration from YAML (or JSON).
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete analysis configuration.
type Config struct {
	Data    DataConfig    `json:"data" yaml:"data"`
	Sampler SamplerConfig `json:"sampler" yaml:"sampler"`
	Output  OutputConfig  `json:"output" yaml:"output"`
	Server  ServerConfig  `json:"server" yaml:"server"`
	Log     LogConfig     `json:"log" yaml:"log"`
}

// DataConfig locates the input files and bounds the analysis window.
type DataConfig struct {
	PricesFile string `json:"prices_file" yaml:"prices_file"`
	EventsFile string `json:"events_file" yaml:"events_file"`
	WindowFrom string `json:"window_from" yaml:"window_from"` // YYYY-MM-DD
	WindowTo   string `json:"window_to" yaml:"window_to"`     // YYYY-MM-DD
}

// SamplerConfig contains the MCMC working sizes.
type SamplerConfig struct {
	Chains       int    `json:"chains" yaml:"chains"`
	Warmup       int    `json:"warmup" yaml:"warmup"`
	Draws        int    `json:"draws" yaml:"draws"`
	Seed         int64  `json:"seed" yaml:"seed"`
	MinRetain    int    `json:"min_retain" yaml:"min_retain"`
	Timeout      string `json:"timeout,omitempty" yaml:"timeout,omitempty"` // e.g. "10m"
	FallbackOnly bool   `json:"fallback_only,omitempty" yaml:"fallback_only,omitempty"`
}

// OutputConfig contains the artifact destinations.
type OutputConfig struct {
	ChangePointsFile string `json:"change_points_file" yaml:"change_points_file"`
	ImpactsFile      string `json:"impacts_file" yaml:"impacts_file"`
	DBPath           string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// ServerConfig contains the publisher API parameters.
type ServerConfig struct {
	Addr         string `json:"addr" yaml:"addr"`
	ReadTimeout  string `json:"read_timeout,omitempty" yaml:"read_timeout,omitempty"`
	WriteTimeout string `json:"write_timeout,omitempty" yaml:"write_timeout,omitempty"`
}

// LogConfig controls zerolog output.
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`   // debug, info, warn, error
	Format string `json:"format" yaml:"format"` // console or json
}

// Default mirrors the constants of the production analysis: 2012-01-01 to
// 2022-09-30, 2 chains, 1000 warmup, 6000 draws, seed 42.
func Default() *Config {
	return &Config{
		Data: DataConfig{
			PricesFile: "data/brent_prices.csv",
			EventsFile: "data/events.csv",
			WindowFrom: "2012-01-01",
			WindowTo:   "2022-09-30",
		},
		Sampler: SamplerConfig{
			Chains:    2,
			Warmup:    1000,
			Draws:     6000,
			Seed:      42,
			MinRetain: 500,
		},
		Output: OutputConfig{
			ChangePointsFile: "analysis/change_points.csv",
			ImpactsFile:      "analysis/event_impacts.csv",
			DBPath:           "analysis/breakpoint.sqlite",
		},
		Server: ServerConfig{
			Addr:         "127.0.0.1:5000",
			ReadTimeout:  "10s",
			WriteTimeout: "10s",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadFromFile loads configuration from a file (YAML or JSON), layered over
// the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the parts that would otherwise fail deep inside the run.
func (c *Config) Validate() error {
	if c.Data.PricesFile == "" {
		return fmt.Errorf("config: data.prices_file is required")
	}
	if _, _, err := c.Window(); err != nil {
		return err
	}
	if c.Sampler.Chains < 1 {
		return fmt.Errorf("config: sampler.chains must be at least 1")
	}
	if c.Sampler.Timeout != "" {
		if _, err := time.ParseDuration(c.Sampler.Timeout); err != nil {
			return fmt.Errorf("config: bad sampler.timeout: %w", err)
		}
	}
	return nil
}

// Window parses the analysis window bounds.
func (c *Config) Window() (from, to time.Time, err error) {
	from, err = time.Parse("2006-01-02", c.Data.WindowFrom)
	if err != nil {
		return from, to, fmt.Errorf("config: bad data.window_from: %w", err)
	}
	to, err = time.Parse("2006-01-02", c.Data.WindowTo)
	if err != nil {
		return from, to, fmt.Errorf("config: bad data.window_to: %w", err)
	}
	if to.Before(from) {
		return from, to, fmt.Errorf("config: window_to precedes window_from")
	}
	return from, to, nil
}

// SamplerTimeout returns the configured timeout, or zero when unset.
func (c *Config) SamplerTimeout() time.Duration {
	if c.Sampler.Timeout == "" {
		return 0
	}
	d, _ := time.ParseDuration(c.Sampler.Timeout)
	return d
}
