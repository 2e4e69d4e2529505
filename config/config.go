// Package config holds the YAML configuration surface: the instrument
// inventory and the scheduled readings derived from it.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration to support YAML unmarshalling from strings.
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses duration strings like "5s" or "1m".
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return fmt.Errorf("duration value node is nil")
	}
	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("decode duration: %w", err)
	}
	if raw == "" {
		d.Duration = 0
		return nil
	}
	dur, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	d.Duration = dur
	return nil
}

// MarshalYAML renders the duration as a string.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// InstrumentConfig describes how to reach one instrument.
type InstrumentConfig struct {
	ID          string   `yaml:"id"`
	Location    string   `yaml:"location"`
	Termination string   `yaml:"termination,omitempty"`
	Timeout     Duration `yaml:"timeout,omitempty"`
	Check       bool     `yaml:"check,omitempty"`
	Driver      string   `yaml:"driver,omitempty"`
}

// ReadingConfig declares a periodic query against an instrument. The raw
// reply can be reshaped by an expression before it is reported.
type ReadingConfig struct {
	ID         string   `yaml:"id"`
	Instrument string   `yaml:"instrument"`
	Query      string   `yaml:"query"`
	Interval   Duration `yaml:"interval,omitempty"`
	Timeout    Duration `yaml:"timeout,omitempty"`
	Transform  string   `yaml:"transform,omitempty"`
	Round      *int32   `yaml:"round,omitempty"`
	Unit       string   `yaml:"unit,omitempty"`
}

// LokiConfig configures optional Loki integration for logging.
type LokiConfig struct {
	Enabled bool              `yaml:"enabled"`
	URL     string            `yaml:"url"`
	Labels  map[string]string `yaml:"labels"`
}

// LoggingConfig encapsulates runtime logging options.
type LoggingConfig struct {
	Level  string     `yaml:"level"`
	Format string     `yaml:"format,omitempty"`
	Loki   LokiConfig `yaml:"loki"`
}

// TelemetryConfig enables the Prometheus collector.
type TelemetryConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Config is the root configuration structure.
type Config struct {
	Cycle       Duration           `yaml:"cycle,omitempty"`
	Logging     LoggingConfig      `yaml:"logging"`
	Telemetry   TelemetryConfig    `yaml:"telemetry"`
	Instruments []InstrumentConfig `yaml:"instruments"`
	Readings    []ReadingConfig    `yaml:"readings"`
}

// Load reads, decodes and validates the configuration file from disk.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks referential integrity of the inventory.
func (c *Config) Validate() error {
	instruments := make(map[string]struct{}, len(c.Instruments))
	for _, instrument := range c.Instruments {
		if instrument.ID == "" {
			return fmt.Errorf("instrument id must not be empty")
		}
		if _, dup := instruments[instrument.ID]; dup {
			return fmt.Errorf("instrument %s declared twice", instrument.ID)
		}
		if instrument.Location == "" {
			return fmt.Errorf("instrument %s: location must not be empty", instrument.ID)
		}
		instruments[instrument.ID] = struct{}{}
	}
	readings := make(map[string]struct{}, len(c.Readings))
	for _, reading := range c.Readings {
		if reading.ID == "" {
			return fmt.Errorf("reading id must not be empty")
		}
		if _, dup := readings[reading.ID]; dup {
			return fmt.Errorf("reading %s declared twice", reading.ID)
		}
		readings[reading.ID] = struct{}{}
		if reading.Query == "" {
			return fmt.Errorf("reading %s: query must not be empty", reading.ID)
		}
		if _, ok := instruments[reading.Instrument]; !ok {
			return fmt.Errorf("reading %s references unknown instrument %q", reading.ID, reading.Instrument)
		}
	}
	return nil
}

// CycleInterval returns the poller cycle duration.
func (c *Config) CycleInterval() time.Duration {
	if c == nil || c.Cycle.Duration <= 0 {
		return 500 * time.Millisecond
	}
	return c.Cycle.Duration
}
