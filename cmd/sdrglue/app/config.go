package app

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tejeez/sdrglue/internal/pipeline"
	"github.com/tejeez/sdrglue/internal/sdr"
	"github.com/tejeez/sdrglue/internal/sdr/rtltcp"
	"github.com/tejeez/sdrglue/internal/sdr/sim"
)

const (
	DriverRTLTCP = "rtltcp"
	DriverSim    = "sim"
)

const defaultStatsInterval = time.Minute

// Duration is a time.Duration that unmarshals from YAML strings like "30s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	duration, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("app.Duration: failed to parse: %s", err)
	}

	*d = Duration(duration)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Config represents the main application configuration
type Config struct {
	Settings  Settings               `yaml:"settings"`
	Radio     RadioConfig            `yaml:"radio"`
	Channels  []pipeline.ChannelSpec `yaml:"channels"`
	Storage   StorageConfig          `yaml:"storage"`
	Recording RecordingConfig        `yaml:"recording"`
	Stats     StatsConfig            `yaml:"stats"`
}

// Settings represents global application settings
type Settings struct {
	LogLevel string `yaml:"logLevel"`
}

// SlogLevel maps the configured log level onto slog. Unknown or empty values
// fall back to info; Validate has already rejected anything else.
func (s Settings) SlogLevel() slog.Level {
	switch strings.ToLower(s.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (s Settings) validate() error {
	switch strings.ToLower(s.LogLevel) {
	case "", "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("unknown log level %q", s.LogLevel)
	}
}

// RadioConfig selects and configures the SDR device.
type RadioConfig struct {
	Driver string `yaml:"driver"`

	sdr.Config `yaml:",inline"`

	RTLTCP *rtltcp.Config `yaml:"rtltcp"`
	Sim    *sim.Config    `yaml:"sim"`
}

func (r *RadioConfig) validate() error {
	if err := r.Config.Validate(); err != nil {
		return err
	}
	switch r.Driver {
	case DriverRTLTCP:
		if r.RTLTCP == nil {
			return fmt.Errorf("driver %s selected but no rtltcp section present", DriverRTLTCP)
		}
		return r.RTLTCP.Validate()
	case DriverSim:
		if r.Sim == nil {
			r.Sim = &sim.Config{}
		}
		return r.Sim.Validate()
	default:
		return fmt.Errorf("unknown radio driver %q", r.Driver)
	}
}

// StorageConfig represents storage settings
type StorageConfig struct {
	DataDirectory string `yaml:"dataDirectory"`
}

// RecordingConfig enables capture of the raw wideband input stream.
type RecordingConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Directory string `yaml:"directory"`
}

// StatsConfig controls periodic counter reporting.
type StatsConfig struct {
	Interval Duration `yaml:"interval"`
}

func (s StatsConfig) interval() time.Duration {
	if s.Interval == 0 {
		return defaultStatsInterval
	}
	return time.Duration(s.Interval)
}

// LoadConfig reads and validates the YAML configuration at path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err = yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}
	if err = config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks the whole configuration, including every channel against
// the radio parameters. Any failure here must prevent startup.
func (c *Config) Validate() error {
	if err := c.Settings.validate(); err != nil {
		return err
	}
	if err := c.Radio.validate(); err != nil {
		return fmt.Errorf("radio: %w", err)
	}
	if len(c.Channels) == 0 {
		return fmt.Errorf("no channels configured")
	}
	for i := range c.Channels {
		if err := c.Channels[i].Validate(c.Radio.Config); err != nil {
			return err
		}
	}
	if c.Stats.Interval < 0 {
		return fmt.Errorf("stats interval must not be negative")
	}
	return nil
}
