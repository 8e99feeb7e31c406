package rtltcp

import (
	"fmt"
	"net"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultReadTimeout = 2 * time.Second

// Duration is a time.Duration that unmarshals from YAML strings like "2s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	duration, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("rtltcp.Duration: failed to parse: %s", err)
	}

	*d = Duration(duration)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Config configures the rtl_tcp client.
type Config struct {
	// Address of the rtl_tcp (or compatible, e.g. lms_tcp) server.
	Address string `yaml:"address"`

	// AGC enables the tuner's automatic gain control instead of the manual
	// gain from the radio configuration.
	AGC bool `yaml:"agc"`

	// ReadTimeout bounds a single block read. A stream that stalls longer
	// than this is reported as a receive overrun.
	ReadTimeout Duration `yaml:"readTimeout"`
}

// Validate checks the client parameters.
func (c *Config) Validate() error {
	if c.Address == "" {
		return fmt.Errorf("rtl_tcp server address is required")
	}
	if _, _, err := net.SplitHostPort(c.Address); err != nil {
		return fmt.Errorf("invalid rtl_tcp server address %q: %w", c.Address, err)
	}
	if c.ReadTimeout < 0 {
		return fmt.Errorf("read timeout must not be negative: %s given", time.Duration(c.ReadTimeout))
	}
	return nil
}

func (c *Config) readTimeout() time.Duration {
	if c.ReadTimeout == 0 {
		return defaultReadTimeout
	}
	return time.Duration(c.ReadTimeout)
}
