package sim

import "fmt"

// Tone is a pure carrier injected into the simulated receive stream.
// Frequency is absolute, in Hz; the device places it at the right offset
// from its configured center frequency.
type Tone struct {
	Frequency float64 `yaml:"frequency"`
	Amplitude float64 `yaml:"amplitude"`
}

// Config configures the simulated device.
type Config struct {
	// Tones to synthesize into the receive stream.
	Tones []Tone `yaml:"tones"`

	// Playback is an optional cf32 recording mixed into (or, with no tones,
	// forming) the receive stream. Loop restarts it at EOF.
	Playback string `yaml:"playback"`
	Loop     bool   `yaml:"loop"`

	// Realtime paces ReadBlock against the wall clock at the configured
	// sample rate. Tests leave it off and run as fast as possible.
	Realtime bool `yaml:"realtime"`

	// TxCapture is an optional cf32 file transmitted blocks are written to.
	// Without it, transmit data is accepted and discarded.
	TxCapture string `yaml:"txCapture"`
}

// Validate checks the simulated device parameters.
func (c *Config) Validate() error {
	for i, tone := range c.Tones {
		if tone.Amplitude < 0 || tone.Amplitude > 1 {
			return fmt.Errorf("tone %d: amplitude must be within [0, 1]: %f given", i, tone.Amplitude)
		}
		if tone.Frequency < 0 {
			return fmt.Errorf("tone %d: frequency must not be negative: %f given", i, tone.Frequency)
		}
	}
	if c.Loop && c.Playback == "" {
		return fmt.Errorf("loop requires a playback file")
	}
	return nil
}
