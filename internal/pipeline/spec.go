package pipeline

import (
	"fmt"
	"math"
	"net"

	"github.com/tejeez/sdrglue/internal/sdr"
)

const (
	DirectionRx Direction = "rx"
	DirectionTx Direction = "tx"

	ModulationFM Modulation = "fm"
)

type Direction string

type Modulation string

// ChannelSpec describes one narrowband channel within the wideband stream.
// It is fixed at channel creation; channels are independent and never
// observe each other's state.
type ChannelSpec struct {
	// Name identifies the channel in logs. Defaults to the endpoint.
	Name string `yaml:"name"`

	// Direction selects the receive or transmit path.
	Direction Direction `yaml:"direction"`

	// Frequency is the channel's absolute carrier frequency in Hz. The
	// offset from the radio's center frequency is derived from it.
	Frequency float64 `yaml:"frequency"`

	// AudioRate is the channel's audio sample rate in Hz. The wideband rate
	// must be an integer multiple of it.
	AudioRate float64 `yaml:"audioRate"`

	// Modulation kind. Only FM is implemented; the field exists so further
	// kinds slot in without changing the scheduler contract.
	Modulation Modulation `yaml:"modulation"`

	// Endpoint is the UDP destination (rx) or listen address (tx).
	Endpoint string `yaml:"endpoint"`

	// Deviation is the peak FM frequency deviation in Hz. Zero selects
	// AudioRate/4.
	Deviation float64 `yaml:"deviation"`
}

// Label returns the channel's display name.
func (s *ChannelSpec) Label() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Endpoint
}

func (s *ChannelSpec) deviation() float64 {
	if s.Deviation > 0 {
		return s.Deviation
	}
	return s.AudioRate / 4
}

func (s *ChannelSpec) centerFrequency(radio sdr.Config) float64 {
	if s.Direction == DirectionTx {
		return radio.TxCenterFrequency
	}
	return radio.RxCenterFrequency
}

// Offset returns the channel's carrier offset from the radio center.
func (s *ChannelSpec) Offset(radio sdr.Config) float64 {
	return s.Frequency - s.centerFrequency(radio)
}

// Factor returns the integer rate change between the wideband and narrowband
// rates. Valid only after Validate.
func (s *ChannelSpec) Factor(radio sdr.Config) int {
	return int(math.Round(radio.SampleRate / s.AudioRate))
}

// Validate checks the spec against the radio configuration. Failing specs
// are a configuration error: the channel must not be constructed and the
// process should refuse to start.
func (s *ChannelSpec) Validate(radio sdr.Config) error {
	switch s.Direction {
	case DirectionRx, DirectionTx:
	default:
		return fmt.Errorf("channel %s: unknown direction %q", s.Label(), s.Direction)
	}

	switch s.Modulation {
	case ModulationFM:
	default:
		return fmt.Errorf("channel %s: unknown modulation %q", s.Label(), s.Modulation)
	}

	if s.AudioRate <= 0 {
		return fmt.Errorf("channel %s: audio rate must be positive: %f given", s.Label(), s.AudioRate)
	}

	ratio := radio.SampleRate / s.AudioRate
	if math.Abs(ratio-math.Round(ratio)) > 1e-9 || math.Round(ratio) < 1 {
		return fmt.Errorf("channel %s: wideband rate %f is not an integer multiple of audio rate %f",
			s.Label(), radio.SampleRate, s.AudioRate)
	}
	if radio.BlockSize%s.Factor(radio) != 0 {
		return fmt.Errorf("channel %s: block size %d is not a multiple of rate change factor %d",
			s.Label(), radio.BlockSize, s.Factor(radio))
	}

	offset := s.Offset(radio)
	if math.Abs(offset)+s.AudioRate/2 > radio.SampleRate/2 {
		return fmt.Errorf("channel %s: carrier offset %.0f Hz puts the channel outside the %.0f Hz wide stream",
			s.Label(), offset, radio.SampleRate)
	}

	if _, _, err := net.SplitHostPort(s.Endpoint); err != nil {
		return fmt.Errorf("channel %s: invalid endpoint: %w", s.Label(), err)
	}

	if s.Deviation < 0 {
		return fmt.Errorf("channel %s: deviation must not be negative: %f given", s.Label(), s.Deviation)
	}

	return nil
}
