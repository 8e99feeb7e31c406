package dsp

import (
	"math"
	"math/cmplx"
)

// FMDemodulator is a polar discriminator. The instantaneous frequency is the
// angle of sample[n] * conj(sample[n-1]), scaled by 1/pi so that a full-scale
// deviation of half the channel rate maps to audio +-1.0. The last sample of
// each block is kept so the phase difference spanning a block boundary is
// computed the same as any other.
type FMDemodulator struct {
	prev complex64
}

// NewFMDemodulator creates a demodulator with zero initial state. The first
// output sample of the first block is a transient and is not corrected.
func NewFMDemodulator() *FMDemodulator {
	return &FMDemodulator{}
}

// Process demodulates src into dst[:0], one audio sample per input sample.
func (d *FMDemodulator) Process(dst []float32, src []complex64) []float32 {
	out := dst[:0]
	prev := d.prev
	for _, s := range src {
		p := complex128(s) * complex128(complex(real(prev), -imag(prev)))
		out = append(out, float32(cmplx.Phase(p)*(1/math.Pi)))
		prev = s
	}
	d.prev = prev
	return out
}

// FMModulator integrates audio samples into a running phase accumulator and
// emits a unit-amplitude complex baseband signal. Deviation is the peak
// frequency offset in Hz produced by audio +-1.0.
type FMModulator struct {
	phase float64
	scale float64 // radians per unit audio sample
}

// NewFMModulator creates a modulator for the given deviation and narrowband
// sample rate.
func NewFMModulator(deviation, sampleRate float64) *FMModulator {
	return &FMModulator{scale: 2 * math.Pi * deviation / sampleRate}
}

// Process modulates audio into dst[:0], one complex sample per audio sample.
// Phase is continuous across calls.
func (m *FMModulator) Process(dst []complex64, audio []float32) []complex64 {
	out := dst[:0]
	phase := m.phase
	for _, a := range audio {
		phase += m.scale * float64(a)
		sin, cos := math.Sincos(phase)
		out = append(out, complex(float32(cos), float32(sin)))
	}
	m.phase = math.Mod(phase, 2*math.Pi)
	return out
}
