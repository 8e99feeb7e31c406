package dsp

import "math"

// NCO is a numerically controlled oscillator: a phase accumulator advanced by
// a fixed step per sample, used to shift a signal in frequency. The phase is
// carried across blocks so that a channel mixed block-by-block is free of
// discontinuities at block boundaries.
type NCO struct {
	phase float64 // radians
	step  float64 // radians per sample
}

// NewNCO creates an oscillator at the given frequency in Hz. A negative
// frequency shifts down, a positive one shifts up. Phase starts at zero.
func NewNCO(frequency, sampleRate float64) *NCO {
	return &NCO{step: 2 * math.Pi * frequency / sampleRate}
}

// Mix multiplies src element-wise by the oscillator and stores the result in
// dst. dst and src may be the same slice. The accumulator continues from the
// previous call.
func (n *NCO) Mix(dst, src []complex64) {
	phase := n.phase
	for i, s := range src {
		sin, cos := math.Sincos(phase)
		dst[i] = s * complex(float32(cos), float32(sin))
		phase += n.step
	}
	// Keep the accumulator bounded so float error does not grow over a long
	// run. Wrapping by whole turns preserves continuity.
	n.phase = math.Mod(phase, 2*math.Pi)
}

// Next returns the next oscillator sample and advances the phase.
func (n *NCO) Next() complex64 {
	sin, cos := math.Sincos(n.phase)
	n.phase = math.Mod(n.phase+n.step, 2*math.Pi)
	return complex(float32(cos), float32(sin))
}
