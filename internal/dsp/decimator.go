package dsp

import "fmt"

// Decimator is a stateful FIR low-pass filter combined with integer
// decimation. The delay line persists across blocks so a signal processed
// block-by-block equals the same signal processed in one call. It is owned
// by a single channel pipeline and is not safe for concurrent use.
type Decimator struct {
	taps   []float64
	factor int

	// history holds the last len(taps)-1 input samples of the previous
	// block, prepended to the next block's input.
	history []complex64
	scratch []complex64
}

// NewDecimator creates a decimator with the given taps and factor. Input
// block lengths must be a multiple of factor.
func NewDecimator(taps []float64, factor int) (*Decimator, error) {
	if factor <= 0 {
		return nil, fmt.Errorf("decimation factor must be positive: %d given", factor)
	}
	if len(taps) < 2 {
		return nil, fmt.Errorf("at least 2 filter taps required: %d given", len(taps))
	}
	return &Decimator{
		taps:    taps,
		factor:  factor,
		history: make([]complex64, len(taps)-1),
	}, nil
}

// Factor returns the decimation factor.
func (d *Decimator) Factor() int { return d.factor }

// Process filters src and keeps every factor-th output sample, appending
// results to dst[:0]. The returned slice has exactly len(src)/factor samples.
func (d *Decimator) Process(dst, src []complex64) ([]complex64, error) {
	if len(src)%d.factor != 0 {
		return nil, fmt.Errorf("input length %d is not a multiple of decimation factor %d", len(src), d.factor)
	}

	need := len(d.history) + len(src)
	if cap(d.scratch) < need {
		d.scratch = make([]complex64, need)
	}
	buf := d.scratch[:need]
	copy(buf, d.history)
	copy(buf[len(d.history):], src)

	out := dst[:0]
	for n := 0; n < len(src); n += d.factor {
		var re, im float64
		for j, tap := range d.taps {
			s := buf[n+j]
			re += float64(real(s)) * tap
			im += float64(imag(s)) * tap
		}
		out = append(out, complex(float32(re), float32(im)))
	}

	copy(d.history, buf[len(buf)-len(d.history):])
	return out, nil
}
