package dsp

import "fmt"

// Interpolator raises the sample rate by an integer factor: zero-stuffing
// followed by an image-rejecting FIR low-pass, with gain compensation for the
// stuffed zeros. Like Decimator, its state persists across blocks and it is
// owned by exactly one channel pipeline.
type Interpolator struct {
	taps   []float64
	factor int

	history []complex64 // last len(taps)-1 stuffed-domain samples
	scratch []complex64
}

// NewInterpolator creates an interpolator with the given taps and factor.
func NewInterpolator(taps []float64, factor int) (*Interpolator, error) {
	if factor <= 0 {
		return nil, fmt.Errorf("interpolation factor must be positive: %d given", factor)
	}
	if len(taps) < 2 {
		return nil, fmt.Errorf("at least 2 filter taps required: %d given", len(taps))
	}
	return &Interpolator{
		taps:    taps,
		factor:  factor,
		history: make([]complex64, len(taps)-1),
	}, nil
}

// Factor returns the interpolation factor.
func (ip *Interpolator) Factor() int { return ip.factor }

// Process expands src by the interpolation factor into dst[:0]. The returned
// slice has exactly len(src)*factor samples.
func (ip *Interpolator) Process(dst, src []complex64) []complex64 {
	stuffed := len(src) * ip.factor
	need := len(ip.history) + stuffed
	if cap(ip.scratch) < need {
		ip.scratch = make([]complex64, need)
	}
	buf := ip.scratch[:need]
	copy(buf, ip.history)
	zs := buf[len(ip.history):]
	for i := range zs {
		zs[i] = 0
	}
	for i, s := range src {
		zs[i*ip.factor] = s
	}

	gain := float64(ip.factor)
	out := dst[:0]
	for n := 0; n < stuffed; n++ {
		var re, im float64
		for j, tap := range ip.taps {
			s := buf[n+j]
			if s == 0 {
				continue
			}
			re += float64(real(s)) * tap
			im += float64(imag(s)) * tap
		}
		out = append(out, complex(float32(re*gain), float32(im*gain)))
	}

	copy(ip.history, buf[len(buf)-len(ip.history):])
	return out
}
