package dsp

import "math"

// DesignLowpass creates low-pass FIR taps using the windowed-sinc method with
// a Hamming window. cutoff and sampleRate are in Hz. The taps are normalized
// to unity gain at DC.
func DesignLowpass(numTaps int, cutoff, sampleRate float64) []float64 {
	taps := make([]float64, numTaps)
	m := float64(numTaps - 1)
	// Cutoff as a fraction of the sample rate.
	fc := cutoff / sampleRate
	for n := 0; n < numTaps; n++ {
		x := float64(n) - m/2
		if x == 0 {
			taps[n] = 2 * fc
		} else {
			taps[n] = math.Sin(2*math.Pi*fc*x) / (math.Pi * x)
		}
		taps[n] *= 0.54 - 0.46*math.Cos(2*math.Pi*float64(n)/m)
	}
	sum := 0.0
	for _, t := range taps {
		sum += t
	}
	for i := range taps {
		taps[i] /= sum
	}
	return taps
}
