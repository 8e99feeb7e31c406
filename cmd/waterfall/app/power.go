package app

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

const (
	defaultMinPower = -100.0 // dBFS
	defaultMaxPower = 0.0    // dBFS

	minimumSampleCount = 20
	minimumRangeDB     = 30
)

// spectralRow converts blocks of IQ samples to rows of power values in dBFS,
// one row per FFT. The Hamming window and FFT plan are reused across rows.
type spectralRow struct {
	fft      *fourier.CmplxFFT
	window   []float64
	winSum   float64
	windowed []complex128
}

func newSpectralRow(size int) *spectralRow {
	window := hamming(size)
	var sum float64
	for _, w := range window {
		sum += w
	}
	return &spectralRow{
		fft:      fourier.NewCmplxFFT(size),
		window:   window,
		winSum:   sum,
		windowed: make([]complex128, size),
	}
}

// compute windows samples, transforms them and appends the shifted power
// spectrum in dBFS to dst[:0].
func (s *spectralRow) compute(samples []complex64, dst []float64) []float64 {
	for i, v := range samples {
		s.windowed[i] = complex128(v) * complex(s.window[i], 0)
	}

	coeffs := s.fft.Coefficients(nil, s.windowed)
	for i := range coeffs {
		coeffs[i] /= complex(s.winSum, 0)
	}
	shifted := fftShift(coeffs)

	dst = dst[:0]
	for _, v := range shifted {
		mag := cmplx.Abs(v)
		if mag == 0 {
			dst = append(dst, math.Inf(-1))
			continue
		}
		dst = append(dst, 20*math.Log10(mag))
	}
	return dst
}

// fftShift reorders FFT output so that DC is centered.
func fftShift(data []complex128) []complex128 {
	half := len(data) / 2
	shifted := make([]complex128, 0, len(data))
	shifted = append(shifted, data[half:]...)
	return append(shifted, data[:half]...)
}

func hamming(n int) []float64 {
	window := make([]float64, n)
	for i := range window {
		window[i] = 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return window
}

// PowerBounds are the display limits of the color scale.
type PowerBounds struct {
	Min float64
	Max float64
}

func defaultPowerBounds() PowerBounds {
	return PowerBounds{Min: defaultMinPower, Max: defaultMaxPower}
}

// powerHistogram tracks the distribution of power values with 1 dB bins so
// display bounds can be picked from percentiles instead of outliers.
type powerHistogram struct {
	bins       map[int]uint64
	totalCount uint64
	minBin     int
	maxBin     int
}

func newPowerHistogram() *powerHistogram {
	return &powerHistogram{
		bins:   make(map[int]uint64),
		minBin: math.MaxInt32,
		maxBin: math.MinInt32,
	}
}

func (h *powerHistogram) Update(power float64) {
	if math.IsInf(power, 0) || math.IsNaN(power) {
		return
	}

	bin := int(math.Floor(power))
	h.bins[bin]++
	h.totalCount++

	if bin < h.minBin {
		h.minBin = bin
	}
	if bin > h.maxBin {
		h.maxBin = bin
	}
}

// PercentileBounds returns the 5th to 95th percentile power range, widened
// to at least 30 dB.
func (h *powerHistogram) PercentileBounds() PowerBounds {
	if h.totalCount < minimumSampleCount {
		return defaultPowerBounds()
	}

	target := h.totalCount * 5 / 100

	var count uint64
	min5th := h.minBin
	for bin := h.minBin; bin <= h.maxBin; bin++ {
		count += h.bins[bin]
		if count >= target {
			min5th = bin
			break
		}
	}

	count = 0
	max95th := h.maxBin
	for bin := h.maxBin; bin >= h.minBin; bin-- {
		count += h.bins[bin]
		if count >= target {
			max95th = bin
			break
		}
	}

	if max95th-min5th < minimumRangeDB {
		center := (max95th + min5th) / 2
		min5th = center - minimumRangeDB/2
		max95th = center + minimumRangeDB/2
	}

	margin := (max95th - min5th) / 10
	return PowerBounds{
		Min: float64(min5th - margin),
		Max: float64(max95th + margin),
	}
}
