package dsp

import (
	"math"
	"math/cmplx"
	"testing"
)

func TestNCO_Frequency(t *testing.T) {
	const sampleRate = 48000.0

	for _, freq := range []float64{1000, -6000, 12345} {
		nco := NewNCO(freq, sampleRate)

		src := make([]complex64, 1024)
		for i := range src {
			src[i] = 1
		}
		dst := make([]complex64, len(src))
		nco.Mix(dst, src)

		// The angle between consecutive oscillator samples is the frequency.
		want := 2 * math.Pi * freq / sampleRate
		for i := 1; i < len(dst); i++ {
			got := cmplx.Phase(complex128(dst[i]) * cmplx.Conj(complex128(dst[i-1])))
			if math.Abs(got-want) > 1e-4 {
				t.Fatalf("freq %.0f: phase step at sample %d = %f, want %f", freq, i, got, want)
			}
		}
	}
}

func TestNCO_PhaseContinuityAcrossBlocks(t *testing.T) {
	const sampleRate = 100000.0
	const freq = -17300.0

	src := make([]complex64, 2048)
	for i := range src {
		src[i] = complex(float32(math.Cos(float64(i)*0.01)), 0)
	}

	whole := make([]complex64, len(src))
	NewNCO(freq, sampleRate).Mix(whole, src)

	split := make([]complex64, len(src))
	nco := NewNCO(freq, sampleRate)
	half := len(src) / 2
	nco.Mix(split[:half], src[:half])
	nco.Mix(split[half:], src[half:])

	for i := range whole {
		if d := cmplx.Abs(complex128(whole[i] - split[i])); d > 1e-4 {
			t.Fatalf("sample %d differs by %g between whole and split processing", i, d)
		}
	}
}

func TestNCO_PhaseStaysBounded(t *testing.T) {
	nco := NewNCO(12000, 48000)
	src := make([]complex64, 4096)
	dst := make([]complex64, len(src))
	for i := range src {
		src[i] = 1
	}
	for i := 0; i < 100; i++ {
		nco.Mix(dst, src)
	}
	if math.Abs(nco.phase) > 2*math.Pi {
		t.Fatalf("phase accumulator not wrapped: %f", nco.phase)
	}
}

func TestNCO_NextPhaseStaysBounded(t *testing.T) {
	// A tone below center steps the phase negative; the accumulator must
	// wrap in both directions or it drifts without bound over a long run.
	for _, freq := range []float64{-6000, 6000} {
		nco := NewNCO(freq, 48000)
		for i := 0; i < 1_000_000; i++ {
			nco.Next()
		}
		if math.Abs(nco.phase) > 2*math.Pi {
			t.Fatalf("freq %.0f: phase accumulator not wrapped: %f", freq, nco.phase)
		}

		want := 2 * math.Pi * freq / 48000
		prev, cur := nco.Next(), nco.Next()
		got := cmplx.Phase(complex128(cur) * cmplx.Conj(complex128(prev)))
		if math.Abs(got-want) > 1e-4 {
			t.Fatalf("freq %.0f: phase step after long run = %f, want %f", freq, got, want)
		}
	}
}
