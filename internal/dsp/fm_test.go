package dsp

import (
	"math"
	"testing"
)

func TestFM_RoundTrip(t *testing.T) {
	const (
		sampleRate = 48000.0
		deviation  = 12000.0
		audioFreq  = 1000.0
	)

	audio := make([]float32, 4800)
	for i := range audio {
		audio[i] = float32(0.8 * math.Sin(2*math.Pi*audioFreq*float64(i)/sampleRate))
	}

	mod := NewFMModulator(deviation, sampleRate)
	iq := mod.Process(nil, audio)
	if len(iq) != len(audio) {
		t.Fatalf("modulator output length = %d, want %d", len(iq), len(audio))
	}

	demod := NewFMDemodulator()
	got := demod.Process(nil, iq)

	// The discriminator output is audio scaled by deviation/(rate/2).
	scale := deviation / (sampleRate / 2)
	for i := 1; i < len(audio); i++ {
		want := float64(audio[i]) * scale
		if math.Abs(float64(got[i])-want) > 1e-3 {
			t.Fatalf("sample %d: demodulated %f, want %f", i, got[i], want)
		}
	}
}

func TestFMDemodulator_ToneGivesConstantFrequency(t *testing.T) {
	const sampleRate = 48000.0
	const offset = 3000.0

	iq := make([]complex64, 2048)
	for i := range iq {
		phase := 2 * math.Pi * offset * float64(i) / sampleRate
		iq[i] = complex(float32(math.Cos(phase)), float32(math.Sin(phase)))
	}

	demod := NewFMDemodulator()

	// Process in two blocks; a tone must produce the same instantaneous
	// frequency estimate at the block boundary as anywhere else.
	out := demod.Process(nil, iq[:1024])
	out = append(out, demod.Process(nil, iq[1024:])...)

	want := offset / (sampleRate / 2)
	for i := 1; i < len(out); i++ {
		if math.Abs(float64(out[i])-want) > 1e-4 {
			t.Fatalf("sample %d: instantaneous frequency %f, want %f", i, out[i], want)
		}
	}
}

func TestFMModulator_UnitAmplitude(t *testing.T) {
	mod := NewFMModulator(5000, 48000)
	audio := make([]float32, 256)
	for i := range audio {
		audio[i] = float32(i%7) / 7
	}
	for i, s := range mod.Process(nil, audio) {
		mag := math.Hypot(float64(real(s)), float64(imag(s)))
		if math.Abs(mag-1) > 1e-5 {
			t.Fatalf("sample %d: magnitude %f, want 1", i, mag)
		}
	}
}
