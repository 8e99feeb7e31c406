package pipeline

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/tejeez/sdrglue/internal/sdr"
)

// sineFeed supplies an endless audio tone through the AudioReader interface.
type sineFeed struct {
	phase     float64
	step      float64
	amplitude float64
}

func newSineFeed(frequency, sampleRate, amplitude float64) *sineFeed {
	return &sineFeed{step: 2 * math.Pi * frequency / sampleRate, amplitude: amplitude}
}

func (f *sineFeed) Pull(dst []float32) int {
	for i := range dst {
		dst[i] = float32(f.amplitude * math.Sin(f.phase))
		f.phase += f.step
	}
	f.phase = math.Mod(f.phase, 2*math.Pi)
	return len(dst)
}

// audioCollector gathers demodulated audio through the AudioWriter interface.
type audioCollector struct {
	samples []float32
}

func (c *audioCollector) Send(samples []float32) error {
	c.samples = append(c.samples, samples...)
	return nil
}

func basebandPower(samples []complex64) float64 {
	var p float64
	for _, s := range samples {
		p += float64(real(s))*float64(real(s)) + float64(imag(s))*float64(imag(s))
	}
	return p / float64(len(samples))
}

// TestTxRxSymmetry modulates a tone with the transmit chain, feeds the
// resulting wideband signal to a receive chain tuned to the same carrier,
// and checks that the demodulated audio is the original tone.
func TestTxRxSymmetry(t *testing.T) {
	radio := sdr.Config{
		SampleRate:        480_000,
		RxCenterFrequency: 100_000_000,
		TxCenterFrequency: 100_000_000,
		BlockSize:         4800,
	}
	const (
		carrier   = 100_060_000 // +60 kHz offset
		audioRate = 48000
		toneFreq  = 750
		toneAmp   = 0.5
	)

	txSpec := ChannelSpec{
		Direction:  DirectionTx,
		Frequency:  carrier,
		AudioRate:  audioRate,
		Modulation: ModulationFM,
		Endpoint:   "127.0.0.1:4010",
	}
	feed := newSineFeed(toneFreq, audioRate, toneAmp)
	tx, err := NewTxChannel(txSpec, radio, feed)
	if err != nil {
		t.Fatal(err)
	}

	rxSpec := txSpec
	rxSpec.Direction = DirectionRx
	collector := &audioCollector{}
	rx, err := NewRxChannel(rxSpec, radio, collector)
	if err != nil {
		t.Fatal(err)
	}

	block := sdr.NewWidebandBlock(radio.BlockSize)
	for i := 0; i < 12; i++ {
		copy(block.Samples, tx.process())
		block.Count = uint64(i * radio.BlockSize)
		if err := rx.process(block); err != nil {
			t.Fatal(err)
		}
	}

	// Skip the filter transients of both chains, then check spectral purity
	// over a window where the 750 Hz tone lands exactly on bin 64.
	const skip, window = 960, 4096
	if len(collector.samples) < skip+window {
		t.Fatalf("collected %d audio samples, need %d", len(collector.samples), skip+window)
	}
	seq := make([]float64, window)
	for i := range seq {
		seq[i] = float64(collector.samples[skip+i])
	}

	fft := fourier.NewFFT(window)
	coeffs := fft.Coefficients(nil, seq)

	toneBin := toneFreq * window / audioRate
	peak := cmplxAbs(coeffs[toneBin])

	// Demodulated amplitude is toneAmp scaled by deviation over half the
	// audio rate. Default deviation is audioRate/4, so the factor is 0.5.
	wantAmp := toneAmp * 0.5
	gotAmp := 2 * peak / window
	if math.Abs(gotAmp-wantAmp) > 0.02 {
		t.Errorf("tone amplitude = %f, want %f", gotAmp, wantAmp)
	}

	for bin := 1; bin < len(coeffs); bin++ {
		if bin == toneBin {
			continue
		}
		if a := cmplxAbs(coeffs[bin]); a > peak*0.05 {
			t.Errorf("spurious content at bin %d: %f of tone amplitude", bin, a/peak)
		}
	}
}

// TestChannelIsolation tunes two receive channels 200 kHz apart and feeds a
// signal on the first channel's carrier. The second channel's baseband must
// stay empty.
func TestChannelIsolation(t *testing.T) {
	radio := sdr.Config{
		SampleRate:        2_400_000,
		RxCenterFrequency: 434_000_000,
		TxCenterFrequency: 434_000_000,
		BlockSize:         4800,
	}
	const audioRate = 48000

	txSpec := ChannelSpec{
		Direction:  DirectionTx,
		Frequency:  434_100_000,
		AudioRate:  audioRate,
		Modulation: ModulationFM,
		Endpoint:   "127.0.0.1:4010",
	}
	tx, err := NewTxChannel(txSpec, radio, newSineFeed(750, audioRate, 0.5))
	if err != nil {
		t.Fatal(err)
	}

	newRx := func(frequency float64) *RxChannel {
		t.Helper()
		spec := ChannelSpec{
			Direction:  DirectionRx,
			Frequency:  frequency,
			AudioRate:  audioRate,
			Modulation: ModulationFM,
			Endpoint:   "127.0.0.1:4011",
		}
		ch, err := NewRxChannel(spec, radio, &audioCollector{})
		if err != nil {
			t.Fatal(err)
		}
		return ch
	}
	onChannel := newRx(434_100_000)
	offChannel := newRx(434_300_000)

	block := sdr.NewWidebandBlock(radio.BlockSize)
	var onPower, offPower float64
	for i := 0; i < 8; i++ {
		copy(block.Samples, tx.process())
		block.Count = uint64(i * radio.BlockSize)
		if err := onChannel.process(block); err != nil {
			t.Fatal(err)
		}
		if err := offChannel.process(block); err != nil {
			t.Fatal(err)
		}
		if i >= 4 { // past filter transients
			onPower += basebandPower(onChannel.baseband)
			offPower += basebandPower(offChannel.baseband)
		}
	}

	if onPower < 0.5 {
		t.Fatalf("tuned channel saw almost no signal: power %g", onPower)
	}
	if ratio := offPower / onPower; ratio > 1e-4 {
		t.Errorf("leakage between channels: off/on power ratio %g", ratio)
	}
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}
