package pipeline

import (
	"fmt"

	"github.com/tejeez/sdrglue/internal/dsp"
	"github.com/tejeez/sdrglue/internal/sdr"
)

// AudioWriter delivers one block of demodulated audio. Implementations must
// not block; audio.Sink satisfies the interface.
type AudioWriter interface {
	Send(samples []float32) error
}

// AudioReader supplies queued transmit audio. Implementations must not
// block; audio.Source satisfies the interface.
type AudioReader interface {
	Pull(dst []float32) int
}

// firTapsPerPhase sets the lowpass filter length as a multiple of the rate
// change factor, keeping the transition band proportional to the channel
// bandwidth regardless of the wideband rate.
const firTapsPerPhase = 8

// RxChannel shifts one narrowband channel to baseband, decimates it to the
// audio rate and demodulates it. All state carries across blocks so a
// channel processed block by block produces the same samples as one
// processed in a single pass.
type RxChannel struct {
	spec  ChannelSpec
	nco   *dsp.NCO
	dec   *dsp.Decimator
	demod *dsp.FMDemodulator
	out   AudioWriter

	mixed    []complex64
	baseband []complex64
	audio    []float32
}

func NewRxChannel(spec ChannelSpec, radio sdr.Config, out AudioWriter) (*RxChannel, error) {
	if err := spec.Validate(radio); err != nil {
		return nil, err
	}
	if spec.Direction != DirectionRx {
		return nil, fmt.Errorf("channel %s: not a receive channel", spec.Label())
	}

	factor := spec.Factor(radio)
	taps := dsp.DesignLowpass(firTapsPerPhase*factor+1, 0.45*spec.AudioRate, radio.SampleRate)
	dec, err := dsp.NewDecimator(taps, factor)
	if err != nil {
		return nil, fmt.Errorf("channel %s: %w", spec.Label(), err)
	}

	return &RxChannel{
		spec:  spec,
		nco:   dsp.NewNCO(-spec.Offset(radio), radio.SampleRate),
		dec:   dec,
		demod: dsp.NewFMDemodulator(),
		out:   out,

		mixed:    make([]complex64, radio.BlockSize),
		baseband: make([]complex64, 0, radio.BlockSize/factor),
		audio:    make([]float32, 0, radio.BlockSize/factor),
	}, nil
}

// Spec returns the channel's configuration.
func (c *RxChannel) Spec() ChannelSpec { return c.spec }

// process consumes one wideband block and sends the resulting audio. A send
// failure is reported but never stops the pipeline.
func (c *RxChannel) process(block *sdr.WidebandBlock) error {
	c.nco.Mix(c.mixed, block.Samples)

	baseband, err := c.dec.Process(c.baseband, c.mixed)
	if err != nil {
		return fmt.Errorf("channel %s: %w", c.spec.Label(), err)
	}
	c.baseband = baseband

	c.audio = c.demod.Process(c.audio, baseband)
	if err := c.out.Send(c.audio); err != nil {
		return fmt.Errorf("channel %s: %w", c.spec.Label(), err)
	}
	return nil
}

// TxChannel modulates queued audio and shifts it to the channel's offset
// within the wideband transmit stream. When the queue runs dry the
// remainder of the block is modulated from silence, which keeps the carrier
// phase continuous.
type TxChannel struct {
	spec   ChannelSpec
	in     AudioReader
	mod    *dsp.FMModulator
	interp *dsp.Interpolator
	nco    *dsp.NCO

	audio    []float32
	baseband []complex64
	wideband []complex64
}

func NewTxChannel(spec ChannelSpec, radio sdr.Config, in AudioReader) (*TxChannel, error) {
	if err := spec.Validate(radio); err != nil {
		return nil, err
	}
	if spec.Direction != DirectionTx {
		return nil, fmt.Errorf("channel %s: not a transmit channel", spec.Label())
	}

	factor := spec.Factor(radio)
	taps := dsp.DesignLowpass(firTapsPerPhase*factor+1, 0.45*spec.AudioRate, radio.SampleRate)
	interp, err := dsp.NewInterpolator(taps, factor)
	if err != nil {
		return nil, fmt.Errorf("channel %s: %w", spec.Label(), err)
	}

	return &TxChannel{
		spec:   spec,
		in:     in,
		mod:    dsp.NewFMModulator(spec.deviation(), spec.AudioRate),
		interp: interp,
		nco:    dsp.NewNCO(spec.Offset(radio), radio.SampleRate),

		audio:    make([]float32, radio.BlockSize/factor),
		baseband: make([]complex64, 0, radio.BlockSize/factor),
		wideband: make([]complex64, 0, radio.BlockSize),
	}, nil
}

// Spec returns the channel's configuration.
func (c *TxChannel) Spec() ChannelSpec { return c.spec }

// process produces this channel's contribution to one wideband transmit
// block. The returned slice is owned by the channel and valid until the
// next call.
func (c *TxChannel) process() []complex64 {
	n := c.in.Pull(c.audio)
	for i := n; i < len(c.audio); i++ {
		c.audio[i] = 0
	}

	c.baseband = c.mod.Process(c.baseband, c.audio)
	c.wideband = c.interp.Process(c.wideband, c.baseband)
	c.nco.Mix(c.wideband, c.wideband)
	return c.wideband
}
