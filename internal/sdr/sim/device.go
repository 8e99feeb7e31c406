// Package sim implements a deterministic simulated radio. It stands in for
// hardware in tests and offline runs: the receive stream is a synthesized sum
// of configured tones, optionally mixed with a cf32 recording, and transmit
// blocks are discarded or captured to a file. Correctness testing of the
// processing core runs entirely against this device.
package sim

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/tejeez/sdrglue/internal/dsp"
	"github.com/tejeez/sdrglue/internal/iqfile"
	"github.com/tejeez/sdrglue/internal/sdr"
)

type toneGen struct {
	nco       *dsp.NCO
	amplitude float32
}

// Device implements sdr.Device.
type Device struct {
	cfg    sdr.Config
	simCfg Config

	tones    []toneGen
	playback *iqfile.Reader
	loop     bool
	capture  *iqfile.Writer

	rxCount uint64
	txCount uint64

	// overruns holds block counts at which ReadBlock reports a forced
	// overrun, for exercising error paths in tests.
	overruns map[uint64]struct{}

	started  time.Time
	realtime bool

	playBuf []complex64
}

// New opens a simulated device with the negotiated radio parameters.
func New(cfg sdr.Config, simCfg *Config) (*Device, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("radio config: %w", err)
	}
	if err := simCfg.Validate(); err != nil {
		return nil, fmt.Errorf("sim config: %w", err)
	}

	d := &Device{
		cfg:      cfg,
		simCfg:   *simCfg,
		overruns: make(map[uint64]struct{}),
		realtime: simCfg.Realtime,
		started:  time.Now(),
	}

	for _, tone := range simCfg.Tones {
		d.tones = append(d.tones, toneGen{
			nco:       dsp.NewNCO(tone.Frequency-cfg.RxCenterFrequency, cfg.SampleRate),
			amplitude: float32(tone.Amplitude),
		})
	}

	if simCfg.Playback != "" {
		r, err := iqfile.OpenReader(simCfg.Playback)
		if err != nil {
			return nil, err
		}
		d.playback = r
		d.loop = simCfg.Loop
		d.playBuf = make([]complex64, cfg.BlockSize)
	}

	if simCfg.TxCapture != "" {
		w, err := iqfile.NewWriter(simCfg.TxCapture)
		if err != nil {
			return nil, err
		}
		d.capture = w
	}

	return d, nil
}

// ForceOverrunAt makes ReadBlock report an overrun for the block whose first
// sample has the given count. The block's samples are considered lost.
func (d *Device) ForceOverrunAt(count uint64) {
	d.overruns[count] = struct{}{}
}

func (d *Device) Config() sdr.Config { return d.cfg }

func (d *Device) ReadBlock(ctx context.Context, b *sdr.WidebandBlock) error {
	if len(b.Samples) != d.cfg.BlockSize {
		return fmt.Errorf("block size %d does not match configured %d", len(b.Samples), d.cfg.BlockSize)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if d.realtime {
		due := d.started.Add(time.Duration(float64(d.rxCount) / d.cfg.SampleRate * float64(time.Second)))
		if wait := time.Until(due); wait > 0 {
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	b.Count = d.rxCount
	d.rxCount += uint64(d.cfg.BlockSize)

	if _, drop := d.overruns[b.Count]; drop {
		// Samples for this block are lost but the clock keeps running.
		return fmt.Errorf("simulated device: %w", sdr.ErrOverrun)
	}

	for i := range b.Samples {
		b.Samples[i] = 0
	}

	if d.playback != nil {
		if err := d.fillPlayback(b.Samples); err != nil {
			return err
		}
	}

	for i := range d.tones {
		t := &d.tones[i]
		for j := range b.Samples {
			b.Samples[j] += t.nco.Next() * complex(t.amplitude, 0)
		}
	}

	return nil
}

func (d *Device) fillPlayback(dst []complex64) error {
	buf := d.playBuf
	filled := 0
	for filled < len(dst) {
		n, err := d.playback.ReadBlock(buf[:len(dst)-filled])
		for i := 0; i < n; i++ {
			dst[filled+i] += buf[i]
		}
		filled += n
		if err == io.EOF {
			if !d.loop {
				return fmt.Errorf("playback exhausted: %w", sdr.ErrOverrun)
			}
			if err = d.playback.Rewind(); err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
	}
	return nil
}

func (d *Device) WriteBlock(ctx context.Context, b *sdr.WidebandBlock) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.txCount += uint64(len(b.Samples))
	if d.capture != nil {
		d.capture.Append(b.Samples)
	}
	return nil
}

func (d *Device) Close() error {
	if d.playback != nil {
		_ = d.playback.Close()
	}
	if d.capture != nil {
		return d.capture.Close()
	}
	return nil
}
