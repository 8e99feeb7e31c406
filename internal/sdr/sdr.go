package sdr

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrOverrun is reported by a device when it failed to deliver received
	// samples at the configured rate. The block is not delivered; whether its
	// samples are lost or merely late is up to the device, so callers count
	// the event and move on.
	ErrOverrun = errors.New("receive overrun")

	// ErrUnderrun is reported by a device when transmit samples were not
	// supplied in time to keep the hardware sample clock fed.
	ErrUnderrun = errors.New("transmit underrun")

	// ErrTxUnsupported is returned by receive-only devices from WriteBlock.
	ErrTxUnsupported = errors.New("device does not support transmit")
)

// WidebandBlock is a fixed-length block of complex samples at the radio's
// native rate. Count is the index of the first sample in the device's
// monotonic sample clock. Blocks handed out by ReadBlock are read-only for
// the consumers they are fanned out to.
type WidebandBlock struct {
	Count   uint64
	Samples []complex64
}

// NewWidebandBlock allocates a block of the given size.
func NewWidebandBlock(size int) *WidebandBlock {
	return &WidebandBlock{Samples: make([]complex64, size)}
}

// Config holds the device parameters negotiated once at startup. They are
// fixed for the lifetime of the stream.
type Config struct {
	SampleRate        float64 `yaml:"sampleRate"`
	RxCenterFrequency float64 `yaml:"rxCenterFrequency"`
	TxCenterFrequency float64 `yaml:"txCenterFrequency"`
	RxGain            float64 `yaml:"rxGain"`
	TxGain            float64 `yaml:"txGain"`
	BlockSize         int     `yaml:"blockSize"`
}

// Validate checks the parameters common to all drivers.
func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive: %f given", c.SampleRate)
	}
	if c.BlockSize <= 0 {
		return fmt.Errorf("block size must be positive: %d given", c.BlockSize)
	}
	if c.RxCenterFrequency < 0 || c.TxCenterFrequency < 0 {
		return fmt.Errorf("center frequency must not be negative")
	}
	return nil
}

// Device is the boundary to SDR hardware (or a simulation of it). ReadBlock
// and WriteBlock are each single-owner: exactly one goroutine issues reads
// and exactly one issues writes, though these may be different goroutines on
// duplex hardware.
type Device interface {
	// Config returns the parameters the device was opened with.
	Config() Config

	// ReadBlock fills b.Samples (len must equal BlockSize) with the next
	// received samples and stamps b.Count. A wrapped ErrOverrun means the
	// device fell behind the rate; the stream remains usable for the next
	// read.
	ReadBlock(ctx context.Context, b *WidebandBlock) error

	// WriteBlock queues b for transmission. A wrapped ErrUnderrun means the
	// block was late; the stream remains usable.
	WriteBlock(ctx context.Context, b *WidebandBlock) error

	Close() error
}
