// Package rtltcp talks to an rtl_tcp compatible server, exposing it as an
// sdr.Device. This is the cheapest path to real hardware: rtl_tcp ships with
// librtlsdr and equivalents exist for other radios (lms_tcp and friends). The
// protocol is a 12-byte dongle header followed by a stream of unsigned 8-bit
// interleaved I/Q samples; tuning commands are 5-byte messages with a
// big-endian argument. The device is receive-only.
package rtltcp

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/tejeez/sdrglue/internal/sdr"
)

const (
	cmdSetFrequency  = 0x01
	cmdSetSampleRate = 0x02
	cmdSetGainMode   = 0x03
	cmdSetGain       = 0x04
	cmdSetAGCMode    = 0x08

	headerMagic = "RTL0"
)

// Device implements sdr.Device over an rtl_tcp connection.
type Device struct {
	cfg     sdr.Config
	conn    net.Conn
	br      *bufio.Reader
	timeout time.Duration

	tunerType uint32
	gainCount uint32

	count   uint64
	readBuf []byte
	filled  int
}

// New connects to the server and applies the negotiated radio parameters.
func New(cfg sdr.Config, clientCfg *Config) (*Device, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("radio config: %w", err)
	}
	if err := clientCfg.Validate(); err != nil {
		return nil, fmt.Errorf("rtl_tcp config: %w", err)
	}

	conn, err := net.Dial("tcp", clientCfg.Address)
	if err != nil {
		return nil, fmt.Errorf("connecting to rtl_tcp server: %w", err)
	}

	d := &Device{
		cfg:     cfg,
		conn:    conn,
		br:      bufio.NewReaderSize(conn, 1<<18),
		timeout: clientCfg.readTimeout(),
		readBuf: make([]byte, cfg.BlockSize*2),
	}

	if err = d.readHeader(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err = d.configure(clientCfg); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return d, nil
}

func (d *Device) readHeader() error {
	var header [12]byte
	_ = d.conn.SetReadDeadline(time.Now().Add(d.timeout))
	if _, err := io.ReadFull(d.br, header[:]); err != nil {
		return fmt.Errorf("reading dongle header: %w", err)
	}
	if string(header[:4]) != headerMagic {
		return fmt.Errorf("unexpected dongle header magic %q", header[:4])
	}
	d.tunerType = binary.BigEndian.Uint32(header[4:8])
	d.gainCount = binary.BigEndian.Uint32(header[8:12])
	return nil
}

func (d *Device) configure(clientCfg *Config) error {
	if err := d.command(cmdSetSampleRate, uint32(d.cfg.SampleRate)); err != nil {
		return fmt.Errorf("setting sample rate: %w", err)
	}
	if err := d.command(cmdSetFrequency, uint32(d.cfg.RxCenterFrequency)); err != nil {
		return fmt.Errorf("setting center frequency: %w", err)
	}
	if clientCfg.AGC {
		if err := d.command(cmdSetGainMode, 0); err != nil {
			return fmt.Errorf("setting gain mode: %w", err)
		}
		if err := d.command(cmdSetAGCMode, 1); err != nil {
			return fmt.Errorf("enabling AGC: %w", err)
		}
		return nil
	}
	if err := d.command(cmdSetGainMode, 1); err != nil {
		return fmt.Errorf("setting gain mode: %w", err)
	}
	// Gain is expressed in tenths of a dB on the wire.
	if err := d.command(cmdSetGain, uint32(d.cfg.RxGain*10)); err != nil {
		return fmt.Errorf("setting gain: %w", err)
	}
	return nil
}

func (d *Device) command(opcode byte, arg uint32) error {
	var msg [5]byte
	msg[0] = opcode
	binary.BigEndian.PutUint32(msg[1:], arg)
	_, err := d.conn.Write(msg[:])
	return err
}

func (d *Device) Config() sdr.Config { return d.cfg }

// TunerType returns the tuner identifier from the dongle header.
func (d *Device) TunerType() uint32 { return d.tunerType }

func (d *Device) ReadBlock(ctx context.Context, b *sdr.WidebandBlock) error {
	if len(b.Samples) != d.cfg.BlockSize {
		return fmt.Errorf("block size %d does not match configured %d", len(b.Samples), d.cfg.BlockSize)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	_ = d.conn.SetReadDeadline(time.Now().Add(d.timeout))
	n, err := io.ReadFull(d.br, d.readBuf[d.filled:])
	if err != nil {
		// Keep whatever was read; the next call resumes filling at the same
		// offset so the I/Q byte pairing of the stream is preserved.
		d.filled += n
		if errors.Is(err, os.ErrDeadlineExceeded) {
			// The server stopped delivering at rate; the block is late but
			// the connection may recover.
			return fmt.Errorf("rtl_tcp stream stalled: %w", sdr.ErrOverrun)
		}
		return fmt.Errorf("reading IQ stream: %w", err)
	}
	d.filled = 0

	// No samples are dropped on a stall, only delayed, so the count advances
	// per delivered block.
	b.Count = d.count
	d.count += uint64(d.cfg.BlockSize)

	// Offset-binary u8 to [-1, 1] floats.
	for i := range b.Samples {
		re := (float32(d.readBuf[i*2]) - 127.5) / 127.5
		im := (float32(d.readBuf[i*2+1]) - 127.5) / 127.5
		b.Samples[i] = complex(re, im)
	}
	return nil
}

func (d *Device) WriteBlock(ctx context.Context, b *sdr.WidebandBlock) error {
	return sdr.ErrTxUnsupported
}

func (d *Device) Close() error {
	return d.conn.Close()
}
