// Package iqfile reads and writes raw IQ recordings in cf32 format:
// interleaved little-endian float32 I/Q pairs, the common interchange format
// for SDR tooling. Recordings feed the waterfall renderer and the simulated
// device's playback mode.
package iqfile

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"sync"
	"sync/atomic"
)

const feedQueueSize = 16

// Writer appends IQ blocks to a cf32 file. Append is non-blocking: blocks are
// copied onto a bounded queue drained by a background goroutine, so a caller
// on a real-time path never waits on disk. Blocks that do not fit are dropped
// and counted.
type Writer struct {
	f  *os.File
	bw *bufio.Writer

	feed    chan []complex64
	wg      sync.WaitGroup
	dropped atomic.Uint64

	closeOnce sync.Once
	closeErr  error
	writeErr  atomic.Value // error
}

// NewWriter creates the file, truncating any existing recording.
func NewWriter(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating recording: %w", err)
	}

	w := &Writer{
		f:    f,
		bw:   bufio.NewWriterSize(f, 1<<20),
		feed: make(chan []complex64, feedQueueSize),
	}

	w.wg.Add(1)
	go w.drain()
	return w, nil
}

func (w *Writer) drain() {
	defer w.wg.Done()

	var buf []byte
	for samples := range w.feed {
		need := len(samples) * 8
		if cap(buf) < need {
			buf = make([]byte, need)
		}
		b := buf[:need]
		for i, s := range samples {
			binary.LittleEndian.PutUint32(b[i*8:], math.Float32bits(real(s)))
			binary.LittleEndian.PutUint32(b[i*8+4:], math.Float32bits(imag(s)))
		}
		if _, err := w.bw.Write(b); err != nil {
			w.writeErr.Store(err)
			return
		}
	}
}

// Append queues samples for writing. It copies the slice and returns false
// when the queue is full and the block was dropped.
func (w *Writer) Append(samples []complex64) bool {
	cp := make([]complex64, len(samples))
	copy(cp, samples)

	select {
	case w.feed <- cp:
		return true
	default:
		w.dropped.Add(1)
		return false
	}
}

// Dropped returns the number of blocks discarded because the disk could not
// keep up.
func (w *Writer) Dropped() uint64 {
	return w.dropped.Load()
}

// Close flushes queued blocks and closes the file. Safe to call more than
// once.
func (w *Writer) Close() error {
	w.closeOnce.Do(func() {
		close(w.feed)
		w.wg.Wait()

		if err, ok := w.writeErr.Load().(error); ok {
			w.closeErr = err
		}
		if err := w.bw.Flush(); err != nil && w.closeErr == nil {
			w.closeErr = err
		}
		if err := w.f.Close(); err != nil && w.closeErr == nil {
			w.closeErr = err
		}
	})
	return w.closeErr
}

// Reader streams complex samples from a cf32 file.
type Reader struct {
	f  *os.File
	br *bufio.Reader
}

// OpenReader opens a recording for reading.
func OpenReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening recording: %w", err)
	}
	return &Reader{f: f, br: bufio.NewReaderSize(f, 1<<20)}, nil
}

// ReadBlock fills dst with samples from the file and returns the number of
// complete samples read. io.EOF is returned once the file is exhausted; a
// trailing partial sample is discarded.
func (r *Reader) ReadBlock(dst []complex64) (int, error) {
	buf := make([]byte, len(dst)*8)
	n, err := io.ReadFull(r.br, buf)
	samples := n / 8
	for i := 0; i < samples; i++ {
		re := math.Float32frombits(binary.LittleEndian.Uint32(buf[i*8:]))
		im := math.Float32frombits(binary.LittleEndian.Uint32(buf[i*8+4:]))
		dst[i] = complex(re, im)
	}
	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	if samples > 0 && err == io.EOF {
		// Report the short block now, EOF on the next call.
		return samples, nil
	}
	return samples, err
}

// Rewind seeks back to the start of the recording.
func (r *Reader) Rewind() error {
	if _, err := r.f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	r.br.Reset(r.f)
	return nil
}

func (r *Reader) Close() error {
	return r.f.Close()
}
