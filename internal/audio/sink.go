package audio

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
)

// ErrBackpressure is returned by Sink.Send when the outgoing queue is full
// and the block was dropped instead of stalling the caller.
var ErrBackpressure = errors.New("audio sink queue full, block dropped")

const sinkQueueSize = 8

// Sink sends audio blocks to a fixed destination as UDP datagrams, one
// datagram per block. Sends happen on a background goroutine behind a bounded
// queue so a slow or unreachable consumer can never stall the caller; when
// the queue is full the block is dropped and counted. Nothing is retried or
// acknowledged.
type Sink struct {
	conn *net.UDPConn

	queue   chan []float32
	wg      sync.WaitGroup
	dropped atomic.Uint64
	sendErr atomic.Uint64

	closeOnce sync.Once
}

// NewSink connects a UDP socket to endpoint ("host:port").
func NewSink(endpoint string) (*Sink, error) {
	addr, err := net.ResolveUDPAddr("udp", endpoint)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", endpoint, err)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", endpoint, err)
	}

	s := &Sink{
		conn:  conn,
		queue: make(chan []float32, sinkQueueSize),
	}
	s.wg.Add(1)
	go s.sendLoop()
	return s, nil
}

func (s *Sink) sendLoop() {
	defer s.wg.Done()

	var buf []byte
	for samples := range s.queue {
		buf = EncodeS16LE(buf, samples)
		if _, err := s.conn.Write(buf); err != nil {
			s.sendErr.Add(1)
		}
	}
}

// Send queues one audio block for transmission. It never blocks; the block
// is copied. ErrBackpressure reports a dropped block so the caller can count
// it, but dropping is not fatal.
func (s *Sink) Send(samples []float32) error {
	cp := make([]float32, len(samples))
	copy(cp, samples)

	select {
	case s.queue <- cp:
		return nil
	default:
		s.dropped.Add(1)
		return ErrBackpressure
	}
}

// Dropped returns the number of blocks discarded due to backpressure.
func (s *Sink) Dropped() uint64 { return s.dropped.Load() }

// SendErrors returns the number of failed socket writes.
func (s *Sink) SendErrors() uint64 { return s.sendErr.Load() }

// Close drains the queue and releases the socket.
func (s *Sink) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.queue)
		s.wg.Wait()
		err = s.conn.Close()
	})
	return err
}
