package audio

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
)

const (
	sourceQueueSize = 64
	maxDatagramSize = 65536
)

// Source receives audio datagrams on a bound UDP socket. A reader goroutine
// decodes arriving datagrams onto a bounded queue; Pull assembles whatever
// has arrived into the caller's buffer without blocking. Missing or
// out-of-order datagrams are simply used as they come, with no reordering
// buffer; when the queue overflows the oldest datagram is discarded.
type Source struct {
	conn *net.UDPConn

	queue    chan []float32
	leftover []float32

	dropped atomic.Uint64
	recvErr atomic.Uint64

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewSource binds a UDP socket on endpoint ("host:port") and starts
// receiving.
func NewSource(endpoint string) (*Source, error) {
	addr, err := net.ResolveUDPAddr("udp", endpoint)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", endpoint, err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("binding %s: %w", endpoint, err)
	}

	s := &Source{
		conn:  conn,
		queue: make(chan []float32, sourceQueueSize),
	}
	s.wg.Add(1)
	go s.receiveLoop()
	return s, nil
}

func (s *Source) receiveLoop() {
	defer s.wg.Done()

	buf := make([]byte, maxDatagramSize)
	for {
		n, _, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.recvErr.Add(1)
			continue
		}
		if n == 0 {
			continue
		}

		samples := DecodeS16LE(nil, buf[:n])
		for {
			select {
			case s.queue <- samples:
			default:
				// Queue full: discard the oldest datagram to make room so
				// a stalled consumer converges to fresh audio.
				select {
				case <-s.queue:
					s.dropped.Add(1)
				default:
				}
				continue
			}
			break
		}
	}
}

// Pull copies up to len(dst) received samples into dst and returns how many
// were filled. It never blocks; when less audio has arrived than requested
// the caller pads with silence.
func (s *Source) Pull(dst []float32) int {
	n := copy(dst, s.leftover)
	s.leftover = s.leftover[n:]

	for n < len(dst) {
		select {
		case samples := <-s.queue:
			c := copy(dst[n:], samples)
			n += c
			if c < len(samples) {
				s.leftover = samples[c:]
			}
		default:
			return n
		}
	}
	return n
}

// Dropped returns the number of datagrams discarded due to queue overflow.
func (s *Source) Dropped() uint64 { return s.dropped.Load() }

// ReceiveErrors returns the number of failed socket reads.
func (s *Source) ReceiveErrors() uint64 { return s.recvErr.Load() }

// LocalAddr returns the bound address, useful when the port was chosen by
// the system.
func (s *Source) LocalAddr() net.Addr { return s.conn.LocalAddr() }

// Close releases the socket and stops the receive goroutine.
func (s *Source) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.conn.Close()
		s.wg.Wait()
	})
	return err
}
