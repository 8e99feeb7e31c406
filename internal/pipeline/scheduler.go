// Package pipeline splits one wideband SDR stream into independently tuned
// narrowband channels and drives them in real time. A single scheduler owns
// the device: every wideband block is read once, fanned out to all channels
// in parallel, and the transmit contributions are summed back into one
// output block. Channel processing never blocks on the network; falling
// behind costs counted drops, not stream time.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/tejeez/sdrglue/internal/audio"
	"github.com/tejeez/sdrglue/internal/iqfile"
	"github.com/tejeez/sdrglue/internal/sdr"
)

// maxConsecutiveReadErrors aborts the run when the device fails this many
// blocks in a row. Isolated failures are counted and skipped.
const maxConsecutiveReadErrors = 10

// statsQueueSize bounds snapshots waiting for a slow stats sink.
const statsQueueSize = 4

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// WithWorkers fixes the size of the channel worker pool. Defaults to the
// smaller of GOMAXPROCS and the channel count.
func WithWorkers(n int) Option {
	return func(s *Scheduler) {
		s.workers = n
	}
}

// WithRecorder copies every received wideband block to w. The writer's own
// queue keeps recording off the real-time path; the scheduler does not close
// it.
func WithRecorder(w *iqfile.Writer) Option {
	return func(s *Scheduler) {
		s.recorder = w
	}
}

// WithStatsInterval sets how often counters are logged and published.
// Defaults to one minute; zero disables periodic stats.
func WithStatsInterval(interval time.Duration) Option {
	return func(s *Scheduler) {
		s.statsInterval = interval
	}
}

// WithStatsSink publishes periodic snapshots to fn. fn runs on its own
// goroutine and may block; snapshots are dropped when it lags.
func WithStatsSink(fn func(Snapshot)) Option {
	return func(s *Scheduler) {
		s.statsSink = fn
	}
}

// WithMaxBlocks stops the run after n blocks have been processed. Zero, the
// default, runs until the context is cancelled.
func WithMaxBlocks(n uint64) Option {
	return func(s *Scheduler) {
		s.maxBlocks = n
	}
}

// Scheduler owns the radio device and a set of channels. Configure channels
// with AddChannel before calling Run; the channel set is fixed while running.
type Scheduler struct {
	device sdr.Device
	radio  sdr.Config
	logger *slog.Logger

	workers       int
	recorder      *iqfile.Writer
	statsInterval time.Duration
	statsSink     func(Snapshot)
	maxBlocks     uint64

	rx      []*RxChannel
	tx      []*TxChannel
	sinks   []*audio.Sink
	sources []*audio.Source

	blocks         atomic.Uint64
	samples        atomic.Uint64
	overruns       atomic.Uint64
	underruns      atomic.Uint64
	readErrors     atomic.Uint64
	deadlineMisses atomic.Uint64

	closeOnce sync.Once
}

func NewScheduler(device sdr.Device, options ...Option) *Scheduler {
	s := &Scheduler{
		device:        device,
		radio:         device.Config(),
		logger:        slog.Default(),
		statsInterval: time.Minute,
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// AddChannel validates spec against the radio configuration, opens its UDP
// endpoint and builds the processing chain. An invalid spec leaves the
// scheduler unchanged.
func (s *Scheduler) AddChannel(spec ChannelSpec) error {
	if err := spec.Validate(s.radio); err != nil {
		return err
	}

	switch spec.Direction {
	case DirectionRx:
		sink, err := audio.NewSink(spec.Endpoint)
		if err != nil {
			return fmt.Errorf("channel %s: %w", spec.Label(), err)
		}
		ch, err := NewRxChannel(spec, s.radio, sink)
		if err != nil {
			sink.Close()
			return err
		}
		s.rx = append(s.rx, ch)
		s.sinks = append(s.sinks, sink)

	case DirectionTx:
		source, err := audio.NewSource(spec.Endpoint)
		if err != nil {
			return fmt.Errorf("channel %s: %w", spec.Label(), err)
		}
		ch, err := NewTxChannel(spec, s.radio, source)
		if err != nil {
			source.Close()
			return err
		}
		s.tx = append(s.tx, ch)
		s.sources = append(s.sources, source)
	}

	s.logger.Info("channel configured",
		slog.String("channel", spec.Label()),
		slog.String("direction", string(spec.Direction)),
		slog.String("frequency", humanize.SIWithDigits(spec.Frequency, 4, "Hz")),
		slog.String("offset", humanize.SIWithDigits(spec.Offset(s.radio), 4, "Hz")),
		slog.String("audioRate", humanize.SIWithDigits(spec.AudioRate, 4, "Hz")),
		slog.Int("factor", spec.Factor(s.radio)))
	return nil
}

// Run drives the device until ctx is cancelled, the block limit is reached,
// or the device fails repeatedly. The returned error is nil on a clean stop.
func (s *Scheduler) Run(ctx context.Context) error {
	nchan := len(s.rx) + len(s.tx)
	if nchan == 0 {
		return errors.New("no channels configured")
	}

	workers := s.workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > nchan {
		workers = nchan
	}

	jobs := make(chan func())
	var pool sync.WaitGroup
	for i := 0; i < workers; i++ {
		pool.Add(1)
		go func() {
			defer pool.Done()
			for job := range jobs {
				job()
			}
		}()
	}
	defer func() {
		close(jobs)
		pool.Wait()
	}()

	var statsQueue chan Snapshot
	if s.statsSink != nil {
		statsQueue = make(chan Snapshot, statsQueueSize)
		var statsDone sync.WaitGroup
		statsDone.Add(1)
		go func() {
			defer statsDone.Done()
			for snap := range statsQueue {
				s.statsSink(snap)
			}
		}()
		defer func() {
			close(statsQueue)
			statsDone.Wait()
		}()
	}

	// Real-time budget of one block. Processing a block longer than this
	// means the pipeline cannot keep up with the stream.
	budget := time.Duration(float64(s.radio.BlockSize) / s.radio.SampleRate * float64(time.Second))

	s.logger.Info("scheduler running",
		slog.Int("rxChannels", len(s.rx)),
		slog.Int("txChannels", len(s.tx)),
		slog.Int("workers", workers),
		slog.String("sampleRate", humanize.SIWithDigits(s.radio.SampleRate, 4, "Hz")),
		slog.Int("blockSize", s.radio.BlockSize),
		slog.Duration("blockBudget", budget))

	block := sdr.NewWidebandBlock(s.radio.BlockSize)
	txBlock := sdr.NewWidebandBlock(s.radio.BlockSize)
	txContribs := make([][]complex64, len(s.tx))

	consecutive := 0
	lastStats := time.Now()

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		if s.maxBlocks > 0 && s.blocks.Load() >= s.maxBlocks {
			return nil
		}

		err := s.device.ReadBlock(ctx, block)
		switch {
		case err == nil:
			consecutive = 0

		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			return nil

		case errors.Is(err, sdr.ErrOverrun):
			s.overruns.Add(1)
			consecutive++
			s.logger.Warn("input overrun", slog.Uint64("block", block.Count), slog.Any("error", err))
			if consecutive >= maxConsecutiveReadErrors {
				return fmt.Errorf("device failed %d blocks in a row: %w", consecutive, err)
			}
			continue

		default:
			s.readErrors.Add(1)
			consecutive++
			s.logger.Error("device read failed", slog.Uint64("block", block.Count), slog.Any("error", err))
			if consecutive >= maxConsecutiveReadErrors {
				return fmt.Errorf("device failed %d blocks in a row: %w", consecutive, err)
			}
			continue
		}

		start := time.Now()

		var wg sync.WaitGroup
		for _, ch := range s.rx {
			ch := ch
			wg.Add(1)
			jobs <- func() {
				defer wg.Done()
				if err := ch.process(block); err != nil && !errors.Is(err, audio.ErrBackpressure) {
					s.logger.Warn("channel failed", slog.Any("error", err))
				}
			}
		}
		for i, ch := range s.tx {
			i, ch := i, ch
			wg.Add(1)
			jobs <- func() {
				defer wg.Done()
				txContribs[i] = ch.process()
			}
		}
		wg.Wait()

		if len(s.tx) > 0 {
			sum := txBlock.Samples
			for i := range sum {
				sum[i] = 0
			}
			for _, contrib := range txContribs {
				for i, v := range contrib {
					sum[i] += v
				}
			}
			txBlock.Count = block.Count
			switch err := s.device.WriteBlock(ctx, txBlock); {
			case err == nil:
			case errors.Is(err, sdr.ErrUnderrun):
				s.underruns.Add(1)
				s.logger.Warn("output underrun", slog.Uint64("block", txBlock.Count))
			case errors.Is(err, sdr.ErrTxUnsupported):
				return fmt.Errorf("transmit channels configured but: %w", err)
			default:
				s.logger.Error("device write failed", slog.Uint64("block", txBlock.Count), slog.Any("error", err))
			}
		}

		if s.recorder != nil {
			s.recorder.Append(block.Samples)
		}

		if elapsed := time.Since(start); elapsed > budget {
			s.deadlineMisses.Add(1)
			s.logger.Warn("deadline missed",
				slog.Uint64("block", block.Count),
				slog.Duration("elapsed", elapsed),
				slog.Duration("budget", budget))
		}

		s.blocks.Add(1)
		s.samples.Add(uint64(len(block.Samples)))

		if s.statsInterval > 0 && time.Since(lastStats) >= s.statsInterval {
			lastStats = time.Now()
			snap := s.Stats()
			s.logStats(snap)
			if statsQueue != nil {
				select {
				case statsQueue <- snap:
				default:
				}
			}
		}
	}
}

// Stats returns a snapshot of the run so far. Safe to call from any
// goroutine, including while Run is active.
func (s *Scheduler) Stats() Snapshot {
	snap := Snapshot{
		Timestamp:      time.Now(),
		Blocks:         s.blocks.Load(),
		Samples:        s.samples.Load(),
		Overruns:       s.overruns.Load(),
		Underruns:      s.underruns.Load(),
		ReadErrors:     s.readErrors.Load(),
		DeadlineMisses: s.deadlineMisses.Load(),
		Channels:       len(s.rx) + len(s.tx),
	}
	for _, sink := range s.sinks {
		snap.SendErrors += sink.SendErrors()
		snap.AudioDrops += sink.Dropped()
	}
	for _, source := range s.sources {
		snap.AudioDrops += source.Dropped()
	}
	if s.recorder != nil {
		snap.RecorderDrops = s.recorder.Dropped()
	}
	return snap
}

func (s *Scheduler) logStats(snap Snapshot) {
	s.logger.Info("pipeline stats",
		slog.String("blocks", humanize.Comma(int64(snap.Blocks))),
		slog.String("samples", humanize.Comma(int64(snap.Samples))),
		slog.Uint64("overruns", snap.Overruns),
		slog.Uint64("underruns", snap.Underruns),
		slog.Uint64("readErrors", snap.ReadErrors),
		slog.Uint64("deadlineMisses", snap.DeadlineMisses),
		slog.Uint64("audioDrops", snap.AudioDrops))
}

// Close releases all channel endpoints. The scheduler must not be running.
func (s *Scheduler) Close() error {
	var errs []error
	s.closeOnce.Do(func() {
		for _, sink := range s.sinks {
			if err := sink.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		for _, source := range s.sources {
			if err := source.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}
