package pipeline

import "time"

// Snapshot is a point-in-time view of the scheduler's counters. Overruns,
// underruns and deadline misses are accounting, not failures: the stream
// keeps running and the counters tell how much of it was lost.
type Snapshot struct {
	Timestamp time.Time

	// Blocks and Samples count wideband input processed to completion.
	Blocks  uint64
	Samples uint64

	// Overruns counts input blocks lost because the receiver could not be
	// serviced in time. Underruns counts transmit blocks the device did not
	// get in time.
	Overruns  uint64
	Underruns uint64

	// ReadErrors counts device read failures other than overruns.
	ReadErrors uint64

	// DeadlineMisses counts ticks whose processing took longer than the
	// real-time budget of one block.
	DeadlineMisses uint64

	// SendErrors counts failed audio datagram writes across all receive
	// channels. AudioDrops counts audio blocks discarded at sink and source
	// queues because the network side fell behind.
	SendErrors uint64
	AudioDrops uint64

	// RecorderDrops counts wideband blocks the recording writer discarded.
	RecorderDrops uint64

	Channels int
}
