package storage

import "time"

// Session represents one run of the pipeline against a device.
type Session struct {
	ID         int64
	StartTime  time.Time
	DeviceType string

	// Config holds the session's serialized configuration, when one was
	// recorded.
	Config *string
}

// StatsRecord is one periodic counter snapshot belonging to a session.
type StatsRecord struct {
	SessionID int64
	Timestamp time.Time

	Blocks         uint64
	Samples        uint64
	Overruns       uint64
	Underruns      uint64
	ReadErrors     uint64
	DeadlineMisses uint64
	SendErrors     uint64
	AudioDrops     uint64
	RecorderDrops  uint64
	Channels       int
}
