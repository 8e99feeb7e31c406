// Package app wires the configuration, the SDR device, the channel pipeline
// and the session store into a running process.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/tejeez/sdrglue/internal/iqfile"
	"github.com/tejeez/sdrglue/internal/pipeline"
	"github.com/tejeez/sdrglue/internal/sdr"
	"github.com/tejeez/sdrglue/internal/sdr/rtltcp"
	"github.com/tejeez/sdrglue/internal/sdr/sim"
	"github.com/tejeez/sdrglue/internal/storage"
)

const (
	storageDir   = "data"
	recordingDir = "recordings"
)

func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	store, err := createStorage(&config.Storage)
	if err != nil {
		return fmt.Errorf("failed to create storage: %w", err)
	}
	defer store.Close()

	device, err := createDevice(&config.Radio)
	if err != nil {
		return fmt.Errorf("failed to open radio: %w", err)
	}
	defer device.Close()

	sessionID, err := store.CreateSession(ctx, config.Radio.Driver, config.Radio)
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}
	logger.Info("session started",
		slog.Int64("session", sessionID),
		slog.String("driver", config.Radio.Driver))

	options := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithStatsInterval(config.Stats.interval()),
		pipeline.WithStatsSink(storeStats(store, sessionID, logger)),
	}

	if config.Recording.Enabled {
		recorder, err := createRecorder(&config.Recording)
		if err != nil {
			return fmt.Errorf("failed to create recorder: %w", err)
		}
		defer recorder.Close()
		options = append(options, pipeline.WithRecorder(recorder))
	}

	sched := pipeline.NewScheduler(device, options...)
	defer sched.Close()

	for _, spec := range config.Channels {
		if err = sched.AddChannel(spec); err != nil {
			return fmt.Errorf("configuring channel: %w", err)
		}
	}

	runErr := sched.Run(ctx)

	// Persist the final counters even on failure; the session record is the
	// place to look when diagnosing an aborted run.
	snap := sched.Stats()
	if err := store.StoreStats(context.Background(), statsRecord(sessionID, snap)); err != nil {
		logger.Warn("storing final stats", slog.Any("error", err))
	}
	logger.Info("session finished",
		slog.Int64("session", sessionID),
		slog.Uint64("blocks", snap.Blocks),
		slog.Uint64("overruns", snap.Overruns),
		slog.Uint64("deadlineMisses", snap.DeadlineMisses))

	return runErr
}

func createDevice(config *RadioConfig) (sdr.Device, error) {
	switch config.Driver {
	case DriverRTLTCP:
		return rtltcp.New(config.Config, config.RTLTCP)
	case DriverSim:
		return sim.New(config.Config, config.Sim)
	default:
		return nil, fmt.Errorf("unknown radio driver %q", config.Driver)
	}
}

func createStorage(config *StorageConfig) (*storage.Store, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current working directory: %w", err)
	}

	dir := config.DataDirectory
	if dir == "" {
		dir = storageDir
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(wd, dir)
	}

	stat, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("storage directory '%s' does not exist: %w", dir, err)
		}
		return nil, err
	}
	if !stat.IsDir() {
		return nil, fmt.Errorf("invalid storage directory '%s'", dir)
	}

	dbPath := filepath.Join(dir, fmt.Sprintf("sdrglue_%s.sqlite", time.Now().UTC().Format("20060102_150405")))
	return storage.New(dbPath), nil
}

func createRecorder(config *RecordingConfig) (*iqfile.Writer, error) {
	dir := config.Directory
	if dir == "" {
		dir = recordingDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating recording directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("rx_%s.cf32", time.Now().UTC().Format("20060102_150405")))
	return iqfile.NewWriter(path)
}

func storeStats(store *storage.Store, sessionID int64, logger *slog.Logger) func(pipeline.Snapshot) {
	return func(snap pipeline.Snapshot) {
		if err := store.StoreStats(context.Background(), statsRecord(sessionID, snap)); err != nil {
			logger.Warn("storing stats", slog.Any("error", err))
		}
	}
}

func statsRecord(sessionID int64, snap pipeline.Snapshot) *storage.StatsRecord {
	return &storage.StatsRecord{
		SessionID:      sessionID,
		Timestamp:      snap.Timestamp,
		Blocks:         snap.Blocks,
		Samples:        snap.Samples,
		Overruns:       snap.Overruns,
		Underruns:      snap.Underruns,
		ReadErrors:     snap.ReadErrors,
		DeadlineMisses: snap.DeadlineMisses,
		SendErrors:     snap.SendErrors,
		AudioDrops:     snap.AudioDrops,
		RecorderDrops:  snap.RecorderDrops,
		Channels:       snap.Channels,
	}
}
