package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := New(filepath.Join(t.TempDir(), "sdrglue.db"))
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing store: %v", err)
		}
	})
	return s
}

func TestSessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	type cfg struct {
		Driver string `json:"driver"`
	}
	id, err := s.CreateSession(ctx, "rtltcp", cfg{Driver: "rtltcp"})
	if err != nil {
		t.Fatal(err)
	}
	if id == 0 {
		t.Fatal("session ID is zero")
	}

	sess, err := s.Session(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if sess.DeviceType != "rtltcp" {
		t.Errorf("device type = %q, want rtltcp", sess.DeviceType)
	}
	if sess.Config == nil || *sess.Config != `{"driver":"rtltcp"}` {
		t.Errorf("config = %v, want serialized driver config", sess.Config)
	}

	sessions, err := s.Sessions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 1 || sessions[0].ID != id {
		t.Errorf("sessions = %v, want the one created session", sessions)
	}
}

func TestSessionWithoutConfig(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id, err := s.CreateSession(ctx, "sim", nil)
	if err != nil {
		t.Fatal(err)
	}
	sess, err := s.Session(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if sess.Config != nil {
		t.Errorf("config = %q, want nil", *sess.Config)
	}
}

func TestStatsRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id, err := s.CreateSession(ctx, "sim", nil)
	if err != nil {
		t.Fatal(err)
	}

	want := []*StatsRecord{
		{
			SessionID: id,
			Timestamp: time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC),
			Blocks:    1000,
			Samples:   2_400_000,
			Overruns:  1,
			Channels:  2,
		},
		{
			SessionID:      id,
			Timestamp:      time.Date(2026, 2, 3, 10, 1, 0, 0, time.UTC),
			Blocks:         2000,
			Samples:        4_800_000,
			Overruns:       1,
			DeadlineMisses: 3,
			AudioDrops:     7,
			Channels:       2,
		},
	}
	for _, rec := range want {
		if err := s.StoreStats(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.Stats(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(want) {
		t.Fatalf("got %d records, want %d", len(got), len(want))
	}
	for i := range want {
		g, w := got[i], want[i]
		if g.Blocks != w.Blocks || g.Samples != w.Samples || g.Overruns != w.Overruns ||
			g.DeadlineMisses != w.DeadlineMisses || g.AudioDrops != w.AudioDrops ||
			g.Channels != w.Channels {
			t.Errorf("record %d = %+v, want %+v", i, g, w)
		}
		if !g.Timestamp.Equal(w.Timestamp) {
			t.Errorf("record %d timestamp = %v, want %v", i, g.Timestamp, w.Timestamp)
		}
	}
}
