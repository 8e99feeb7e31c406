package app

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tejeez/sdrglue/internal/pipeline"
)

const validConfig = `
settings:
  logLevel: debug
radio:
  driver: rtltcp
  sampleRate: 2400000
  rxCenterFrequency: 434000000
  txCenterFrequency: 434000000
  rxGain: 29.6
  blockSize: 2400
  rtltcp:
    address: 127.0.0.1:1234
    agc: false
    readTimeout: 5s
channels:
  - name: repeater
    direction: rx
    frequency: 434600000
    audioRate: 48000
    modulation: fm
    endpoint: 127.0.0.1:5000
  - direction: tx
    frequency: 433400000
    audioRate: 48000
    modulation: fm
    endpoint: 127.0.0.1:5001
    deviation: 5000
storage:
  dataDirectory: data
recording:
  enabled: true
  directory: recordings
stats:
  interval: 30s
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	config, err := LoadConfig(writeConfig(t, validConfig))
	if err != nil {
		t.Fatal(err)
	}

	if got := config.Settings.SlogLevel(); got != slog.LevelDebug {
		t.Errorf("log level = %v, want debug", got)
	}
	if config.Radio.Driver != DriverRTLTCP {
		t.Errorf("driver = %q, want %q", config.Radio.Driver, DriverRTLTCP)
	}
	if config.Radio.SampleRate != 2_400_000 {
		t.Errorf("sample rate = %f, want 2400000", config.Radio.SampleRate)
	}
	if config.Radio.RTLTCP == nil || config.Radio.RTLTCP.Address != "127.0.0.1:1234" {
		t.Errorf("rtltcp config = %+v, want address 127.0.0.1:1234", config.Radio.RTLTCP)
	}
	if got := time.Duration(config.Radio.RTLTCP.ReadTimeout); got != 5*time.Second {
		t.Errorf("read timeout = %v, want 5s", got)
	}

	if len(config.Channels) != 2 {
		t.Fatalf("got %d channels, want 2", len(config.Channels))
	}
	rx := config.Channels[0]
	if rx.Name != "repeater" || rx.Direction != pipeline.DirectionRx || rx.Frequency != 434_600_000 {
		t.Errorf("unexpected first channel: %+v", rx)
	}
	tx := config.Channels[1]
	if tx.Direction != pipeline.DirectionTx || tx.Deviation != 5000 {
		t.Errorf("unexpected second channel: %+v", tx)
	}

	if !config.Recording.Enabled || config.Recording.Directory != "recordings" {
		t.Errorf("unexpected recording config: %+v", config.Recording)
	}
	if got := config.Stats.interval(); got != 30*time.Second {
		t.Errorf("stats interval = %v, want 30s", got)
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(string) string
		wantErr string
	}{
		{
			name:    "unknown driver",
			mutate:  func(s string) string { return strings.Replace(s, "driver: rtltcp", "driver: usb", 1) },
			wantErr: "unknown radio driver",
		},
		{
			name:    "bad log level",
			mutate:  func(s string) string { return strings.Replace(s, "logLevel: debug", "logLevel: loud", 1) },
			wantErr: "unknown log level",
		},
		{
			name:    "channel outside stream",
			mutate:  func(s string) string { return strings.Replace(s, "frequency: 434600000", "frequency: 436600000", 1) },
			wantErr: "outside",
		},
		{
			name:    "non-integer rate ratio",
			mutate:  func(s string) string { return strings.Replace(s, "audioRate: 48000", "audioRate: 44100", 1) },
			wantErr: "integer multiple",
		},
		{
			name: "missing rtltcp section",
			mutate: func(s string) string {
				s = strings.Replace(s, "    address: 127.0.0.1:1234\n", "", 1)
				s = strings.Replace(s, "    agc: false\n", "", 1)
				s = strings.Replace(s, "    readTimeout: 5s\n", "", 1)
				return strings.Replace(s, "  rtltcp:\n", "", 1)
			},
			wantErr: "no rtltcp section",
		},
		{
			name: "no channels",
			mutate: func(s string) string {
				i := strings.Index(s, "channels:")
				j := strings.Index(s, "storage:")
				return s[:i] + s[j:]
			},
			wantErr: "no channels",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.mutate(validConfig)))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestSimDriverNeedsNoSection(t *testing.T) {
	content := strings.Replace(validConfig, "driver: rtltcp", "driver: sim", 1)
	config, err := LoadConfig(writeConfig(t, content))
	if err != nil {
		t.Fatal(err)
	}
	if config.Radio.Sim == nil {
		t.Error("sim config not defaulted")
	}
}
