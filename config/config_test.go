package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadParsesFullConfig(t *testing.T) {
	path := writeConfig(t, `
cycle: 250ms
logging:
  level: debug
  format: text
  loki:
    enabled: true
    url: http://loki:3100/loki/api/v1/push
    labels:
      site: lab1
telemetry:
  enabled: true
instruments:
  - id: source
    location: tcp://source:5025
    termination: "\n"
    timeout: 5s
    check: true
    driver: rohdeschwarz
  - id: dmm
    location: serial:///dev/ttyUSB0?baud=115200
readings:
  - id: power
    instrument: source
    query: ":POW?"
    interval: 1s
    transform: value * 2
    round: 3
    unit: dBm
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 250*time.Millisecond, cfg.CycleInterval())
	require.Equal(t, "debug", cfg.Logging.Level)
	require.True(t, cfg.Logging.Loki.Enabled)
	require.Equal(t, map[string]string{"site": "lab1"}, cfg.Logging.Loki.Labels)
	require.True(t, cfg.Telemetry.Enabled)

	require.Len(t, cfg.Instruments, 2)
	require.Equal(t, "source", cfg.Instruments[0].ID)
	require.Equal(t, 5*time.Second, cfg.Instruments[0].Timeout.Duration)
	require.True(t, cfg.Instruments[0].Check)
	require.Zero(t, cfg.Instruments[1].Timeout.Duration)

	require.Len(t, cfg.Readings, 1)
	reading := cfg.Readings[0]
	require.Equal(t, "source", reading.Instrument)
	require.Equal(t, time.Second, reading.Interval.Duration)
	require.Equal(t, "value * 2", reading.Transform)
	require.NotNil(t, reading.Round)
	require.Equal(t, int32(3), *reading.Round)
	require.Equal(t, "dBm", reading.Unit)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := writeConfig(t, `
instruments:
  - id: source
    location: tcp://source:5025
    timeout: soon
`)
	_, err := Load(path)
	require.ErrorContains(t, err, "parse duration")
}

func TestValidateReferentialIntegrity(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "empty instrument id",
			cfg: Config{Instruments: []InstrumentConfig{
				{Location: "tcp://x:1"},
			}},
			want: "instrument id must not be empty",
		},
		{
			name: "duplicate instrument",
			cfg: Config{Instruments: []InstrumentConfig{
				{ID: "a", Location: "tcp://x:1"},
				{ID: "a", Location: "tcp://y:1"},
			}},
			want: "declared twice",
		},
		{
			name: "missing location",
			cfg: Config{Instruments: []InstrumentConfig{
				{ID: "a"},
			}},
			want: "location must not be empty",
		},
		{
			name: "empty query",
			cfg: Config{
				Instruments: []InstrumentConfig{{ID: "a", Location: "tcp://x:1"}},
				Readings:    []ReadingConfig{{ID: "r", Instrument: "a"}},
			},
			want: "query must not be empty",
		},
		{
			name: "unknown instrument reference",
			cfg: Config{
				Instruments: []InstrumentConfig{{ID: "a", Location: "tcp://x:1"}},
				Readings:    []ReadingConfig{{ID: "r", Instrument: "b", Query: "*IDN?"}},
			},
			want: "unknown instrument",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			require.ErrorContains(t, err, tc.want)
		})
	}
}

func TestCycleIntervalDefault(t *testing.T) {
	var cfg Config
	require.Equal(t, 500*time.Millisecond, cfg.CycleInterval())
	cfg.Cycle = Duration{Duration: time.Second}
	require.Equal(t, time.Second, cfg.CycleInterval())
}
