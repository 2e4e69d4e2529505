// Package logging builds the process logger: JSON or console output on
// stdout, optionally teed into Loki.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/grafana/loki-client-go/loki"
	"github.com/prometheus/common/model"
	"github.com/rs/zerolog"

	"github.com/timzifer/labdrivers/config"
)

// defaultLokiLabels tag entries when the configuration declares none.
var defaultLokiLabels = model.LabelSet{"app": "labdrivers"}

// Setup builds the root logger from the configuration. The returned cleanup
// stops any remote sink and is always safe to call.
func Setup(cfg config.LoggingConfig) (zerolog.Logger, func(), error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return zerolog.Logger{}, nil, err
	}

	sinks := []io.Writer{consoleSink(cfg.Format)}
	cleanup := func() {}
	if cfg.Loki.Enabled {
		sink, err := newLokiSink(cfg.Loki)
		if err != nil {
			return zerolog.Logger{}, nil, err
		}
		sinks = append(sinks, sink)
		cleanup = sink.stop
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(sinks...)).With().Timestamp().Logger().Level(level)
	return logger, cleanup, nil
}

func parseLevel(raw string) (zerolog.Level, error) {
	if raw == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(strings.ToLower(raw))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("parse log level %q: %w", raw, err)
	}
	return level, nil
}

func consoleSink(format string) io.Writer {
	if strings.EqualFold(format, "text") {
		return zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	return os.Stdout
}

// lokiSink pushes rendered log lines into a Loki instance under a fixed
// label set.
type lokiSink struct {
	client *loki.Client
	labels model.LabelSet
}

func newLokiSink(cfg config.LokiConfig) (*lokiSink, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("loki url is required")
	}
	lokiCfg, err := loki.NewDefaultConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("prepare loki config: %w", err)
	}
	client, err := loki.New(lokiCfg)
	if err != nil {
		return nil, fmt.Errorf("create loki client: %w", err)
	}
	labels := make(model.LabelSet, len(cfg.Labels))
	for name, value := range cfg.Labels {
		labels[model.LabelName(name)] = model.LabelValue(value)
	}
	if len(labels) == 0 {
		labels = defaultLokiLabels
	}
	return &lokiSink{client: client, labels: labels}, nil
}

// Write forwards one rendered line. Blank lines are dropped.
func (s *lokiSink) Write(p []byte) (int, error) {
	entry := strings.TrimSpace(string(p))
	if entry == "" {
		return len(p), nil
	}
	return len(p), s.client.Handle(s.labels, time.Now(), entry)
}

func (s *lokiSink) stop() {
	s.client.Stop()
}
