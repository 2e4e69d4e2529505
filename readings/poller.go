package readings

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/timzifer/labdrivers/config"
)

// Poller runs a set of readings on a fixed cycle. Within one cycle the due
// readings execute sequentially; the bus is half duplex, so there is nothing
// to gain from running them in parallel.
type Poller struct {
	readings []*Reading
	interval time.Duration
	logger   zerolog.Logger
}

// NewPoller compiles all configured readings against the provided
// instruments.
func NewPoller(cfgs []config.ReadingConfig, instruments map[string]Instrument, interval time.Duration, logger zerolog.Logger) (*Poller, error) {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	poller := &Poller{interval: interval, logger: logger}
	for _, cfg := range cfgs {
		instrument, ok := instruments[cfg.Instrument]
		if !ok {
			return nil, fmt.Errorf("reading %s references unknown instrument %q", cfg.ID, cfg.Instrument)
		}
		reading, err := New(cfg, instrument)
		if err != nil {
			return nil, err
		}
		poller.readings = append(poller.readings, reading)
	}
	return poller, nil
}

// RunOnce performs all due readings and returns the error count.
func (p *Poller) RunOnce(now time.Time) int {
	errCount := 0
	for _, reading := range p.readings {
		if reading.Due(now) {
			errCount += reading.Perform(now, p.logger)
		}
	}
	return errCount
}

// Run cycles until the context is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			p.RunOnce(now)
		}
	}
}

// Status snapshots all readings.
func (p *Poller) Status() []Status {
	statuses := make([]Status, 0, len(p.readings))
	for _, reading := range p.readings {
		statuses = append(statuses, reading.Status())
	}
	return statuses
}
