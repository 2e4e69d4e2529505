// Package readings schedules periodic instrument queries. Each reading polls
// one query on its own interval and can reshape the raw reply with a small
// expression before reporting it.
package readings

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/timzifer/labdrivers/config"
)

// Instrument is the slice of the driver contract a reading needs.
type Instrument interface {
	Ask(message string, timeout time.Duration) (string, error)
}

// Status is a diagnostic snapshot of one reading.
type Status struct {
	ID           string
	Instrument   string
	Query        string
	Unit         string
	Disabled     bool
	NextRun      time.Time
	LastRun      time.Time
	LastDuration time.Duration
	Value        any
	Valid        bool
}

// Reading is one compiled, scheduled query.
type Reading struct {
	cfg        config.ReadingConfig
	instrument Instrument
	program    *vm.Program

	disabled atomic.Bool

	mu           sync.RWMutex
	nextRun      time.Time
	lastRun      time.Time
	lastDuration time.Duration
	value        any
	valid        bool
}

// New compiles a reading from its configuration. The transform expression
// sees `raw` (the reply text) and `value` (the reply parsed as float, NaN if
// unparseable).
func New(cfg config.ReadingConfig, instrument Instrument) (*Reading, error) {
	if cfg.ID == "" {
		return nil, fmt.Errorf("reading id must not be empty")
	}
	if cfg.Query == "" {
		return nil, fmt.Errorf("reading %s: query must not be empty", cfg.ID)
	}
	if instrument == nil {
		return nil, fmt.Errorf("reading %s: instrument must not be nil", cfg.ID)
	}
	reading := &Reading{cfg: cfg, instrument: instrument}
	if strings.TrimSpace(cfg.Transform) != "" {
		program, err := expr.Compile(cfg.Transform)
		if err != nil {
			return nil, fmt.Errorf("reading %s: compile transform: %w", cfg.ID, err)
		}
		reading.program = program
	}
	return reading, nil
}

// ID returns the configured identifier.
func (r *Reading) ID() string { return r.cfg.ID }

// Due reports whether the reading should run at now.
func (r *Reading) Due(now time.Time) bool {
	if r.disabled.Load() {
		return false
	}
	if r.cfg.Interval.Duration <= 0 {
		return true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.nextRun.IsZero() {
		return true
	}
	return !now.Before(r.nextRun)
}

// Perform executes the query, applies the transform and records the result.
// It returns the number of errors encountered so the poller can aggregate.
func (r *Reading) Perform(now time.Time, logger zerolog.Logger) int {
	if r.disabled.Load() {
		return 0
	}
	start := time.Now()
	value, err := r.sample()
	duration := time.Since(start)

	r.mu.Lock()
	if r.cfg.Interval.Duration > 0 {
		r.nextRun = now.Add(r.cfg.Interval.Duration)
	} else {
		r.nextRun = time.Time{}
	}
	r.lastRun = now
	r.lastDuration = duration
	if err == nil {
		r.value = value
		r.valid = true
	} else {
		r.valid = false
	}
	r.mu.Unlock()

	if err != nil {
		logger.Error().Err(err).Str("reading", r.cfg.ID).Msg("reading failed")
		return 1
	}
	logger.Info().Str("reading", r.cfg.ID).Interface("value", value).Str("unit", r.cfg.Unit).Msg("reading")
	return 0
}

func (r *Reading) sample() (any, error) {
	raw, err := r.instrument.Ask(r.cfg.Query, r.cfg.Timeout.Duration)
	if err != nil {
		return nil, err
	}
	var value any = raw
	parsed, parseErr := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if parseErr == nil {
		value = parsed
	}
	if r.program != nil {
		env := map[string]any{"raw": raw, "value": value}
		transformed, err := vm.Run(r.program, env)
		if err != nil {
			return nil, fmt.Errorf("run transform: %w", err)
		}
		value = transformed
	}
	if r.cfg.Round != nil {
		if number, ok := toFloat(value); ok {
			rounded, _ := decimal.NewFromFloat(number).Round(*r.cfg.Round).Float64()
			value = rounded
		}
	}
	return value, nil
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// SetDisabled pauses or resumes the reading.
func (r *Reading) SetDisabled(disabled bool) {
	r.disabled.Store(disabled)
}

// Status returns a diagnostic snapshot.
func (r *Reading) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Status{
		ID:           r.cfg.ID,
		Instrument:   r.cfg.Instrument,
		Query:        r.cfg.Query,
		Unit:         r.cfg.Unit,
		Disabled:     r.disabled.Load(),
		NextRun:      r.nextRun,
		LastRun:      r.lastRun,
		LastDuration: r.lastDuration,
		Value:        r.value,
		Valid:        r.valid,
	}
}
