// Package keysight drives Keysight network analyzers: sweep setup, trigger
// control and complex trace readout.
package keysight

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/timzifer/labdrivers/driver"
)

const (
	minPowerDBm = -20.0
	maxPowerDBm = 0.0
	maxPoints   = 10001
)

// completionPoll is the pause between *OPC? probes while a sweep runs.
const completionPoll = time.Millisecond

// Analyzer is a Keysight vector network analyzer.
type Analyzer struct {
	*driver.Driver
}

// New connects to the analyzer at location. Commands are newline terminated.
func New(location string, logger zerolog.Logger) (*Analyzer, error) {
	base, err := driver.New(driver.Config{Location: location, Termination: "\n"}, logger)
	if err != nil {
		return nil, err
	}
	return &Analyzer{Driver: base}, nil
}

// Curve reads the active trace as complex S-parameter samples. The
// instrument interleaves real and imaginary parts in one comma separated
// list.
func (a *Analyzer) Curve() ([]complex128, error) {
	raw, err := a.Ask("CALC1:SEL:DATA:SDAT?", 0)
	if err != nil {
		return nil, err
	}
	values, err := parseFloats(raw)
	if err != nil {
		return nil, fmt.Errorf("parse trace data: %w", err)
	}
	if len(values)%2 != 0 {
		return nil, fmt.Errorf("trace data has odd sample count %d", len(values))
	}
	curve := make([]complex128, len(values)/2)
	for i := range curve {
		curve[i] = complex(values[2*i], values[2*i+1])
	}
	return curve, nil
}

// Frequencies reads the stimulus frequency axis in Hz.
func (a *Analyzer) Frequencies() ([]float64, error) {
	raw, err := a.Ask(":SENS1:FREQ:DATA?", 0)
	if err != nil {
		return nil, err
	}
	values, err := parseFloats(raw)
	if err != nil {
		return nil, fmt.Errorf("parse frequency data: %w", err)
	}
	return values, nil
}

// Power returns the source power in dBm.
func (a *Analyzer) Power() (float64, error) {
	raw, err := a.Ask(":SOUR1:POW?", 0)
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(raw, 64)
}

// SetPower sets the source power in dBm within the instrument limits.
func (a *Analyzer) SetPower(value float64) error {
	if value < minPowerDBm || value > maxPowerDBm {
		return fmt.Errorf("power %s dBm outside [%s, %s]",
			driver.FormatNumber(value, 2), driver.FormatNumber(minPowerDBm, 0), driver.FormatNumber(maxPowerDBm, 0))
	}
	return a.Write(":SOUR1:POW "+driver.FormatNumber(value, 2), 0)
}

// FrequencySweep returns the configured sweep: start, stop and point count.
func (a *Analyzer) FrequencySweep() (float64, float64, int, error) {
	start, err := a.Ask(":SENS1:FREQ:STAR?", 0)
	if err != nil {
		return 0, 0, 0, err
	}
	stop, err := a.Ask(":SENS1:FREQ:STOP?", 0)
	if err != nil {
		return 0, 0, 0, err
	}
	points, err := a.Ask(":SENS1:SWE:POIN?", 0)
	if err != nil {
		return 0, 0, 0, err
	}
	fMin, err := strconv.ParseFloat(start, 64)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("parse sweep start: %w", err)
	}
	fMax, err := strconv.ParseFloat(stop, 64)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("parse sweep stop: %w", err)
	}
	n, err := strconv.Atoi(points)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("parse sweep points: %w", err)
	}
	return fMin, fMax, n, nil
}

// SetFrequencySweep configures start, stop and point count of the sweep.
func (a *Analyzer) SetFrequencySweep(fMin, fMax float64, points int) error {
	if points > maxPoints {
		return fmt.Errorf("sweep points %d exceed the instrument maximum %d", points, maxPoints)
	}
	if err := a.Write(":SENS1:FREQ:STAR "+driver.FormatNumber(fMin, 0), 0); err != nil {
		return err
	}
	if err := a.Write(":SENS1:FREQ:STOP "+driver.FormatNumber(fMax, 0), 0); err != nil {
		return err
	}
	return a.Write(fmt.Sprintf(":SENS1:SWE:POIN %d", points), 0)
}

// IFBandwidth returns the IF bandwidth in Hz.
func (a *Analyzer) IFBandwidth() (float64, error) {
	raw, err := a.Ask("SENS1:BWID?", 0)
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(raw, 64)
}

// SetIFBandwidth sets the IF bandwidth in Hz.
func (a *Analyzer) SetIFBandwidth(hz float64) error {
	return a.Write(fmt.Sprintf("SENS1:BWID %d", int(hz)), 0)
}

// SetIFBandwidthAuto lets the instrument pick the IF bandwidth.
func (a *Analyzer) SetIFBandwidthAuto() error {
	return a.Write("SENS1:BWA", 0)
}

// SetAveraging configures sweep averaging. A count of one disables it.
func (a *Analyzer) SetAveraging(count int) error {
	if count <= 1 {
		return a.Write(":SENS1:AVER OFF", 0)
	}
	if err := a.Write(":SENS1:AVER ON", 0); err != nil {
		return err
	}
	if err := a.Write(fmt.Sprintf(":SENS1:AVER:COUN %d", count), 0); err != nil {
		return err
	}
	return a.Write(":TRIG:AVER ON", 0)
}

// Completed reports whether the pending sweep has finished. A transport
// timeout while the sweep is still running is reported as not completed, not
// as an error.
func (a *Analyzer) Completed() bool {
	reply, err := a.Ask("*OPC?", 0)
	if err != nil {
		return false
	}
	return reply != ""
}

// SetContinuous puts the analyzer into free-running internal triggering.
func (a *Analyzer) SetContinuous() error {
	if err := a.Write(":TRIG:SOUR INT", 0); err != nil {
		return err
	}
	return a.Write(":INIT1:CONT ON", 0)
}

// SetupTriggerForSweep arms bus triggering with continuous initiation.
func (a *Analyzer) SetupTriggerForSweep() error {
	if err := a.Write(":INIT1:CONT ON", 0); err != nil {
		return err
	}
	return a.Write(":TRIG:SOUR BUS", 0)
}

// SetupTriggerForSingleSweep arms bus triggering for a single initiation.
func (a *Analyzer) SetupTriggerForSingleSweep() error {
	if err := a.Write(":INIT", 0); err != nil {
		return err
	}
	return a.Write(":TRIG:SOUR BUS", 0)
}

// SweepConfig bundles the sweep parameters for SetupSweep.
type SweepConfig struct {
	Start       float64
	Stop        float64
	Points      int
	Power       float64
	IFBandwidth float64 // zero selects automatic bandwidth
	Averages    int
	Measurement string // "S11" or "S21"; empty keeps the active parameter
}

// SetupSweep arms bus triggering and applies the full sweep configuration.
func (a *Analyzer) SetupSweep(cfg SweepConfig) error {
	if err := a.SetupTriggerForSweep(); err != nil {
		return err
	}
	if cfg.Measurement != "" {
		if cfg.Measurement != "S11" && cfg.Measurement != "S21" {
			return fmt.Errorf("unsupported measurement %q", cfg.Measurement)
		}
		if err := a.Write(":CALC:PAR:DEF "+cfg.Measurement, 0); err != nil {
			return err
		}
	}
	if err := a.SetFrequencySweep(cfg.Start, cfg.Stop, cfg.Points); err != nil {
		return err
	}
	if err := a.SetPower(cfg.Power); err != nil {
		return err
	}
	if cfg.IFBandwidth > 0 {
		if err := a.SetIFBandwidth(cfg.IFBandwidth); err != nil {
			return err
		}
	} else {
		if err := a.SetIFBandwidthAuto(); err != nil {
			return err
		}
	}
	averages := cfg.Averages
	if averages < 1 {
		averages = 1
	}
	return a.SetAveraging(averages)
}

// Measure fires a bus trigger, polls for completion and returns the trace.
// The sweep must have been armed before, e.g. via SetupSweep. The context
// bounds the wait for slow sweeps.
func (a *Analyzer) Measure(ctx context.Context) ([]complex128, error) {
	if err := a.Write(":TRIG:SING", 0); err != nil {
		return nil, err
	}
	for !a.Completed() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(completionPoll):
		}
	}
	return a.Curve()
}

// Trigger fires a bus trigger without waiting.
func (a *Analyzer) Trigger() error {
	return a.Write("*TRG", 0)
}

// TriggerSource returns the configured trigger source.
func (a *Analyzer) TriggerSource() (string, error) {
	return a.Ask(":TRIG:SOUR?", 0)
}

// SetTriggerSource selects INT, EXT, MAN or BUS triggering.
func (a *Analyzer) SetTriggerSource(source string) error {
	return a.Write(":TRIG:SOUR "+source, 0)
}

// TriggerContinuous reports whether continuous initiation is enabled.
func (a *Analyzer) TriggerContinuous() (bool, error) {
	raw, err := a.Ask(":INIT:CONT?", 0)
	if err != nil {
		return false, err
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return false, fmt.Errorf("parse continuous state %q: %w", raw, err)
	}
	return value != 0, nil
}

// SetTriggerContinuous switches continuous initiation. Accepts bool,
// "on"/"off" or 0/1.
func (a *Analyzer) SetTriggerContinuous(value any) error {
	on, err := a.ValueToBool(value)
	if err != nil {
		return err
	}
	if on {
		return a.Write(":INIT:CONT ON", 0)
	}
	return a.Write(":INIT:CONT OFF", 0)
}

// Output reports whether the stimulus output is enabled.
func (a *Analyzer) Output() (bool, error) {
	raw, err := a.Ask("OUTP?", 0)
	if err != nil {
		return false, err
	}
	return raw == "1", nil
}

// SetOutput switches the stimulus output. Accepts bool, "on"/"off" or 0/1.
func (a *Analyzer) SetOutput(value any) error {
	on, err := a.ValueToBool(value)
	if err != nil {
		return err
	}
	if on {
		return a.Write(":OUTP ON", 0)
	}
	return a.Write(":OUTP OFF", 0)
}

// SweepTime returns the duration of one sweep in seconds.
func (a *Analyzer) SweepTime() (float64, error) {
	raw, err := a.Ask(":SENS1:SWE:TIME?", 0)
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(raw, 64)
}

// ExternalTrigger reports whether the trigger output is enabled.
func (a *Analyzer) ExternalTrigger() (bool, error) {
	raw, err := a.Ask(":TRIGger:OUTPut?", 0)
	if err != nil {
		return false, err
	}
	return raw == "1", nil
}

// SetExternalTrigger switches the trigger output. Accepts bool, "on"/"off"
// or 0/1.
func (a *Analyzer) SetExternalTrigger(value any) error {
	on, err := a.ValueToBool(value)
	if err != nil {
		return err
	}
	if on {
		return a.Write(":TRIGger:OUTPut ON", 0)
	}
	return a.Write(":TRIGger:OUTPut OFF", 0)
}

// ExternalTriggerPosition returns "AFT" or "BEF", the edge position of the
// trigger output relative to each point.
func (a *Analyzer) ExternalTriggerPosition() (string, error) {
	return a.Ask(":TRIGger:OUTPut:POSition?", 0)
}

// SetExternalTriggerPosition sets the trigger output edge position.
func (a *Analyzer) SetExternalTriggerPosition(position string) error {
	return a.Write(":TRIGger:OUTPut:POSition "+position, 0)
}

func parseFloats(raw string) ([]float64, error) {
	fields := strings.Split(raw, ",")
	values := make([]float64, 0, len(fields))
	for _, field := range fields {
		value, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return nil, err
		}
		values = append(values, value)
	}
	return values, nil
}
