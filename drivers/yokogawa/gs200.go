// Package yokogawa drives the Yokogawa GS200 source measure unit.
package yokogawa

import (
	"math"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/timzifer/labdrivers/driver"
)

// Mode selects whether the GS200 sources current or voltage.
type Mode string

const (
	ModeVoltage Mode = "voltage"
	ModeCurrent Mode = "current"
)

// rampStep is the default increment for the gradual voltage ramp.
const rampStep = 0.02

// GS200 is a Yokogawa GS200 source measure unit. The mode lives in the
// guarded parameter set; level operations can assert it and fail with a
// ConfigurationError on a mismatch.
type GS200 struct {
	*driver.Driver
}

// New connects to the GS200 at location in the given mode.
func New(location string, mode Mode, logger zerolog.Logger) (*GS200, error) {
	if mode == "" {
		mode = ModeVoltage
	}
	base, err := driver.New(driver.Config{Location: location}, logger)
	if err != nil {
		return nil, err
	}
	g := &GS200{Driver: base}
	g.Params().Declare("mode")
	if err := g.Params().Set("mode", mode); err != nil {
		return nil, err
	}
	return g, nil
}

// Mode returns the declared operation mode.
func (g *GS200) Mode() Mode {
	value, _ := g.Params().Get("mode")
	mode, _ := value.(Mode)
	return mode
}

// Output reports whether the output is on.
func (g *GS200) Output() (bool, error) {
	raw, err := g.Ask("OUTPUT?", 0)
	if err != nil {
		return false, err
	}
	return raw == "1", nil
}

// SetOutput switches the output. Accepts bool, "on"/"off" or 0/1.
func (g *GS200) SetOutput(value any) error {
	on, err := g.ValueToBool(value)
	if err != nil {
		return err
	}
	if on {
		return g.Write("OUTPUT ON", 0)
	}
	return g.Write("OUTPUT OFF", 0)
}

// Range returns the output range setting.
func (g *GS200) Range() (float64, error) {
	raw, err := g.Ask(":SOURce:RANGe?", 0)
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(raw, 64)
}

// SetRange sets the output range.
func (g *GS200) SetRange(value float64) error {
	return g.Write(":SOURce:RANGe "+driver.FormatNumber(value, 4), 0)
}

func (g *GS200) checkMode(op string, want Mode) error {
	if mode := g.Mode(); want != "" && mode != want {
		return &driver.ConfigurationError{Op: op, Want: string(want), Got: string(mode)}
	}
	return nil
}

// Level returns the output level. A non-empty want asserts the configured
// mode first.
func (g *GS200) Level(want Mode) (float64, error) {
	if err := g.checkMode("level query", want); err != nil {
		return 0, err
	}
	raw, err := g.Ask(":SOURce:Level?", 0)
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(raw, 64)
}

// SetLevel sets the output level. A non-empty want asserts the configured
// mode first.
func (g *GS200) SetLevel(value float64, want Mode) error {
	if err := g.checkMode("level change", want); err != nil {
		return err
	}
	return g.Write(":SOURce:Level "+driver.FormatNumber(value, 8), 0)
}

// Voltage returns the level, asserting voltage mode.
func (g *GS200) Voltage() (float64, error) {
	return g.Level(ModeVoltage)
}

// SetVoltage sets the level, asserting voltage mode.
func (g *GS200) SetVoltage(value float64) error {
	return g.SetLevel(value, ModeVoltage)
}

// Current returns the level, asserting current mode.
func (g *GS200) Current() (float64, error) {
	return g.Level(ModeCurrent)
}

// SetCurrent sets the level, asserting current mode.
func (g *GS200) SetCurrent(value float64) error {
	return g.SetLevel(value, ModeCurrent)
}

// RampVoltage moves the output voltage gradually from its present value to
// target in increments of step, pausing delay between writes. The output
// must be on. A zero step uses the default increment. The ramp is not atomic;
// concurrent callers have to serialize access themselves.
func (g *GS200) RampVoltage(target, step float64, delay time.Duration) error {
	on, err := g.Output()
	if err != nil {
		return err
	}
	if !on {
		return &driver.ConfigurationError{Op: "voltage ramp", Want: "output on", Got: "output off"}
	}
	if step == 0 {
		step = rampStep
	}
	step = math.Abs(step)

	current, err := g.Voltage()
	if err != nil {
		return err
	}
	distance := target - current
	if math.Abs(distance) < 1e-8 {
		return nil
	}
	// Counting the steps up front avoids float accumulation deciding when
	// the loop terminates.
	steps := int(math.Ceil(math.Abs(distance)/step - 1e-9))
	direction := math.Copysign(step, distance)
	for i := 1; i <= steps; i++ {
		v := current + float64(i)*direction
		if i == steps {
			v = target
		}
		if err := g.SetVoltage(v); err != nil {
			return err
		}
		if delay > 0 && i < steps {
			time.Sleep(delay)
		}
	}
	return nil
}

// ZeroAndEnable sets the level to zero before switching the output on, so no
// stale setpoint is applied to the load.
func (g *GS200) ZeroAndEnable() error {
	on, err := g.Output()
	if err != nil {
		return err
	}
	if on {
		return nil
	}
	if err := g.SetLevel(0, ""); err != nil {
		return err
	}
	return g.SetOutput(true)
}
