// Package rohdeschwarz drives Rohde & Schwarz signal generators: output
// power, frequency, output state and modulation.
package rohdeschwarz

import (
	"strconv"

	"github.com/rs/zerolog"

	"github.com/timzifer/labdrivers/driver"
)

// Source is a Rohde & Schwarz microwave signal generator.
type Source struct {
	*driver.Driver
}

// New connects to the generator at location. The instrument expects newline
// terminated commands.
func New(location string, logger zerolog.Logger) (*Source, error) {
	base, err := driver.New(driver.Config{Location: location, Termination: "\n"}, logger)
	if err != nil {
		return nil, err
	}
	return &Source{Driver: base}, nil
}

// Power returns the output power in dBm.
func (s *Source) Power() (float64, error) {
	raw, err := s.Ask(":POW?", 0)
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(raw, 64)
}

// SetPower sets the output power in dBm.
func (s *Source) SetPower(value float64) error {
	return s.Write(":POW "+driver.FormatNumber(value, 2), 0)
}

// Frequency returns the carrier frequency in Hz.
func (s *Source) Frequency() (float64, error) {
	raw, err := s.Ask(":FREQ?", 0)
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(raw, 64)
}

// SetFrequency sets the carrier frequency in Hz, rounded to whole hertz.
func (s *Source) SetFrequency(value float64) error {
	return s.Write(":FREQ "+driver.FormatNumber(value, 0), 0)
}

// Output reports whether the RF output is enabled.
func (s *Source) Output() (bool, error) {
	raw, err := s.Ask("OUTP?", 0)
	if err != nil {
		return false, err
	}
	return raw == "1", nil
}

// SetOutput enables or disables the RF output. Accepts bool, "on"/"off" or
// 0/1.
func (s *Source) SetOutput(value any) error {
	on, err := s.ValueToBool(value)
	if err != nil {
		return err
	}
	if on {
		return s.Write(":OUTP ON", 0)
	}
	return s.Write(":OUTP OFF", 0)
}

// Modulation reports whether modulation is enabled.
func (s *Source) Modulation() (bool, error) {
	raw, err := s.Ask("MOD:STAT?", 0)
	if err != nil {
		return false, err
	}
	return raw == "1", nil
}

// SetModulation enables or disables modulation. Accepts bool, "on"/"off" or
// 0/1.
func (s *Source) SetModulation(value any) error {
	on, err := s.ValueToBool(value)
	if err != nil {
		return err
	}
	if on {
		return s.Write("MOD:STAT ON", 0)
	}
	return s.Write("MOD:STAT OFF", 0)
}

// ModulationFrequency returns the LF oscillator frequency in Hz.
func (s *Source) ModulationFrequency() (float64, error) {
	raw, err := s.Ask("LFO1:FREQ?", 0)
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(raw, 64)
}

// SetModulationFrequency sets the LF oscillator frequency in Hz.
func (s *Source) SetModulationFrequency(value float64) error {
	return s.Write("LFO1:FREQ "+driver.FormatNumber(value, 3), 0)
}
