// Package tektronix drives Tektronix arbitrary function generators of the
// AFG3000 family.
package tektronix

import (
	"fmt"
	"math"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/timzifer/labdrivers/driver"
)

// AFG is a two-channel Tektronix arbitrary function generator. The addressed
// channel lives in the guarded parameter set; SetChannel switches which
// channel the other methods address.
type AFG struct {
	*driver.Driver
}

// New connects to the generator at location and addresses channel 1.
func New(location string, logger zerolog.Logger) (*AFG, error) {
	base, err := driver.New(driver.Config{Location: location}, logger)
	if err != nil {
		return nil, err
	}
	a := &AFG{Driver: base}
	a.Params().Declare("channel")
	if err := a.Params().Set("channel", 1); err != nil {
		return nil, err
	}
	return a, nil
}

// Channel returns the addressed channel index.
func (a *AFG) Channel() int {
	value, _ := a.Params().Get("channel")
	channel, _ := value.(int)
	return channel
}

// SetChannel selects which channel subsequent commands address.
func (a *AFG) SetChannel(channel int) error {
	if channel != 1 && channel != 2 {
		return fmt.Errorf("channel must be 1 or 2, got %d", channel)
	}
	return a.Params().Set("channel", channel)
}

// Recall loads an instrument setup from memory slot num.
func (a *AFG) Recall(num int) error {
	return a.Write(fmt.Sprintf("*RCL %d", num), 0)
}

// Save stores the instrument setup into memory slot num.
func (a *AFG) Save(num int) error {
	return a.Write(fmt.Sprintf("*SAV %d", num), 0)
}

// Calibrate runs the internal self calibration and reports success.
func (a *AFG) Calibrate() (bool, error) {
	raw, err := a.Ask("*CAL?", 0)
	if err != nil {
		return false, err
	}
	code, err := strconv.Atoi(raw)
	if err != nil {
		return false, fmt.Errorf("parse calibration result %q: %w", raw, err)
	}
	return code == 0, nil
}

func (a *AFG) channelState(query string) (bool, error) {
	raw, err := a.Ask(query, 0)
	if err != nil {
		return false, err
	}
	return raw == "1", nil
}

func (a *AFG) setChannelState(command string, value any) error {
	on, err := a.ValueToBool(value)
	if err != nil {
		return err
	}
	state := "OFF"
	if on {
		state = "ON"
	}
	return a.Write(fmt.Sprintf("%s %s", command, state), 0)
}

// OutputEnabled reports whether the addressed channel's output is on.
func (a *AFG) OutputEnabled() (bool, error) {
	return a.channelState(fmt.Sprintf("OUTPut%d:STATe?", a.Channel()))
}

// SetOutputEnabled switches the addressed channel's output.
func (a *AFG) SetOutputEnabled(value any) error {
	return a.setChannelState(fmt.Sprintf("OUTPut%d:STATe", a.Channel()), value)
}

// AM reports whether amplitude modulation is enabled.
func (a *AFG) AM() (bool, error) {
	return a.channelState(fmt.Sprintf("SOURCe%d:AM:STATe?", a.Channel()))
}

// SetAM switches amplitude modulation.
func (a *AFG) SetAM(value any) error {
	return a.setChannelState(fmt.Sprintf("SOURCe%d:AM:STATe", a.Channel()), value)
}

// FM reports whether frequency modulation is enabled.
func (a *AFG) FM() (bool, error) {
	return a.channelState(fmt.Sprintf("SOURCe%d:FM:STATe?", a.Channel()))
}

// SetFM switches frequency modulation.
func (a *AFG) SetFM(value any) error {
	return a.setChannelState(fmt.Sprintf("SOURCe%d:FM:STATe", a.Channel()), value)
}

// PM reports whether phase modulation is enabled.
func (a *AFG) PM() (bool, error) {
	return a.channelState(fmt.Sprintf("SOURCe%d:PM:STATe?", a.Channel()))
}

// SetPM switches phase modulation.
func (a *AFG) SetPM(value any) error {
	return a.setChannelState(fmt.Sprintf("SOURCe%d:PM:STATe", a.Channel()), value)
}

// PWM reports whether pulse width modulation is enabled.
func (a *AFG) PWM() (bool, error) {
	return a.channelState(fmt.Sprintf("SOURCe%d:PWM:STATe?", a.Channel()))
}

// SetPWM switches pulse width modulation.
func (a *AFG) SetPWM(value any) error {
	return a.setChannelState(fmt.Sprintf("SOURCe%d:PWM:STATe", a.Channel()), value)
}

// PhaseInit latches the current phase as the zero reference.
func (a *AFG) PhaseInit() error {
	return a.Write(fmt.Sprintf("SOURce%d:PHASe:INITiate", a.Channel()), 0)
}

// Waveform returns the selected waveform shape.
func (a *AFG) Waveform() (string, error) {
	return a.Ask(fmt.Sprintf("SOURce%d:FUNCtion:SHAPe?", a.Channel()), 0)
}

// SetWaveform selects the waveform shape, e.g. "SIN" or "RAMP".
func (a *AFG) SetWaveform(shape string) error {
	return a.Write(fmt.Sprintf("SOURce%d:FUNCtion:SHAPe %s", a.Channel(), shape), 0)
}

// DutyCycleHigh returns the ramp symmetry in percent.
func (a *AFG) DutyCycleHigh() (float64, error) {
	raw, err := a.Ask(fmt.Sprintf("SOURce%d:FUNCtion:RAMP:SYMMetry?", a.Channel()), 0)
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(raw, 64)
}

// SetDutyCycleHigh sets the ramp symmetry in percent.
func (a *AFG) SetDutyCycleHigh(percent float64) error {
	return a.Write(fmt.Sprintf("SOURce%d:FUNCtion:RAMP:SYMMetry %s", a.Channel(), driver.FormatNumber(percent, 2)), 0)
}

// Impedance returns the configured load impedance in ohm.
func (a *AFG) Impedance() (float64, error) {
	raw, err := a.Ask(fmt.Sprintf("OUTPut%d:IMPedance?", a.Channel()), 0)
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(raw, 64)
}

// SetImpedance sets the load impedance in ohm.
func (a *AFG) SetImpedance(ohm float64) error {
	return a.Write(fmt.Sprintf("OUTPut%d:IMPedance %sOHM", a.Channel(), driver.FormatNumber(ohm, 0)), 0)
}

// Polarity returns the output polarity.
func (a *AFG) Polarity() (string, error) {
	return a.Ask(fmt.Sprintf("OUTPut%d:POLarity?", a.Channel()), 0)
}

// SetPolarity sets the output polarity, e.g. "NORMal" or "INVerted".
func (a *AFG) SetPolarity(polarity string) error {
	return a.Write(fmt.Sprintf("OUTPut%d:POLarity %s", a.Channel(), polarity), 0)
}

// TriggerOut returns the trigger output mode.
func (a *AFG) TriggerOut() (string, error) {
	return a.Ask("OUTPut:TRIGger:MODE?", 0)
}

// SetTriggerOut sets the trigger output mode, e.g. "TRIGger" or "SYNC".
func (a *AFG) SetTriggerOut(mode string) error {
	return a.Write("OUTPut:TRIGger:MODE "+mode, 0)
}

// ReferenceOscillator returns the reference oscillator source.
func (a *AFG) ReferenceOscillator() (string, error) {
	return a.Ask("SOURce:ROSCillator:SOURce?", 0)
}

// SetReferenceOscillator selects "INT" or "EXT" reference.
func (a *AFG) SetReferenceOscillator(source string) error {
	return a.Write("SOURce:ROSCillator:SOURce "+source, 0)
}

// AmplitudeLock reports whether both channel amplitudes are locked together.
func (a *AFG) AmplitudeLock() (bool, error) {
	return a.channelState(fmt.Sprintf("SOURCe%d:VOLTage:CONCurrent:STATe?", a.Channel()))
}

// SetAmplitudeLock locks or unlocks the channel amplitudes.
func (a *AFG) SetAmplitudeLock(value any) error {
	return a.setChannelState(fmt.Sprintf("SOURCe%d:VOLTage:CONCurrent:STATe", a.Channel()), value)
}

// FrequencyLock reports whether both channel frequencies are locked together.
func (a *AFG) FrequencyLock() (bool, error) {
	return a.channelState(fmt.Sprintf("SOURCe%d:FREQuency:CONCurrent:STATe?", a.Channel()))
}

// SetFrequencyLock locks or unlocks the channel frequencies.
func (a *AFG) SetFrequencyLock(value any) error {
	return a.setChannelState(fmt.Sprintf("SOURCe%d:FREQuency:CONCurrent:STATe", a.Channel()), value)
}

// Amplitude returns the signal amplitude in Vpp.
func (a *AFG) Amplitude() (float64, error) {
	raw, err := a.Ask(fmt.Sprintf("SOURce%d:VOLTage:LEVel:IMMediate:AMPLitude?", a.Channel()), 0)
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(raw, 64)
}

// SetAmplitude sets the signal amplitude in Vpp.
func (a *AFG) SetAmplitude(vpp float64) error {
	return a.Write(fmt.Sprintf("SOURce%d:VOLTage:LEVel:IMMediate:AMPLitude %sVPP", a.Channel(), driver.FormatNumber(vpp, 6)), 0)
}

// Frequency returns the fixed frequency in Hz.
func (a *AFG) Frequency() (float64, error) {
	raw, err := a.Ask(fmt.Sprintf("SOURCe%d:FREQuency:FIXed?", a.Channel()), 0)
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(raw, 64)
}

// SetFrequency sets the fixed frequency in Hz.
func (a *AFG) SetFrequency(hz float64) error {
	return a.Write(fmt.Sprintf("SOURCe%d:FREQuency:FIXed %sHz", a.Channel(), driver.FormatNumber(hz, 6)), 0)
}

// Phase returns the phase in degrees.
func (a *AFG) Phase() (float64, error) {
	raw, err := a.Ask(fmt.Sprintf("SOURce%d:PHASe:ADJust?", a.Channel()), 0)
	if err != nil {
		return 0, err
	}
	radians, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	return 180.0 / math.Pi * radians, nil
}

// SetPhase sets the phase in degrees. The value is wrapped into (-180, 180]
// and sent with an explicit DEG unit so a non-default phase unit on the
// instrument cannot misread it.
func (a *AFG) SetPhase(degrees float64) error {
	wrapped := math.Mod(degrees, 360.0)
	if wrapped < 0 {
		wrapped += 360.0
	}
	if wrapped > 180.0 {
		wrapped -= 360.0
	}
	return a.Write(fmt.Sprintf("SOURce%d:PHASe:ADJust %s DEG", a.Channel(), driver.FormatNumber(wrapped, 2)), 0)
}
