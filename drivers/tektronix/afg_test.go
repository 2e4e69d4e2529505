package tektronix

import (
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/timzifer/labdrivers/driver"
	"github.com/timzifer/labdrivers/visa"
)

type scriptedBackend struct {
	replies map[string]string
	writes  []string
}

func (b *scriptedBackend) Write(message string, _ time.Duration) error {
	b.writes = append(b.writes, message)
	return nil
}

func (b *scriptedBackend) Query(message string, _ time.Duration) (string, error) {
	if reply, ok := b.replies[message]; ok {
		return reply, nil
	}
	return "0", nil
}

func (b *scriptedBackend) Read(_ time.Duration) (string, error) { return "0", nil }

func (b *scriptedBackend) WriteAndRead(message string, timeout time.Duration) (string, error) {
	return b.Query(message, timeout)
}

func (b *scriptedBackend) Close() error { return nil }

func newTestAFG(t *testing.T, backend *scriptedBackend) *AFG {
	t.Helper()
	visa.SelectFactory(func(visa.Options) (visa.Backend, error) { return backend, nil })
	t.Cleanup(visa.ResetFactory)
	afg, err := New("gpib://dev/ttyUSB0:11", zerolog.New(io.Discard))
	require.NoError(t, err)
	return afg
}

func TestAFGChannelSelection(t *testing.T) {
	backend := &scriptedBackend{}
	afg := newTestAFG(t, backend)

	require.Equal(t, 1, afg.Channel())
	require.NoError(t, afg.SetOutputEnabled(true))

	require.NoError(t, afg.SetChannel(2))
	require.Equal(t, 2, afg.Channel())
	require.NoError(t, afg.SetOutputEnabled("off"))

	require.Error(t, afg.SetChannel(3))
	require.Error(t, afg.SetChannel(0))

	require.Equal(t, []string{
		"OUTPut1:STATe ON",
		"OUTPut2:STATe OFF",
	}, backend.writes)
}

func TestAFGChannelIsDeclaredParam(t *testing.T) {
	afg := newTestAFG(t, &scriptedBackend{})

	value, ok := afg.Params().Get("channel")
	require.True(t, ok)
	require.Equal(t, 1, value)

	require.NoError(t, afg.SetChannel(2))
	value, _ = afg.Params().Get("channel")
	require.Equal(t, 2, value)

	err := afg.Params().Set("waveform", "SIN")
	var pe *driver.ParamError
	require.ErrorAs(t, err, &pe)
}

func TestAFGModulationSwitches(t *testing.T) {
	backend := &scriptedBackend{replies: map[string]string{
		"SOURCe1:AM:STATe?": "1",
		"SOURCe1:FM:STATe?": "0",
	}}
	afg := newTestAFG(t, backend)

	am, err := afg.AM()
	require.NoError(t, err)
	require.True(t, am)

	fm, err := afg.FM()
	require.NoError(t, err)
	require.False(t, fm)

	require.NoError(t, afg.SetPM(1))
	require.NoError(t, afg.SetPWM(false))
	require.Equal(t, []string{
		"SOURCe1:PM:STATe ON",
		"SOURCe1:PWM:STATe OFF",
	}, backend.writes)
}

func TestAFGSignalParameters(t *testing.T) {
	backend := &scriptedBackend{replies: map[string]string{
		"SOURce1:VOLTage:LEVel:IMMediate:AMPLitude?": "2.5",
		"SOURCe1:FREQuency:FIXed?":                   "1000000",
	}}
	afg := newTestAFG(t, backend)

	amplitude, err := afg.Amplitude()
	require.NoError(t, err)
	require.Equal(t, 2.5, amplitude)

	frequency, err := afg.Frequency()
	require.NoError(t, err)
	require.Equal(t, 1e6, frequency)

	require.NoError(t, afg.SetAmplitude(0.125))
	require.NoError(t, afg.SetFrequency(2e6))
	require.NoError(t, afg.SetImpedance(50))
	require.NoError(t, afg.SetWaveform("RAMP"))
	require.NoError(t, afg.SetDutyCycleHigh(75))
	require.Equal(t, []string{
		"SOURce1:VOLTage:LEVel:IMMediate:AMPLitude 0.125VPP",
		"SOURCe1:FREQuency:FIXed 2000000Hz",
		"OUTPut1:IMPedance 50OHM",
		"SOURce1:FUNCtion:SHAPe RAMP",
		"SOURce1:FUNCtion:RAMP:SYMMetry 75",
	}, backend.writes)
}

func TestAFGPhaseConversion(t *testing.T) {
	backend := &scriptedBackend{replies: map[string]string{
		"SOURce1:PHASe:ADJust?": "1.5707963267948966",
	}}
	afg := newTestAFG(t, backend)

	degrees, err := afg.Phase()
	require.NoError(t, err)
	require.InDelta(t, 90.0, degrees, 1e-9)

	require.NoError(t, afg.SetPhase(90))
	require.NoError(t, afg.SetPhase(270))
	require.NoError(t, afg.SetPhase(-540))
	require.NoError(t, afg.SetPhase(-90.125))
	require.Equal(t, []string{
		"SOURce1:PHASe:ADJust 90 DEG",
		"SOURce1:PHASe:ADJust -90 DEG",
		"SOURce1:PHASe:ADJust 180 DEG",
		"SOURce1:PHASe:ADJust -90.13 DEG",
	}, backend.writes)
}

func TestAFGCalibrate(t *testing.T) {
	backend := &scriptedBackend{replies: map[string]string{"*CAL?": "0"}}
	afg := newTestAFG(t, backend)

	ok, err := afg.Calibrate()
	require.NoError(t, err)
	require.True(t, ok)

	backend.replies["*CAL?"] = "5"
	ok, err = afg.Calibrate()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestAFGLocksAndReferences(t *testing.T) {
	backend := &scriptedBackend{replies: map[string]string{
		"SOURCe1:VOLTage:CONCurrent:STATe?": "1",
		"SOURce:ROSCillator:SOURce?":        "EXT",
	}}
	afg := newTestAFG(t, backend)

	locked, err := afg.AmplitudeLock()
	require.NoError(t, err)
	require.True(t, locked)

	ref, err := afg.ReferenceOscillator()
	require.NoError(t, err)
	require.Equal(t, "EXT", ref)

	require.NoError(t, afg.SetFrequencyLock(true))
	require.NoError(t, afg.SetTriggerOut("SYNC"))
	require.Equal(t, []string{
		"SOURCe1:FREQuency:CONCurrent:STATe ON",
		"OUTPut:TRIGger:MODE SYNC",
	}, backend.writes)
}
