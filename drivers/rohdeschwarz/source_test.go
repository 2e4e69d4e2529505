package rohdeschwarz

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

func newTestSource(t *testing.T, backend *scriptedBackend) *Source {
	t.Helper()
	visa.SelectFactory(func(visa.Options) (visa.Backend, error) { return backend, nil })
	t.Cleanup(visa.ResetFactory)
	source, err := New("tcp://rs-sgs:5025", zerolog.New(io.Discard))
	require.NoError(t, err)
	return source
}

func TestSourcePowerAndFrequency(t *testing.T) {
	backend := &scriptedBackend{replies: map[string]string{
		":POW?":  "-30.00",
		":FREQ?": "5.000000E+09",
	}}
	source := newTestSource(t, backend)

	power, err := source.Power()
	require.NoError(t, err)
	require.Equal(t, -30.0, power)

	frequency, err := source.Frequency()
	require.NoError(t, err)
	require.Equal(t, 5e9, frequency)

	require.NoError(t, source.SetPower(-12.5))
	require.NoError(t, source.SetFrequency(5.2e9))
	require.Equal(t, []string{":POW -12.5", ":FREQ 5200000000"}, backend.writes)
}

func TestSourceOutputCoercion(t *testing.T) {
	backend := &scriptedBackend{replies: map[string]string{"OUTP?": "1"}}
	source := newTestSource(t, backend)

	on, err := source.Output()
	require.NoError(t, err)
	require.True(t, on)

	require.NoError(t, source.SetOutput("ON"))
	require.NoError(t, source.SetOutput(0))
	require.Equal(t, []string{":OUTP ON", ":OUTP OFF"}, backend.writes)

	err = source.SetOutput("maybe")
	var vke *driver.ValueKindError
	require.ErrorAs(t, err, &vke)
	// A rejected value must not reach the instrument.
	require.Len(t, backend.writes, 2)
}

func TestSourceModulation(t *testing.T) {
	backend := &scriptedBackend{replies: map[string]string{
		"MOD:STAT?":  "0",
		"LFO1:FREQ?": "1000",
	}}
	source := newTestSource(t, backend)

	enabled, err := source.Modulation()
	require.NoError(t, err)
	require.False(t, enabled)

	require.NoError(t, source.SetModulation(true))
	require.NoError(t, source.SetModulationFrequency(1500))
	require.Equal(t, []string{"MOD:STAT ON", "LFO1:FREQ 1500"}, backend.writes)

	frequency, err := source.ModulationFrequency()
	require.NoError(t, err)
	require.Equal(t, 1000.0, frequency)
}
