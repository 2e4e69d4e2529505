package keysight

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/timzifer/labdrivers/visa"
)

type scriptedBackend struct {
	replies  map[string]string
	writes   []string
	opcAfter int
	opcSeen  int
}

func (b *scriptedBackend) Write(message string, _ time.Duration) error {
	b.writes = append(b.writes, message)
	return nil
}

func (b *scriptedBackend) Query(message string, _ time.Duration) (string, error) {
	if message == "*OPC?" {
		b.opcSeen++
		if b.opcSeen <= b.opcAfter {
			return "", nil
		}
		return "1", nil
	}
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

func newTestAnalyzer(t *testing.T, backend *scriptedBackend) *Analyzer {
	t.Helper()
	visa.SelectFactory(func(visa.Options) (visa.Backend, error) { return backend, nil })
	t.Cleanup(visa.ResetFactory)
	analyzer, err := New("tcp://na:5025", zerolog.New(io.Discard))
	require.NoError(t, err)
	return analyzer
}

func TestAnalyzerCurveInterleavesRealAndImag(t *testing.T) {
	backend := &scriptedBackend{replies: map[string]string{
		"CALC1:SEL:DATA:SDAT?": "1.0,-0.5,0.25,2.0",
	}}
	analyzer := newTestAnalyzer(t, backend)

	curve, err := analyzer.Curve()
	require.NoError(t, err)
	require.Equal(t, []complex128{complex(1.0, -0.5), complex(0.25, 2.0)}, curve)
}

func TestAnalyzerCurveRejectsOddSampleCount(t *testing.T) {
	backend := &scriptedBackend{replies: map[string]string{
		"CALC1:SEL:DATA:SDAT?": "1.0,2.0,3.0",
	}}
	analyzer := newTestAnalyzer(t, backend)

	_, err := analyzer.Curve()
	require.Error(t, err)
}

func TestAnalyzerPowerBounds(t *testing.T) {
	backend := &scriptedBackend{}
	analyzer := newTestAnalyzer(t, backend)

	require.NoError(t, analyzer.SetPower(-10))
	require.Equal(t, []string{":SOUR1:POW -10"}, backend.writes)

	require.Error(t, analyzer.SetPower(-25))
	require.Error(t, analyzer.SetPower(1))
	require.Len(t, backend.writes, 1)
}

func TestAnalyzerFrequencySweep(t *testing.T) {
	backend := &scriptedBackend{replies: map[string]string{
		":SENS1:FREQ:STAR?": "4.0E+09",
		":SENS1:FREQ:STOP?": "8.0E+09",
		":SENS1:SWE:POIN?":  "201",
	}}
	analyzer := newTestAnalyzer(t, backend)

	fMin, fMax, points, err := analyzer.FrequencySweep()
	require.NoError(t, err)
	require.Equal(t, 4e9, fMin)
	require.Equal(t, 8e9, fMax)
	require.Equal(t, 201, points)

	require.NoError(t, analyzer.SetFrequencySweep(4e9, 8e9, 401))
	require.Equal(t, []string{
		":SENS1:FREQ:STAR 4000000000",
		":SENS1:FREQ:STOP 8000000000",
		":SENS1:SWE:POIN 401",
	}, backend.writes)

	require.Error(t, analyzer.SetFrequencySweep(4e9, 8e9, 20000))
}

func TestAnalyzerSetupSweep(t *testing.T) {
	backend := &scriptedBackend{}
	analyzer := newTestAnalyzer(t, backend)

	err := analyzer.SetupSweep(SweepConfig{
		Start:       4e9,
		Stop:        8e9,
		Points:      201,
		Power:       -15,
		Averages:    4,
		Measurement: "S21",
	})
	require.NoError(t, err)
	require.Equal(t, []string{
		":INIT1:CONT ON",
		":TRIG:SOUR BUS",
		":CALC:PAR:DEF S21",
		":SENS1:FREQ:STAR 4000000000",
		":SENS1:FREQ:STOP 8000000000",
		":SENS1:SWE:POIN 201",
		":SOUR1:POW -15",
		"SENS1:BWA",
		":SENS1:AVER ON",
		":SENS1:AVER:COUN 4",
		":TRIG:AVER ON",
	}, backend.writes)

	require.Error(t, analyzer.SetupSweep(SweepConfig{Measurement: "S33", Points: 1, Power: -1}))
}

func TestAnalyzerMeasurePollsForCompletion(t *testing.T) {
	backend := &scriptedBackend{
		opcAfter: 2,
		replies: map[string]string{
			"CALC1:SEL:DATA:SDAT?": "0.5,0.5",
		},
	}
	analyzer := newTestAnalyzer(t, backend)

	curve, err := analyzer.Measure(context.Background())
	require.NoError(t, err)
	require.Equal(t, []complex128{complex(0.5, 0.5)}, curve)
	require.Equal(t, 3, backend.opcSeen)
	require.Equal(t, []string{":TRIG:SING"}, backend.writes)
}

func TestAnalyzerMeasureHonoursContext(t *testing.T) {
	backend := &scriptedBackend{opcAfter: int(^uint(0) >> 1)}
	analyzer := newTestAnalyzer(t, backend)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := analyzer.Measure(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAnalyzerTriggerControls(t *testing.T) {
	backend := &scriptedBackend{replies: map[string]string{
		":TRIG:SOUR?":               "BUS",
		":INIT:CONT?":               "1",
		":TRIGger:OUTPut:POSition?": "AFT",
	}}
	analyzer := newTestAnalyzer(t, backend)

	source, err := analyzer.TriggerSource()
	require.NoError(t, err)
	require.Equal(t, "BUS", source)

	continuous, err := analyzer.TriggerContinuous()
	require.NoError(t, err)
	require.True(t, continuous)

	position, err := analyzer.ExternalTriggerPosition()
	require.NoError(t, err)
	require.Equal(t, "AFT", position)

	require.NoError(t, analyzer.SetTriggerSource("INT"))
	require.NoError(t, analyzer.SetTriggerContinuous("off"))
	require.NoError(t, analyzer.SetExternalTrigger(1))
	require.Equal(t, []string{
		":TRIG:SOUR INT",
		":INIT:CONT OFF",
		":TRIGger:OUTPut ON",
	}, backend.writes)
}
