package sensor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func fixedVoltage(v float64) VoltageReader {
	return func(context.Context, int) (float64, error) { return v, nil }
}

func TestAnalogLinearMapping(t *testing.T) {
	t.Parallel()

	opts := AnalogOptions{VoltageLow: 0.5, VoltageHigh: 4.5, Scale: 100}

	cases := []struct {
		name    string
		voltage float64
		want    float64
	}{
		{"at low rail", 0.5, 0},
		{"midpoint", 2.5, 50},
		{"at high rail", 4.5, 100},
		{"below low rail clamps to zero", 0.2, 0},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			src, err := NewAnalog(opts, fixedVoltage(tc.voltage), zerolog.Nop())
			require.NoError(t, err)

			got, err := src.Read(context.Background())
			require.NoError(t, err)
			require.InDelta(t, tc.want, got, 1e-9)
		})
	}
}

func TestAnalogReadError(t *testing.T) {
	t.Parallel()

	boom := errors.New("adc offline")
	src, err := NewAnalog(AnalogOptions{VoltageLow: 0.5, VoltageHigh: 4.5},
		func(context.Context, int) (float64, error) { return 0, boom },
		zerolog.Nop())
	require.NoError(t, err)

	_, err = src.Read(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestNewAnalogRejectsInvalidSpan(t *testing.T) {
	t.Parallel()

	_, err := NewAnalog(AnalogOptions{VoltageLow: 4.5, VoltageHigh: 0.5}, fixedVoltage(1), zerolog.Nop())
	require.Error(t, err)

	_, err = NewAnalog(AnalogOptions{VoltageLow: 0.5, VoltageHigh: 4.5}, nil, zerolog.Nop())
	require.Error(t, err)
}

func TestDigitalUnitFactor(t *testing.T) {
	t.Parallel()

	src, err := NewDigital(DigitalOptions{UnitFactor: 0.1},
		func(context.Context) (float64, error) { return 1013.25, nil },
		zerolog.Nop())
	require.NoError(t, err)

	got, err := src.Read(context.Background())
	require.NoError(t, err)
	require.InDelta(t, 101.325, got, 1e-9)
}

func TestNewDigitalRejectsBadFactor(t *testing.T) {
	t.Parallel()

	_, err := NewDigital(DigitalOptions{UnitFactor: 0},
		func(context.Context) (float64, error) { return 0, nil },
		zerolog.Nop())
	require.Error(t, err)
}

func TestSimulatedSteadyState(t *testing.T) {
	t.Parallel()

	sim := NewSimulated(SimOptions{BasePressure: 30})

	for i := 0; i < 50; i++ {
		got, err := sim.Read(context.Background())
		require.NoError(t, err)
		require.InDelta(t, 30.0, got, 1.0)
	}
}

func TestSimulatedDecay(t *testing.T) {
	t.Parallel()

	sim := NewSimulated(SimOptions{
		BasePressure: 30,
		DecaySpan:    10,
		DecayWindow:  30 * time.Second,
	})

	// Backdating the decay start by a full window puts the nominal reading
	// at base minus span, within the decay jitter amplitude.
	sim.StartDecay(time.Now().Add(-30 * time.Second))

	got, err := sim.Read(context.Background())
	require.NoError(t, err)
	require.InDelta(t, 20.0, got, 0.6)

	// Far past the window the reading floors at zero.
	sim.StartDecay(time.Now().Add(-time.Hour))
	got, err = sim.Read(context.Background())
	require.NoError(t, err)
	require.Zero(t, got)

	// Reset returns to steady state.
	sim.Reset()
	got, err = sim.Read(context.Background())
	require.NoError(t, err)
	require.InDelta(t, 30.0, got, 1.0)
}

func TestSysfsVoltageReader(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "in_voltage2_raw"), []byte("512\n"), 0o644))

	read := SysfsVoltageReader(dir, 4.096/1024)

	got, err := read(context.Background(), 2)
	require.NoError(t, err)
	require.InDelta(t, 2.048, got, 1e-9)

	_, err = read(context.Background(), 3)
	require.Error(t, err)
}

func TestSysfsUnitReader(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "in_pressure_input")
	require.NoError(t, os.WriteFile(path, []byte(" 101.325 \n"), 0o644))

	got, err := SysfsUnitReader(path)(context.Background())
	require.NoError(t, err)
	require.InDelta(t, 101.325, got, 1e-9)
}

func TestSysfsReaderRejectsGarbage(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "in_pressure_input")
	require.NoError(t, os.WriteFile(path, []byte("not-a-number\n"), 0o644))

	_, err := SysfsUnitReader(path)(context.Background())
	require.Error(t, err)
}
