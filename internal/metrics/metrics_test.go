package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"gallon-leak-watch/internal/monitor"
)

func TestObserveSample(t *testing.T) {
	t.Parallel()

	m := New()

	m.ObserveSample(monitor.Sample{
		Tick:     1,
		Raw:      29.5,
		Smoothed: 29.75,
		DropPct:  0.83,
		Elapsed:  2 * time.Second,
	})
	m.ObserveSample(monitor.Sample{
		Tick:    2,
		Failed:  true,
		Elapsed: 3 * time.Second,
	})

	require.Equal(t, 2.0, testutil.ToFloat64(m.ticks))
	require.Equal(t, 1.0, testutil.ToFloat64(m.readFailures))
	require.Equal(t, 0.0, testutil.ToFloat64(m.currentPressure))
	require.Equal(t, 3.0, testutil.ToFloat64(m.elapsedSeconds))
}

func TestObserveLeakConfirmed(t *testing.T) {
	t.Parallel()

	m := New()
	require.Equal(t, 0.0, testutil.ToFloat64(m.leaksConfirmed))

	m.ObserveLeakConfirmed()
	require.Equal(t, 1.0, testutil.ToFloat64(m.leaksConfirmed))
}

func TestRegistryGathersAllSeries(t *testing.T) {
	t.Parallel()

	m := New()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	require.Len(t, families, 6)
}
