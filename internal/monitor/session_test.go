package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestObserveWindowBound verifies the smoothing window evicts oldest-first
// and never exceeds its bound.
func TestObserveWindowBound(t *testing.T) {
	t.Parallel()

	const bound = 10
	sess := newSession("WG-0001", bound)
	sess.baseline = 30
	sess.startedAt = time.Now()

	now := sess.startedAt
	for i := 1; i <= 25; i++ {
		now = now.Add(time.Second)
		sess.observe(float64(i), now, 5.0, time.Minute)
	}

	require.Len(t, sess.window, bound)
	// Most recent readings, in arrival order.
	for i, r := range sess.window {
		require.Equal(t, float64(16+i), r)
	}
}

// TestObserveConstantReadingsNeverConfirm: readings held at the baseline
// keep the drop at zero regardless of elapsed time.
func TestObserveConstantReadingsNeverConfirm(t *testing.T) {
	t.Parallel()

	sess := newSession("WG-0001", 10)
	sess.baseline = 30
	sess.startedAt = time.Now()

	now := sess.startedAt
	for i := 0; i < 120; i++ {
		now = now.Add(time.Second)
		confirmed := sess.observe(30, now, 5.0, 30*time.Second)
		require.False(t, confirmed)
		require.Zero(t, sess.dropPct)
	}
}

// TestObserveZeroBaseline: a zero baseline pins the drop at zero instead
// of dividing by zero, so no leak can confirm.
func TestObserveZeroBaseline(t *testing.T) {
	t.Parallel()

	sess := newSession("WG-0001", 10)
	sess.baseline = 0
	sess.startedAt = time.Now()

	now := sess.startedAt
	for i := 0; i < 60; i++ {
		now = now.Add(time.Second)
		confirmed := sess.observe(0, now, 5.0, 10*time.Second)
		require.False(t, confirmed)
		require.Zero(t, sess.dropPct)
	}
}

// TestObserveRequiresBothConditions: a deep momentary dip before the
// duration elapses must not confirm, and neither does elapsed time alone.
func TestObserveRequiresBothConditions(t *testing.T) {
	t.Parallel()

	sess := newSession("WG-0001", 10)
	sess.baseline = 30
	sess.startedAt = time.Now()

	// Tick 1: a 50% dip, but only one second in.
	confirmed := sess.observe(15, sess.startedAt.Add(time.Second), 5.0, 30*time.Second)
	require.False(t, confirmed)
	require.Greater(t, sess.dropPct, 5.0)

	// Fresh session: small drop, duration long elapsed.
	sess = newSession("WG-0002", 10)
	sess.baseline = 30
	sess.startedAt = time.Now()
	confirmed = sess.observe(29.5, sess.startedAt.Add(time.Hour), 5.0, 30*time.Second)
	require.False(t, confirmed)
}

// TestObserveDecayScenario reproduces the documented decay case: baseline
// 30, readings falling one unit per one-second tick, window 10, threshold
// 5%, duration 10s. The smoothed mean at tick n (n <= 10) is
// 30 - (n-1)/2, so the drop first reaches 5% at tick 4; with both
// conditions required, confirmation lands at tick max(4, 10) = 10.
func TestObserveDecayScenario(t *testing.T) {
	t.Parallel()

	const (
		threshold = 5.0
		duration  = 10 * time.Second
		window    = 10
	)

	// Compute the first tick where the smoothed drop reaches the
	// threshold, independent of the session implementation.
	dropTick := 0
	var trace []float64
	for n := 1; dropTick == 0; n++ {
		trace = append(trace, 31-float64(n))
		lo := 0
		if len(trace) > window {
			lo = len(trace) - window
		}
		sum := 0.0
		for _, r := range trace[lo:] {
			sum += r
		}
		mean := sum / float64(len(trace)-lo)
		if (30-mean)/30*100 >= threshold {
			dropTick = n
		}
	}
	require.Equal(t, 4, dropTick)

	durationTick := int(duration / time.Second)
	expected := dropTick
	if durationTick > expected {
		expected = durationTick
	}

	sess := newSession("WG-0001", window)
	sess.baseline = 30
	sess.startedAt = time.Now()

	confirmedAt := 0
	for n := 1; n <= 30 && confirmedAt == 0; n++ {
		now := sess.startedAt.Add(time.Duration(n) * time.Second)
		if sess.observe(31-float64(n), now, threshold, duration) {
			confirmedAt = n
		}
	}

	require.Equal(t, expected, confirmedAt)
}
