package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"gallon-leak-watch/internal/alerting"
	"gallon-leak-watch/internal/config"
	"gallon-leak-watch/internal/inventory"
	"gallon-leak-watch/internal/metrics"
	"gallon-leak-watch/internal/monitor"
)

type funcSource struct {
	fn func() (float64, error)
}

func (s funcSource) Read(context.Context) (float64, error) { return s.fn() }

func (s funcSource) Kind() string { return "test" }

// collapseAfter returns v for the first reads, then zero, so a leak
// confirms once the monitor duration elapses.
func collapseAfter(v float64, reads int) funcSource {
	var mu sync.Mutex
	n := 0
	return funcSource{fn: func() (float64, error) {
		mu.Lock()
		defer mu.Unlock()
		n++
		if n <= reads {
			return v, nil
		}
		return 0, nil
	}}
}

type fakeGallonStore struct {
	mu     sync.Mutex
	gallon inventory.Gallon
	getErr error
	leaks  []string
}

func (s *fakeGallonStore) AddGallon(context.Context, string, string) error { return nil }

func (s *fakeGallonStore) GetGallon(context.Context, string) (inventory.Gallon, error) {
	return s.gallon, s.getErr
}

func (s *fakeGallonStore) ListGallons(context.Context) ([]inventory.Gallon, error) {
	return nil, nil
}

func (s *fakeGallonStore) IncrementRefills(context.Context, string) error { return nil }

func (s *fakeGallonStore) AddDefect(context.Context, string, string) error { return nil }

func (s *fakeGallonStore) RecordLeak(_ context.Context, _, description string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leaks = append(s.leaks, description)
	return nil
}

func (s *fakeGallonStore) FixDefect(context.Context, string) error { return nil }

func (s *fakeGallonStore) DeleteGallon(context.Context, string) error { return nil }

func (s *fakeGallonStore) ListActivity(context.Context, string, int) ([]inventory.Activity, error) {
	return nil, nil
}

func (s *fakeGallonStore) Statistics(context.Context) (inventory.Statistics, error) {
	return inventory.Statistics{}, nil
}

func (s *fakeGallonStore) recordedLeaks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.leaks...)
}

type fakeSampleStore struct {
	mu      sync.Mutex
	samples []inventory.PressureSample
}

func (s *fakeSampleStore) InsertPressureSample(_ context.Context, sample inventory.PressureSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples = append(s.samples, sample)
	return nil
}

func (s *fakeSampleStore) ListRecentSamples(context.Context, int) ([]inventory.PressureSample, error) {
	return nil, nil
}

func (s *fakeSampleStore) ListSamplesBetween(context.Context, time.Time, time.Time) ([]inventory.PressureSample, error) {
	return nil, nil
}

func (s *fakeSampleStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.samples)
}

type fakeLeakStore struct {
	mu     sync.Mutex
	events []inventory.LeakEvent
}

func (s *fakeLeakStore) InsertLeakEvent(_ context.Context, event inventory.LeakEvent) (inventory.LeakEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return event, nil
}

func (s *fakeLeakStore) ListLeakEvents(context.Context, int) ([]inventory.LeakEvent, error) {
	return nil, nil
}

func (s *fakeLeakStore) recorded() []inventory.LeakEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]inventory.LeakEvent(nil), s.events...)
}

type fakeLocker struct {
	mu       sync.Mutex
	acquired bool
	key      int64
	unlocks  int
}

func (l *fakeLocker) TryAdvisoryLock(_ context.Context, key int64) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.key = key
	if !l.acquired {
		return nil, false, nil
	}
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.unlocks++
	}, true, nil
}

type fakeNotifier struct {
	mu    sync.Mutex
	notes []alerting.Notification
	err   error
}

func (n *fakeNotifier) Notify(_ context.Context, note alerting.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notes = append(n.notes, note)
	return n.err
}

func (n *fakeNotifier) recorded() []alerting.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]alerting.Notification(nil), n.notes...)
}

func testConfig() *config.Config {
	return &config.Config{
		Monitor: config.MonitorConfig{
			ThresholdPct:   5.0,
			StatusInterval: 5 * time.Millisecond,
		},
		Alerting: config.AlertingConfig{
			Enabled:  true,
			Channels: []string{"telegram"},
		},
	}
}

func fastMonitor(t *testing.T, src funcSource, duration time.Duration) *monitor.LeakMonitor {
	t.Helper()
	m, err := monitor.New(src, monitor.Config{
		ThresholdPct:    5.0,
		Duration:        duration,
		WindowSize:      3,
		SampleInterval:  5 * time.Millisecond,
		BaselineSamples: 2,
		BaselineSpacing: time.Millisecond,
		StopTimeout:     time.Second,
	}, zerolog.Nop())
	require.NoError(t, err)
	return m
}

func TestWatchLeakFlow(t *testing.T) {
	t.Parallel()

	gallons := &fakeGallonStore{gallon: inventory.Gallon{InventoryID: "WG-0001", Status: inventory.StatusActive}}
	samples := &fakeSampleStore{}
	leaks := &fakeLeakStore{}
	locker := &fakeLocker{acquired: true}
	notifier := &fakeNotifier{}

	mon := fastMonitor(t, collapseAfter(30, 2), 40*time.Millisecond)
	w := New(testConfig(), mon, Stores{
		Gallons: gallons,
		Samples: samples,
		Leaks:   leaks,
		Locker:  locker,
	}, notifier, metrics.New(), zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, w.Watch(ctx, "WG-0001"))

	marked := gallons.recordedLeaks()
	require.Len(t, marked, 1)
	require.Contains(t, marked[0], "Leak detected")

	events := leaks.recorded()
	require.Len(t, events, 1)
	require.Equal(t, "WG-0001", events[0].InventoryID)
	require.True(t, events[0].DropPct.GreaterThanOrEqual(decimal.NewFromInt(5)))

	notes := notifier.recorded()
	require.Len(t, notes, 1)
	require.Equal(t, "WG-0001", notes[0].InventoryID)
	require.Equal(t, []string{"telegram"}, notes[0].Channels)

	require.Greater(t, samples.count(), 0)

	locker.mu.Lock()
	defer locker.mu.Unlock()
	require.Equal(t, 1, locker.unlocks)
	require.Equal(t, lockKey("WG-0001"), locker.key)
}

func TestWatchRejectsBusyGallon(t *testing.T) {
	t.Parallel()

	mon := fastMonitor(t, collapseAfter(30, 2), time.Second)
	w := New(testConfig(), mon, Stores{Locker: &fakeLocker{acquired: false}}, nil, nil, zerolog.Nop())

	err := w.Watch(context.Background(), "WG-0001")
	require.ErrorIs(t, err, ErrGallonBusy)
}

func TestWatchPropagatesLookupError(t *testing.T) {
	t.Parallel()

	lookupErr := errors.New("gallon not found")
	mon := fastMonitor(t, collapseAfter(30, 2), time.Second)
	w := New(testConfig(), mon, Stores{Gallons: &fakeGallonStore{getErr: lookupErr}}, nil, nil, zerolog.Nop())

	err := w.Watch(context.Background(), "WG-9999")
	require.ErrorIs(t, err, lookupErr)
}

func TestWatchStopsOnCancel(t *testing.T) {
	t.Parallel()

	notifier := &fakeNotifier{}
	mon := fastMonitor(t, funcSource{fn: func() (float64, error) { return 30, nil }}, time.Hour)
	w := New(testConfig(), mon, Stores{}, notifier, nil, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	err := w.Watch(ctx, "WG-0001")
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, notifier.recorded())
	require.Equal(t, monitor.StateIdle, w.Status().State)
}

func TestLockKeyIsStable(t *testing.T) {
	t.Parallel()

	require.Equal(t, lockKey("WG-0001"), lockKey("WG-0001"))
	require.NotEqual(t, lockKey("WG-0001"), lockKey("WG-0002"))
}
