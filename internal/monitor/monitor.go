package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"gallon-leak-watch/internal/sensor"
)

// ErrAlreadyMonitoring is returned by Start while a session is active.
var ErrAlreadyMonitoring = errors.New("monitor: a session is already active")

// Config governs the leak-detection decision.
type Config struct {
	// ThresholdPct is the smoothed pressure drop, as a percentage of the
	// baseline, required to confirm a leak.
	ThresholdPct float64
	// Duration is how long monitoring must have run before a leak may be
	// confirmed.
	Duration time.Duration
	// WindowSize bounds the smoothing window of recent raw readings.
	WindowSize int
	// SampleInterval is the cadence of the sampling task.
	SampleInterval time.Duration
	// BaselineSamples and BaselineSpacing control baseline capture.
	BaselineSamples int
	BaselineSpacing time.Duration
	// StopTimeout bounds how long Stop waits for the sampling task.
	StopTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.ThresholdPct == 0 {
		c.ThresholdPct = 5.0
	}
	if c.Duration == 0 {
		c.Duration = 30 * time.Second
	}
	if c.WindowSize == 0 {
		c.WindowSize = 10
	}
	if c.SampleInterval == 0 {
		c.SampleInterval = time.Second
	}
	if c.BaselineSamples == 0 {
		c.BaselineSamples = 5
	}
	if c.BaselineSpacing == 0 {
		c.BaselineSpacing = 100 * time.Millisecond
	}
	if c.StopTimeout == 0 {
		c.StopTimeout = 2 * time.Second
	}
}

// Validate rejects configurations the monitor cannot run with.
func (c Config) Validate() error {
	if c.ThresholdPct <= 0 {
		return fmt.Errorf("monitor: threshold must be positive, got %.2f", c.ThresholdPct)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("monitor: duration must be positive, got %s", c.Duration)
	}
	if c.WindowSize <= 0 {
		return fmt.Errorf("monitor: window size must be positive, got %d", c.WindowSize)
	}
	if c.SampleInterval <= 0 {
		return fmt.Errorf("monitor: sample interval must be positive, got %s", c.SampleInterval)
	}
	if c.BaselineSamples <= 0 {
		return fmt.Errorf("monitor: baseline samples must be positive, got %d", c.BaselineSamples)
	}
	if c.BaselineSpacing < 0 {
		return fmt.Errorf("monitor: baseline spacing cannot be negative, got %s", c.BaselineSpacing)
	}
	return nil
}

// LeakEvent carries the context of a confirmed leak to the notification sink.
type LeakEvent struct {
	AssetID          string
	DropPct          float64
	BaselinePressure float64
	CurrentPressure  float64
	DetectedAt       time.Time
}

// NotifyFunc receives the single leak notification for a session. It is
// invoked synchronously from the sampling task, at most once per session.
type NotifyFunc func(event LeakEvent)

// Sample describes one completed sampling tick. Failed marks a tick whose
// read errored and contributed a zero sentinel.
type Sample struct {
	AssetID  string
	Tick     int
	Raw      float64
	Smoothed float64
	DropPct  float64
	Elapsed  time.Duration
	At       time.Time
	Failed   bool
}

// SampleFunc observes completed ticks, e.g. for persistence or metrics.
type SampleFunc func(sample Sample)

// Status is a consistent snapshot of the monitor, safe to render while the
// sampling task runs. When no session is active all numeric fields are zero.
type Status struct {
	Monitoring       bool
	State            State
	AssetID          string
	CurrentPressure  float64
	BaselinePressure float64
	DropPct          float64
	Elapsed          time.Duration
	LeakDetected     bool
}

// LeakMonitor owns the monitoring lifecycle for a single pressure source:
// baseline capture, the periodic sampling task, the threshold/duration
// decision, and the single-shot leak notification.
type LeakMonitor struct {
	src    sensor.Source
	cfg    Config
	logger zerolog.Logger

	mu       sync.Mutex
	sess     *session
	cancel   context.CancelFunc
	done     chan struct{}
	onSample SampleFunc
}

// New constructs a LeakMonitor. Zero config fields take defaults;
// invalid values are rejected here so a session never starts misconfigured.
func New(src sensor.Source, cfg Config, logger zerolog.Logger) (*LeakMonitor, error) {
	if src == nil {
		return nil, errors.New("monitor: pressure source is required")
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &LeakMonitor{
		src:    src,
		cfg:    cfg,
		logger: logger.With().Str("component", "leak_monitor").Logger(),
	}, nil
}

// SetSampleObserver registers a per-tick observer. Must be called before
// Start.
func (m *LeakMonitor) SetSampleObserver(fn SampleFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onSample = fn
}

// Config returns the effective configuration after defaults.
func (m *LeakMonitor) Config() Config {
	return m.cfg
}

// Start begins monitoring the named asset. Only one session may be active;
// a second Start returns ErrAlreadyMonitoring and leaves the first session
// untouched. The session is reserved synchronously, then baseline capture
// and the sampling loop run on a background task until a leak is confirmed,
// the context is cancelled, or Stop is called.
func (m *LeakMonitor) Start(ctx context.Context, assetID string, notify NotifyFunc) error {
	if assetID == "" {
		return errors.New("monitor: asset id is required")
	}

	m.mu.Lock()
	if m.sess != nil && m.sess.active() {
		m.mu.Unlock()
		return ErrAlreadyMonitoring
	}

	sess := newSession(assetID, m.cfg.WindowSize)
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	m.sess = sess
	m.cancel = cancel
	m.done = done
	onSample := m.onSample
	m.mu.Unlock()

	m.logger.Info().Str("asset_id", assetID).Msg("monitoring session starting")

	go m.run(runCtx, sess, notify, onSample, done)
	return nil
}

// Stop cancels the active session without confirming a leak. It is a no-op
// when no session is active. After Stop returns, no further tick executes
// and no notification fires; the join is bounded by StopTimeout.
func (m *LeakMonitor) Stop() {
	m.mu.Lock()
	if m.sess == nil || !m.sess.active() {
		m.mu.Unlock()
		return
	}
	assetID := m.sess.assetID
	cancel := m.cancel
	done := m.done
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	if done != nil {
		select {
		case <-done:
		case <-time.After(m.cfg.StopTimeout):
			m.logger.Warn().Str("asset_id", assetID).
				Dur("timeout", m.cfg.StopTimeout).
				Msg("sampling task did not exit before timeout; assuming cancelled")
		}
	}

	// The task normally clears the session itself; force it on timeout so
	// the monitor always returns to Idle.
	m.mu.Lock()
	if m.sess != nil && m.sess.active() {
		m.sess.state = StateStopped
		m.sess = nil
	}
	m.mu.Unlock()

	m.logger.Info().Str("asset_id", assetID).Msg("monitoring stopped")
}

// Status reports a snapshot of the most recently completed tick. It never
// blocks on the sensor and is safe to call from any state.
func (m *LeakMonitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sess == nil || !m.sess.active() {
		return Status{State: StateIdle}
	}

	s := m.sess
	elapsed := s.elapsed
	if !s.startedAt.IsZero() {
		elapsed = time.Since(s.startedAt)
	}

	return Status{
		Monitoring:       true,
		State:            s.state,
		AssetID:          s.assetID,
		CurrentPressure:  s.current,
		BaselinePressure: s.baseline,
		DropPct:          s.dropPct,
		Elapsed:          elapsed,
		LeakDetected:     s.leakConfirmed,
	}
}

// run executes baseline capture and the sampling loop for one session.
func (m *LeakMonitor) run(ctx context.Context, sess *session, notify NotifyFunc, onSample SampleFunc, done chan struct{}) {
	defer close(done)

	baseline, ok := m.captureBaseline(ctx)
	if !ok {
		m.finish(sess, StateStopped)
		return
	}

	m.mu.Lock()
	sess.baseline = baseline
	sess.startedAt = time.Now()
	sess.state = StateMonitoring
	m.mu.Unlock()

	if baseline == 0 {
		// A zero baseline disables drop detection entirely; surface it
		// instead of under-detecting silently.
		m.logger.Warn().Str("asset_id", sess.assetID).Msg("baseline pressure is zero; leak detection is ineffective")
	} else {
		m.logger.Info().Str("asset_id", sess.assetID).
			Float64("baseline", baseline).
			Msg("baseline captured, sampling started")
	}

	ticker := time.NewTicker(m.cfg.SampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.finish(sess, StateStopped)
			return
		case now := <-ticker.C:
			if confirmed := m.tick(ctx, sess, now, notify, onSample); confirmed {
				return
			}
		}
	}
}

// tick performs one sampling iteration and reports whether the session
// terminated with a confirmed leak.
func (m *LeakMonitor) tick(ctx context.Context, sess *session, now time.Time, notify NotifyFunc, onSample SampleFunc) bool {
	raw, err := m.src.Read(ctx)
	failed := err != nil
	if failed {
		// A failed read contributes a zero sentinel for this tick; the
		// loop continues at the next interval.
		m.logger.Warn().Err(err).Str("asset_id", sess.assetID).Msg("pressure read failed, substituting zero")
		raw = 0
	}

	m.mu.Lock()
	confirmed := sess.observe(raw, now, m.cfg.ThresholdPct, m.cfg.Duration)
	sample := Sample{
		AssetID:  sess.assetID,
		Tick:     sess.ticks,
		Raw:      raw,
		Smoothed: sess.current,
		DropPct:  sess.dropPct,
		Elapsed:  sess.elapsed,
		At:       now,
		Failed:   failed,
	}
	if confirmed {
		sess.leakConfirmed = true
		sess.state = StateLeakConfirmed
	}
	m.mu.Unlock()

	if onSample != nil {
		onSample(sample)
	}

	if !confirmed {
		return false
	}

	if ctx.Err() != nil {
		// Stop raced the confirming tick; the cancellation wins.
		m.finish(sess, StateStopped)
		return true
	}

	event := LeakEvent{
		AssetID:          sample.AssetID,
		DropPct:          sample.DropPct,
		BaselinePressure: sess.baseline,
		CurrentPressure:  sample.Smoothed,
		DetectedAt:       now,
	}

	m.logger.Warn().Str("asset_id", event.AssetID).
		Float64("drop_pct", event.DropPct).
		Float64("baseline", event.BaselinePressure).
		Float64("current", event.CurrentPressure).
		Msg("leak confirmed")

	if notify != nil {
		notify(event)
	}

	m.finish(sess, StateLeakConfirmed)
	return true
}

// captureBaseline averages the initial spaced readings. Failed reads count
// as zero, mirroring the tick policy. Returns false if cancelled mid-capture.
func (m *LeakMonitor) captureBaseline(ctx context.Context) (float64, bool) {
	sum := 0.0
	for i := 0; i < m.cfg.BaselineSamples; i++ {
		if i > 0 && m.cfg.BaselineSpacing > 0 {
			timer := time.NewTimer(m.cfg.BaselineSpacing)
			select {
			case <-ctx.Done():
				timer.Stop()
				return 0, false
			case <-timer.C:
			}
		}
		if ctx.Err() != nil {
			return 0, false
		}

		reading, err := m.src.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return 0, false
			}
			m.logger.Warn().Err(err).Msg("baseline read failed, substituting zero")
			reading = 0
		}
		sum += reading
	}
	return sum / float64(m.cfg.BaselineSamples), true
}

// finish records the terminal state and clears the session back to Idle.
func (m *LeakMonitor) finish(sess *session, terminal State) {
	m.mu.Lock()
	sess.state = terminal
	if m.sess == sess {
		m.sess = nil
		m.cancel = nil
		m.done = nil
	}
	m.mu.Unlock()
}
