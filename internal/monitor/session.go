package monitor

import "time"

// State names a position in the session lifecycle.
type State string

// Lifecycle states. Idle is both initial and the state reached after a
// terminal state's cleanup.
const (
	StateIdle          State = "idle"
	StateBaselining    State = "baselining"
	StateMonitoring    State = "monitoring"
	StateLeakConfirmed State = "leak_confirmed"
	StateStopped       State = "stopped"
)

// session is the mutable state of one monitoring run. It is owned by the
// sampling task; all access goes through the monitor's mutex.
type session struct {
	assetID   string
	state     State
	baseline  float64
	startedAt time.Time

	// window holds the most recent raw readings, oldest first.
	window     []float64
	windowSize int

	current       float64
	dropPct       float64
	elapsed       time.Duration
	ticks         int
	leakConfirmed bool
}

func newSession(assetID string, windowSize int) *session {
	return &session{
		assetID:    assetID,
		state:      StateBaselining,
		window:     make([]float64, 0, windowSize),
		windowSize: windowSize,
	}
}

// observe folds one raw reading into the session at the given instant and
// reports whether the confirmation rule is met: smoothed drop at or above
// the threshold, sustained past the required duration. Both conditions are
// required so a momentary dip before the duration elapses never confirms.
func (s *session) observe(raw float64, now time.Time, thresholdPct float64, duration time.Duration) bool {
	s.ticks++

	s.window = append(s.window, raw)
	if len(s.window) > s.windowSize {
		s.window = s.window[1:]
	}

	sum := 0.0
	for _, r := range s.window {
		sum += r
	}
	s.current = sum / float64(len(s.window))

	if s.baseline > 0 {
		s.dropPct = (s.baseline - s.current) / s.baseline * 100
	} else {
		// Zero baseline yields drop 0 rather than a division blowup.
		s.dropPct = 0
	}

	s.elapsed = now.Sub(s.startedAt)

	return s.dropPct >= thresholdPct && s.elapsed >= duration
}

func (s *session) active() bool {
	return s.state == StateBaselining || s.state == StateMonitoring
}
