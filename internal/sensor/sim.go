package sensor

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

// SimOptions tune the hardware-free simulator.
type SimOptions struct {
	// BasePressure is the steady-state reading.
	BasePressure float64
	// DecaySpan is how far pressure falls over DecayWindow once a decay
	// is armed. Dev tooling sets this just past the confirmation
	// threshold so a simulated leak always crosses it.
	DecaySpan float64
	// DecayWindow is the period over which DecaySpan is applied.
	DecayWindow time.Duration
}

// Simulated manufactures synthetic readings so the monitor is testable
// without a transducer. It holds steady at BasePressure with small
// jitter, or decays linearly once armed via StartDecay.
type Simulated struct {
	opts SimOptions

	mu        sync.Mutex
	decaying  bool
	decayFrom time.Time
}

// NewSimulated builds a simulator.
func NewSimulated(opts SimOptions) *Simulated {
	if opts.BasePressure <= 0 {
		opts.BasePressure = 30.0
	}
	if opts.DecayWindow <= 0 {
		opts.DecayWindow = 30 * time.Second
	}
	return &Simulated{opts: opts}
}

// StartDecay arms a linear pressure decay starting at the given instant.
func (s *Simulated) StartDecay(from time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decaying = true
	s.decayFrom = from
}

// Reset returns the simulator to steady-state output.
func (s *Simulated) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decaying = false
	s.decayFrom = time.Time{}
}

// Read implements Source.
func (s *Simulated) Read(_ context.Context) (float64, error) {
	s.mu.Lock()
	decaying := s.decaying
	from := s.decayFrom
	s.mu.Unlock()

	if decaying {
		elapsed := time.Since(from)
		drop := (elapsed.Seconds() / s.opts.DecayWindow.Seconds()) * s.opts.DecaySpan
		reading := s.opts.BasePressure - drop + jitter(0.5)
		if reading < 0 {
			reading = 0
		}
		return reading, nil
	}

	return s.opts.BasePressure + jitter(1.0), nil
}

// Kind implements Source.
func (s *Simulated) Kind() string { return "simulated" }

func jitter(amplitude float64) float64 {
	return (rand.Float64()*2 - 1) * amplitude
}
