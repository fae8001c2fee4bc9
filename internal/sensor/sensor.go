package sensor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Source abstracts a pressure transducer. Read must complete within a
// bounded latency; it is invoked from a periodic sampling task.
type Source interface {
	// Read returns the instantaneous pressure in PSI (or the sensor's
	// calibrated unit). A failed read returns (0, err); callers treat it
	// as a sentinel for that tick, never as a session-ending error.
	Read(ctx context.Context) (float64, error)
	// Kind identifies the concrete source for logging.
	Kind() string
}

// VoltageReader acquires the raw ADC voltage for an analog channel.
type VoltageReader func(ctx context.Context, channel int) (float64, error)

// UnitReader acquires the raw value of a calibrated digital sensor.
type UnitReader func(ctx context.Context) (float64, error)

// AnalogOptions parameterise the linear voltage-to-pressure mapping.
// The defaults model a common transducer: 0.5V at 0 PSI, 4.5V at 100 PSI.
type AnalogOptions struct {
	VoltageLow  float64
	VoltageHigh float64
	Scale       float64
	Channel     int
}

// Analog converts ADC voltage readings into pressure via a linear map.
type Analog struct {
	opts   AnalogOptions
	read   VoltageReader
	logger zerolog.Logger
}

// NewAnalog builds an analog pressure source over the given voltage reader.
func NewAnalog(opts AnalogOptions, read VoltageReader, logger zerolog.Logger) (*Analog, error) {
	if read == nil {
		return nil, errors.New("analog source requires a voltage reader")
	}
	if opts.VoltageHigh <= opts.VoltageLow {
		return nil, fmt.Errorf("voltage span invalid: low %.3f >= high %.3f", opts.VoltageLow, opts.VoltageHigh)
	}
	if opts.Scale <= 0 {
		opts.Scale = 100.0
	}
	return &Analog{
		opts:   opts,
		read:   read,
		logger: logger.With().Str("component", "sensor_analog").Logger(),
	}, nil
}

// Read maps the current voltage into pressure, clamped at zero.
func (a *Analog) Read(ctx context.Context) (float64, error) {
	voltage, err := a.read(ctx, a.opts.Channel)
	if err != nil {
		return 0, fmt.Errorf("read adc voltage: %w", err)
	}

	span := a.opts.VoltageHigh - a.opts.VoltageLow
	pressure := ((voltage - a.opts.VoltageLow) / span) * a.opts.Scale
	if pressure < 0 {
		pressure = 0
	}
	return pressure, nil
}

// Kind implements Source.
func (a *Analog) Kind() string { return "analog" }

// DigitalOptions parameterise a calibrated digital sensor. UnitFactor
// converts the sensor's native unit into the monitor's unit, e.g. 0.1
// for a barometric sensor reporting hPa when the monitor works in kPa.
type DigitalOptions struct {
	UnitFactor float64
}

// Digital wraps a calibrated digital sensor.
type Digital struct {
	opts   DigitalOptions
	read   UnitReader
	logger zerolog.Logger
}

// NewDigital builds a digital pressure source over the given raw reader.
func NewDigital(opts DigitalOptions, read UnitReader, logger zerolog.Logger) (*Digital, error) {
	if read == nil {
		return nil, errors.New("digital source requires a unit reader")
	}
	if opts.UnitFactor <= 0 {
		return nil, fmt.Errorf("unit factor must be positive, got %.4f", opts.UnitFactor)
	}
	return &Digital{
		opts:   opts,
		read:   read,
		logger: logger.With().Str("component", "sensor_digital").Logger(),
	}, nil
}

// Read returns the calibrated pressure value.
func (d *Digital) Read(ctx context.Context) (float64, error) {
	raw, err := d.read(ctx)
	if err != nil {
		return 0, fmt.Errorf("read digital sensor: %w", err)
	}
	return raw * d.opts.UnitFactor, nil
}

// Kind implements Source.
func (d *Digital) Kind() string { return "digital" }

// withTimeout applies a default deadline when the caller supplied none.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}
