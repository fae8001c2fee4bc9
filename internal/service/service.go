package service

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"gallon-leak-watch/internal/alerting"
	"gallon-leak-watch/internal/config"
	"gallon-leak-watch/internal/inventory"
	"gallon-leak-watch/internal/metrics"
	"gallon-leak-watch/internal/monitor"
)

// ErrGallonBusy indicates another process already watches this gallon.
var ErrGallonBusy = errors.New("service: gallon is already being watched by another process")

// Stores bundles the persistence surfaces the watcher consumes. Any field
// may be nil; the watcher degrades to in-memory operation.
type Stores struct {
	Gallons inventory.GallonStore
	Samples inventory.SampleStore
	Leaks   inventory.LeakEventStore
	Locker  inventory.AdvisoryLocker
}

// Watcher wires the leak monitor to its collaborators: the inventory
// store, the activity trail, alert channels, and metrics.
type Watcher struct {
	cfg      *config.Config
	mon      *monitor.LeakMonitor
	stores   Stores
	notifier alerting.Notifier
	metrics  *metrics.Metrics
	logger   zerolog.Logger

	threshold decimal.Decimal
	channels  []string
	alertsOn  bool
}

// New constructs the watcher service.
func New(cfg *config.Config, mon *monitor.LeakMonitor, stores Stores, notifier alerting.Notifier, m *metrics.Metrics, logger zerolog.Logger) *Watcher {
	return &Watcher{
		cfg:       cfg,
		mon:       mon,
		stores:    stores,
		notifier:  notifier,
		metrics:   m,
		logger:    logger.With().Str("component", "watcher").Logger(),
		threshold: decimal.NewFromFloat(cfg.Monitor.ThresholdPct),
		channels:  cfg.Alerting.Channels,
		alertsOn:  cfg.Alerting.Enabled,
	}
}

// Status proxies the monitor snapshot for presentation layers.
func (w *Watcher) Status() monitor.Status {
	return w.mon.Status()
}

// Watch runs one monitoring session for the gallon and blocks until the
// session ends: leak confirmed, context cancelled, or Stop via signal.
func (w *Watcher) Watch(ctx context.Context, gallonID string) error {
	if gallonID == "" {
		return errors.New("service: gallon id is required")
	}

	if w.stores.Gallons != nil {
		gallon, err := w.stores.Gallons.GetGallon(ctx, gallonID)
		if err != nil {
			return fmt.Errorf("look up gallon %s: %w", gallonID, err)
		}
		if gallon.Status == inventory.StatusDefective {
			w.logger.Warn().Str("inventory_id", gallonID).Msg("gallon already marked defective; watching anyway")
		}
	}

	if w.stores.Locker != nil {
		unlock, acquired, err := w.stores.Locker.TryAdvisoryLock(ctx, lockKey(gallonID))
		if err != nil {
			return fmt.Errorf("acquire watch lock: %w", err)
		}
		if !acquired {
			return ErrGallonBusy
		}
		defer unlock()
	}

	sessionStart := time.Now().UTC()
	w.mon.SetSampleObserver(w.sampleObserver(gallonID, sessionStart))

	if err := w.mon.Start(ctx, gallonID, w.leakSink(gallonID)); err != nil {
		return err
	}

	statusInterval := w.cfg.Monitor.StatusInterval
	if statusInterval <= 0 {
		statusInterval = 5 * time.Second
	}
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.mon.Stop()
			return ctx.Err()
		case <-ticker.C:
			status := w.mon.Status()
			if !status.Monitoring {
				return nil
			}
			w.logger.Info().
				Str("inventory_id", status.AssetID).
				Str("state", string(status.State)).
				Float64("pressure", status.CurrentPressure).
				Float64("baseline", status.BaselinePressure).
				Float64("drop_pct", status.DropPct).
				Dur("elapsed", status.Elapsed).
				Msg("monitoring")
		}
	}
}

// Stop cancels the active session, if any.
func (w *Watcher) Stop() {
	w.mon.Stop()
}

// sampleObserver persists each tick and feeds the metric set.
func (w *Watcher) sampleObserver(gallonID string, sessionStart time.Time) monitor.SampleFunc {
	return func(sample monitor.Sample) {
		if w.metrics != nil {
			w.metrics.ObserveSample(sample)
		}

		if w.stores.Samples == nil {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		record := inventory.PressureSample{
			InventoryID:      gallonID,
			SessionStartedAt: sessionStart,
			Tick:             sample.Tick,
			RawPressure:      decimal.NewFromFloat(sample.Raw),
			SmoothedPressure: decimal.NewFromFloat(sample.Smoothed),
			DropPct:          decimal.NewFromFloat(sample.DropPct),
		}
		if err := w.stores.Samples.InsertPressureSample(ctx, record); err != nil {
			w.logger.Error().Err(err).Int("tick", sample.Tick).Msg("failed to persist pressure sample")
		}
	}
}

// leakSink handles the single confirmed-leak notification: mark the gallon
// defective, persist the event, and dispatch alerts. Collaborator failures
// are logged, never raised back into the sampling task.
func (w *Watcher) leakSink(gallonID string) monitor.NotifyFunc {
	return func(event monitor.LeakEvent) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if w.metrics != nil {
			w.metrics.ObserveLeakConfirmed()
		}

		drop := decimal.NewFromFloat(event.DropPct)
		baseline := decimal.NewFromFloat(event.BaselinePressure)
		current := decimal.NewFromFloat(event.CurrentPressure)

		if w.stores.Gallons != nil {
			desc := fmt.Sprintf("Leak detected: pressure drop %s%% (%s -> %s PSI)",
				drop.StringFixed(2), baseline.StringFixed(2), current.StringFixed(2))
			if err := w.stores.Gallons.RecordLeak(ctx, gallonID, desc); err != nil {
				w.logger.Error().Err(err).Str("inventory_id", gallonID).Msg("failed to mark gallon defective")
			}
		}

		if w.stores.Leaks != nil {
			record := inventory.LeakEvent{
				InventoryID:      gallonID,
				DropPct:          drop,
				BaselinePressure: baseline,
				CurrentPressure:  current,
				DetectedAt:       event.DetectedAt,
			}
			if _, err := w.stores.Leaks.InsertLeakEvent(ctx, record); err != nil {
				w.logger.Error().Err(err).Str("inventory_id", gallonID).Msg("failed to persist leak event")
			}
		}

		if w.alertsOn && w.notifier != nil {
			note := alerting.Notification{
				InventoryID:      gallonID,
				DropPct:          drop,
				ThresholdPct:     w.threshold,
				BaselinePressure: baseline,
				CurrentPressure:  current,
				DetectedAt:       event.DetectedAt,
				Channels:         w.channels,
			}
			if err := w.notifier.Notify(ctx, note); err != nil {
				w.logger.Error().Err(err).Str("inventory_id", gallonID).Msg("failed to dispatch leak alert")
			}
		}
	}
}

// lockKey derives a stable advisory lock key for a gallon id.
func lockKey(gallonID string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte("gallonwatch:" + gallonID))
	return int64(h.Sum64())
}
