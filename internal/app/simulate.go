package app

import (
	"context"
	"time"
)

// SimulateLeak runs a full monitoring session against the built-in
// simulator with its pressure decay armed, so the whole confirmation and
// notification path can be exercised without hardware. The configured
// sensor kind is ignored on purpose.
func (a *App) SimulateLeak(ctx context.Context, gallonID string) error {
	src := a.newSimulatedSource()
	src.StartDecay(time.Now())

	a.Logger.Info().Str("inventory_id", gallonID).
		Float64("threshold_pct", a.Config.Monitor.ThresholdPct).
		Dur("duration", a.Config.Monitor.Duration).
		Msg("simulating pressure decay")

	return a.watch(ctx, gallonID, src)
}
