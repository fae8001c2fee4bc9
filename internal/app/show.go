package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"
)

// Show prints recent pressure samples, or confirmed leak events with
// --leaks.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show samples")
	}
	if closeStore != nil {
		defer closeStore()
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)

	if opts.Leaks {
		events, err := store.ListLeakEvents(ctx, opts.Limit)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			fmt.Fprintln(os.Stdout, "no leak events found")
			return nil
		}

		fmt.Fprintln(writer, "Detected (UTC)\tGallon\tDrop%\tBaseline\tCurrent")
		for _, event := range events {
			fmt.Fprintf(
				writer,
				"%s\t%s\t%s\t%s\t%s\n",
				event.DetectedAt.UTC().Format(time.RFC3339),
				event.InventoryID,
				formatDecimal(event.DropPct, 2),
				formatDecimal(event.BaselinePressure, 2),
				formatDecimal(event.CurrentPressure, 2),
			)
		}
		return writer.Flush()
	}

	samples, err := store.ListRecentSamples(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		fmt.Fprintln(os.Stdout, "no samples found")
		return nil
	}

	fmt.Fprintln(writer, "Time (UTC)\tGallon\tTick\tRaw\tSmoothed\tDrop%")
	for _, sample := range samples {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%d\t%s\t%s\t%s\n",
			sample.CreatedAt.UTC().Format(time.RFC3339),
			sample.InventoryID,
			sample.Tick,
			formatDecimal(sample.RawPressure, 2),
			formatDecimal(sample.SmoothedPressure, 2),
			formatDecimal(sample.DropPct, 2),
		)
	}
	return writer.Flush()
}
