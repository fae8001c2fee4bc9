package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"gallon-leak-watch/internal/inventory"
	"gallon-leak-watch/internal/report"
)

var errNoDatabase = errors.New("database not configured; inventory commands require database.dsn")

func (a *App) requireStore(ctx context.Context) (*inventory.Store, func(), error) {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	if store == nil {
		return nil, nil, errNoDatabase
	}
	return store, closeStore, nil
}

// AddGallon registers a new gallon.
func (a *App) AddGallon(ctx context.Context, inventoryID, name string) error {
	store, closeStore, err := a.requireStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := store.AddGallon(ctx, inventoryID, name); err != nil {
		return err
	}
	a.Logger.Info().Str("inventory_id", inventoryID).Str("name", name).Msg("gallon added")
	return nil
}

// ListGallons prints the inventory with summary statistics.
func (a *App) ListGallons(ctx context.Context) error {
	store, closeStore, err := a.requireStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	gallons, err := store.ListGallons(ctx)
	if err != nil {
		return err
	}
	stats, err := store.Statistics(ctx)
	if err != nil {
		return err
	}

	if len(gallons) == 0 {
		fmt.Fprintln(os.Stdout, "no gallons in inventory")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tName\tRefills\tDefects\tStatus\tLast Modified")
	for _, g := range gallons {
		fmt.Fprintf(writer, "%s\t%s\t%d\t%d\t%s\t%s\n",
			g.InventoryID, g.Name, g.Refills, g.Defects, g.Status,
			g.UpdatedAt.UTC().Format(time.RFC3339))
	}
	if err := writer.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "\ntotal %d, active %d, defective %d, refills %d, defects %d\n",
		stats.TotalGallons, stats.ActiveGallons, stats.DefectiveGallons,
		stats.TotalRefills, stats.TotalDefects)
	return nil
}

// RecordRefill bumps a gallon's refill counter.
func (a *App) RecordRefill(ctx context.Context, inventoryID string) error {
	store, closeStore, err := a.requireStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()
	return store.IncrementRefills(ctx, inventoryID)
}

// ReportDefect marks a gallon defective by hand.
func (a *App) ReportDefect(ctx context.Context, inventoryID string) error {
	store, closeStore, err := a.requireStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()
	return store.AddDefect(ctx, inventoryID, "Defect reported manually")
}

// FixDefect returns a gallon to active status.
func (a *App) FixDefect(ctx context.Context, inventoryID string) error {
	store, closeStore, err := a.requireStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()
	return store.FixDefect(ctx, inventoryID)
}

// DeleteGallon removes a gallon from the inventory.
func (a *App) DeleteGallon(ctx context.Context, inventoryID string) error {
	store, closeStore, err := a.requireStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()
	return store.DeleteGallon(ctx, inventoryID)
}

// Backup writes the inventory snapshot file.
func (a *App) Backup(ctx context.Context) error {
	store, closeStore, err := a.requireStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	gallons, err := store.ListGallons(ctx)
	if err != nil {
		return err
	}

	writer := report.NewWriter(a.Config.Reports.Dir, a.Logger)
	path, err := writer.SaveInventorySnapshot(gallons, time.Now())
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "inventory backup saved to %s\n", path)
	return nil
}

// Report writes the daily statistics report.
func (a *App) Report(ctx context.Context) error {
	store, closeStore, err := a.requireStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	gallons, err := store.ListGallons(ctx)
	if err != nil {
		return err
	}
	stats, err := store.Statistics(ctx)
	if err != nil {
		return err
	}

	writer := report.NewWriter(a.Config.Reports.Dir, a.Logger)
	path, err := writer.CreateDailyReport(stats, gallons, time.Now())
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "daily report created at %s\n", path)
	return nil
}

// ExportDetails writes the per-gallon detail report with activity history.
func (a *App) ExportDetails(ctx context.Context, inventoryID string) error {
	store, closeStore, err := a.requireStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	gallon, err := store.GetGallon(ctx, inventoryID)
	if err != nil {
		return err
	}
	activity, err := store.ListActivity(ctx, inventoryID, 100)
	if err != nil {
		return err
	}

	writer := report.NewWriter(a.Config.Reports.Dir, a.Logger)
	path, err := writer.ExportGallonDetails(gallon, activity, time.Now())
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "gallon details exported to %s\n", path)
	return nil
}
