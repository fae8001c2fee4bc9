package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"gallon-leak-watch/internal/inventory"
)

var reportTime = time.Date(2026, 8, 26, 14, 30, 0, 0, time.UTC)

func sampleGallons() []inventory.Gallon {
	return []inventory.Gallon{
		{
			InventoryID: "WG-0001",
			Name:        "Office cooler",
			Refills:     3,
			Defects:     0,
			Status:      inventory.StatusActive,
			CreatedAt:   reportTime.Add(-48 * time.Hour),
			UpdatedAt:   reportTime.Add(-time.Hour),
		},
		{
			InventoryID: "WG-0002",
			Name:        "Warehouse",
			Refills:     1,
			Defects:     2,
			Status:      inventory.StatusDefective,
			CreatedAt:   reportTime.Add(-72 * time.Hour),
			UpdatedAt:   reportTime,
		},
	}
}

func readReport(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestSaveInventorySnapshot(t *testing.T) {
	t.Parallel()

	w := NewWriter(t.TempDir(), zerolog.Nop())

	path, err := w.SaveInventorySnapshot(sampleGallons(), reportTime)
	require.NoError(t, err)
	require.Equal(t, "inventory_backup.txt", filepath.Base(path))

	content := readReport(t, path)
	require.Contains(t, content, "WATER GALLON INVENTORY SYSTEM - BACKUP")
	require.Contains(t, content, "Generated: 2026-08-26 14:30:00")
	require.Contains(t, content, "Total Gallons: 2")
	require.Contains(t, content, "Inventory ID: WG-0001")
	require.Contains(t, content, "Name: Warehouse")
	require.Contains(t, content, "Status: defective")
}

func TestSaveInventorySnapshotEmpty(t *testing.T) {
	t.Parallel()

	w := NewWriter(t.TempDir(), zerolog.Nop())

	path, err := w.SaveInventorySnapshot(nil, reportTime)
	require.NoError(t, err)
	require.Contains(t, readReport(t, path), "No gallons in inventory.")
}

func TestExportGallonDetails(t *testing.T) {
	t.Parallel()

	w := NewWriter(t.TempDir(), zerolog.Nop())

	activity := []inventory.Activity{
		{
			InventoryID: "WG-0001",
			Type:        inventory.ActivityAdded,
			Description: "Gallon 'Office cooler' added to inventory",
			CreatedAt:   reportTime.Add(-48 * time.Hour),
		},
		{
			InventoryID: "WG-0001",
			Type:        inventory.ActivityRefill,
			Description: "Gallon refilled",
			CreatedAt:   reportTime.Add(-time.Hour),
		},
	}

	path, err := w.ExportGallonDetails(sampleGallons()[0], activity, reportTime)
	require.NoError(t, err)
	require.Equal(t, "gallon_WG-0001_20260826_143000.txt", filepath.Base(path))

	content := readReport(t, path)
	require.Contains(t, content, "GALLON DETAILED REPORT")
	require.Contains(t, content, "Inventory ID: WG-0001")
	require.Contains(t, content, "ACTIVITY HISTORY")
	require.Contains(t, content, "[2026-08-24 14:30:00] ADDED")
	require.Contains(t, content, "Gallon refilled")
}

func TestCreateDailyReport(t *testing.T) {
	t.Parallel()

	w := NewWriter(t.TempDir(), zerolog.Nop())

	stats := inventory.Statistics{
		TotalGallons:     2,
		ActiveGallons:    1,
		DefectiveGallons: 1,
		TotalRefills:     4,
		TotalDefects:     2,
	}

	path, err := w.CreateDailyReport(stats, sampleGallons(), reportTime)
	require.NoError(t, err)
	require.Equal(t, "daily_report_2026-08-26.txt", filepath.Base(path))

	content := readReport(t, path)
	require.Contains(t, content, "DAILY INVENTORY REPORT - 2026-08-26")
	require.Contains(t, content, "Active Gallons: 1")
	require.Contains(t, content, "Defective Gallons: 1")
	require.Contains(t, content, "ACTIVE GALLONS")
	require.Contains(t, content, "DEFECTIVE GALLONS")

	// Each status table lists only its own gallons.
	activeIdx := strings.Index(content, "ACTIVE GALLONS")
	defectiveIdx := strings.Index(content, "DEFECTIVE GALLONS")
	require.Contains(t, content[activeIdx:defectiveIdx], "WG-0001")
	require.NotContains(t, content[activeIdx:defectiveIdx], "WG-0002")
	require.Contains(t, content[defectiveIdx:], "WG-0002")
}

func TestCreateDailyReportEmptySections(t *testing.T) {
	t.Parallel()

	w := NewWriter(t.TempDir(), zerolog.Nop())

	path, err := w.CreateDailyReport(inventory.Statistics{}, nil, reportTime)
	require.NoError(t, err)

	content := readReport(t, path)
	require.Contains(t, content, "No active gallons.")
	require.Contains(t, content, "No defective gallons.")
}
