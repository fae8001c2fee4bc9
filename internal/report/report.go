package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"gallon-leak-watch/internal/inventory"
)

const rule = "================================================================================"
const thinRule = "--------------------------------------------------------------------------------"

// Writer renders inventory text artifacts under a reports directory.
type Writer struct {
	dir    string
	logger zerolog.Logger
}

// NewWriter builds a report writer rooted at dir.
func NewWriter(dir string, logger zerolog.Logger) *Writer {
	return &Writer{
		dir:    dir,
		logger: logger.With().Str("component", "report").Logger(),
	}
}

// SaveInventorySnapshot writes the full inventory backup file and returns
// its path. The file is overwritten on every call.
func (w *Writer) SaveInventorySnapshot(gallons []inventory.Gallon, now time.Time) (string, error) {
	builder := strings.Builder{}
	builder.WriteString(rule + "\n")
	builder.WriteString("WATER GALLON INVENTORY SYSTEM - BACKUP\n")
	builder.WriteString(fmt.Sprintf("Generated: %s\n", now.Format("2006-01-02 15:04:05")))
	builder.WriteString(rule + "\n\n")

	if len(gallons) == 0 {
		builder.WriteString("No gallons in inventory.\n")
	} else {
		builder.WriteString(fmt.Sprintf("Total Gallons: %d\n\n", len(gallons)))
		builder.WriteString(thinRule + "\n")
		for _, g := range gallons {
			builder.WriteString(fmt.Sprintf("\nInventory ID: %s\n", g.InventoryID))
			builder.WriteString(fmt.Sprintf("Name: %s\n", g.Name))
			builder.WriteString(fmt.Sprintf("Refills: %d\n", g.Refills))
			builder.WriteString(fmt.Sprintf("Defects: %d\n", g.Defects))
			builder.WriteString(fmt.Sprintf("Status: %s\n", g.Status))
			builder.WriteString(fmt.Sprintf("Created: %s\n", g.CreatedAt.Format("2006-01-02 15:04:05")))
			builder.WriteString(fmt.Sprintf("Last Modified: %s\n", g.UpdatedAt.Format("2006-01-02 15:04:05")))
			builder.WriteString(thinRule + "\n")
		}
	}

	path := filepath.Join(w.dir, "inventory_backup.txt")
	if err := w.write(path, builder.String()); err != nil {
		return "", err
	}
	return path, nil
}

// ExportGallonDetails writes a per-gallon report including its activity
// history and returns the file path.
func (w *Writer) ExportGallonDetails(gallon inventory.Gallon, activity []inventory.Activity, now time.Time) (string, error) {
	builder := strings.Builder{}
	builder.WriteString(rule + "\n")
	builder.WriteString("GALLON DETAILED REPORT\n")
	builder.WriteString(rule + "\n\n")

	builder.WriteString(fmt.Sprintf("Inventory ID: %s\n", gallon.InventoryID))
	builder.WriteString(fmt.Sprintf("Name: %s\n", gallon.Name))
	builder.WriteString(fmt.Sprintf("Refills: %d\n", gallon.Refills))
	builder.WriteString(fmt.Sprintf("Defects: %d\n", gallon.Defects))
	builder.WriteString(fmt.Sprintf("Status: %s\n", gallon.Status))
	builder.WriteString(fmt.Sprintf("Created: %s\n", gallon.CreatedAt.Format("2006-01-02 15:04:05")))
	builder.WriteString(fmt.Sprintf("Last Modified: %s\n", gallon.UpdatedAt.Format("2006-01-02 15:04:05")))

	if len(activity) > 0 {
		builder.WriteString("\n" + rule + "\n")
		builder.WriteString("ACTIVITY HISTORY\n")
		builder.WriteString(rule + "\n\n")
		for _, a := range activity {
			builder.WriteString(fmt.Sprintf("[%s] %s\n", a.CreatedAt.Format("2006-01-02 15:04:05"), a.Type))
			builder.WriteString(fmt.Sprintf("  %s\n\n", a.Description))
		}
	}

	filename := fmt.Sprintf("gallon_%s_%s.txt", gallon.InventoryID, now.Format("20060102_150405"))
	path := filepath.Join(w.dir, filename)
	if err := w.write(path, builder.String()); err != nil {
		return "", err
	}
	return path, nil
}

// CreateDailyReport writes the statistics report with active and defective
// gallon tables and returns the file path.
func (w *Writer) CreateDailyReport(stats inventory.Statistics, gallons []inventory.Gallon, now time.Time) (string, error) {
	builder := strings.Builder{}
	builder.WriteString(rule + "\n")
	builder.WriteString(fmt.Sprintf("DAILY INVENTORY REPORT - %s\n", now.Format("2006-01-02")))
	builder.WriteString(rule + "\n\n")

	builder.WriteString("SUMMARY STATISTICS\n")
	builder.WriteString(thinRule + "\n")
	builder.WriteString(fmt.Sprintf("Total Gallons: %d\n", stats.TotalGallons))
	builder.WriteString(fmt.Sprintf("Active Gallons: %d\n", stats.ActiveGallons))
	builder.WriteString(fmt.Sprintf("Defective Gallons: %d\n", stats.DefectiveGallons))
	builder.WriteString(fmt.Sprintf("Total Refills: %d\n", stats.TotalRefills))
	builder.WriteString(fmt.Sprintf("Total Defects: %d\n\n", stats.TotalDefects))

	writeSection(&builder, "ACTIVE GALLONS", filterByStatus(gallons, inventory.StatusActive))
	builder.WriteString("\n")
	writeSection(&builder, "DEFECTIVE GALLONS", filterByStatus(gallons, inventory.StatusDefective))

	builder.WriteString("\n" + rule + "\n")
	builder.WriteString(fmt.Sprintf("Report generated at: %s\n", now.Format("2006-01-02 15:04:05")))
	builder.WriteString(rule + "\n")

	filename := fmt.Sprintf("daily_report_%s.txt", now.Format("2006-01-02"))
	path := filepath.Join(w.dir, filename)
	if err := w.write(path, builder.String()); err != nil {
		return "", err
	}
	return path, nil
}

func writeSection(builder *strings.Builder, title string, gallons []inventory.Gallon) {
	builder.WriteString(rule + "\n")
	builder.WriteString(title + "\n")
	builder.WriteString(rule + "\n")

	if len(gallons) == 0 {
		builder.WriteString(fmt.Sprintf("No %s.\n", strings.ToLower(title)))
		return
	}

	builder.WriteString(fmt.Sprintf("%-15s %-30s %-10s %-10s\n", "ID", "Name", "Refills", "Defects"))
	builder.WriteString(thinRule + "\n")
	for _, g := range gallons {
		builder.WriteString(fmt.Sprintf("%-15s %-30s %-10d %-10d\n", g.InventoryID, g.Name, g.Refills, g.Defects))
	}
}

func filterByStatus(gallons []inventory.Gallon, status string) []inventory.Gallon {
	filtered := make([]inventory.Gallon, 0, len(gallons))
	for _, g := range gallons {
		if g.Status == status {
			filtered = append(filtered, g)
		}
	}
	return filtered
}

func (w *Writer) write(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create reports dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	w.logger.Info().Str("path", path).Msg("report written")
	return nil
}
