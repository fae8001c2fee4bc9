package inventory

import (
	"time"

	"github.com/shopspring/decimal"
)

// Gallon statuses.
const (
	StatusActive    = "active"
	StatusDefective = "defective"
)

// Activity types recorded in the activity log.
const (
	ActivityAdded   = "ADDED"
	ActivityRefill  = "REFILL"
	ActivityDefect  = "DEFECT"
	ActivityFixed   = "FIXED"
	ActivityDeleted = "DELETED"
	ActivityLeak    = "LEAK"
)

// Gallon is one tracked container.
type Gallon struct {
	InventoryID string
	Name        string
	Refills     int
	Defects     int
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Activity is one entry of the audit trail.
type Activity struct {
	ID          int64
	InventoryID string
	Type        string
	Description string
	CreatedAt   time.Time
}

// PressureSample persists one completed sampling tick of a monitoring
// session.
type PressureSample struct {
	ID               int64
	InventoryID      string
	SessionStartedAt time.Time
	Tick             int
	RawPressure      decimal.Decimal
	SmoothedPressure decimal.Decimal
	DropPct          decimal.Decimal
	CreatedAt        time.Time
}

// LeakEvent records a confirmed leak.
type LeakEvent struct {
	ID               int64
	InventoryID      string
	DropPct          decimal.Decimal
	BaselinePressure decimal.Decimal
	CurrentPressure  decimal.Decimal
	DetectedAt       time.Time
	CreatedAt        time.Time
}

// Statistics aggregates the inventory counters.
type Statistics struct {
	TotalGallons     int64
	ActiveGallons    int64
	DefectiveGallons int64
	TotalRefills     int64
	TotalDefects     int64
}
