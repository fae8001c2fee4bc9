package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("inventory: pool not configured")
	// ErrDuplicateGallon indicates the inventory id already exists.
	ErrDuplicateGallon = errors.New("inventory: inventory id already exists")
	// ErrGallonNotFound indicates the gallon does not exist.
	ErrGallonNotFound = errors.New("inventory: gallon not found")
)

const (
	insertGallonSQL = `INSERT INTO gallons (
        inventory_id, name, refills, defects, status, created_at, updated_at
    ) VALUES ($1, $2, 0, 0, 'active', now(), now());`

	getGallonSQL = `SELECT
        inventory_id, name, refills, defects, status, created_at, updated_at
    FROM gallons
    WHERE inventory_id = $1;`

	listGallonsSQL = `SELECT
        inventory_id, name, refills, defects, status, created_at, updated_at
    FROM gallons
    ORDER BY inventory_id;`

	incrementRefillsSQL = `UPDATE gallons
    SET refills = refills + 1, updated_at = now()
    WHERE inventory_id = $1;`

	addDefectSQL = `UPDATE gallons
    SET defects = defects + 1, status = 'defective', updated_at = now()
    WHERE inventory_id = $1;`

	fixDefectSQL = `UPDATE gallons
    SET status = 'active', updated_at = now()
    WHERE inventory_id = $1;`

	deleteGallonSQL = `DELETE FROM gallons WHERE inventory_id = $1;`

	insertActivitySQL = `INSERT INTO activity_log (
        inventory_id, activity_type, description
    ) VALUES ($1, $2, $3);`

	listActivitySQL = `SELECT
        id, inventory_id, activity_type, description, created_at
    FROM activity_log
    WHERE ($1 = '' OR inventory_id = $1)
    ORDER BY created_at DESC
    LIMIT $2;`

	statisticsSQL = `SELECT
        COUNT(*),
        COUNT(*) FILTER (WHERE status = 'active'),
        COUNT(*) FILTER (WHERE status = 'defective'),
        COALESCE(SUM(refills), 0),
        COALESCE(SUM(defects), 0)
    FROM gallons;`

	insertPressureSampleSQL = `INSERT INTO pressure_samples (
        inventory_id, session_started_at, tick,
        raw_pressure, smoothed_pressure, drop_pct
    ) VALUES ($1, $2, $3, $4, $5, $6);`

	listRecentSamplesSQL = `SELECT
        id, inventory_id, session_started_at, tick,
        raw_pressure, smoothed_pressure, drop_pct, created_at
    FROM pressure_samples
    ORDER BY created_at DESC
    LIMIT $1;`

	listSamplesBetweenSQL = `SELECT
        id, inventory_id, session_started_at, tick,
        raw_pressure, smoothed_pressure, drop_pct, created_at
    FROM pressure_samples
    WHERE created_at >= $1
      AND created_at < $2
    ORDER BY created_at;`

	insertLeakEventSQL = `INSERT INTO leak_events (
        inventory_id, drop_pct, baseline_pressure, current_pressure, detected_at
    ) VALUES ($1, $2, $3, $4, $5)
    RETURNING id, inventory_id, drop_pct, baseline_pressure, current_pressure, detected_at, created_at;`

	listLeakEventsSQL = `SELECT
        id, inventory_id, drop_pct, baseline_pressure, current_pressure, detected_at, created_at
    FROM leak_events
    ORDER BY detected_at DESC
    LIMIT $1;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// GallonStore defines operations on the gallon records.
type GallonStore interface {
	AddGallon(ctx context.Context, inventoryID, name string) error
	GetGallon(ctx context.Context, inventoryID string) (Gallon, error)
	ListGallons(ctx context.Context) ([]Gallon, error)
	IncrementRefills(ctx context.Context, inventoryID string) error
	AddDefect(ctx context.Context, inventoryID, description string) error
	RecordLeak(ctx context.Context, inventoryID, description string) error
	FixDefect(ctx context.Context, inventoryID string) error
	DeleteGallon(ctx context.Context, inventoryID string) error
	ListActivity(ctx context.Context, inventoryID string, limit int) ([]Activity, error)
	Statistics(ctx context.Context) (Statistics, error)
}

// SampleStore defines operations for pressure sample persistence.
type SampleStore interface {
	InsertPressureSample(ctx context.Context, sample PressureSample) error
	ListRecentSamples(ctx context.Context, limit int) ([]PressureSample, error)
	ListSamplesBetween(ctx context.Context, from, to time.Time) ([]PressureSample, error)
}

// LeakEventStore defines operations for confirmed-leak auditing.
type LeakEventStore interface {
	InsertLeakEvent(ctx context.Context, event LeakEvent) (LeakEvent, error)
	ListLeakEvents(ctx context.Context, limit int) ([]LeakEvent, error)
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store aggregates access to gallons, activity, samples and leak events.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// AddGallon inserts a new gallon and records the ADDED activity in one
// transaction.
func (s *Store) AddGallon(ctx context.Context, inventoryID, name string) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin add gallon: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, insertGallonSQL, inventoryID, name); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateGallon
		}
		return fmt.Errorf("insert gallon: %w", err)
	}

	desc := fmt.Sprintf("New gallon %q added to inventory", name)
	if _, err := tx.Exec(ctx, insertActivitySQL, inventoryID, ActivityAdded, desc); err != nil {
		return fmt.Errorf("log add activity: %w", err)
	}

	return tx.Commit(ctx)
}

// GetGallon fetches a gallon by inventory id.
func (s *Store) GetGallon(ctx context.Context, inventoryID string) (Gallon, error) {
	pool, err := s.getPool()
	if err != nil {
		return Gallon{}, err
	}

	row := pool.QueryRow(ctx, getGallonSQL, inventoryID)
	gallon, err := scanGallon(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Gallon{}, ErrGallonNotFound
	}
	if err != nil {
		return Gallon{}, fmt.Errorf("get gallon: %w", err)
	}
	return gallon, nil
}

// ListGallons returns the full inventory ordered by id.
func (s *Store) ListGallons(ctx context.Context) ([]Gallon, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listGallonsSQL)
	if queryErr != nil {
		return nil, fmt.Errorf("list gallons: %w", queryErr)
	}
	defer rows.Close()

	gallons := make([]Gallon, 0)
	for rows.Next() {
		gallon, scanErr := scanGallon(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		gallons = append(gallons, gallon)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return gallons, nil
}

// IncrementRefills bumps a gallon's refill counter.
func (s *Store) IncrementRefills(ctx context.Context, inventoryID string) error {
	return s.mutateGallon(ctx, inventoryID, incrementRefillsSQL, ActivityRefill, "Gallon refilled")
}

// AddDefect marks a gallon defective and bumps its defect counter.
func (s *Store) AddDefect(ctx context.Context, inventoryID, description string) error {
	if description == "" {
		description = "Defect detected and reported"
	}
	return s.mutateGallon(ctx, inventoryID, addDefectSQL, ActivityDefect, description)
}

// RecordLeak marks the gallon defective like AddDefect, but types the
// activity row as LEAK so confirmed leaks are distinguishable from manual
// defect reports in the audit trail.
func (s *Store) RecordLeak(ctx context.Context, inventoryID, description string) error {
	return s.mutateGallon(ctx, inventoryID, addDefectSQL, ActivityLeak, description)
}

// FixDefect returns a gallon to active status.
func (s *Store) FixDefect(ctx context.Context, inventoryID string) error {
	return s.mutateGallon(ctx, inventoryID, fixDefectSQL, ActivityFixed, "Defect fixed, returned to active inventory")
}

// DeleteGallon removes a gallon; its activity rows keep the id for audit.
func (s *Store) DeleteGallon(ctx context.Context, inventoryID string) error {
	return s.mutateGallon(ctx, inventoryID, deleteGallonSQL, ActivityDeleted, "Gallon removed from inventory")
}

func (s *Store) mutateGallon(ctx context.Context, inventoryID, mutation, activityType, description string) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin gallon mutation: %w", err)
	}
	defer tx.Rollback(ctx)

	cmdTag, execErr := tx.Exec(ctx, mutation, inventoryID)
	if execErr != nil {
		return fmt.Errorf("mutate gallon: %w", execErr)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrGallonNotFound
	}

	if _, err := tx.Exec(ctx, insertActivitySQL, inventoryID, activityType, description); err != nil {
		return fmt.Errorf("log activity: %w", err)
	}

	return tx.Commit(ctx)
}

// ListActivity returns recent activity, optionally filtered by gallon id.
func (s *Store) ListActivity(ctx context.Context, inventoryID string, limit int) ([]Activity, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listActivitySQL, inventoryID, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list activity: %w", queryErr)
	}
	defer rows.Close()

	activities := make([]Activity, 0, limit)
	for rows.Next() {
		var a Activity
		if err := rows.Scan(&a.ID, &a.InventoryID, &a.Type, &a.Description, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		activities = append(activities, a)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return activities, nil
}

// Statistics aggregates the inventory counters.
func (s *Store) Statistics(ctx context.Context) (Statistics, error) {
	pool, err := s.getPool()
	if err != nil {
		return Statistics{}, err
	}

	var stats Statistics
	row := pool.QueryRow(ctx, statisticsSQL)
	if err := row.Scan(
		&stats.TotalGallons,
		&stats.ActiveGallons,
		&stats.DefectiveGallons,
		&stats.TotalRefills,
		&stats.TotalDefects,
	); err != nil {
		return Statistics{}, fmt.Errorf("inventory statistics: %w", err)
	}
	return stats, nil
}

// InsertPressureSample persists one sampling tick.
func (s *Store) InsertPressureSample(ctx context.Context, sample PressureSample) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	_, execErr := pool.Exec(ctx, insertPressureSampleSQL,
		sample.InventoryID,
		sample.SessionStartedAt,
		sample.Tick,
		sample.RawPressure.String(),
		sample.SmoothedPressure.String(),
		sample.DropPct.String(),
	)
	if execErr != nil {
		return fmt.Errorf("insert pressure sample: %w", execErr)
	}
	return nil
}

// ListRecentSamples lists the most recent samples, newest first.
func (s *Store) ListRecentSamples(ctx context.Context, limit int) ([]PressureSample, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentSamplesSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent samples: %w", queryErr)
	}
	defer rows.Close()

	return collectSamples(rows, limit)
}

// ListSamplesBetween lists samples within a time window, oldest first.
func (s *Store) ListSamplesBetween(ctx context.Context, from, to time.Time) ([]PressureSample, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listSamplesBetweenSQL, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list samples between: %w", queryErr)
	}
	defer rows.Close()

	return collectSamples(rows, 0)
}

// InsertLeakEvent records a confirmed leak and returns the stored row.
func (s *Store) InsertLeakEvent(ctx context.Context, event LeakEvent) (LeakEvent, error) {
	pool, err := s.getPool()
	if err != nil {
		return LeakEvent{}, err
	}

	row := pool.QueryRow(ctx, insertLeakEventSQL,
		event.InventoryID,
		event.DropPct.String(),
		event.BaselinePressure.String(),
		event.CurrentPressure.String(),
		event.DetectedAt,
	)
	stored, scanErr := scanLeakEvent(row)
	if scanErr != nil {
		return LeakEvent{}, fmt.Errorf("insert leak event: %w", scanErr)
	}
	return stored, nil
}

// ListLeakEvents lists recent confirmed leaks, newest first.
func (s *Store) ListLeakEvents(ctx context.Context, limit int) ([]LeakEvent, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listLeakEventsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list leak events: %w", queryErr)
	}
	defer rows.Close()

	events := make([]LeakEvent, 0, limit)
	for rows.Next() {
		event, scanErr := scanLeakEvent(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		events = append(events, event)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return events, nil
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns
// a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		// Best effort; the lock is released anyway when the connection
		// closes.
		_, _ = conn.Exec(ctxUnlock, advisoryUnlockSQL, key)
		conn.Release()
	}
	return unlock, true, nil
}

func scanGallon(row pgx.Row) (Gallon, error) {
	var g Gallon
	err := row.Scan(
		&g.InventoryID,
		&g.Name,
		&g.Refills,
		&g.Defects,
		&g.Status,
		&g.CreatedAt,
		&g.UpdatedAt,
	)
	return g, err
}

func collectSamples(rows pgx.Rows, sizeHint int) ([]PressureSample, error) {
	samples := make([]PressureSample, 0, sizeHint)
	for rows.Next() {
		var (
			sample   PressureSample
			raw      string
			smoothed string
			drop     string
		)
		if err := rows.Scan(
			&sample.ID,
			&sample.InventoryID,
			&sample.SessionStartedAt,
			&sample.Tick,
			&raw,
			&smoothed,
			&drop,
			&sample.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan pressure sample: %w", err)
		}

		var err error
		if sample.RawPressure, err = decimal.NewFromString(raw); err != nil {
			return nil, fmt.Errorf("decode raw pressure: %w", err)
		}
		if sample.SmoothedPressure, err = decimal.NewFromString(smoothed); err != nil {
			return nil, fmt.Errorf("decode smoothed pressure: %w", err)
		}
		if sample.DropPct, err = decimal.NewFromString(drop); err != nil {
			return nil, fmt.Errorf("decode drop pct: %w", err)
		}
		samples = append(samples, sample)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return samples, nil
}

func scanLeakEvent(row pgx.Row) (LeakEvent, error) {
	var (
		event    LeakEvent
		drop     string
		baseline string
		current  string
	)
	if err := row.Scan(
		&event.ID,
		&event.InventoryID,
		&drop,
		&baseline,
		&current,
		&event.DetectedAt,
		&event.CreatedAt,
	); err != nil {
		return LeakEvent{}, err
	}

	var err error
	if event.DropPct, err = decimal.NewFromString(drop); err != nil {
		return LeakEvent{}, fmt.Errorf("decode drop pct: %w", err)
	}
	if event.BaselinePressure, err = decimal.NewFromString(baseline); err != nil {
		return LeakEvent{}, fmt.Errorf("decode baseline pressure: %w", err)
	}
	if event.CurrentPressure, err = decimal.NewFromString(current); err != nil {
		return LeakEvent{}, fmt.Errorf("decode current pressure: %w", err)
	}
	return event, nil
}
