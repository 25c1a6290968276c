package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"climate_guard/internal/models"
)

type GuardStateSQLite struct {
	db *sql.DB
}

func NewGuardStateSQLite(db *sql.DB) *GuardStateSQLite {
	return &GuardStateSQLite{db: db}
}

var _ GuardStateRepo = (*GuardStateSQLite)(nil)

const (
	upsertGuardStateSQL = `
		INSERT INTO guard_state (device_id, armed, last_run, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(device_id) DO UPDATE SET
			armed=excluded.armed,
			last_run=excluded.last_run,
			updated_at=excluded.updated_at
	`

	selectGuardStateSQL = `
		SELECT device_id, armed, last_run, updated_at
		FROM guard_state WHERE device_id=?
	`
)

// Save upserts the per-device guard_state row. Timestamps are persisted as UTC.
func (r *GuardStateSQLite) Save(ctx context.Context, s models.GuardState) error {
	tsUTC := s.UpdatedAt
	if tsUTC.IsZero() {
		tsUTC = time.Now().UTC()
	} else {
		tsUTC = tsUTC.UTC()
	}

	var lastRun any
	if s.LastRun != nil {
		lastRun = s.LastRun.UTC()
	}

	_, err := r.db.ExecContext(ctx, upsertGuardStateSQL,
		s.DeviceID,
		s.Armed,
		lastRun,
		tsUTC,
	)
	return err
}

// Load fetches the guard_state row for a device. The second return value is
// false when the device has never been persisted.
func (r *GuardStateSQLite) Load(ctx context.Context, deviceID string) (models.GuardState, bool, error) {
	row := r.db.QueryRowContext(ctx, selectGuardStateSQL, deviceID)

	var (
		s       models.GuardState
		lastRun sql.NullTime
	)
	if err := row.Scan(&s.DeviceID, &s.Armed, &lastRun, &s.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.GuardState{}, false, nil
		}
		return models.GuardState{}, false, err
	}

	if lastRun.Valid {
		t := lastRun.Time.UTC()
		s.LastRun = &t
	}
	s.UpdatedAt = s.UpdatedAt.UTC()

	return s, true, nil
}
