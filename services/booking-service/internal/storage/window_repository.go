package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/danielvegam/citaflow/libs/db"
	"github.com/danielvegam/citaflow/services/booking-service/internal/model"
)

type WindowRepository struct {
	pool *db.Pool
}

func NewWindowRepository(pool *db.Pool) *WindowRepository {
	return &WindowRepository{pool: pool}
}

// ForDate returns the union of specific-date windows for date and recurring
// windows for date's weekday (Monday=0). Specific-date windows sort first so
// covering-window selection downstream is deterministic.
func (r *WindowRepository) ForDate(ctx context.Context, tenantID, serviceID string, date time.Time) ([]model.AvailabilityWindow, error) {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	weekday := model.MondayIndexed(day.Weekday())

	rows, err := Conn(ctx, r.pool).Query(ctx, `
		SELECT id, tenant_id, service_id, weekday, date, start_minute, end_minute, capacity, timezone
		FROM availability_windows
		WHERE tenant_id = $1
			AND service_id = $2
			AND (date = $3 OR weekday = $4)
		ORDER BY (date IS NULL), start_minute, id
	`, tenantID, serviceID, day, weekday)
	if err != nil {
		return nil, fmt.Errorf("query windows: %w", err)
	}
	defer rows.Close()

	var windows []model.AvailabilityWindow
	for rows.Next() {
		var w model.AvailabilityWindow
		if err := rows.Scan(&w.ID, &w.TenantID, &w.ServiceID, &w.Weekday, &w.Date, &w.StartMinute, &w.EndMinute, &w.Capacity, &w.Timezone); err != nil {
			return nil, fmt.Errorf("scan window: %w", err)
		}
		windows = append(windows, w)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return windows, nil
}

// Lock takes a row-level lock on the window. Every create for the same
// window serializes behind this lock, which is what keeps the capacity count
// and the subsequent insert atomic with respect to concurrent writers. The
// locked row is returned so callers decide on the capacity as of the lock,
// not as of an earlier unlocked read.
func (r *WindowRepository) Lock(ctx context.Context, tenantID, windowID string) (model.AvailabilityWindow, error) {
	var w model.AvailabilityWindow
	err := Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT id, tenant_id, service_id, weekday, date, start_minute, end_minute, capacity, timezone
		FROM availability_windows
		WHERE tenant_id = $1 AND id = $2
		FOR UPDATE
	`, tenantID, windowID).Scan(&w.ID, &w.TenantID, &w.ServiceID, &w.Weekday, &w.Date, &w.StartMinute, &w.EndMinute, &w.Capacity, &w.Timezone)
	if err != nil {
		if IsNotFound(err) {
			return model.AvailabilityWindow{}, model.ErrNotFound
		}
		return model.AvailabilityWindow{}, conflictErr(fmt.Errorf("lock window: %w", err))
	}
	return w, nil
}
