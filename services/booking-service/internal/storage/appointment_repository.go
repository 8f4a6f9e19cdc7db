package storage

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/danielvegam/citaflow/libs/db"
	"github.com/danielvegam/citaflow/services/booking-service/internal/model"
)

type AppointmentRepository struct {
	pool *db.Pool
}

func NewAppointmentRepository(pool *db.Pool) *AppointmentRepository {
	return &AppointmentRepository{pool: pool}
}

func (r *AppointmentRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return WithTx(ctx, r.pool, fn)
}

const appointmentColumns = `id, tenant_id, customer_id, service_id, COALESCE(variant_id::text, ''),
	start_at, end_at, status, COALESCE(notes, ''), created_at, canceled_at`

// CountActiveOverlapping counts capacity-consuming appointments whose
// interval strictly overlaps [start, end): existing.start < end AND
// existing.end > start.
func (r *AppointmentRepository) CountActiveOverlapping(ctx context.Context, tenantID, serviceID string, start, end time.Time) (int, error) {
	var count int
	err := Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT COUNT(*)
		FROM appointments
		WHERE tenant_id = $1
			AND service_id = $2
			AND status IN ('pending', 'confirmed')
			AND start_at < $4
			AND end_at > $3
	`, tenantID, serviceID, start, end).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count overlapping: %w", err)
	}
	return count, nil
}

func (r *AppointmentRepository) Insert(ctx context.Context, appt model.Appointment) error {
	var variantID any
	if appt.VariantID != "" {
		variantID = appt.VariantID
	}
	_, err := Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO appointments
			(id, tenant_id, customer_id, service_id, variant_id, start_at, end_at, status, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, appt.ID, appt.TenantID, appt.CustomerID, appt.ServiceID, variantID,
		appt.StartAt, appt.EndAt, appt.Status, appt.Notes, appt.CreatedAt)
	if err != nil {
		return conflictErr(fmt.Errorf("insert appointment: %w", err))
	}
	return nil
}

func (r *AppointmentRepository) Get(ctx context.Context, tenantID, id string) (model.Appointment, error) {
	return r.get(ctx, tenantID, id, false)
}

// GetForUpdate loads the appointment with a row lock; status transitions go
// through it so concurrent transitions on the same appointment serialize.
func (r *AppointmentRepository) GetForUpdate(ctx context.Context, tenantID, id string) (model.Appointment, error) {
	return r.get(ctx, tenantID, id, true)
}

func (r *AppointmentRepository) get(ctx context.Context, tenantID, id string, forUpdate bool) (model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE tenant_id = $1 AND id = $2`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var appt model.Appointment
	err := Conn(ctx, r.pool).QueryRow(ctx, query, tenantID, id).Scan(
		&appt.ID,
		&appt.TenantID,
		&appt.CustomerID,
		&appt.ServiceID,
		&appt.VariantID,
		&appt.StartAt,
		&appt.EndAt,
		&appt.Status,
		&appt.Notes,
		&appt.CreatedAt,
		&appt.CanceledAt,
	)
	if err != nil {
		if IsNotFound(err) {
			return model.Appointment{}, model.ErrNotFound
		}
		return model.Appointment{}, fmt.Errorf("get appointment: %w", err)
	}
	return appt, nil
}

func (r *AppointmentRepository) UpdateStatus(ctx context.Context, tenantID, id string, status model.AppointmentStatus, at time.Time) error {
	var canceledAt any
	if status == model.StatusCanceled {
		canceledAt = at
	}
	tag, err := Conn(ctx, r.pool).Exec(ctx, `
		UPDATE appointments
		SET status = $3, canceled_at = COALESCE($4, canceled_at)
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, id, status, canceledAt)
	if err != nil {
		return conflictErr(fmt.Errorf("update status: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

type ListFilter struct {
	CustomerID string
	ServiceID  string
	Status     model.AppointmentStatus
	From       time.Time
	To         time.Time
	Limit      int
}

func (r *AppointmentRepository) List(ctx context.Context, tenantID string, f ListFilter) ([]model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE tenant_id = $1`
	args := []any{tenantID}

	add := func(clause string, v any) {
		args = append(args, v)
		query += " AND " + strings.Replace(clause, "?", "$"+strconv.Itoa(len(args)), 1)
	}
	if f.CustomerID != "" {
		add("customer_id = ?", f.CustomerID)
	}
	if f.ServiceID != "" {
		add("service_id = ?", f.ServiceID)
	}
	if f.Status != "" {
		add("status = ?", f.Status)
	}
	if !f.From.IsZero() {
		add("start_at >= ?", f.From)
	}
	if !f.To.IsZero() {
		add("start_at < ?", f.To)
	}

	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	args = append(args, limit)
	query += " ORDER BY start_at ASC LIMIT $" + strconv.Itoa(len(args))

	rows, err := Conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	var appts []model.Appointment
	for rows.Next() {
		var appt model.Appointment
		if err := rows.Scan(
			&appt.ID,
			&appt.TenantID,
			&appt.CustomerID,
			&appt.ServiceID,
			&appt.VariantID,
			&appt.StartAt,
			&appt.EndAt,
			&appt.Status,
			&appt.Notes,
			&appt.CreatedAt,
			&appt.CanceledAt,
		); err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		appts = append(appts, appt)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return appts, nil
}

// FindIdempotent returns the appointment id previously stored for the key.
func (r *AppointmentRepository) FindIdempotent(ctx context.Context, tenantID, key string) (string, bool, error) {
	var apptID string
	err := Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT appointment_id
		FROM booking_idempotency_keys
		WHERE tenant_id = $1 AND idempotency_key = $2
	`, tenantID, key).Scan(&apptID)
	if err != nil {
		if IsNotFound(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("find idempotency key: %w", err)
	}
	return apptID, true, nil
}

func (r *AppointmentRepository) SaveIdempotent(ctx context.Context, tenantID, key, appointmentID string) error {
	_, err := Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO booking_idempotency_keys (tenant_id, idempotency_key, appointment_id)
		VALUES ($1, $2, $3)
	`, tenantID, key, appointmentID)
	if err != nil {
		return conflictErr(fmt.Errorf("save idempotency key: %w", err))
	}
	return nil
}
