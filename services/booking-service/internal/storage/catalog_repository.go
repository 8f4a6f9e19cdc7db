package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/danielvegam/citaflow/libs/db"
	"github.com/danielvegam/citaflow/services/booking-service/internal/model"
)

// CatalogRepository reads and maintains the local replicas of catalog-owned
// entities (services, variants, customers, availability windows). The
// replicas are written only by the catalog-sync consumer; the booking path
// treats them as read-only.
type CatalogRepository struct {
	pool *db.Pool
}

func NewCatalogRepository(pool *db.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

func (r *CatalogRepository) GetService(ctx context.Context, tenantID, serviceID string) (model.Service, error) {
	var s model.Service
	err := Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT id, tenant_id, name, active, duration_minutes, price_cents
		FROM services
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, serviceID).Scan(&s.ID, &s.TenantID, &s.Name, &s.Active, &s.DurationMinutes, &s.PriceCents)
	if err != nil {
		if IsNotFound(err) {
			return model.Service{}, model.ErrNotFound
		}
		return model.Service{}, fmt.Errorf("get service: %w", err)
	}
	return s, nil
}

// GetVariant resolves a variant scoped to its owning service; a variant id
// belonging to another service comes back as not found.
func (r *CatalogRepository) GetVariant(ctx context.Context, tenantID, serviceID, variantID string) (model.ServiceVariant, error) {
	var v model.ServiceVariant
	err := Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT v.id, v.service_id, v.name, v.duration_minutes, v.price_cents
		FROM service_variants v
		JOIN services s ON s.id = v.service_id
		WHERE s.tenant_id = $1 AND v.service_id = $2 AND v.id = $3
	`, tenantID, serviceID, variantID).Scan(&v.ID, &v.ServiceID, &v.Name, &v.DurationMinutes, &v.PriceCents)
	if err != nil {
		if IsNotFound(err) {
			return model.ServiceVariant{}, model.ErrNotFound
		}
		return model.ServiceVariant{}, fmt.Errorf("get variant: %w", err)
	}
	return v, nil
}

func (r *CatalogRepository) GetCustomer(ctx context.Context, tenantID, customerID string) (model.Customer, error) {
	var c model.Customer
	err := Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT id, tenant_id, name, COALESCE(phone, '')
		FROM customers
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, customerID).Scan(&c.ID, &c.TenantID, &c.Name, &c.Phone)
	if err != nil {
		if IsNotFound(err) {
			return model.Customer{}, model.ErrNotFound
		}
		return model.Customer{}, fmt.Errorf("get customer: %w", err)
	}
	return c, nil
}

func (r *CatalogRepository) UpsertService(ctx context.Context, s model.Service) error {
	_, err := Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO services (id, tenant_id, name, active, duration_minutes, price_cents)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
			active = EXCLUDED.active,
			duration_minutes = EXCLUDED.duration_minutes,
			price_cents = EXCLUDED.price_cents
	`, s.ID, s.TenantID, s.Name, s.Active, s.DurationMinutes, s.PriceCents)
	if err != nil {
		return fmt.Errorf("upsert service: %w", err)
	}
	return nil
}

func (r *CatalogRepository) UpsertVariant(ctx context.Context, v model.ServiceVariant) error {
	_, err := Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO service_variants (id, service_id, name, duration_minutes, price_cents)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
			duration_minutes = EXCLUDED.duration_minutes,
			price_cents = EXCLUDED.price_cents
	`, v.ID, v.ServiceID, v.Name, v.DurationMinutes, v.PriceCents)
	if err != nil {
		return fmt.Errorf("upsert variant: %w", err)
	}
	return nil
}

func (r *CatalogRepository) UpsertCustomer(ctx context.Context, c model.Customer) error {
	_, err := Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO customers (id, tenant_id, name, phone)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
			phone = EXCLUDED.phone
	`, c.ID, c.TenantID, c.Name, c.Phone)
	if err != nil {
		return fmt.Errorf("upsert customer: %w", err)
	}
	return nil
}

func (r *CatalogRepository) UpsertWindow(ctx context.Context, w model.AvailabilityWindow) error {
	if err := w.Validate(); err != nil {
		return fmt.Errorf("invalid window: %w", err)
	}
	var date any
	if w.Date != nil {
		date = time.Date(w.Date.Year(), w.Date.Month(), w.Date.Day(), 0, 0, 0, 0, time.UTC)
	}
	_, err := Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO availability_windows
			(id, tenant_id, service_id, weekday, date, start_minute, end_minute, capacity, timezone)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE
		SET weekday = EXCLUDED.weekday,
			date = EXCLUDED.date,
			start_minute = EXCLUDED.start_minute,
			end_minute = EXCLUDED.end_minute,
			capacity = EXCLUDED.capacity,
			timezone = EXCLUDED.timezone
	`, w.ID, w.TenantID, w.ServiceID, w.Weekday, date, w.StartMinute, w.EndMinute, w.Capacity, w.Timezone)
	if err != nil {
		return fmt.Errorf("upsert window: %w", err)
	}
	return nil
}

func (r *CatalogRepository) DeleteWindow(ctx context.Context, tenantID, windowID string) error {
	_, err := Conn(ctx, r.pool).Exec(ctx, `
		DELETE FROM availability_windows
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, windowID)
	if err != nil {
		return fmt.Errorf("delete window: %w", err)
	}
	return nil
}
