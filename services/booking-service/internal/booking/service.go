package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/danielvegam/citaflow/services/booking-service/internal/availability"
	"github.com/danielvegam/citaflow/services/booking-service/internal/clock"
	"github.com/danielvegam/citaflow/services/booking-service/internal/directory"
	"github.com/danielvegam/citaflow/services/booking-service/internal/model"
	"github.com/danielvegam/citaflow/services/booking-service/internal/outbox"
	"github.com/danielvegam/citaflow/services/booking-service/internal/storage"
)

var tracer = otel.Tracer("citaflow.booking")

// DefaultDurationMinutes applies when neither a variant nor a service base
// duration is given. An explicit convention, not derived from the service.
const DefaultDurationMinutes = 60

const alternativesSpan = 3 * 24 * time.Hour

// WindowRepository resolves availability windows. Windows are owned by the
// catalog service; the engine only reads them.
type WindowRepository interface {
	ForDate(ctx context.Context, tenantID, serviceID string, date time.Time) ([]model.AvailabilityWindow, error)
	// Lock serializes concurrent writers for the same window (row lock) and
	// returns the row as locked, so capacity decisions use the current value
	// rather than a pre-transaction read.
	Lock(ctx context.Context, tenantID, windowID string) (model.AvailabilityWindow, error)
}

type CatalogRepository interface {
	GetService(ctx context.Context, tenantID, serviceID string) (model.Service, error)
	GetVariant(ctx context.Context, tenantID, serviceID, variantID string) (model.ServiceVariant, error)
	GetCustomer(ctx context.Context, tenantID, customerID string) (model.Customer, error)
}

type AppointmentRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	CountActiveOverlapping(ctx context.Context, tenantID, serviceID string, start, end time.Time) (int, error)
	Insert(ctx context.Context, appt model.Appointment) error
	Get(ctx context.Context, tenantID, id string) (model.Appointment, error)
	GetForUpdate(ctx context.Context, tenantID, id string) (model.Appointment, error)
	UpdateStatus(ctx context.Context, tenantID, id string, status model.AppointmentStatus, at time.Time) error
	List(ctx context.Context, tenantID string, f storage.ListFilter) ([]model.Appointment, error)
	FindIdempotent(ctx context.Context, tenantID, key string) (string, bool, error)
	SaveIdempotent(ctx context.Context, tenantID, key, appointmentID string) error
}

// EventWriter records domain events inside the caller's transaction.
type EventWriter interface {
	Insert(ctx context.Context, evt outbox.Event) error
}

// Service is the booking orchestrator: it is the only writer of
// appointments, and every mutation goes through it.
type Service struct {
	windows   WindowRepository
	catalog   CatalogRepository
	appts     AppointmentRepository
	events    EventWriter
	directory directory.Provider
	clock     clock.Clock
	logger    *slog.Logger
}

func NewService(windows WindowRepository, catalog CatalogRepository, appts AppointmentRepository, events EventWriter, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		windows: windows,
		catalog: catalog,
		appts:   appts,
		events:  events,
		clock:   clock.NewSystem(),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type Option func(*Service)

// WithClock overrides the system clock (tests).
func WithClock(c clock.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithDirectory adds a directory provider consulted on create in addition to
// the local customer replica.
func WithDirectory(p directory.Provider) Option {
	return func(s *Service) { s.directory = p }
}

// FindAvailability returns all bookable slots for the service between from
// and to, sorted by start time. The read path runs without locks; slight
// staleness only means a shown slot can be rejected at create time.
func (s *Service) FindAvailability(ctx context.Context, tenantID, serviceID, variantID string, from, to time.Time) ([]model.Slot, error) {
	ctx, span := tracer.Start(ctx, "booking.find_availability")
	defer span.End()
	span.SetAttributes(attribute.String("citaflow.service_id", serviceID))

	if !to.After(from) {
		return nil, model.Invalid("invalid time range")
	}

	duration, err := s.resolveDuration(ctx, tenantID, serviceID, variantID)
	if err != nil {
		return nil, err
	}

	var slots []model.Slot
	seen := map[[2]int64]bool{}
	for _, day := range availability.Days(from, to) {
		windows, err := s.windows.ForDate(ctx, tenantID, serviceID, day)
		if err != nil {
			return nil, err
		}
		for _, w := range windows {
			candidates, err := availability.Candidates(w, day, duration, from, to)
			if err != nil {
				s.logger.Warn("skipping window with bad timezone", "window_id", w.ID, "err", err)
				continue
			}
			for _, c := range candidates {
				// Overlapping windows can generate the same interval; the
				// capacity (and the covering window) is a property of the
				// interval, so compute it once.
				key := [2]int64{c.Start.Unix(), c.End.Unix()}
				if seen[key] {
					continue
				}
				seen[key] = true
				left, cover, err := s.capacityLeft(ctx, tenantID, serviceID, windows, c.Start, c.End)
				if err != nil {
					return nil, err
				}
				if left <= 0 {
					continue
				}
				slots = append(slots, model.Slot{
					Start:          c.Start,
					End:            c.End,
					CapacityLeft:   left,
					WindowID:       cover.ID,
					WindowCapacity: cover.Capacity,
				})
			}
		}
	}

	sort.SliceStable(slots, func(i, j int) bool {
		return slots[i].Start.Before(slots[j].Start)
	})
	return slots, nil
}

// capacityLeft finds the window covering [start, end] among the given
// windows and subtracts the overlapping active-appointment count from its
// capacity. When no window covers the interval it denies (returns 0) instead
// of assuming a default capacity.
func (s *Service) capacityLeft(ctx context.Context, tenantID, serviceID string, windows []model.AvailabilityWindow, start, end time.Time) (int, model.AvailabilityWindow, error) {
	cover, ok := availability.FindCovering(windows, availability.DatesAround(start), start, end)
	if !ok {
		return 0, model.AvailabilityWindow{}, nil
	}
	count, err := s.appts.CountActiveOverlapping(ctx, tenantID, serviceID, start, end)
	if err != nil {
		return 0, model.AvailabilityWindow{}, err
	}
	left := cover.Capacity - count
	if left < 0 {
		left = 0
	}
	return left, cover, nil
}

type CreateInput struct {
	TenantID       string
	CustomerID     string
	ServiceID      string
	VariantID      string
	StartAt        time.Time
	EndAt          time.Time
	Notes          string
	Status         model.AppointmentStatus // defaults to pending
	IdempotencyKey string
}

// Create validates and books an appointment. The capacity check and the
// insert run as one serialized unit: the covering window row is locked
// before the overlap count, so two concurrent creates for the same window
// cannot both observe the last free place.
func (s *Service) Create(ctx context.Context, in CreateInput) (model.Appointment, error) {
	ctx, span := tracer.Start(ctx, "booking.create")
	defer span.End()
	span.SetAttributes(
		attribute.String("citaflow.tenant_id", in.TenantID),
		attribute.String("citaflow.service_id", in.ServiceID),
	)

	if !in.EndAt.After(in.StartAt) {
		return model.Appointment{}, model.Invalid("end must be after start")
	}
	status := in.Status
	if status == "" {
		status = model.StatusPending
	}
	if !status.Active() {
		return model.Appointment{}, model.Invalid("initial status must be pending or confirmed")
	}

	svc, err := s.catalog.GetService(ctx, in.TenantID, in.ServiceID)
	if err != nil {
		return model.Appointment{}, fmt.Errorf("service: %w", err)
	}
	if !svc.Active {
		return model.Appointment{}, fmt.Errorf("service: %w", model.ErrNotFound)
	}
	if err := s.verifyCustomer(ctx, in.TenantID, in.CustomerID); err != nil {
		return model.Appointment{}, err
	}
	if in.VariantID != "" {
		if _, err := s.catalog.GetVariant(ctx, in.TenantID, in.ServiceID, in.VariantID); err != nil {
			return model.Appointment{}, fmt.Errorf("variant: %w", err)
		}
	}

	windows, err := s.windowsAround(ctx, in.TenantID, in.ServiceID, in.StartAt)
	if err != nil {
		return model.Appointment{}, err
	}
	cover, ok := availability.FindCovering(windows, availability.DatesAround(in.StartAt), in.StartAt, in.EndAt)
	if !ok {
		return model.Appointment{}, model.Invalid("slot not in any availability window")
	}

	var result model.Appointment
	attempt := func(ctx context.Context) error {
		if in.IdempotencyKey != "" {
			apptID, found, err := s.appts.FindIdempotent(ctx, in.TenantID, in.IdempotencyKey)
			if err != nil {
				return err
			}
			if found {
				existing, err := s.appts.Get(ctx, in.TenantID, apptID)
				if err != nil {
					return err
				}
				result = existing
				return nil
			}
		}

		locked, err := s.windows.Lock(ctx, in.TenantID, cover.ID)
		if err != nil {
			return err
		}
		count, err := s.appts.CountActiveOverlapping(ctx, in.TenantID, in.ServiceID, in.StartAt, in.EndAt)
		if err != nil {
			return err
		}
		if locked.Capacity-count <= 0 {
			return model.Invalid("no capacity")
		}

		appt := model.Appointment{
			ID:         uuid.NewString(),
			TenantID:   in.TenantID,
			CustomerID: in.CustomerID,
			ServiceID:  in.ServiceID,
			VariantID:  in.VariantID,
			StartAt:    in.StartAt.UTC(),
			EndAt:      in.EndAt.UTC(),
			Status:     status,
			Notes:      in.Notes,
			CreatedAt:  s.clock.Now(),
		}
		if err := s.appts.Insert(ctx, appt); err != nil {
			return err
		}
		if in.IdempotencyKey != "" {
			if err := s.appts.SaveIdempotent(ctx, in.TenantID, in.IdempotencyKey, appt.ID); err != nil {
				return err
			}
		}
		if err := s.recordEvent(ctx, outbox.EventAppointmentCreated, appt); err != nil {
			return err
		}
		result = appt
		return nil
	}

	if err := s.runWithConflictRetry(ctx, attempt); err != nil {
		return model.Appointment{}, err
	}

	s.logger.Info("appointment created",
		"tenant_id", result.TenantID,
		"appointment_id", result.ID,
		"service_id", result.ServiceID,
		"start_at", result.StartAt,
		"status", result.Status,
	)
	return result, nil
}

// runWithConflictRetry retries the transaction once when the storage layer
// loses a commit-time race; a second loss surfaces as the same capacity miss
// the caller would see normally, so a race is indistinguishable from a full
// slot.
func (s *Service) runWithConflictRetry(ctx context.Context, attempt func(ctx context.Context) error) error {
	err := s.appts.WithTx(ctx, attempt)
	if err == nil {
		return nil
	}
	if !errors.Is(err, model.ErrConcurrencyConflict) {
		return err
	}
	s.logger.Warn("booking transaction conflicted, retrying once")
	err = s.appts.WithTx(ctx, attempt)
	if errors.Is(err, model.ErrConcurrencyConflict) {
		return model.Invalid("no capacity")
	}
	return err
}

// Cancel transitions a pending or confirmed future appointment to canceled.
// Cancellation only ever frees capacity, so no capacity re-validation runs.
func (s *Service) Cancel(ctx context.Context, tenantID, appointmentID string) (model.Appointment, error) {
	ctx, span := tracer.Start(ctx, "booking.cancel")
	defer span.End()

	var result model.Appointment
	err := s.appts.WithTx(ctx, func(ctx context.Context) error {
		appt, err := s.appts.GetForUpdate(ctx, tenantID, appointmentID)
		if err != nil {
			return err
		}
		if !appt.Status.Active() || !appt.StartAt.After(s.clock.Now()) {
			return model.Invalid("cannot cancel")
		}

		now := s.clock.Now()
		if err := s.appts.UpdateStatus(ctx, tenantID, appt.ID, model.StatusCanceled, now); err != nil {
			return err
		}
		appt.Status = model.StatusCanceled
		appt.CanceledAt = &now

		if err := s.recordEvent(ctx, outbox.EventAppointmentCanceled, appt); err != nil {
			return err
		}
		result = appt
		return nil
	})
	if err != nil {
		return model.Appointment{}, err
	}

	s.logger.Info("appointment canceled", "tenant_id", tenantID, "appointment_id", result.ID)
	return result, nil
}

// Transition moves an appointment along the lifecycle graph (confirm,
// complete, mark no-show). Cancellation has its own guard and goes through
// Cancel instead.
func (s *Service) Transition(ctx context.Context, tenantID, appointmentID string, next model.AppointmentStatus) (model.Appointment, error) {
	ctx, span := tracer.Start(ctx, "booking.transition")
	defer span.End()

	if !next.Valid() || next == model.StatusPending {
		return model.Appointment{}, model.Invalid("invalid target status")
	}
	if next == model.StatusCanceled {
		return s.Cancel(ctx, tenantID, appointmentID)
	}

	var result model.Appointment
	err := s.appts.WithTx(ctx, func(ctx context.Context) error {
		appt, err := s.appts.GetForUpdate(ctx, tenantID, appointmentID)
		if err != nil {
			return err
		}
		if !appt.Status.CanTransitionTo(next) {
			return model.Invalid(fmt.Sprintf("cannot transition from %s to %s", appt.Status, next))
		}
		if err := s.appts.UpdateStatus(ctx, tenantID, appt.ID, next, s.clock.Now()); err != nil {
			return err
		}
		appt.Status = next
		if err := s.recordEvent(ctx, outbox.EventAppointmentStatusChanged, appt); err != nil {
			return err
		}
		result = appt
		return nil
	})
	if err != nil {
		return model.Appointment{}, err
	}
	return result, nil
}

// ProposeAlternatives searches three days either side of the requested time
// and returns up to max slots ordered by temporal proximity to it, ties
// resolved chronologically.
func (s *Service) ProposeAlternatives(ctx context.Context, tenantID, serviceID, variantID string, requestedAt time.Time, max int) ([]model.Slot, error) {
	ctx, span := tracer.Start(ctx, "booking.propose_alternatives")
	defer span.End()

	if max <= 0 {
		max = 3
	}

	slots, err := s.FindAvailability(ctx, tenantID, serviceID, variantID, requestedAt.Add(-alternativesSpan), requestedAt.Add(alternativesSpan))
	if err != nil {
		return nil, err
	}
	if len(slots) == 0 {
		return nil, nil
	}

	// FindAvailability returns slots chronologically, so a stable sort by
	// distance keeps the earlier slot first on equal distance.
	sort.SliceStable(slots, func(i, j int) bool {
		return absDuration(slots[i].Start.Sub(requestedAt)) < absDuration(slots[j].Start.Sub(requestedAt))
	})
	if len(slots) > max {
		slots = slots[:max]
	}
	return slots, nil
}

func (s *Service) List(ctx context.Context, tenantID string, f storage.ListFilter) ([]model.Appointment, error) {
	return s.appts.List(ctx, tenantID, f)
}

func (s *Service) Get(ctx context.Context, tenantID, appointmentID string) (model.Appointment, error) {
	return s.appts.Get(ctx, tenantID, appointmentID)
}

func (s *Service) resolveDuration(ctx context.Context, tenantID, serviceID, variantID string) (time.Duration, error) {
	svc, err := s.catalog.GetService(ctx, tenantID, serviceID)
	if err != nil {
		return 0, fmt.Errorf("service: %w", err)
	}
	if !svc.Active {
		return 0, fmt.Errorf("service: %w", model.ErrNotFound)
	}
	if variantID != "" {
		v, err := s.catalog.GetVariant(ctx, tenantID, serviceID, variantID)
		if err != nil {
			return 0, fmt.Errorf("variant: %w", err)
		}
		return time.Duration(v.DurationMinutes) * time.Minute, nil
	}
	if svc.DurationMinutes > 0 {
		return time.Duration(svc.DurationMinutes) * time.Minute, nil
	}
	return DefaultDurationMinutes * time.Minute, nil
}

func (s *Service) verifyCustomer(ctx context.Context, tenantID, customerID string) error {
	if _, err := s.catalog.GetCustomer(ctx, tenantID, customerID); err != nil {
		return fmt.Errorf("customer: %w", err)
	}
	if s.directory != nil {
		ok, err := s.directory.CustomerExists(ctx, tenantID, customerID)
		if err != nil {
			s.logger.Warn("directory lookup failed, trusting local replica", "err", err)
			return nil
		}
		if !ok {
			return fmt.Errorf("customer: %w", model.ErrNotFound)
		}
	}
	return nil
}

// windowsAround collects windows for the UTC date of t and one day either
// side; a window localized in its own timezone may cover an instant whose
// UTC date differs from the window's local date.
func (s *Service) windowsAround(ctx context.Context, tenantID, serviceID string, t time.Time) ([]model.AvailabilityWindow, error) {
	seen := map[string]bool{}
	var windows []model.AvailabilityWindow
	for _, date := range availability.DatesAround(t) {
		ws, err := s.windows.ForDate(ctx, tenantID, serviceID, date)
		if err != nil {
			return nil, err
		}
		for _, w := range ws {
			if seen[w.ID] {
				continue
			}
			seen[w.ID] = true
			windows = append(windows, w)
		}
	}
	return windows, nil
}

func (s *Service) recordEvent(ctx context.Context, eventType string, appt model.Appointment) error {
	payload, err := encodeAppointmentEvent(appt)
	if err != nil {
		return err
	}
	return s.events.Insert(ctx, outbox.Event{
		AggregateType: "appointment",
		AggregateID:   appt.ID,
		EventType:     eventType,
		Payload:       payload,
	})
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
