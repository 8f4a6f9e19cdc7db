package booking

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/danielvegam/citaflow/services/booking-service/internal/clock"
	"github.com/danielvegam/citaflow/services/booking-service/internal/model"
	"github.com/danielvegam/citaflow/services/booking-service/internal/outbox"
	"github.com/danielvegam/citaflow/services/booking-service/internal/storage"
)

// fakeStore backs all repository interfaces with in-memory maps. WithTx holds
// a single mutex for the whole callback, which serializes writers the way the
// window row lock does against Postgres.
type fakeStore struct {
	mu        sync.Mutex
	txmu      sync.Mutex
	windows   []model.AvailabilityWindow
	services  map[string]model.Service
	variants  map[string]model.ServiceVariant
	customers map[string]model.Customer
	appts     map[string]model.Appointment
	idem      map[string]string
	events    []outbox.Event
	txErrs    []error // popped one per WithTx call, simulating commit losses
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		services:  map[string]model.Service{},
		variants:  map[string]model.ServiceVariant{},
		customers: map[string]model.Customer{},
		appts:     map[string]model.Appointment{},
		idem:      map[string]string{},
	}
}

func (f *fakeStore) ForDate(_ context.Context, tenantID, serviceID string, date time.Time) ([]model.AvailabilityWindow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.AvailabilityWindow
	for _, w := range f.windows {
		if w.TenantID == tenantID && w.ServiceID == serviceID && w.AppliesTo(date) {
			out = append(out, w)
		}
	}
	return out, nil
}

func (f *fakeStore) Lock(_ context.Context, tenantID, windowID string) (model.AvailabilityWindow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, w := range f.windows {
		if w.TenantID == tenantID && w.ID == windowID {
			return w, nil
		}
	}
	return model.AvailabilityWindow{}, model.ErrNotFound
}

func (f *fakeStore) GetService(_ context.Context, tenantID, serviceID string) (model.Service, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.services[tenantID+"/"+serviceID]
	if !ok {
		return model.Service{}, model.ErrNotFound
	}
	return s, nil
}

func (f *fakeStore) GetVariant(_ context.Context, tenantID, serviceID, variantID string) (model.ServiceVariant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.variants[tenantID+"/"+variantID]
	if !ok || v.ServiceID != serviceID {
		return model.ServiceVariant{}, model.ErrNotFound
	}
	return v, nil
}

func (f *fakeStore) GetCustomer(_ context.Context, tenantID, customerID string) (model.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.customers[tenantID+"/"+customerID]
	if !ok {
		return model.Customer{}, model.ErrNotFound
	}
	return c, nil
}

func (f *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.txmu.Lock()
	defer f.txmu.Unlock()
	if len(f.txErrs) > 0 {
		err := f.txErrs[0]
		f.txErrs = f.txErrs[1:]
		return err
	}
	return fn(ctx)
}

func (f *fakeStore) CountActiveOverlapping(_ context.Context, tenantID, serviceID string, start, end time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, a := range f.appts {
		if a.TenantID == tenantID && a.ServiceID == serviceID && a.Status.Active() && a.Overlaps(start, end) {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) Insert(_ context.Context, appt model.Appointment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appts[appt.TenantID+"/"+appt.ID] = appt
	return nil
}

func (f *fakeStore) Get(_ context.Context, tenantID, id string) (model.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.appts[tenantID+"/"+id]
	if !ok {
		return model.Appointment{}, model.ErrNotFound
	}
	return a, nil
}

func (f *fakeStore) GetForUpdate(ctx context.Context, tenantID, id string) (model.Appointment, error) {
	return f.Get(ctx, tenantID, id)
}

func (f *fakeStore) UpdateStatus(_ context.Context, tenantID, id string, status model.AppointmentStatus, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.appts[tenantID+"/"+id]
	if !ok {
		return model.ErrNotFound
	}
	a.Status = status
	if status == model.StatusCanceled {
		a.CanceledAt = &at
	}
	f.appts[tenantID+"/"+id] = a
	return nil
}

func (f *fakeStore) List(_ context.Context, tenantID string, filter storage.ListFilter) ([]model.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Appointment
	for _, a := range f.appts {
		if a.TenantID != tenantID {
			continue
		}
		if filter.CustomerID != "" && a.CustomerID != filter.CustomerID {
			continue
		}
		if filter.ServiceID != "" && a.ServiceID != filter.ServiceID {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeStore) FindIdempotent(_ context.Context, tenantID, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.idem[tenantID+"/"+key]
	return id, ok, nil
}

func (f *fakeStore) SaveIdempotent(_ context.Context, tenantID, key, appointmentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.idem[tenantID+"/"+key] = appointmentID
	return nil
}

func (f *fakeStore) InsertEvent(_ context.Context, evt outbox.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, evt)
	return nil
}

type eventWriterFunc func(ctx context.Context, evt outbox.Event) error

func (fn eventWriterFunc) Insert(ctx context.Context, evt outbox.Event) error { return fn(ctx, evt) }

const (
	testTenant   = "11111111-1111-1111-1111-111111111111"
	testService  = "22222222-2222-2222-2222-222222222222"
	testCustomer = "33333333-3333-3333-3333-333333333333"
	testVariant  = "44444444-4444-4444-4444-444444444444"
)

// testDay is a Wednesday, weekday 2 with Monday=0.
var testDay = time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)

func weekdayOf(n int) *int { return &n }

func newTestService(t *testing.T, capacity int) (*Service, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	store.services[testTenant+"/"+testService] = model.Service{
		ID: testService, TenantID: testTenant, Name: "consultation", Active: true, DurationMinutes: 60,
	}
	store.customers[testTenant+"/"+testCustomer] = model.Customer{
		ID: testCustomer, TenantID: testTenant, Name: "Ana",
	}
	store.windows = []model.AvailabilityWindow{{
		ID:          "win-wed",
		TenantID:    testTenant,
		ServiceID:   testService,
		Weekday:     weekdayOf(2),
		StartMinute: 9 * 60,
		EndMinute:   17 * 60,
		Capacity:    capacity,
		Timezone:    "UTC",
	}}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(store, store, store, eventWriterFunc(store.InsertEvent), logger,
		WithClock(clock.NewFixed(testDay)),
	)
	return svc, store
}

func mustCreate(t *testing.T, svc *Service, start time.Time) model.Appointment {
	t.Helper()
	appt, err := svc.Create(context.Background(), CreateInput{
		TenantID:   testTenant,
		CustomerID: testCustomer,
		ServiceID:  testService,
		StartAt:    start,
		EndAt:      start.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	return appt
}

func TestFindAvailability_AllSlotsOpen(t *testing.T) {
	svc, _ := newTestService(t, 2)

	slots, err := svc.FindAvailability(context.Background(), testTenant, testService, "", testDay, testDay.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 8 {
		t.Fatalf("expected 8 slots, got %d", len(slots))
	}
	for _, s := range slots {
		if s.CapacityLeft != 2 {
			t.Fatalf("expected capacity 2 on slot %s, got %d", s.Start.Format(time.RFC3339), s.CapacityLeft)
		}
	}
	for i := 1; i < len(slots); i++ {
		if !slots[i-1].Start.Before(slots[i].Start) {
			t.Fatalf("slots not sorted by start: %s before %s",
				slots[i-1].Start.Format(time.RFC3339), slots[i].Start.Format(time.RFC3339))
		}
	}
}

func TestFindAvailability_SubtractsActiveAppointments(t *testing.T) {
	svc, _ := newTestService(t, 2)
	mustCreate(t, svc, testDay.Add(10*time.Hour))

	slots, err := svc.FindAvailability(context.Background(), testTenant, testService, "", testDay, testDay.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 8 {
		t.Fatalf("expected 8 slots, got %d", len(slots))
	}
	for _, s := range slots {
		want := 2
		if s.Start.Equal(testDay.Add(10 * time.Hour)) {
			want = 1
		}
		if s.CapacityLeft != want {
			t.Fatalf("slot %s: expected capacity %d, got %d", s.Start.Format(time.RFC3339), want, s.CapacityLeft)
		}
	}
}

func TestFindAvailability_HidesFullSlots(t *testing.T) {
	svc, _ := newTestService(t, 1)
	mustCreate(t, svc, testDay.Add(10*time.Hour))

	slots, err := svc.FindAvailability(context.Background(), testTenant, testService, "", testDay, testDay.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 7 {
		t.Fatalf("expected 7 slots, got %d", len(slots))
	}
	for _, s := range slots {
		if s.Start.Equal(testDay.Add(10 * time.Hour)) {
			t.Fatal("full slot should not be listed")
		}
	}
}

func TestFindAvailability_Deterministic(t *testing.T) {
	svc, _ := newTestService(t, 2)
	mustCreate(t, svc, testDay.Add(11*time.Hour))

	first, err := svc.FindAvailability(context.Background(), testTenant, testService, "", testDay, testDay.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := svc.FindAvailability(context.Background(), testTenant, testService, "", testDay, testDay.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("length changed between calls: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if !first[i].Start.Equal(second[i].Start) || first[i].CapacityLeft != second[i].CapacityLeft {
			t.Fatalf("slot %d differs between identical calls", i)
		}
	}
}

func TestFindAvailability_VariantDuration(t *testing.T) {
	svc, store := newTestService(t, 1)
	store.variants[testTenant+"/"+testVariant] = model.ServiceVariant{
		ID: testVariant, ServiceID: testService, Name: "extended", DurationMinutes: 120,
	}

	slots, err := svc.FindAvailability(context.Background(), testTenant, testService, testVariant, testDay, testDay.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 8 hours of window, 120-minute slots.
	if len(slots) != 4 {
		t.Fatalf("expected 4 slots, got %d", len(slots))
	}
	if got := slots[0].End.Sub(slots[0].Start); got != 2*time.Hour {
		t.Fatalf("expected 2h slots, got %s", got)
	}
}

func TestFindAvailability_DefaultsDurationWhenServiceHasNone(t *testing.T) {
	svc, store := newTestService(t, 1)
	s := store.services[testTenant+"/"+testService]
	s.DurationMinutes = 0
	store.services[testTenant+"/"+testService] = s

	slots, err := svc.FindAvailability(context.Background(), testTenant, testService, "", testDay, testDay.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// A service without a base duration books in 60-minute slots.
	if len(slots) != 8 {
		t.Fatalf("expected 8 slots, got %d", len(slots))
	}
	if got := slots[0].End.Sub(slots[0].Start); got != time.Hour {
		t.Fatalf("expected 1h slots, got %s", got)
	}
}

func TestFindAvailability_ReportsCoveringWindow(t *testing.T) {
	svc, store := newTestService(t, 2)
	// A specific-date window covers the same hours with a different capacity;
	// it wins covering-window selection, and each slot must describe it
	// consistently.
	store.windows = append(store.windows, model.AvailabilityWindow{
		ID:          "win-special",
		TenantID:    testTenant,
		ServiceID:   testService,
		Date:        &testDay,
		StartMinute: 9 * 60,
		EndMinute:   17 * 60,
		Capacity:    5,
		Timezone:    "UTC",
	})

	slots, err := svc.FindAvailability(context.Background(), testTenant, testService, "", testDay, testDay.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 8 {
		t.Fatalf("expected 8 distinct slots, got %d", len(slots))
	}
	for _, s := range slots {
		if s.WindowID != "win-special" {
			t.Fatalf("slot %s: expected the covering window id, got %s", s.Start.Format(time.RFC3339), s.WindowID)
		}
		if s.WindowCapacity != 5 || s.CapacityLeft != 5 {
			t.Fatalf("slot %s: capacity fields describe different windows: capacity=%d left=%d",
				s.Start.Format(time.RFC3339), s.WindowCapacity, s.CapacityLeft)
		}
	}
}

func TestCreate_Succeeds(t *testing.T) {
	svc, store := newTestService(t, 1)

	appt := mustCreate(t, svc, testDay.Add(10*time.Hour))
	if appt.ID == "" {
		t.Fatal("expected an id")
	}
	if appt.Status != model.StatusPending {
		t.Fatalf("expected pending, got %s", appt.Status)
	}
	if len(store.events) != 1 || store.events[0].EventType != outbox.EventAppointmentCreated {
		t.Fatalf("expected a created event, got %+v", store.events)
	}
	if store.events[0].AggregateID != appt.ID {
		t.Fatal("event aggregate id does not match the appointment")
	}
}

func TestCreate_RejectsSlotOutsideWindows(t *testing.T) {
	svc, _ := newTestService(t, 1)

	// 18:00 is past the 17:00 window end.
	_, err := svc.Create(context.Background(), CreateInput{
		TenantID:   testTenant,
		CustomerID: testCustomer,
		ServiceID:  testService,
		StartAt:    testDay.Add(18 * time.Hour),
		EndAt:      testDay.Add(19 * time.Hour),
	})
	if !model.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreate_RejectsWhenFull(t *testing.T) {
	svc, _ := newTestService(t, 1)
	mustCreate(t, svc, testDay.Add(10*time.Hour))

	_, err := svc.Create(context.Background(), CreateInput{
		TenantID:   testTenant,
		CustomerID: testCustomer,
		ServiceID:  testService,
		StartAt:    testDay.Add(10 * time.Hour),
		EndAt:      testDay.Add(11 * time.Hour),
	})
	if !model.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreate_CountsPartialOverlaps(t *testing.T) {
	svc, store := newTestService(t, 1)

	// A pre-existing 10:30-11:30 appointment overlaps both the 10:00 and
	// 11:00 slots.
	store.appts[testTenant+"/manual"] = model.Appointment{
		ID: "manual", TenantID: testTenant, CustomerID: testCustomer, ServiceID: testService,
		StartAt: testDay.Add(10*time.Hour + 30*time.Minute),
		EndAt:   testDay.Add(11*time.Hour + 30*time.Minute),
		Status:  model.StatusConfirmed,
	}

	for _, start := range []time.Time{testDay.Add(10 * time.Hour), testDay.Add(11 * time.Hour)} {
		_, err := svc.Create(context.Background(), CreateInput{
			TenantID:   testTenant,
			CustomerID: testCustomer,
			ServiceID:  testService,
			StartAt:    start,
			EndAt:      start.Add(time.Hour),
		})
		if !model.IsValidation(err) {
			t.Fatalf("expected validation error for slot %s, got %v", start.Format(time.RFC3339), err)
		}
	}

	// The adjacent 09:00 slot only touches at 10:00 and is free.
	mustCreate(t, svc, testDay.Add(9*time.Hour))
}

func TestCreate_UnknownServiceOrCustomer(t *testing.T) {
	svc, _ := newTestService(t, 1)

	_, err := svc.Create(context.Background(), CreateInput{
		TenantID:   testTenant,
		CustomerID: testCustomer,
		ServiceID:  "55555555-5555-5555-5555-555555555555",
		StartAt:    testDay.Add(10 * time.Hour),
		EndAt:      testDay.Add(11 * time.Hour),
	})
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected not found for unknown service, got %v", err)
	}

	_, err = svc.Create(context.Background(), CreateInput{
		TenantID:   testTenant,
		CustomerID: "55555555-5555-5555-5555-555555555555",
		ServiceID:  testService,
		StartAt:    testDay.Add(10 * time.Hour),
		EndAt:      testDay.Add(11 * time.Hour),
	})
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected not found for unknown customer, got %v", err)
	}
}

func TestCreate_InactiveService(t *testing.T) {
	svc, store := newTestService(t, 1)
	s := store.services[testTenant+"/"+testService]
	s.Active = false
	store.services[testTenant+"/"+testService] = s

	_, err := svc.Create(context.Background(), CreateInput{
		TenantID:   testTenant,
		CustomerID: testCustomer,
		ServiceID:  testService,
		StartAt:    testDay.Add(10 * time.Hour),
		EndAt:      testDay.Add(11 * time.Hour),
	})
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected not found for inactive service, got %v", err)
	}
}

func TestCreate_ConcurrentSingleWinner(t *testing.T) {
	svc, _ := newTestService(t, 1)

	const n = 5
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Create(context.Background(), CreateInput{
				TenantID:   testTenant,
				CustomerID: testCustomer,
				ServiceID:  testService,
				StartAt:    testDay.Add(10 * time.Hour),
				EndAt:      testDay.Add(11 * time.Hour),
			})
		}(i)
	}
	wg.Wait()

	won := 0
	for _, err := range errs {
		switch {
		case err == nil:
			won++
		case model.IsValidation(err):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if won != 1 {
		t.Fatalf("expected exactly 1 winner, got %d", won)
	}
}

func TestCreate_RetriesOnceOnConflict(t *testing.T) {
	svc, store := newTestService(t, 1)
	store.txErrs = []error{model.ErrConcurrencyConflict}

	appt := mustCreate(t, svc, testDay.Add(10*time.Hour))
	if appt.ID == "" {
		t.Fatal("expected an id")
	}
	if len(store.appts) != 1 {
		t.Fatalf("expected exactly 1 stored appointment after the retry, got %d", len(store.appts))
	}
	if len(store.events) != 1 {
		t.Fatalf("expected a single created event, got %d", len(store.events))
	}
}

func TestCreate_DoubleConflictSurfacesAsCapacityMiss(t *testing.T) {
	svc, store := newTestService(t, 1)
	store.txErrs = []error{model.ErrConcurrencyConflict, model.ErrConcurrencyConflict}

	_, err := svc.Create(context.Background(), CreateInput{
		TenantID:   testTenant,
		CustomerID: testCustomer,
		ServiceID:  testService,
		StartAt:    testDay.Add(10 * time.Hour),
		EndAt:      testDay.Add(11 * time.Hour),
	})
	if !model.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err.Error() != "no capacity" {
		t.Fatalf("expected the same reason as a genuine capacity miss, got %q", err.Error())
	}
	if errors.Is(err, model.ErrConcurrencyConflict) {
		t.Fatal("conflict sentinel must not reach the caller")
	}
	if len(store.appts) != 0 {
		t.Fatalf("expected no stored appointments, got %d", len(store.appts))
	}
}

// staleWindowStore reports inflated capacities from the unlocked read path,
// standing in for a catalog update that lands between the availability read
// and the booking transaction.
type staleWindowStore struct {
	*fakeStore
}

func (s staleWindowStore) ForDate(ctx context.Context, tenantID, serviceID string, date time.Time) ([]model.AvailabilityWindow, error) {
	windows, err := s.fakeStore.ForDate(ctx, tenantID, serviceID, date)
	for i := range windows {
		windows[i].Capacity += 2
	}
	return windows, err
}

func TestCreate_UsesCapacityFromLockedWindow(t *testing.T) {
	_, store := newTestService(t, 1)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(staleWindowStore{store}, store, store, eventWriterFunc(store.InsertEvent), logger,
		WithClock(clock.NewFixed(testDay)),
	)

	mustCreate(t, svc, testDay.Add(10*time.Hour))

	// The unlocked read claims capacity 3, but the locked row says 1 and the
	// slot is taken.
	_, err := svc.Create(context.Background(), CreateInput{
		TenantID:   testTenant,
		CustomerID: testCustomer,
		ServiceID:  testService,
		StartAt:    testDay.Add(10 * time.Hour),
		EndAt:      testDay.Add(11 * time.Hour),
	})
	if !model.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(store.appts) != 1 {
		t.Fatalf("expected 1 stored appointment, got %d", len(store.appts))
	}
}

func TestCreate_IdempotentReplay(t *testing.T) {
	svc, store := newTestService(t, 1)

	in := CreateInput{
		TenantID:       testTenant,
		CustomerID:     testCustomer,
		ServiceID:      testService,
		StartAt:        testDay.Add(10 * time.Hour),
		EndAt:          testDay.Add(11 * time.Hour),
		IdempotencyKey: "req-abc",
	}
	first, err := svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	second, err := svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("replay returned a different appointment: %s vs %s", first.ID, second.ID)
	}
	if len(store.appts) != 1 {
		t.Fatalf("expected 1 stored appointment, got %d", len(store.appts))
	}
	if len(store.events) != 1 {
		t.Fatalf("expected a single created event, got %d", len(store.events))
	}
}

func TestCancel_FreesCapacity(t *testing.T) {
	svc, store := newTestService(t, 1)
	appt := mustCreate(t, svc, testDay.Add(10*time.Hour))

	canceled, err := svc.Cancel(context.Background(), testTenant, appt.ID)
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if canceled.Status != model.StatusCanceled {
		t.Fatalf("expected canceled, got %s", canceled.Status)
	}
	if canceled.CanceledAt == nil {
		t.Fatal("expected canceled_at to be set")
	}

	// The slot is bookable again.
	mustCreate(t, svc, testDay.Add(10*time.Hour))

	if len(store.events) != 3 {
		t.Fatalf("expected created+canceled+created events, got %d", len(store.events))
	}
	if store.events[1].EventType != outbox.EventAppointmentCanceled {
		t.Fatalf("expected canceled event, got %s", store.events[1].EventType)
	}
}

func TestCancel_RejectsPastStart(t *testing.T) {
	svc, store := newTestService(t, 1)

	// Clock is fixed at testDay midnight; plant an appointment already begun.
	store.appts[testTenant+"/past"] = model.Appointment{
		ID: "past", TenantID: testTenant, CustomerID: testCustomer, ServiceID: testService,
		StartAt: testDay.Add(-2 * time.Hour),
		EndAt:   testDay.Add(-1 * time.Hour),
		Status:  model.StatusConfirmed,
	}

	_, err := svc.Cancel(context.Background(), testTenant, "past")
	if !model.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCancel_RejectsTerminalStatus(t *testing.T) {
	svc, _ := newTestService(t, 1)
	appt := mustCreate(t, svc, testDay.Add(10*time.Hour))

	if _, err := svc.Cancel(context.Background(), testTenant, appt.ID); err != nil {
		t.Fatalf("first cancel failed: %v", err)
	}
	_, err := svc.Cancel(context.Background(), testTenant, appt.ID)
	if !model.IsValidation(err) {
		t.Fatalf("expected validation error on double cancel, got %v", err)
	}
}

func TestCancel_UnknownAppointment(t *testing.T) {
	svc, _ := newTestService(t, 1)

	_, err := svc.Cancel(context.Background(), testTenant, "55555555-5555-5555-5555-555555555555")
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestTransition_Lifecycle(t *testing.T) {
	svc, _ := newTestService(t, 2)
	appt := mustCreate(t, svc, testDay.Add(10*time.Hour))

	confirmed, err := svc.Transition(context.Background(), testTenant, appt.ID, model.StatusConfirmed)
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if confirmed.Status != model.StatusConfirmed {
		t.Fatalf("expected confirmed, got %s", confirmed.Status)
	}

	done, err := svc.Transition(context.Background(), testTenant, appt.ID, model.StatusDone)
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if done.Status != model.StatusDone {
		t.Fatalf("expected done, got %s", done.Status)
	}

	// done is terminal.
	if _, err := svc.Transition(context.Background(), testTenant, appt.ID, model.StatusConfirmed); !model.IsValidation(err) {
		t.Fatalf("expected validation error on transition out of done, got %v", err)
	}
}

func TestTransition_PendingCannotComplete(t *testing.T) {
	svc, _ := newTestService(t, 1)
	appt := mustCreate(t, svc, testDay.Add(10*time.Hour))

	_, err := svc.Transition(context.Background(), testTenant, appt.ID, model.StatusDone)
	if !model.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestProposeAlternatives_OrderedByProximity(t *testing.T) {
	svc, store := newTestService(t, 1)
	// Replace the wide recurring window with narrow single-slot windows.
	nextDay := testDay.AddDate(0, 0, 1)
	store.windows = []model.AvailabilityWindow{
		{ID: "near", TenantID: testTenant, ServiceID: testService, Date: &testDay,
			StartMinute: 11 * 60, EndMinute: 12 * 60, Capacity: 1, Timezone: "UTC"},
		{ID: "earlier", TenantID: testTenant, ServiceID: testService, Date: &testDay,
			StartMinute: 8 * 60, EndMinute: 9 * 60, Capacity: 1, Timezone: "UTC"},
		{ID: "tomorrow", TenantID: testTenant, ServiceID: testService, Date: &nextDay,
			StartMinute: 10 * 60, EndMinute: 11 * 60, Capacity: 1, Timezone: "UTC"},
	}

	requested := testDay.Add(10*time.Hour + 30*time.Minute)
	slots, err := svc.ProposeAlternatives(context.Background(), testTenant, testService, "", requested, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 3 {
		t.Fatalf("expected 3 alternatives, got %d", len(slots))
	}
	wantStarts := []time.Time{
		testDay.Add(11 * time.Hour), // 30m away
		testDay.Add(8 * time.Hour),  // 2h30m away
		nextDay.Add(10 * time.Hour), // 23h30m away
	}
	for i, want := range wantStarts {
		if !slots[i].Start.Equal(want) {
			t.Fatalf("alternative %d: expected %s, got %s", i, want.Format(time.RFC3339), slots[i].Start.Format(time.RFC3339))
		}
	}
}

func TestProposeAlternatives_TiesResolveChronologically(t *testing.T) {
	svc, store := newTestService(t, 1)
	store.windows = []model.AvailabilityWindow{
		{ID: "before", TenantID: testTenant, ServiceID: testService, Date: &testDay,
			StartMinute: 9*60 + 30, EndMinute: 10*60 + 30, Capacity: 1, Timezone: "UTC"},
		{ID: "after", TenantID: testTenant, ServiceID: testService, Date: &testDay,
			StartMinute: 11*60 + 30, EndMinute: 12*60 + 30, Capacity: 1, Timezone: "UTC"},
	}

	// 09:30 and 11:30 are both exactly one hour from 10:30.
	requested := testDay.Add(10*time.Hour + 30*time.Minute)
	slots, err := svc.ProposeAlternatives(context.Background(), testTenant, testService, "", requested, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 2 {
		t.Fatalf("expected 2 alternatives, got %d", len(slots))
	}
	if !slots[0].Start.Equal(testDay.Add(9*time.Hour + 30*time.Minute)) {
		t.Fatalf("expected the earlier slot first on tie, got %s", slots[0].Start.Format(time.RFC3339))
	}
}

func TestProposeAlternatives_SkipsFullSlots(t *testing.T) {
	svc, _ := newTestService(t, 1)
	taken := mustCreate(t, svc, testDay.Add(10*time.Hour))

	slots, err := svc.ProposeAlternatives(context.Background(), testTenant, testService, "", taken.StartAt, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, s := range slots {
		if s.Start.Equal(taken.StartAt) {
			t.Fatal("full slot offered as an alternative")
		}
	}
	if len(slots) != 3 {
		t.Fatalf("expected 3 alternatives, got %d", len(slots))
	}
}
