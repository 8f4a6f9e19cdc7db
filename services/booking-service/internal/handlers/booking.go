package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/danielvegam/citaflow/libs/httpx"
	"github.com/danielvegam/citaflow/services/booking-service/internal/booking"
	"github.com/danielvegam/citaflow/services/booking-service/internal/model"
	"github.com/danielvegam/citaflow/services/booking-service/internal/storage"
)

type BookingHandler struct {
	svc    *booking.Service
	logger *slog.Logger
}

func NewBookingHandler(svc *booking.Service, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{svc: svc, logger: logger}
}

type slotItem struct {
	StartAt        string `json:"start_at"`
	EndAt          string `json:"end_at"`
	CapacityLeft   int    `json:"capacity_left"`
	WindowID       string `json:"window_id"`
	WindowCapacity int    `json:"window_capacity"`
}

type appointmentItem struct {
	AppointmentID string `json:"appointment_id"`
	CustomerID    string `json:"customer_id"`
	ServiceID     string `json:"service_id"`
	VariantID     string `json:"variant_id,omitempty"`
	StartAt       string `json:"start_at"`
	EndAt         string `json:"end_at"`
	Status        string `json:"status"`
	Notes         string `json:"notes,omitempty"`
	CanceledAt    string `json:"canceled_at,omitempty"`
	CreatedAt     string `json:"created_at"`
}

type createAppointmentRequest struct {
	CustomerID string `json:"customer_id"`
	ServiceID  string `json:"service_id"`
	VariantID  string `json:"variant_id"`
	StartAt    string `json:"start_at"`
	EndAt      string `json:"end_at"`
	Notes      string `json:"notes"`
	Status     string `json:"status"`
}

type cancelAppointmentRequest struct {
	AppointmentID string `json:"appointment_id"`
}

type statusChangeRequest struct {
	AppointmentID string `json:"appointment_id"`
	Status        string `json:"status"`
}

func (h *BookingHandler) Availability(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	tenantID, ok := tenantFrom(w, r)
	if !ok {
		return
	}

	serviceID := strings.TrimSpace(r.URL.Query().Get("service_id"))
	if serviceID == "" {
		http.Error(w, "service_id is required", http.StatusBadRequest)
		return
	}
	from, err := parseTime(r.URL.Query().Get("from"))
	if err != nil {
		http.Error(w, "invalid from", http.StatusBadRequest)
		return
	}
	to, err := parseTime(r.URL.Query().Get("to"))
	if err != nil {
		http.Error(w, "invalid to", http.StatusBadRequest)
		return
	}
	variantID := strings.TrimSpace(r.URL.Query().Get("variant_id"))

	slots, err := h.svc.FindAvailability(r.Context(), tenantID, serviceID, variantID, from, to)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, slotItems(slots))
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	tenantID, ok := tenantFrom(w, r)
	if !ok {
		return
	}

	var req createAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.CustomerID = strings.TrimSpace(req.CustomerID)
	req.ServiceID = strings.TrimSpace(req.ServiceID)
	if req.CustomerID == "" || req.ServiceID == "" {
		http.Error(w, "customer_id and service_id are required", http.StatusBadRequest)
		return
	}
	startAt, err := parseTime(req.StartAt)
	if err != nil {
		http.Error(w, "invalid start_at", http.StatusBadRequest)
		return
	}
	endAt, err := parseTime(req.EndAt)
	if err != nil {
		http.Error(w, "invalid end_at", http.StatusBadRequest)
		return
	}

	appt, err := h.svc.Create(r.Context(), booking.CreateInput{
		TenantID:       tenantID,
		CustomerID:     req.CustomerID,
		ServiceID:      req.ServiceID,
		VariantID:      strings.TrimSpace(req.VariantID),
		StartAt:        startAt,
		EndAt:          endAt,
		Notes:          req.Notes,
		Status:         model.AppointmentStatus(strings.TrimSpace(req.Status)),
		IdempotencyKey: strings.TrimSpace(r.Header.Get("Idempotency-Key")),
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, appointmentFromModel(appt))
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	tenantID, ok := tenantFrom(w, r)
	if !ok {
		return
	}

	var req cancelAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	if req.AppointmentID == "" {
		http.Error(w, "appointment_id is required", http.StatusBadRequest)
		return
	}

	appt, err := h.svc.Cancel(r.Context(), tenantID, req.AppointmentID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appointmentFromModel(appt))
}

func (h *BookingHandler) Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	tenantID, ok := tenantFrom(w, r)
	if !ok {
		return
	}

	var req statusChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	status := model.AppointmentStatus(strings.TrimSpace(req.Status))
	if req.AppointmentID == "" || status == "" {
		http.Error(w, "appointment_id and status are required", http.StatusBadRequest)
		return
	}

	appt, err := h.svc.Transition(r.Context(), tenantID, req.AppointmentID, status)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appointmentFromModel(appt))
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	tenantID, ok := tenantFrom(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := storage.ListFilter{
		CustomerID: strings.TrimSpace(q.Get("customer_id")),
		ServiceID:  strings.TrimSpace(q.Get("service_id")),
		Status:     model.AppointmentStatus(strings.TrimSpace(q.Get("status"))),
	}
	if raw := strings.TrimSpace(q.Get("from")); raw != "" {
		t, err := parseTime(raw)
		if err != nil {
			http.Error(w, "invalid from", http.StatusBadRequest)
			return
		}
		filter.From = t
	}
	if raw := strings.TrimSpace(q.Get("to")); raw != "" {
		t, err := parseTime(raw)
		if err != nil {
			http.Error(w, "invalid to", http.StatusBadRequest)
			return
		}
		filter.To = t
	}
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			filter.Limit = n
		}
	}

	appts, err := h.svc.List(r.Context(), tenantID, filter)
	if err != nil {
		h.writeError(w, err)
		return
	}

	items := make([]appointmentItem, 0, len(appts))
	for _, appt := range appts {
		items = append(items, appointmentFromModel(appt))
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *BookingHandler) Alternatives(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	tenantID, ok := tenantFrom(w, r)
	if !ok {
		return
	}

	serviceID := strings.TrimSpace(r.URL.Query().Get("service_id"))
	if serviceID == "" {
		http.Error(w, "service_id is required", http.StatusBadRequest)
		return
	}
	requestedAt, err := parseTime(r.URL.Query().Get("requested_at"))
	if err != nil {
		http.Error(w, "invalid requested_at", http.StatusBadRequest)
		return
	}
	variantID := strings.TrimSpace(r.URL.Query().Get("variant_id"))

	max := 3
	if raw := strings.TrimSpace(r.URL.Query().Get("max")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 20 {
			max = n
		}
	}

	slots, err := h.svc.ProposeAlternatives(r.Context(), tenantID, serviceID, variantID, requestedAt, max)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, slotItems(slots))
}

func (h *BookingHandler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case model.IsValidation(err):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		h.logger.Error("request failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func tenantFrom(w http.ResponseWriter, r *http.Request) (string, bool) {
	tenantID := strings.TrimSpace(r.Header.Get(httpx.TenantIDHeader))
	if tenantID == "" {
		http.Error(w, "tenant is required", http.StatusBadRequest)
		return "", false
	}
	return tenantID, true
}

func parseTime(raw string) (time.Time, error) {
	return time.Parse(time.RFC3339, strings.TrimSpace(raw))
}

func slotItems(slots []model.Slot) []slotItem {
	items := make([]slotItem, 0, len(slots))
	for _, s := range slots {
		items = append(items, slotItem{
			StartAt:        s.Start.UTC().Format(time.RFC3339),
			EndAt:          s.End.UTC().Format(time.RFC3339),
			CapacityLeft:   s.CapacityLeft,
			WindowID:       s.WindowID,
			WindowCapacity: s.WindowCapacity,
		})
	}
	return items
}

func appointmentFromModel(appt model.Appointment) appointmentItem {
	item := appointmentItem{
		AppointmentID: appt.ID,
		CustomerID:    appt.CustomerID,
		ServiceID:     appt.ServiceID,
		VariantID:     appt.VariantID,
		StartAt:       appt.StartAt.UTC().Format(time.RFC3339),
		EndAt:         appt.EndAt.UTC().Format(time.RFC3339),
		Status:        string(appt.Status),
		Notes:         appt.Notes,
		CreatedAt:     appt.CreatedAt.UTC().Format(time.RFC3339),
	}
	if appt.CanceledAt != nil {
		item.CanceledAt = appt.CanceledAt.UTC().Format(time.RFC3339)
	}
	return item
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
