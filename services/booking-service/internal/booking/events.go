package booking

import (
	"encoding/json"
	"time"

	"github.com/danielvegam/citaflow/services/booking-service/internal/model"
)

type appointmentEvent struct {
	AppointmentID string `json:"appointment_id"`
	TenantID      string `json:"tenant_id"`
	CustomerID    string `json:"customer_id"`
	ServiceID     string `json:"service_id"`
	VariantID     string `json:"variant_id,omitempty"`
	StartAt       string `json:"start_at"`
	EndAt         string `json:"end_at"`
	Status        string `json:"status"`
	CanceledAt    string `json:"canceled_at,omitempty"`
}

func encodeAppointmentEvent(appt model.Appointment) ([]byte, error) {
	evt := appointmentEvent{
		AppointmentID: appt.ID,
		TenantID:      appt.TenantID,
		CustomerID:    appt.CustomerID,
		ServiceID:     appt.ServiceID,
		VariantID:     appt.VariantID,
		StartAt:       appt.StartAt.UTC().Format(time.RFC3339),
		EndAt:         appt.EndAt.UTC().Format(time.RFC3339),
		Status:        string(appt.Status),
	}
	if appt.CanceledAt != nil {
		evt.CanceledAt = appt.CanceledAt.UTC().Format(time.RFC3339)
	}
	return json.Marshal(evt)
}
