package events

import "time"

// Event type names carried in the envelope.
const (
	TypeClarificationRequestedV1 = "intake.clarification_requested.v1"
	TypeAppointmentConfirmedV1   = "intake.appointment_confirmed.v1"
)

// ClarificationRequestedV1 is published when an intake needs a human or a
// follow-up question before it can be booked.
type ClarificationRequestedV1 struct {
	IntakeID    string    `json:"intake_id"`
	Source      string    `json:"source"`
	Reasons     []string  `json:"reasons"`
	Message     string    `json:"message"`
	RawText     string    `json:"raw_text"`
	Department  *string   `json:"department,omitempty"`
	Date        *string   `json:"date,omitempty"`
	Time        *string   `json:"time,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

func (ClarificationRequestedV1) EventType() string { return TypeClarificationRequestedV1 }

// AppointmentConfirmedV1 is published for every confirmed intake.
type AppointmentConfirmedV1 struct {
	IntakeID    string    `json:"intake_id"`
	Source      string    `json:"source"`
	Department  string    `json:"department"`
	Date        string    `json:"date"`
	Time        string    `json:"time"`
	TZ          string    `json:"tz"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}

func (AppointmentConfirmedV1) EventType() string { return TypeAppointmentConfirmedV1 }
