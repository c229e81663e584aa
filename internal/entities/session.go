package entities

import (
	"time"

	"github.com/caiomachado-24/ReservAI/internal/db"
)

// Step marks where in the multi-turn flow a conversation currently is.
// Handlers may only move a session along the edges documented on the
// conversation service.
type Step string

const (
	StepNone                      Step = ""
	StepAwaitingDateTime          Step = "awaiting_date_time"
	StepConfirmNearestSlot        Step = "confirm_nearest_slot"
	StepAwaitingNameConfirm       Step = "awaiting_name_confirmation"
	StepAwaitingFinalConfirm      Step = "awaiting_final_confirmation"
	StepConfirmRescheduleStart    Step = "confirm_reschedule_start"
	StepAwaitingNewDateTime       Step = "awaiting_new_date_time"
	StepAwaitingRescheduleConfirm Step = "awaiting_reschedule_confirmation"
	StepSelectAppointment         Step = "select_appointment"
	StepConfirmCancel             Step = "confirm_cancel"
)

// Pending actions for the select_appointment step.
const (
	ActionCancel     = "cancel"
	ActionReschedule = "reschedule"
)

// Session is the per-conversation mutable context. It lives only in the
// session store and is deleted when a flow reaches a terminal outcome.
type Session struct {
	ConversationID string
	ClientID       int
	ClientName     string

	ServiceNames []string
	ServiceIDs   []int
	StaffID      *int
	StaffName    string

	SlotID    int
	SlotStart time.Time

	Step Step

	// Slots last shown to the user as a numbered list; position selection
	// ("2") resolves against this snapshot.
	ShownSlots []db.TimeSlot

	// Transient nearest-slot suggestion awaiting confirmation.
	SuggestedSlotID    int
	SuggestedSlotStart time.Time

	// Cancellation / reschedule context.
	PendingAction   string
	TargetApptID    int
	TargetSlotStart time.Time
	CandidateAppts  []AppointmentSummary

	UpdatedAt time.Time
}

// AddService appends a service if it is not already selected.
func (s *Session) AddService(id int, name string) {
	for _, existing := range s.ServiceIDs {
		if existing == id {
			return
		}
	}
	s.ServiceIDs = append(s.ServiceIDs, id)
	s.ServiceNames = append(s.ServiceNames, name)
}

// AppointmentSummary is the flattened view used to list a client's active
// appointments during cancel/reschedule flows.
type AppointmentSummary struct {
	ID           int
	SlotID       int
	SlotStart    time.Time
	ServiceNames []string
	StaffName    string
}
