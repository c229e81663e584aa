package repository

import "errors"

// Sentinel errors surfaced by the booking transaction manager. Anything else
// coming out of a repository is treated as a transient store failure.
var (
	ErrSlotNotFound        = errors.New("slot not found")
	ErrSlotTaken           = errors.New("slot is no longer available")
	ErrAppointmentNotFound = errors.New("appointment not found or not active")
)
