package db

import "time"

type Client struct {
	ID         int
	ContactKey string
	Name       string
	Email      string
}

type Service struct {
	ID   int
	Name string
}

type Staff struct {
	ID   int
	Name string
}

type TimeSlot struct {
	ID           int
	StartTime    time.Time
	WeekdayLabel string
	StaffID      *int
	Available    bool
}

const (
	AppointmentStatusActive    = "active"
	AppointmentStatusCancelled = "cancelled"
)

type Appointment struct {
	ID           int
	ClientID     int
	ServiceIDs   []int
	SlotID       int
	StaffID      *int
	Status       string
	ReminderSent bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
