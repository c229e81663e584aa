package api

import "time"

type ServiceResponse struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type CreateSlotRequest struct {
	StartTime time.Time `json:"start_time"`
	StaffID   *int      `json:"staff_id,omitempty"`
}

type SlotResponse struct {
	ID           int       `json:"id"`
	StartTime    time.Time `json:"start_time"`
	WeekdayLabel string    `json:"weekday_label"`
	StaffID      *int      `json:"staff_id,omitempty"`
	Available    bool      `json:"available"`
}

type CreateServiceRequest struct {
	Name    string   `json:"name"`
	Aliases []string `json:"aliases,omitempty"`
}

type AppointmentResponse struct {
	ID         int       `json:"id"`
	ClientID   int       `json:"client_id"`
	ServiceIDs []int     `json:"service_ids"`
	SlotID     int       `json:"slot_id"`
	StaffID    *int      `json:"staff_id,omitempty"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
