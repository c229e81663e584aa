package service

import (
	"fmt"
	"time"

	"github.com/caiomachado-24/ReservAI/internal/db"
	"github.com/caiomachado-24/ReservAI/internal/repository"
	"github.com/caiomachado-24/ReservAI/internal/utils"
)

// AdminService backs the protected admin API: slot and catalog management
// plus appointment listings.
type AdminService struct {
	Slots    *repository.SlotRepository
	Catalog  *repository.CatalogRepository
	Bookings *repository.BookingRepository
	Location *time.Location
}

func NewAdminService(slots *repository.SlotRepository, catalog *repository.CatalogRepository, bookings *repository.BookingRepository, loc *time.Location) *AdminService {
	return &AdminService{Slots: slots, Catalog: catalog, Bookings: bookings, Location: loc}
}

// CreateSlot inserts an available slot, deriving the cached weekday label
// from the start time in the shop's timezone.
func (s *AdminService) CreateSlot(startTime time.Time, staffID *int) (*db.TimeSlot, error) {
	if !startTime.After(time.Now()) {
		return nil, fmt.Errorf("slot start time must be in the future")
	}
	label := utils.WeekdayLabel(startTime.In(s.Location))
	return s.Slots.Create(startTime, label, staffID)
}

func (s *AdminService) DeleteSlot(id int) error {
	return s.Slots.Delete(id)
}

func (s *AdminService) ListSlots(onlyAvailable bool) ([]db.TimeSlot, error) {
	return s.Slots.List(onlyAvailable)
}

func (s *AdminService) ListAppointments(date, status string) ([]db.Appointment, error) {
	return s.Bookings.ListAppointments(date, status)
}

// CreateService registers a catalog entry. The canonical name is always
// added as an alias of itself, normalized.
func (s *AdminService) CreateService(name string, aliases []string) (*db.Service, error) {
	if name == "" {
		return nil, fmt.Errorf("service name cannot be empty")
	}
	normalized := []string{utils.Normalize(name)}
	for _, alias := range aliases {
		if n := utils.Normalize(alias); n != "" && n != normalized[0] {
			normalized = append(normalized, n)
		}
	}
	return s.Catalog.CreateService(name, normalized)
}

func (s *AdminService) ListServices() ([]db.Service, error) {
	return s.Catalog.ListServices()
}

func (s *AdminService) ListStaff() ([]db.Staff, error) {
	return s.Catalog.ListStaff()
}
