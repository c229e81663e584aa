package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	apperrors "github.com/caiomachado-24/ReservAI/internal/errors"
	"github.com/caiomachado-24/ReservAI/internal/repository"
	"github.com/caiomachado-24/ReservAI/internal/service"
)

type AdminHandler struct {
	Service *service.AdminService
}

func NewAdminHandler(svc *service.AdminService) *AdminHandler {
	return &AdminHandler{Service: svc}
}

func (h *AdminHandler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	status := r.URL.Query().Get("status")
	appointments, err := h.Service.ListAppointments(date, status)
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	resp := make([]AppointmentResponse, 0, len(appointments))
	for _, a := range appointments {
		resp = append(resp, AppointmentResponse{
			ID:         a.ID,
			ClientID:   a.ClientID,
			ServiceIDs: a.ServiceIDs,
			SlotID:     a.SlotID,
			StaffID:    a.StaffID,
			Status:     a.Status,
			CreatedAt:  a.CreatedAt,
			UpdatedAt:  a.UpdatedAt,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *AdminHandler) CreateSlot(w http.ResponseWriter, r *http.Request) {
	var req CreateSlotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperrors.ErrBadRequest("Invalid request body").Write(w)
		return
	}
	slot, err := h.Service.CreateSlot(req.StartTime, req.StaffID)
	if err != nil {
		apperrors.ErrBadRequest(err.Error()).Write(w)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(SlotResponse{
		ID:           slot.ID,
		StartTime:    slot.StartTime,
		WeekdayLabel: slot.WeekdayLabel,
		StaffID:      slot.StaffID,
		Available:    slot.Available,
	})
}

func (h *AdminHandler) DeleteSlot(w http.ResponseWriter, r *http.Request) {
	idStr := mux.Vars(r)["id"]
	id, err := strconv.Atoi(idStr)
	if err != nil {
		apperrors.ErrBadRequest("Invalid slot ID").Write(w)
		return
	}
	err = h.Service.DeleteSlot(id)
	switch {
	case errors.Is(err, repository.ErrSlotNotFound):
		apperrors.ErrNotFound("Slot not found").Write(w)
		return
	case errors.Is(err, repository.ErrSlotTaken):
		apperrors.ErrConflict("Slot has an active appointment").Write(w)
		return
	case err != nil:
		http.Error(w, "Could not delete slot", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"message": "Slot deleted"})
}

func (h *AdminHandler) ListSlots(w http.ResponseWriter, r *http.Request) {
	onlyAvailable := r.URL.Query().Get("available") == "true"
	slots, err := h.Service.ListSlots(onlyAvailable)
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	resp := make([]SlotResponse, 0, len(slots))
	for _, s := range slots {
		resp = append(resp, SlotResponse{
			ID:           s.ID,
			StartTime:    s.StartTime,
			WeekdayLabel: s.WeekdayLabel,
			StaffID:      s.StaffID,
			Available:    s.Available,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *AdminHandler) CreateService(w http.ResponseWriter, r *http.Request) {
	var req CreateServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperrors.ErrBadRequest("Invalid request body").Write(w)
		return
	}
	svc, err := h.Service.CreateService(req.Name, req.Aliases)
	if err != nil {
		apperrors.ErrBadRequest(err.Error()).Write(w)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ServiceResponse{ID: svc.ID, Name: svc.Name})
}

func (h *AdminHandler) ListStaff(w http.ResponseWriter, r *http.Request) {
	staff, err := h.Service.ListStaff()
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(staff)
}
