package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/caiomachado-24/ReservAI/internal/entities"
	"github.com/caiomachado-24/ReservAI/internal/service"
)

// WebhookHandler receives inbound messages from the messaging gateway and
// exposes the public catalog.
type WebhookHandler struct {
	Conversations *service.ConversationService
	Admin         *service.AdminService
}

func NewWebhookHandler(conversations *service.ConversationService, admin *service.AdminService) *WebhookHandler {
	return &WebhookHandler{Conversations: conversations, Admin: admin}
}

func (h *WebhookHandler) ReceiveMessage(w http.ResponseWriter, r *http.Request) {
	var msg entities.InboundMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	reply, err := h.Conversations.HandleMessage(msg)
	if err != nil {
		if errors.Is(err, service.ErrInvalidMessage) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, "Error processing message", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(reply)
}

func (h *WebhookHandler) ListServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.Admin.ListServices()
	if err != nil {
		http.Error(w, "Could not list services", http.StatusInternalServerError)
		return
	}
	resp := make([]ServiceResponse, 0, len(services))
	for _, s := range services {
		resp = append(resp, ServiceResponse{ID: s.ID, Name: s.Name})
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
