package service

import (
	"errors"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/caiomachado-24/ReservAI/internal/db"
	"github.com/caiomachado-24/ReservAI/internal/entities"
	"github.com/caiomachado-24/ReservAI/internal/repository"
	"github.com/caiomachado-24/ReservAI/internal/utils"
)

// ErrInvalidMessage is returned for webhook payloads missing required fields.
var ErrInvalidMessage = errors.New("conversation_id and text are required")

// Slots shown to the user as a numbered list.
const slotListLimit = 10

// Store boundaries consumed by the state machine. The repository types
// satisfy them; tests inject fakes.
type SlotStore interface {
	ListAvailable(limit int) ([]db.TimeSlot, error)
	GetByID(id int) (*db.TimeSlot, error)
}

type BookingStore interface {
	Reserve(clientID int, serviceIDs []int, slotID int, staffID *int) (int, error)
	Cancel(appointmentID int) error
	Reschedule(appointmentID, newSlotID int) error
	ListActiveByClient(clientID int) ([]entities.AppointmentSummary, error)
}

type ClientStore interface {
	GetOrCreate(contactKey, name string) (*db.Client, error)
}

type CatalogStore interface {
	FindServiceByAlias(alias string) (*db.Service, error)
	ListServices() ([]db.Service, error)
	FindStaffByName(name string) (*db.Staff, error)
	ListStaff() ([]db.Staff, error)
}

// ConfirmationSender delivers terminal-outcome confirmations out of band.
// Implementations must not block the webhook reply.
type ConfirmationSender interface {
	SendConfirmation(client db.Client, message string)
}

// ConversationService is the per-turn dispatcher: it reconciles the
// classifier's intent with the session step, drives the resolver and the
// booking transaction manager, and produces the reply text.
type ConversationService struct {
	classifier IntentClassifier
	sessions   SessionStore
	resolver   *SlotResolver
	slots      SlotStore
	bookings   BookingStore
	clients    ClientStore
	catalog    CatalogStore
	sender     ConfirmationSender
	locale     string
	loc        *time.Location
}

func NewConversationService(
	classifier IntentClassifier,
	sessions SessionStore,
	resolver *SlotResolver,
	slots SlotStore,
	bookings BookingStore,
	clients ClientStore,
	catalog CatalogStore,
	sender ConfirmationSender,
	locale string,
	loc *time.Location,
) *ConversationService {
	return &ConversationService{
		classifier: classifier,
		sessions:   sessions,
		resolver:   resolver,
		slots:      slots,
		bookings:   bookings,
		clients:    clients,
		catalog:    catalog,
		sender:     sender,
		locale:     locale,
		loc:        loc,
	}
}

// HandleMessage processes one inbound message. Turns for the same
// conversation are serialized on the session store's per-key lock; turns for
// different conversations run concurrently.
func (s *ConversationService) HandleMessage(msg entities.InboundMessage) (entities.Reply, error) {
	if msg.ConversationID == "" || strings.TrimSpace(msg.Text) == "" {
		return entities.Reply{}, ErrInvalidMessage
	}

	unlock := s.sessions.Lock(msg.ConversationID)
	defer unlock()

	sess := s.sessions.Get(msg.ConversationID)

	result, err := s.classifier.Classify(msg.Text, s.locale)
	if err != nil {
		log.Printf("Classifier error for conversation %s: %v", msg.ConversationID, err)
		return entities.Reply{Text: replyTransient()}, nil
	}

	intent := ReconcileIntent(result.Intent, msg.Text, sess)

	switch intent {
	case entities.IntentGreeting:
		return s.handleGreeting()
	case entities.IntentSelectService:
		return s.handleSelectService(msg, sess, result)
	case entities.IntentProvideDateTime:
		return s.handleDateTime(msg, sess, result)
	case entities.IntentConfirm:
		return s.handleConfirm(msg, sess)
	case entities.IntentReject:
		return s.handleReject(msg, sess)
	case entities.IntentProvideName:
		return s.handleName(msg, sess)
	case entities.IntentSelectAppointment:
		return s.handleSelectAppointment(msg, sess)
	case entities.IntentCancelAppointment:
		return s.handleAppointmentRequest(msg, entities.ActionCancel)
	case entities.IntentReschedule:
		return s.handleAppointmentRequest(msg, entities.ActionReschedule)
	default:
		// Unrecoverable fallback with no active step ends the conversation.
		if sess == nil || sess.Step == entities.StepNone {
			s.sessions.Delete(msg.ConversationID)
		}
		return entities.Reply{Text: replyDefault(result.FallbackText)}, nil
	}
}

func (s *ConversationService) handleGreeting() (entities.Reply, error) {
	services, err := s.catalog.ListServices()
	if err != nil {
		log.Printf("Error listing services: %v", err)
		return entities.Reply{Text: replyTransient()}, nil
	}
	return entities.Reply{Text: replyGreeting(services)}, nil
}

// handleSelectService accumulates services into the session (additive and
// deduplicated) and moves to the date/time step with the slot list.
func (s *ConversationService) handleSelectService(msg entities.InboundMessage, sess *entities.Session, result *entities.IntentResult) (entities.Reply, error) {
	if sess == nil {
		sess = &entities.Session{
			ConversationID: msg.ConversationID,
			ClientName:     utils.TitleName(msg.DisplayName),
		}
	}

	names := result.StringListParam("servico")
	if len(names) == 0 {
		names = []string{msg.Text}
	}
	// Resolve every alias before touching the session so one unknown name
	// leaves the current selection unchanged.
	resolved := make([]db.Service, 0, len(names))
	for _, name := range names {
		svc, err := s.catalog.FindServiceByAlias(utils.Normalize(name))
		if err != nil {
			log.Printf("Error resolving service %q: %v", name, err)
			return entities.Reply{Text: replyTransient()}, nil
		}
		if svc == nil {
			services, err := s.catalog.ListServices()
			if err != nil {
				return entities.Reply{Text: replyTransient()}, nil
			}
			return entities.Reply{Text: replyServiceList(services)}, nil
		}
		resolved = append(resolved, *svc)
	}
	for _, svc := range resolved {
		sess.AddService(svc.ID, svc.Name)
	}

	if staffName := result.StringParam("profissional"); staffName != "" {
		staff, err := s.catalog.FindStaffByName(utils.Normalize(staffName))
		if err != nil {
			log.Printf("Error resolving staff %q: %v", staffName, err)
			return entities.Reply{Text: replyTransient()}, nil
		}
		if staff == nil {
			team, err := s.catalog.ListStaff()
			if err != nil {
				return entities.Reply{Text: replyTransient()}, nil
			}
			s.sessions.Put(sess)
			return entities.Reply{Text: replyUnknownStaff(team)}, nil
		}
		sess.StaffID = &staff.ID
		sess.StaffName = staff.Name
	}

	available, err := s.slots.ListAvailable(slotListLimit)
	if err != nil {
		log.Printf("Error listing slots: %v", err)
		return entities.Reply{Text: replyTransient()}, nil
	}
	if len(available) == 0 {
		s.sessions.Delete(msg.ConversationID)
		return entities.Reply{Text: replyNoSlots()}, nil
	}

	sess.ShownSlots = available
	sess.Step = entities.StepAwaitingDateTime
	s.sessions.Put(sess)
	return entities.Reply{Text: replySlotOptions(sess.ServiceNames, available, s.loc)}, nil
}

// handleDateTime resolves the user's answer into a slot, either advancing to
// the matching confirmation step or parking a nearest-slot suggestion.
func (s *ConversationService) handleDateTime(msg entities.InboundMessage, sess *entities.Session, result *entities.IntentResult) (entities.Reply, error) {
	if sess == nil || (sess.Step != entities.StepAwaitingDateTime && sess.Step != entities.StepAwaitingNewDateTime) {
		s.sessions.Delete(msg.ConversationID)
		return entities.Reply{Text: replyRestart()}, nil
	}
	rescheduling := sess.Step == entities.StepAwaitingNewDateTime
	if !rescheduling && len(sess.ServiceIDs) == 0 {
		s.sessions.Delete(msg.ConversationID)
		return entities.Reply{Text: replyRestart()}, nil
	}

	// Exact and nearest matching must see every future slot, not just the
	// displayed window.
	available, err := s.slots.ListAvailable(0)
	if err != nil {
		log.Printf("Error listing slots: %v", err)
		return entities.Reply{Text: replyTransient()}, nil
	}

	resolution, err := s.resolver.Resolve(msg.Text, sess.ShownSlots, available, result)
	if err != nil {
		if errors.Is(err, ErrUnparsableDateTime) {
			s.sessions.Put(sess)
			return entities.Reply{Text: replyUnparsableDateTime()}, nil
		}
		if errors.Is(err, ErrNoSlotsAvailable) {
			s.sessions.Delete(msg.ConversationID)
			return entities.Reply{Text: replyNoSlots()}, nil
		}
		log.Printf("Resolver error for conversation %s: %v", msg.ConversationID, err)
		return entities.Reply{Text: replyTransient()}, nil
	}

	if !resolution.Exact {
		sess.SuggestedSlotID = resolution.Slot.ID
		sess.SuggestedSlotStart = resolution.Slot.StartTime
		sess.Step = entities.StepConfirmNearestSlot
		s.sessions.Put(sess)
		return entities.Reply{Text: replyNearestSuggestion(resolution.Slot.StartTime, s.loc)}, nil
	}

	sess.SlotID = resolution.Slot.ID
	sess.SlotStart = resolution.Slot.StartTime
	return s.advanceAfterSlotChosen(msg, sess)
}

// advanceAfterSlotChosen moves to the step that follows a concrete slot
// choice: the reschedule confirmation or the name confirmation.
func (s *ConversationService) advanceAfterSlotChosen(msg entities.InboundMessage, sess *entities.Session) (entities.Reply, error) {
	if sess.PendingAction == entities.ActionReschedule && sess.TargetApptID != 0 {
		sess.Step = entities.StepAwaitingRescheduleConfirm
		s.sessions.Put(sess)
		return entities.Reply{Text: replyConfirmReschedule(sess.TargetSlotStart, sess.SlotStart, s.loc)}, nil
	}

	if sess.ClientName == "" {
		sess.ClientName = utils.TitleName(msg.DisplayName)
	}
	sess.Step = entities.StepAwaitingNameConfirm
	s.sessions.Put(sess)
	return entities.Reply{Text: replyAskName(sess.SlotStart, s.loc, sess.ClientName)}, nil
}

func (s *ConversationService) handleConfirm(msg entities.InboundMessage, sess *entities.Session) (entities.Reply, error) {
	if sess == nil {
		return entities.Reply{Text: replyDefault("")}, nil
	}

	switch sess.Step {
	case entities.StepConfirmNearestSlot:
		if sess.SuggestedSlotID == 0 {
			s.sessions.Delete(msg.ConversationID)
			return entities.Reply{Text: replyRestart()}, nil
		}
		sess.SlotID = sess.SuggestedSlotID
		sess.SlotStart = sess.SuggestedSlotStart
		sess.SuggestedSlotID = 0
		sess.SuggestedSlotStart = time.Time{}
		return s.advanceAfterSlotChosen(msg, sess)

	case entities.StepAwaitingNameConfirm:
		if sess.SlotID == 0 || len(sess.ServiceIDs) == 0 || sess.ClientName == "" {
			s.sessions.Delete(msg.ConversationID)
			return entities.Reply{Text: replyRestart()}, nil
		}
		sess.Step = entities.StepAwaitingFinalConfirm
		s.sessions.Put(sess)
		return entities.Reply{Text: replyBookingSummary(sess, s.loc)}, nil

	case entities.StepAwaitingFinalConfirm:
		return s.commitBooking(msg, sess)

	case entities.StepConfirmRescheduleStart:
		if sess.TargetApptID == 0 {
			s.sessions.Delete(msg.ConversationID)
			return entities.Reply{Text: replyRestart()}, nil
		}
		available, err := s.slots.ListAvailable(slotListLimit)
		if err != nil {
			log.Printf("Error listing slots: %v", err)
			return entities.Reply{Text: replyTransient()}, nil
		}
		if len(available) == 0 {
			s.sessions.Delete(msg.ConversationID)
			return entities.Reply{Text: replyNoSlots()}, nil
		}
		sess.ShownSlots = available
		sess.Step = entities.StepAwaitingNewDateTime
		s.sessions.Put(sess)
		return entities.Reply{Text: replyRescheduleSlotOptions(available, s.loc)}, nil

	case entities.StepAwaitingRescheduleConfirm:
		return s.commitReschedule(msg, sess)

	case entities.StepConfirmCancel:
		return s.commitCancel(msg, sess)

	default:
		return entities.Reply{Text: replyDefault("")}, nil
	}
}

// commitBooking is the terminal commit of the booking flow.
func (s *ConversationService) commitBooking(msg entities.InboundMessage, sess *entities.Session) (entities.Reply, error) {
	if sess.SlotID == 0 || len(sess.ServiceIDs) == 0 || sess.ClientName == "" {
		s.sessions.Delete(msg.ConversationID)
		return entities.Reply{Text: replyRestart()}, nil
	}

	client, err := s.clients.GetOrCreate(msg.ConversationID, sess.ClientName)
	if err != nil {
		log.Printf("Error upserting client for %s: %v", msg.ConversationID, err)
		s.sessions.Delete(msg.ConversationID)
		return entities.Reply{Text: replyTransient()}, nil
	}

	appointmentID, err := s.bookings.Reserve(client.ID, sess.ServiceIDs, sess.SlotID, sess.StaffID)
	switch {
	case errors.Is(err, repository.ErrSlotTaken):
		return s.backToSlotSelection(sess, entities.StepAwaitingDateTime)
	case errors.Is(err, repository.ErrSlotNotFound):
		s.sessions.Delete(msg.ConversationID)
		return entities.Reply{Text: replyNotFoundRestart()}, nil
	case err != nil:
		log.Printf("Error reserving slot %d: %v", sess.SlotID, err)
		s.sessions.Delete(msg.ConversationID)
		return entities.Reply{Text: replyTransient()}, nil
	}

	log.Printf("Appointment %d booked for client %d (slot %d)", appointmentID, client.ID, sess.SlotID)
	text := replyBooked(sess, s.loc)
	s.sender.SendConfirmation(*client, text)
	s.sessions.Delete(msg.ConversationID)
	return entities.Reply{Text: text}, nil
}

func (s *ConversationService) commitReschedule(msg entities.InboundMessage, sess *entities.Session) (entities.Reply, error) {
	if sess.TargetApptID == 0 || sess.SlotID == 0 {
		s.sessions.Delete(msg.ConversationID)
		return entities.Reply{Text: replyRestart()}, nil
	}

	err := s.bookings.Reschedule(sess.TargetApptID, sess.SlotID)
	switch {
	case errors.Is(err, repository.ErrSlotTaken):
		return s.backToSlotSelection(sess, entities.StepAwaitingNewDateTime)
	case errors.Is(err, repository.ErrAppointmentNotFound), errors.Is(err, repository.ErrSlotNotFound):
		s.sessions.Delete(msg.ConversationID)
		return entities.Reply{Text: replyNotFoundRestart()}, nil
	case err != nil:
		log.Printf("Error rescheduling appointment %d: %v", sess.TargetApptID, err)
		s.sessions.Delete(msg.ConversationID)
		return entities.Reply{Text: replyTransient()}, nil
	}

	text := replyRescheduled(sess.SlotStart, s.loc)
	s.notifyByContact(msg.ConversationID, sess.ClientName, text)
	s.sessions.Delete(msg.ConversationID)
	return entities.Reply{Text: text}, nil
}

func (s *ConversationService) commitCancel(msg entities.InboundMessage, sess *entities.Session) (entities.Reply, error) {
	if sess.TargetApptID == 0 {
		s.sessions.Delete(msg.ConversationID)
		return entities.Reply{Text: replyRestart()}, nil
	}

	err := s.bookings.Cancel(sess.TargetApptID)
	switch {
	case errors.Is(err, repository.ErrAppointmentNotFound):
		s.sessions.Delete(msg.ConversationID)
		return entities.Reply{Text: replyNotFoundRestart()}, nil
	case err != nil:
		log.Printf("Error cancelling appointment %d: %v", sess.TargetApptID, err)
		s.sessions.Delete(msg.ConversationID)
		return entities.Reply{Text: replyTransient()}, nil
	}

	text := replyCancelled()
	s.notifyByContact(msg.ConversationID, sess.ClientName, text)
	s.sessions.Delete(msg.ConversationID)
	return entities.Reply{Text: text}, nil
}

// backToSlotSelection handles a reserve/reschedule conflict: the slot is gone,
// so the session returns to the date/time step with a refreshed list.
func (s *ConversationService) backToSlotSelection(sess *entities.Session, step entities.Step) (entities.Reply, error) {
	available, err := s.slots.ListAvailable(slotListLimit)
	if err != nil {
		log.Printf("Error refreshing slots after conflict: %v", err)
		available = nil
	}
	sess.SlotID = 0
	sess.SlotStart = time.Time{}
	sess.ShownSlots = available
	sess.Step = step
	s.sessions.Put(sess)
	return entities.Reply{Text: replySlotConflict(available, s.loc)}, nil
}

func (s *ConversationService) handleReject(msg entities.InboundMessage, sess *entities.Session) (entities.Reply, error) {
	if sess == nil || sess.Step == entities.StepNone {
		return entities.Reply{Text: replyDefault("")}, nil
	}

	// Rejecting the nearest-slot suggestion returns to the date/time step;
	// rejecting anything else abandons the flow.
	if sess.Step == entities.StepConfirmNearestSlot {
		sess.SuggestedSlotID = 0
		sess.SuggestedSlotStart = time.Time{}
		if sess.PendingAction == entities.ActionReschedule && sess.TargetApptID != 0 {
			sess.Step = entities.StepAwaitingNewDateTime
		} else {
			sess.Step = entities.StepAwaitingDateTime
		}
		s.sessions.Put(sess)
		return entities.Reply{Text: replyAskAnotherTime()}, nil
	}

	s.sessions.Delete(msg.ConversationID)
	return entities.Reply{Text: replyAbandoned()}, nil
}

func (s *ConversationService) handleName(msg entities.InboundMessage, sess *entities.Session) (entities.Reply, error) {
	if sess == nil || sess.Step != entities.StepAwaitingNameConfirm {
		return entities.Reply{Text: replyDefault("")}, nil
	}
	if sess.SlotID == 0 || len(sess.ServiceIDs) == 0 {
		s.sessions.Delete(msg.ConversationID)
		return entities.Reply{Text: replyRestart()}, nil
	}
	sess.ClientName = utils.TitleName(msg.Text)
	sess.Step = entities.StepAwaitingFinalConfirm
	s.sessions.Put(sess)
	return entities.Reply{Text: replyBookingSummary(sess, s.loc)}, nil
}

// handleAppointmentRequest starts a cancel or reschedule flow by listing the
// client's active appointments.
func (s *ConversationService) handleAppointmentRequest(msg entities.InboundMessage, action string) (entities.Reply, error) {
	client, err := s.clients.GetOrCreate(msg.ConversationID, utils.TitleName(msg.DisplayName))
	if err != nil {
		log.Printf("Error upserting client for %s: %v", msg.ConversationID, err)
		return entities.Reply{Text: replyTransient()}, nil
	}

	appointments, err := s.bookings.ListActiveByClient(client.ID)
	if err != nil {
		log.Printf("Error listing appointments for client %d: %v", client.ID, err)
		return entities.Reply{Text: replyTransient()}, nil
	}
	if len(appointments) == 0 {
		s.sessions.Delete(msg.ConversationID)
		return entities.Reply{Text: replyNoAppointments()}, nil
	}

	sess := &entities.Session{
		ConversationID: msg.ConversationID,
		ClientID:       client.ID,
		ClientName:     client.Name,
		PendingAction:  action,
	}

	if len(appointments) == 1 {
		return s.targetAppointment(sess, appointments[0])
	}

	sess.CandidateAppts = appointments
	sess.Step = entities.StepSelectAppointment
	s.sessions.Put(sess)
	return entities.Reply{Text: replyAppointmentList(appointments, action, s.loc)}, nil
}

func (s *ConversationService) handleSelectAppointment(msg entities.InboundMessage, sess *entities.Session) (entities.Reply, error) {
	if sess == nil || sess.Step != entities.StepSelectAppointment || len(sess.CandidateAppts) == 0 {
		s.sessions.Delete(msg.ConversationID)
		return entities.Reply{Text: replyRestart()}, nil
	}

	n, err := strconv.Atoi(utils.Normalize(msg.Text))
	if err != nil || n < 1 || n > len(sess.CandidateAppts) {
		s.sessions.Put(sess)
		return entities.Reply{Text: replyInvalidSelection(len(sess.CandidateAppts))}, nil
	}

	chosen := sess.CandidateAppts[n-1]
	sess.CandidateAppts = nil
	return s.targetAppointment(sess, chosen)
}

// targetAppointment points the session at one appointment and asks for the
// step-appropriate confirmation.
func (s *ConversationService) targetAppointment(sess *entities.Session, appt entities.AppointmentSummary) (entities.Reply, error) {
	sess.TargetApptID = appt.ID
	sess.TargetSlotStart = appt.SlotStart

	if sess.PendingAction == entities.ActionReschedule {
		sess.Step = entities.StepConfirmRescheduleStart
		s.sessions.Put(sess)
		return entities.Reply{Text: replyConfirmRescheduleStart(appt.SlotStart, s.loc)}, nil
	}

	sess.Step = entities.StepConfirmCancel
	s.sessions.Put(sess)
	return entities.Reply{Text: replyConfirmCancel(appt.SlotStart, s.loc)}, nil
}

// notifyByContact sends a best-effort confirmation to a known contact.
func (s *ConversationService) notifyByContact(contactKey, name, text string) {
	client, err := s.clients.GetOrCreate(contactKey, name)
	if err != nil {
		log.Printf("Skipping confirmation for %s: %v", contactKey, err)
		return
	}
	s.sender.SendConfirmation(*client, text)
}
