package service

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caiomachado-24/ReservAI/internal/db"
	"github.com/caiomachado-24/ReservAI/internal/entities"
	"github.com/caiomachado-24/ReservAI/internal/repository"
)

const testConvID = "+5511988887777"

type fakeClassifier struct {
	result *entities.IntentResult
	err    error
}

func (f *fakeClassifier) Classify(text, locale string) (*entities.IntentResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &entities.IntentResult{Intent: entities.IntentUnknown}, nil
}

type fakeSlotStore struct {
	available []db.TimeSlot
	listErr   error
}

func (f *fakeSlotStore) ListAvailable(limit int) ([]db.TimeSlot, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	if limit > 0 && len(f.available) > limit {
		return f.available[:limit], nil
	}
	return f.available, nil
}

func (f *fakeSlotStore) GetByID(id int) (*db.TimeSlot, error) {
	for i := range f.available {
		if f.available[i].ID == id {
			return &f.available[i], nil
		}
	}
	return nil, repository.ErrSlotNotFound
}

type reserveCall struct {
	clientID   int
	serviceIDs []int
	slotID     int
}

type fakeBookingStore struct {
	reserveErr    error
	rescheduleErr error
	cancelErr     error
	active        []entities.AppointmentSummary

	reserves    []reserveCall
	cancelled   []int
	rescheduled [][2]int
}

func (f *fakeBookingStore) Reserve(clientID int, serviceIDs []int, slotID int, staffID *int) (int, error) {
	if f.reserveErr != nil {
		return 0, f.reserveErr
	}
	f.reserves = append(f.reserves, reserveCall{clientID, serviceIDs, slotID})
	return 100 + len(f.reserves), nil
}

func (f *fakeBookingStore) Cancel(appointmentID int) error {
	if f.cancelErr != nil {
		return f.cancelErr
	}
	f.cancelled = append(f.cancelled, appointmentID)
	return nil
}

func (f *fakeBookingStore) Reschedule(appointmentID, newSlotID int) error {
	if f.rescheduleErr != nil {
		return f.rescheduleErr
	}
	f.rescheduled = append(f.rescheduled, [2]int{appointmentID, newSlotID})
	return nil
}

func (f *fakeBookingStore) ListActiveByClient(clientID int) ([]entities.AppointmentSummary, error) {
	return f.active, nil
}

type fakeClientStore struct {
	client db.Client
}

func (f *fakeClientStore) GetOrCreate(contactKey, name string) (*db.Client, error) {
	c := f.client
	c.ContactKey = contactKey
	if c.Name == "" {
		c.Name = name
	}
	return &c, nil
}

type fakeCatalog struct {
	services map[string]db.Service
	staff    map[string]db.Staff
}

func (f *fakeCatalog) FindServiceByAlias(alias string) (*db.Service, error) {
	if svc, ok := f.services[alias]; ok {
		return &svc, nil
	}
	return nil, nil
}

func (f *fakeCatalog) ListServices() ([]db.Service, error) {
	var out []db.Service
	for _, svc := range f.services {
		out = append(out, svc)
	}
	return out, nil
}

func (f *fakeCatalog) FindStaffByName(name string) (*db.Staff, error) {
	if st, ok := f.staff[name]; ok {
		return &st, nil
	}
	return nil, nil
}

func (f *fakeCatalog) ListStaff() ([]db.Staff, error) {
	var out []db.Staff
	for _, st := range f.staff {
		out = append(out, st)
	}
	return out, nil
}

type fakeSender struct {
	messages []string
}

func (f *fakeSender) SendConfirmation(client db.Client, message string) {
	f.messages = append(f.messages, message)
}

type fixture struct {
	classifier *fakeClassifier
	sessions   *MemorySessionStore
	slots      *fakeSlotStore
	bookings   *fakeBookingStore
	clients    *fakeClientStore
	catalog    *fakeCatalog
	sender     *fakeSender
	svc        *ConversationService
}

func newFixture() *fixture {
	f := &fixture{
		classifier: &fakeClassifier{},
		sessions:   NewMemorySessionStore(),
		slots: &fakeSlotStore{available: []db.TimeSlot{
			slotAt(1, time.Date(2025, 1, 3, 10, 0, 0, 0, time.UTC)),  // Friday
			slotAt(2, time.Date(2025, 1, 3, 14, 0, 0, 0, time.UTC)),  // Friday
			slotAt(3, time.Date(2025, 1, 4, 11, 30, 0, 0, time.UTC)), // Saturday
		}},
		bookings: &fakeBookingStore{},
		clients:  &fakeClientStore{client: db.Client{ID: 7}},
		catalog: &fakeCatalog{
			services: map[string]db.Service{
				"corte": {ID: 1, Name: "Corte"},
				"barba": {ID: 2, Name: "Barba"},
			},
			staff: map[string]db.Staff{
				"joao": {ID: 1, Name: "João"},
			},
		},
		sender: &fakeSender{},
	}
	f.svc = NewConversationService(
		f.classifier, f.sessions, testResolver(),
		f.slots, f.bookings, f.clients, f.catalog,
		f.sender, "pt-BR", time.UTC,
	)
	return f
}

func inbound(text string) entities.InboundMessage {
	return entities.InboundMessage{ConversationID: testConvID, Text: text, DisplayName: "carlos silva"}
}

func (f *fixture) turn(t *testing.T, text string, result *entities.IntentResult) entities.Reply {
	t.Helper()
	f.classifier.result = result
	reply, err := f.svc.HandleMessage(inbound(text))
	require.NoError(t, err)
	return reply
}

func TestHandleMessage_RejectsEmptyPayload(t *testing.T) {
	f := newFixture()

	_, err := f.svc.HandleMessage(entities.InboundMessage{ConversationID: "", Text: "oi"})
	assert.ErrorIs(t, err, ErrInvalidMessage)

	_, err = f.svc.HandleMessage(entities.InboundMessage{ConversationID: testConvID, Text: "   "})
	assert.ErrorIs(t, err, ErrInvalidMessage)
}

func TestHandleMessage_ClassifierOutageGetsRetryReply(t *testing.T) {
	f := newFixture()
	f.classifier.err = errors.New("upstream timeout")

	reply, err := f.svc.HandleMessage(inbound("quero um corte"))
	require.NoError(t, err)
	assert.Equal(t, replyTransient(), reply.Text)
}

func TestHandleMessage_SelectServiceStartsBookingFlow(t *testing.T) {
	f := newFixture()

	reply := f.turn(t, "Quero marcar um corte", &entities.IntentResult{
		Intent: entities.IntentSelectService,
		Params: map[string]interface{}{"servico": "Corte"},
	})

	sess := f.sessions.Get(testConvID)
	require.NotNil(t, sess)
	assert.Equal(t, entities.StepAwaitingDateTime, sess.Step)
	assert.Equal(t, []int{1}, sess.ServiceIDs)
	assert.Equal(t, []string{"Corte"}, sess.ServiceNames)
	assert.Equal(t, "Carlos Silva", sess.ClientName)
	assert.Len(t, sess.ShownSlots, 3)
	assert.Contains(t, reply.Text, "1)")
	assert.Contains(t, reply.Text, "Corte")
}

func TestHandleMessage_SecondServiceIsAdditive(t *testing.T) {
	f := newFixture()

	f.turn(t, "quero um corte", &entities.IntentResult{
		Intent: entities.IntentSelectService,
		Params: map[string]interface{}{"servico": "corte"},
	})
	f.turn(t, "e a barba tambem", &entities.IntentResult{
		Intent: entities.IntentSelectService,
		Params: map[string]interface{}{"servico": "barba"},
	})

	sess := f.sessions.Get(testConvID)
	require.NotNil(t, sess)
	assert.Equal(t, []int{1, 2}, sess.ServiceIDs)
	assert.Equal(t, entities.StepAwaitingDateTime, sess.Step)
}

func TestHandleMessage_UnknownServiceListsCatalog(t *testing.T) {
	f := newFixture()

	reply := f.turn(t, "quero luzes", &entities.IntentResult{
		Intent: entities.IntentSelectService,
		Params: map[string]interface{}{"servico": "luzes"},
	})

	assert.Contains(t, reply.Text, "Não reconheci esse serviço")
	assert.Nil(t, f.sessions.Get(testConvID))
}

func TestHandleMessage_ExactSlotAdvancesToNameConfirmation(t *testing.T) {
	f := newFixture()
	f.turn(t, "quero um corte", &entities.IntentResult{
		Intent: entities.IntentSelectService,
		Params: map[string]interface{}{"servico": "corte"},
	})

	reply := f.turn(t, "Sexta 10:00", nil)

	sess := f.sessions.Get(testConvID)
	require.NotNil(t, sess)
	assert.Equal(t, entities.StepAwaitingNameConfirm, sess.Step)
	assert.Equal(t, 1, sess.SlotID)
	assert.Contains(t, reply.Text, "Carlos Silva")
}

func TestHandleMessage_ExactMatchBeyondDisplayedWindow(t *testing.T) {
	f := newFixture()
	// Dozens of Thursday slots fill the list; the only Friday 10:00 slot
	// sorts after all of them.
	var slots []db.TimeSlot
	for i := 0; i < 55; i++ {
		start := time.Date(2025, 1, 2, 8, 0, 0, 0, time.UTC).Add(time.Duration(i) * 5 * time.Minute)
		slots = append(slots, slotAt(100+i, start))
	}
	slots = append(slots, slotAt(999, time.Date(2025, 1, 3, 10, 0, 0, 0, time.UTC)))
	f.slots.available = slots

	f.turn(t, "quero um corte", &entities.IntentResult{
		Intent: entities.IntentSelectService,
		Params: map[string]interface{}{"servico": "corte"},
	})
	f.turn(t, "sexta 10:00", nil)

	sess := f.sessions.Get(testConvID)
	require.NotNil(t, sess)
	assert.Equal(t, entities.StepAwaitingNameConfirm, sess.Step)
	assert.Equal(t, 999, sess.SlotID)
}

func TestHandleMessage_UnknownAliasInBatchLeavesSelectionUnchanged(t *testing.T) {
	f := newFixture()
	f.turn(t, "quero um corte", &entities.IntentResult{
		Intent: entities.IntentSelectService,
		Params: map[string]interface{}{"servico": "corte"},
	})

	// "barba" resolves but "luzes" does not; neither may be added.
	reply := f.turn(t, "barba e luzes", &entities.IntentResult{
		Intent: entities.IntentSelectService,
		Params: map[string]interface{}{"servico": []interface{}{"barba", "luzes"}},
	})

	assert.Contains(t, reply.Text, "Não reconheci esse serviço")
	sess := f.sessions.Get(testConvID)
	require.NotNil(t, sess)
	assert.Equal(t, []int{1}, sess.ServiceIDs)
	assert.Equal(t, []string{"Corte"}, sess.ServiceNames)
}

func TestHandleMessage_ListPositionPicksShownSlot(t *testing.T) {
	f := newFixture()
	f.turn(t, "quero um corte", &entities.IntentResult{
		Intent: entities.IntentSelectService,
		Params: map[string]interface{}{"servico": "corte"},
	})

	f.turn(t, "3", nil)

	sess := f.sessions.Get(testConvID)
	require.NotNil(t, sess)
	assert.Equal(t, 3, sess.SlotID)
	assert.Equal(t, entities.StepAwaitingNameConfirm, sess.Step)
}

func TestHandleMessage_NearestSlotNeedsConfirmation(t *testing.T) {
	f := newFixture()
	f.turn(t, "quero um corte", &entities.IntentResult{
		Intent: entities.IntentSelectService,
		Params: map[string]interface{}{"servico": "corte"},
	})

	// No slot at Friday 10:30; slot 1 (10:00) is the nearest.
	reply := f.turn(t, "sexta 10:30", nil)

	sess := f.sessions.Get(testConvID)
	require.NotNil(t, sess)
	assert.Equal(t, entities.StepConfirmNearestSlot, sess.Step)
	assert.Equal(t, 1, sess.SuggestedSlotID)
	assert.Equal(t, 0, sess.SlotID)
	assert.Contains(t, reply.Text, "mais próximo")

	// Accepting the suggestion adopts the slot and moves on.
	f.turn(t, "Sim", nil)
	sess = f.sessions.Get(testConvID)
	require.NotNil(t, sess)
	assert.Equal(t, entities.StepAwaitingNameConfirm, sess.Step)
	assert.Equal(t, 1, sess.SlotID)
	assert.Equal(t, 0, sess.SuggestedSlotID)
}

func TestHandleMessage_RejectingNearestAsksForAnotherTime(t *testing.T) {
	f := newFixture()
	f.turn(t, "quero um corte", &entities.IntentResult{
		Intent: entities.IntentSelectService,
		Params: map[string]interface{}{"servico": "corte"},
	})
	f.turn(t, "sexta 10:30", nil)

	reply := f.turn(t, "não", nil)

	sess := f.sessions.Get(testConvID)
	require.NotNil(t, sess)
	assert.Equal(t, entities.StepAwaitingDateTime, sess.Step)
	assert.Equal(t, 0, sess.SuggestedSlotID)
	assert.Equal(t, replyAskAnotherTime(), reply.Text)
}

func TestHandleMessage_UnparsableAnswerReasksWithoutLosingState(t *testing.T) {
	f := newFixture()
	f.turn(t, "quero um corte", &entities.IntentResult{
		Intent: entities.IntentSelectService,
		Params: map[string]interface{}{"servico": "corte"},
	})

	reply := f.turn(t, "qualquer hora serve", nil)

	sess := f.sessions.Get(testConvID)
	require.NotNil(t, sess)
	assert.Equal(t, entities.StepAwaitingDateTime, sess.Step)
	assert.Equal(t, replyUnparsableDateTime(), reply.Text)
}

func TestHandleMessage_FullBookingHappyPath(t *testing.T) {
	f := newFixture()
	f.turn(t, "quero um corte", &entities.IntentResult{
		Intent: entities.IntentSelectService,
		Params: map[string]interface{}{"servico": "corte"},
	})
	f.turn(t, "sexta 10:00", nil)

	// Confirms the suggested name, then the summary.
	f.turn(t, "sim", nil)
	sess := f.sessions.Get(testConvID)
	require.NotNil(t, sess)
	require.Equal(t, entities.StepAwaitingFinalConfirm, sess.Step)

	reply := f.turn(t, "pode confirmar", nil)

	require.Len(t, f.bookings.reserves, 1)
	assert.Equal(t, reserveCall{clientID: 7, serviceIDs: []int{1}, slotID: 1}, f.bookings.reserves[0])
	assert.Contains(t, reply.Text, "Agendamento confirmado")
	assert.Nil(t, f.sessions.Get(testConvID), "session must be cleared after commit")
	require.Len(t, f.sender.messages, 1)
	assert.Equal(t, reply.Text, f.sender.messages[0])
}

func TestHandleMessage_ProvidingAnotherNameOverridesSuggestion(t *testing.T) {
	f := newFixture()
	f.turn(t, "quero um corte", &entities.IntentResult{
		Intent: entities.IntentSelectService,
		Params: map[string]interface{}{"servico": "corte"},
	})
	f.turn(t, "sexta 10:00", nil)

	reply := f.turn(t, "maria souza", nil)

	sess := f.sessions.Get(testConvID)
	require.NotNil(t, sess)
	assert.Equal(t, "Maria Souza", sess.ClientName)
	assert.Equal(t, entities.StepAwaitingFinalConfirm, sess.Step)
	assert.Contains(t, reply.Text, "Maria Souza")
}

func TestHandleMessage_SlotTakenRetreatsToSlotSelection(t *testing.T) {
	f := newFixture()
	f.turn(t, "quero um corte", &entities.IntentResult{
		Intent: entities.IntentSelectService,
		Params: map[string]interface{}{"servico": "corte"},
	})
	f.turn(t, "sexta 10:00", nil)
	f.turn(t, "sim", nil)

	f.bookings.reserveErr = repository.ErrSlotTaken
	reply := f.turn(t, "sim", nil)

	sess := f.sessions.Get(testConvID)
	require.NotNil(t, sess, "conflict must keep the session alive")
	assert.Equal(t, entities.StepAwaitingDateTime, sess.Step)
	assert.Equal(t, 0, sess.SlotID)
	assert.Contains(t, reply.Text, "reservado por outra pessoa")
	assert.Empty(t, f.sender.messages)
}

func TestHandleMessage_AbandonDeletesSession(t *testing.T) {
	f := newFixture()
	f.turn(t, "quero um corte", &entities.IntentResult{
		Intent: entities.IntentSelectService,
		Params: map[string]interface{}{"servico": "corte"},
	})
	f.turn(t, "sexta 10:00", nil)

	reply := f.turn(t, "não, deixa pra lá", nil)

	assert.Nil(t, f.sessions.Get(testConvID))
	assert.Equal(t, replyAbandoned(), reply.Text)
}

func TestHandleMessage_CancelSingleAppointment(t *testing.T) {
	f := newFixture()
	f.bookings.active = []entities.AppointmentSummary{
		{ID: 42, SlotID: 1, SlotStart: time.Date(2025, 1, 3, 10, 0, 0, 0, time.UTC), ServiceNames: []string{"Corte"}},
	}

	reply := f.turn(t, "quero cancelar meu horário", &entities.IntentResult{Intent: entities.IntentCancelAppointment})

	sess := f.sessions.Get(testConvID)
	require.NotNil(t, sess)
	assert.Equal(t, entities.StepConfirmCancel, sess.Step)
	assert.Equal(t, 42, sess.TargetApptID)
	assert.Contains(t, reply.Text, "cancelar")

	reply = f.turn(t, "sim", nil)

	assert.Equal(t, []int{42}, f.bookings.cancelled)
	assert.Equal(t, replyCancelled(), reply.Text)
	assert.Nil(t, f.sessions.Get(testConvID))
	require.Len(t, f.sender.messages, 1)
}

func TestHandleMessage_CancelWithNoAppointments(t *testing.T) {
	f := newFixture()

	reply := f.turn(t, "quero cancelar", &entities.IntentResult{Intent: entities.IntentCancelAppointment})

	assert.Equal(t, replyNoAppointments(), reply.Text)
	assert.Nil(t, f.sessions.Get(testConvID))
}

func TestHandleMessage_CancelWithSeveralAppointmentsAsksWhich(t *testing.T) {
	f := newFixture()
	f.bookings.active = []entities.AppointmentSummary{
		{ID: 42, SlotID: 1, SlotStart: time.Date(2025, 1, 3, 10, 0, 0, 0, time.UTC), ServiceNames: []string{"Corte"}},
		{ID: 43, SlotID: 3, SlotStart: time.Date(2025, 1, 4, 11, 30, 0, 0, time.UTC), ServiceNames: []string{"Barba"}},
	}

	reply := f.turn(t, "cancelar", &entities.IntentResult{Intent: entities.IntentCancelAppointment})

	sess := f.sessions.Get(testConvID)
	require.NotNil(t, sess)
	assert.Equal(t, entities.StepSelectAppointment, sess.Step)
	assert.Contains(t, reply.Text, "1)")
	assert.Contains(t, reply.Text, "2)")

	// Out-of-range pick re-asks, then a valid pick targets the second one.
	reply = f.turn(t, "9", nil)
	assert.Equal(t, replyInvalidSelection(2), reply.Text)

	f.turn(t, "2", nil)
	sess = f.sessions.Get(testConvID)
	require.NotNil(t, sess)
	assert.Equal(t, 43, sess.TargetApptID)
	assert.Equal(t, entities.StepConfirmCancel, sess.Step)
}

func TestHandleMessage_RescheduleFlow(t *testing.T) {
	f := newFixture()
	f.bookings.active = []entities.AppointmentSummary{
		{ID: 42, SlotID: 1, SlotStart: time.Date(2025, 1, 3, 10, 0, 0, 0, time.UTC), ServiceNames: []string{"Corte"}},
	}

	reply := f.turn(t, "preciso remarcar", &entities.IntentResult{Intent: entities.IntentReschedule})
	assert.Contains(t, reply.Text, "remarcar")

	sess := f.sessions.Get(testConvID)
	require.NotNil(t, sess)
	require.Equal(t, entities.StepConfirmRescheduleStart, sess.Step)

	reply = f.turn(t, "sim", nil)
	sess = f.sessions.Get(testConvID)
	require.NotNil(t, sess)
	require.Equal(t, entities.StepAwaitingNewDateTime, sess.Step)
	assert.Contains(t, reply.Text, "1)")

	f.turn(t, "sabado 11:30", nil)
	sess = f.sessions.Get(testConvID)
	require.NotNil(t, sess)
	require.Equal(t, entities.StepAwaitingRescheduleConfirm, sess.Step)
	assert.Equal(t, 3, sess.SlotID)

	reply = f.turn(t, "confirmo", nil)

	assert.Equal(t, [][2]int{{42, 3}}, f.bookings.rescheduled)
	assert.Contains(t, reply.Text, "remarcado")
	assert.Nil(t, f.sessions.Get(testConvID))
}

func TestHandleMessage_DefaultFallbackUsesClassifierText(t *testing.T) {
	f := newFixture()

	reply := f.turn(t, "blz", &entities.IntentResult{
		Intent:       entities.IntentUnknown,
		FallbackText: "Desculpe, pode reformular?",
	})

	assert.Equal(t, "Desculpe, pode reformular?", reply.Text)
}
