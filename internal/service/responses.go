package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/caiomachado-24/ReservAI/internal/db"
	"github.com/caiomachado-24/ReservAI/internal/entities"
	"github.com/caiomachado-24/ReservAI/internal/utils"
)

// Reply templates (Brazilian Portuguese). This layer only formats; all flow
// decisions live in the conversation service.

func formatSlot(start time.Time, loc *time.Location) string {
	t := start.In(loc)
	return fmt.Sprintf("%s, %s às %s",
		utils.WeekdayDisplay(utils.WeekdayLabel(t)),
		t.Format("02/01"),
		t.Format("15:04"),
	)
}

func formatSlotList(slots []db.TimeSlot, loc *time.Location) string {
	var b strings.Builder
	for i, s := range slots {
		fmt.Fprintf(&b, "%d) %s\n", i+1, formatSlot(s.StartTime, loc))
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatServiceNames(names []string) string {
	return strings.Join(names, ", ")
}

func replyGreeting(services []db.Service) string {
	var names []string
	for _, s := range services {
		names = append(names, s.Name)
	}
	return fmt.Sprintf(
		"Olá! Bem-vindo à barbearia. 💈\nNossos serviços: %s.\nQual serviço você gostaria de agendar?",
		strings.Join(names, ", "),
	)
}

func replyServiceList(services []db.Service) string {
	var names []string
	for _, s := range services {
		names = append(names, s.Name)
	}
	return fmt.Sprintf("Não reconheci esse serviço. Os serviços disponíveis são: %s.", strings.Join(names, ", "))
}

func replySlotOptions(serviceNames []string, slots []db.TimeSlot, loc *time.Location) string {
	return fmt.Sprintf(
		"Perfeito, %s anotado! ✂️\nEstes são os próximos horários disponíveis:\n%s\nResponda com o número da opção ou um dia e horário (ex: \"sexta 10:00\").",
		formatServiceNames(serviceNames),
		formatSlotList(slots, loc),
	)
}

func replyNoSlots() string {
	return "Poxa, estamos sem horários disponíveis no momento. Tente novamente mais tarde, por favor."
}

func replyUnparsableDateTime() string {
	return "Não consegui entender o dia e horário. Pode repetir? Ex: \"sexta 10:00\" ou o número de uma das opções."
}

func replyNearestSuggestion(start time.Time, loc *time.Location) string {
	return fmt.Sprintf(
		"Não tenho esse horário exato, mas o mais próximo disponível é %s. Posso reservar esse? (sim/não)",
		formatSlot(start, loc),
	)
}

func replyAskName(start time.Time, loc *time.Location, suggestedName string) string {
	if suggestedName != "" {
		return fmt.Sprintf(
			"Ótimo! %s reservado provisoriamente.\nPosso registrar o agendamento em nome de %s? (responda sim ou me diga outro nome)",
			formatSlot(start, loc), suggestedName,
		)
	}
	return fmt.Sprintf("Ótimo! %s reservado provisoriamente.\nEm nome de quem fica o agendamento?", formatSlot(start, loc))
}

func replyBookingSummary(sess *entities.Session, loc *time.Location) string {
	staff := ""
	if sess.StaffName != "" {
		staff = fmt.Sprintf("\nProfissional: %s", sess.StaffName)
	}
	return fmt.Sprintf(
		"Confirmando seu agendamento:\nServiço: %s\nHorário: %s\nNome: %s%s\nPosso confirmar? (sim/não)",
		formatServiceNames(sess.ServiceNames),
		formatSlot(sess.SlotStart, loc),
		sess.ClientName,
		staff,
	)
}

func replyBooked(sess *entities.Session, loc *time.Location) string {
	return fmt.Sprintf(
		"Agendamento confirmado! ✅\n%s — %s.\nAté lá, %s!",
		formatServiceNames(sess.ServiceNames),
		formatSlot(sess.SlotStart, loc),
		sess.ClientName,
	)
}

func replySlotConflict(slots []db.TimeSlot, loc *time.Location) string {
	if len(slots) == 0 {
		return "Esse horário acabou de ser reservado por outra pessoa e não há outros horários livres no momento. 😕"
	}
	return fmt.Sprintf(
		"Esse horário acabou de ser reservado por outra pessoa. 😕\nEstes ainda estão livres:\n%s\nQual você prefere?",
		formatSlotList(slots, loc),
	)
}

func replyAppointmentList(appts []entities.AppointmentSummary, action string, loc *time.Location) string {
	verb := "cancelar"
	if action == entities.ActionReschedule {
		verb = "remarcar"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Você tem estes agendamentos ativos:\n")
	for i, a := range appts {
		fmt.Fprintf(&b, "%d) %s — %s\n", i+1, formatServiceNames(a.ServiceNames), formatSlot(a.SlotStart, loc))
	}
	fmt.Fprintf(&b, "Qual deles você quer %s? Responda com o número.", verb)
	return b.String()
}

func replyConfirmCancel(start time.Time, loc *time.Location) string {
	return fmt.Sprintf("Você quer cancelar o agendamento de %s? (sim/não)", formatSlot(start, loc))
}

func replyCancelled() string {
	return "Agendamento cancelado. O horário foi liberado. Esperamos te ver em breve! 👋"
}

func replyConfirmRescheduleStart(start time.Time, loc *time.Location) string {
	return fmt.Sprintf("Você quer remarcar o agendamento de %s? (sim/não)", formatSlot(start, loc))
}

func replyRescheduleSlotOptions(slots []db.TimeSlot, loc *time.Location) string {
	return fmt.Sprintf(
		"Certo! Estes são os horários disponíveis:\n%s\nResponda com o número da opção ou um dia e horário (ex: \"sexta 10:00\").",
		formatSlotList(slots, loc),
	)
}

func replyConfirmReschedule(oldStart, newStart time.Time, loc *time.Location) string {
	return fmt.Sprintf(
		"Remarcar de %s para %s, confirma? (sim/não)",
		formatSlot(oldStart, loc),
		formatSlot(newStart, loc),
	)
}

func replyRescheduled(newStart time.Time, loc *time.Location) string {
	return fmt.Sprintf("Prontinho! Agendamento remarcado para %s. ✅", formatSlot(newStart, loc))
}

func replyNoAppointments() string {
	return "Não encontrei nenhum agendamento ativo no seu número. Quer marcar um horário?"
}

func replyAbandoned() string {
	return "Tudo bem, deixamos para outra hora. Quando quiser é só mandar mensagem! 👋"
}

func replyRestart() string {
	return "Desculpe, perdi o contexto da nossa conversa. Vamos recomeçar: qual serviço você gostaria de agendar?"
}

func replyNotFoundRestart() string {
	return "Desculpe, não encontrei mais esse agendamento. Vamos recomeçar: qual serviço você gostaria de agendar?"
}

func replyTransient() string {
	return "Estamos com uma instabilidade no momento. 😓 Tente novamente em alguns instantes, por favor."
}

func replyAskAnotherTime() string {
	return "Sem problemas! Me diga outro dia e horário, ou escolha o número de uma das opções que te mandei."
}

func replyUnknownStaff(staff []db.Staff) string {
	var names []string
	for _, st := range staff {
		names = append(names, st.Name)
	}
	if len(names) == 0 {
		return "Não encontrei esse profissional. Vou seguir sem preferência de profissional, tudo bem?"
	}
	return fmt.Sprintf("Não encontrei esse profissional. Nossa equipe: %s. Com quem você prefere?", strings.Join(names, ", "))
}

func replyInvalidSelection(max int) string {
	return fmt.Sprintf("Não entendi a escolha. Responda com um número de 1 a %d, por favor.", max)
}

func replyDefault(fallback string) string {
	if fallback != "" {
		return fallback
	}
	return "Desculpe, não entendi. Você pode agendar, remarcar ou cancelar um horário. Como posso ajudar?"
}
