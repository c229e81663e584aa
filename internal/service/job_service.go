package service

import (
	"fmt"
	"log"
	"time"

	"github.com/caiomachado-24/ReservAI/internal/db"
	"github.com/caiomachado-24/ReservAI/internal/repository"
)

// JobService runs the background maintenance the cron worker schedules:
// appointment reminders and idle-session eviction.
type JobService struct {
	Repo     *repository.JobRepository
	Sessions SessionStore
	Sender   ConfirmationSender
	Location *time.Location
}

func NewJobService(repo *repository.JobRepository, sessions SessionStore, sender ConfirmationSender, loc *time.Location) *JobService {
	return &JobService{Repo: repo, Sessions: sessions, Sender: sender, Location: loc}
}

// SendUpcomingReminders messages clients whose active appointment starts in
// the next 24 hours. Each appointment is reminded once.
func (s *JobService) SendUpcomingReminders() error {
	candidates, err := s.Repo.GetUpcomingReminderCandidates()
	if err != nil {
		return fmt.Errorf("cron job: failed to get reminder candidates: %w", err)
	}
	if len(candidates) == 0 {
		return nil
	}

	var sent []int
	for _, c := range candidates {
		text := fmt.Sprintf(
			"Oi, %s! Lembrete: você tem %s amanhã, %s. Até lá! 💈",
			c.ClientName,
			formatServiceNames(c.Summary.ServiceNames),
			formatSlot(c.Summary.SlotStart, s.Location),
		)
		s.Sender.SendConfirmation(db.Client{ContactKey: c.ContactKey, Name: c.ClientName}, text)
		sent = append(sent, c.AppointmentID)
	}

	if err := s.Repo.MarkRemindersSent(sent); err != nil {
		return fmt.Errorf("cron job: failed to mark reminders sent: %w", err)
	}
	log.Printf("Cron Job: sent %d appointment reminders", len(sent))
	return nil
}

// EvictIdleSessions drops conversations abandoned mid-flow.
func (s *JobService) EvictIdleSessions(ttl time.Duration) {
	if evicted := s.Sessions.EvictIdle(ttl); evicted > 0 {
		log.Printf("Cron Job: evicted %d idle sessions", evicted)
	}
}
