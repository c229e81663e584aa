package repository

import (
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/caiomachado-24/ReservAI/internal/entities"
)

type JobRepository struct {
	DB *sql.DB
}

type ReminderCandidate struct {
	AppointmentID int
	ContactKey    string
	ClientName    string
	Summary       entities.AppointmentSummary
}

func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{DB: db}
}

// GetUpcomingReminderCandidates returns active appointments starting within
// the next 24 hours that have not been reminded yet.
func (r *JobRepository) GetUpcomingReminderCandidates() ([]ReminderCandidate, error) {
	query := `
		SELECT a.id, c.contact_key, c.name, a.slot_id, sl.start_time, COALESCE(st.name, ''),
		       ARRAY(SELECT s.name FROM services s WHERE s.id = ANY(a.service_ids) ORDER BY s.id)
		FROM appointments a
		JOIN clients c ON c.id = a.client_id
		JOIN slots sl ON sl.id = a.slot_id
		LEFT JOIN staff st ON st.id = a.staff_id
		WHERE a.status = 'active'
		  AND a.reminder_sent = FALSE
		  AND sl.start_time > NOW()
		  AND sl.start_time <= NOW() + interval '24 hours'
		ORDER BY sl.start_time`
	rows, err := r.DB.Query(query)
	if err != nil {
		return nil, fmt.Errorf("error querying reminder candidates: %w", err)
	}
	defer rows.Close()

	var candidates []ReminderCandidate
	for rows.Next() {
		var c ReminderCandidate
		err := rows.Scan(&c.AppointmentID, &c.ContactKey, &c.ClientName,
			&c.Summary.SlotID, &c.Summary.SlotStart, &c.Summary.StaffName,
			pq.Array(&c.Summary.ServiceNames))
		if err != nil {
			return nil, fmt.Errorf("error scanning reminder candidate: %w", err)
		}
		c.Summary.ID = c.AppointmentID
		candidates = append(candidates, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error after iterating reminder rows: %w", err)
	}
	return candidates, nil
}

// MarkRemindersSent flags a batch of appointments so each reminder fires once.
func (r *JobRepository) MarkRemindersSent(ids []int) error {
	if len(ids) == 0 {
		return nil
	}
	query := `UPDATE appointments SET reminder_sent = TRUE, updated_at = NOW() WHERE id = ANY($1)`
	_, err := r.DB.Exec(query, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("error marking reminders sent: %w", err)
	}
	return nil
}
