package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/lib/pq"

	"github.com/caiomachado-24/ReservAI/internal/db"
	"github.com/caiomachado-24/ReservAI/internal/entities"
)

// BookingRepository is the transaction manager for slot reservations. Every
// operation runs inside a single transaction and re-checks slot availability
// under a row lock, so two racing callers resolve into exactly one success
// and one ErrSlotTaken.
type BookingRepository struct {
	DB *sql.DB
}

func NewBookingRepository(database *sql.DB) *BookingRepository {
	return &BookingRepository{DB: database}
}

// Reserve marks the slot unavailable and inserts the appointment, or reports
// ErrSlotTaken if another conversation claimed the slot since it was read.
func (r *BookingRepository) Reserve(clientID int, serviceIDs []int, slotID int, staffID *int) (int, error) {
	tx, err := r.DB.Begin()
	if err != nil {
		return 0, fmt.Errorf("error beginning reserve transaction: %w", err)
	}
	defer tx.Rollback()

	var available bool
	err = tx.QueryRow(`SELECT available FROM slots WHERE id = $1 FOR UPDATE`, slotID).Scan(&available)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrSlotNotFound
		}
		return 0, fmt.Errorf("error locking slot %d: %w", slotID, err)
	}
	if !available {
		return 0, ErrSlotTaken
	}

	if _, err = tx.Exec(`UPDATE slots SET available = FALSE WHERE id = $1`, slotID); err != nil {
		return 0, fmt.Errorf("error occupying slot %d: %w", slotID, err)
	}

	var appointmentID int
	err = tx.QueryRow(`
		INSERT INTO appointments (client_id, service_ids, slot_id, staff_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 'active', NOW(), NOW())
		RETURNING id`,
		clientID, pq.Array(serviceIDs), slotID, staffID,
	).Scan(&appointmentID)
	if err != nil {
		return 0, fmt.Errorf("error inserting appointment: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("error committing reserve: %w", err)
	}
	return appointmentID, nil
}

// Cancel flips an active appointment to cancelled and releases its slot.
// Missing or already-cancelled appointments report ErrAppointmentNotFound and
// leave state untouched.
func (r *BookingRepository) Cancel(appointmentID int) error {
	tx, err := r.DB.Begin()
	if err != nil {
		return fmt.Errorf("error beginning cancel transaction: %w", err)
	}
	defer tx.Rollback()

	var slotID int
	var status string
	err = tx.QueryRow(
		`SELECT slot_id, status FROM appointments WHERE id = $1 FOR UPDATE`, appointmentID,
	).Scan(&slotID, &status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrAppointmentNotFound
		}
		return fmt.Errorf("error locking appointment %d: %w", appointmentID, err)
	}
	if status != db.AppointmentStatusActive {
		return ErrAppointmentNotFound
	}

	if _, err = tx.Exec(
		`UPDATE appointments SET status = 'cancelled', updated_at = NOW() WHERE id = $1`, appointmentID,
	); err != nil {
		return fmt.Errorf("error cancelling appointment %d: %w", appointmentID, err)
	}
	if _, err = tx.Exec(`UPDATE slots SET available = TRUE WHERE id = $1`, slotID); err != nil {
		return fmt.Errorf("error releasing slot %d: %w", slotID, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("error committing cancel: %w", err)
	}
	return nil
}

// Reschedule moves an active appointment to a new slot, releasing the old one
// and occupying the new one in the same transaction.
func (r *BookingRepository) Reschedule(appointmentID, newSlotID int) error {
	tx, err := r.DB.Begin()
	if err != nil {
		return fmt.Errorf("error beginning reschedule transaction: %w", err)
	}
	defer tx.Rollback()

	var oldSlotID int
	var status string
	err = tx.QueryRow(
		`SELECT slot_id, status FROM appointments WHERE id = $1 FOR UPDATE`, appointmentID,
	).Scan(&oldSlotID, &status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrAppointmentNotFound
		}
		return fmt.Errorf("error locking appointment %d: %w", appointmentID, err)
	}
	if status != db.AppointmentStatusActive {
		return ErrAppointmentNotFound
	}

	var available bool
	err = tx.QueryRow(`SELECT available FROM slots WHERE id = $1 FOR UPDATE`, newSlotID).Scan(&available)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrSlotNotFound
		}
		return fmt.Errorf("error locking slot %d: %w", newSlotID, err)
	}
	if !available {
		return ErrSlotTaken
	}

	if _, err = tx.Exec(`UPDATE slots SET available = TRUE WHERE id = $1`, oldSlotID); err != nil {
		return fmt.Errorf("error releasing slot %d: %w", oldSlotID, err)
	}
	if _, err = tx.Exec(`UPDATE slots SET available = FALSE WHERE id = $1`, newSlotID); err != nil {
		return fmt.Errorf("error occupying slot %d: %w", newSlotID, err)
	}
	if _, err = tx.Exec(
		`UPDATE appointments SET slot_id = $1, updated_at = NOW() WHERE id = $2`, newSlotID, appointmentID,
	); err != nil {
		return fmt.Errorf("error updating appointment %d: %w", appointmentID, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("error committing reschedule: %w", err)
	}
	return nil
}

// ListActiveByClient returns the client's upcoming active appointments,
// earliest first.
func (r *BookingRepository) ListActiveByClient(clientID int) ([]entities.AppointmentSummary, error) {
	query := `
		SELECT a.id, a.slot_id, sl.start_time, COALESCE(st.name, ''),
		       ARRAY(SELECT s.name FROM services s WHERE s.id = ANY(a.service_ids) ORDER BY s.id)
		FROM appointments a
		JOIN slots sl ON sl.id = a.slot_id
		LEFT JOIN staff st ON st.id = a.staff_id
		WHERE a.client_id = $1 AND a.status = 'active' AND sl.start_time > NOW()
		ORDER BY sl.start_time`
	rows, err := r.DB.Query(query, clientID)
	if err != nil {
		return nil, fmt.Errorf("error querying client appointments: %w", err)
	}
	defer rows.Close()

	var out []entities.AppointmentSummary
	for rows.Next() {
		var a entities.AppointmentSummary
		if err := rows.Scan(&a.ID, &a.SlotID, &a.SlotStart, &a.StaffName, pq.Array(&a.ServiceNames)); err != nil {
			return nil, fmt.Errorf("error scanning appointment summary: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListAppointments is the admin listing with optional date and status filters.
func (r *BookingRepository) ListAppointments(date, status string) ([]db.Appointment, error) {
	query := `
		SELECT a.id, a.client_id, a.service_ids, a.slot_id, a.staff_id, a.status,
		       a.reminder_sent, a.created_at, a.updated_at
		FROM appointments a
		JOIN slots sl ON sl.id = a.slot_id
		WHERE 1=1`
	args := []interface{}{}
	idx := 1

	if date != "" {
		query += fmt.Sprintf(" AND DATE(sl.start_time) = $%d", idx)
		args = append(args, date)
		idx++
	}
	if status != "" {
		query += fmt.Sprintf(" AND a.status = $%d", idx)
		args = append(args, status)
		idx++
	}
	query += " ORDER BY sl.start_time DESC"

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing appointments: %w", err)
	}
	defer rows.Close()

	var appointments []db.Appointment
	for rows.Next() {
		var a db.Appointment
		var serviceIDs pq.Int64Array
		err := rows.Scan(&a.ID, &a.ClientID, &serviceIDs, &a.SlotID, &a.StaffID,
			&a.Status, &a.ReminderSent, &a.CreatedAt, &a.UpdatedAt)
		if err != nil {
			log.Printf("Error scanning appointment row: %v", err)
			continue
		}
		for _, id := range serviceIDs {
			a.ServiceIDs = append(a.ServiceIDs, int(id))
		}
		appointments = append(appointments, a)
	}
	return appointments, rows.Err()
}
