package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/caiomachado-24/ReservAI/internal/db"
)

type SlotRepository struct {
	DB *sql.DB
}

func NewSlotRepository(database *sql.DB) *SlotRepository {
	return &SlotRepository{DB: database}
}

// ListAvailable returns future available slots ordered by start time. A
// limit of zero or less returns the full list.
func (r *SlotRepository) ListAvailable(limit int) ([]db.TimeSlot, error) {
	query := `
		SELECT id, start_time, weekday_label, staff_id, available
		FROM slots
		WHERE available = TRUE AND start_time > NOW()
		ORDER BY start_time`
	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = r.DB.Query(query+` LIMIT $1`, limit)
	} else {
		rows, err = r.DB.Query(query)
	}
	if err != nil {
		return nil, fmt.Errorf("error querying available slots: %w", err)
	}
	defer rows.Close()

	var slots []db.TimeSlot
	for rows.Next() {
		var s db.TimeSlot
		if err := rows.Scan(&s.ID, &s.StartTime, &s.WeekdayLabel, &s.StaffID, &s.Available); err != nil {
			return nil, fmt.Errorf("error scanning slot: %w", err)
		}
		slots = append(slots, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error after iterating slot rows: %w", err)
	}
	return slots, nil
}

func (r *SlotRepository) GetByID(id int) (*db.TimeSlot, error) {
	var s db.TimeSlot
	query := `SELECT id, start_time, weekday_label, staff_id, available FROM slots WHERE id = $1`
	err := r.DB.QueryRow(query, id).Scan(&s.ID, &s.StartTime, &s.WeekdayLabel, &s.StaffID, &s.Available)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, fmt.Errorf("error querying slot %d: %w", id, err)
	}
	return &s, nil
}

func (r *SlotRepository) Create(startTime time.Time, weekdayLabel string, staffID *int) (*db.TimeSlot, error) {
	slot := &db.TimeSlot{StartTime: startTime, WeekdayLabel: weekdayLabel, StaffID: staffID, Available: true}
	query := `
		INSERT INTO slots (start_time, weekday_label, staff_id, available)
		VALUES ($1, $2, $3, TRUE)
		RETURNING id`
	if err := r.DB.QueryRow(query, startTime, weekdayLabel, staffID).Scan(&slot.ID); err != nil {
		return nil, fmt.Errorf("error inserting slot: %w", err)
	}
	return slot, nil
}

// Delete removes a slot. Slots referenced by an active appointment are
// protected so the availability invariant cannot be broken from the admin API.
func (r *SlotRepository) Delete(id int) error {
	var active int
	err := r.DB.QueryRow(
		`SELECT COUNT(*) FROM appointments WHERE slot_id = $1 AND status = 'active'`, id,
	).Scan(&active)
	if err != nil {
		return fmt.Errorf("error checking slot usage: %w", err)
	}
	if active > 0 {
		return ErrSlotTaken
	}
	result, err := r.DB.Exec(`DELETE FROM slots WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deleting slot: %w", err)
	}
	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return ErrSlotNotFound
	}
	return nil
}

func (r *SlotRepository) List(onlyAvailable bool) ([]db.TimeSlot, error) {
	query := `SELECT id, start_time, weekday_label, staff_id, available FROM slots`
	if onlyAvailable {
		query += ` WHERE available = TRUE`
	}
	query += ` ORDER BY start_time`

	rows, err := r.DB.Query(query)
	if err != nil {
		return nil, fmt.Errorf("error listing slots: %w", err)
	}
	defer rows.Close()

	var slots []db.TimeSlot
	for rows.Next() {
		var s db.TimeSlot
		if err := rows.Scan(&s.ID, &s.StartTime, &s.WeekdayLabel, &s.StaffID, &s.Available); err != nil {
			return nil, fmt.Errorf("error scanning slot: %w", err)
		}
		slots = append(slots, s)
	}
	return slots, rows.Err()
}
