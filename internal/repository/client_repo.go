package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/caiomachado-24/ReservAI/internal/db"
)

type ClientRepository struct {
	DB *sql.DB
}

func NewClientRepository(database *sql.DB) *ClientRepository {
	return &ClientRepository{DB: database}
}

// GetOrCreate looks a client up by contact key, creating the record on first
// contact. An existing client with an empty stored name picks up the given one.
func (r *ClientRepository) GetOrCreate(contactKey, name string) (*db.Client, error) {
	var c db.Client
	var email sql.NullString
	err := r.DB.QueryRow(
		`SELECT id, contact_key, name, email FROM clients WHERE contact_key = $1`, contactKey,
	).Scan(&c.ID, &c.ContactKey, &c.Name, &email)
	if err == nil {
		c.Email = email.String
		if c.Name == "" && name != "" {
			c.Name = name
			if _, err := r.DB.Exec(`UPDATE clients SET name = $1 WHERE id = $2`, name, c.ID); err != nil {
				return nil, fmt.Errorf("error updating client name: %w", err)
			}
		}
		return &c, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("error querying client: %w", err)
	}

	c = db.Client{ContactKey: contactKey, Name: name}
	err = r.DB.QueryRow(
		`INSERT INTO clients (contact_key, name) VALUES ($1, $2) RETURNING id`, contactKey, name,
	).Scan(&c.ID)
	if err != nil {
		return nil, fmt.Errorf("error creating client: %w", err)
	}
	return &c, nil
}

func (r *ClientRepository) UpdateName(clientID int, name string) error {
	_, err := r.DB.Exec(`UPDATE clients SET name = $1 WHERE id = $2`, name, clientID)
	if err != nil {
		return fmt.Errorf("error updating client name: %w", err)
	}
	return nil
}
