package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/caiomachado-24/ReservAI/internal/db"
)

// CatalogRepository resolves free-text service and staff names. Lookups run
// against normalized aliases, so callers must normalize first.
type CatalogRepository struct {
	DB *sql.DB
}

func NewCatalogRepository(database *sql.DB) *CatalogRepository {
	return &CatalogRepository{DB: database}
}

// FindServiceByAlias resolves a normalized alias ("corte", "barba") to its
// catalog entry. Returns nil without error when the alias is unknown.
func (r *CatalogRepository) FindServiceByAlias(alias string) (*db.Service, error) {
	var s db.Service
	query := `
		SELECT s.id, s.name
		FROM services s
		JOIN service_aliases sa ON sa.service_id = s.id
		WHERE sa.alias = $1`
	err := r.DB.QueryRow(query, alias).Scan(&s.ID, &s.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error querying service alias %q: %w", alias, err)
	}
	return &s, nil
}

func (r *CatalogRepository) ListServices() ([]db.Service, error) {
	rows, err := r.DB.Query(`SELECT id, name FROM services ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("error listing services: %w", err)
	}
	defer rows.Close()

	var services []db.Service
	for rows.Next() {
		var s db.Service
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, fmt.Errorf("error scanning service: %w", err)
		}
		services = append(services, s)
	}
	return services, rows.Err()
}

// CreateService inserts a service and its normalized aliases.
func (r *CatalogRepository) CreateService(name string, aliases []string) (*db.Service, error) {
	tx, err := r.DB.Begin()
	if err != nil {
		return nil, fmt.Errorf("error beginning service insert: %w", err)
	}
	defer tx.Rollback()

	s := &db.Service{Name: name}
	if err := tx.QueryRow(`INSERT INTO services (name) VALUES ($1) RETURNING id`, name).Scan(&s.ID); err != nil {
		return nil, fmt.Errorf("error inserting service: %w", err)
	}
	for _, alias := range aliases {
		if _, err := tx.Exec(
			`INSERT INTO service_aliases (alias, service_id) VALUES ($1, $2)`, alias, s.ID,
		); err != nil {
			return nil, fmt.Errorf("error inserting alias %q: %w", alias, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing service insert: %w", err)
	}
	return s, nil
}

// FindStaffByName matches a staff member by normalized name. The stored name
// is lower-cased and accent-stripped in SQL to mirror utils.Normalize, so
// "joao" matches "João". Returns nil without error when no one matches.
func (r *CatalogRepository) FindStaffByName(name string) (*db.Staff, error) {
	var st db.Staff
	query := `
		SELECT id, name FROM staff
		WHERE TRANSLATE(LOWER(name), 'áàâãéêíóôõúç', 'aaaaeeiooouc') = $1`
	err := r.DB.QueryRow(query, name).Scan(&st.ID, &st.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error querying staff %q: %w", name, err)
	}
	return &st, nil
}

func (r *CatalogRepository) ListStaff() ([]db.Staff, error) {
	rows, err := r.DB.Query(`SELECT id, name FROM staff ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("error listing staff: %w", err)
	}
	defer rows.Close()

	var staff []db.Staff
	for rows.Next() {
		var st db.Staff
		if err := rows.Scan(&st.ID, &st.Name); err != nil {
			return nil, fmt.Errorf("error scanning staff: %w", err)
		}
		staff = append(staff, st)
	}
	return staff, rows.Err()
}
