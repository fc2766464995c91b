package heuristics

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresStore implements Store backed by the spam_heuristics table
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed heuristic store
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const heuristicColumns = `id, flag, description, expression, points, active, created_at, updated_at`

// Add inserts a new heuristic into the database
func (s *PostgresStore) Add(h *Heuristic) error {
	var exists bool
	err := s.db.QueryRow(`
		SELECT EXISTS(SELECT 1 FROM spam_heuristics WHERE id = $1)
	`, h.ID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check heuristic existence: %w", err)
	}
	if exists {
		return fmt.Errorf("heuristic %s: %w", h.ID, ErrAlreadyExists)
	}

	now := time.Now()
	h.CreatedAt = now
	h.UpdatedAt = now

	_, err = s.db.Exec(`
		INSERT INTO spam_heuristics (`+heuristicColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, h.ID, h.Flag, h.Description, h.Expression, h.Points, h.Active, h.CreatedAt, h.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert heuristic: %w", err)
	}

	return nil
}

// Get retrieves a heuristic by ID
func (s *PostgresStore) Get(id string) (*Heuristic, error) {
	row := s.db.QueryRow(`
		SELECT `+heuristicColumns+`
		FROM spam_heuristics
		WHERE id = $1
	`, id)

	h, err := scanHeuristic(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("heuristic %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get heuristic: %w", err)
	}
	return h, nil
}

// ListActive returns all active heuristics
func (s *PostgresStore) ListActive() ([]*Heuristic, error) {
	return s.query(`
		SELECT ` + heuristicColumns + `
		FROM spam_heuristics
		WHERE active = true
		ORDER BY id ASC
	`)
}

// List returns every heuristic
func (s *PostgresStore) List() ([]*Heuristic, error) {
	return s.query(`
		SELECT ` + heuristicColumns + `
		FROM spam_heuristics
		ORDER BY id ASC
	`)
}

func (s *PostgresStore) query(q string) ([]*Heuristic, error) {
	rows, err := s.db.Query(q)
	if err != nil {
		return nil, fmt.Errorf("failed to list heuristics: %w", err)
	}
	defer rows.Close()

	var list []*Heuristic
	for rows.Next() {
		h, err := scanHeuristic(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan heuristic: %w", err)
		}
		list = append(list, h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating heuristics: %w", err)
	}

	return list, nil
}

// Update modifies an existing heuristic
func (s *PostgresStore) Update(h *Heuristic) error {
	existing, err := s.Get(h.ID)
	if err != nil {
		return err
	}

	h.CreatedAt = existing.CreatedAt
	h.UpdatedAt = time.Now()

	result, err := s.db.Exec(`
		UPDATE spam_heuristics
		SET flag = $1, description = $2, expression = $3, points = $4, active = $5, updated_at = $6
		WHERE id = $7
	`, h.Flag, h.Description, h.Expression, h.Points, h.Active, h.UpdatedAt, h.ID)
	if err != nil {
		return fmt.Errorf("failed to update heuristic: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("heuristic %s: %w", h.ID, ErrNotFound)
	}

	return nil
}

// Delete removes a heuristic from the database
func (s *PostgresStore) Delete(id string) error {
	result, err := s.db.Exec(`DELETE FROM spam_heuristics WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete heuristic: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("heuristic %s: %w", id, ErrNotFound)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHeuristic(row rowScanner) (*Heuristic, error) {
	var h Heuristic
	if err := row.Scan(&h.ID, &h.Flag, &h.Description, &h.Expression, &h.Points,
		&h.Active, &h.CreatedAt, &h.UpdatedAt); err != nil {
		return nil, err
	}
	return &h, nil
}
