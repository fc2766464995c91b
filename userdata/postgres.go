package userdata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// uniqueViolation is the PostgreSQL error code for a unique constraint failure
const uniqueViolation = "23505"

// PostgresStore implements ReadWriter over the tables in migrations/
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed user data store
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) GetAccount(ctx context.Context, userID string) (*Account, error) {
	var a Account
	var lastSignIn sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, provider, created_at, last_sign_in_at
		FROM accounts
		WHERE id = $1
	`, userID).Scan(&a.ID, &a.Email, &a.Provider, &a.CreatedAt, &lastSignIn)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("account %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if lastSignIn.Valid {
		a.LastSignInAt = lastSignIn.Time
	}
	return &a, nil
}

func (s *PostgresStore) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	var p Profile
	var analyzedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, full_name, phone, spam_score, spam_flags, spam_analyzed_at
		FROM profiles
		WHERE user_id = $1
	`, userID).Scan(&p.UserID, &p.FullName, &p.Phone, &p.SpamScore, pq.Array(&p.SpamFlags), &analyzedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("profile %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	if analyzedAt.Valid {
		p.SpamAnalyzedAt = &analyzedAt.Time
	}
	return &p, nil
}

func (s *PostgresStore) ListCases(ctx context.Context, userID string) ([]Case, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, company_name, description, created_at
		FROM cases
		WHERE user_id = $1
		ORDER BY created_at ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cases: %w", err)
	}
	defer rows.Close()

	cases := []Case{}
	for rows.Next() {
		var c Case
		if err := rows.Scan(&c.ID, &c.UserID, &c.CompanyName, &c.Description, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan case: %w", err)
		}
		cases = append(cases, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cases: %w", err)
	}
	return cases, nil
}

func (s *PostgresStore) ListEvidence(ctx context.Context, userID string) ([]Evidence, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, case_id, user_id, file_name, created_at
		FROM evidence
		WHERE user_id = $1
		ORDER BY created_at ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list evidence: %w", err)
	}
	defer rows.Close()

	list := []Evidence{}
	for rows.Next() {
		var e Evidence
		if err := rows.Scan(&e.ID, &e.CaseID, &e.UserID, &e.FileName, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan evidence: %w", err)
		}
		list = append(list, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating evidence: %w", err)
	}
	return list, nil
}

func (s *PostgresStore) UpdateSpamScore(ctx context.Context, userID string, score int, flags []string, at time.Time) error {
	if flags == nil {
		flags = []string{}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, spam_score, spam_flags, spam_analyzed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET spam_score = EXCLUDED.spam_score,
		    spam_flags = EXCLUDED.spam_flags,
		    spam_analyzed_at = EXCLUDED.spam_analyzed_at
	`, userID, score, pq.Array(flags), at)
	if err != nil {
		return fmt.Errorf("failed to update spam score: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListFlaggedProfiles(ctx context.Context, minScore int) ([]Flagged, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.user_id, a.email, p.spam_score, p.spam_flags, p.spam_analyzed_at
		FROM profiles p
		JOIN accounts a ON a.id = p.user_id
		WHERE p.spam_analyzed_at IS NOT NULL AND p.spam_score >= $1
		ORDER BY p.spam_score DESC, p.user_id ASC
	`, minScore)
	if err != nil {
		return nil, fmt.Errorf("failed to list flagged profiles: %w", err)
	}
	defer rows.Close()

	out := []Flagged{}
	for rows.Next() {
		var f Flagged
		var analyzedAt sql.NullTime
		if err := rows.Scan(&f.UserID, &f.Email, &f.SpamScore, pq.Array(&f.SpamFlags), &analyzedAt); err != nil {
			return nil, fmt.Errorf("failed to scan flagged profile: %w", err)
		}
		if analyzedAt.Valid {
			f.SpamAnalyzedAt = &analyzedAt.Time
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating flagged profiles: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) PutAccount(ctx context.Context, a Account) error {
	var lastSignIn sql.NullTime
	if !a.LastSignInAt.IsZero() {
		lastSignIn = sql.NullTime{Time: a.LastSignInAt, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, email, provider, created_at, last_sign_in_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET email = EXCLUDED.email, provider = EXCLUDED.provider,
		    created_at = EXCLUDED.created_at, last_sign_in_at = EXCLUDED.last_sign_in_at
	`, a.ID, a.Email, a.Provider, a.CreatedAt, lastSignIn)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("account %s: %w", a.ID, ErrDuplicateEmail)
	}
	if err != nil {
		return fmt.Errorf("failed to put account: %w", err)
	}
	return nil
}

func (s *PostgresStore) PutProfile(ctx context.Context, p Profile) error {
	flags := p.SpamFlags
	if flags == nil {
		flags = []string{}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, full_name, phone, spam_score, spam_flags, spam_analyzed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE
		SET full_name = EXCLUDED.full_name, phone = EXCLUDED.phone
	`, p.UserID, p.FullName, p.Phone, p.SpamScore, pq.Array(flags), p.SpamAnalyzedAt)
	if err != nil {
		return fmt.Errorf("failed to put profile: %w", err)
	}
	return nil
}

func (s *PostgresStore) PutCase(ctx context.Context, c Case) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cases (id, user_id, company_name, description, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, c.ID, c.UserID, c.CompanyName, c.Description, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to put case: %w", err)
	}
	return nil
}

func (s *PostgresStore) PutEvidence(ctx context.Context, e Evidence) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO evidence (id, case_id, user_id, file_name, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, e.ID, e.CaseID, e.UserID, e.FileName, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to put evidence: %w", err)
	}
	return nil
}
