package userdata

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements ReadWriter on a single SQLite file. It is meant for
// local development and single-node deployments.
type SQLiteStore struct {
	db *sqlx.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS accounts (
	id              TEXT PRIMARY KEY,
	email           TEXT NOT NULL UNIQUE,
	provider        TEXT NOT NULL DEFAULT 'email',
	created_at      TEXT NOT NULL,
	last_sign_in_at TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS profiles (
	user_id          TEXT PRIMARY KEY,
	full_name        TEXT NOT NULL DEFAULT '',
	phone            TEXT NOT NULL DEFAULT '',
	spam_score       INTEGER NOT NULL DEFAULT 0,
	spam_flags       TEXT NOT NULL DEFAULT '[]',
	spam_analyzed_at TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS cases (
	id           TEXT PRIMARY KEY,
	user_id      TEXT NOT NULL,
	company_name TEXT NOT NULL DEFAULT '',
	description  TEXT NOT NULL DEFAULT '',
	created_at   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cases_user_id ON cases(user_id);

CREATE TABLE IF NOT EXISTS evidence (
	id         TEXT PRIMARY KEY,
	case_id    TEXT NOT NULL,
	user_id    TEXT NOT NULL,
	file_name  TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_evidence_user_id ON evidence(user_id);
`

// NewSQLiteStore opens (or creates) the database at dbPath and applies the schema
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// row types keep timestamps and flag lists as TEXT

type accountRow struct {
	ID           string `db:"id"`
	Email        string `db:"email"`
	Provider     string `db:"provider"`
	CreatedAt    string `db:"created_at"`
	LastSignInAt string `db:"last_sign_in_at"`
}

type profileRow struct {
	UserID         string `db:"user_id"`
	Email          string `db:"email"`
	FullName       string `db:"full_name"`
	Phone          string `db:"phone"`
	SpamScore      int    `db:"spam_score"`
	SpamFlags      string `db:"spam_flags"`
	SpamAnalyzedAt string `db:"spam_analyzed_at"`
}

type caseRow struct {
	ID          string `db:"id"`
	UserID      string `db:"user_id"`
	CompanyName string `db:"company_name"`
	Description string `db:"description"`
	CreatedAt   string `db:"created_at"`
}

type evidenceRow struct {
	ID        string `db:"id"`
	CaseID    string `db:"case_id"`
	UserID    string `db:"user_id"`
	FileName  string `db:"file_name"`
	CreatedAt string `db:"created_at"`
}

func (s *SQLiteStore) GetAccount(ctx context.Context, userID string) (*Account, error) {
	var r accountRow
	err := s.db.GetContext(ctx, &r, `SELECT id, email, provider, created_at, last_sign_in_at FROM accounts WHERE id = ?`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("account %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &Account{
		ID:           r.ID,
		Email:        r.Email,
		Provider:     r.Provider,
		CreatedAt:    parseTime(r.CreatedAt),
		LastSignInAt: parseTime(r.LastSignInAt),
	}, nil
}

func (s *SQLiteStore) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	var r profileRow
	err := s.db.GetContext(ctx, &r, `
		SELECT user_id, full_name, phone, spam_score, spam_flags, spam_analyzed_at
		FROM profiles WHERE user_id = ?`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("profile %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	flags, err := decodeFlags(r.SpamFlags)
	if err != nil {
		return nil, err
	}
	return &Profile{
		UserID:         r.UserID,
		FullName:       r.FullName,
		Phone:          r.Phone,
		SpamScore:      r.SpamScore,
		SpamFlags:      flags,
		SpamAnalyzedAt: parseTimePtr(r.SpamAnalyzedAt),
	}, nil
}

func (s *SQLiteStore) ListCases(ctx context.Context, userID string) ([]Case, error) {
	var rows []caseRow
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, company_name, description, created_at
		FROM cases WHERE user_id = ? ORDER BY created_at ASC`, userID); err != nil {
		return nil, fmt.Errorf("failed to list cases: %w", err)
	}

	out := make([]Case, 0, len(rows))
	for _, r := range rows {
		out = append(out, Case{
			ID:          r.ID,
			UserID:      r.UserID,
			CompanyName: r.CompanyName,
			Description: r.Description,
			CreatedAt:   parseTime(r.CreatedAt),
		})
	}
	return out, nil
}

func (s *SQLiteStore) ListEvidence(ctx context.Context, userID string) ([]Evidence, error) {
	var rows []evidenceRow
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT id, case_id, user_id, file_name, created_at
		FROM evidence WHERE user_id = ? ORDER BY created_at ASC`, userID); err != nil {
		return nil, fmt.Errorf("failed to list evidence: %w", err)
	}

	out := make([]Evidence, 0, len(rows))
	for _, r := range rows {
		out = append(out, Evidence{
			ID:        r.ID,
			CaseID:    r.CaseID,
			UserID:    r.UserID,
			FileName:  r.FileName,
			CreatedAt: parseTime(r.CreatedAt),
		})
	}
	return out, nil
}

func (s *SQLiteStore) UpdateSpamScore(ctx context.Context, userID string, score int, flags []string, at time.Time) error {
	if _, err := s.GetAccount(ctx, userID); err != nil {
		return err
	}

	encoded, err := encodeFlags(flags)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, spam_score, spam_flags, spam_analyzed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE
		SET spam_score = excluded.spam_score,
		    spam_flags = excluded.spam_flags,
		    spam_analyzed_at = excluded.spam_analyzed_at`,
		userID, score, encoded, formatTime(at))
	if err != nil {
		return fmt.Errorf("failed to update spam score: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListFlaggedProfiles(ctx context.Context, minScore int) ([]Flagged, error) {
	var rows []profileRow
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT p.user_id, a.email, p.full_name, p.phone, p.spam_score, p.spam_flags, p.spam_analyzed_at
		FROM profiles p
		JOIN accounts a ON a.id = p.user_id
		WHERE p.spam_analyzed_at != '' AND p.spam_score >= ?
		ORDER BY p.spam_score DESC, p.user_id ASC`, minScore); err != nil {
		return nil, fmt.Errorf("failed to list flagged profiles: %w", err)
	}

	out := make([]Flagged, 0, len(rows))
	for _, r := range rows {
		flags, err := decodeFlags(r.SpamFlags)
		if err != nil {
			return nil, err
		}
		out = append(out, Flagged{
			UserID:         r.UserID,
			Email:          r.Email,
			SpamScore:      r.SpamScore,
			SpamFlags:      flags,
			SpamAnalyzedAt: parseTimePtr(r.SpamAnalyzedAt),
		})
	}
	return out, nil
}

func (s *SQLiteStore) PutAccount(ctx context.Context, a Account) error {
	var taken int
	err := s.db.GetContext(ctx, &taken,
		`SELECT COUNT(*) FROM accounts WHERE email = ? AND id <> ?`, a.Email, a.ID)
	if err != nil {
		return fmt.Errorf("failed to check account email: %w", err)
	}
	if taken > 0 {
		return fmt.Errorf("account %s: %w", a.ID, ErrDuplicateEmail)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, email, provider, created_at, last_sign_in_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE
		SET email = excluded.email, provider = excluded.provider,
		    created_at = excluded.created_at, last_sign_in_at = excluded.last_sign_in_at`,
		a.ID, a.Email, a.Provider, formatTime(a.CreatedAt), formatTime(a.LastSignInAt))
	if err != nil {
		return fmt.Errorf("failed to put account: %w", err)
	}
	return nil
}

func (s *SQLiteStore) PutProfile(ctx context.Context, p Profile) error {
	if _, err := s.GetAccount(ctx, p.UserID); err != nil {
		return err
	}

	encoded, err := encodeFlags(p.SpamFlags)
	if err != nil {
		return err
	}
	analyzedAt := ""
	if p.SpamAnalyzedAt != nil {
		analyzedAt = formatTime(*p.SpamAnalyzedAt)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, full_name, phone, spam_score, spam_flags, spam_analyzed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE
		SET full_name = excluded.full_name, phone = excluded.phone`,
		p.UserID, p.FullName, p.Phone, p.SpamScore, encoded, analyzedAt)
	if err != nil {
		return fmt.Errorf("failed to put profile: %w", err)
	}
	return nil
}

func (s *SQLiteStore) PutCase(ctx context.Context, c Case) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cases (id, user_id, company_name, description, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.CompanyName, c.Description, formatTime(c.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to put case: %w", err)
	}
	return nil
}

func (s *SQLiteStore) PutEvidence(ctx context.Context, e Evidence) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO evidence (id, case_id, user_id, file_name, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.CaseID, e.UserID, e.FileName, formatTime(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to put evidence: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseTimePtr(s string) *time.Time {
	t := parseTime(s)
	if t.IsZero() {
		return nil
	}
	return &t
}

func encodeFlags(flags []string) (string, error) {
	if flags == nil {
		flags = []string{}
	}
	b, err := json.Marshal(flags)
	if err != nil {
		return "", fmt.Errorf("failed to encode spam flags: %w", err)
	}
	return string(b), nil
}

func decodeFlags(s string) ([]string, error) {
	flags := []string{}
	if s == "" {
		return flags, nil
	}
	if err := json.Unmarshal([]byte(s), &flags); err != nil {
		return nil, fmt.Errorf("failed to decode spam flags: %w", err)
	}
	return flags, nil
}
