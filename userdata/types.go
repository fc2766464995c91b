// Package userdata reads the account, profile, case and evidence records the
// spam scorer works from, and persists the resulting score.
package userdata

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a requested record does not exist
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateEmail is returned when an account's email belongs to another account
	ErrDuplicateEmail = errors.New("email already used by another account")
)

// Account is the auth record for a user
type Account struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	Provider     string    `json:"provider" db:"provider"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	LastSignInAt time.Time `json:"lastSignInAt,omitempty" db:"last_sign_in_at"`
}

// Profile holds user-editable details plus the persisted spam result
type Profile struct {
	UserID         string     `json:"userId"`
	FullName       string     `json:"fullName"`
	Phone          string     `json:"phone"`
	SpamScore      int        `json:"spamScore"`
	SpamFlags      []string   `json:"spamFlags"`
	SpamAnalyzedAt *time.Time `json:"spamAnalyzedAt,omitempty"`
}

// Case is one complaint opened against a company
type Case struct {
	ID          string    `json:"id" db:"id"`
	UserID      string    `json:"userId" db:"user_id"`
	CompanyName string    `json:"companyName" db:"company_name"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

// Evidence is a file attached to a case
type Evidence struct {
	ID        string    `json:"id" db:"id"`
	CaseID    string    `json:"caseId" db:"case_id"`
	UserID    string    `json:"userId" db:"user_id"`
	FileName  string    `json:"fileName" db:"file_name"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Flagged is a row in the admin review queue
type Flagged struct {
	UserID         string     `json:"userId"`
	Email          string     `json:"email"`
	SpamScore      int        `json:"spamScore"`
	SpamFlags      []string   `json:"spamFlags"`
	SpamAnalyzedAt *time.Time `json:"spamAnalyzedAt,omitempty"`
}

// Store is the read side used by the spam analyzer plus its single write
type Store interface {
	GetAccount(ctx context.Context, userID string) (*Account, error)
	GetProfile(ctx context.Context, userID string) (*Profile, error)
	ListCases(ctx context.Context, userID string) ([]Case, error)
	ListEvidence(ctx context.Context, userID string) ([]Evidence, error)

	// UpdateSpamScore creates the profile if needed. Last write wins.
	UpdateSpamScore(ctx context.Context, userID string, score int, flags []string, at time.Time) error

	// ListFlaggedProfiles returns profiles scoring at least minScore,
	// highest first
	ListFlaggedProfiles(ctx context.Context, minScore int) ([]Flagged, error)
}

// Writer creates records. The product writes these through its own flows;
// the service uses it for fixtures and imports.
type Writer interface {
	PutAccount(ctx context.Context, a Account) error
	PutProfile(ctx context.Context, p Profile) error
	PutCase(ctx context.Context, c Case) error
	PutEvidence(ctx context.Context, e Evidence) error
}

// ReadWriter is a Store that also accepts writes
type ReadWriter interface {
	Store
	Writer
}
