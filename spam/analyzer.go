// Package spam scores user accounts for the admin review queue. An analysis
// reads the user's records, derives signals, scores them against the
// heuristic table and writes the result back to the profile.
package spam

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/heyimjames/penang-growth-lab-sub002/heuristics"
	"github.com/heyimjames/penang-growth-lab-sub002/internal/logger"
	"github.com/heyimjames/penang-growth-lab-sub002/userdata"
)

var (
	// ErrUnauthorized is returned when the caller is not the admin
	ErrUnauthorized = errors.New("unauthorized")

	// ErrUserNotFound is returned when the analysed user has no account
	ErrUserNotFound = errors.New("user not found")
)

// Scorer turns signals into a clamped score. *heuristics.Engine implements it.
type Scorer interface {
	Score(signals heuristics.Signals) (heuristics.Outcome, error)
}

// Analysis is the result of one spam analysis
type Analysis struct {
	UserID     string             `json:"userId"`
	Score      int                `json:"score"`
	Flags      []string           `json:"flags"`
	Reasoning  []string           `json:"reasoning"`
	Signals    heuristics.Signals `json:"signals"`
	AnalyzedAt time.Time          `json:"analyzedAt"`
}

// Analyzer runs admin-only spam analysis
type Analyzer struct {
	store      userdata.Store
	scorer     Scorer
	adminEmail string
	now        func() time.Time
}

// NewAnalyzer creates an analyzer. An empty adminEmail rejects every caller.
func NewAnalyzer(store userdata.Store, scorer Scorer, adminEmail string) *Analyzer {
	return &Analyzer{
		store:      store,
		scorer:     scorer,
		adminEmail: normalizeEmail(adminEmail),
		now:        time.Now,
	}
}

// WithClock replaces the analyzer's time source
func (a *Analyzer) WithClock(now func() time.Time) *Analyzer {
	a.now = now
	return a
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Authorize returns ErrUnauthorized unless caller is the admin
func (a *Analyzer) Authorize(caller string) error {
	if a.adminEmail == "" || normalizeEmail(caller) != a.adminEmail {
		return ErrUnauthorized
	}
	return nil
}

// AnalyzeUser scores userID and persists the score and flags on the profile.
// The reads are independent and run one after another; the write is last
// write wins.
func (a *Analyzer) AnalyzeUser(ctx context.Context, caller, userID string) (*Analysis, error) {
	if err := a.Authorize(caller); err != nil {
		logger.WarnContext(ctx, "spam analysis denied", "caller", caller, "user_id", userID)
		return nil, err
	}

	rec, err := a.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := a.now()
	signals := ExtractSignals(*rec, now)

	outcome, err := a.scorer.Score(signals)
	if err != nil {
		return nil, fmt.Errorf("failed to score user %s: %w", userID, err)
	}

	if err := a.store.UpdateSpamScore(ctx, userID, outcome.Score, outcome.Flags, now); err != nil {
		return nil, fmt.Errorf("failed to save spam score: %w", err)
	}

	logger.InfoContext(ctx, "spam analysis complete",
		"user_id", userID,
		"score", outcome.Score,
		"raw_score", outcome.RawScore,
		"flags", outcome.Flags,
	)

	return &Analysis{
		UserID:     userID,
		Score:      outcome.Score,
		Flags:      outcome.Flags,
		Reasoning:  outcome.Reasoning,
		Signals:    signals,
		AnalyzedAt: now,
	}, nil
}

func (a *Analyzer) load(ctx context.Context, userID string) (*Record, error) {
	account, err := a.store.GetAccount(ctx, userID)
	if errors.Is(err, userdata.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	profile, err := a.store.GetProfile(ctx, userID)
	if err != nil && !errors.Is(err, userdata.ErrNotFound) {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	cases, err := a.store.ListCases(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cases: %w", err)
	}

	evidence, err := a.store.ListEvidence(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load evidence: %w", err)
	}

	return &Record{
		Account:  *account,
		Profile:  profile,
		Cases:    cases,
		Evidence: evidence,
	}, nil
}

// ListFlagged returns analysed users scoring at least minScore, highest
// first. minScore is clamped to the score range.
func (a *Analyzer) ListFlagged(ctx context.Context, caller string, minScore int) ([]userdata.Flagged, error) {
	if err := a.Authorize(caller); err != nil {
		return nil, err
	}

	list, err := a.store.ListFlaggedProfiles(ctx, heuristics.Clamp(minScore))
	if err != nil {
		return nil, fmt.Errorf("failed to list flagged users: %w", err)
	}
	return list, nil
}
