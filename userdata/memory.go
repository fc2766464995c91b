package userdata

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore implements ReadWriter with maps
type MemoryStore struct {
	accounts map[string]Account
	profiles map[string]Profile
	cases    map[string][]Case
	evidence map[string][]Evidence
	mu       sync.RWMutex
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[string]Account),
		profiles: make(map[string]Profile),
		cases:    make(map[string][]Case),
		evidence: make(map[string][]Evidence),
	}
}

func (s *MemoryStore) GetAccount(_ context.Context, userID string) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[userID]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", userID, ErrNotFound)
	}
	return &a, nil
}

func (s *MemoryStore) GetProfile(_ context.Context, userID string) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[userID]
	if !ok {
		return nil, fmt.Errorf("profile %s: %w", userID, ErrNotFound)
	}
	p.SpamFlags = append([]string(nil), p.SpamFlags...)
	return &p, nil
}

func (s *MemoryStore) ListCases(_ context.Context, userID string) ([]Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Case{}, s.cases[userID]...), nil
}

func (s *MemoryStore) ListEvidence(_ context.Context, userID string) ([]Evidence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Evidence{}, s.evidence[userID]...), nil
}

func (s *MemoryStore) UpdateSpamScore(_ context.Context, userID string, score int, flags []string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[userID]; !ok {
		return fmt.Errorf("account %s: %w", userID, ErrNotFound)
	}

	p := s.profiles[userID]
	p.UserID = userID
	p.SpamScore = score
	p.SpamFlags = append([]string{}, flags...)
	p.SpamAnalyzedAt = &at
	s.profiles[userID] = p
	return nil
}

func (s *MemoryStore) ListFlaggedProfiles(_ context.Context, minScore int) ([]Flagged, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Flagged{}
	for id, p := range s.profiles {
		if p.SpamAnalyzedAt == nil || p.SpamScore < minScore {
			continue
		}
		out = append(out, Flagged{
			UserID:         id,
			Email:          s.accounts[id].Email,
			SpamScore:      p.SpamScore,
			SpamFlags:      append([]string{}, p.SpamFlags...),
			SpamAnalyzedAt: p.SpamAnalyzedAt,
		})
	}
	sortFlagged(out)
	return out, nil
}

func (s *MemoryStore) PutAccount(_ context.Context, a Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, existing := range s.accounts {
		if id != a.ID && existing.Email == a.Email {
			return fmt.Errorf("account %s: %w", a.ID, ErrDuplicateEmail)
		}
	}
	s.accounts[a.ID] = a
	return nil
}

func (s *MemoryStore) PutProfile(_ context.Context, p Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[p.UserID]; !ok {
		return fmt.Errorf("account %s: %w", p.UserID, ErrNotFound)
	}
	s.profiles[p.UserID] = p
	return nil
}

func (s *MemoryStore) PutCase(_ context.Context, c Case) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[c.UserID]; !ok {
		return fmt.Errorf("account %s: %w", c.UserID, ErrNotFound)
	}
	s.cases[c.UserID] = append(s.cases[c.UserID], c)
	return nil
}

func (s *MemoryStore) PutEvidence(_ context.Context, e Evidence) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[e.UserID]; !ok {
		return fmt.Errorf("account %s: %w", e.UserID, ErrNotFound)
	}
	s.evidence[e.UserID] = append(s.evidence[e.UserID], e)
	return nil
}

// sortFlagged orders by score descending then user ID
func sortFlagged(list []Flagged) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].SpamScore != list[j].SpamScore {
			return list[i].SpamScore > list[j].SpamScore
		}
		return list[i].UserID < list[j].UserID
	})
}
