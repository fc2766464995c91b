package heuristics

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

var (
	// ErrNotFound is returned when a heuristic ID does not exist
	ErrNotFound = errors.New("heuristic not found")

	// ErrAlreadyExists is returned when adding a heuristic whose ID is taken
	ErrAlreadyExists = errors.New("heuristic already exists")
)

// Store manages heuristic persistence and retrieval
type Store interface {
	// Add a new heuristic
	Add(h *Heuristic) error

	// Get a heuristic by ID
	Get(id string) (*Heuristic, error)

	// List all active heuristics
	ListActive() ([]*Heuristic, error)

	// List all heuristics, active or not
	List() ([]*Heuristic, error)

	// Update an existing heuristic
	Update(h *Heuristic) error

	// Delete a heuristic
	Delete(id string) error
}

// InMemoryStore implements Store using an in-memory map
type InMemoryStore struct {
	heuristics map[string]*Heuristic
	mu         sync.RWMutex
}

// NewInMemoryStore creates a new in-memory heuristic store
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		heuristics: make(map[string]*Heuristic),
	}
}

// Add adds a new heuristic, stamping CreatedAt and UpdatedAt
func (s *InMemoryStore) Add(h *Heuristic) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.heuristics[h.ID]; exists {
		return fmt.Errorf("heuristic %s: %w", h.ID, ErrAlreadyExists)
	}

	now := time.Now()
	h.CreatedAt = now
	h.UpdatedAt = now
	s.heuristics[h.ID] = h
	return nil
}

// Get retrieves a heuristic by ID
func (s *InMemoryStore) Get(id string) (*Heuristic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, exists := s.heuristics[id]
	if !exists {
		return nil, fmt.Errorf("heuristic %s: %w", id, ErrNotFound)
	}
	return h, nil
}

// ListActive returns all active heuristics ordered by ID
func (s *InMemoryStore) ListActive() ([]*Heuristic, error) {
	return s.list(true), nil
}

// List returns every heuristic ordered by ID
func (s *InMemoryStore) List() ([]*Heuristic, error) {
	return s.list(false), nil
}

func (s *InMemoryStore) list(activeOnly bool) []*Heuristic {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Heuristic, 0, len(s.heuristics))
	for _, h := range s.heuristics {
		if activeOnly && !h.Active {
			continue
		}
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Update replaces an existing heuristic, preserving CreatedAt
func (s *InMemoryStore) Update(h *Heuristic) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.heuristics[h.ID]
	if !exists {
		return fmt.Errorf("heuristic %s: %w", h.ID, ErrNotFound)
	}

	h.CreatedAt = existing.CreatedAt
	h.UpdatedAt = time.Now()
	s.heuristics[h.ID] = h
	return nil
}

// Delete removes a heuristic from the store
func (s *InMemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.heuristics[id]; !exists {
		return fmt.Errorf("heuristic %s: %w", id, ErrNotFound)
	}

	delete(s.heuristics, id)
	return nil
}
