//go:build integration

package heuristics_test

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/heyimjames/penang-growth-lab-sub002/heuristics"
	"github.com/heyimjames/penang-growth-lab-sub002/internal/testdb"
)

func TestPostgresStore_BasicCRUD(t *testing.T) {
	db := testdb.Setup(t)
	store := heuristics.NewPostgresStore(db)

	id := uuid.New().String()
	h := &heuristics.Heuristic{
		ID:          id,
		Flag:        "many_cases",
		Description: "Lots of cases",
		Expression:  "signals.case_count > 20",
		Points:      25,
		Active:      true,
	}
	if err := store.Add(h); err != nil {
		t.Fatalf("Failed to add heuristic: %v", err)
	}
	if err := store.Add(h); err == nil {
		t.Error("Expected duplicate add to fail")
	}

	got, err := store.Get(id)
	if err != nil {
		t.Fatalf("Failed to get heuristic: %v", err)
	}
	if got.Flag != "many_cases" || got.Points != 25 || !got.Active {
		t.Errorf("Unexpected heuristic: %+v", got)
	}

	got.Points = 30
	got.Active = false
	if err := store.Update(got); err != nil {
		t.Fatalf("Failed to update heuristic: %v", err)
	}

	active, err := store.ListActive()
	if err != nil {
		t.Fatalf("Failed to list active heuristics: %v", err)
	}
	for _, a := range active {
		if a.ID == id {
			t.Error("Inactive heuristic returned by ListActive")
		}
	}

	all, err := store.List()
	if err != nil {
		t.Fatalf("Failed to list heuristics: %v", err)
	}
	found := false
	for _, a := range all {
		if a.ID == id {
			found = true
			if a.Points != 30 {
				t.Errorf("Expected points 30, got %d", a.Points)
			}
		}
	}
	if !found {
		t.Error("Updated heuristic missing from List")
	}

	if err := store.Delete(id); err != nil {
		t.Fatalf("Failed to delete heuristic: %v", err)
	}
	if _, err := store.Get(id); !errors.Is(err, heuristics.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
	if err := store.Delete(id); !errors.Is(err, heuristics.ErrNotFound) {
		t.Errorf("Expected ErrNotFound deleting twice, got %v", err)
	}
}

// TestPostgresStore_SeededEngine scores against the defaults held in postgres
func TestPostgresStore_SeededEngine(t *testing.T) {
	db := testdb.Setup(t)
	store := heuristics.NewPostgresStore(db)

	if err := heuristics.Seed(store); err != nil {
		t.Fatalf("Failed to seed heuristics: %v", err)
	}
	if err := heuristics.Seed(store); err != nil {
		t.Fatalf("Second seed failed: %v", err)
	}

	engine, err := heuristics.NewEngine(store)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}

	outcome, err := engine.Score(heuristics.Signals{DisposableEmail: true, CaseCount: 2})
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	// disposable 30 + empty profile 10 + minimal text 15 + no evidence 10
	if outcome.Score != 65 {
		t.Errorf("Expected score 65, got %d (%v)", outcome.Score, outcome.Flags)
	}
}
