package heuristics

import (
	"strings"
	"testing"
)

func validHeuristic() *Heuristic {
	return &Heuristic{
		ID:         "custom-1",
		Flag:       "custom_flag",
		Expression: "signals.case_count > 10",
		Points:     10,
		Active:     true,
	}
}

func TestValidateAccepts(t *testing.T) {
	if err := Validate(validHeuristic()); err != nil {
		t.Errorf("Validate() rejected a valid heuristic: %v", err)
	}

	for _, points := range []int{MinPoints, 0, MaxPoints} {
		h := validHeuristic()
		h.Points = points
		if err := Validate(h); err != nil {
			t.Errorf("points %d should be accepted: %v", points, err)
		}
	}
}

func TestValidateRejects(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(h *Heuristic)
		errPart string
	}{
		{"empty id", func(h *Heuristic) { h.ID = "" }, "id"},
		{"id with spaces", func(h *Heuristic) { h.ID = "has space" }, "id"},
		{"long id", func(h *Heuristic) { h.ID = strings.Repeat("a", 101) }, "id"},
		{"empty flag", func(h *Heuristic) { h.Flag = "" }, "empty"},
		{"uppercase flag", func(h *Heuristic) { h.Flag = "CustomFlag" }, "pattern"},
		{"flag starting with digit", func(h *Heuristic) { h.Flag = "1flag" }, "pattern"},
		{"reserved flag", func(h *Heuristic) { h.Flag = "null" }, "reserved"},
		{"blank expression", func(h *Heuristic) { h.Expression = " \t" }, "expression"},
		{"points below range", func(h *Heuristic) { h.Points = -101 }, "out of range"},
		{"points above range", func(h *Heuristic) { h.Points = 101 }, "out of range"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := validHeuristic()
			tc.mutate(h)

			err := Validate(h)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.errPart) {
				t.Errorf("expected error mentioning %q, got: %v", tc.errPart, err)
			}
		})
	}
}

func TestValidateNil(t *testing.T) {
	if err := Validate(nil); err == nil {
		t.Error("expected error for nil heuristic")
	}
}
