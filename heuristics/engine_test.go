package heuristics

import (
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
)

func newSeededEngine(t *testing.T) *Engine {
	t.Helper()
	store := NewInMemoryStore()
	if err := Seed(store); err != nil {
		t.Fatalf("Seed() failed: %v", err)
	}
	engine, err := NewEngine(store)
	if err != nil {
		t.Fatalf("NewEngine() failed: %v", err)
	}
	return engine
}

func spammySignals() Signals {
	return Signals{
		EmailDomain:          "mailinator.com",
		DisposableEmail:      true,
		RandomLocalPart:      true,
		AccountAgeHours:      2,
		AccountAgeDays:       2.0 / 24,
		SigninGapMinutes:     1,
		CaseCount:            5,
		CasesPerDay:          60,
		AvgDescriptionLength: 20,
		WordCount:            12,
		TopWordShare:         0.5,
		EvidenceCount:        0,
		DistinctCompanies:    1,
	}
}

func cleanSignals() Signals {
	return Signals{
		EmailDomain:          "gmail.com",
		AccountAgeHours:      24 * 40,
		AccountAgeDays:       40,
		SigninGapMinutes:     24 * 60 * 30,
		HasFullName:          true,
		HasPhone:             true,
		CaseCount:            1,
		CasesPerDay:          0.025,
		AvgDescriptionLength: 320,
		WordCount:            60,
		TopWordShare:         0.08,
		EvidenceCount:        2,
		DistinctCompanies:    1,
		OAuthProvider:        "google",
		TrustedProvider:      true,
	}
}

// TestNewEngineCompilesActiveHeuristics checks every default compiles on init
func TestNewEngineCompilesActiveHeuristics(t *testing.T) {
	engine := newSeededEngine(t)

	engine.mu.RLock()
	defer engine.mu.RUnlock()
	if len(engine.programs) != len(Defaults()) {
		t.Errorf("expected %d compiled programs, got %d", len(Defaults()), len(engine.programs))
	}
}

// TestNewEngineRejectsBrokenStoredExpression fails fast on a bad stored heuristic
func TestNewEngineRejectsBrokenStoredExpression(t *testing.T) {
	store := NewInMemoryStore()
	_ = store.Add(&Heuristic{ID: "broken", Flag: "broken", Expression: `signals.case_count >=`, Points: 5, Active: true})

	if _, err := NewEngine(store); err == nil {
		t.Fatal("expected error for uncompilable stored heuristic")
	}
}

func TestCompileHeuristic(t *testing.T) {
	engine, err := NewEngine(NewInMemoryStore())
	if err != nil {
		t.Fatalf("NewEngine() failed: %v", err)
	}

	testCases := []struct {
		name       string
		expression string
		wantErr    bool
	}{
		{"literal", `true`, false},
		{"bool signal", `signals.disposable_email`, false},
		{"comparison", `signals.case_count >= 3`, false},
		{"negation", `!signals.has_full_name && !signals.has_phone`, false},
		{"string compare", `signals.email_domain == "example.com"`, false},
		{"syntax error", `signals.case_count >=`, true},
		{"unknown variable", `account.age > 3`, true},
		{"unknown signal", `signals.case_cout >= 1`, true},
		{"unknown signal by index", `signals["case_cout"] >= 1`, true},
		{"unknown signal presence test", `has(signals.nickname)`, true},
		{"known signal by index", `signals["case_count"] >= 1`, false},
		{"non bool output", `"hello"`, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := engine.CompileHeuristic("h-"+tc.name, tc.expression)
			if tc.wantErr && err == nil {
				t.Errorf("CompileHeuristic(%q) expected error", tc.expression)
			}
			if !tc.wantErr && err != nil {
				t.Errorf("CompileHeuristic(%q) failed: %v", tc.expression, err)
			}
		})
	}
}

// TestScoreSpammyAccount sums matched points and clamps to 100
func TestScoreSpammyAccount(t *testing.T) {
	engine := newSeededEngine(t)

	outcome, err := engine.Score(spammySignals())
	if err != nil {
		t.Fatalf("Score() failed: %v", err)
	}

	if outcome.RawScore != 125 {
		t.Errorf("expected raw score 125, got %d", outcome.RawScore)
	}
	if outcome.Score != 100 {
		t.Errorf("expected clamped score 100, got %d", outcome.Score)
	}

	wantFlags := []string{
		"disposable_email",
		"empty_profile",
		"minimal_complaint_text",
		"no_evidence",
		"random_email",
		"rapid_case_creation",
		"repetitive_text",
		"single_company_targeting",
	}
	if !reflect.DeepEqual(outcome.Flags, wantFlags) {
		t.Errorf("flags = %v, want %v", outcome.Flags, wantFlags)
	}
	if len(outcome.Reasoning) != len(outcome.Flags) {
		t.Errorf("expected one reasoning line per flag, got %d for %d", len(outcome.Reasoning), len(outcome.Flags))
	}
}

// TestScoreCleanAccount clamps a negative total to zero
func TestScoreCleanAccount(t *testing.T) {
	engine := newSeededEngine(t)

	outcome, err := engine.Score(cleanSignals())
	if err != nil {
		t.Fatalf("Score() failed: %v", err)
	}

	if outcome.RawScore != -20 {
		t.Errorf("expected raw score -20, got %d", outcome.RawScore)
	}
	if outcome.Score != 0 {
		t.Errorf("expected clamped score 0, got %d", outcome.Score)
	}
	if !reflect.DeepEqual(outcome.Flags, []string{"trusted_oauth"}) {
		t.Errorf("flags = %v, want [trusted_oauth]", outcome.Flags)
	}
	if !strings.Contains(outcome.Reasoning[0], "(-20)") {
		t.Errorf("reasoning should carry signed points, got %q", outcome.Reasoning[0])
	}
}

// TestScoreEmptySignals matches only the empty profile heuristic
func TestScoreEmptySignals(t *testing.T) {
	engine := newSeededEngine(t)

	outcome, err := engine.Score(Signals{})
	if err != nil {
		t.Fatalf("Score() failed: %v", err)
	}
	if outcome.Score != 10 || !reflect.DeepEqual(outcome.Flags, []string{"empty_profile"}) {
		t.Errorf("got score %d flags %v, want 10 [empty_profile]", outcome.Score, outcome.Flags)
	}
}

// TestScoreIsBounded checks the clamp across a range of signal mixes
func TestScoreIsBounded(t *testing.T) {
	engine := newSeededEngine(t)

	for _, disposable := range []bool{true, false} {
		for _, trusted := range []bool{true, false} {
			for _, cases := range []int64{0, 1, 3, 10} {
				s := spammySignals()
				s.DisposableEmail = disposable
				s.TrustedProvider = trusted
				s.CaseCount = cases

				outcome, err := engine.Score(s)
				if err != nil {
					t.Fatalf("Score() failed: %v", err)
				}
				if outcome.Score < MinScore || outcome.Score > MaxScore {
					t.Errorf("score %d outside [%d, %d]", outcome.Score, MinScore, MaxScore)
				}
			}
		}
	}
}

// TestScoreSkipsFailingHeuristic keeps scoring when one expression errors at runtime
func TestScoreSkipsFailingHeuristic(t *testing.T) {
	engine := newSeededEngine(t)

	err := engine.AddHeuristic(&Heuristic{
		ID:         "divide-by-zero",
		Flag:       "divide_by_zero",
		Expression: `signals.case_count / 0 > 1`,
		Points:     50,
		Active:     true,
	})
	if err != nil {
		t.Fatalf("AddHeuristic() failed: %v", err)
	}

	outcome, err := engine.Score(Signals{})
	if err != nil {
		t.Fatalf("Score() failed: %v", err)
	}
	if outcome.Score != 10 {
		t.Errorf("expected failing heuristic to be ignored, got score %d", outcome.Score)
	}

	res, err := engine.Evaluate("divide-by-zero", Signals{}.Facts())
	if err == nil {
		t.Error("expected evaluation error for division by zero")
	}
	if res == nil || res.Matched {
		t.Errorf("failed evaluation should be reported unmatched, got %+v", res)
	}
}

func TestAddHeuristicValidation(t *testing.T) {
	engine := newSeededEngine(t)

	testCases := []struct {
		name string
		h    *Heuristic
	}{
		{"duplicate id", &Heuristic{ID: "default-disposable-email", Flag: "dup", Expression: "true", Points: 1}},
		{"bad flag", &Heuristic{ID: "x", Flag: "Bad Flag", Expression: "true", Points: 1}},
		{"empty expression", &Heuristic{ID: "x", Flag: "x", Expression: "  ", Points: 1}},
		{"points too high", &Heuristic{ID: "x", Flag: "x", Expression: "true", Points: 101}},
		{"uncompilable", &Heuristic{ID: "x", Flag: "x", Expression: "signals.", Points: 1}},
		{"misspelled signal", &Heuristic{ID: "x", Flag: "x", Expression: "signals.case_cout >= 1", Points: 1}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if err := engine.AddHeuristic(tc.h); err == nil {
				t.Error("expected AddHeuristic to fail")
			}
		})
	}

	err := engine.AddHeuristic(&Heuristic{ID: "y", Flag: "y", Expression: "signals.case_cout >= 1 || signals.nope", Points: 1})
	if err == nil || !strings.Contains(err.Error(), "unknown signal case_cout, nope") {
		t.Errorf("expected unknown signal names in error, got %v", err)
	}

	if _, err := engine.store.Get("x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("rejected heuristic should not be stored, got %v", err)
	}
}

// TestUpdateHeuristicChangesScore verifies updates invalidate the cached list
func TestUpdateHeuristicChangesScore(t *testing.T) {
	engine := newSeededEngine(t)

	before, _ := engine.Score(Signals{})
	if before.Score != 10 {
		t.Fatalf("expected 10 before update, got %d", before.Score)
	}

	h, err := engine.store.Get("default-empty-profile")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	updated := *h
	updated.Points = 40
	if err := engine.UpdateHeuristic(&updated); err != nil {
		t.Fatalf("UpdateHeuristic() failed: %v", err)
	}

	after, _ := engine.Score(Signals{})
	if after.Score != 40 {
		t.Errorf("expected 40 after update, got %d", after.Score)
	}

	updated.Active = false
	if err := engine.UpdateHeuristic(&updated); err != nil {
		t.Fatalf("UpdateHeuristic() failed: %v", err)
	}
	disabled, _ := engine.Score(Signals{})
	if disabled.Score != 0 || len(disabled.Flags) != 0 {
		t.Errorf("inactive heuristic should not score, got %d %v", disabled.Score, disabled.Flags)
	}
}

// TestUpdateHeuristicRejectsBadExpression keeps the old program on failure
func TestUpdateHeuristicRejectsBadExpression(t *testing.T) {
	engine := newSeededEngine(t)

	h, _ := engine.store.Get("default-empty-profile")
	broken := *h
	broken.Expression = `!signals.has_full_name &&`
	if err := engine.UpdateHeuristic(&broken); err == nil {
		t.Fatal("expected update with bad expression to fail")
	}

	outcome, _ := engine.Score(Signals{})
	if outcome.Score != 10 {
		t.Errorf("original heuristic should still apply, got %d", outcome.Score)
	}
}

func TestDeleteHeuristic(t *testing.T) {
	engine := newSeededEngine(t)

	if err := engine.DeleteHeuristic("default-empty-profile"); err != nil {
		t.Fatalf("DeleteHeuristic() failed: %v", err)
	}

	outcome, _ := engine.Score(Signals{})
	if outcome.Score != 0 {
		t.Errorf("expected 0 after delete, got %d", outcome.Score)
	}

	if err := engine.DeleteHeuristic("default-empty-profile"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestClamp(t *testing.T) {
	testCases := []struct{ in, want int }{
		{-50, 0}, {0, 0}, {42, 42}, {100, 100}, {150, 100},
	}
	for _, tc := range testCases {
		if got := Clamp(tc.in); got != tc.want {
			t.Errorf("Clamp(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

// TestScoreConcurrent exercises scoring alongside heuristic mutations
func TestScoreConcurrent(t *testing.T) {
	engine := newSeededEngine(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				outcome, err := engine.Score(spammySignals())
				if err != nil {
					t.Errorf("Score() failed: %v", err)
					return
				}
				if outcome.Score < MinScore || outcome.Score > MaxScore {
					t.Errorf("score %d out of bounds", outcome.Score)
					return
				}
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 20; j++ {
			h, err := engine.store.Get("default-no-evidence")
			if err != nil {
				t.Errorf("Get() failed: %v", err)
				return
			}
			updated := *h
			updated.Points = 10 + j%5
			if err := engine.UpdateHeuristic(&updated); err != nil {
				t.Errorf("UpdateHeuristic() failed: %v", err)
				return
			}
		}
	}()

	wg.Wait()
}
