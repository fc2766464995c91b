package heuristics

import "time"

// Heuristic is one spam signal: a CEL expression over the account signals and
// the points it adds (or removes) when the expression is true.
type Heuristic struct {
	ID          string    `json:"id"`
	Flag        string    `json:"flag"`
	Description string    `json:"description"`
	Expression  string    `json:"expression"`
	Points      int       `json:"points"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// EvaluationResult is the outcome of evaluating a single heuristic
type EvaluationResult struct {
	HeuristicID string `json:"heuristicId"`
	Flag        string `json:"flag"`
	Description string `json:"description"`
	Points      int    `json:"points"`
	Matched     bool   `json:"matched"`
	Error       error  `json:"-"`
	Trace       any    `json:"-"`
}

// Outcome is the clamped score across all active heuristics
type Outcome struct {
	Score     int      `json:"score"`
	RawScore  int      `json:"rawScore"`
	Flags     []string `json:"flags"`
	Reasoning []string `json:"reasoning"`
}

// Score bounds
const (
	MinScore = 0
	MaxScore = 100
)
