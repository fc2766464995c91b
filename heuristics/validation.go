package heuristics

import (
	"fmt"
	"regexp"
	"strings"
)

// Point bounds for a single heuristic
const (
	MinPoints = -100
	MaxPoints = 100
)

var (
	flagPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
	idPattern   = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]*$`)
)

// Validate checks the shape of a heuristic before it is compiled or stored.
// It does not compile the expression.
func Validate(h *Heuristic) error {
	if h == nil {
		return fmt.Errorf("heuristic cannot be nil")
	}

	if len(h.ID) == 0 || len(h.ID) > 100 {
		return fmt.Errorf("id must be 1-100 characters, got %d", len(h.ID))
	}
	if !idPattern.MatchString(h.ID) {
		return fmt.Errorf("invalid id %q: must match %s", h.ID, idPattern)
	}

	if err := validateFlag(h.Flag); err != nil {
		return fmt.Errorf("invalid flag %q: %w", h.Flag, err)
	}

	if strings.TrimSpace(h.Expression) == "" {
		return fmt.Errorf("expression cannot be empty")
	}

	if h.Points < MinPoints || h.Points > MaxPoints {
		return fmt.Errorf("points %d out of range [%d, %d]", h.Points, MinPoints, MaxPoints)
	}

	return nil
}

// validateFlag requires a snake_case identifier that is not a CEL keyword
func validateFlag(flag string) error {
	if len(flag) == 0 {
		return fmt.Errorf("flag cannot be empty")
	}
	if len(flag) > 100 {
		return fmt.Errorf("flag length %d exceeds maximum of 100 characters", len(flag))
	}
	if !flagPattern.MatchString(flag) {
		return fmt.Errorf("must match pattern %s", flagPattern)
	}
	if isReservedKeyword(flag) {
		return fmt.Errorf("cannot use reserved keyword %q", flag)
	}
	return nil
}

func isReservedKeyword(name string) bool {
	switch name {
	case "true", "false", "null",
		"if", "else", "for", "while", "break", "continue", "return",
		"var", "let", "const", "function",
		"in", "as", "import", "package", "namespace", "loop", "void":
		return true
	}
	return false
}
