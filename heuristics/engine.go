// Package heuristics scores accounts for spam likelihood using a table of CEL
// expressions. Each heuristic that matches adds its points; the total is
// clamped to [0,100].
package heuristics

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
	celast "github.com/google/cel-go/common/ast"
	"github.com/google/cel-go/common/operators"

	"github.com/heyimjames/penang-growth-lab-sub002/internal/logger"
)

// costLimit bounds the work a single heuristic expression may do
const costLimit = 1000000

// Engine compiles heuristics and evaluates them against account signals.
// It is safe for concurrent use.
type Engine struct {
	env      *cel.Env
	store    Store
	cache    Cache
	programs map[string]cel.Program // heuristicID -> compiled program
	mu       sync.RWMutex
}

// NewEnv creates the CEL environment heuristics are compiled in
func NewEnv() (*cel.Env, error) {
	env, err := cel.NewEnv(
		cel.Variable("signals", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return env, nil
}

// NewEngine creates an engine over store and compiles its active heuristics
func NewEngine(store Store) (*Engine, error) {
	env, err := NewEnv()
	if err != nil {
		return nil, err
	}

	en := &Engine{
		env:      env,
		store:    store,
		cache:    NewInMemoryCache(DefaultCacheConfig()),
		programs: make(map[string]cel.Program),
	}

	if err := en.CompileAll(); err != nil {
		return nil, fmt.Errorf("failed to compile heuristics: %w", err)
	}

	return en, nil
}

// CompileHeuristic compiles a single expression and caches the program
func (en *Engine) CompileHeuristic(id, expression string) error {
	prog, err := en.compile(expression)
	if err != nil {
		return err
	}

	en.mu.Lock()
	en.programs[id] = prog
	en.mu.Unlock()

	return nil
}

func (en *Engine) compile(expression string) (cel.Program, error) {
	ast, issues := en.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", issues.Err())
	}

	if err := checkSignalRefs(ast); err != nil {
		return nil, err
	}

	out := ast.OutputType()
	if !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("expression must evaluate to bool, got %s", out)
	}

	prog, err := en.env.Program(ast,
		cel.EvalOptions(cel.OptTrackState),
		cel.CostLimit(costLimit),
	)
	if err != nil {
		return nil, fmt.Errorf("program creation error: %w", err)
	}
	return prog, nil
}

// CompileAll compiles all active heuristics from the store and primes the cache
func (en *Engine) CompileAll() error {
	list, err := en.store.ListActive()
	if err != nil {
		return err
	}

	for _, h := range list {
		if err := en.CompileHeuristic(h.ID, h.Expression); err != nil {
			return fmt.Errorf("failed to compile heuristic %s: %w", h.ID, err)
		}
	}

	en.cache.Set(list)
	return nil
}

// Evaluate evaluates a single heuristic against the provided facts
func (en *Engine) Evaluate(id string, facts map[string]any) (*EvaluationResult, error) {
	h, err := en.store.Get(id)
	if err != nil {
		return nil, err
	}

	res := en.evaluate(h, facts)
	return res, res.Error
}

// EvaluateAll evaluates every active heuristic. A heuristic that fails to
// evaluate is reported as unmatched with its error; the rest still run.
func (en *Engine) EvaluateAll(facts map[string]any) ([]*EvaluationResult, error) {
	list := en.cache.Get()
	if list == nil {
		var err error
		list, err = en.store.ListActive()
		if err != nil {
			return nil, err
		}
		en.cache.Set(list)
	}

	results := make([]*EvaluationResult, 0, len(list))
	for _, h := range list {
		results = append(results, en.evaluate(h, facts))
	}
	return results, nil
}

func (en *Engine) evaluate(h *Heuristic, facts map[string]any) *EvaluationResult {
	res := &EvaluationResult{
		HeuristicID: h.ID,
		Flag:        h.Flag,
		Description: h.Description,
		Points:      h.Points,
	}

	en.mu.RLock()
	prog, exists := en.programs[h.ID]
	en.mu.RUnlock()

	if !exists {
		res.Error = fmt.Errorf("heuristic %s is not compiled", h.ID)
		return res
	}

	out, details, err := prog.Eval(facts)
	if err != nil {
		res.Error = err
		return res
	}

	if b, ok := out.Value().(bool); ok {
		res.Matched = b
	}
	if details != nil {
		res.Trace = details.State()
	}
	return res
}

// Score evaluates all active heuristics against the signals. Flags are
// returned in alphabetical order.
func (en *Engine) Score(signals Signals) (Outcome, error) {
	results, err := en.EvaluateAll(signals.Facts())
	if err != nil {
		return Outcome{}, err
	}

	matched := make([]*EvaluationResult, 0, len(results))
	for _, r := range results {
		if r.Error != nil {
			logger.Warn("heuristic evaluation failed", "heuristic_id", r.HeuristicID, "error", r.Error)
			continue
		}
		if r.Matched {
			matched = append(matched, r)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Flag < matched[j].Flag })

	outcome := Outcome{
		Flags:     make([]string, 0, len(matched)),
		Reasoning: make([]string, 0, len(matched)),
	}
	for _, r := range matched {
		outcome.RawScore += r.Points
		outcome.Flags = append(outcome.Flags, r.Flag)
		outcome.Reasoning = append(outcome.Reasoning, fmt.Sprintf("%s (%+d)", r.Description, r.Points))
	}
	outcome.Score = Clamp(outcome.RawScore)

	return outcome, nil
}

// knownSignals are the field names expressions may read from `signals`
var knownSignals = func() map[string]struct{} {
	fields := Signals{}.Facts()["signals"].(map[string]any)
	known := make(map[string]struct{}, len(fields))
	for name := range fields {
		known[name] = struct{}{}
	}
	return known
}()

// checkSignalRefs rejects expressions that read a signal which does not
// exist, either as signals.name or signals["name"]. Such a lookup only fails
// at evaluation time.
func checkSignalRefs(a *cel.Ast) error {
	var unknown []string
	seen := map[string]bool{}

	celast.PostOrderVisit(a.NativeRep().Expr(), celast.NewExprVisitor(func(e celast.Expr) {
		var name string
		switch e.Kind() {
		case celast.SelectKind:
			sel := e.AsSelect()
			if !isSignalsIdent(sel.Operand()) {
				return
			}
			name = sel.FieldName()
		case celast.CallKind:
			call := e.AsCall()
			fn := call.FunctionName()
			if (fn != operators.Index && fn != operators.OptIndex) || len(call.Args()) != 2 || !isSignalsIdent(call.Args()[0]) {
				return
			}
			key := call.Args()[1]
			if key.Kind() != celast.LiteralKind {
				return
			}
			s, ok := key.AsLiteral().Value().(string)
			if !ok {
				return
			}
			name = s
		default:
			return
		}

		if _, ok := knownSignals[name]; !ok && !seen[name] {
			seen[name] = true
			unknown = append(unknown, name)
		}
	}))

	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("unknown signal %s", strings.Join(unknown, ", "))
	}
	return nil
}

func isSignalsIdent(e celast.Expr) bool {
	return e.Kind() == celast.IdentKind && e.AsIdent() == "signals"
}

// Clamp bounds a raw score to [MinScore, MaxScore]
func Clamp(score int) int {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}

// AddHeuristic validates, compiles and stores a new heuristic. The compiled
// program is dropped again if the store rejects it.
func (en *Engine) AddHeuristic(h *Heuristic) error {
	if err := Validate(h); err != nil {
		return err
	}

	if _, err := en.store.Get(h.ID); err == nil {
		return fmt.Errorf("heuristic %s: %w", h.ID, ErrAlreadyExists)
	}

	if err := en.CompileHeuristic(h.ID, h.Expression); err != nil {
		return fmt.Errorf("heuristic validation failed: %w", err)
	}

	if err := en.store.Add(h); err != nil {
		en.mu.Lock()
		delete(en.programs, h.ID)
		en.mu.Unlock()
		return err
	}

	en.cache.Invalidate()
	return nil
}

// UpdateHeuristic validates and recompiles a heuristic before storing it
func (en *Engine) UpdateHeuristic(h *Heuristic) error {
	if err := Validate(h); err != nil {
		return err
	}

	prog, err := en.compile(h.Expression)
	if err != nil {
		return fmt.Errorf("heuristic validation failed: %w", err)
	}

	if err := en.store.Update(h); err != nil {
		return err
	}

	en.mu.Lock()
	en.programs[h.ID] = prog
	en.mu.Unlock()

	en.cache.Invalidate()
	return nil
}

// DeleteHeuristic removes a heuristic from the store and compiled programs
func (en *Engine) DeleteHeuristic(id string) error {
	if err := en.store.Delete(id); err != nil {
		return err
	}

	en.mu.Lock()
	delete(en.programs, id)
	en.mu.Unlock()

	en.cache.Invalidate()
	return nil
}

// List returns every stored heuristic
func (en *Engine) List() ([]*Heuristic, error) {
	return en.store.List()
}
