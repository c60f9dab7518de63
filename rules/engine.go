package rules

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

// costLimit bounds the work a single expression may do during evaluation.
const costLimit = 1000000

// Engine compiles rules from a RuleStore to CEL programs and evaluates them.
// Compiled programs are shared read-only between evaluations; the engine is
// safe for concurrent use.
type Engine struct {
	env      *cel.Env
	store    RuleStore
	cache    RulesCache
	programs map[string]cel.Program // ruleID -> compiled program
	mu       sync.RWMutex
}

// NewEngine creates an engine whose environment is derived from schema and
// compiles every active rule already in store.
func NewEngine(schema Schema, store RuleStore) (*Engine, error) {
	env, err := NewEnvFromSchema(schema)
	if err != nil {
		return nil, err
	}

	return NewEngineWithEnv(env, store)
}

// NewEngineWithEnv creates an engine with a caller-built CEL environment.
func NewEngineWithEnv(env *cel.Env, store RuleStore) (*Engine, error) {
	en := &Engine{
		env:      env,
		store:    store,
		cache:    NewInMemoryRulesCache(DefaultCacheConfig()),
		programs: make(map[string]cel.Program),
	}

	if err := en.CompileAllRules(); err != nil {
		return nil, fmt.Errorf("failed to compile rules: %w", err)
	}

	return en, nil
}

// CompileRule compiles and type-checks a single expression and caches the
// resulting program under ruleID.
func (en *Engine) CompileRule(ruleID, expression string) error {
	ast, issues := en.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return fmt.Errorf("compile error: %w", issues.Err())
	}

	prog, err := en.env.Program(ast,
		cel.EvalOptions(cel.OptTrackState),
		cel.CostLimit(costLimit),
	)
	if err != nil {
		return fmt.Errorf("program creation error: %w", err)
	}

	en.mu.Lock()
	en.programs[ruleID] = prog
	en.mu.Unlock()

	return nil
}

// CompileAllRules compiles all active rules from the store and primes the cache.
func (en *Engine) CompileAllRules() error {
	rules, err := en.store.ListActive()
	if err != nil {
		return err
	}

	for _, rule := range rules {
		if err := en.CompileRule(rule.ID, rule.Expression); err != nil {
			return fmt.Errorf("failed to compile rule %s: %w", rule.ID, err)
		}
	}

	en.cache.Set(rules)

	return nil
}

// AddRule validates that r compiles, then stores it.
// The compiled program is discarded if the store rejects the rule.
func (en *Engine) AddRule(r *Rule) error {
	if _, err := en.store.Get(r.ID); err == nil {
		return fmt.Errorf("rule with ID %s: %w", r.ID, ErrRuleExists)
	}

	if err := en.CompileRule(r.ID, r.Expression); err != nil {
		return fmt.Errorf("rule validation failed: %w", err)
	}

	if err := en.store.Add(r); err != nil {
		en.mu.Lock()
		delete(en.programs, r.ID)
		en.mu.Unlock()
		return err
	}

	en.cache.Invalidate()

	return nil
}

// EvaluateAll evaluates all active rules in priority order. A failing rule
// is reported in its result and does not stop the others; non-boolean
// results are treated as no match.
func (en *Engine) EvaluateAll(facts map[string]any) ([]*EvaluationResult, error) {
	rules, err := en.activeRules()
	if err != nil {
		return nil, err
	}

	results := make([]*EvaluationResult, 0, len(rules))
	for _, rule := range rules {
		results = append(results, en.eval(rule, facts))
	}

	return results, nil
}

// RuleCount returns the number of active rules.
func (en *Engine) RuleCount() int {
	rules, err := en.activeRules()
	if err != nil {
		return 0
	}
	return len(rules)
}

func (en *Engine) activeRules() ([]*Rule, error) {
	rules := en.cache.Get()
	if rules != nil {
		return rules, nil
	}

	rules, err := en.store.ListActive()
	if err != nil {
		return nil, err
	}
	en.cache.Set(rules)
	return rules, nil
}

func (en *Engine) eval(rule *Rule, facts map[string]any) *EvaluationResult {
	result := &EvaluationResult{
		RuleID:   rule.ID,
		RuleName: rule.Name,
		Reason:   rule.Reason,
		Message:  rule.Message,
	}

	en.mu.RLock()
	prog, exists := en.programs[rule.ID]
	en.mu.RUnlock()

	if !exists {
		result.Error = fmt.Errorf("rule %s is not compiled", rule.ID)
		return result
	}

	out, details, err := prog.Eval(facts)
	if err != nil {
		result.Error = err
		return result
	}

	if boolVal, ok := out.Value().(bool); ok {
		result.Matched = boolVal
	}
	if details != nil {
		result.Trace = details.State()
	}

	return result
}
