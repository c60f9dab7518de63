package eligibility

import (
	"fmt"

	"github.com/liamcoop/loancheck/rules"
)

// GateSchema declares the facts available to rejection gate expressions.
var GateSchema = rules.Schema{
	"applicant": {
		"monthlyIncome": "float64",
		"loanAmount":    "float64",
		"cibilScore":    "int",
	},
}

// GateEvaluator runs every active rejection gate in priority order.
// *rules.Engine satisfies it.
type GateEvaluator interface {
	EvaluateAll(facts map[string]any) ([]*rules.EvaluationResult, error)
	RuleCount() int
}

// DefaultGates returns the hard rejection gates, score before income.
func DefaultGates() []*rules.Rule {
	return []*rules.Rule{
		{
			ID:         "credit-score-threshold",
			Name:       "Minimum CIBIL score",
			Expression: `applicant.cibilScore < 600`,
			Reason:     string(ReasonLowScore),
			Message:    MessageLowScore,
			Priority:   10,
			Active:     true,
		},
		{
			ID:         "minimum-monthly-income",
			Name:       "Minimum monthly income",
			Expression: `applicant.monthlyIncome < 20000.0`,
			Reason:     string(ReasonLowIncome),
			Message:    MessageLowIncome,
			Priority:   20,
			Active:     true,
		},
	}
}

// NewGateEngine compiles gates into a rules engine over GateSchema.
func NewGateEngine(gates ...*rules.Rule) (*rules.Engine, error) {
	engine, err := rules.NewEngine(GateSchema, rules.NewInMemoryRuleStore())
	if err != nil {
		return nil, err
	}

	for _, g := range gates {
		if err := engine.AddRule(g); err != nil {
			return nil, fmt.Errorf("failed to add gate %s: %w", g.ID, err)
		}
	}

	return engine, nil
}

// firstGate returns the first gate that matched along with the outcomes of
// every gate up to and including it. A gate error before any match aborts.
func firstGate(results []*rules.EvaluationResult) (*rules.EvaluationResult, []GateOutcome, error) {
	outcomes := make([]GateOutcome, 0, len(results))
	for _, r := range results {
		if r.Error != nil {
			return nil, nil, fmt.Errorf("gate %s: %w", r.RuleID, r.Error)
		}
		outcomes = append(outcomes, GateOutcome{ID: r.RuleID, Name: r.RuleName, Matched: r.Matched})
		if r.Matched {
			return r, outcomes, nil
		}
	}
	return nil, outcomes, nil
}

func gateFacts(req LoanRequest, score int) map[string]any {
	return map[string]any{
		"applicant": map[string]any{
			"monthlyIncome": req.MonthlyIncome,
			"loanAmount":    req.LoanAmount,
			"cibilScore":    int64(score),
		},
	}
}
