package rules

import "time"

// Rule is a single CEL gate. A rule matches when its expression evaluates
// to true against the supplied facts.
type Rule struct {
	ID         string
	Name       string
	Expression string
	// Reason is a short machine-readable code reported when the rule matches.
	Reason string
	// Message is the human-readable explanation reported when the rule matches.
	Message string
	// Priority orders evaluation; lower values run first.
	Priority  int
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EvaluationResult contains the outcome of evaluating a rule
type EvaluationResult struct {
	RuleID   string
	RuleName string
	Reason   string
	Message  string
	Matched  bool
	Error    error
	Trace    any // CEL evaluation state (optional)
}
