package eligibility

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
)

// scoreTiers maps the lowest qualifying score to the share of the requested
// amount granted. Checked top-down; the first match wins.
var scoreTiers = []struct {
	minScore   int
	percentage float64
}{
	{750, 1.00},
	{700, 0.90},
	{650, 0.75},
	{600, 0.50},
}

// affordabilityMultiple caps the granted amount at this many years of income.
const affordabilityMultiple = 5

// MaxAmount bounds loan amounts and monthly incomes. Past 2^53 a float64 no
// longer holds every whole rupee.
const MaxAmount = 1 << 53

// ErrInvalidAmount is returned by Evaluate when an amount fails ValidAmount.
var ErrInvalidAmount = errors.New("amount must be a positive number no larger than 9007199254740992")

// ValidAmount reports whether v is finite, positive and at most MaxAmount.
func ValidAmount(v float64) bool {
	return v > 0 && v <= MaxAmount
}

// Evaluator runs the eligibility policy. It holds no per-request state and
// is safe for concurrent use.
type Evaluator struct {
	gates     GateEvaluator
	newRandom func() RandomSource
	logger    *slog.Logger
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithRandomSource sets the factory called once per evaluation to obtain the
// score adjustment source.
func WithRandomSource(newRandom func() RandomSource) Option {
	return func(e *Evaluator) {
		e.newRandom = newRandom
	}
}

// WithLogger sets the logger used for request and outcome lines.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Evaluator) {
		e.logger = logger
	}
}

// WithGates replaces the default rejection gates.
func WithGates(gates GateEvaluator) Option {
	return func(e *Evaluator) {
		e.gates = gates
	}
}

// New builds an Evaluator. Without WithGates it compiles DefaultGates.
func New(opts ...Option) (*Evaluator, error) {
	e := &Evaluator{
		newRandom: NewRandomSource,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.gates == nil {
		engine, err := NewGateEngine(DefaultGates()...)
		if err != nil {
			return nil, fmt.Errorf("failed to build default gates: %w", err)
		}
		e.gates = engine
	}

	return e, nil
}

// GateCount returns the number of active rejection gates.
func (e *Evaluator) GateCount() int {
	return e.gates.RuleCount()
}

// Evaluate decides eligibility for req. The caller is expected to have
// checked field presence; the PAN format is re-checked here. An error is
// returned for amounts outside ValidAmount and when a gate expression fails
// to evaluate.
func (e *Evaluator) Evaluate(ctx context.Context, req LoanRequest) (*Result, error) {
	if !ValidAmount(req.LoanAmount) || !ValidAmount(req.MonthlyIncome) {
		return nil, fmt.Errorf("loan amount %v, monthly income %v: %w",
			req.LoanAmount, req.MonthlyIncome, ErrInvalidAmount)
	}

	log := e.logger.With("evaluation_id", EvaluationID(ctx))

	log.InfoContext(ctx, "processing loan eligibility request",
		"loan_amount", req.LoanAmount,
		"monthly_income", req.MonthlyIncome,
		"pan", MaskPAN(req.PANNumber),
	)

	if !IsValidPAN(req.PANNumber) {
		log.WarnContext(ctx, "invalid PAN format", "pan", MaskPAN(req.PANNumber))
		return &Result{
			Eligible: false,
			Message:  MessageInvalidPAN,
			Reason:   ReasonInvalidPAN,
		}, nil
	}

	score := CalculateCibilScore(req.MonthlyIncome, req.LoanAmount, e.newRandom())
	log.DebugContext(ctx, "calculated CIBIL score", "cibil_score", score)

	results, err := e.gates.EvaluateAll(gateFacts(req, score))
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate rejection gates: %w", err)
	}
	gate, outcomes, err := firstGate(results)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate rejection gates: %w", err)
	}
	if gate != nil {
		log.InfoContext(ctx, "loan application rejected",
			"gate", gate.RuleID,
			"cibil_score", score,
		)
		return &Result{
			Eligible:   false,
			CibilScore: score,
			Message:    gate.Message,
			Reason:     Reason(gate.Reason),
			Gates:      outcomes,
		}, nil
	}

	amount, percentage := EligibleAmount(req.LoanAmount, req.MonthlyIncome, score)
	if percentage == 0 {
		// Only reachable with custom gates that let sub-600 scores through.
		return &Result{
			Eligible:   false,
			CibilScore: score,
			Message:    MessageLowScore,
			Reason:     ReasonLowScore,
			Gates:      outcomes,
		}, nil
	}

	log.InfoContext(ctx, "loan application approved",
		"cibil_score", score,
		"max_eligible_amount", amount,
		"eligibility_percentage", displayPercent(percentage),
	)

	return &Result{
		Eligible:          true,
		CibilScore:        score,
		MaxEligibleAmount: amount,
		Message:           ApprovalMessage(req.Name, percentage),
		Percentage:        percentage,
		Reason:            ReasonApproved,
		Gates:             outcomes,
	}, nil
}

// TierPercentage returns the share of the requested amount a score earns,
// or 0 when the score is below every tier.
func TierPercentage(score int) float64 {
	for _, t := range scoreTiers {
		if score >= t.minScore {
			return t.percentage
		}
	}
	return 0
}

// EligibleAmount applies the score tier and then the affordability cap of
// five years of income. The returned percentage reflects the cap when it
// applies. Amounts that do not fit an int64 saturate rather than wrap.
func EligibleAmount(loanAmount, monthlyIncome float64, score int) (int64, float64) {
	percentage := TierPercentage(score)
	amount := math.Floor(loanAmount * percentage)

	maxAffordable := monthlyIncome * 12 * affordabilityMultiple
	if amount > maxAffordable {
		amount = math.Floor(maxAffordable)
		percentage = maxAffordable / loanAmount
	}

	return wholeRupees(amount), percentage
}

func wholeRupees(v float64) int64 {
	switch {
	case !(v > 0): // also NaN
		return 0
	case v >= math.MaxInt64:
		return math.MaxInt64
	default:
		return int64(v)
	}
}

// ApprovalMessage builds the congratulation text shown to approved applicants.
func ApprovalMessage(name string, percentage float64) string {
	msg := fmt.Sprintf(messageApproved, name)
	if percentage < 1.0 {
		return msg + fmt.Sprintf(messagePartial, displayPercent(percentage))
	}
	return msg + messageFullAmount
}

func displayPercent(percentage float64) int {
	return int(math.Round(percentage * 100))
}

type evaluationIDKey struct{}

// WithEvaluationID returns a context carrying id for log correlation.
func WithEvaluationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, evaluationIDKey{}, id)
}

// EvaluationID returns the id stored by WithEvaluationID, or "".
func EvaluationID(ctx context.Context) string {
	id, _ := ctx.Value(evaluationIDKey{}).(string)
	return id
}
