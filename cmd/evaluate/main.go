package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/liamcoop/loancheck/eligibility"
	"github.com/liamcoop/loancheck/form"
	"github.com/liamcoop/loancheck/internal/config"
	"github.com/liamcoop/loancheck/internal/logger"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type output struct {
	EvaluationID string `json:"evaluationId"`
	*eligibility.Result
	Reason     eligibility.Reason        `json:"reason"`
	Percentage float64                   `json:"percentage,omitempty"`
	Gates      []eligibility.GateOutcome `json:"gates,omitempty"`
}

func run(args []string, stdout, stderr io.Writer) int {
	var in form.Input
	var seedAdjustment string
	var skipFormValidation bool
	var explain bool
	var logLevel string

	fs := flag.NewFlagSet("evaluate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&in.Name, "name", "", "Applicant name (required)")
	fs.StringVar(&in.LoanAmount, "loan-amount", "", "Requested loan amount in rupees (required)")
	fs.StringVar(&in.MobileNumber, "mobile", "", "10-digit mobile number (required)")
	fs.StringVar(&in.PANNumber, "pan", "", "PAN, e.g. ABCDE1234F (required)")
	fs.StringVar(&in.MonthlyIncome, "income", "", "Monthly income in rupees (required)")
	fs.StringVar(&seedAdjustment, "seed-adjustment", "", "Fix the random score adjustment to N in [-20, 20] instead of drawing it")
	fs.BoolVar(&skipFormValidation, "skip-form-validation", false, "Only check that amounts are positive numbers, as the HTTP endpoint does")
	fs.BoolVar(&explain, "explain", false, "Include the outcome of each rejection gate in the output")
	fs.StringVar(&logLevel, "log-level", "warn", "Log level written to stderr")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	log, err := logger.New(config.LoggingConfig{Level: logLevel, Format: "text", ErrorSampleRate: 1}, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Invalid -log-level: %v\n", err)
		return 2
	}

	opts := []eligibility.Option{eligibility.WithLogger(log)}
	if seedAdjustment != "" {
		adj, err := strconv.Atoi(seedAdjustment)
		if err != nil || adj < -20 || adj > 20 {
			fmt.Fprintf(stderr, "Invalid -seed-adjustment %q: must be an integer between -20 and 20\n", seedAdjustment)
			return 2
		}
		opts = append(opts, eligibility.WithRandomSource(func() eligibility.RandomSource {
			return eligibility.FixedAdjustment(adj)
		}))
	}

	req, err := buildRequest(in, skipFormValidation)
	if err != nil {
		var verrs form.ValidationErrors
		if errors.As(err, &verrs) {
			fmt.Fprintln(stderr, "Validation failed:")
			writeJSON(stderr, verrs)
		} else {
			fmt.Fprintf(stderr, "Invalid input: %v\n", err)
		}
		return 1
	}

	evaluator, err := eligibility.New(opts...)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to create evaluator: %v\n", err)
		return 1
	}

	evaluationID := uuid.NewString()
	result, err := evaluator.Evaluate(eligibility.WithEvaluationID(context.Background(), evaluationID), req)
	if err != nil {
		fmt.Fprintf(stderr, "Evaluation failed: %v\n", err)
		return 1
	}

	out := output{
		EvaluationID: evaluationID,
		Result:       result,
		Reason:       result.Reason,
		Percentage:   result.Percentage,
	}
	if explain {
		out.Gates = result.Gates
	}
	writeJSON(stdout, out)
	return 0
}

// buildRequest applies the form contract, or with skip set only the checks
// the HTTP endpoint makes.
func buildRequest(in form.Input, skip bool) (eligibility.LoanRequest, error) {
	if !skip {
		return form.Validate(in)
	}

	amount, err := strconv.ParseFloat(strings.TrimSpace(in.LoanAmount), 64)
	if err != nil {
		return eligibility.LoanRequest{}, fmt.Errorf("loan amount: %w", err)
	}
	income, err := strconv.ParseFloat(strings.TrimSpace(in.MonthlyIncome), 64)
	if err != nil {
		return eligibility.LoanRequest{}, fmt.Errorf("monthly income: %w", err)
	}
	// ParseFloat accepts "NaN" and "Inf", which JSON cannot carry.
	if !isFinite(amount) || !isFinite(income) {
		return eligibility.LoanRequest{}, errors.New("loan amount and monthly income must be finite numbers")
	}
	if in.Name == "" || in.MobileNumber == "" || in.PANNumber == "" || amount == 0 || income == 0 {
		return eligibility.LoanRequest{}, errors.New("all fields (name, loan-amount, mobile, pan, income) are required")
	}
	if amount < 0 || income < 0 {
		return eligibility.LoanRequest{}, errors.New("loan amount and monthly income must be positive numbers")
	}
	if !eligibility.ValidAmount(amount) || !eligibility.ValidAmount(income) {
		return eligibility.LoanRequest{}, fmt.Errorf("loan amount and monthly income must not exceed %d", eligibility.MaxAmount)
	}

	return eligibility.LoanRequest{
		Name:          in.Name,
		LoanAmount:    amount,
		MobileNumber:  in.MobileNumber,
		PANNumber:     in.PANNumber,
		MonthlyIncome: income,
	}, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func writeJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
