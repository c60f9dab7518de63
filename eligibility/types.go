// Package eligibility decides whether an applicant qualifies for a loan,
// simulates their CIBIL score and computes the largest amount they may borrow.
package eligibility

// LoanRequest is the validated applicant data an evaluation runs on.
type LoanRequest struct {
	Name          string  `json:"name"`
	LoanAmount    float64 `json:"loanAmount"`
	MobileNumber  string  `json:"mobileNumber"`
	PANNumber     string  `json:"panNumber"`
	MonthlyIncome float64 `json:"monthlyIncome"`
}

// Reason classifies the outcome of an evaluation.
type Reason string

const (
	ReasonApproved   Reason = "approved"
	ReasonInvalidPAN Reason = "invalid_pan"
	ReasonLowScore   Reason = "low_score"
	ReasonLowIncome  Reason = "low_income"
)

// Result is the eligibility decision returned to the caller.
type Result struct {
	Eligible          bool   `json:"eligible"`
	CibilScore        int    `json:"cibilScore"`
	MaxEligibleAmount int64  `json:"maxEligibleAmount"`
	Message           string `json:"message"`

	// Percentage is the share of the requested amount granted, after the
	// affordability cap. Zero for rejections.
	Percentage float64 `json:"-"`
	Reason     Reason  `json:"-"`

	// Gates lists the rejection gates evaluated, in priority order. Nil when
	// the PAN check rejected the request before scoring.
	Gates []GateOutcome `json:"-"`
}

// GateOutcome records whether one rejection gate tripped.
type GateOutcome struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Matched bool   `json:"matched"`
}

const (
	MessageInvalidPAN = "Invalid PAN number format. Please check and try again."
	MessageLowScore   = "Your credit score is below the minimum required threshold. Please improve your credit history and try again."
	MessageLowIncome  = "Your monthly income does not meet the minimum requirement of ₹20,000."

	messageApproved   = "Congratulations %s! You are eligible for a loan."
	messagePartial    = " Based on your credit profile, you can receive up to %d%% of the requested amount."
	messageFullAmount = " You qualify for the full requested amount!"
)
