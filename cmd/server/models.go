package main

import (
	"github.com/liamcoop/loancheck/eligibility"
)

// API Request and Response Models with Swagger annotations

// EligibilityRequest represents the request body for an eligibility check.
// Fields are pointers so that absent and null values can be told apart from
// the values a client actually sent.
type EligibilityRequest struct {
	Name          *string  `json:"name" example:"Asha Rao"`
	LoanAmount    *float64 `json:"loanAmount" example:"500000"`
	MobileNumber  *string  `json:"mobileNumber" example:"9876543210"`
	PANNumber     *string  `json:"panNumber" example:"ABCDE1234F"`
	MonthlyIncome *float64 `json:"monthlyIncome" example:"120000"`
} // @name EligibilityRequest

// missingFields reports whether any field is absent, null, empty or zero.
func (r *EligibilityRequest) missingFields() bool {
	return emptyString(r.Name) ||
		zeroNumber(r.LoanAmount) ||
		emptyString(r.MobileNumber) ||
		emptyString(r.PANNumber) ||
		zeroNumber(r.MonthlyIncome)
}

// loanRequest must only be called once missingFields has returned false.
func (r *EligibilityRequest) loanRequest() eligibility.LoanRequest {
	return eligibility.LoanRequest{
		Name:          *r.Name,
		LoanAmount:    *r.LoanAmount,
		MobileNumber:  *r.MobileNumber,
		PANNumber:     *r.PANNumber,
		MonthlyIncome: *r.MonthlyIncome,
	}
}

func emptyString(s *string) bool { return s == nil || *s == "" }

func zeroNumber(f *float64) bool { return f == nil || *f == 0 }

// EligibilityResponse represents the eligibility decision
type EligibilityResponse struct {
	Eligible          bool   `json:"eligible" example:"true"`
	CibilScore        int    `json:"cibilScore" example:"820"`
	MaxEligibleAmount int64  `json:"maxEligibleAmount" example:"500000"`
	Message           string `json:"message" example:"Congratulations Asha Rao! You are eligible for a loan. You qualify for the full requested amount!"`
} // @name EligibilityResponse

// ValidationResponse represents a form that passed every check
type ValidationResponse struct {
	Valid bool `json:"valid" example:"true"`
} // @name ValidationResponse

// ValidationErrorResponse lists the first problem found with each field
type ValidationErrorResponse struct {
	Error   string            `json:"error" example:"Validation Failed"`
	Message string            `json:"message" example:"Invalid input data"`
	Errors  map[string]string `json:"errors"`
} // @name ValidationErrorResponse

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error" example:"Missing required fields"`
	Details string `json:"details,omitempty" example:"All fields (name, loanAmount, mobileNumber, panNumber, monthlyIncome) are required"`
} // @name ErrorResponse

// HealthResponse represents the health check response
type HealthResponse struct {
	Status      string `json:"status" example:"healthy"`
	GatesLoaded int    `json:"gatesLoaded" example:"2"`
} // @name HealthResponse
