// Package form enforces the applicant form contract on raw string input and
// converts accepted input into an eligibility.LoanRequest.
package form

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/liamcoop/loancheck/eligibility"
)

// Input is the applicant form as typed by the user.
type Input struct {
	Name          string `json:"name" validate:"required,min=2,max=100,alphaspace"`
	LoanAmount    string `json:"loanAmount" validate:"required,numeric,numgte=10000,numlte=10000000"`
	MobileNumber  string `json:"mobileNumber" validate:"required,mobile"`
	PANNumber     string `json:"panNumber" validate:"required,pan"`
	MonthlyIncome string `json:"monthlyIncome" validate:"required,numeric,numgte=5000,numlte=9007199254740992"`
}

// ValidationErrors maps a JSON field name to the first problem found with it.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+v[f])
	}
	return "invalid form: " + strings.Join(parts, "; ")
}

var (
	namePattern   = regexp.MustCompile(`^[A-Za-z ]+$`)
	mobilePattern = regexp.MustCompile(`^[6-9][0-9]{9}$`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	mustRegister(v, "alphaspace", func(fl validator.FieldLevel) bool {
		return namePattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "mobile", func(fl validator.FieldLevel) bool {
		return mobilePattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "pan", func(fl validator.FieldLevel) bool {
		return eligibility.IsValidPAN(fl.Field().String())
	})
	mustRegister(v, "numgte", numericBound(func(v, bound float64) bool { return v >= bound }))
	mustRegister(v, "numlte", numericBound(func(v, bound float64) bool { return v <= bound }))

	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("form: register %s: %v", tag, err))
	}
}

func numericBound(cmp func(v, bound float64) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		// Out-of-range input parses to ±Inf, which the bound then judges.
		value, err := strconv.ParseFloat(fl.Field().String(), 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return false
		}
		bound, err := strconv.ParseFloat(fl.Param(), 64)
		if err != nil {
			return false
		}
		return cmp(value, bound)
	}
}

// Normalize trims every field and upper-cases the PAN, as the form does
// while the user types.
func Normalize(in Input) Input {
	return Input{
		Name:          strings.TrimSpace(in.Name),
		LoanAmount:    strings.TrimSpace(in.LoanAmount),
		MobileNumber:  strings.TrimSpace(in.MobileNumber),
		PANNumber:     strings.ToUpper(strings.TrimSpace(in.PANNumber)),
		MonthlyIncome: strings.TrimSpace(in.MonthlyIncome),
	}
}

// Validate normalizes in, checks it against the form contract and converts
// it to a LoanRequest. Contract violations are returned as ValidationErrors.
func Validate(in Input) (eligibility.LoanRequest, error) {
	in = Normalize(in)

	if err := validate.Struct(in); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return eligibility.LoanRequest{}, fmt.Errorf("failed to validate form: %w", err)
		}

		out := make(ValidationErrors, len(fieldErrs))
		for _, fe := range fieldErrs {
			out[fe.Field()] = message(fe.Field(), fe.Tag())
		}
		return eligibility.LoanRequest{}, out
	}

	// Both parse: the numeric tag has already accepted them.
	loanAmount, _ := strconv.ParseFloat(in.LoanAmount, 64)
	monthlyIncome, _ := strconv.ParseFloat(in.MonthlyIncome, 64)

	return eligibility.LoanRequest{
		Name:          in.Name,
		LoanAmount:    loanAmount,
		MobileNumber:  in.MobileNumber,
		PANNumber:     in.PANNumber,
		MonthlyIncome: monthlyIncome,
	}, nil
}

var messages = map[string]map[string]string{
	"name": {
		"required":   "Name is required",
		"min":        "Name must be between 2 and 100 characters",
		"max":        "Name must be between 2 and 100 characters",
		"alphaspace": "Name can only contain letters and spaces",
	},
	"loanAmount": {
		"required": "Loan amount is required",
		"numeric":  "Loan amount must be a number",
		"numgte":   "Minimum loan amount is ₹10,000",
		"numlte":   "Maximum loan amount is ₹1,00,00,000",
	},
	"mobileNumber": {
		"required": "Mobile number is required",
		"mobile":   "Invalid mobile number format",
	},
	"panNumber": {
		"required": "PAN number is required",
		"pan":      "Invalid PAN number format",
	},
	"monthlyIncome": {
		"required": "Monthly income is required",
		"numeric":  "Monthly income must be a number",
		"numgte":   "Minimum monthly income is ₹5,000",
		"numlte":   "Monthly income is too large",
	},
}

func message(field, tag string) string {
	if msg, ok := messages[field][tag]; ok {
		return msg
	}
	return fmt.Sprintf("failed %s validation", tag)
}
