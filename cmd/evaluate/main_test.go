package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_Approved(t *testing.T) {
	var stdout, stderr bytes.Buffer

	code := run([]string{
		"-name", "Asha Rao",
		"-loan-amount", "500000",
		"-mobile", "9876543210",
		"-pan", "ABCDE1234F",
		"-income", "120000",
		"-seed-adjustment", "0",
	}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	var out map[string]any
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))

	assert.Equal(t, true, out["eligible"])
	assert.Equal(t, 820.0, out["cibilScore"])
	assert.Equal(t, 500000.0, out["maxEligibleAmount"])
	assert.Equal(t, "approved", out["reason"])
	assert.Equal(t, 1.0, out["percentage"])
	assert.NotEmpty(t, out["evaluationId"])
}

func TestRun_ValidationFailure(t *testing.T) {
	var stdout, stderr bytes.Buffer

	code := run([]string{
		"-name", "A",
		"-loan-amount", "500000",
		"-mobile", "1234",
		"-pan", "ABCDE1234F",
		"-income", "120000",
	}, &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.Empty(t, stdout.String())
	assert.Contains(t, stderr.String(), "Name must be between 2 and 100 characters")
	assert.Contains(t, stderr.String(), "Invalid mobile number format")
}

func TestRun_SkipFormValidation(t *testing.T) {
	var stdout, stderr bytes.Buffer

	// Below the form minimum, but the endpoint-level checks accept it.
	code := run([]string{
		"-name", "A",
		"-loan-amount", "500",
		"-mobile", "1",
		"-pan", "invalid123",
		"-income", "50000",
		"-skip-form-validation",
	}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	var out map[string]any
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
	assert.Equal(t, false, out["eligible"])
	assert.Equal(t, "invalid_pan", out["reason"])
}

func TestRun_SkipFormValidationRejectsNonPositive(t *testing.T) {
	testCases := []struct {
		name         string
		amount       string
		income       string
		wantInStderr string
	}{
		{"negative amount", "-5", "50000", "must be positive numbers"},
		{"negative income", "50000", "-1", "must be positive numbers"},
		{"NaN amount", "NaN", "50000", "must be finite numbers"},
		{"NaN income", "50000", "nan", "must be finite numbers"},
		{"infinite amount", "Inf", "50000", "must be finite numbers"},
		{"negative infinite income", "50000", "-Inf", "must be finite numbers"},
		{"amount overflows float", "1e400", "50000", "loan amount"},
		{"amount too large", "1e30", "50000", "must not exceed 9007199254740992"},
		{"income too large", "50000", "1e19", "must not exceed 9007199254740992"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer

			code := run([]string{
				"-name", "A", "-loan-amount", tc.amount, "-mobile", "1",
				"-pan", "ABCDE1234F", "-income", tc.income, "-skip-form-validation",
			}, &stdout, &stderr)

			assert.Equal(t, 1, code)
			assert.Empty(t, stdout.String())
			assert.Contains(t, stderr.String(), tc.wantInStderr)
		})
	}
}

func TestRun_Explain(t *testing.T) {
	var stdout, stderr bytes.Buffer

	code := run([]string{
		"-name", "Ravi",
		"-loan-amount", "50000",
		"-mobile", "9876543210",
		"-pan", "ABCDE1234F",
		"-income", "15000",
		"-seed-adjustment", "0",
		"-explain",
	}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	var out struct {
		Eligible bool   `json:"eligible"`
		Reason   string `json:"reason"`
		Gates    []struct {
			ID      string `json:"id"`
			Matched bool   `json:"matched"`
		} `json:"gates"`
	}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))

	assert.False(t, out.Eligible)
	assert.Equal(t, "low_score", out.Reason)
	require.Len(t, out.Gates, 1)
	assert.Equal(t, "credit-score-threshold", out.Gates[0].ID)
	assert.True(t, out.Gates[0].Matched)
}

func TestRun_GatesOmittedWithoutExplain(t *testing.T) {
	var stdout, stderr bytes.Buffer

	code := run([]string{
		"-name", "Asha Rao", "-loan-amount", "500000", "-mobile", "9876543210",
		"-pan", "ABCDE1234F", "-income", "120000",
	}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	assert.NotContains(t, stdout.String(), `"gates"`)
}

func TestRun_BadSeedAdjustment(t *testing.T) {
	var stdout, stderr bytes.Buffer

	code := run([]string{"-seed-adjustment", "21"}, &stdout, &stderr)

	assert.Equal(t, 2, code)
	assert.Contains(t, stderr.String(), "-seed-adjustment")
}
