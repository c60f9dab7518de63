package eligibility

const (
	MinCibilScore = 300
	MaxCibilScore = 900

	// maxAdjustment bounds the random score variance in both directions.
	maxAdjustment = 20
)

var incomeBrackets = []struct {
	minIncome float64
	score     int
}{
	{100000, 800},
	{75000, 750},
	{50000, 700},
	{30000, 650},
	{20000, 600},
}

const fallbackBaseScore = 550

// BaseScore returns the score for the applicant's monthly income bracket.
// Bracket lower bounds are inclusive.
func BaseScore(monthlyIncome float64) int {
	for _, b := range incomeBrackets {
		if monthlyIncome >= b.minIncome {
			return b.score
		}
	}
	return fallbackBaseScore
}

// RatioAdjustment returns the score change for a loan-to-income ratio
// (loan amount over annual income).
func RatioAdjustment(loanToIncomeRatio float64) int {
	switch {
	case loanToIncomeRatio > 3:
		return -50
	case loanToIncomeRatio > 2:
		return -30
	case loanToIncomeRatio < 1:
		return 20
	default:
		return 0
	}
}

// CalculateCibilScore simulates a credit score from income and requested
// amount. The result includes a uniform random adjustment in [-20, 20]
// drawn from rnd, so identical inputs may score differently.
func CalculateCibilScore(monthlyIncome, loanAmount float64, rnd RandomSource) int {
	score := BaseScore(monthlyIncome)
	score += RatioAdjustment(loanAmount / (monthlyIncome * 12))
	score += rnd.IntN(2*maxAdjustment+1) - maxAdjustment

	return clampScore(score)
}

func clampScore(score int) int {
	if score < MinCibilScore {
		return MinCibilScore
	}
	if score > MaxCibilScore {
		return MaxCibilScore
	}
	return score
}
