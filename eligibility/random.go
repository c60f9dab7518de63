package eligibility

import "math/rand/v2"

// RandomSource yields uniformly distributed integers in [0, n).
// *rand.Rand from math/rand/v2 satisfies it.
type RandomSource interface {
	IntN(n int) int
}

// NewRandomSource returns a freshly seeded generator. The evaluator calls it
// once per evaluation, so no generator state is shared between requests.
func NewRandomSource() RandomSource {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// FixedAdjustment returns a source that always produces the given score
// adjustment (clamped to [-20, 20]).
func FixedAdjustment(adjustment int) RandomSource {
	return fixedSource(adjustment)
}

type fixedSource int

func (f fixedSource) IntN(n int) int {
	v := int(f) + (n-1)/2
	if v < 0 {
		return 0
	}
	if v > n-1 {
		return n - 1
	}
	return v
}
