package imagery

// Pair-matching policy constants. These thresholds are operating
// policy, not verified optima; both are overridable through
// MatchPolicy and the tuning config.
const (
	// DefaultRatioThreshold is the Lowe ratio-test bound: a nearest
	// neighbor is accepted only when it is this much closer than the
	// second-nearest.
	DefaultRatioThreshold = 0.75
	// DefaultMinGoodMatches is the accepted-match count at which two
	// images are considered stitchable.
	DefaultMinGoodMatches = 12
)

// MatchPolicy tunes when two descriptor sets count as a good pair.
type MatchPolicy struct {
	RatioThreshold float64
	MinGoodMatches int
}

// DefaultMatchPolicy returns the stock thresholds.
func DefaultMatchPolicy() MatchPolicy {
	return MatchPolicy{
		RatioThreshold: DefaultRatioThreshold,
		MinGoodMatches: DefaultMinGoodMatches,
	}
}

// PairMatcher decides whether two images are plausibly stitchable from
// their descriptor sets alone. It is symmetric: GoodPair(a, b) and
// GoodPair(b, a) always agree, because matches are accepted only when
// the two descriptors are mutual nearest neighbors and the ratio test
// passes in both directions.
//
// Missing descriptors, undersized sets, and mismatched metrics all
// resolve to "not a good pair" — never an error.
type PairMatcher struct {
	policy MatchPolicy
}

// NewPairMatcher creates a matcher with the given policy. Zero-valued
// policy fields fall back to defaults.
func NewPairMatcher(policy MatchPolicy) *PairMatcher {
	if policy.RatioThreshold <= 0 {
		policy.RatioThreshold = DefaultRatioThreshold
	}
	if policy.MinGoodMatches <= 0 {
		policy.MinGoodMatches = DefaultMinGoodMatches
	}
	return &PairMatcher{policy: policy}
}

// GoodPair reports whether the two sets share at least
// MinGoodMatches mutual ratio-test matches.
func (m *PairMatcher) GoodPair(a, b *DescriptorSet) bool {
	return m.GoodMatchCount(a, b) >= m.policy.MinGoodMatches
}

// GoodMatchCount returns the number of accepted matches between the two
// sets. Zero on any degenerate input: nil sets, sets with fewer than
// two descriptors (the ratio test needs a second neighbor), or sets
// whose metrics or descriptor widths disagree.
func (m *PairMatcher) GoodMatchCount(a, b *DescriptorSet) int {
	if a.Len() < 2 || b.Len() < 2 {
		return 0
	}
	if a.Metric != b.Metric || !compatibleWidths(a, b) {
		return 0
	}

	// Forward pass: for each descriptor in a, its ratio-tested nearest
	// neighbor in b (-1 when the test fails).
	fwd := ratioNearest(a, b, m.policy.RatioThreshold)
	// Reverse pass the other way.
	rev := ratioNearest(b, a, m.policy.RatioThreshold)

	count := 0
	for i, j := range fwd {
		if j >= 0 && rev[j] == i {
			count++
		}
	}
	return count
}

// ratioNearest finds, for every descriptor in from, its two nearest
// neighbors in to under the sets' native metric and applies Lowe's
// ratio test. Result[i] is the accepted neighbor index or -1.
func ratioNearest(from, to *DescriptorSet, ratio float64) []int {
	out := make([]int, from.Len())
	for i := range out {
		best, second := -1.0, -1.0
		bestIdx := -1
		for j := 0; j < to.Len(); j++ {
			d := from.distance(i, to, j)
			switch {
			case best < 0 || d < best:
				second = best
				best = d
				bestIdx = j
			case second < 0 || d < second:
				second = d
			}
		}
		if bestIdx >= 0 && second > 0 && best < ratio*second {
			out[i] = bestIdx
		} else {
			out[i] = -1
		}
	}
	return out
}

func compatibleWidths(a, b *DescriptorSet) bool {
	if a.Metric == MetricEuclidean {
		return len(a.Float[0]) == len(b.Float[0])
	}
	return len(a.Binary[0]) == len(b.Binary[0])
}
