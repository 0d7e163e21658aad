package engine

import (
	"math"
	"sort"
)

// generateIntradayCandidates scans every surviving output against the
// round-dollar target list and emits an implied price for each near-enough
// match. An output can match more than one target; all matches are kept in
// insertion order; this insertion order is later used as the deterministic
// tie-break for the trimming step.
func generateIntradayCandidates(outputsBTC []float64, priceRough float64) []float64 {
	candidates := make([]float64, 0, len(outputsBTC))
	for _, amountBTC := range outputsBTC {
		if amountBTC <= 0 {
			continue
		}
		usdValue := amountBTC * priceRough
		for _, u := range intradayRoundUSDTargets {
			lo, hi := u*(1-pctRangeWide), u*(1+pctRangeWide)
			if usdValue >= lo && usdValue <= hi {
				candidates = append(candidates, u/amountBTC)
			}
		}
	}
	return candidates
}

// candidateOrder pairs a candidate price with its original insertion index
// so a stable sort can recover deterministic ordering among equal values.
type candidateOrder struct {
	price float64
	index int
}

// converge trims the extreme 2nd/98th percentiles from the candidate list
// and returns the geometric mean (arithmetic mean in log space, exponentiated)
// of what remains. ok is false if too few candidates survive to trust the
// result.
func converge(candidates []float64) (price float64, trimmedCount int, ok bool) {
	if len(candidates) < minCandidatesForConvergence {
		return 0, 0, false
	}

	ordered := make([]candidateOrder, len(candidates))
	for i, c := range candidates {
		ordered[i] = candidateOrder{price: c, index: i}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].price != ordered[j].price {
			return ordered[i].price < ordered[j].price
		}
		return ordered[i].index < ordered[j].index
	})

	n := len(ordered)
	lowCut := int(math.Floor(float64(n) * trimPercentile))
	highCut := n - lowCut
	if highCut <= lowCut {
		return 0, 0, false
	}
	trimmed := ordered[lowCut:highCut]

	logSum := 0.0
	for _, c := range trimmed {
		logSum += math.Log10(c.price)
	}
	logMean := logSum / float64(len(trimmed))
	return math.Pow(10, logMean), n - len(trimmed), true
}

// interquartileRangeLog returns the log10-space interquartile range of the
// sorted candidate set, used as a concentration signal for confidence.
func interquartileRangeLog(candidates []float64) float64 {
	if len(candidates) < 4 {
		return math.Inf(1)
	}
	sorted := append([]float64(nil), candidates...)
	sort.Float64s(sorted)
	q1 := percentile(sorted, 0.25)
	q3 := percentile(sorted, 0.75)
	return math.Log10(q3) - math.Log10(q1)
}

// percentile returns a linearly interpolated percentile of a pre-sorted
// slice.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := p * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// confidenceScore combines output-level yield, candidate concentration, and
// absolute sample size into a single [0,1] quality estimate, the plain mean
// of the three. The size component saturates once candidate count reaches
// confidenceSaturationCount; the score as a whole reaches 1.0 only when, in
// addition, there is at least one candidate per output and the IQR is zero.
func confidenceScore(outputCount, candidateCount int, candidates []float64) float64 {
	if outputCount == 0 || candidateCount == 0 {
		return 0
	}

	yield := float64(candidateCount) / float64(outputCount)
	if yield > 1 {
		yield = 1
	}

	iqr := interquartileRangeLog(candidates)
	concentration := 1.0 / (1.0 + iqr)

	sizeScore := float64(candidateCount) / confidenceSaturationCount
	if sizeScore > 1 {
		sizeScore = 1
	}

	score := (yield + concentration + sizeScore) / 3
	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}
	return score
}

// confidenceSaturationCount is the candidate count above which the
// size-based confidence component saturates at its maximum.
const confidenceSaturationCount = 1000.0
