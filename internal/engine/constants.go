// Package engine implements UTXOracle's price discovery algorithm: a pure,
// deterministic function from a day's filtered transaction set to a single
// BTC/USD estimate. It performs no I/O and holds no state between calls.
package engine

import "math"

const (
	// logMin and logMax bound the BTC amount histogram in log10 space:
	// 10^logMin to 10^logMax BTC per output.
	logMin = -6
	logMax = 6

	// binsPerDecade controls the histogram's log-resolution: each decade of
	// BTC amounts is divided into this many bins.
	binsPerDecade = 200

	numDecades = logMax - logMin
	numBins    = numDecades * binsPerDecade // 2400

	// FallbackPriceUSD is used as price_rough when the stencil convolution
	// produces no usable peak (e.g. too few outputs for a signal to form).
	// It is a fixed literal, not re-tuned and not validated against
	// long-term drift of the market price.
	FallbackPriceUSD = 100000.0

	// pctRangeWide is the fractional tolerance used when matching an
	// output's implied USD value against a round-dollar target during
	// intraday candidate generation.
	pctRangeWide = 0.25

	// minOutputAmountBTC and maxOutputAmountBTC bound the per-output range
	// filter; outputs outside this range carry no price information (dust
	// or whale-sized settlement, neither of which is a retail round-dollar
	// payment).
	minOutputAmountBTC = 1e-5
	maxOutputAmountBTC = 1e5

	// minPriceUSD and maxPriceUSD are the sanity clamp applied to the final
	// converged price; a result outside this band is still returned, with
	// the SanityFail diagnostic set.
	minPriceUSD = 10_000.0
	maxPriceUSD = 500_000.0

	// maxInputCount bounds the input cardinality filter: transactions with
	// more inputs are more likely consolidations or exchange batch payouts,
	// not simple retail spends.
	maxInputCount = 5

	// requiredOutputCount is the output cardinality filter: a simple payment
	// plus change has exactly two outputs.
	requiredOutputCount = 2

	// epsMicro is the fractional half-width of the exclusion band placed
	// around each literal micro round-BTC amount during noise suppression.
	epsMicro = 0.005

	// minCandidatesForConvergence is the minimum number of intraday price
	// candidates required before a geometric-median convergence is
	// attempted; below this, the result is reported with zero confidence
	// and a nil price.
	minCandidatesForConvergence = 20

	// trimPercentile is the fraction trimmed from each tail of the sorted
	// candidate list before taking the geometric mean.
	trimPercentile = 0.02
)

// microRoundAmountsBTC lists literal round BTC amounts that recur constantly
// in on-chain data for reasons unrelated to price (exchange housekeeping,
// dust consolidation, faucet payouts) and would otherwise appear as false
// spikes in the amount histogram.
var microRoundAmountsBTC = []float64{
	0.0001, 0.0005,
	0.001, 0.002, 0.005,
	0.01, 0.02, 0.025, 0.05,
	0.1, 0.2, 0.25, 0.5,
	1.0,
}

// intradayRoundUSDTargets is the canonical list of round-dollar amounts used
// both for the wide histogram suppression pass and for intraday price
// candidate generation. It is the common "1-2-5" currency series over four
// decades, the same denominations a retail payment is actually priced in.
var intradayRoundUSDTargets = []float64{
	5, 10, 20, 50,
	100, 200, 500,
	1000, 2000, 5000,
	10000,
}

// binIndex maps a BTC amount to its histogram bin. ok is false if the amount
// falls outside [10^logMin, 10^logMax).
func binIndex(amountBTC float64) (idx int, ok bool) {
	if amountBTC <= 0 {
		return 0, false
	}
	l := math.Log10(amountBTC)
	if l < logMin || l >= logMax {
		return 0, false
	}
	idx = int(math.Floor(binsPerDecade * (l - logMin)))
	if idx < 0 || idx >= numBins {
		return 0, false
	}
	return idx, true
}

// binCenterAmount returns the BTC amount at the center of bin idx, the
// inverse of binIndex for diagnostic/display purposes.
func binCenterAmount(idx int) float64 {
	l := logMin + (float64(idx)+0.5)/binsPerDecade
	return math.Pow(10, l)
}
