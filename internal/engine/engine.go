package engine

import "github.com/utxoracle/engine/pkg/models"

// Compute runs the full price discovery pipeline against one batch of
// transactions (typically one day's worth) and returns a single BTC/USD
// estimate. It is pure: no I/O, no shared state, deterministic given the
// same transaction ordering.
func Compute(txs []models.Transaction) models.PriceResult {
	diag := &Diagnostics{TotalIn: len(txs)}

	outputsBTC := filter(txs, diag)
	if len(outputsBTC) == 0 {
		return failedResult(diag)
	}

	hist := buildHistogram(outputsBTC)
	suppressMicroRoundAmounts(hist, diag)

	w := roundUSDStencil()
	bestK, bestCorr := convolve(hist, w)
	diag.StencilCorrelation = bestCorr
	diag.StencilOffset = bestK

	var priceRough float64
	if bestCorr < minStencilCorrelation {
		priceRough = FallbackPriceUSD
		diag.UsedFallbackRough = true
	} else {
		priceRough = priceRoughFromOffset(bestK)
	}
	diag.PriceRoughUSD = priceRough

	// Diagnostic-only cleanup; does not affect price_rough (already fixed
	// above) or price_final (derived below from raw outputs).
	suppressWideRoundDollarAmounts(hist, priceRough)

	candidates := generateIntradayCandidates(outputsBTC, priceRough)
	diag.CandidateCount = len(candidates)

	if diag.UsedFallbackRough && len(candidates) < minCandidatesForFallbackRough {
		return failedResult(diag)
	}

	priceFinal, trimmed, ok := converge(candidates)
	diag.TrimmedCandidates = trimmed
	if !ok {
		return failedResult(diag)
	}

	confidence := confidenceScore(len(outputsBTC), len(candidates), candidates)

	diag.SanityFail = !withinSanityBounds(priceFinal)
	price := priceFinal
	return models.PriceResult{
		PriceUSD:    &price,
		Confidence:  confidence,
		TxCount:     len(txs),
		OutputCount: len(outputsBTC),
		Diagnostics: diag.AsMap(),
	}
}

// withinSanityBounds reports whether a converged price falls inside the
// documented plausibility band. A price outside it is still returned (the
// caller flags diagnostics.sanityFail instead of discarding the result), so
// downstream consumers can choose is_valid=false rather than lose the data.
func withinSanityBounds(priceUSD float64) bool {
	return priceUSD >= minPriceUSD && priceUSD <= maxPriceUSD
}

// minCandidatesForFallbackRough is the §4.1.g failure threshold: when the
// stencil found no usable signal, the price_rough fallback is only trusted
// if enough intraday candidates independently confirm it.
const minCandidatesForFallbackRough = 50

// failedResult builds the zero-confidence, nil-price result for any of the
// documented failure modes.
func failedResult(diag *Diagnostics) models.PriceResult {
	return models.PriceResult{
		PriceUSD:    nil,
		Confidence:  0,
		TxCount:     diag.TotalIn,
		OutputCount: diag.Passed,
		Diagnostics: diag.AsMap(),
	}
}
