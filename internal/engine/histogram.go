package engine

// buildHistogram bins surviving output amounts into the log-BTC grid.
func buildHistogram(outputsBTC []float64) []float64 {
	h := make([]float64, numBins)
	for _, a := range outputsBTC {
		if idx, ok := binIndex(a); ok {
			h[idx]++
		}
	}
	return h
}

// suppressMicroRoundAmounts zeroes every histogram bin within epsMicro of a
// literal micro round-BTC amount. Every interval is processed independently;
// overlapping intervals near decade boundaries are expected and harmless.
func suppressMicroRoundAmounts(h []float64, diag *Diagnostics) {
	for _, r := range microRoundAmountsBTC {
		lo, hi := r*(1-epsMicro), r*(1+epsMicro)
		loIdx, loOK := binIndex(lo)
		hiIdx, hiOK := binIndex(hi)
		if !loOK {
			loIdx = 0
		}
		if !hiOK {
			hiIdx = numBins - 1
		}
		for i := loIdx; i <= hiIdx && i < numBins; i++ {
			if i < 0 {
				continue
			}
			if h[i] != 0 {
				diag.MicroSuppressedBins++
			}
			h[i] = 0
		}
	}
}

// suppressWideRoundDollarAmounts zeroes histogram bins around the BTC
// amounts implied by the round-dollar target list at a known price. This is
// a diagnostic cleanup pass only: price_rough has already been computed from
// the micro-suppressed histogram (§4.1.d), and price_final is derived
// directly from per-output USD values rather than from the histogram
// (§4.1.e), so this pass does not feed back into either.
func suppressWideRoundDollarAmounts(h []float64, priceUSD float64) {
	if priceUSD <= 0 {
		return
	}
	for _, u := range intradayRoundUSDTargets {
		center := u / priceUSD
		lo, hi := center*(1-pctRangeWide), center*(1+pctRangeWide)
		loIdx, loOK := binIndex(lo)
		hiIdx, hiOK := binIndex(hi)
		if !loOK {
			loIdx = 0
		}
		if !hiOK {
			hiIdx = numBins - 1
		}
		for i := loIdx; i <= hiIdx && i < numBins; i++ {
			if i < 0 {
				continue
			}
			h[i] = 0
		}
	}
}
