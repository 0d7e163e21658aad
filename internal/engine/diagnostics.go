package engine

// Diagnostics records the engine's intermediate counters for one Compute
// call. It is attached to the result for observability and is never read
// back in by the engine itself.
type Diagnostics struct {
	TotalIn                   int     `json:"totalIn"`
	RejectedCoinbase          int     `json:"rejectedCoinbase"`
	RejectedOpReturn          int     `json:"rejectedOpReturn"`
	RejectedInputCardinality  int     `json:"rejectedInputCardinality"`
	RejectedOutputCardinality int     `json:"rejectedOutputCardinality"`
	RejectedWitnessBloat      int     `json:"rejectedWitnessBloat"`
	RejectedSameDaySpend      int     `json:"rejectedSameDaySpend"`
	RejectedRangeFilter       int     `json:"rejectedRangeFilter"`
	Passed                    int     `json:"passed"`
	MicroSuppressedBins       int     `json:"microSuppressedBins"`
	PriceRoughUSD             float64 `json:"priceRoughUsd"`
	UsedFallbackRough         bool    `json:"usedFallbackRough"`
	StencilCorrelation        float64 `json:"stencilCorrelation"`
	StencilOffset             int     `json:"stencilOffset"`
	CandidateCount            int     `json:"candidateCount"`
	TrimmedCandidates         int     `json:"trimmedCandidates"`
	SanityFail                bool    `json:"sanityFail"`
}

// AsMap converts the diagnostics into the untyped form carried by
// models.PriceResult.
func (d Diagnostics) AsMap() map[string]any {
	return map[string]any{
		"totalIn":                   d.TotalIn,
		"rejectedCoinbase":          d.RejectedCoinbase,
		"rejectedOpReturn":          d.RejectedOpReturn,
		"rejectedInputCardinality":  d.RejectedInputCardinality,
		"rejectedOutputCardinality": d.RejectedOutputCardinality,
		"rejectedWitnessBloat":      d.RejectedWitnessBloat,
		"rejectedSameDaySpend":      d.RejectedSameDaySpend,
		"rejectedRangeFilter":       d.RejectedRangeFilter,
		"passed":                    d.Passed,
		"microSuppressedBins":       d.MicroSuppressedBins,
		"priceRoughUsd":             d.PriceRoughUSD,
		"usedFallbackRough":         d.UsedFallbackRough,
		"stencilCorrelation":        d.StencilCorrelation,
		"stencilOffset":             d.StencilOffset,
		"candidateCount":            d.CandidateCount,
		"trimmedCandidates":         d.TrimmedCandidates,
		"sanityFail":                d.SanityFail,
	}
}
