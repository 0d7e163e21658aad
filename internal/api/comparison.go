package api

import (
	"math"

	"github.com/utxoracle/engine/pkg/models"
)

// compareSeries computes the percent-divergence and Pearson correlation
// between the UTXOracle price and the exchange price across every sample
// that has both values. Samples with no exchange price (exchange oracle was
// down that cycle) are included in the returned series but excluded from
// the statistics.
func compareSeries(samples []models.PriceSample) models.ComparisonSeries {
	var diffs, oracle, exchange []float64

	for _, s := range samples {
		if s.ExchangePrice == nil || *s.ExchangePrice <= 0 {
			continue
		}
		diffPct := (s.UTXOraclePrice - *s.ExchangePrice) / *s.ExchangePrice * 100
		diffs = append(diffs, diffPct)
		oracle = append(oracle, s.UTXOraclePrice)
		exchange = append(exchange, *s.ExchangePrice)
	}

	out := models.ComparisonSeries{Samples: samples}
	if len(diffs) == 0 {
		return out
	}

	var sum, maxAbs float64
	for _, d := range diffs {
		sum += d
		if abs := math.Abs(d); abs > maxAbs {
			maxAbs = abs
		}
	}
	out.AvgDiffPct = sum / float64(len(diffs))
	out.MaxDiffPct = maxAbs
	out.Correlation = pearsonCorrelation(oracle, exchange)
	return out
}

func pearsonCorrelation(a, b []float64) float64 {
	n := float64(len(a))
	if n == 0 {
		return 0
	}

	var sumA, sumB, sumAB, sumASq, sumBSq float64
	for i := range a {
		sumA += a[i]
		sumB += b[i]
		sumAB += a[i] * b[i]
		sumASq += a[i] * a[i]
		sumBSq += b[i] * b[i]
	}

	numerator := n*sumAB - sumA*sumB
	denominator := math.Sqrt((n*sumASq - sumA*sumA) * (n*sumBSq - sumB*sumB))
	if denominator == 0 {
		return 0
	}
	return numerator / denominator
}
