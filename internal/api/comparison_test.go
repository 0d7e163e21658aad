package api

import (
	"math"
	"testing"

	"github.com/utxoracle/engine/pkg/models"
)

func floatPtr(f float64) *float64 { return &f }

func TestCompareSeriesComputesDivergence(t *testing.T) {
	samples := []models.PriceSample{
		{UTXOraclePrice: 45000, ExchangePrice: floatPtr(45000)},
		{UTXOraclePrice: 45900, ExchangePrice: floatPtr(45000)},
		{UTXOraclePrice: 44100, ExchangePrice: floatPtr(45000)},
	}
	out := compareSeries(samples)

	if math.Abs(out.AvgDiffPct) > 0.01 {
		t.Fatalf("expected roughly zero average divergence, got %f", out.AvgDiffPct)
	}
	if math.Abs(out.MaxDiffPct-2.0) > 0.01 {
		t.Fatalf("expected max divergence of 2%%, got %f", out.MaxDiffPct)
	}
}

func TestCompareSeriesSkipsMissingExchangePrice(t *testing.T) {
	samples := []models.PriceSample{
		{UTXOraclePrice: 45000, ExchangePrice: nil},
	}
	out := compareSeries(samples)
	if out.AvgDiffPct != 0 || out.Correlation != 0 {
		t.Fatalf("expected zero-valued stats with no comparable samples, got %+v", out)
	}
	if len(out.Samples) != 1 {
		t.Fatal("expected the raw sample to still be returned")
	}
}

func TestPearsonCorrelationPerfectMatch(t *testing.T) {
	a := []float64{1, 2, 3, 4, 5}
	b := []float64{2, 4, 6, 8, 10}
	corr := pearsonCorrelation(a, b)
	if math.Abs(corr-1.0) > 1e-9 {
		t.Fatalf("expected perfect correlation, got %f", corr)
	}
}

func TestPearsonCorrelationEmptyInput(t *testing.T) {
	if corr := pearsonCorrelation(nil, nil); corr != 0 {
		t.Fatalf("expected zero correlation for empty input, got %f", corr)
	}
}
