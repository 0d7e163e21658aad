package models

import "time"

// PriceResult is the PriceEngine's output: a single consensus BTC/USD price
// with a confidence score and algorithm diagnostics. PriceUSD is nil iff the
// engine had insufficient data or failed to converge.
type PriceResult struct {
	PriceUSD    *float64          `json:"priceUsd"`
	Confidence  float64           `json:"confidence"`
	TxCount     int               `json:"txCount"`
	OutputCount int               `json:"outputCount"`
	Diagnostics map[string]any    `json:"diagnostics"`
}

// PriceSample is one row of the analytic store's price series.
type PriceSample struct {
	Timestamp      time.Time `json:"timestamp"`
	Date           string    `json:"date"` // YYYY-MM-DD, derived from Timestamp
	UTXOraclePrice float64   `json:"utxoraclePrice"`
	ExchangePrice  *float64  `json:"exchangePrice"`
	Confidence     float64   `json:"confidence"`
	TxCount        int       `json:"txCount"`
	IsValid        bool      `json:"isValid"`
}

// ComparisonSeries is the /api/prices/comparison response shape.
type ComparisonSeries struct {
	Samples     []PriceSample `json:"samples"`
	AvgDiffPct  float64       `json:"avgDiffPct"`
	MaxDiffPct  float64       `json:"maxDiffPct"`
	Correlation float64       `json:"correlation"`
}
