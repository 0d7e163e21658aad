package models

import "time"

// Direction classifies the probable intent of a large mempool transaction.
type Direction string

const (
	DirectionBuy     Direction = "BUY"
	DirectionSell    Direction = "SELL"
	DirectionNeutral Direction = "NEUTRAL"
)

// WhaleSignal is emitted by the WhaleStream for any unconfirmed transaction
// whose total output value clears the configured BTC threshold.
type WhaleSignal struct {
	Txid          string    `json:"txid"`
	TotalBTCValue float64   `json:"totalBtcValue"`
	TotalUSDValue float64   `json:"totalUsdValue"`
	FeeRateSatVB  float64   `json:"feeRateSatVb"`
	UrgencyScore  float64   `json:"urgencyScore"`
	Direction     Direction `json:"direction"`
	IsRBF         bool      `json:"isRbf"`
	ObservedAt    time.Time `json:"observedAt"`
}

// WhaleSummary backs GET /api/whale/latest.
type WhaleSummary struct {
	NetFlowBTC    float64 `json:"netFlowBtc"`
	Direction     Direction `json:"direction"`
	WindowMinutes int     `json:"windowMinutes"`
}
