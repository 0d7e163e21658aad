package whale

import (
	"time"

	"github.com/btcsuite/btcd/btcutil"

	"github.com/utxoracle/engine/pkg/models"
)

// rbfSequenceCeiling is the BIP 125 threshold: any input with nSequence at
// or below this value signals the transaction is replaceable.
const rbfSequenceCeiling = 0xfffffffd

// mempoolTx is the esplora-shape WebSocket payload for one unconfirmed
// transaction, mirroring the fields the fetcher's indexer tiers already
// decode from the same indexer's REST API.
type mempoolTx struct {
	Txid string `json:"txid"`
	Vin  []struct {
		Sequence uint32 `json:"sequence"`
	} `json:"vin"`
	Vout []struct {
		ValueSats int64 `json:"value"`
	} `json:"vout"`
	Fee    int64 `json:"fee"`    // satoshis
	Weight int   `json:"weight"` // BIP 141 weight units
}

func (tx mempoolTx) totalBTCValue() float64 {
	var total int64
	for _, out := range tx.Vout {
		total += out.ValueSats
	}
	return btcutil.Amount(total).ToBTC()
}

func (tx mempoolTx) vsize() float64 {
	if tx.Weight <= 0 {
		return 1
	}
	return float64(tx.Weight+3) / 4
}

func (tx mempoolTx) feeRateSatVB() float64 {
	return float64(tx.Fee) / tx.vsize()
}

func (tx mempoolTx) isRBF() bool {
	for _, in := range tx.Vin {
		if in.Sequence <= rbfSequenceCeiling {
			return true
		}
	}
	return false
}

// urgencyScore maps a fee rate to [0, 1] via clip(feeRate/50, 0, 1). The
// piecewise low/medium/high bands in the spec fall out of this formula
// directly (<10 → [0, 0.2), 10..50 → [0.2, 1), >50 → 1) without needing a
// separate branch per band.
func urgencyScore(feeRateSatVB float64) float64 {
	score := feeRateSatVB / 50.0
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// scoreMempoolTx converts one raw mempool message into a WhaleSignal, or
// reports ok=false if it doesn't clear the minimum total value threshold.
// priceUSD is the latest engine price used only to convert BTC to a display
// USD value; direction is always NEUTRAL since classifying buy/sell
// requires an exchange-address oracle this system doesn't have.
func scoreMempoolTx(tx mempoolTx, thresholdBTC, priceUSD float64, observedAt time.Time) (models.WhaleSignal, bool) {
	total := tx.totalBTCValue()
	if total < thresholdBTC {
		return models.WhaleSignal{}, false
	}

	feeRate := tx.feeRateSatVB()
	signal := models.WhaleSignal{
		Txid:          tx.Txid,
		TotalBTCValue: total,
		TotalUSDValue: total * priceUSD,
		FeeRateSatVB:  feeRate,
		UrgencyScore:  urgencyScore(feeRate),
		Direction:     models.DirectionNeutral,
		IsRBF:         tx.isRBF(),
		ObservedAt:    observedAt,
	}
	return signal, true
}
