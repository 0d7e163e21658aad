package engine

import "github.com/utxoracle/engine/pkg/models"

// filter applies the six per-transaction rules and the per-output range
// filter, accumulating rejection counts into diag. It returns the BTC
// amounts of every surviving output, in transaction/output order.
//
// The same-day self-spend set is owned entirely by this call: built fresh,
// grown in accept/reject order, and discarded on return. No state survives
// across invocations.
func filter(txs []models.Transaction, diag *Diagnostics) []float64 {
	seen := make(map[string]bool, len(txs))
	outputs := make([]float64, 0, len(txs)*2)

	for _, tx := range txs {
		if tx.IsCoinbase() {
			diag.RejectedCoinbase++
			continue
		}
		if len(tx.Inputs) > maxInputCount {
			diag.RejectedInputCardinality++
			continue
		}
		if len(tx.Outputs) != requiredOutputCount {
			diag.RejectedOutputCardinality++
			continue
		}
		if tx.HasOpReturn() {
			diag.RejectedOpReturn++
			continue
		}
		if tx.WitnessDominant() {
			diag.RejectedWitnessBloat++
			continue
		}

		selfSpend := false
		for _, in := range tx.Inputs {
			if seen[in.PrevTxid] {
				selfSpend = true
				break
			}
		}
		if selfSpend {
			diag.RejectedSameDaySpend++
			// The transaction itself is still inserted below: a rejected
			// transaction's own outputs can still be spent same-day by a
			// later transaction in the batch, and that later spend must
			// also be caught.
			seen[tx.Txid] = true
			continue
		}
		seen[tx.Txid] = true

		for _, out := range tx.Outputs {
			if out.ValueBTC > minOutputAmountBTC && out.ValueBTC < maxOutputAmountBTC {
				outputs = append(outputs, out.ValueBTC)
			} else {
				diag.RejectedRangeFilter++
			}
		}
	}

	diag.Passed = len(outputs)
	return outputs
}
