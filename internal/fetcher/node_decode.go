package fetcher

import (
	"github.com/btcsuite/btcd/btcjson"

	"github.com/utxoracle/engine/pkg/models"
)

// decodeRPCBlock converts a verbosity=2 getblock response into the engine's
// canonical transaction set. Unlike the esplora tiers, getblock's vout values
// are already BTC floats, not satoshis, so there is no conversion here.
func decodeRPCBlock(block *btcjson.GetBlockVerboseTxResult, height int) []models.Transaction {
	txs := make([]models.Transaction, len(block.Tx))
	for i, raw := range block.Tx {
		txs[i] = decodeRPCTx(raw, height, block.Time)
	}
	return txs
}

func decodeRPCTx(raw btcjson.TxRawResult, height int, blockTime int64) models.Transaction {
	inputs := make([]models.TxIn, len(raw.Vin))
	for i, in := range raw.Vin {
		inputs[i] = models.TxIn{PrevTxid: in.Txid, PrevVout: in.Vout}
	}

	outputs := make([]models.TxOut, len(raw.Vout))
	for i, out := range raw.Vout {
		outputs[i] = models.TxOut{
			ValueBTC:   out.Value,
			ScriptType: normalizeRPCScriptType(out.ScriptPubKey.Type),
		}
	}

	witnessSize := 0
	weight := int(raw.Weight)
	size := int(raw.Size)
	if weight > 0 {
		witnessSize = (4*size - weight) / 3
		if witnessSize < 0 {
			witnessSize = 0
		}
	}

	return models.Transaction{
		Txid:        raw.Txid,
		Inputs:      inputs,
		Outputs:     outputs,
		Weight:      weight,
		WitnessSize: witnessSize,
		TotalSize:   size,
		BlockHeight: height,
		BlockTime:   blockTime,
	}
}

func normalizeRPCScriptType(t string) string {
	switch t {
	case "pubkeyhash":
		return "p2pkh"
	case "scripthash":
		return "p2sh"
	case "witness_v0_keyhash":
		return "p2wpkh"
	case "witness_v0_scripthash":
		return "p2wsh"
	case "witness_v1_taproot":
		return "p2tr"
	case "nulldata":
		return "op_return"
	case "":
		return "unknown"
	default:
		return t
	}
}
