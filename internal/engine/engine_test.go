package engine

import (
	"testing"

	"github.com/utxoracle/engine/pkg/models"
)

func validOutputs() []models.TxOut {
	return []models.TxOut{
		{ValueBTC: 0.05, ScriptType: "p2wpkh"},
		{ValueBTC: 0.5, ScriptType: "p2wpkh"},
	}
}

func simpleTx(txid, prevTxid string) models.Transaction {
	return models.Transaction{
		Txid:      txid,
		Inputs:    []models.TxIn{{PrevTxid: prevTxid, PrevVout: 0}},
		Outputs:   validOutputs(),
		TotalSize: 250,
	}
}

// Property 1: determinism.
func TestComputeIsDeterministic(t *testing.T) {
	txs := []models.Transaction{
		simpleTx("tx1", "ext1"),
		simpleTx("tx2", "ext2"),
		simpleTx("tx3", "ext3"),
	}
	r1 := Compute(txs)
	r2 := Compute(txs)

	if (r1.PriceUSD == nil) != (r2.PriceUSD == nil) {
		t.Fatalf("nil-ness of price differs across runs")
	}
	if r1.PriceUSD != nil && *r1.PriceUSD != *r2.PriceUSD {
		t.Fatalf("price differs across runs: %v vs %v", *r1.PriceUSD, *r2.PriceUSD)
	}
	if r1.Confidence != r2.Confidence {
		t.Fatalf("confidence differs across runs: %v vs %v", r1.Confidence, r2.Confidence)
	}
}

// Property 2: same-day filter ordering is order-dependent and must match
// the reference's literal semantics, not a "fixed" symmetric one.
func TestSameDaySelfSpendOrdering(t *testing.T) {
	a := simpleTx("txA", "external-funding")
	b := simpleTx("txB", "txA") // B spends A's output

	diagAB := &Diagnostics{}
	outputsAB := filter([]models.Transaction{a, b}, diagAB)
	if diagAB.RejectedSameDaySpend != 1 {
		t.Fatalf("[A,B]: expected B to be rejected as self-spend, got %d rejections", diagAB.RejectedSameDaySpend)
	}
	if len(outputsAB) != len(validOutputs()) {
		t.Fatalf("[A,B]: expected only A's outputs to survive, got %d outputs", len(outputsAB))
	}

	diagBA := &Diagnostics{}
	outputsBA := filter([]models.Transaction{b, a}, diagBA)
	if diagBA.RejectedSameDaySpend != 0 {
		t.Fatalf("[B,A]: expected no self-spend rejection (A not yet seen when B is evaluated), got %d", diagBA.RejectedSameDaySpend)
	}
	if len(outputsBA) != 2*len(validOutputs()) {
		t.Fatalf("[B,A]: expected both transactions' outputs to survive, got %d outputs", len(outputsBA))
	}
}

// Property 3: round-amount suppression.
func TestRoundAmountSuppression(t *testing.T) {
	outputs := make([]float64, 10000)
	for i := range outputs {
		outputs[i] = 0.01
	}
	hist := buildHistogram(outputs)

	idx, ok := binIndex(0.01)
	if !ok {
		t.Fatalf("0.01 BTC should map to a valid bin")
	}
	if hist[idx] != 10000 {
		t.Fatalf("expected histogram spike of 10000 before suppression, got %v", hist[idx])
	}

	diag := &Diagnostics{}
	suppressMicroRoundAmounts(hist, diag)

	if hist[idx] != 0 {
		t.Fatalf("expected 0.01 BTC bin to be suppressed to zero, got %v", hist[idx])
	}
}

// Property 4: output-count gate.
func TestOutputCountGate(t *testing.T) {
	tx := models.Transaction{
		Txid:   "tx-three-outputs",
		Inputs: []models.TxIn{{PrevTxid: "ext", PrevVout: 0}},
		Outputs: []models.TxOut{
			{ValueBTC: 0.1, ScriptType: "p2wpkh"},
			{ValueBTC: 0.1, ScriptType: "p2wpkh"},
			{ValueBTC: 0.1, ScriptType: "p2wpkh"},
		},
		TotalSize: 300,
	}

	diag := &Diagnostics{}
	outputs := filter([]models.Transaction{tx}, diag)
	if len(outputs) != 0 {
		t.Fatalf("transaction with 3 outputs must contribute nothing, got %d outputs", len(outputs))
	}
	if diag.RejectedOutputCardinality != 1 {
		t.Fatalf("expected output-count rejection to be counted")
	}
}

// Property 5: range filter.
func TestOutputRangeFilter(t *testing.T) {
	tx := models.Transaction{
		Txid:   "tx-range",
		Inputs: []models.TxIn{{PrevTxid: "ext", PrevVout: 0}},
		Outputs: []models.TxOut{
			{ValueBTC: 1e-5, ScriptType: "p2wpkh"}, // boundary: excluded (strictly greater required)
			{ValueBTC: 1e5, ScriptType: "p2wpkh"},  // boundary: excluded (strictly less required)
		},
		TotalSize: 250,
	}

	diag := &Diagnostics{}
	outputs := filter([]models.Transaction{tx}, diag)
	if len(outputs) != 0 {
		t.Fatalf("boundary amounts must be excluded, got %d surviving outputs", len(outputs))
	}
	if diag.RejectedRangeFilter != 2 {
		t.Fatalf("expected both outputs rejected as out of range, got %d", diag.RejectedRangeFilter)
	}
}

// Property 6: confidence bounds.
func TestConfidenceBounds(t *testing.T) {
	cases := [][]models.Transaction{
		nil,
		{simpleTx("lonely", "ext")},
	}
	for _, txs := range cases {
		r := Compute(txs)
		if r.Confidence < 0 || r.Confidence > 1 {
			t.Fatalf("confidence out of [0,1]: %v", r.Confidence)
		}
		if r.PriceUSD == nil && r.Confidence != 0 {
			t.Fatalf("nil price must carry zero confidence, got %v", r.Confidence)
		}
	}
}

// Property 7: sanity clamp.
func TestSanityBoundsClamp(t *testing.T) {
	if !withinSanityBounds(10_000) || !withinSanityBounds(500_000) {
		t.Fatalf("inclusive bounds must be considered within range")
	}
	if withinSanityBounds(9_999) || withinSanityBounds(500_001) {
		t.Fatalf("values outside [10000,500000] must fail sanity")
	}
}

// E2E-2: empty input.
func TestComputeEmptyInput(t *testing.T) {
	r := Compute(nil)
	if r.PriceUSD != nil {
		t.Fatalf("expected nil price for empty input")
	}
	if r.Confidence != 0 {
		t.Fatalf("expected zero confidence for empty input")
	}
	if r.TxCount != 0 || r.OutputCount != 0 {
		t.Fatalf("expected zero counts for empty input, got tx=%d out=%d", r.TxCount, r.OutputCount)
	}
}

// E2E-3: all-coinbase input.
func TestComputeAllCoinbase(t *testing.T) {
	txs := make([]models.Transaction, 100)
	for i := range txs {
		txs[i] = models.Transaction{
			Txid:    "coinbase",
			Inputs:  []models.TxIn{{PrevTxid: ""}},
			Outputs: validOutputs(),
		}
	}

	r := Compute(txs)
	if r.PriceUSD != nil {
		t.Fatalf("all-coinbase batch must not produce a price")
	}
	if r.Confidence != 0 {
		t.Fatalf("expected zero confidence")
	}
	if r.OutputCount != 0 {
		t.Fatalf("expected zero surviving outputs, got %d", r.OutputCount)
	}
}

func TestIsCoinbaseHelper(t *testing.T) {
	coinbase := models.Transaction{Inputs: []models.TxIn{{PrevTxid: ""}}}
	if !coinbase.IsCoinbase() {
		t.Fatalf("empty prevTxid must be recognized as coinbase")
	}
	ordinary := models.Transaction{Inputs: []models.TxIn{{PrevTxid: "abc"}}}
	if ordinary.IsCoinbase() {
		t.Fatalf("transaction with a real prevout must not be coinbase")
	}
}
