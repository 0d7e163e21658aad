package whale

import (
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcutil"
)

const satoshisPerBTC = int64(btcutil.SatoshiPerBitcoin)

func TestScoreMempoolTxBelowThresholdRejected(t *testing.T) {
	tx := mempoolTx{Txid: "a", Vout: []struct {
		ValueSats int64 `json:"value"`
	}{{ValueSats: 9_999_999_900}}} // 99.999999 BTC, below 100
	_, ok := scoreMempoolTx(tx, 100, 45000, time.Now())
	if ok {
		t.Fatal("expected sub-threshold transaction to be rejected")
	}
}

func TestScoreMempoolTxAtThresholdAccepted(t *testing.T) {
	tx := mempoolTx{Txid: "b", Vout: []struct {
		ValueSats int64 `json:"value"`
	}{{ValueSats: 100 * satoshisPerBTC}}}
	signal, ok := scoreMempoolTx(tx, 100, 45000, time.Now())
	if !ok {
		t.Fatal("expected exactly-100-BTC transaction to be accepted")
	}
	if signal.TotalBTCValue != 100 {
		t.Fatalf("unexpected total btc value: %f", signal.TotalBTCValue)
	}
	if signal.TotalUSDValue != 100*45000 {
		t.Fatalf("unexpected usd value: %f", signal.TotalUSDValue)
	}
	if signal.Direction != "NEUTRAL" {
		t.Fatalf("expected NEUTRAL direction, got %s", signal.Direction)
	}
}

func TestUrgencyScoreBands(t *testing.T) {
	cases := []struct {
		feeRate float64
		wantLow bool
		wantHi  bool
	}{
		{5, true, false},
		{60, false, true},
	}
	for _, c := range cases {
		score := urgencyScore(c.feeRate)
		if c.wantLow && score >= 0.3 {
			t.Fatalf("fee rate %f: expected low band, got score %f", c.feeRate, score)
		}
		if c.wantHi && score < 0.7 {
			t.Fatalf("fee rate %f: expected high band, got score %f", c.feeRate, score)
		}
	}
}

func TestUrgencyScoreClampsToUnitRange(t *testing.T) {
	if s := urgencyScore(1000); s != 1 {
		t.Fatalf("expected clamp to 1, got %f", s)
	}
	if s := urgencyScore(-5); s != 0 {
		t.Fatalf("expected clamp to 0, got %f", s)
	}
}

func TestIsRBFDetectsSignalingSequence(t *testing.T) {
	tx := mempoolTx{Vin: []struct {
		Sequence uint32 `json:"sequence"`
	}{{Sequence: 0xfffffffd}}}
	if !tx.isRBF() {
		t.Fatal("expected sequence 0xfffffffd to signal RBF")
	}

	nonRBF := mempoolTx{Vin: []struct {
		Sequence uint32 `json:"sequence"`
	}{{Sequence: 0xffffffff}}}
	if nonRBF.isRBF() {
		t.Fatal("expected sequence 0xffffffff to not signal RBF")
	}
}
