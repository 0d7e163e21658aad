package fetcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/utxoracle/engine/pkg/models"
)

type fakeSource struct {
	name       string
	recentErr  error
	dateErr    error
	healthErr  error
	recentTxs  []models.Transaction
	dateTxs    []models.Transaction
	recentCall int
}

func (f *fakeSource) FetchRecent(ctx context.Context, blockWindow int) ([]models.Transaction, error) {
	f.recentCall++
	if f.recentErr != nil {
		return nil, f.recentErr
	}
	return f.recentTxs, nil
}

func (f *fakeSource) FetchByDate(ctx context.Context, date time.Time) ([]models.Transaction, error) {
	if f.dateErr != nil {
		return nil, f.dateErr
	}
	return f.dateTxs, nil
}

func (f *fakeSource) Healthcheck(ctx context.Context) error { return f.healthErr }

func TestCascadingSourceFirstTierSucceeds(t *testing.T) {
	want := []models.Transaction{{Txid: "a"}}
	tier1 := &fakeSource{name: "tier1", recentTxs: want}
	tier2 := &fakeSource{name: "tier2", recentErr: errors.New("should not be called")}

	c := NewCascadingSource([]string{"tier1", "tier2"}, tier1, tier2)
	txs, failures, served, err := c.FetchRecent(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if served != "tier1" {
		t.Fatalf("expected tier1 to serve, got %s", served)
	}
	if len(failures) != 0 {
		t.Fatalf("expected no failures, got %v", failures)
	}
	if len(txs) != 1 || txs[0].Txid != "a" {
		t.Fatalf("unexpected txs: %v", txs)
	}
	if tier2.recentCall != 0 {
		t.Fatalf("tier2 should never have been called")
	}
}

func TestCascadingSourceFallsThroughOnFailure(t *testing.T) {
	want := []models.Transaction{{Txid: "b"}}
	tier1 := &fakeSource{name: "tier1", recentErr: errors.New("tier1 down")}
	tier2 := &fakeSource{name: "tier2", recentTxs: want}

	c := NewCascadingSource([]string{"tier1", "tier2"}, tier1, tier2)
	txs, failures, served, err := c.FetchRecent(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if served != "tier2" {
		t.Fatalf("expected tier2 to serve, got %s", served)
	}
	if len(failures) != 1 || failures[0].Tier != "tier1" {
		t.Fatalf("expected one recorded tier1 failure, got %v", failures)
	}
	if len(txs) != 1 || txs[0].Txid != "b" {
		t.Fatalf("unexpected txs: %v", txs)
	}
}

func TestCascadingSourceAllTiersFail(t *testing.T) {
	tier1 := &fakeSource{name: "tier1", recentErr: errors.New("tier1 down")}
	tier2 := &fakeSource{name: "tier2", recentErr: errors.New("tier2 down")}
	tier3 := &fakeSource{name: "tier3", recentErr: errors.New("tier3 down")}

	c := NewCascadingSource([]string{"tier1", "tier2", "tier3"}, tier1, tier2, tier3)
	txs, failures, served, err := c.FetchRecent(context.Background(), 10)
	if !errors.Is(err, ErrNoDataAvailable) {
		t.Fatalf("expected ErrNoDataAvailable, got %v", err)
	}
	if served != "" {
		t.Fatalf("expected no tier to serve, got %s", served)
	}
	if txs != nil {
		t.Fatalf("expected nil txs, got %v", txs)
	}
	if len(failures) != 3 {
		t.Fatalf("expected 3 recorded failures, got %d", len(failures))
	}
}

func TestCascadingSourceFetchByDateFallsThrough(t *testing.T) {
	want := []models.Transaction{{Txid: "c"}}
	tier1 := &fakeSource{name: "tier1", dateErr: errors.New("tier1 down")}
	tier2 := &fakeSource{name: "tier2", dateTxs: want}

	c := NewCascadingSource([]string{"tier1", "tier2"}, tier1, tier2)
	txs, failures, served, err := c.FetchByDate(context.Background(), time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if served != "tier2" {
		t.Fatalf("expected tier2 to serve, got %s", served)
	}
	if len(failures) != 1 {
		t.Fatalf("expected one failure, got %v", failures)
	}
	if len(txs) != 1 || txs[0].Txid != "c" {
		t.Fatalf("unexpected txs: %v", txs)
	}
}

func TestNormalizeScriptTypeMapping(t *testing.T) {
	cases := map[string]string{
		"v0_p2wpkh": "p2wpkh",
		"v0_p2wsh":  "p2wsh",
		"v1_p2tr":   "p2tr",
		"op_return": "op_return",
		"p2pkh":     "p2pkh",
		"":          "unknown",
	}
	for in, want := range cases {
		if got := normalizeScriptType(in); got != want {
			t.Errorf("normalizeScriptType(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeRPCScriptTypeMapping(t *testing.T) {
	cases := map[string]string{
		"pubkeyhash":            "p2pkh",
		"scripthash":            "p2sh",
		"witness_v0_keyhash":    "p2wpkh",
		"witness_v0_scripthash": "p2wsh",
		"witness_v1_taproot":    "p2tr",
		"nulldata":              "op_return",
		"":                      "unknown",
	}
	for in, want := range cases {
		if got := normalizeRPCScriptType(in); got != want {
			t.Errorf("normalizeRPCScriptType(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDecodeEsploraTxConvertsSatoshis(t *testing.T) {
	raw := esploraTx{
		Txid: "abc",
		Vin:  []esploraVin{{Txid: "prev", Vout: 0}},
		Vout: []esploraVout{{ScriptPubKeyType: "v0_p2wpkh", ValueSats: 50_000_000}},
		Size: 250,
		Weight: 560,
		Status: esploraStatus{Confirmed: true, BlockHeight: 800000, BlockTime: 1700000000},
	}
	tx := decodeEsploraTx(raw)
	if tx.Outputs[0].ValueBTC != 0.5 {
		t.Fatalf("expected 0.5 BTC, got %f", tx.Outputs[0].ValueBTC)
	}
	if tx.BlockHeight != 800000 {
		t.Fatalf("unexpected block height: %d", tx.BlockHeight)
	}
}
