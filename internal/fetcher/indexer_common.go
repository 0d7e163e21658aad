package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/utxoracle/engine/pkg/models"
)

// esplora-shape wire types: the local and public indexer tiers share an
// identical JSON response shape (tip height/hash, block txid lists, full
// transaction decode), so both tiers decode through these same structs.

type esploraVin struct {
	Txid       string `json:"txid"`
	Vout       uint32 `json:"vout"`
	IsCoinbase bool   `json:"is_coinbase"`
}

type esploraVout struct {
	ScriptPubKeyType string `json:"scriptpubkey_type"`
	ValueSats        int64  `json:"value"`
}

type esploraStatus struct {
	Confirmed   bool  `json:"confirmed"`
	BlockHeight int   `json:"block_height"`
	BlockTime   int64 `json:"block_time"`
}

type esploraTx struct {
	Txid   string        `json:"txid"`
	Vin    []esploraVin  `json:"vin"`
	Vout   []esploraVout `json:"vout"`
	Size   int           `json:"size"`   // total serialized size, including witness
	Weight int           `json:"weight"` // BIP 141 weight units
	Status esploraStatus `json:"status"`
}

// decodeEsploraTx converts one indexer transaction response into the
// engine's canonical Transaction, performing the satoshi→BTC conversion.
func decodeEsploraTx(raw esploraTx) models.Transaction {
	inputs := make([]models.TxIn, len(raw.Vin))
	for i, in := range raw.Vin {
		inputs[i] = models.TxIn{PrevTxid: in.Txid, PrevVout: in.Vout}
	}

	outputs := make([]models.TxOut, len(raw.Vout))
	for i, out := range raw.Vout {
		outputs[i] = models.TxOut{
			ValueBTC:   btcutil.Amount(out.ValueSats).ToBTC(),
			ScriptType: normalizeScriptType(out.ScriptPubKeyType),
		}
	}

	witnessSize := 0
	if raw.Weight > 0 {
		// BIP 141: weight = 3*strippedSize + totalSize, so
		// witnessSize = totalSize - strippedSize = (4*totalSize - weight)/3.
		witnessSize = (4*raw.Size - raw.Weight) / 3
		if witnessSize < 0 {
			witnessSize = 0
		}
	}

	return models.Transaction{
		Txid:        raw.Txid,
		Inputs:      inputs,
		Outputs:     outputs,
		Weight:      raw.Weight,
		WitnessSize: witnessSize,
		TotalSize:   raw.Size,
		BlockHeight: raw.Status.BlockHeight,
		BlockTime:   raw.Status.BlockTime,
	}
}

func normalizeScriptType(t string) string {
	switch t {
	case "op_return":
		return "op_return"
	case "v0_p2wpkh":
		return "p2wpkh"
	case "v0_p2wsh":
		return "p2wsh"
	case "v1_p2tr":
		return "p2tr"
	case "p2pkh", "p2sh":
		return t
	case "":
		return "unknown"
	default:
		return t
	}
}

// indexerHTTPClient is the shared request/decode plumbing for both HTTP
// tiers. Each call gets its own timeout-bound context derived from the
// caller's context so a slow indexer never blocks past its own tier budget.
// limiter is nil for Tier 1 (no client-side limit) and set for Tier 2.
type indexerHTTPClient struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

func newIndexerHTTPClient(baseURL string, timeout time.Duration) *indexerHTTPClient {
	return &indexerHTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (h *indexerHTTPClient) getJSON(ctx context.Context, path string, out any) error {
	if h.limiter != nil {
		if err := h.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("indexer: build request %s: %w", path, err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("indexer: request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("indexer: %s returned %d", path, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("indexer: %s returned unexpected status %d", path, resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func (h *indexerHTTPClient) getText(ctx context.Context, path string) (string, error) {
	if h.limiter != nil {
		if err := h.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+path, nil)
	if err != nil {
		return "", fmt.Errorf("indexer: build request %s: %w", path, err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("indexer: request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return "", fmt.Errorf("indexer: %s returned %d", path, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("indexer: %s returned unexpected status %d", path, resp.StatusCode)
	}

	buf := make([]byte, 0, 80)
	chunk := make([]byte, 80)
	for {
		n, readErr := resp.Body.Read(chunk)
		buf = append(buf, chunk[:n]...)
		if readErr != nil {
			break
		}
	}
	return string(buf), nil
}

// fetchRecentBlocks is the shared Tier-1/Tier-2 algorithm: resolve the tip
// height, walk back blockWindow blocks, and fetch every transaction in each,
// bounded by a worker pool so one slow transaction doesn't serialize the
// whole window.
func fetchRecentBlocks(ctx context.Context, h *indexerHTTPClient, blockWindow int, workers int) ([]models.Transaction, error) {
	var tipHeight int
	if err := h.getJSON(ctx, "/blocks/tip/height", &tipHeight); err != nil {
		return nil, err
	}

	startHeight := tipHeight - blockWindow + 1
	if startHeight < 0 {
		startHeight = 0
	}

	allTxs := make([]models.Transaction, 0, blockWindow*2000)
	for height := startHeight; height <= tipHeight; height++ {
		hash, err := h.getText(ctx, fmt.Sprintf("/block-height/%d", height))
		if err != nil {
			return nil, err
		}

		var txids []string
		if err := h.getJSON(ctx, fmt.Sprintf("/block/%s/txids", hash), &txids); err != nil {
			return nil, err
		}

		txs, err := fetchTransactions(ctx, h, txids, workers)
		if err != nil {
			return nil, err
		}
		allTxs = append(allTxs, txs...)
	}

	return allTxs, nil
}

// maxDateWalkBlocks bounds how far back fetchBlocksForDate will walk from
// the chain tip looking for a target date, a safety backstop against an
// indexer returning implausible block times.
const maxDateWalkBlocks = 20000

// fetchBlocksForDate walks back from the chain tip until it finds blocks
// whose timestamp falls on date (UTC), collecting every transaction in that
// day's blocks. Blocks are produced at irregular real-world intervals, so
// the day boundary is determined from each block's own timestamp rather
// than assumed from height.
func fetchBlocksForDate(ctx context.Context, h *indexerHTTPClient, date time.Time, workers int) ([]models.Transaction, error) {
	var tipHeight int
	if err := h.getJSON(ctx, "/blocks/tip/height", &tipHeight); err != nil {
		return nil, err
	}

	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)

	var allTxs []models.Transaction
	seenAnyInDay := false

	for height, walked := tipHeight, 0; height >= 0 && walked < maxDateWalkBlocks; height, walked = height-1, walked+1 {
		hash, err := h.getText(ctx, fmt.Sprintf("/block-height/%d", height))
		if err != nil {
			return nil, err
		}

		var header struct {
			Timestamp int64 `json:"timestamp"`
		}
		if err := h.getJSON(ctx, fmt.Sprintf("/block/%s", hash), &header); err != nil {
			return nil, err
		}
		blockTime := time.Unix(header.Timestamp, 0).UTC()

		if blockTime.Before(dayStart) {
			if seenAnyInDay {
				break
			}
			continue
		}
		if !blockTime.Before(dayEnd) {
			continue // block is after the target day; keep walking back
		}

		seenAnyInDay = true
		var txids []string
		if err := h.getJSON(ctx, fmt.Sprintf("/block/%s/txids", hash), &txids); err != nil {
			return nil, err
		}
		txs, err := fetchTransactions(ctx, h, txids, workers)
		if err != nil {
			return nil, err
		}
		allTxs = append(allTxs, txs...)
	}

	return allTxs, nil
}

// fetchTransactions fetches each txid's full transaction with bounded
// concurrency, preserving block-index order in the returned slice. The first
// failure cancels every other in-flight fetch.
func fetchTransactions(ctx context.Context, h *indexerHTTPClient, txids []string, workers int) ([]models.Transaction, error) {
	results := make([]models.Transaction, len(txids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, txid := range txids {
		i, txid := i, txid
		g.Go(func() error {
			var raw esploraTx
			if err := h.getJSON(gctx, "/tx/"+txid, &raw); err != nil {
				return err
			}
			results[i] = decodeEsploraTx(raw)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
