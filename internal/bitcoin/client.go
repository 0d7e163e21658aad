// Package bitcoin wraps a Bitcoin Core JSON-RPC connection, the Tier-3 data
// source the fetch cascade falls back to when no indexer is reachable.
package bitcoin

import (
	"encoding/json"
	"log"
	"math"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/rpcclient"
)

// Config holds the connection parameters for a node's RPC interface.
// Authentication is cookie-based when User/Pass are left empty and CookiePath
// is set; rpcclient reads the cookie file itself.
type Config struct {
	Host       string
	User       string
	Pass       string
	CookiePath string
	DisableTLS bool
}

// Client is a thin wrapper over rpcclient.Client, exposing only the RPCs the
// price-discovery system needs: chain navigation, transaction decoding, and
// fee estimation.
type Client struct {
	RPC    *rpcclient.Client
	Config Config
}

// NewClient dials the node and verifies liveness with a single
// getblockcount call before returning.
func NewClient(cfg Config) (*Client, error) {
	connCfg := &rpcclient.ConnConfig{
		Host:         cfg.Host,
		User:         cfg.User,
		Pass:         cfg.Pass,
		CookiePath:   cfg.CookiePath,
		HTTPPostMode: true,
		DisableTLS:   cfg.DisableTLS,
	}

	log.Printf("bitcoin: connecting to RPC at %s", cfg.Host)
	client, err := rpcclient.New(connCfg, nil)
	if err != nil {
		return nil, err
	}

	blockCount, err := client.GetBlockCount()
	if err != nil {
		client.Shutdown()
		return nil, err
	}
	log.Printf("bitcoin: connected, tip height %d", blockCount)

	return &Client{RPC: client, Config: cfg}, nil
}

// Shutdown closes the underlying RPC connection.
func (c *Client) Shutdown() {
	c.RPC.Shutdown()
}

// GetBlockCount returns the current chain tip height, used by the Tier-3
// fetcher to resolve "N most recent blocks" into an explicit height range.
func (c *Client) GetBlockCount() (int64, error) {
	return c.RPC.GetBlockCount()
}

// GetBlockHash resolves a height to its block hash.
func (c *Client) GetBlockHash(blockHeight int64) (*chainhash.Hash, error) {
	return c.RPC.GetBlockHash(blockHeight)
}

// GetBlockVerboseTx fetches a block at verbosity=2: full decoded
// transactions with their outputs, the shape the fetcher's Tier-3 source
// converts directly into the canonical models.Transaction form.
func (c *Client) GetBlockVerboseTx(blockHash *chainhash.Hash) (*btcjson.GetBlockVerboseTxResult, error) {
	return c.RPC.GetBlockVerboseTx(blockHash)
}

// GetRawTransaction fetches and decodes a single transaction by hash.
func (c *Client) GetRawTransaction(txHash *chainhash.Hash) (*btcjson.TxRawResult, error) {
	return c.RPC.GetRawTransactionVerbose(txHash)
}

// GetRawMempool lists the txids currently in the node's mempool.
func (c *Client) GetRawMempool() ([]string, error) {
	hashes, err := c.RPC.GetRawMempool()
	if err != nil {
		return nil, err
	}
	result := make([]string, len(hashes))
	for i, hash := range hashes {
		result[i] = hash.String()
	}
	return result, nil
}

// GetRawMempoolVerbose returns fee/size detail for every mempool entry.
// btcjson.GetRawMempoolVerboseResult expects a `fee` field, while modern
// Bitcoin Core nests it under `fees.base`; backfill Fee from there when the
// top-level field is absent so downstream fee-rate math stays correct.
func (c *Client) GetRawMempoolVerbose() (map[string]btcjson.GetRawMempoolVerboseResult, error) {
	rawResp, err := c.RPC.RawRequest("getrawmempool", []json.RawMessage{json.RawMessage(`true`)})
	if err != nil {
		return nil, err
	}

	verbose := make(map[string]btcjson.GetRawMempoolVerboseResult)
	if err := json.Unmarshal(rawResp, &verbose); err != nil {
		return nil, err
	}

	var modern map[string]struct {
		Fee  float64 `json:"fee"`
		Fees struct {
			Base float64 `json:"base"`
		} `json:"fees"`
	}
	if err := json.Unmarshal(rawResp, &modern); err == nil {
		for txid, entry := range verbose {
			if entry.Fee > 0 {
				continue
			}
			raw := modern[txid]
			switch {
			case raw.Fees.Base > 0:
				entry.Fee = raw.Fees.Base
			case raw.Fee > 0:
				entry.Fee = raw.Fee
			}
			verbose[txid] = entry
		}
	}

	return verbose, nil
}

// GetBlockChainInfo reports chain sync status.
func (c *Client) GetBlockChainInfo() (*btcjson.GetBlockChainInfoResult, error) {
	return c.RPC.GetBlockChainInfo()
}

func (c *Client) estimateSmartFeeByMode(confTarget int64, mode *btcjson.EstimateSmartFeeMode) (float64, error) {
	res, err := c.RPC.EstimateSmartFee(confTarget, mode)
	if err != nil {
		return 0, err
	}
	if res == nil || res.FeeRate == nil || !isFinitePositive(*res.FeeRate) {
		return 0, nil
	}
	return *res.FeeRate, nil
}

func (c *Client) getMempoolFeeFloorBTCPerKVb() (float64, error) {
	rawResp, err := c.RPC.RawRequest("getmempoolinfo", nil)
	if err != nil {
		return 0, err
	}

	var mempool struct {
		MempoolMinFee float64 `json:"mempoolminfee"`
		MinRelayTxFee float64 `json:"minrelaytxfee"`
	}
	if err := json.Unmarshal(rawResp, &mempool); err != nil {
		return 0, err
	}

	floor := mempool.MempoolMinFee
	if mempool.MinRelayTxFee > floor {
		floor = mempool.MinRelayTxFee
	}
	if !isFinitePositive(floor) {
		return 0, nil
	}
	return floor, nil
}

func isFinitePositive(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}

// BTCPerKVbToSatPerVB converts a BTC/kvB fee rate (the node's native unit)
// into sat/vB, the unit the whale stream's urgency score is expressed in.
func BTCPerKVbToSatPerVB(v float64) float64 {
	return v * 100_000
}

// EstimateSmartFee returns a BTC/kvB fee estimate for confirmation within
// confTarget blocks, falling back through CONSERVATIVE, ECONOMICAL, and
// finally the node's mempool minimum fee floor.
func (c *Client) EstimateSmartFee(confTarget int64) (float64, error) {
	conservative := btcjson.EstimateModeConservative
	if fee, err := c.estimateSmartFeeByMode(confTarget, &conservative); err == nil && fee > 0 {
		return fee, nil
	}

	economical := btcjson.EstimateModeEconomical
	if fee, err := c.estimateSmartFeeByMode(confTarget, &economical); err == nil && fee > 0 {
		return fee, nil
	}

	return c.getMempoolFeeFloorBTCPerKVb()
}

// EstimateSmartFeeSatVB is EstimateSmartFee converted to sat/vB.
func (c *Client) EstimateSmartFeeSatVB(confTarget int64) (float64, error) {
	feeBTCPerKVb, err := c.EstimateSmartFee(confTarget)
	if err != nil {
		return 0, err
	}
	return BTCPerKVbToSatPerVB(feeBTCPerKVb), nil
}
