package fetcher

import (
	"context"
	"fmt"
	"time"

	"github.com/utxoracle/engine/internal/bitcoin"
	"github.com/utxoracle/engine/pkg/models"
)

// NodeRPCSource is Tier 3: a direct JSON-RPC connection to a full node. It
// must always be available; a failure at this tier is fatal to the cascade
// rather than something to fall further through.
type NodeRPCSource struct {
	client *bitcoin.Client
}

// NewNodeRPCSource wraps an already-connected node client.
func NewNodeRPCSource(client *bitcoin.Client) *NodeRPCSource {
	return &NodeRPCSource{client: client}
}

func (s *NodeRPCSource) FetchRecent(ctx context.Context, blockWindow int) ([]models.Transaction, error) {
	tip, err := s.client.GetBlockCount()
	if err != nil {
		return nil, fmt.Errorf("node rpc: get block count: %w", err)
	}

	startHeight := tip - int64(blockWindow) + 1
	if startHeight < 0 {
		startHeight = 0
	}

	var all []models.Transaction
	for height := startHeight; height <= tip; height++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		txs, err := s.fetchBlock(height)
		if err != nil {
			return nil, err
		}
		all = append(all, txs...)
	}
	return all, nil
}

func (s *NodeRPCSource) FetchByDate(ctx context.Context, date time.Time) ([]models.Transaction, error) {
	tip, err := s.client.GetBlockCount()
	if err != nil {
		return nil, fmt.Errorf("node rpc: get block count: %w", err)
	}

	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)

	var all []models.Transaction
	seenAnyInDay := false

	for height := tip; height >= 0; height-- {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		hash, err := s.client.GetBlockHash(height)
		if err != nil {
			return nil, fmt.Errorf("node rpc: get block hash %d: %w", height, err)
		}
		block, err := s.client.GetBlockVerboseTx(hash)
		if err != nil {
			return nil, fmt.Errorf("node rpc: get block %s: %w", hash, err)
		}
		blockTime := time.Unix(block.Time, 0).UTC()

		if blockTime.Before(dayStart) {
			if seenAnyInDay {
				break
			}
			continue
		}
		if !blockTime.Before(dayEnd) {
			continue
		}

		seenAnyInDay = true
		all = append(all, decodeRPCBlock(block, int(height))...)
	}
	return all, nil
}

func (s *NodeRPCSource) Healthcheck(ctx context.Context) error {
	if _, err := s.client.GetBlockCount(); err != nil {
		return fmt.Errorf("node rpc unhealthy: %w", err)
	}
	return nil
}

func (s *NodeRPCSource) fetchBlock(height int64) ([]models.Transaction, error) {
	hash, err := s.client.GetBlockHash(height)
	if err != nil {
		return nil, fmt.Errorf("node rpc: get block hash %d: %w", height, err)
	}
	block, err := s.client.GetBlockVerboseTx(hash)
	if err != nil {
		return nil, fmt.Errorf("node rpc: get block %s: %w", hash, err)
	}
	return decodeRPCBlock(block, int(height)), nil
}
