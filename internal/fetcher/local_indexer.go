package fetcher

import (
	"context"
	"fmt"
	"time"

	"github.com/utxoracle/engine/pkg/models"
)

const (
	tier1Timeout = 5 * time.Second
	tier1Workers = 8
)

// LocalIndexerSource is Tier 1: an HTTP client against a locally-run
// transaction indexer (esplora-shape API). It is tried first because it is
// the fastest and most private option; any 5xx, timeout, or connection
// failure falls through to the next tier.
type LocalIndexerSource struct {
	http *indexerHTTPClient
}

// NewLocalIndexerSource builds a Tier-1 source against baseURL (e.g.
// "http://127.0.0.1:3000").
func NewLocalIndexerSource(baseURL string) *LocalIndexerSource {
	return &LocalIndexerSource{http: newIndexerHTTPClient(baseURL, tier1Timeout)}
}

func (s *LocalIndexerSource) FetchRecent(ctx context.Context, blockWindow int) ([]models.Transaction, error) {
	return fetchRecentBlocks(ctx, s.http, blockWindow, tier1Workers)
}

func (s *LocalIndexerSource) FetchByDate(ctx context.Context, date time.Time) ([]models.Transaction, error) {
	return fetchBlocksForDate(ctx, s.http, date, tier1Workers)
}

func (s *LocalIndexerSource) Healthcheck(ctx context.Context) error {
	var height int
	if err := s.http.getJSON(ctx, "/blocks/tip/height", &height); err != nil {
		return fmt.Errorf("local indexer unhealthy: %w", err)
	}
	return nil
}
