package fetcher

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/utxoracle/engine/pkg/models"
)

const (
	tier2Timeout = 10 * time.Second
	tier2Workers = 2
	tier2RPS     = 2.0
)

// PublicIndexerSource is Tier 2: the same esplora-shape request pattern
// against a public endpoint. Disabled by default for privacy; the
// orchestrator only wires it in when PUBLIC_API_ENABLED is set. Every
// individual HTTP call, not just the first, is rate-limited, since a single
// fetch_recent call fans out into many requests.
type PublicIndexerSource struct {
	http *indexerHTTPClient
}

// NewPublicIndexerSource builds a Tier-2 source against a public indexer
// base URL (e.g. "https://mempool.space/api"), rate-limited to
// tier2RPS requests per second.
func NewPublicIndexerSource(baseURL string) *PublicIndexerSource {
	h := newIndexerHTTPClient(baseURL, tier2Timeout)
	h.limiter = rate.NewLimiter(rate.Limit(tier2RPS), 1)
	return &PublicIndexerSource{http: h}
}

func (s *PublicIndexerSource) FetchRecent(ctx context.Context, blockWindow int) ([]models.Transaction, error) {
	return fetchRecentBlocks(ctx, s.http, blockWindow, tier2Workers)
}

func (s *PublicIndexerSource) FetchByDate(ctx context.Context, date time.Time) ([]models.Transaction, error) {
	return fetchBlocksForDate(ctx, s.http, date, tier2Workers)
}

func (s *PublicIndexerSource) Healthcheck(ctx context.Context) error {
	var height int
	if err := s.http.getJSON(ctx, "/blocks/tip/height", &height); err != nil {
		return fmt.Errorf("public indexer unhealthy: %w", err)
	}
	return nil
}
