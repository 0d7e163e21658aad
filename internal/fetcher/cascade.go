package fetcher

import (
	"context"
	"log"
	"time"

	"github.com/utxoracle/engine/pkg/models"
)

// CascadingSource holds an ordered list of tiers and iterates on failure,
// preserving the contract shared by every tier: FetchRecent/FetchByDate
// either returns the full set or fails with ErrNoDataAvailable once every
// tier has been exhausted.
type CascadingSource struct {
	tiers []TransactionSource
	names []string
}

// NewCascadingSource builds a cascade from tiers in priority order. The
// names slice must be parallel to tiers and is used purely for diagnostics
// and log messages.
func NewCascadingSource(names []string, tiers ...TransactionSource) *CascadingSource {
	return &CascadingSource{tiers: tiers, names: names}
}

// FetchRecent tries each tier in order, returning the first success.
func (c *CascadingSource) FetchRecent(ctx context.Context, blockWindow int) ([]models.Transaction, []TierFailure, string, error) {
	var failures []TierFailure
	for i, tier := range c.tiers {
		start := time.Now()
		txs, err := tier.FetchRecent(ctx, blockWindow)
		if err == nil {
			log.Printf("fetcher: tier %s served fetch_recent(%d) in %s", c.names[i], blockWindow, time.Since(start))
			return txs, failures, c.names[i], nil
		}
		log.Printf("fetcher: tier %s failed fetch_recent: %v", c.names[i], err)
		failures = append(failures, TierFailure{Tier: c.names[i], Err: err.Error()})
	}
	return nil, failures, "", ErrNoDataAvailable
}

// FetchByDate tries each tier in order for a specific calendar date, used by
// the orchestrator's backfill path.
func (c *CascadingSource) FetchByDate(ctx context.Context, date time.Time) ([]models.Transaction, []TierFailure, string, error) {
	var failures []TierFailure
	for i, tier := range c.tiers {
		start := time.Now()
		txs, err := tier.FetchByDate(ctx, date)
		if err == nil {
			log.Printf("fetcher: tier %s served fetch_by_date(%s) in %s", c.names[i], date.Format("2006-01-02"), time.Since(start))
			return txs, failures, c.names[i], nil
		}
		log.Printf("fetcher: tier %s failed fetch_by_date(%s): %v", c.names[i], date.Format("2006-01-02"), err)
		failures = append(failures, TierFailure{Tier: c.names[i], Err: err.Error()})
	}
	return nil, failures, "", ErrNoDataAvailable
}
