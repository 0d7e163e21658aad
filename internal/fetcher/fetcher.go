// Package fetcher implements the three-tier transaction data cascade: a
// local indexer, an optional public indexer, and a direct node RPC fallback
// that is always available. Callers see one contract regardless of which
// tier actually served the request.
package fetcher

import (
	"context"
	"errors"
	"time"

	"github.com/utxoracle/engine/pkg/models"
)

// ErrNoDataAvailable is returned when every tier in a CascadingSource fails.
// It is a sentinel, never a panic: cascade exhaustion is an expected runtime
// condition for the orchestrator to handle, not a programmer error.
var ErrNoDataAvailable = errors.New("fetcher: no data available from any tier")

// TransactionSource is the capability every tier implements. A tier never
// returns a partial result silently: either it returns the full requested
// set, or it returns an error and the caller falls through to the next tier.
type TransactionSource interface {
	// FetchRecent returns transactions from the blockWindow most recent
	// blocks, in block order then per-block index order.
	FetchRecent(ctx context.Context, blockWindow int) ([]models.Transaction, error)

	// FetchByDate returns every transaction confirmed on the given
	// calendar date (UTC), used by the orchestrator's backfill path.
	FetchByDate(ctx context.Context, date time.Time) ([]models.Transaction, error)

	// Healthcheck reports whether the tier is currently reachable, used by
	// the /health endpoint. CascadingSource does not consult it: a down
	// tier is still tried, and its timeout paid, on every cascade call.
	Healthcheck(ctx context.Context) error
}

// Diagnostics is the record shape for which tier served a cascade call, its
// latency, retry count and the tiers that failed before it. CascadingSource
// does not fill one in: it logs the serving tier and its latency itself, and
// nothing in the orchestrator or the ReadAPI reads this type.
type Diagnostics struct {
	TierServed   string        `json:"tierServed"`
	Latency      time.Duration `json:"latency"`
	RetryCount   int           `json:"retryCount"`
	TierFailures []TierFailure `json:"tierFailures,omitempty"`
}

// TierFailure records one tier's failure during a cascade attempt.
type TierFailure struct {
	Tier string `json:"tier"`
	Err  string `json:"err"`
}

// defaultRecentBlockWindow is the default N in "fetch the N most recent
// blocks", approximating 24h at Bitcoin's ~10-minute block interval.
const defaultRecentBlockWindow = 144

// DefaultRecentBlockWindow returns the default Tier-1/2/3 block window.
func DefaultRecentBlockWindow() int { return defaultRecentBlockWindow }
