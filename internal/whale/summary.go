package whale

import (
	"sync"
	"time"

	"github.com/utxoracle/engine/pkg/models"
)

// summaryWindowMinutes is the rolling window GET /api/whale/latest reports
// over.
const summaryWindowMinutes = 15

// rollingSummary tracks recent signal volume for the /api/whale/latest
// endpoint. Direction is always NEUTRAL (see scoreMempoolTx); net flow is
// the total BTC value observed in whale-sized mempool transactions within
// the window, not a signed buy/sell flow.
type rollingSummary struct {
	mu      sync.Mutex
	entries []summaryEntry
}

type summaryEntry struct {
	at  time.Time
	btc float64
}

func newRollingSummary() *rollingSummary {
	return &rollingSummary{}
}

func (r *rollingSummary) record(signal models.WhaleSignal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, summaryEntry{at: signal.ObservedAt, btc: signal.TotalBTCValue})
	r.prune(signal.ObservedAt)
}

// prune drops entries older than the window, called under the lock from
// record and Summary so the backing slice never grows unbounded even
// during a quiet period with few new signals.
func (r *rollingSummary) prune(now time.Time) {
	cutoff := now.Add(-summaryWindowMinutes * time.Minute)
	kept := r.entries[:0]
	for _, e := range r.entries {
		if e.at.After(cutoff) {
			kept = append(kept, e)
		}
	}
	r.entries = kept
}

func (r *rollingSummary) Summary() models.WhaleSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prune(time.Now().UTC())

	var total float64
	for _, e := range r.entries {
		total += e.btc
	}
	return models.WhaleSummary{
		NetFlowBTC:    total,
		Direction:     models.DirectionNeutral,
		WindowMinutes: summaryWindowMinutes,
	}
}
