package whale

import lru "github.com/hashicorp/golang-lru/v2"

// dedupCacheSize bounds the LRU's memory footprint; the spec fixes this at
// 10,000 entries (property 13: the 10,001st distinct txid evicts the 1st).
const dedupCacheSize = 10_000

// minReplacementFeeDeltaPct is the minimum fee-rate change, as a fraction of
// the previously seen rate, required to re-broadcast an already-seen txid.
const minReplacementFeeDeltaPct = 0.10

// dedup tracks which txids have already been broadcast and at what fee
// rate, so an RBF replacement only triggers a second broadcast when its fee
// moved enough to matter. It is only ever touched from the stream's single
// receive loop, so it needs no lock (spec §5 shared-resource policy).
type dedup struct {
	cache *lru.Cache[string, float64]
}

func newDedup() *dedup {
	cache, err := lru.New[string, float64](dedupCacheSize)
	if err != nil {
		// Only returns an error for a non-positive size, which is a
		// programmer error here, not a runtime condition.
		panic(err)
	}
	return &dedup{cache: cache}
}

// shouldEmit reports whether txid at feeRateSatVB should be broadcast: true
// the first time a txid is seen, or on a later sighting (an RBF
// replacement) whose fee rate changed by at least 10%.
func (d *dedup) shouldEmit(txid string, feeRateSatVB float64) bool {
	prevRate, seen := d.cache.Get(txid)
	d.cache.Add(txid, feeRateSatVB)
	if !seen {
		return true
	}
	if prevRate == 0 {
		return feeRateSatVB != 0
	}
	delta := (feeRateSatVB - prevRate) / prevRate
	if delta < 0 {
		delta = -delta
	}
	return delta >= minReplacementFeeDeltaPct
}

func (d *dedup) len() int { return d.cache.Len() }
