package whale

import (
	"strconv"
	"testing"
)

func TestDedupFirstSightingAlwaysEmits(t *testing.T) {
	d := newDedup()
	if !d.shouldEmit("tx1", 20) {
		t.Fatal("expected first sighting to emit")
	}
}

func TestDedupRepeatSameFeeSuppressed(t *testing.T) {
	d := newDedup()
	d.shouldEmit("tx1", 20)
	if d.shouldEmit("tx1", 20) {
		t.Fatal("expected identical re-sighting to be suppressed")
	}
}

func TestDedupReplacementFeeChangeAboveThresholdEmits(t *testing.T) {
	d := newDedup()
	d.shouldEmit("tx1", 20)
	if !d.shouldEmit("tx1", 23) { // +15%
		t.Fatal("expected a >=10% fee change to re-emit")
	}
}

func TestDedupReplacementFeeChangeBelowThresholdSuppressed(t *testing.T) {
	d := newDedup()
	d.shouldEmit("tx1", 20)
	if d.shouldEmit("tx1", 21) { // +5%
		t.Fatal("expected a <10% fee change to stay suppressed")
	}
}

func TestDedupEvictsOldestAfterCapacity(t *testing.T) {
	d := newDedup()
	for i := 0; i < dedupCacheSize; i++ {
		d.shouldEmit(strconv.Itoa(i), 10)
	}
	if d.len() != dedupCacheSize {
		t.Fatalf("expected cache to be at capacity, got %d", d.len())
	}

	// One more distinct entry evicts the very first ("0").
	d.shouldEmit(strconv.Itoa(dedupCacheSize), 10)
	if !d.shouldEmit(strconv.Itoa(0), 10) {
		t.Fatal("expected the evicted txid to be treated as unseen again")
	}
}
