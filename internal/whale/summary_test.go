package whale

import (
	"testing"
	"time"

	"github.com/utxoracle/engine/pkg/models"
)

func TestRollingSummaryAccumulatesWithinWindow(t *testing.T) {
	r := newRollingSummary()
	now := time.Now().UTC()
	r.record(models.WhaleSignal{TotalBTCValue: 150, ObservedAt: now})
	r.record(models.WhaleSignal{TotalBTCValue: 200, ObservedAt: now})

	s := r.Summary()
	if s.NetFlowBTC != 350 {
		t.Fatalf("expected 350 BTC total, got %f", s.NetFlowBTC)
	}
	if s.Direction != models.DirectionNeutral {
		t.Fatalf("expected NEUTRAL direction, got %s", s.Direction)
	}
	if s.WindowMinutes != summaryWindowMinutes {
		t.Fatalf("unexpected window: %d", s.WindowMinutes)
	}
}

func TestRollingSummaryPrunesOldEntries(t *testing.T) {
	r := newRollingSummary()
	stale := time.Now().UTC().Add(-summaryWindowMinutes*time.Minute - time.Second)
	r.record(models.WhaleSignal{TotalBTCValue: 500, ObservedAt: stale})

	s := r.Summary()
	if s.NetFlowBTC != 0 {
		t.Fatalf("expected stale entry to be pruned, got net flow %f", s.NetFlowBTC)
	}
}
