package orchestrator

import (
	"reflect"
	"testing"
)

func TestMissingDatesSingleGap(t *testing.T) {
	existing := []string{"2026-01-01", "2026-01-02", "2026-01-04"}
	gaps, err := missingDates(existing, "2026-01-01", "2026-01-04")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"2026-01-03"}
	if !reflect.DeepEqual(gaps, want) {
		t.Fatalf("got %v, want %v", gaps, want)
	}
}

func TestMissingDatesNoGaps(t *testing.T) {
	existing := []string{"2026-01-01", "2026-01-02", "2026-01-03"}
	gaps, err := missingDates(existing, "2026-01-01", "2026-01-03")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gaps) != 0 {
		t.Fatalf("expected no gaps, got %v", gaps)
	}
}

func TestMissingDatesEntireRangeMissing(t *testing.T) {
	gaps, err := missingDates(nil, "2026-01-01", "2026-01-03")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"2026-01-01", "2026-01-02", "2026-01-03"}
	if !reflect.DeepEqual(gaps, want) {
		t.Fatalf("got %v, want %v", gaps, want)
	}
}
