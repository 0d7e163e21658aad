package store

import (
	"strings"
	"testing"
)

func TestParseBulkLoadCSVValidRows(t *testing.T) {
	csv := "1700000000,45000.5,45010.0,0.9,1200\n1700086400,46000.0,,0.2,50\n"
	rows, err := parseBulkLoadCSV(strings.NewReader(csv), 0.3, 10000, 500000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	first := rows[0]
	if first[2].(float64) != 45000.5 {
		t.Fatalf("unexpected price: %v", first[2])
	}
	if first[4].(float64) != 0.9 {
		t.Fatalf("unexpected confidence: %v", first[4])
	}
	if !first[6].(bool) {
		t.Fatalf("expected first row to be valid")
	}

	second := rows[1]
	if second[3] != nil {
		t.Fatalf("expected nil exchange price, got %v", second[3])
	}
	if second[6].(bool) {
		t.Fatalf("expected second row to be invalid (confidence below threshold)")
	}
}

func TestParseBulkLoadCSVRejectsMalformedRow(t *testing.T) {
	csv := "not-a-timestamp,45000.5,45010.0,0.9,1200\n"
	if _, err := parseBulkLoadCSV(strings.NewReader(csv), 0.3, 10000, 500000); err == nil {
		t.Fatal("expected an error for a malformed timestamp")
	}
}

func TestParseBulkLoadCSVEmptyInput(t *testing.T) {
	rows, err := parseBulkLoadCSV(strings.NewReader(""), 0.3, 10000, 500000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected 0 rows, got %d", len(rows))
	}
}
