package store

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
)

// BulkLoadCSV streams a CSV of (timestamp, utxoracle_price, exchange_price,
// confidence, tx_count) rows into price_samples via pgx.CopyFrom, the
// idiomatic pgx bulk-insert primitive, targeting the >=100k rows/s backfill
// ingestion rate. exchange_price may be blank for a row with no exchange
// comparison available. is_valid is recomputed from each row rather than
// read from the CSV, matching the live orchestrator's validation rule.
func (s *Store) BulkLoadCSV(ctx context.Context, r io.Reader, minConfidence, minPrice, maxPrice float64) (int64, error) {
	rows, err := parseBulkLoadCSV(r, minConfidence, minPrice, maxPrice)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	copyCount, err := s.pool.CopyFrom(
		ctx,
		pgx.Identifier{"price_samples"},
		[]string{"timestamp", "date", "utxoracle_price", "exchange_price", "confidence", "tx_count", "is_valid"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return copyCount, fmt.Errorf("store: copy from: %w", err)
	}
	return copyCount, nil
}

// parseBulkLoadCSV reads and validates every row, independent of any
// database connection, so the parsing logic is testable without a pool.
func parseBulkLoadCSV(r io.Reader, minConfidence, minPrice, maxPrice float64) ([][]any, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 5

	rows := make([][]any, 0, 1024)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("store: bulk load csv: %w", err)
		}

		unixSeconds, err := strconv.ParseInt(record[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("store: bulk load csv: bad timestamp %q: %w", record[0], err)
		}
		ts := time.Unix(unixSeconds, 0).UTC()

		price, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			return nil, fmt.Errorf("store: bulk load csv: bad price %q: %w", record[1], err)
		}

		var exchangePrice *float64
		if record[2] != "" {
			v, err := strconv.ParseFloat(record[2], 64)
			if err != nil {
				return nil, fmt.Errorf("store: bulk load csv: bad exchange price %q: %w", record[2], err)
			}
			exchangePrice = &v
		}

		confidence, err := strconv.ParseFloat(record[3], 64)
		if err != nil {
			return nil, fmt.Errorf("store: bulk load csv: bad confidence %q: %w", record[3], err)
		}

		txCount, err := strconv.Atoi(record[4])
		if err != nil {
			return nil, fmt.Errorf("store: bulk load csv: bad tx count %q: %w", record[4], err)
		}

		isValid := confidence >= minConfidence && price >= minPrice && price <= maxPrice
		date := ts.Format("2006-01-02")

		rows = append(rows, []any{ts, date, price, exchangePrice, confidence, txCount, isValid})
	}
	return rows, nil
}
