// Package store wraps the analytic Postgres database: the price_samples
// history, intraday candidate points, and raw whale signals.
package store

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/utxoracle/engine/pkg/models"
)

// Store wraps a pgx connection pool. A Store always points at exactly one
// of primaryDSN or backupDSN; OpenOrFallback records which one succeeded so
// callers can tell whether they are writing to the backup.
type Store struct {
	pool       *pgxpool.Pool
	usingBackup bool
}

// Connect opens a pool against dsn and verifies it with a ping.
func Connect(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: unable to connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping failed: %w", err)
	}
	log.Println("store: connected to analytic database")
	return &Store{pool: pool}, nil
}

// OpenOrFallback tries primaryDSN first and, on any failure, backupDSN.
// The backup database is expected to be an atomic, periodically refreshed
// copy of the primary; writes during a primary outage land there instead of
// being silently dropped.
func OpenOrFallback(ctx context.Context, primaryDSN, backupDSN string) (*Store, error) {
	s, err := Connect(ctx, primaryDSN)
	if err == nil {
		return s, nil
	}
	log.Printf("store: primary unreachable (%v), falling back to backup", err)

	if backupDSN == "" {
		return nil, fmt.Errorf("store: primary unreachable and no backup configured: %w", err)
	}
	s, backupErr := Connect(ctx, backupDSN)
	if backupErr != nil {
		return nil, fmt.Errorf("store: both primary and backup unreachable: primary=%v backup=%w", err, backupErr)
	}
	s.usingBackup = true
	log.Println("store: writing to backup database")
	return s, nil
}

// UsingBackup reports whether this Store is currently backed by the backup
// DSN rather than the primary.
func (s *Store) UsingBackup() bool { return s.usingBackup }

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// InitSchema loads and executes schema.sql, creating tables idempotently.
func (s *Store) InitSchema(ctx context.Context, schemaPath string) error {
	schemaBytes, err := os.ReadFile(schemaPath)
	if err != nil {
		return fmt.Errorf("store: read schema file: %w", err)
	}
	if _, err := s.pool.Exec(ctx, string(schemaBytes)); err != nil {
		return fmt.Errorf("store: exec schema: %w", err)
	}
	log.Println("store: schema initialized")
	return nil
}

// Append inserts one completed cycle's price sample. A conflict on the
// unique timestamp is treated as a no-op rather than an error: a repeated
// cycle for an already-written timestamp is expected after orchestrator
// restarts, not a programmer error.
func (s *Store) Append(ctx context.Context, sample models.PriceSample) error {
	const sql = `
		INSERT INTO price_samples (timestamp, date, utxoracle_price, exchange_price, confidence, tx_count, is_valid)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (timestamp) DO NOTHING;
	`
	_, err := s.pool.Exec(ctx, sql,
		sample.Timestamp, sample.Date, sample.UTXOraclePrice, sample.ExchangePrice,
		sample.Confidence, sample.TxCount, sample.IsValid,
	)
	if err != nil {
		return fmt.Errorf("store: append sample: %w", err)
	}
	return nil
}

// Latest returns the most recently written price sample.
func (s *Store) Latest(ctx context.Context) (models.PriceSample, error) {
	const sql = `
		SELECT timestamp, date, utxoracle_price, exchange_price, confidence, tx_count, is_valid
		FROM price_samples
		ORDER BY timestamp DESC
		LIMIT 1;
	`
	var sample models.PriceSample
	err := s.pool.QueryRow(ctx, sql).Scan(
		&sample.Timestamp, &sample.Date, &sample.UTXOraclePrice, &sample.ExchangePrice,
		&sample.Confidence, &sample.TxCount, &sample.IsValid,
	)
	if err != nil {
		return models.PriceSample{}, fmt.Errorf("store: latest: %w", err)
	}
	return sample, nil
}

// Range returns samples within [from, to], most recent first, bounded by
// limit (0 means no cap). Mirrors the teacher's count-then-page pattern,
// collapsed to a single ordered scan since the ReadAPI needs the series, not
// a total count.
func (s *Store) Range(ctx context.Context, fromUnix, toUnix int64, limit int) ([]models.PriceSample, error) {
	sql := `
		SELECT timestamp, date, utxoracle_price, exchange_price, confidence, tx_count, is_valid
		FROM price_samples
		WHERE timestamp >= to_timestamp($1) AND timestamp <= to_timestamp($2)
		ORDER BY timestamp DESC
	`
	args := []any{fromUnix, toUnix}
	if limit > 0 {
		sql += " LIMIT $3"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("store: range query: %w", err)
	}
	defer rows.Close()

	samples := make([]models.PriceSample, 0)
	for rows.Next() {
		var sample models.PriceSample
		if err := rows.Scan(
			&sample.Timestamp, &sample.Date, &sample.UTXOraclePrice, &sample.ExchangePrice,
			&sample.Confidence, &sample.TxCount, &sample.IsValid,
		); err != nil {
			return nil, fmt.Errorf("store: range scan: %w", err)
		}
		samples = append(samples, sample)
	}
	return samples, rows.Err()
}

// DistinctDates returns every calendar date with at least one sample,
// ascending, used by gap detection to find missing days.
func (s *Store) DistinctDates(ctx context.Context) ([]string, error) {
	const sql = `SELECT DISTINCT date::text FROM price_samples ORDER BY date ASC;`
	rows, err := s.pool.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("store: distinct dates: %w", err)
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("store: distinct dates scan: %w", err)
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

// Gaps returns every calendar date in [from, to] (inclusive, YYYY-MM-DD)
// with no sample, used to drive the orchestrator's budgeted backfill.
func (s *Store) Gaps(ctx context.Context, from, to string) ([]string, error) {
	const sql = `
		SELECT d::date::text
		FROM generate_series($1::date, $2::date, interval '1 day') AS d
		LEFT JOIN price_samples ps ON ps.date = d::date
		WHERE ps.date IS NULL
		ORDER BY d ASC;
	`
	rows, err := s.pool.Query(ctx, sql, from, to)
	if err != nil {
		return nil, fmt.Errorf("store: gaps query: %w", err)
	}
	defer rows.Close()

	var gaps []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("store: gaps scan: %w", err)
		}
		gaps = append(gaps, d)
	}
	return gaps, rows.Err()
}

// AppendWhaleSignal persists a detected whale transaction. Duplicate txids
// (e.g. a replaced RBF transaction re-detected) are ignored.
func (s *Store) AppendWhaleSignal(ctx context.Context, signal models.WhaleSignal) error {
	const sql = `
		INSERT INTO whale_signals (txid, detected_at, total_btc_value, usd_value, direction, urgency)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (txid) DO NOTHING;
	`
	_, err := s.pool.Exec(ctx, sql,
		signal.Txid, signal.ObservedAt, signal.TotalBTCValue, signal.TotalUSDValue,
		string(signal.Direction), signal.UrgencyScore,
	)
	if err != nil {
		return fmt.Errorf("store: append whale signal: %w", err)
	}
	return nil
}

// AppendIntradayPoints persists one cycle's surviving intraday candidates,
// used for offline inspection of the engine's convergence behavior.
func (s *Store) AppendIntradayPoints(ctx context.Context, timestamp int64, priceUSD float64, amountsBTC []float64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: begin intraday points: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const sql = `INSERT INTO intraday_points (timestamp, price_usd, amount_btc) VALUES (to_timestamp($1), $2, $3);`
	for _, amount := range amountsBTC {
		if _, err := tx.Exec(ctx, sql, timestamp, priceUSD, amount); err != nil {
			return fmt.Errorf("store: insert intraday point: %w", err)
		}
	}
	return tx.Commit(ctx)
}
