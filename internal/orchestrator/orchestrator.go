// Package orchestrator drives periodic PriceEngine cycles: fetch, compute,
// validate, persist, and opportunistically repair gaps in the analytic
// store's history.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/utxoracle/engine/internal/engine"
	"github.com/utxoracle/engine/internal/exchange"
	"github.com/utxoracle/engine/internal/fetcher"
	"github.com/utxoracle/engine/internal/store"
	"github.com/utxoracle/engine/pkg/models"
)

// CycleState names a state in the per-cycle state machine. Every non-IDLE
// state other than DONE/FAILED is reachable only while the instance lock is
// held; FAILED is reachable from any other state and always precedes lock
// release.
type CycleState string

const (
	StateIdle         CycleState = "IDLE"
	StateLockAcquired CycleState = "LOCK_ACQUIRED"
	StateFetching     CycleState = "FETCHING"
	StateComputing    CycleState = "COMPUTING"
	StateValidating   CycleState = "VALIDATING"
	StateWriting      CycleState = "WRITING"
	StateBackfill     CycleState = "BACKFILL"
	StateDone         CycleState = "DONE"
	StateFailed       CycleState = "FAILED"
)

const (
	recentBlockWindow = 144
	cycleDeadline     = 8 * time.Minute
)

// Orchestrator holds every collaborator a cycle needs. Config values that
// affect cycle behavior are copied in at construction so a running
// Orchestrator's behavior doesn't shift under a config hot-reload.
type Orchestrator struct {
	fetcher  *fetcher.CascadingSource
	engine   func([]models.Transaction) models.PriceResult
	store    *store.Store
	exchange *exchange.Oracle
	alerts   AlertSink

	lock *instanceLock

	confidenceThreshold float64
	minPriceUSD         float64
	maxPriceUSD         float64
	backfillBudget      int
	backfillWorkers     int
	gapAlertThreshold   int

	state CycleState
}

// Config collects the tunables a New call needs, mirroring the subset of
// config.Config the orchestrator actually consumes.
type Config struct {
	LockFilePath        string
	ConfidenceThreshold float64
	MinPriceUSD         float64
	MaxPriceUSD         float64
	BackfillBudget      int
	BackfillWorkers     int
	GapAlertThreshold   int
}

func New(cascade *fetcher.CascadingSource, st *store.Store, oracle *exchange.Oracle, alerts AlertSink, cfg Config) *Orchestrator {
	return &Orchestrator{
		fetcher:             cascade,
		engine:              engine.Compute,
		store:               st,
		exchange:            oracle,
		alerts:              alerts,
		lock:                newInstanceLock(cfg.LockFilePath),
		confidenceThreshold: cfg.ConfidenceThreshold,
		minPriceUSD:         cfg.MinPriceUSD,
		maxPriceUSD:         cfg.MaxPriceUSD,
		backfillBudget:      cfg.BackfillBudget,
		backfillWorkers:     cfg.BackfillWorkers,
		gapAlertThreshold:   cfg.GapAlertThreshold,
		state:               StateIdle,
	}
}

// State reports the current cycle state, safe to poll from the health
// endpoint.
func (o *Orchestrator) State() CycleState { return o.state }

// RunLoop runs cycles on a fixed period until ctx is cancelled. A cycle that
// overruns the period is simply followed immediately by the next tick rather
// than queued; a missed period is logged, never queued.
func (o *Orchestrator) RunLoop(ctx context.Context, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("orchestrator: run loop stopped")
			return
		case <-ticker.C:
			start := time.Now()
			if err := o.RunOnce(ctx); err != nil {
				log.Printf("orchestrator: cycle error: %v", err)
			}
			if elapsed := time.Since(start); elapsed > period {
				log.Printf("orchestrator: cycle took %s, longer than the %s period; missed periods are skipped", elapsed, period)
			}
		}
	}
}

// RunOnce executes exactly one cycle, end to end, including budgeted
// backfill. It is the body of `orchestrator once` and of each RunLoop tick.
func (o *Orchestrator) RunOnce(ctx context.Context) error {
	cycleCtx, cancel := context.WithTimeout(ctx, cycleDeadline)
	defer cancel()

	if err := o.lock.TryAcquire(); err != nil {
		if errors.Is(err, ErrLockContended) {
			log.Println("orchestrator: another cycle holds the lock, skipping")
		}
		return err
	}
	o.state = StateLockAcquired
	defer func() {
		o.lock.Release()
		o.state = StateIdle
	}()

	if err := o.runCurrentCycle(cycleCtx); err != nil {
		o.state = StateFailed
		return err
	}

	if err := o.runBackfill(cycleCtx); err != nil {
		// Backfill failures don't invalidate the current-cycle write that
		// already landed; log and surface, but the cycle overall succeeded.
		log.Printf("orchestrator: backfill error: %v", err)
	}

	o.state = StateDone
	return nil
}

// runCurrentCycle implements steps 3-6: parallel fetch, compute, validate,
// write; the gap query of step 2 runs later, in runBackfill. A failure at any point discards the in-progress sample
// rather than writing a partial one.
func (o *Orchestrator) runCurrentCycle(ctx context.Context) error {
	o.state = StateFetching

	var txs []models.Transaction
	var exchangePrice float64
	var exchangeErr error

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fetched, _, _, err := o.fetcher.FetchRecent(gctx, recentBlockWindow)
		if err != nil {
			return fmt.Errorf("orchestrator: fetch recent: %w", err)
		}
		txs = fetched
		return nil
	})
	g.Go(func() error {
		price, err := o.exchange.FetchLatestUSDPrice(gctx)
		exchangePrice = price
		exchangeErr = err
		return nil // exchange failure is tolerated, never fails the cycle
	})

	if err := g.Wait(); err != nil {
		return err
	}
	if exchangeErr != nil {
		log.Printf("orchestrator: exchange oracle unavailable: %v", exchangeErr)
	}

	o.state = StateComputing
	result := o.engine(txs)

	o.state = StateValidating
	now := time.Now().UTC()
	sample := o.toSample(result, exchangePrice, exchangeErr, now)

	o.state = StateWriting
	if err := o.store.Append(ctx, sample); err != nil {
		return fmt.Errorf("orchestrator: store append: %w", err)
	}
	return nil
}

// toSample applies the validation rule (spec step 5) and assembles the
// store row for one cycle's result.
func (o *Orchestrator) toSample(result models.PriceResult, exchangePrice float64, exchangeErr error, timestamp time.Time) models.PriceSample {
	var exchangePtr *float64
	if exchangeErr == nil {
		exchangePtr = &exchangePrice
	}

	sample := models.PriceSample{
		Timestamp:     timestamp,
		Date:          timestamp.Format(dateLayout),
		ExchangePrice: exchangePtr,
		Confidence:    result.Confidence,
		TxCount:       result.TxCount,
	}

	if result.PriceUSD == nil {
		sample.IsValid = false
		return sample
	}
	sample.UTXOraclePrice = *result.PriceUSD

	sanityFail, _ := result.Diagnostics["sanityFail"].(bool)
	sample.IsValid = result.Confidence >= o.confidenceThreshold &&
		*result.PriceUSD >= o.minPriceUSD && *result.PriceUSD <= o.maxPriceUSD &&
		!sanityFail
	return sample
}

// runBackfill implements steps 2 and 7-8: gap detection against the store's
// recorded date range, then a budgeted, bounded-concurrency repair pass.
func (o *Orchestrator) runBackfill(ctx context.Context) error {
	o.state = StateBackfill

	dates, err := o.store.DistinctDates(ctx)
	if err != nil {
		return fmt.Errorf("orchestrator: distinct dates: %w", err)
	}
	if len(dates) == 0 {
		return nil
	}

	yesterday := time.Now().UTC().AddDate(0, 0, -1).Format(dateLayout)
	gaps, err := missingDates(dates, dates[0], yesterday)
	if err != nil {
		return fmt.Errorf("orchestrator: compute gaps: %w", err)
	}
	if len(gaps) == 0 {
		return nil
	}

	if len(gaps) > o.gapAlertThreshold {
		o.alerts.Emit(gapBacklogAlert(len(gaps), o.gapAlertThreshold))
	}

	budget := gaps
	if o.backfillBudget < len(budget) {
		budget = budget[:o.backfillBudget]
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.backfillWorkers)
	for _, dateStr := range budget {
		dateStr := dateStr
		g.Go(func() error {
			return o.backfillDate(gctx, dateStr)
		})
	}
	return g.Wait()
}

func (o *Orchestrator) backfillDate(ctx context.Context, dateStr string) error {
	date, err := time.Parse(dateLayout, dateStr)
	if err != nil {
		return fmt.Errorf("orchestrator: parse backfill date %q: %w", dateStr, err)
	}

	txs, _, _, err := o.fetcher.FetchByDate(ctx, date)
	if err != nil {
		return fmt.Errorf("orchestrator: backfill fetch %s: %w", dateStr, err)
	}

	result := o.engine(txs)
	timestamp := date.Add(12 * time.Hour) // midday anchor for a whole-day bucket
	sample := o.toSample(result, 0, fmt.Errorf("no exchange lookup during backfill"), timestamp)
	sample.Date = dateStr

	if err := o.store.Append(ctx, sample); err != nil {
		return fmt.Errorf("orchestrator: backfill write %s: %w", dateStr, err)
	}
	log.Printf("orchestrator: backfilled %s (valid=%v, tx_count=%d)", dateStr, sample.IsValid, sample.TxCount)
	return nil
}

// BackfillRange fills every date in [start, end] inclusive, ignoring the
// per-cycle budget, for the explicit `orchestrator backfill` CLI command.
func (o *Orchestrator) BackfillRange(ctx context.Context, start, end time.Time) error {
	if err := o.lock.TryAcquire(); err != nil {
		return err
	}
	defer o.lock.Release()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.backfillWorkers)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dateStr := d.Format(dateLayout)
		g.Go(func() error {
			return o.backfillDate(gctx, dateStr)
		})
	}
	return g.Wait()
}
