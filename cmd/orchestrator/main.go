package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/utxoracle/engine/internal/api"
	"github.com/utxoracle/engine/internal/bitcoin"
	"github.com/utxoracle/engine/internal/config"
	"github.com/utxoracle/engine/internal/exchange"
	"github.com/utxoracle/engine/internal/fetcher"
	"github.com/utxoracle/engine/internal/orchestrator"
	"github.com/utxoracle/engine/internal/store"
	"github.com/utxoracle/engine/internal/whale"
)

// Exit codes the CLI promises its caller: 0 success, 1 transient failure
// (retry later), 2 configuration/startup error (fix and restart), 3 lock
// contention (another instance already owns this cycle).
const (
	exitOK            = 0
	exitTransientFail = 1
	exitConfigError   = 2
	exitLockContended = 3
)

func main() {
	root := &cobra.Command{
		Use:   "orchestrator",
		Short: "UTXOracle periodic price-discovery orchestrator",
	}
	root.AddCommand(runCmd(), onceCmd(), backfillCmd(), initDBCmd())

	if err := root.Execute(); err != nil {
		os.Exit(exitConfigError)
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the orchestrator as a long-lived daemon (cycles + read API + whale stream)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(func(ctx context.Context, env *environment) error {
				go env.orchestrator.RunLoop(ctx, time.Duration(env.cfg.CyclePeriodSeconds)*time.Second)
				go env.whaleStream.Run(ctx)

				srv := env.router
				addr := fmt.Sprintf(":%d", env.cfg.Port)
				log.Printf("orchestrator: read API listening on %s", addr)
				errc := make(chan error, 1)
				go func() { errc <- srv.Run(addr) }()

				select {
				case <-ctx.Done():
					log.Println("orchestrator: shutdown signal received")
					return nil
				case err := <-errc:
					return fmt.Errorf("orchestrator: API server stopped: %w", err)
				}
			})
		},
	}
}

func onceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Run exactly one cycle (fetch, compute, validate, write, budgeted backfill) and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(func(ctx context.Context, env *environment) error {
				return env.orchestrator.RunOnce(ctx)
			})
		},
	}
}

func backfillCmd() *cobra.Command {
	var startStr, endStr string
	c := &cobra.Command{
		Use:   "backfill",
		Short: "Backfill every date in [--start, --end] inclusive, ignoring the per-cycle budget",
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := time.Parse("2006-01-02", startStr)
			if err != nil {
				return fmt.Errorf("orchestrator: invalid --start %q: %w", startStr, err)
			}
			end, err := time.Parse("2006-01-02", endStr)
			if err != nil {
				return fmt.Errorf("orchestrator: invalid --end %q: %w", endStr, err)
			}
			if end.Before(start) {
				return fmt.Errorf("orchestrator: --end %s is before --start %s", endStr, startStr)
			}
			return withEnv(func(ctx context.Context, env *environment) error {
				return env.orchestrator.BackfillRange(ctx, start, end)
			})
		},
	}
	c.Flags().StringVar(&startStr, "start", "", "first date to backfill, YYYY-MM-DD (required)")
	c.Flags().StringVar(&endStr, "end", "", "last date to backfill, YYYY-MM-DD (required)")
	c.MarkFlagRequired("start")
	c.MarkFlagRequired("end")
	return c
}

func initDBCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-db",
		Short: "Apply the analytic store's schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return exitErr{exitConfigError, err}
			}
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			st, err := store.OpenOrFallback(ctx, cfg.StoreDSN, cfg.StoreBackupDSN)
			if err != nil {
				return exitErr{exitConfigError, err}
			}
			defer st.Close()
			if err := st.InitSchema(ctx, cfg.SchemaPath); err != nil {
				return exitErr{exitConfigError, err}
			}
			log.Println("orchestrator: schema applied")
			return nil
		},
	}
}

// environment holds every collaborator a run/once/backfill invocation needs,
// already wired and ready.
type environment struct {
	cfg          *config.Config
	store        *store.Store
	btcClient    *bitcoin.Client
	orchestrator *orchestrator.Orchestrator
	router       httpServer
	whaleStream  *whale.Stream
}

// httpServer is the subset of *gin.Engine the run command needs, narrowed so
// this file doesn't have to import gin directly just to spell the type.
type httpServer interface {
	Run(addr ...string) error
}

// exitErr carries the process exit code a failure should produce through an
// ordinary error return, so cobra's RunE can stay idiomatic while main still
// reports the code the operator's process supervisor expects.
type exitErr struct {
	code int
	err  error
}

func (e exitErr) Error() string { return e.err.Error() }
func (e exitErr) Unwrap() error { return e.err }

// withEnv builds the full environment, runs fn with a context cancelled on
// SIGINT/SIGTERM, tears collaborators down, and maps the result to a process
// exit code before returning control to cobra.
func withEnv(fn func(ctx context.Context, env *environment) error) error {
	cfg, err := config.Load()
	if err != nil {
		exitWith(exitConfigError, err)
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigc
		cancel()
	}()

	env, teardown, err := buildEnvironment(ctx, cfg)
	if err != nil {
		exitWith(exitConfigError, err)
		return nil
	}
	defer teardown()

	if err := fn(ctx, env); err != nil {
		exitWith(classifyFailure(err), err)
	}
	return nil
}

// buildEnvironment wires every collaborator in the same explicit,
// log-as-you-go order the cycle itself follows: store, node RPC, fetch
// cascade, exchange oracle, orchestrator, whale stream, read API. Unlike the
// optional indexer tiers, the Tier-3 node RPC connection is required at
// startup: it is the cascade's backstop, and a cascade with no working
// backstop should never serve traffic.
func buildEnvironment(ctx context.Context, cfg *config.Config) (*environment, func(), error) {
	st, err := store.OpenOrFallback(ctx, cfg.StoreDSN, cfg.StoreBackupDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("orchestrator: store unavailable: %w", err)
	}

	btcClient, err := bitcoin.NewClient(bitcoin.Config{
		Host:       cfg.NodeRPCHost,
		User:       cfg.NodeRPCUser,
		Pass:       cfg.NodeRPCPass,
		CookiePath: cfg.NodeRPCCookiePath,
	})
	if err != nil {
		st.Close()
		return nil, nil, fmt.Errorf("orchestrator: node RPC (tier 3) unavailable, refusing to start: %w", err)
	}

	names := []string{"local_indexer"}
	tiers := []fetcher.TransactionSource{fetcher.NewLocalIndexerSource(cfg.LocalIndexerURL)}
	if cfg.PublicAPIEnabled {
		names = append(names, "public_indexer")
		tiers = append(tiers, fetcher.NewPublicIndexerSource(cfg.PublicIndexerURL))
	} else {
		log.Println("orchestrator: public indexer tier disabled (PUBLIC_API_ENABLED=false)")
	}
	nodeSource := fetcher.NewNodeRPCSource(btcClient)
	names = append(names, "node_rpc")
	tiers = append(tiers, nodeSource)
	cascade := fetcher.NewCascadingSource(names, tiers...)

	oracle := exchange.NewOracle(cfg.ExchangeOracleURL)

	var alerts orchestrator.AlertSink = orchestrator.LogAlertSink{}
	if cfg.AlertWebhookURL != "" {
		alerts = orchestrator.NewMultiAlertSink(orchestrator.LogAlertSink{}, orchestrator.NewWebhookAlertSink(cfg.AlertWebhookURL))
	}

	orch := orchestrator.New(cascade, st, oracle, alerts, orchestrator.Config{
		LockFilePath:        cfg.LockFilePath,
		ConfidenceThreshold: cfg.ConfidenceThreshold,
		MinPriceUSD:         cfg.MinPriceUSD,
		MaxPriceUSD:         cfg.MaxPriceUSD,
		BackfillBudget:      cfg.BackfillBudgetPerCycle,
		BackfillWorkers:     cfg.BackfillWorkers,
		GapAlertThreshold:   cfg.GapAlertThreshold,
	})

	whaleHub := api.NewHub()
	devBypass := cfg.DevBypassToken != "" && os.Getenv("UTXORACLE_DEV_MODE") == "true"

	whaleStream, err := whale.NewStream(cfg.LocalIndexerURL, whaleHub, st, latestPriceProvider(st), cfg.WhaleBTCThreshold)
	if err != nil {
		btcClient.Shutdown()
		st.Close()
		return nil, nil, fmt.Errorf("orchestrator: whale stream setup: %w", err)
	}

	router := api.SetupRouter(st, whaleHub, whaleStream.Summary, tiers[0], nodeSource, cfg.JWTSigningSecret, devBypass)

	env := &environment{
		cfg:          cfg,
		store:        st,
		btcClient:    btcClient,
		orchestrator: orch,
		router:       router,
		whaleStream:  whaleStream,
	}
	teardown := func() {
		btcClient.Shutdown()
		st.Close()
	}
	return env, teardown, nil
}

// classifyFailure maps an orchestrator-layer error to the process exit code
// the run/once/backfill commands promise their caller.
func classifyFailure(err error) int {
	var ee exitErr
	if errors.As(err, &ee) {
		return ee.code
	}
	if errors.Is(err, orchestrator.ErrLockContended) {
		return exitLockContended
	}
	if errors.Is(err, config.ErrInvalidConfig) {
		return exitConfigError
	}
	return exitTransientFail
}

// latestPriceProvider adapts the store's last written sample into the plain
// func() float64 the whale stream scores mempool transactions against. A
// lookup failure (empty history, a transient store error) yields 0, which
// whale.scoreMempoolTx treats as "no USD conversion available" rather than
// something worth failing the stream over.
func latestPriceProvider(st *store.Store) whale.PriceProvider {
	return func() float64 {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		sample, err := st.Latest(ctx)
		if err != nil {
			return 0
		}
		return sample.UTXOraclePrice
	}
}

func exitWith(code int, err error) {
	log.Printf("orchestrator: %v", err)
	os.Exit(code)
}
