// Package config loads process configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds every setting the orchestrator, fetcher, store, API, and
// whale stream need at startup.
type Config struct {
	ConfidenceThreshold float64 `envconfig:"CONFIDENCE_THRESHOLD" default:"0.3"`
	MinPriceUSD         float64 `envconfig:"MIN_PRICE_USD" default:"10000"`
	MaxPriceUSD         float64 `envconfig:"MAX_PRICE_USD" default:"500000"`
	WhaleBTCThreshold   float64 `envconfig:"WHALE_BTC_THRESHOLD" default:"100"`
	CyclePeriodSeconds  int     `envconfig:"CYCLE_PERIOD_SECONDS" default:"600"`
	PublicAPIEnabled    bool    `envconfig:"PUBLIC_API_ENABLED" default:"false"`

	JWTSigningSecret string `envconfig:"JWT_SIGNING_SECRET"`
	DevBypassToken   string `envconfig:"DEV_BYPASS_TOKEN"`

	NodeRPCHost       string `envconfig:"NODE_RPC_HOST" default:"localhost:8332"`
	NodeRPCUser       string `envconfig:"NODE_RPC_USER"`
	NodeRPCPass       string `envconfig:"NODE_RPC_PASS"`
	NodeRPCCookiePath string `envconfig:"NODE_RPC_COOKIE_PATH"`

	LocalIndexerURL  string `envconfig:"LOCAL_INDEXER_URL" default:"http://127.0.0.1:3000"`
	PublicIndexerURL string `envconfig:"PUBLIC_INDEXER_URL" default:"https://mempool.space/api"`
	ExchangeOracleURL string `envconfig:"EXCHANGE_ORACLE_URL"`

	StoreDSN       string `envconfig:"STORE_DSN"`
	StoreBackupDSN string `envconfig:"STORE_BACKUP_DSN"`
	SchemaPath     string `envconfig:"SCHEMA_PATH" default:"schema.sql"`

	LockFilePath string `envconfig:"LOCK_FILE_PATH" default:"/tmp/utxoracle-orchestrator.lock"`

	BackfillBudgetPerCycle int `envconfig:"BACKFILL_BUDGET_PER_CYCLE" default:"3"`
	BackfillWorkers        int `envconfig:"BACKFILL_WORKERS" default:"4"`
	GapAlertThreshold      int `envconfig:"GAP_ALERT_THRESHOLD" default:"7"`
	AlertWebhookURL        string `envconfig:"ALERT_WEBHOOK_URL"`

	Port int `envconfig:"PORT" default:"8080"`
}

// Load reads .env (if present, without overriding real environment
// variables) and then processes the environment into a Config.
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			log.Printf("config: failed to load .env: %v", err)
		} else {
			log.Println("config: loaded .env")
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config: process env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field and range constraints that envconfig's
// per-field tags cannot express.
func (c *Config) Validate() error {
	if c.MinPriceUSD <= 0 || c.MaxPriceUSD <= c.MinPriceUSD {
		return fmt.Errorf("%w: min/max price USD bounds are invalid (%v/%v)", ErrInvalidConfig, c.MinPriceUSD, c.MaxPriceUSD)
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("%w: confidence threshold must be in [0,1], got %v", ErrInvalidConfig, c.ConfidenceThreshold)
	}
	if c.CyclePeriodSeconds <= 0 {
		return fmt.Errorf("%w: cycle period must be positive, got %d", ErrInvalidConfig, c.CyclePeriodSeconds)
	}
	if c.JWTSigningSecret == "" {
		return fmt.Errorf("%w: JWT_SIGNING_SECRET is required", ErrInvalidConfig)
	}
	if c.StoreDSN == "" {
		return fmt.Errorf("%w: STORE_DSN is required", ErrInvalidConfig)
	}
	if c.BackfillBudgetPerCycle < 0 || c.BackfillWorkers <= 0 {
		return fmt.Errorf("%w: invalid backfill budget/workers (%d/%d)", ErrInvalidConfig, c.BackfillBudgetPerCycle, c.BackfillWorkers)
	}
	return nil
}
