// Package exchange fetches a comparison USD/BTC price from an external
// market oracle, used only to populate PriceSample.ExchangePrice for the
// orchestrator's side-by-side comparison series.
package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const fetchTimeout = 2 * time.Second

// Oracle is a thin client over a single-endpoint price feed. A failed fetch
// is tolerated by every caller: the orchestrator stores a nil exchange price
// rather than failing the cycle.
type Oracle struct {
	baseURL string
	client  *http.Client
}

func NewOracle(baseURL string) *Oracle {
	return &Oracle{
		baseURL: baseURL,
		client:  &http.Client{Timeout: fetchTimeout},
	}
}

type priceResponse struct {
	USD float64 `json:"USD"`
}

// FetchLatestUSDPrice performs the single per-cycle exchange price lookup.
func (o *Oracle) FetchLatestUSDPrice(ctx context.Context) (float64, error) {
	if o.baseURL == "" {
		return 0, fmt.Errorf("exchange: oracle not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/api/v1/prices", nil)
	if err != nil {
		return 0, fmt.Errorf("exchange: build request: %w", err)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("exchange: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("exchange: unexpected status %d", resp.StatusCode)
	}

	var parsed priceResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("exchange: decode response: %w", err)
	}
	if parsed.USD <= 0 {
		return 0, fmt.Errorf("exchange: non-positive price %v", parsed.USD)
	}
	return parsed.USD, nil
}
