// Package whale maintains a WebSocket subscription to the local indexer's
// mempool feed, scores each unconfirmed transaction, deduplicates RBF
// replacements, and fans out WhaleSignal events to subscribed clients.
package whale

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/utxoracle/engine/internal/api"
	"github.com/utxoracle/engine/internal/store"
	"github.com/utxoracle/engine/pkg/models"
)

const (
	readTimeout   = 60 * time.Second
	backoffMin    = 1 * time.Second
	backoffMax    = 30 * time.Second
	backoffJitter = 0.20
)

// PriceProvider returns the engine's latest known BTC/USD price, used only
// to convert a whale transaction's BTC value into a display USD figure. A
// zero result is treated as "no price known yet" and yields a zero USD
// value rather than blocking the signal.
type PriceProvider func() float64

// Stream owns the mempool WebSocket connection and the dedup/summary state
// derived from it. All of its mutable state except the summary (which has
// its own lock for the concurrent /api/whale/latest reader) is touched only
// from the single receive loop in Run.
type Stream struct {
	wsURL         string
	hub           *api.Hub
	st            *store.Store
	priceProvider PriceProvider
	thresholdBTC  float64

	dialer *websocket.Dialer
	dedup  *dedup
	summary *rollingSummary
}

// NewStream builds a Stream against the local indexer's mempool WebSocket
// endpoint, derived from indexerBaseURL (e.g. "http://127.0.0.1:3000").
func NewStream(indexerBaseURL string, hub *api.Hub, st *store.Store, priceProvider PriceProvider, thresholdBTC float64) (*Stream, error) {
	wsURL, err := mempoolWSURL(indexerBaseURL)
	if err != nil {
		return nil, err
	}
	return &Stream{
		wsURL:         wsURL,
		hub:           hub,
		st:            st,
		priceProvider: priceProvider,
		thresholdBTC:  thresholdBTC,
		dialer:        websocket.DefaultDialer,
		dedup:         newDedup(),
		summary:       newRollingSummary(),
	}, nil
}

// mempoolWSURL rewrites an http(s) indexer base URL into the ws(s) URL for
// its mempool subscription endpoint.
func mempoolWSURL(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("whale: invalid indexer URL %q: %w", baseURL, err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws/track-mempool"
	return u.String(), nil
}

// Summary reports the rolling mempool activity window for /api/whale/latest.
func (s *Stream) Summary() models.WhaleSummary {
	return s.summary.Summary()
}

// Run dials the mempool feed and reconnects with exponential backoff and
// jitter until ctx is cancelled. It never returns an error: a permanently
// unreachable indexer just means the stream sits empty, which is tolerated
// the same way an unavailable exchange oracle is.
func (s *Stream) Run(ctx context.Context) {
	backoff := backoffMin
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		conn, _, err := s.dialer.DialContext(ctx, s.wsURL, http.Header{})
		if err != nil {
			log.Printf("whale: dial %s failed: %v, retrying in %s", s.wsURL, err, backoff)
			if !sleepWithJitter(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff)
			continue
		}

		backoff = backoffMin
		log.Printf("whale: connected to %s", s.wsURL)
		if err := s.consume(ctx, conn); err != nil {
			log.Printf("whale: stream error: %v, reconnecting", err)
		}
		conn.Close()
	}
}

// consume reads frames until the connection closes or ctx is cancelled.
func (s *Stream) consume(ctx context.Context, conn *websocket.Conn) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		s.handleMessage(raw)
	}
}

// handleMessage scores one mempool wire message and, if it clears the
// threshold and dedup check, broadcasts and persists it. Decode and scoring
// failures are logged and skipped rather than tearing down the connection:
// one malformed message from the indexer shouldn't cost the whole stream.
func (s *Stream) handleMessage(raw []byte) {
	var tx mempoolTx
	if err := json.Unmarshal(raw, &tx); err != nil {
		log.Printf("whale: malformed mempool message: %v", err)
		return
	}

	price := 0.0
	if s.priceProvider != nil {
		price = s.priceProvider()
	}

	signal, ok := scoreMempoolTx(tx, s.thresholdBTC, price, time.Now().UTC())
	if !ok {
		return
	}
	if !s.dedup.shouldEmit(signal.Txid, signal.FeeRateSatVB) {
		return
	}

	s.summary.record(signal)

	if s.hub != nil {
		payload, err := json.Marshal(signal)
		if err != nil {
			log.Printf("whale: marshal signal: %v", err)
		} else {
			s.hub.Broadcast(payload)
		}
	}

	if s.st != nil {
		if err := s.st.AppendWhaleSignal(context.Background(), signal); err != nil {
			log.Printf("whale: persist signal: %v", err)
		}
	}
}

func nextBackoff(current time.Duration) time.Duration {
	next := current * 2
	if next > backoffMax {
		next = backoffMax
	}
	return next
}

// sleepWithJitter waits for duration d, ±20%, or returns false early if ctx
// is cancelled first.
func sleepWithJitter(ctx context.Context, d time.Duration) bool {
	jitter := 1 + (rand.Float64()*2-1)*backoffJitter
	wait := time.Duration(float64(d) * jitter)
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
