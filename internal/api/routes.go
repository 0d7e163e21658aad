package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/utxoracle/engine/internal/store"
	"github.com/utxoracle/engine/pkg/models"
)

// requestIDHeader is echoed back on every response so a caller can correlate
// a request with server-side logs.
const requestIDHeader = "X-Request-ID"

// requestIDMiddleware assigns a UUID to every request that doesn't already
// carry one, and stamps it into gin's own logger output via the context.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set("requestID", id)
		c.Writer.Header().Set(requestIDHeader, id)
		c.Next()
	}
}

// healthChecker is satisfied by every fetch-tier TransactionSource; the
// ReadAPI only needs to know whether a tier is reachable, not how to use it.
type healthChecker interface {
	Healthcheck(ctx context.Context) error
}

// defaultHistoricalDays is used when a caller omits the days query param.
const defaultHistoricalDays = 7

// APIHandler holds every collaborator a request handler needs.
type APIHandler struct {
	store        *store.Store
	whaleHub     *Hub
	whaleSummary func() models.WhaleSummary
	indexer      healthChecker
	node         healthChecker
	authSecret   string
	devBypass    bool
	startedAt    time.Time
}

// SetupRouter wires the public and bearer-protected route groups, the CORS
// middleware, and the per-IP rate limiter onto a fresh gin engine.
func SetupRouter(st *store.Store, whaleHub *Hub, whaleSummary func() models.WhaleSummary, indexer, node healthChecker, authSecret string, devBypass bool) *gin.Engine {
	r := gin.Default()

	r.Use(requestIDMiddleware())
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	handler := &APIHandler{
		store:        st,
		whaleHub:     whaleHub,
		whaleSummary: whaleSummary,
		indexer:      indexer,
		node:         node,
		authSecret:   authSecret,
		devBypass:    devBypass,
		startedAt:    time.Now(),
	}

	r.GET("/health", handler.handleHealth)

	data := r.Group("/api")
	data.Use(AuthMiddleware(authSecret, devBypass))
	data.Use(NewRateLimiter(100, 20).Middleware())
	{
		data.GET("/prices/latest", handler.handleLatestPrice)
		data.GET("/prices/historical", handler.handleHistoricalPrices)
		data.GET("/prices/comparison", handler.handleComparison)
		data.GET("/whale/latest", handler.handleWhaleLatest)
	}

	r.GET("/ws/whale", handler.handleWhaleStream)

	return r
}

// handleHealth reports store and fetch-tier reachability, never requiring
// auth: operators and load balancers poll this without a token.
func (h *APIHandler) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	checks := gin.H{
		"db":      checkName(h.checkStore(ctx)),
		"indexer": checkName(checkOptional(ctx, h.indexer)),
		"node":    checkName(checkOptional(ctx, h.node)),
	}

	status := "ok"
	for _, v := range checks {
		if v != "ok" {
			status = "degraded"
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":         status,
		"checks":         checks,
		"uptimeSeconds":  int(time.Since(h.startedAt).Seconds()),
	})
}

var errNotConfigured = errors.New("api: collaborator not configured")

func (h *APIHandler) checkStore(ctx context.Context) error {
	if h.store == nil {
		return errNotConfigured
	}
	_, err := h.store.Latest(ctx)
	return err
}

func checkOptional(ctx context.Context, hc healthChecker) error {
	if hc == nil {
		return errNotConfigured
	}
	return hc.Healthcheck(ctx)
}

func checkName(err error) string {
	if err == nil {
		return "ok"
	}
	return "unreachable"
}

// handleLatestPrice returns the most recent valid-or-not price sample.
func (h *APIHandler) handleLatestPrice(c *gin.Context) {
	sample, err := h.store.Latest(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no price samples available"})
		return
	}
	c.JSON(http.StatusOK, sample)
}

// handleHistoricalPrices returns the price series for the last N days.
func (h *APIHandler) handleHistoricalPrices(c *gin.Context) {
	days := queryDays(c)
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -days)

	samples, err := h.store.Range(c.Request.Context(), from.Unix(), now.Unix(), 0)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load historical prices"})
		return
	}
	c.JSON(http.StatusOK, samples)
}

// handleComparison returns the UTXOracle/exchange series with divergence
// statistics over the last N days.
func (h *APIHandler) handleComparison(c *gin.Context) {
	days := queryDays(c)
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -days)

	samples, err := h.store.Range(c.Request.Context(), from.Unix(), now.Unix(), 0)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load comparison series"})
		return
	}
	c.JSON(http.StatusOK, compareSeries(samples))
}

func queryDays(c *gin.Context) int {
	days, err := strconv.Atoi(c.Query("days"))
	if err != nil || days <= 0 {
		return defaultHistoricalDays
	}
	return days
}

// handleWhaleLatest reports the rolling net mempool flow direction.
func (h *APIHandler) handleWhaleLatest(c *gin.Context) {
	if h.whaleSummary == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "whale stream not configured"})
		return
	}
	c.JSON(http.StatusOK, h.whaleSummary())
}

// handleWhaleStream upgrades to a WebSocket and subscribes the connection to
// the whale signal fan-out hub. Browser WebSocket clients cannot set an
// Authorization header, so the bearer token travels as a query parameter.
func (h *APIHandler) handleWhaleStream(c *gin.Context) {
	if h.whaleHub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "whale stream not configured"})
		return
	}
	if !authenticateQueryToken(c.Query("token"), h.authSecret, h.devBypass) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing token"})
		return
	}
	h.whaleHub.Subscribe(c)
}
