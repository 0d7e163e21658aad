package orchestrator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// Alert is a structured operator notification. The orchestrator raises one
// kind: a gap backlog growing past threshold. Sanity-clamp violations mark
// the sample invalid but raise no alert, however many occur in a row.
type Alert struct {
	Timestamp   time.Time `json:"timestamp"`
	Severity    string    `json:"severity"` // info/warning/critical
	AlertType   string    `json:"alertType"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
}

// AlertSink delivers an Alert to wherever the operator watches.
type AlertSink interface {
	Emit(alert Alert)
}

// LogAlertSink writes alerts to the standard logger. It is always wired in,
// even when a webhook sink is also configured.
type LogAlertSink struct{}

func (LogAlertSink) Emit(a Alert) {
	log.Printf("[alert] [%s] %s: %s", a.Severity, a.AlertType, a.Description)
}

// WebhookAlertSink posts each alert as a JSON payload to a single configured
// URL. The payload is the Alert struct itself (timestamp, severity,
// alertType, title, description), not a chat-service message shape.
type WebhookAlertSink struct {
	url        string
	httpClient *http.Client
}

func NewWebhookAlertSink(url string) *WebhookAlertSink {
	return &WebhookAlertSink{
		url:        url,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

func (w *WebhookAlertSink) Emit(a Alert) {
	payload, err := json.Marshal(a)
	if err != nil {
		log.Printf("[alert] failed to marshal webhook payload: %v", err)
		return
	}

	req, err := http.NewRequest(http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		log.Printf("[alert] failed to build webhook request: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		log.Printf("[alert] webhook delivery failed: %v", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		log.Printf("[alert] webhook returned status %d", resp.StatusCode)
	}
}

// MultiAlertSink fans one alert out to every configured sink.
type MultiAlertSink struct {
	sinks []AlertSink
}

func NewMultiAlertSink(sinks ...AlertSink) *MultiAlertSink {
	return &MultiAlertSink{sinks: sinks}
}

func (m *MultiAlertSink) Emit(a Alert) {
	for _, s := range m.sinks {
		s.Emit(a)
	}
}

func gapBacklogAlert(gapCount, threshold int) Alert {
	return Alert{
		Timestamp:   time.Now(),
		Severity:    "warning",
		AlertType:   "gap_backlog",
		Title:       "Price sample gap backlog exceeds threshold",
		Description: fmt.Sprintf("%d missing dates, threshold %d", gapCount, threshold),
	}
}
