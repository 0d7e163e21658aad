package orchestrator

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type recordingSink struct {
	alerts []Alert
}

func (r *recordingSink) Emit(a Alert) { r.alerts = append(r.alerts, a) }

func TestMultiAlertSinkFansOut(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	m := NewMultiAlertSink(a, b)

	alert := Alert{Timestamp: time.Now(), Severity: "warning", AlertType: "gap_backlog"}
	m.Emit(alert)

	if len(a.alerts) != 1 || len(b.alerts) != 1 {
		t.Fatalf("expected both sinks to receive the alert, got %d and %d", len(a.alerts), len(b.alerts))
	}
}

func TestWebhookAlertSinkPostsJSON(t *testing.T) {
	received := make(chan Alert, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var a Alert
		if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
			t.Errorf("failed to decode webhook payload: %v", err)
		}
		received <- a
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink := NewWebhookAlertSink(srv.URL)
	sink.Emit(Alert{Severity: "critical", AlertType: "gap_backlog", Title: "too many gaps"})

	select {
	case a := <-received:
		if a.Title != "too many gaps" {
			t.Fatalf("unexpected alert title: %q", a.Title)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for webhook delivery")
	}
}

func TestGapBacklogAlertDescription(t *testing.T) {
	a := gapBacklogAlert(12, 7)
	if a.Severity != "warning" {
		t.Fatalf("unexpected severity: %s", a.Severity)
	}
	if a.AlertType != "gap_backlog" {
		t.Fatalf("unexpected alert type: %s", a.AlertType)
	}
}
