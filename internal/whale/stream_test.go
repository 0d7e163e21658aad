package whale

import (
	"context"
	"testing"
	"time"
)

func TestMempoolWSURLRewritesHTTPToWS(t *testing.T) {
	got, err := mempoolWSURL("http://127.0.0.1:3000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "ws://127.0.0.1:3000/ws/track-mempool"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestMempoolWSURLRewritesHTTPSToWSS(t *testing.T) {
	got, err := mempoolWSURL("https://mempool.space/api")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "wss://mempool.space/api/ws/track-mempool"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestNextBackoffDoublesUpToMax(t *testing.T) {
	d := backoffMin
	for i := 0; i < 10; i++ {
		d = nextBackoff(d)
	}
	if d != backoffMax {
		t.Fatalf("expected backoff to cap at %s, got %s", backoffMax, d)
	}
}

func TestSleepWithJitterRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if sleepWithJitter(ctx, 10*time.Second) {
		t.Fatal("expected cancelled context to return false immediately")
	}
}
