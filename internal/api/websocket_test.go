package api

import "testing"

func TestHubBroadcastDropsOldestOnFullQueue(t *testing.T) {
	h := NewHub()
	client := &wsClient{queue: make(chan []byte, 2)}
	h.clients[client] = true

	h.Broadcast([]byte("a"))
	h.Broadcast([]byte("b"))
	h.Broadcast([]byte("c")) // queue full, should drop "a" and keep "b","c"

	first := <-client.queue
	second := <-client.queue
	if string(first) != "b" || string(second) != "c" {
		t.Fatalf("expected drop-oldest to keep [b c], got [%s %s]", first, second)
	}
}

func TestHubBroadcastSkipsRemovedClients(t *testing.T) {
	h := NewHub()
	client := &wsClient{queue: make(chan []byte, 1)}
	h.clients[client] = true
	close(client.queue)
	delete(h.clients, client)

	// Broadcasting after removal must not touch the closed channel.
	h.Broadcast([]byte("x"))
}
