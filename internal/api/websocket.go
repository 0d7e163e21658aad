package api

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// clientQueueSize bounds each client's outbound buffer. A slow client drops
// its own oldest unsent messages rather than blocking the broadcaster or any
// other client.
const clientQueueSize = 256

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub fans out broadcast messages to every connected client over its own
// bounded, drop-oldest queue.
type Hub struct {
	mu      sync.Mutex
	clients map[*wsClient]bool
}

type wsClient struct {
	conn  *websocket.Conn
	queue chan []byte
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*wsClient]bool)}
}

// Subscribe upgrades an HTTP request to a WebSocket connection and registers
// it with the hub. It blocks for the lifetime of the connection.
func (h *Hub) Subscribe(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("api: websocket upgrade failed: %v", err)
		return
	}

	client := &wsClient{conn: conn, queue: make(chan []byte, clientQueueSize)}
	h.mu.Lock()
	h.clients[client] = true
	h.mu.Unlock()
	log.Printf("api: whale stream client connected, total=%d", h.clientCount())

	go h.writeLoop(client)
	h.readLoop(client)
}

// writeLoop drains a client's queue to its socket. It exits when the queue
// is closed by removeClient.
func (h *Hub) writeLoop(client *wsClient) {
	for msg := range client.queue {
		_ = client.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := client.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.removeClient(client)
			return
		}
	}
}

// readLoop only exists to detect client-initiated close; whale stream
// clients never send anything meaningful.
func (h *Hub) readLoop(client *wsClient) {
	defer h.removeClient(client)
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) removeClient(client *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.queue)
	}
	h.mu.Unlock()
	client.conn.Close()
	log.Printf("api: whale stream client disconnected, total=%d", h.clientCount())
}

func (h *Hub) clientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast pushes data to every connected client. A client whose queue is
// already full drops its own oldest message to make room rather than
// blocking this call.
func (h *Hub) Broadcast(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		select {
		case client.queue <- data:
		default:
			select {
			case <-client.queue:
			default:
			}
			select {
			case client.queue <- data:
			default:
			}
		}
	}
}
