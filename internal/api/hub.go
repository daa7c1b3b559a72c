package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 200 * time.Millisecond

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub fans messages out to every connected websocket client. A client that
// cannot keep up within writeWait is dropped. Broadcasts may come from
// several goroutines; writes to one connection are serialized.
type Hub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]*client
}

// client guards the single writer a websocket connection allows.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(kind int, b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(kind, b)
}

func NewHub() *Hub {
	return &Hub{conns: make(map[*websocket.Conn]*client)}
}

func (h *Hub) add(c *websocket.Conn) {
	h.mu.Lock()
	h.conns[c] = &client{conn: c}
	h.mu.Unlock()
}

func (h *Hub) remove(c *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, c)
	h.mu.Unlock()
}

// Len is the number of connected clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

func (h *Hub) snapshot() []*client {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.conns))
	for _, c := range h.conns {
		clients = append(clients, c)
	}
	h.mu.Unlock()
	return clients
}

func (h *Hub) BroadcastBinary(b []byte) { h.broadcast(websocket.BinaryMessage, b) }
func (h *Hub) BroadcastText(b []byte)   { h.broadcast(websocket.TextMessage, b) }

func (h *Hub) broadcast(kind int, b []byte) {
	for _, c := range h.snapshot() {
		if err := c.write(kind, b); err != nil {
			_ = c.conn.Close()
			h.remove(c.conn)
		}
	}
}

// serve registers the connection and blocks until the client goes away.
// Incoming messages are discarded.
func (h *Hub) serve(conn *websocket.Conn) {
	h.add(conn)
	defer func() {
		h.remove(conn)
		conn.Close()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
