// Package ws pushes game-state transitions and settlement summaries to
// connected clients, so participants never poll for the next period.
package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Msg is a message sent to clients.
type Msg struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Hub broadcasts to every connected client. One game per process, so there is
// a single room.
type Hub struct {
	mu    sync.RWMutex
	conns map[*conn]bool
}

type conn struct {
	ws   *websocket.Conn
	send chan []byte
	hub  *Hub
}

func NewHub() *Hub {
	return &Hub{conns: make(map[*conn]bool)}
}

// Publish sends a message to all clients. Slow clients are dropped rather
// than allowed to block the game.
func (h *Hub) Publish(msgType string, data any) {
	b, err := json.Marshal(Msg{Type: msgType, Data: data})
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.conns {
		select {
		case c.send <- b:
		default:
			// slow client, drop the message
		}
	}
}

// HandleWS upgrades the connection and registers the client.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade error: %v", err)
		return
	}
	c := &conn{ws: wsConn, send: make(chan []byte, 64), hub: h}
	h.mu.Lock()
	h.conns[c] = true
	h.mu.Unlock()

	go c.writePump()
	go c.readPump()
}

func (c *conn) readPump() {
	defer func() {
		c.hub.removeConn(c)
		c.ws.Close()
	}()
	for {
		// Clients only listen; reads exist to detect disconnects.
		if _, _, err := c.ws.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *conn) writePump() {
	defer c.ws.Close()
	for msg := range c.send {
		if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func (h *Hub) removeConn(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[c] {
		delete(h.conns, c)
		close(c.send)
	}
}
