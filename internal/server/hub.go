package server

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

type client struct {
	id   string
	conn *websocket.Conn
}

type outbound struct {
	data      []byte
	delivered chan int
}

// Hub manages WebSocket clients. It is the live notification channel: Send
// writes a serialized snapshot to every connected client and returns how
// many received it.
type Hub struct {
	clients    map[*client]bool
	mu         sync.Mutex
	broadcast  chan outbound
	register   chan *client
	unregister chan *client
	done       chan struct{}
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan outbound),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's event loop. It returns when ctx ends, closing every client.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		h.mu.Lock()
		for c := range h.clients {
			c.conn.Close()
			delete(h.clients, c)
		}
		h.mu.Unlock()
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
			log.Printf("[Hub] Client %s connected.", c.id)
		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				c.conn.Close()
				log.Printf("[Hub] Client %s disconnected.", c.id)
			}
			h.mu.Unlock()
		case msg := <-h.broadcast:
			h.mu.Lock()
			n := 0
			for c := range h.clients {
				c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := c.conn.WriteMessage(websocket.TextMessage, msg.data); err != nil {
					log.Printf("[Hub] Broadcast to %s failed: %v", c.id, err)
					c.conn.Close()
					delete(h.clients, c)
					continue
				}
				n++
			}
			h.mu.Unlock()
			msg.delivered <- n
		}
	}
}

// Send writes msg to all connected clients. It returns the number of clients
// that received it, or -1 once the hub has stopped.
func (h *Hub) Send(msg string) int {
	out := outbound{data: []byte(msg), delivered: make(chan int, 1)}
	select {
	case h.broadcast <- out:
		return <-out.delivered
	case <-h.done:
		return -1
	}
}

// Broadcast sends a structured message to all connected clients.
func (h *Hub) Broadcast(msg Message) int {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("[Hub] Could not encode %s message: %v", msg.Type, err)
		return -1
	}
	return h.Send(string(data))
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) add(conn *websocket.Conn) *client {
	c := &client{id: uuid.NewString(), conn: conn}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
	}
	return c
}

func (h *Hub) remove(c *client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
