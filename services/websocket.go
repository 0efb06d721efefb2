package services

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 64 * 1024
)

// Client represents a connected WebSocket client
type Client struct {
	Hub   *Hub
	Conn  *websocket.Conn
	Send  chan []byte
	Owner string
}

// BoardEvent is pushed to an owner's connected clients whenever their
// board changes server-side, so open tabs can refetch and converge.
type BoardEvent struct {
	Type    string `json:"type"`
	Updated int    `json:"updated,omitempty"`
}

type ownerMessage struct {
	owner   string
	payload []byte
}

// ReadPump consumes messages from the WebSocket connection. Clients do
// not mutate state over the socket; only pings are answered.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		var event BoardEvent
		if err := json.Unmarshal(message, &event); err != nil {
			log.Printf("Error unmarshalling WebSocket message: %v", err)
			continue
		}

		if event.Type == "ping" {
			pong, err := json.Marshal(BoardEvent{Type: "pong"})
			if err == nil {
				c.Send <- pong
			}
		}
	}
}

// WritePump pumps messages from the hub to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current WebSocket message
			n := len(c.Send)
			for i := 0; i < n; i++ {
				w.Write([]byte("\n"))
				w.Write(<-c.Send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Hub maintains the set of active clients and delivers board events to
// the owner's connections only. Events never cross owners.
type Hub struct {
	clients    map[*Client]bool
	notify     chan ownerMessage
	register   chan *Client
	unregister chan *Client
}

// NewHub creates a new hub instance
func NewHub() *Hub {
	return &Hub{
		notify:     make(chan ownerMessage, 16),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// NotifyOwner sends an event to every connection of one owner.
func (h *Hub) NotifyOwner(owner string, event BoardEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("Error marshalling WebSocket event: %v", err)
		return
	}
	h.notify <- ownerMessage{owner: owner, payload: payload}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			log.Printf("Client connected: %s", client.Owner)
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				log.Printf("Client disconnected: %s", client.Owner)
			}
		case message := <-h.notify:
			for client := range h.clients {
				if client.Owner != message.owner {
					continue
				}
				select {
				case client.Send <- message.payload:
				default:
					// Client's send buffer is full, assume disconnected
					log.Printf("Client send buffer full, removing client: %s", client.Owner)
					close(client.Send)
					delete(h.clients, client)
				}
			}
		}
	}
}
