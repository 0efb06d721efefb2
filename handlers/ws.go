package handlers

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"taskboard/services"
)

// WSHandler upgrades connections and registers them with the hub so the
// owner's open tabs hear about board changes.
type WSHandler struct {
	hub *services.Hub
}

func NewWSHandler(hub *services.Hub) *WSHandler {
	return &WSHandler{hub: hub}
}

// HandleWebSocket upgrades the HTTP connection to a WebSocket connection
func (h *WSHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	owner, ok := OwnerFromContext(r.Context())
	if !ok {
		http.Error(w, "user not found", http.StatusUnauthorized)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true // Allow all origins in development
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Error upgrading to WebSocket: %v", err)
		return
	}

	client := &services.Client{
		Hub:   h.hub,
		Conn:  conn,
		Send:  make(chan []byte, 256),
		Owner: owner,
	}

	h.hub.Register(client)
	log.Printf("WebSocket client registered: %s", owner)

	go client.WritePump()
	go client.ReadPump()
}
