// SPDX-License-Identifier: MIT
package server

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	applog "sdrfile/internal/log"
	"sdrfile/internal/spectrum"
)

// Hub fans spectrum messages out to WebSocket clients. It implements
// spectrum.Sink; publications are dropped when the broadcast channel
// is full so a stalled client never blocks the engine.
type Hub struct {
	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex
	broadcast chan spectrum.Message
}

// NewHub starts the broadcast loop.
func NewHub() *Hub {
	h := &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan spectrum.Message, 256),
	}
	go h.run()
	return h
}

// Publish queues a message for broadcast, dropping it under pressure.
func (h *Hub) Publish(m spectrum.Message) {
	select {
	case h.broadcast <- m:
	default:
	}
}

func (h *Hub) run() {
	for m := range h.broadcast {
		h.clientsMu.Lock()
		for client := range h.clients {
			if err := client.WriteJSON(m); err != nil {
				applog.Debugf("server: ws send failed: %v", err)
				client.Close()
				delete(h.clients, client)
			}
		}
		h.clientsMu.Unlock()
	}
}

// ServeWS upgrades the connection and registers the client. A read
// pump detects disconnects; inbound frames are otherwise ignored.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		applog.Debugf("server: ws upgrade failed: %v", err)
		return
	}

	h.clientsMu.Lock()
	h.clients[conn] = true
	n := len(h.clients)
	h.clientsMu.Unlock()
	applog.Infof("server: ws client connected, total %d", n)

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
		h.clientsMu.Lock()
		delete(h.clients, conn)
		n := len(h.clients)
		h.clientsMu.Unlock()
		conn.Close()
		applog.Infof("server: ws client disconnected, total %d", n)
	}()
}

// Close disconnects every client and stops the broadcast loop.
func (h *Hub) Close() {
	close(h.broadcast)
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	for client := range h.clients {
		client.Close()
	}
	h.clients = map[*websocket.Conn]bool{}
}
