package broadcast

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"sync"

	"github.com/aussiebroadwan/squeezy/pkg/idx"
	"github.com/gorilla/websocket"
)

// maxRoomsPerClient bounds how many rooms one connection may join.
const maxRoomsPerClient = 16

// Hub owns the websocket connections of this instance and the rooms they
// have joined.
type Hub struct {
	Logger *slog.Logger

	// Chat receives chat messages sent by clients. It defaults to the hub
	// itself; a RedisRelay is set here when several instances share rooms.
	Chat Broadcaster

	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]struct{}
	rooms   map[string]map[*client]struct{}
}

// NewHub creates a hub. With no allowed origins every origin is accepted.
func NewHub(logger *slog.Logger, allowedOrigins ...string) *Hub {
	h := &Hub{
		Logger:  logger,
		clients: make(map[*client]struct{}),
		rooms:   make(map[string]map[*client]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return len(allowedOrigins) == 0 || origin == "" || slices.Contains(allowedOrigins, origin)
		},
	}
	return h
}

// Serve upgrades the request and runs the client until it disconnects.
// userID may be empty for anonymous clients, which can watch rooms but not
// chat.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.Logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	c := &client{
		id:     idx.New().String(),
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		hub:    h,
		rooms:  make(map[string]struct{}),
	}
	h.register(c)

	go c.writePump()
	c.readPump()
}

// Emit sends an event to every connected client.
func (h *Hub) Emit(_ context.Context, event string, payload any) error {
	env, err := NewEnvelope("", event, payload)
	if err != nil {
		return err
	}
	h.Deliver(env)
	return nil
}

// EmitToRoom sends an event to the members of room.
func (h *Hub) EmitToRoom(_ context.Context, room, event string, payload any) error {
	env, err := NewEnvelope(room, event, payload)
	if err != nil {
		return err
	}
	h.Deliver(env)
	return nil
}

// Deliver fans an envelope out to local clients.
func (h *Hub) Deliver(env Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		h.Logger.Error("failed to encode envelope", "event", env.Event, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if env.Room == "" {
		for c := range h.clients {
			c.trySend(data)
		}
		return
	}
	for c := range h.rooms[env.Room] {
		c.trySend(data)
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c.conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		_ = conn.Close()
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.Logger.Debug("websocket client connected", "client_id", c.id, "user_id", c.userID)
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		for room := range c.rooms {
			h.removeMember(c, room)
		}
		close(c.send)
	}
	h.mu.Unlock()
	h.Logger.Debug("websocket client disconnected", "client_id", c.id)
}

// join adds c to room. It reports false when c is already in
// maxRoomsPerClient other rooms.
func (h *Hub) join(c *client, room string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, in := c.rooms[room]; !in && len(c.rooms) >= maxRoomsPerClient {
		return false
	}
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
	c.rooms[room] = struct{}{}
	return true
}

func (h *Hub) leave(c *client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeMember(c, room)
}

// removeMember expects h.mu to be held.
func (h *Hub) removeMember(c *client, room string) {
	delete(c.rooms, room)
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

func (h *Hub) chat() Broadcaster {
	if h.Chat != nil {
		return h.Chat
	}
	return h
}
