package broadcast

import (
	"context"
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/aussiebroadwan/squeezy/pkg/idx"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxFrameSize   = 4096
	sendBuffer     = 256
	maxChatMessage = 1000
)

// Client actions.
const (
	actionJoinAuction  = "join_auction"
	actionLeaveAuction = "leave_auction"
	actionJoinChat     = "join_chat"
	actionChatMessage  = "chat_message"
)

// frame is what a client sends us.
type frame struct {
	Action    string `json:"action"`
	AuctionID string `json:"auction_id,omitempty"`
	Message   string `json:"message,omitempty"`
}

// ChatMessage is the payload of new_message events.
type ChatMessage struct {
	UserID  string    `json:"userId"`
	Message string    `json:"message"`
	SentAt  time.Time `json:"sentAt"`
}

type client struct {
	id     string
	userID string
	conn   *websocket.Conn
	send   chan []byte
	hub    *Hub

	// rooms is guarded by hub.mu.
	rooms map[string]struct{}
}

// trySend queues data without blocking. A slow client loses the message.
// Callers hold the hub read lock, so send is never closed underneath us.
func (c *client) trySend(data []byte) {
	select {
	case c.send <- data:
	default:
		c.hub.Logger.Warn("websocket send buffer full, dropping message", "client_id", c.id)
	}
}

func (c *client) reply(event string, payload any) {
	env, err := NewEnvelope("", event, payload)
	if err != nil {
		return
	}
	data, err := json.Marshal(env)
	if err != nil {
		return
	}
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if _, ok := c.hub.clients[c]; ok {
		c.trySend(data)
	}
}

func (c *client) replyError(msg string) {
	c.reply(EventError, map[string]string{"message": msg})
}

func (c *client) readPump() {
	defer func() {
		c.hub.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxFrameSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.Logger.Warn("websocket read failed", "client_id", c.id, "error", err)
			}
			return
		}
		c.handle(data)
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *client) handle(data []byte) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		c.replyError("invalid frame")
		return
	}

	switch f.Action {
	case actionJoinAuction, actionLeaveAuction:
		id := strings.TrimSpace(f.AuctionID)
		if !idx.Valid(id) {
			c.replyError("auction_id must be a valid auction id")
			return
		}
		room := AuctionRoom(id)
		if f.Action == actionJoinAuction {
			if !c.hub.join(c, room) {
				c.replyError("too many rooms joined")
				return
			}
			c.reply(EventJoined, map[string]string{"room": room})
		} else {
			c.hub.leave(c, room)
			c.reply(EventLeft, map[string]string{"room": room})
		}

	case actionJoinChat:
		if !c.hub.join(c, ChatRoom) {
			c.replyError("too many rooms joined")
			return
		}
		c.reply(EventJoined, map[string]string{"room": ChatRoom})

	case actionChatMessage:
		if c.userID == "" {
			c.replyError("sign in to chat")
			return
		}
		text := strings.TrimSpace(f.Message)
		if text == "" || utf8.RuneCountInString(text) > maxChatMessage {
			c.replyError("message must be between 1 and 1000 characters")
			return
		}
		msg := ChatMessage{UserID: c.userID, Message: text, SentAt: time.Now().UTC()}
		if err := c.hub.chat().EmitToRoom(context.Background(), ChatRoom, EventNewMessage, msg); err != nil {
			c.hub.Logger.Error("failed to relay chat message", "client_id", c.id, "error", err)
		}

	default:
		c.replyError("unknown action")
	}
}
