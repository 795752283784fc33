package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
)

// Event names pushed to websocket clients.
const (
	EventNewAuction     = "new_auction"
	EventNewBid         = "new_bid"
	EventAuctionUpdated = "auction_updated"
	EventNewMessage     = "new_message"
	EventJoined         = "joined"
	EventLeft           = "left"
	EventError          = "error"
)

// ChatRoom is the single room chat messages are fanned out to.
const ChatRoom = "chat_room"

// AuctionRoom names the room that receives bids for one auction.
func AuctionRoom(auctionID string) string {
	return "auction_" + auctionID
}

// Broadcaster pushes events to connected clients. Delivery is best effort
// and at most once; callers log errors rather than fail on them.
type Broadcaster interface {
	Emit(ctx context.Context, event string, payload any) error
	EmitToRoom(ctx context.Context, room, event string, payload any) error
}

// Deliverer accepts an already encoded envelope for local fan-out.
type Deliverer interface {
	Deliver(env Envelope)
}

// Envelope is the wire shape of every server-to-client frame. An empty Room
// means the event went to every client.
type Envelope struct {
	Room    string          `json:"room,omitempty"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEnvelope encodes payload into an envelope.
func NewEnvelope(room, event string, payload any) (Envelope, error) {
	if event == "" {
		return Envelope{}, fmt.Errorf("broadcast: empty event name")
	}
	env := Envelope{Room: room, Event: event}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return Envelope{}, fmt.Errorf("broadcast: encode %s payload: %w", event, err)
		}
		env.Payload = raw
	}
	return env, nil
}

// Nop discards every event.
type Nop struct{}

func (Nop) Emit(context.Context, string, any) error               { return nil }
func (Nop) EmitToRoom(context.Context, string, string, any) error { return nil }
