package broadcast

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aussiebroadwan/squeezy/pkg/idx"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestHub(t *testing.T, userID string) (*Hub, string) {
	t.Helper()

	hub := NewHub(slog.Default())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(w, r, userID)
	}))
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var env Envelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

func send(t *testing.T, conn *websocket.Conn, f frame) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(f))
}

func TestHubRooms(t *testing.T) {
	t.Parallel()

	hub, url := newTestHub(t, "")
	auctionID := idx.New().String()
	watcher := dial(t, url)
	bystander := dial(t, url)

	send(t, watcher, frame{Action: actionJoinAuction, AuctionID: auctionID})
	joined := readEnvelope(t, watcher)
	require.Equal(t, EventJoined, joined.Event)
	require.JSONEq(t, `{"room":"auction_`+auctionID+`"}`, string(joined.Payload))

	require.NoError(t, hub.EmitToRoom(context.Background(), AuctionRoom(auctionID), EventNewBid, map[string]int64{"amount": 100}))

	env := readEnvelope(t, watcher)
	require.Equal(t, EventNewBid, env.Event)
	require.Equal(t, AuctionRoom(auctionID), env.Room)
	require.JSONEq(t, `{"amount":100}`, string(env.Payload))

	// Global events reach everyone, room events only members.
	require.NoError(t, hub.Emit(context.Background(), EventNewAuction, map[string]string{"id": "a2"}))
	require.Equal(t, EventNewAuction, readEnvelope(t, bystander).Event)
	require.Equal(t, EventNewAuction, readEnvelope(t, watcher).Event)

	send(t, watcher, frame{Action: actionLeaveAuction, AuctionID: auctionID})
	require.Equal(t, EventLeft, readEnvelope(t, watcher).Event)

	require.NoError(t, hub.EmitToRoom(context.Background(), AuctionRoom(auctionID), EventNewBid, nil))
	require.NoError(t, hub.Emit(context.Background(), EventAuctionUpdated, nil))
	require.Equal(t, EventAuctionUpdated, readEnvelope(t, watcher).Event)
}

func TestHubLimitsRooms(t *testing.T) {
	t.Parallel()

	_, url := newTestHub(t, "")
	conn := dial(t, url)

	for _, id := range []string{"", "a1", "../chat", strings.Repeat("z", 26)} {
		send(t, conn, frame{Action: actionJoinAuction, AuctionID: id})
		require.Equal(t, EventError, readEnvelope(t, conn).Event, id)
	}

	for range maxRoomsPerClient {
		send(t, conn, frame{Action: actionJoinAuction, AuctionID: idx.New().String()})
		require.Equal(t, EventJoined, readEnvelope(t, conn).Event)
	}
	send(t, conn, frame{Action: actionJoinAuction, AuctionID: idx.New().String()})
	require.Equal(t, EventError, readEnvelope(t, conn).Event)
	send(t, conn, frame{Action: actionJoinChat})
	require.Equal(t, EventError, readEnvelope(t, conn).Event)
}

func TestHubRejectsBadFrames(t *testing.T) {
	t.Parallel()

	_, url := newTestHub(t, "")
	conn := dial(t, url)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	require.Equal(t, EventError, readEnvelope(t, conn).Event)

	send(t, conn, frame{Action: actionJoinAuction})
	require.Equal(t, EventError, readEnvelope(t, conn).Event)

	send(t, conn, frame{Action: "dance"})
	require.Equal(t, EventError, readEnvelope(t, conn).Event)

	// Anonymous clients cannot chat.
	send(t, conn, frame{Action: actionChatMessage, Message: "hi"})
	require.Equal(t, EventError, readEnvelope(t, conn).Event)
}

func TestHubChat(t *testing.T) {
	t.Parallel()

	_, url := newTestHub(t, "user-1")
	conn := dial(t, url)

	send(t, conn, frame{Action: actionJoinChat})
	require.Equal(t, EventJoined, readEnvelope(t, conn).Event)

	send(t, conn, frame{Action: actionChatMessage, Message: "  hello  "})
	env := readEnvelope(t, conn)
	require.Equal(t, EventNewMessage, env.Event)
	require.Equal(t, ChatRoom, env.Room)

	var msg ChatMessage
	require.NoError(t, json.Unmarshal(env.Payload, &msg))
	require.Equal(t, "user-1", msg.UserID)
	require.Equal(t, "hello", msg.Message)

	send(t, conn, frame{Action: actionChatMessage, Message: strings.Repeat("x", maxChatMessage+1)})
	require.Equal(t, EventError, readEnvelope(t, conn).Event)
}

func TestHubUnregistersOnDisconnect(t *testing.T) {
	t.Parallel()

	hub, url := newTestHub(t, "")
	conn := dial(t, url)
	send(t, conn, frame{Action: actionJoinChat})
	readEnvelope(t, conn)
	require.Equal(t, 1, hub.Clients())

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)

	// Delivering to a room whose only member left must not panic.
	hub.Deliver(Envelope{Room: ChatRoom, Event: EventNewMessage})
}

type recordingDeliverer struct {
	mu   sync.Mutex
	envs []Envelope
}

func (r *recordingDeliverer) Deliver(env Envelope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.envs = append(r.envs, env)
}

func (r *recordingDeliverer) snapshot() []Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Envelope(nil), r.envs...)
}

func TestRedisRelay(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	local := &recordingDeliverer{}
	relay := NewRedisRelay(rdb, "", local, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	select {
	case <-relay.Ready():
	case err := <-done:
		t.Fatalf("relay stopped early: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("relay never subscribed")
	}

	require.NoError(t, relay.EmitToRoom(ctx, AuctionRoom("a1"), EventNewBid, map[string]int64{"amount": 5}))
	require.NoError(t, relay.Emit(ctx, EventAuctionUpdated, map[string]string{"id": "a1"}))

	// A second instance publishing on the same channel reaches us too.
	other := NewRedisRelay(rdb, DefaultChannel, &recordingDeliverer{}, slog.Default())
	require.NoError(t, other.Emit(ctx, EventNewAuction, nil))

	require.Eventually(t, func() bool { return len(local.snapshot()) == 3 }, 2*time.Second, 10*time.Millisecond)

	envs := local.snapshot()
	require.Equal(t, "auction_a1", envs[0].Room)
	require.Equal(t, EventNewBid, envs[0].Event)
	require.Empty(t, envs[1].Room)
	require.Equal(t, EventNewAuction, envs[2].Event)

	cancel()
	require.NoError(t, <-done)
}

func TestRedisRelayRecoversFromOutage(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.Close()

	local := &recordingDeliverer{}
	relay := NewRedisRelay(rdb, "", local, slog.Default())
	relay.MinBackoff = 10 * time.Millisecond
	relay.MaxBackoff = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	select {
	case <-relay.Ready():
		t.Fatal("subscribed while redis was down")
	case err := <-done:
		t.Fatalf("relay gave up: %v", err)
	case <-time.After(200 * time.Millisecond):
	}

	require.NoError(t, mr.Restart())

	select {
	case <-relay.Ready():
	case err := <-done:
		t.Fatalf("relay gave up: %v", err)
	case <-time.After(3 * time.Second):
		t.Fatal("relay never resubscribed")
	}

	require.NoError(t, relay.EmitToRoom(ctx, AuctionRoom("a1"), EventNewBid, map[string]int64{"amount": 7}))
	require.Eventually(t, func() bool { return len(local.snapshot()) == 1 }, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, EventNewBid, local.snapshot()[0].Event)

	cancel()
	require.NoError(t, <-done)
}

func TestNewEnvelope(t *testing.T) {
	t.Parallel()

	_, err := NewEnvelope("", "", nil)
	require.Error(t, err)

	_, err = NewEnvelope("", EventNewBid, make(chan int))
	require.Error(t, err)

	env, err := NewEnvelope("r", EventNewBid, nil)
	require.NoError(t, err)
	require.Nil(t, env.Payload)
}
