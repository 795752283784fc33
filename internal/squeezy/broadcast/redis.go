package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultChannel is the Redis pub/sub channel instances share.
const DefaultChannel = "squeezy:broadcast"

// RedisRelay fans events out through Redis pub/sub so every instance
// delivers them to its own clients. Publishing goes to Redis only; the local
// hub receives the event back through Run like every other instance.
type RedisRelay struct {
	rdb     redis.UniversalClient
	channel string
	local   Deliverer
	logger  *slog.Logger

	// MinBackoff and MaxBackoff bound the wait between resubscribe attempts.
	MinBackoff time.Duration
	MaxBackoff time.Duration

	ready     chan struct{}
	readyOnce sync.Once
}

func NewRedisRelay(rdb redis.UniversalClient, channel string, local Deliverer, logger *slog.Logger) *RedisRelay {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisRelay{
		rdb:     rdb,
		channel: channel,
		local:   local,
		logger:  logger,

		MinBackoff: 500 * time.Millisecond,
		MaxBackoff: 30 * time.Second,

		ready: make(chan struct{}),
	}
}

func (r *RedisRelay) Emit(ctx context.Context, event string, payload any) error {
	return r.publish(ctx, "", event, payload)
}

func (r *RedisRelay) EmitToRoom(ctx context.Context, room, event string, payload any) error {
	return r.publish(ctx, room, event, payload)
}

func (r *RedisRelay) publish(ctx context.Context, room, event string, payload any) error {
	env, err := NewEnvelope(room, event, payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("broadcast: encode envelope: %w", err)
	}
	if err := r.rdb.Publish(ctx, r.channel, data).Err(); err != nil {
		return fmt.Errorf("broadcast: publish %s: %w", event, err)
	}
	return nil
}

// Ready is closed once the first subscription is confirmed.
func (r *RedisRelay) Ready() <-chan struct{} {
	return r.ready
}

// Run keeps a subscription to the channel open and delivers every envelope
// to the local hub until ctx is cancelled. A failed or dropped subscription
// is retried with exponential backoff.
func (r *RedisRelay) Run(ctx context.Context) error {
	floor := max(r.MinBackoff, 10*time.Millisecond)
	backoff := floor
	for {
		subscribed, err := r.subscribe(ctx)
		if ctx.Err() != nil {
			r.logger.Info("broadcast relay stopped", "channel", r.channel)
			return nil
		}
		if subscribed {
			backoff = floor
		}
		r.logger.Warn("broadcast subscription lost, retrying",
			"channel", r.channel, "error", err, "retry_in", backoff)

		select {
		case <-ctx.Done():
			r.logger.Info("broadcast relay stopped", "channel", r.channel)
			return nil
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, max(r.MaxBackoff, floor))
	}
}

// subscribe runs one subscription until it fails or ctx ends. It reports
// whether the subscription was confirmed before that.
func (r *RedisRelay) subscribe(ctx context.Context) (bool, error) {
	pubsub := r.rdb.Subscribe(ctx, r.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return false, fmt.Errorf("broadcast: subscribe %s: %w", r.channel, err)
	}
	r.readyOnce.Do(func() { close(r.ready) })
	r.logger.Info("subscribed to broadcast channel", "channel", r.channel)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return true, ctx.Err()

		case msg, ok := <-ch:
			if !ok {
				return true, fmt.Errorf("broadcast: subscription %s closed", r.channel)
			}
			var env Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				r.logger.Warn("dropping malformed broadcast envelope", "error", err)
				continue
			}
			r.local.Deliver(env)
		}
	}
}
