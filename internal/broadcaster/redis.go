package broadcaster

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"goa.design/estimo/internal/telemetry"
)

// redisChannelPrefix namespaces session pub/sub channels so the broadcaster
// never collides with unrelated keyspaces on a shared Redis instance.
const redisChannelPrefix = "estimo:events:"

// RedisBroadcaster implements Broadcaster over Redis Pub/Sub (spec §3
// domain stack), for deployments where the process streaming events to a
// client is not the process running the Manager. It satisfies the same
// contract as LocalBroadcaster; callers choose one at construction time.
type RedisBroadcaster struct {
	client *redis.Client
	logger telemetry.Logger

	mu   sync.Mutex
	subs map[string]*redis.PubSub
}

// NewRedisBroadcaster constructs a Broadcaster backed by the given Redis
// client. The client's lifecycle (connection, close) is the caller's
// responsibility; Close on the broadcaster only tears down active
// subscriptions.
func NewRedisBroadcaster(client *redis.Client, logger telemetry.Logger) *RedisBroadcaster {
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	return &RedisBroadcaster{client: client, logger: logger, subs: make(map[string]*redis.PubSub)}
}

func channelName(sessionID string) string {
	return redisChannelPrefix + sessionID
}

// Publish implements Broadcaster by publishing a JSON-encoded event to the
// session's Redis channel. A publish error is logged and also returned;
// the Manager's call sites discard it, so a failed publish never halts the
// pipeline (spec §4.8).
func (b *RedisBroadcaster) Publish(ctx context.Context, evt Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("redis broadcaster: marshal event: %w", err)
	}
	if err := b.client.Publish(ctx, channelName(evt.SessionID), payload).Err(); err != nil {
		b.logger.Warn(ctx, "redis broadcaster: publish failed, event dropped", "session_id", evt.SessionID, "error", err.Error())
		return err
	}
	return nil
}

// Subscribe implements Broadcaster by opening a Redis Pub/Sub subscription
// and relaying decoded events onto a local buffered channel, applying the
// same drop-oldest-on-full-buffer policy as LocalBroadcaster.
func (b *RedisBroadcaster) Subscribe(sessionID string) (<-chan Event, func()) {
	ctx := context.Background()
	ps := b.client.Subscribe(ctx, channelName(sessionID))

	// Keyed per subscription so several subscribers of one session are all
	// tracked and all closed by Close.
	key := fmt.Sprintf("%s#%p", sessionID, ps)
	b.mu.Lock()
	b.subs[key] = ps
	b.mu.Unlock()

	out := make(chan Event, subscriberBufferSize)
	go func() {
		defer close(out)
		for msg := range ps.Channel() {
			var evt Event
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
				b.logger.Warn(ctx, "redis broadcaster: dropping undecodable event", "error", err.Error())
				continue
			}
			select {
			case out <- evt:
			default:
				select {
				case <-out:
				default:
				}
				select {
				case out <- evt:
				default:
				}
			}
		}
	}()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			_ = ps.Close()
			b.mu.Lock()
			delete(b.subs, key)
			b.mu.Unlock()
		})
	}
	return out, unsubscribe
}

// Close implements Broadcaster by closing every active subscription.
func (b *RedisBroadcaster) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	var firstErr error
	for sessionID, ps := range b.subs {
		if err := ps.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(b.subs, sessionID)
	}
	return firstErr
}
