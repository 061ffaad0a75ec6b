package broadcaster_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goa.design/estimo/internal/broadcaster"
)

func TestLocalBroadcasterDeliversToSubscriber(t *testing.T) {
	b := broadcaster.NewLocalBroadcaster()
	defer b.Close()

	events, unsubscribe := b.Subscribe("sess-1")
	defer unsubscribe()

	require.NoError(t, b.Publish(context.Background(), broadcaster.Event{SessionID: "sess-1", Kind: broadcaster.KindManagerThinking}))

	select {
	case evt := <-events:
		assert.Equal(t, broadcaster.KindManagerThinking, evt.Kind)
	case <-time.After(time.Second):
		t.Fatal("expected event not delivered")
	}
}

func TestLocalBroadcasterIgnoresOtherSessions(t *testing.T) {
	b := broadcaster.NewLocalBroadcaster()
	defer b.Close()

	events, unsubscribe := b.Subscribe("sess-1")
	defer unsubscribe()

	require.NoError(t, b.Publish(context.Background(), broadcaster.Event{SessionID: "sess-2", Kind: broadcaster.KindChatMessage}))

	select {
	case evt := <-events:
		t.Fatalf("unexpected event delivered: %+v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestLocalBroadcasterDropsOldestOnFullBuffer(t *testing.T) {
	b := broadcaster.NewLocalBroadcaster()
	defer b.Close()

	events, unsubscribe := b.Subscribe("sess-1")
	defer unsubscribe()

	for i := 0; i < 100; i++ {
		_ = b.Publish(context.Background(), broadcaster.Event{SessionID: "sess-1", Kind: broadcaster.KindAgentSubstep, Data: map[string]any{"i": i}})
	}

	// Publish never blocked despite the buffer being far smaller than 100
	// events; draining should yield at most the buffer's worth of events.
	count := 0
	first := -1
drain:
	for {
		select {
		case evt := <-events:
			if count == 0 {
				first, _ = evt.Data["i"].(int)
			}
			count++
		case <-time.After(50 * time.Millisecond):
			break drain
		}
	}
	assert.LessOrEqual(t, count, 64)
	assert.Greater(t, count, 0)
	assert.Equal(t, 36, first, "the 36 oldest of 100 events were dropped to make room")
}

func TestLocalBroadcasterUnsubscribeStopsDelivery(t *testing.T) {
	b := broadcaster.NewLocalBroadcaster()
	defer b.Close()

	events, unsubscribe := b.Subscribe("sess-1")
	unsubscribe()

	require.NoError(t, b.Publish(context.Background(), broadcaster.Event{SessionID: "sess-1", Kind: broadcaster.KindTypingIndicator}))

	_, ok := <-events
	assert.False(t, ok, "channel should be closed after unsubscribe")
}
