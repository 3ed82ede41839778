package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"startup-standup-be/internal/pkg/logger"
	"startup-standup-be/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(nil, logger.NewNopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func observe(hub *Hub, sessionID string, buf int) *Client {
	c := &Client{Hub: hub, SessionID: sessionID, Send: make(chan []byte, buf)}
	hub.register <- c
	return c
}

func TestHubDeliversToSessionObserversOnly(t *testing.T) {
	hub := startHub(t)
	a := observe(hub, "a", 4)
	b := observe(hub, "b", 4)
	require.Eventually(t, func() bool { return hub.Observers("a") == 1 && hub.Observers("b") == 1 }, time.Second, 5*time.Millisecond)

	evt := events.NewSessionEvent(events.TypeTurnProcessed, "a", map[string]interface{}{"branch_key": "1-A"}, time.Now())
	require.NoError(t, hub.Deliver(context.Background(), evt))

	select {
	case raw := <-a.Send:
		var got events.BaseEvent
		require.NoError(t, json.Unmarshal(raw, &got))
		assert.Equal(t, events.TypeTurnProcessed, got.Type)
		assert.Equal(t, "1-A", got.Data["branch_key"])
	case <-time.After(time.Second):
		t.Fatal("observer a got nothing")
	}
	assert.Len(t, b.Send, 0)
}

func TestHubUnregisterClosesSend(t *testing.T) {
	hub := startHub(t)
	c := observe(hub, "a", 1)
	require.Eventually(t, func() bool { return hub.Observers("a") == 1 }, time.Second, 5*time.Millisecond)

	hub.unregister <- c
	require.Eventually(t, func() bool { return hub.Observers("a") == 0 }, time.Second, 5*time.Millisecond)

	_, open := <-c.Send
	assert.False(t, open)
}

func TestHubDropsSlowObserver(t *testing.T) {
	hub := startHub(t)
	observe(hub, "a", 1)
	require.Eventually(t, func() bool { return hub.Observers("a") == 1 }, time.Second, 5*time.Millisecond)

	evt := events.NewSessionEvent(events.TypeTurnProcessed, "a", nil, time.Now())
	require.NoError(t, hub.Deliver(context.Background(), evt))
	require.NoError(t, hub.Deliver(context.Background(), evt))

	assert.Eventually(t, func() bool { return hub.Observers("a") == 0 }, time.Second, 5*time.Millisecond)
}
