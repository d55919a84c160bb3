package api

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/relayforge/orchestra/internal/events"
)

func TestWSHandler_SubscribeReceivesPublishedEvent(t *testing.T) {
	pub := events.NewMemoryPublisher()
	defer pub.Close()

	h := NewWSHandler(pub, nil)
	srv := httptest.NewServer(h)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	sub := WSMessage{Type: "subscribe", SessionID: "42"}
	payload, err := json.Marshal(sub)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, payload))

	// Give the subscribe frame time to register before publishing.
	time.Sleep(50 * time.Millisecond)
	pub.Publish(events.NewEvent(events.EventSessionUpdate, "42", map[string]string{"status": "working"}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var event events.Event
	require.NoError(t, json.Unmarshal(msg, &event))
	require.Equal(t, events.EventSessionUpdate, event.Type)
	require.Equal(t, "42", event.SessionID)
}

func TestWSHandler_DoesNotReceiveUnsubscribedSessionEvents(t *testing.T) {
	pub := events.NewMemoryPublisher()
	defer pub.Close()

	h := NewWSHandler(pub, nil)
	srv := httptest.NewServer(h)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	sub := WSMessage{Type: "subscribe", SessionID: "42"}
	payload, err := json.Marshal(sub)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, payload))
	time.Sleep(50 * time.Millisecond)

	pub.Publish(events.NewEvent(events.EventSessionUpdate, "other-session", nil))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err = conn.ReadMessage()
	require.Error(t, err, "expected no message for a different session id")
}
