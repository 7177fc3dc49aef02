package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/senpaisaul/multimodal-rag/internal/interfaces"
	"github.com/senpaisaul/multimodal-rag/internal/services/events"
)

func dialWebSocket(t *testing.T, handler *WebSocketHandler) *websocket.Conn {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(handler.HandleWebSocket))
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var hello WSMessage
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, "hello", hello.Type)
	return conn
}

func TestWebSocket_ForwardsIngestEvents(t *testing.T) {
	logger := arbor.NewLogger()
	eventService := events.NewService(logger)
	defer eventService.Close()

	handler := NewWebSocketHandler(eventService, logger, 0)
	handler.SubscribeToIngestEvents()

	conn := dialWebSocket(t, handler)
	require.Eventually(t, func() bool { return handler.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, eventService.PublishSync(context.Background(), interfaces.Event{
		Type:    interfaces.EventPageProcessed,
		Payload: map[string]interface{}{"session_id": "ses_1", "page": 3},
	}))

	var msg WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, string(interfaces.EventPageProcessed), msg.Type)
	payload, ok := msg.Payload.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "ses_1", payload["session_id"])
	assert.Equal(t, float64(3), payload["page"])
}

func TestWebSocket_ThrottlesPageEvents(t *testing.T) {
	logger := arbor.NewLogger()
	eventService := events.NewService(logger)
	defer eventService.Close()

	handler := NewWebSocketHandler(eventService, logger, time.Hour)
	handler.SubscribeToIngestEvents()

	conn := dialWebSocket(t, handler)
	require.Eventually(t, func() bool { return handler.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	ctx := context.Background()
	for page := 1; page <= 3; page++ {
		require.NoError(t, eventService.PublishSync(ctx, interfaces.Event{Type: interfaces.EventPageProcessed, Payload: map[string]interface{}{"page": page}}))
	}
	require.NoError(t, eventService.PublishSync(ctx, interfaces.Event{Type: interfaces.EventIndexBuilt, Payload: map[string]interface{}{"records": 2}}))

	var first, second WSMessage
	require.NoError(t, conn.ReadJSON(&first))
	require.NoError(t, conn.ReadJSON(&second))
	assert.Equal(t, string(interfaces.EventPageProcessed), first.Type)
	assert.Equal(t, string(interfaces.EventIndexBuilt), second.Type)
}

func TestWebSocket_ClientDisconnect(t *testing.T) {
	handler := NewWebSocketHandler(nil, arbor.NewLogger(), 0)
	handler.SubscribeToIngestEvents()

	conn := dialWebSocket(t, handler)
	require.Eventually(t, func() bool { return handler.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return handler.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)

	// broadcasting with no clients is a no-op
	handler.Broadcast(WSMessage{Type: "noop"})
}
