package handlers

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/veripass/veripass/backend/reader-services/internal/events"
)

func TestFeedStreamsEvents(t *testing.T) {
	g := gin.New()
	hub := events.NewHub()
	NewFeedHandler(hub).Register(g.Group("/api/v1"))

	srv := httptest.NewServer(g)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/feed"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// give the server a moment to register the subscription
	deadline := time.Now().Add(2 * time.Second)
	for hub.Subscribers() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	require.NotZero(t, hub.Subscribers())

	hub.Publish(events.Event{Type: events.ReadFailed, DeviceID: "kiosk-9", Category: "timeout"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev events.Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, events.ReadFailed, ev.Type)
	assert.Equal(t, "kiosk-9", ev.DeviceID)
	assert.Equal(t, "timeout", ev.Category)
}
