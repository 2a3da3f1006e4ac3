package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/veripass/veripass/backend/reader-services/internal/events"
	"github.com/veripass/veripass/backend/reader-services/pkg/logger"
)

var feedUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Dashboards connect from operator origins behind the same gateway.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// FeedHandler streams reading lifecycle events over a websocket.
type FeedHandler struct {
	hub *events.Hub
}

func NewFeedHandler(hub *events.Hub) *FeedHandler {
	return &FeedHandler{hub: hub}
}

func (h *FeedHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/feed", h.Feed)
}

func (h *FeedHandler) Feed(c *gin.Context) {
	conn, err := feedUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warnf("feed upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ch, cancel := h.hub.Subscribe()
	defer cancel()

	// drain client frames so pings and close messages are processed
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	for ev := range ch {
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteJSON(ev); err != nil {
			return
		}
	}
}
