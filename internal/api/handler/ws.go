package handler

import (
	"net/http"

	"familyeats/backend/internal/feed"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The feed is token-authenticated, so any origin may connect.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeFeed upgrades GET /moderation/feed to a WebSocket that streams
// moderation events to the reviewer.
func (h *Handler) ServeFeed(c *gin.Context) {
	if h.hub == nil {
		c.AbortWithStatus(http.StatusServiceUnavailable)
		return
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the error response.
		h.log.Warn("feed upgrade failed", zap.Error(err))
		return
	}

	reviewer := principal(c).UserID
	client := feed.NewWebSocketClient(h.hub, conn, reviewer, h.log)
	if !h.hub.Register(client) {
		conn.Close()
		return
	}
	client.Run()
	h.log.Info("reviewer subscribed to feed", zap.String("reviewer_id", reviewer))
}
