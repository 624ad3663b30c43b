package handler

import (
	"net/http"

	"sunportal/backend/internal/livefeed"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The portal frontend is served from a separate origin in development.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeLiveFeed upgrades the connection and attaches it to the hub. Auth
// uses the token query parameter because browsers cannot set headers on
// WebSocket dials.
func (h *Handler) ServeLiveFeed(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization token missing", "kind": "unauthorized"})
		return
	}
	if _, err := h.validateToken(token); err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token", "kind": "unauthorized"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to upgrade connection", "kind": "internal"})
		return
	}

	client := livefeed.NewClient(conn, h.Hub, h.Logger)
	h.Hub.RegisterCh <- client
	client.Run()
}
