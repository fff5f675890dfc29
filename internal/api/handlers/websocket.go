package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/playmatatu/beerpong/internal/ws"
)

// SessionWebSocket streams a session's previews and episode events
func SessionWebSocket(hub *ws.Hub) gin.HandlerFunc {
	return hub.HandleWebSocket
}
