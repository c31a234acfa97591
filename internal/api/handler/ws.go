package handler

import (
	"net/http"
	"strings"

	"gigboard/backend/internal/chathub"
	"gigboard/backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The board's front-end is served from another origin in development.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket authenticates the handshake with the same credential scheme
// as the HTTP API, upgrades the connection and registers it with the hub.
// Browsers cannot set headers on websocket requests, so the token is also
// accepted as a query parameter.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	tokenString := c.Query("token")
	if tokenString == "" {
		authHeader := c.GetHeader("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
		}
	}
	if tokenString == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"message": "Access denied. No token provided.",
		})
		return
	}

	user, err := h.authenticate(tokenString)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"message": "Invalid or expired token",
		})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to upgrade connection",
		})
		return
	}

	client := &chathub.WebSocketClient{
		ConnID:   uuid.New().String(),
		UserID:   user.ID,
		UserName: user.Name,
		Conn:     conn,
		Hub:      h.Hub,
		Send:     make(chan models.Event, 256),
	}

	h.Hub.RegisterCh <- client
	client.Run()
}
