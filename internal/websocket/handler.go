package websocket

import (
	"context"
	"net/http"
	"time"

	"coachmedia/internal/auth"
	"coachmedia/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type Handler struct {
	tokens *auth.TokenService
	hub    *Hub
	feed   *QueueFeed
}

func NewHandler(tokens *auth.TokenService, hub *Hub, feed *QueueFeed) *Handler {
	return &Handler{tokens: tokens, hub: hub, feed: feed}
}

// Connect upgrades the request and streams queue snapshots to the client.
// The current state is pushed immediately so the UI can render before the
// first mutation arrives.
func (h *Handler) Connect(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	claims, err := h.tokens.ParseDeviceToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := NewClient(conn, claims.UserID)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h.hub.Register(client)
	go client.WriteLoop(ctx)

	if frame := h.feed.Snapshot(); frame != nil {
		client.SendMessage(frame)
	}

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			break
		}
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	}

	h.hub.Unregister(client)
}
