package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"scms/backend/internal/apperr"
	"scms/backend/internal/hub"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Tokens, not cookies, authenticate the stream, so any origin may connect.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket streams new notifications of the caller.
// The token comes from the Authorization header or the "token" query parameter.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	token, ok := bearerToken(c.Request)
	if !ok {
		token = strings.TrimSpace(c.Query("token"))
	}
	if token == "" {
		audit(c, "ws.authorize", "fail", "reason", "missing_token")
		h.fail(c, apperr.New(apperr.ErrUnauthenticated, "Not authenticated."))
		return
	}
	id, err := h.Auth.Resolve(c.Request.Context(), token)
	if err != nil {
		audit(c, "ws.authorize", "fail", "reason", auditReason(err))
		h.fail(c, err)
		return
	}
	if id.IsAdmin() {
		h.fail(c, apperr.New(apperr.ErrForbidden, "The administrator has no notification stream."))
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		slog.Warn("websocket upgrade failed", "user_id", id.ID, "err", err)
		return
	}

	client := hub.NewWebSocketClient(h.Hub, conn, id.ID)
	h.Hub.Register(client)
	client.Run()
}
