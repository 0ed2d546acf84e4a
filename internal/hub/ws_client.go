package hub

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"scms/backend/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 16
)

// WebSocketClient implements Client over a gorilla websocket connection.
type WebSocketClient struct {
	ID     string
	UserID uint
	Conn   *websocket.Conn
	Hub    *ManagerService
	Send   chan models.NotificationEvent

	closeOnce sync.Once
}

// NewWebSocketClient wraps an upgraded connection for userID.
func NewWebSocketClient(h *ManagerService, conn *websocket.Conn, userID uint) *WebSocketClient {
	return &WebSocketClient{
		ID:     uuid.NewString(),
		UserID: userID,
		Conn:   conn,
		Hub:    h,
		Send:   make(chan models.NotificationEvent, sendBuffer),
	}
}

func (c *WebSocketClient) GetID() string                                   { return c.ID }
func (c *WebSocketClient) GetUserID() uint                                 { return c.UserID }
func (c *WebSocketClient) GetSendChannel() chan<- models.NotificationEvent { return c.Send }

// Run starts the pumps for the websocket.
func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

// Close closes Send, which stops writePump.
func (c *WebSocketClient) Close() {
	c.closeOnce.Do(func() { close(c.Send) })
}

// readPump only drains control frames; the stream is server-to-client.
func (c *WebSocketClient) readPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("websocket read error", "user_id", c.UserID, "err", err)
			}
			return
		}
	}
}

// writePump writes events from Send to the websocket, one JSON message per frame.
func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := json.Marshal(event)
			if err != nil {
				slog.Error("error encoding event", "user_id", c.UserID, "err", err)
				continue
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
