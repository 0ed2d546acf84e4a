// Package hub pushes new notifications to connected students over websockets.
// With Redis configured, events are fanned out through pub/sub so every
// server instance delivers to its own connections.
package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"scms/backend/internal/models"

	"github.com/redis/go-redis/v9"
)

const eventTypeNotification = "notification"

// ManagerService owns the set of live clients.
type ManagerService struct {
	mu      sync.RWMutex
	clients map[uint]map[string]Client

	registerCh   chan Client
	unregisterCh chan Client
	deliverCh    chan models.NotificationEvent
	done         chan struct{}

	Redis   *redis.Client
	Channel string
}

// NewManagerService creates a hub. rdb may be nil for single-instance deployments.
func NewManagerService(rdb *redis.Client, channel string) *ManagerService {
	if channel == "" {
		channel = "complaints:notifications"
	}
	return &ManagerService{
		clients:      make(map[uint]map[string]Client),
		registerCh:   make(chan Client),
		unregisterCh: make(chan Client),
		deliverCh:    make(chan models.NotificationEvent, 256),
		done:         make(chan struct{}),
		Redis:        rdb,
		Channel:      channel,
	}
}

// Register adds a connection. It is a no-op once the hub has stopped.
func (m *ManagerService) Register(c Client) {
	select {
	case m.registerCh <- c:
	case <-m.done:
	}
}

// Unregister removes a connection and closes it.
func (m *ManagerService) Unregister(c Client) {
	select {
	case m.unregisterCh <- c:
	case <-m.done:
	}
}

// ClientCount returns the number of live connections of userID.
func (m *ManagerService) ClientCount(userID uint) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients[userID])
}

// Publish hands a committed notification to the hub.
// With Redis it goes through pub/sub, otherwise straight to the local dispatcher.
func (m *ManagerService) Publish(ctx context.Context, n models.Notification) {
	event := models.NotificationEvent{Type: eventTypeNotification, UserID: n.UserID, Notification: n}
	if m.Redis != nil {
		if err := PublishEvent(ctx, m.Redis, m.Channel, event); err != nil {
			slog.Error("failed to publish notification", "user_id", n.UserID, "err", err)
		}
		return
	}
	m.deliverLocal(event)
}

func (m *ManagerService) deliverLocal(event models.NotificationEvent) {
	select {
	case m.deliverCh <- event:
	case <-m.done:
	default:
		slog.Warn("notification hub backlog full, dropping live event", "user_id", event.UserID)
	}
}

// PublishEvent writes event to a Redis channel. The admin CLI uses it directly
// so connected students see changes made outside the server.
func PublishEvent(ctx context.Context, rdb *redis.Client, channel string, event models.NotificationEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return rdb.Publish(ctx, channel, payload).Err()
}

// Run is the dispatcher loop. It returns when ctx is cancelled.
func (m *ManagerService) Run(ctx context.Context) {
	defer func() {
		close(m.done)
		m.closeAll()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case c := <-m.registerCh:
			m.addClient(c)
		case c := <-m.unregisterCh:
			m.removeClient(c)
		case event := <-m.deliverCh:
			m.dispatch(event)
		}
	}
}

func (m *ManagerService) addClient(c Client) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conns, ok := m.clients[c.GetUserID()]
	if !ok {
		conns = make(map[string]Client)
		m.clients[c.GetUserID()] = conns
	}
	conns[c.GetID()] = c
	slog.Debug("client registered", "user_id", c.GetUserID(), "conn_id", c.GetID())
}

func (m *ManagerService) removeClient(c Client) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conns, ok := m.clients[c.GetUserID()]
	if !ok {
		return
	}
	if _, ok := conns[c.GetID()]; !ok {
		return
	}
	delete(conns, c.GetID())
	if len(conns) == 0 {
		delete(m.clients, c.GetUserID())
	}
	c.Close()
	slog.Debug("client unregistered", "user_id", c.GetUserID(), "conn_id", c.GetID())
}

func (m *ManagerService) dispatch(event models.NotificationEvent) {
	m.mu.RLock()
	var slow []Client
	for _, c := range m.clients[event.UserID] {
		select {
		case c.GetSendChannel() <- event:
		default:
			slow = append(slow, c)
		}
	}
	m.mu.RUnlock()

	for _, c := range slow {
		slog.Warn("dropping slow client", "user_id", c.GetUserID(), "conn_id", c.GetID())
		m.removeClient(c)
	}
}

func (m *ManagerService) closeAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for userID, conns := range m.clients {
		for _, c := range conns {
			c.Close()
		}
		delete(m.clients, userID)
	}
}
