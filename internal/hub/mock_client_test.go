package hub_test

import (
	"sync/atomic"

	"scms/backend/internal/models"
)

type MockClient struct {
	id          string
	userID      uint
	RecvChannel chan models.NotificationEvent
	closed      atomic.Int32
}

func newMockClient(id string, userID uint, buffer int) *MockClient {
	return &MockClient{
		id:          id,
		userID:      userID,
		RecvChannel: make(chan models.NotificationEvent, buffer),
	}
}

func (c *MockClient) GetID() string { return c.id }

func (c *MockClient) GetUserID() uint { return c.userID }

func (c *MockClient) GetSendChannel() chan<- models.NotificationEvent {
	return c.RecvChannel
}

func (c *MockClient) Run() {
	// Not needed for testing
}

func (c *MockClient) Close() {
	c.closed.Add(1)
}

func (c *MockClient) CloseCount() int32 { return c.closed.Load() }
