package hub_test

import (
	"context"
	"testing"
	"time"

	"scms/backend/internal/hub"
	"scms/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitFor = time.Second

func startHub(t *testing.T) *hub.ManagerService {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	h := hub.NewManagerService(nil, "")
	require.NoError(t, h.Start(ctx))
	return h
}

func receive(t *testing.T, c *MockClient) models.NotificationEvent {
	t.Helper()
	select {
	case ev := <-c.RecvChannel:
		return ev
	case <-time.After(waitFor):
		t.Fatalf("client %s did not receive an event", c.id)
		return models.NotificationEvent{}
	}
}

func TestManager_RegisterUnregister(t *testing.T) {
	h := startHub(t)
	clientA := newMockClient("conn-a", 1, 4)

	h.Register(clientA)
	assert.Eventually(t, func() bool { return h.ClientCount(1) == 1 }, waitFor, 10*time.Millisecond)

	h.Unregister(clientA)
	assert.Eventually(t, func() bool { return h.ClientCount(1) == 0 }, waitFor, 10*time.Millisecond)
	assert.EqualValues(t, 1, clientA.CloseCount())

	h.Unregister(clientA)
	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 1, clientA.CloseCount(), "unknown clients are not closed twice")
}

func TestManager_PublishReachesEveryConnectionOfTheUser(t *testing.T) {
	h := startHub(t)
	phone := newMockClient("phone", 7, 4)
	laptop := newMockClient("laptop", 7, 4)
	other := newMockClient("other", 8, 4)
	for _, c := range []*MockClient{phone, laptop, other} {
		h.Register(c)
	}
	require.Eventually(t, func() bool { return h.ClientCount(7) == 2 && h.ClientCount(8) == 1 }, waitFor, 10*time.Millisecond)

	h.Publish(context.Background(), models.Notification{ID: 1, UserID: 7, Message: "Your complaint CF-2026-0001 has been assigned to David Lee."})

	for _, c := range []*MockClient{phone, laptop} {
		ev := receive(t, c)
		assert.Equal(t, "notification", ev.Type)
		assert.EqualValues(t, 7, ev.UserID)
		assert.Contains(t, ev.Notification.Message, "David Lee")
	}
	select {
	case <-other.RecvChannel:
		t.Fatal("another user's connection must not receive the event")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestManager_DropsSlowClient(t *testing.T) {
	h := startHub(t)
	slow := newMockClient("slow", 3, 0)
	h.Register(slow)
	require.Eventually(t, func() bool { return h.ClientCount(3) == 1 }, waitFor, 10*time.Millisecond)

	h.Publish(context.Background(), models.Notification{UserID: 3, Message: "x"})

	assert.Eventually(t, func() bool { return h.ClientCount(3) == 0 }, waitFor, 10*time.Millisecond)
	assert.EqualValues(t, 1, slow.CloseCount())
}

func TestManager_StopClosesClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := hub.NewManagerService(nil, "")
	require.NoError(t, h.Start(ctx))
	c := newMockClient("c", 1, 1)
	h.Register(c)
	require.Eventually(t, func() bool { return h.ClientCount(1) == 1 }, waitFor, 10*time.Millisecond)

	cancel()

	assert.Eventually(t, func() bool { return c.CloseCount() == 1 }, waitFor, 10*time.Millisecond)
	// Calls after shutdown must not block.
	h.Register(newMockClient("late", 1, 1))
	h.Unregister(c)
}
