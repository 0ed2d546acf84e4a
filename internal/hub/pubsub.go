package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"scms/backend/internal/models"
)

// StartPubSubListener subscribes to the hub channel and feeds every event to the dispatcher.
// It returns once the subscription is confirmed so no event published afterwards is missed.
func (m *ManagerService) StartPubSubListener(ctx context.Context) error {
	if m.Redis == nil {
		return nil
	}
	pubsub := m.Redis.Subscribe(ctx, m.Channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return fmt.Errorf("subscribe %s: %w", m.Channel, err)
	}

	go func() {
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var event models.NotificationEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					slog.Warn("error unmarshalling redis event", "err", err)
					continue
				}
				m.deliverLocal(event)
			}
		}
	}()
	return nil
}

// Start launches the Redis listener (when configured) and the dispatcher loop.
func (m *ManagerService) Start(ctx context.Context) error {
	if err := m.StartPubSubListener(ctx); err != nil {
		return err
	}
	go m.Run(ctx)
	return nil
}
