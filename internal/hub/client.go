package hub

import "scms/backend/internal/models"

// Client is one live connection of a user that receives notification events.
// It abstracts the underlying transport so the hub can manage connections uniformly.
type Client interface {
	// GetID returns the unique identifier of this connection.
	// A user may hold several connections at once.
	GetID() string
	// GetUserID returns the id of the student the connection belongs to.
	GetUserID() uint

	// GetSendChannel returns the channel the hub writes events to.
	GetSendChannel() chan<- models.NotificationEvent

	// Run starts the client's read and write pumps.
	Run()
	// Close shuts down the send channel; it is called by the hub exactly once.
	Close()
}
