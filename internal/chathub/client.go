package chathub

import "gigboard/backend/internal/models"

// Client is the interface for one live connection to the hub. It abstracts
// the underlying transport so the hub can manage websocket connections and
// test doubles uniformly. A user may hold several clients at once (one per
// device); presence is derived from the count of live clients per user.
type Client interface {
	// GetConnID returns the unique identifier of this connection.
	GetConnID() string
	// GetUserID returns the authenticated user behind the connection.
	GetUserID() string
	// GetUserName returns the user's display name, captured at handshake and
	// echoed in typing notices.
	GetUserName() string

	// GetSendChannel returns the channel the hub writes outbound events to.
	GetSendChannel() chan<- models.Event

	// Run starts the client's read and write pumps.
	Run()
	// Close shuts down the client's outbound channel and transport.
	Close()
}
