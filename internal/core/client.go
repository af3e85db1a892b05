package core

// Client is one live transport connection as seen by the broker. A user may
// own several clients at once (multiple tabs); they all join the same
// personal room.
type Client struct {
	// ID is the transport-assigned connection identifier.
	ID string
	// UserID is bound once by the join command and never changed afterwards.
	UserID string

	Commands chan *Command
	Events   chan *Event
}

// NewClient constructs a client with initialized channels.
func NewClient(id string) *Client {
	return &Client{
		ID:       id,
		Commands: make(chan *Command, 8),
		Events:   make(chan *Event, 16),
	}
}
