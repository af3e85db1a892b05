package core

import "time"

// Message is the domain model for a chat message as the broker sees it.
// Channel and Recipient are mutually exclusive: exactly one is set.
type Message struct {
	ID        int64
	Channel   string
	Sender    string
	Recipient string
	Content   string
	CreatedAt time.Time
}
