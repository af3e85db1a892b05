package store

import (
	"context"
	"time"
)

// User represents a registered user.
type User struct {
	ID           string // UUID
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Channel represents a group-chat channel.
type Channel struct {
	ID        string // UUID
	Name      string
	OwnerID   string
	CreatedAt time.Time
}

// Message represents a persisted chat message. ChannelID and RecipientID are
// mutually exclusive: a channel message has ChannelID set, a direct message
// has RecipientID set. History order is insertion order, which coincides with
// chronological order per conversation.
type Message struct {
	ID          int64
	SenderID    string
	ChannelID   string
	RecipientID string
	Content     string
	CreatedAt   time.Time
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user with hashed password.
	CreateUser(ctx context.Context, username, passwordHash string) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id string) (*User, error)

	// GetUserByUsername retrieves a user by username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)
}

// ChannelStore handles channel persistence and membership.
type ChannelStore interface {
	// CreateChannel creates a channel owned by the given user, with the
	// owner as its first member.
	CreateChannel(ctx context.Context, name, ownerID string) (*Channel, error)

	// GetChannelByID retrieves a channel by ID.
	GetChannelByID(ctx context.Context, id string) (*Channel, error)

	// ListChannels lists the channels the user is a member of.
	ListChannels(ctx context.Context, userID string) ([]*Channel, error)

	// AddMember adds a user to a channel. Idempotent.
	AddMember(ctx context.Context, channelID, userID string) error

	// RemoveMember removes a user from a channel.
	RemoveMember(ctx context.Context, channelID, userID string) error

	// IsMember checks channel membership.
	IsMember(ctx context.Context, channelID, userID string) (bool, error)
}

// MessageStore is the persistence gateway the REST layer calls before asking
// the broker to echo a saved message live.
type MessageStore interface {
	// SaveChannelMessage persists a channel message and returns it with its
	// assigned id and timestamp.
	SaveChannelMessage(ctx context.Context, channelID, senderID, content string) (*Message, error)

	// SaveDirectMessage persists a direct message.
	SaveDirectMessage(ctx context.Context, senderID, recipientID, content string) (*Message, error)

	// ChannelHistory returns channel messages ordered oldest first. If
	// beforeID is set, only messages older than that id are returned.
	ChannelHistory(ctx context.Context, channelID string, limit int, beforeID *int64) ([]*Message, error)

	// DirectHistory returns the direct conversation between two users,
	// ordered oldest first.
	DirectHistory(ctx context.Context, userA, userB string, limit int, beforeID *int64) ([]*Message, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	ChannelStore
	MessageStore

	// Close closes the underlying database connection.
	Close() error
}
