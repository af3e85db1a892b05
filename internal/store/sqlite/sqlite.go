package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/Daniel-Penner/CampusLink-sub000/internal/store"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

var _ store.Store = (*SQLiteStore)(nil)

// New opens the SQLite database at dbPath.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return &SQLiteStore{db: db}, nil
}

// Migrate applies the schema. Safe to run repeatedly.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	username TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS channels (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	owner_id TEXT NOT NULL REFERENCES users(id),
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS channel_members (
	channel_id TEXT NOT NULL REFERENCES channels(id),
	user_id TEXT NOT NULL REFERENCES users(id),
	joined_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (channel_id, user_id)
);

CREATE TABLE IF NOT EXISTS messages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	sender_id TEXT NOT NULL REFERENCES users(id),
	channel_id TEXT REFERENCES channels(id),
	recipient_id TEXT REFERENCES users(id),
	content TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	CHECK ((channel_id IS NULL) != (recipient_id IS NULL))
);

CREATE INDEX IF NOT EXISTS idx_messages_channel ON messages(channel_id, id);
CREATE INDEX IF NOT EXISTS idx_messages_direct ON messages(sender_id, recipient_id, id);
`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== UserStore ====

// CreateUser creates a new user with hashed password.
func (s *SQLiteStore) CreateUser(ctx context.Context, username, passwordHash string) (*store.User, error) {
	id := uuid.NewString()
	query := `INSERT INTO users (id, username, password_hash) VALUES (?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, query, id, username, passwordHash); err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return s.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*store.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE id = ?`, id))
}

// GetUserByUsername retrieves a user by username.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE username = ?`, username))
}

func (s *SQLiteStore) scanUser(row *sql.Row) (*store.User, error) {
	var user store.User
	err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &user, nil
}

// ==== ChannelStore ====

// CreateChannel creates a channel with the owner as first member.
func (s *SQLiteStore) CreateChannel(ctx context.Context, name, ownerID string) (*store.Channel, error) {
	id := uuid.NewString()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO channels (id, name, owner_id) VALUES (?, ?, ?)`, id, name, ownerID); err != nil {
		return nil, fmt.Errorf("insert channel: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO channel_members (channel_id, user_id) VALUES (?, ?)`, id, ownerID); err != nil {
		return nil, fmt.Errorf("insert owner membership: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return s.GetChannelByID(ctx, id)
}

// GetChannelByID retrieves a channel by ID.
func (s *SQLiteStore) GetChannelByID(ctx context.Context, id string) (*store.Channel, error) {
	var ch store.Channel
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, owner_id, created_at FROM channels WHERE id = ?`, id).
		Scan(&ch.ID, &ch.Name, &ch.OwnerID, &ch.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query channel: %w", err)
	}
	return &ch, nil
}

// ListChannels lists the channels the user is a member of.
func (s *SQLiteStore) ListChannels(ctx context.Context, userID string) ([]*store.Channel, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.name, c.owner_id, c.created_at
		FROM channels c
		JOIN channel_members m ON m.channel_id = c.id
		WHERE m.user_id = ?
		ORDER BY c.created_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query channels: %w", err)
	}
	defer rows.Close()

	var channels []*store.Channel
	for rows.Next() {
		var ch store.Channel
		if err := rows.Scan(&ch.ID, &ch.Name, &ch.OwnerID, &ch.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		channels = append(channels, &ch)
	}
	return channels, rows.Err()
}

// AddMember adds a user to a channel. Idempotent.
func (s *SQLiteStore) AddMember(ctx context.Context, channelID, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO channel_members (channel_id, user_id) VALUES (?, ?)`, channelID, userID)
	if err != nil {
		return fmt.Errorf("insert membership: %w", err)
	}
	return nil
}

// RemoveMember removes a user from a channel.
func (s *SQLiteStore) RemoveMember(ctx context.Context, channelID, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM channel_members WHERE channel_id = ? AND user_id = ?`, channelID, userID)
	if err != nil {
		return fmt.Errorf("delete membership: %w", err)
	}
	return nil
}

// IsMember checks channel membership.
func (s *SQLiteStore) IsMember(ctx context.Context, channelID, userID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM channel_members WHERE channel_id = ? AND user_id = ?`, channelID, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query membership: %w", err)
	}
	return true, nil
}

// ==== MessageStore ====

// SaveChannelMessage persists a channel message.
func (s *SQLiteStore) SaveChannelMessage(ctx context.Context, channelID, senderID, content string) (*store.Message, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (sender_id, channel_id, content) VALUES (?, ?, ?)`,
		senderID, channelID, content)
	if err != nil {
		return nil, fmt.Errorf("insert channel message: %w", err)
	}
	return s.messageByResult(ctx, result)
}

// SaveDirectMessage persists a direct message.
func (s *SQLiteStore) SaveDirectMessage(ctx context.Context, senderID, recipientID, content string) (*store.Message, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (sender_id, recipient_id, content) VALUES (?, ?, ?)`,
		senderID, recipientID, content)
	if err != nil {
		return nil, fmt.Errorf("insert direct message: %w", err)
	}
	return s.messageByResult(ctx, result)
}

func (s *SQLiteStore) messageByResult(ctx context.Context, result sql.Result) (*store.Message, error) {
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	var msg store.Message
	var channelID, recipientID sql.NullString
	err = s.db.QueryRowContext(ctx,
		`SELECT id, sender_id, channel_id, recipient_id, content, created_at FROM messages WHERE id = ?`, id).
		Scan(&msg.ID, &msg.SenderID, &channelID, &recipientID, &msg.Content, &msg.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("query message: %w", err)
	}
	msg.ChannelID = channelID.String
	msg.RecipientID = recipientID.String
	return &msg, nil
}

// ChannelHistory returns channel messages ordered oldest first. Insertion id
// order is the replay order; ties in created_at resolve by id.
func (s *SQLiteStore) ChannelHistory(ctx context.Context, channelID string, limit int, beforeID *int64) ([]*store.Message, error) {
	query := `
		SELECT id, sender_id, channel_id, recipient_id, content, created_at
		FROM messages
		WHERE channel_id = ?`
	args := []any{channelID}
	if beforeID != nil {
		query += ` AND id < ?`
		args = append(args, *beforeID)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	return s.queryMessages(ctx, query, args...)
}

// DirectHistory returns the direct conversation between two users, oldest
// first.
func (s *SQLiteStore) DirectHistory(ctx context.Context, userA, userB string, limit int, beforeID *int64) ([]*store.Message, error) {
	// The direction disjunction must stay grouped so an id filter applies to
	// both directions, not just the last OR operand.
	query := `
		SELECT id, sender_id, channel_id, recipient_id, content, created_at
		FROM messages
		WHERE ((sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?))`
	args := []any{userA, userB, userB, userA}
	if beforeID != nil {
		query += ` AND id < ?`
		args = append(args, *beforeID)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	return s.queryMessages(ctx, query, args...)
}

func (s *SQLiteStore) queryMessages(ctx context.Context, query string, args ...any) ([]*store.Message, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []*store.Message
	for rows.Next() {
		var msg store.Message
		var channelID, recipientID sql.NullString
		if err := rows.Scan(&msg.ID, &msg.SenderID, &channelID, &recipientID, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.ChannelID = channelID.String
		msg.RecipientID = recipientID.String
		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Query is newest-first for the LIMIT; callers want oldest first.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
