package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/Daniel-Penner/CampusLink-sub000/internal/store"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return s
}

func mustUser(t *testing.T, s *SQLiteStore, username string) *store.User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), username, "hash")
	if err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}

func TestUserRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created := mustUser(t, s, "alice")

	byID, err := s.GetUserByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if byID.Username != "alice" {
		t.Fatalf("unexpected user: %+v", byID)
	}

	byName, err := s.GetUserByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("get by username: %v", err)
	}
	if byName.ID != created.ID {
		t.Fatalf("id mismatch: %s vs %s", byName.ID, created.ID)
	}

	if _, err := s.GetUserByUsername(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if _, err := s.CreateUser(ctx, "alice", "hash2"); err == nil {
		t.Fatal("duplicate username should fail")
	}
}

func TestChannelMembership(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	owner := mustUser(t, s, "owner")
	member := mustUser(t, s, "member")

	ch, err := s.CreateChannel(ctx, "general", owner.ID)
	if err != nil {
		t.Fatalf("create channel: %v", err)
	}

	// The owner is a member from the start.
	if ok, err := s.IsMember(ctx, ch.ID, owner.ID); err != nil || !ok {
		t.Fatalf("owner membership: ok=%v err=%v", ok, err)
	}
	if ok, _ := s.IsMember(ctx, ch.ID, member.ID); ok {
		t.Fatal("member should not be in channel yet")
	}

	if err := s.AddMember(ctx, ch.ID, member.ID); err != nil {
		t.Fatalf("add member: %v", err)
	}
	if err := s.AddMember(ctx, ch.ID, member.ID); err != nil {
		t.Fatalf("add member twice: %v", err)
	}
	if ok, _ := s.IsMember(ctx, ch.ID, member.ID); !ok {
		t.Fatal("member should be in channel")
	}

	channels, err := s.ListChannels(ctx, member.ID)
	if err != nil {
		t.Fatalf("list channels: %v", err)
	}
	if len(channels) != 1 || channels[0].ID != ch.ID {
		t.Fatalf("unexpected channels: %+v", channels)
	}

	if err := s.RemoveMember(ctx, ch.ID, member.ID); err != nil {
		t.Fatalf("remove member: %v", err)
	}
	if ok, _ := s.IsMember(ctx, ch.ID, member.ID); ok {
		t.Fatal("member should be removed")
	}
}

func TestChannelHistoryOrderAndPaging(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := mustUser(t, s, "alice")
	ch, err := s.CreateChannel(ctx, "general", alice.ID)
	if err != nil {
		t.Fatalf("create channel: %v", err)
	}

	contents := []string{"one", "two", "three", "four"}
	for _, c := range contents {
		if _, err := s.SaveChannelMessage(ctx, ch.ID, alice.ID, c); err != nil {
			t.Fatalf("save %q: %v", c, err)
		}
	}

	history, err := s.ChannelHistory(ctx, ch.ID, 10, nil)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(history))
	}
	for i, msg := range history {
		if msg.Content != contents[i] {
			t.Fatalf("history out of order at %d: %+v", i, msg)
		}
		if i > 0 && msg.ID <= history[i-1].ID {
			t.Fatalf("ids must be strictly increasing: %d then %d", history[i-1].ID, msg.ID)
		}
	}

	// Page older than the third message.
	before := history[2].ID
	page, err := s.ChannelHistory(ctx, ch.ID, 10, &before)
	if err != nil {
		t.Fatalf("paged history: %v", err)
	}
	if len(page) != 2 || page[0].Content != "one" || page[1].Content != "two" {
		t.Fatalf("unexpected page: %+v", page)
	}
}

func TestDirectHistoryBothDirections(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := mustUser(t, s, "alice")
	bob := mustUser(t, s, "bob")
	carol := mustUser(t, s, "carol")

	if _, err := s.SaveDirectMessage(ctx, alice.ID, bob.ID, "hi bob"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := s.SaveDirectMessage(ctx, bob.ID, alice.ID, "hi alice"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := s.SaveDirectMessage(ctx, alice.ID, carol.ID, "hi carol"); err != nil {
		t.Fatalf("save: %v", err)
	}

	history, err := s.DirectHistory(ctx, alice.ID, bob.ID, 10, nil)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected both directions, got %d messages", len(history))
	}
	if history[0].Content != "hi bob" || history[1].Content != "hi alice" {
		t.Fatalf("unexpected order: %+v", history)
	}
	for _, msg := range history {
		if msg.ChannelID != "" {
			t.Fatalf("direct message must not carry a channel: %+v", msg)
		}
	}
}

func TestDirectHistoryPagingFiltersBothDirections(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := mustUser(t, s, "alice")
	bob := mustUser(t, s, "bob")

	first, err := s.SaveDirectMessage(ctx, alice.ID, bob.ID, "first")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	cursor, err := s.SaveDirectMessage(ctx, bob.ID, alice.ID, "second")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := s.SaveDirectMessage(ctx, alice.ID, bob.ID, "third"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := s.SaveDirectMessage(ctx, bob.ID, alice.ID, "fourth"); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Paging before the second message must drop newer messages from both
	// directions, not just the ones bob sent.
	page, err := s.DirectHistory(ctx, alice.ID, bob.ID, 10, &cursor.ID)
	if err != nil {
		t.Fatalf("paged history: %v", err)
	}
	if len(page) != 1 || page[0].ID != first.ID || page[0].Content != "first" {
		t.Fatalf("unexpected page: %+v", page)
	}
	for _, msg := range page {
		if msg.ID >= cursor.ID {
			t.Fatalf("message %d leaked past cursor %d", msg.ID, cursor.ID)
		}
	}
}
