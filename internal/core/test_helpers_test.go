package core

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testLogger() *zerolog.Logger {
	nop := zerolog.Nop()
	return &nop
}

func newTestBroker(t *testing.T, ringTimeout time.Duration) *Broker {
	t.Helper()

	b := NewBroker(testLogger(), ringTimeout)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go b.Run(ctx)
	return b
}

// joinAs registers a connection, binds it to its personal room and waits for
// the join to take effect.
func joinAs(t *testing.T, b *Broker, connID, userID string) *Client {
	t.Helper()

	c := NewClient(connID)
	b.RegisterClient(c)
	c.Commands <- &Command{Kind: CommandJoin, UserID: userID}
	waitRoomSize(t, b, userID, 1)
	return c
}

func waitRoomSize(t *testing.T, b *Broker, roomID string, want int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if b.RoomSize(roomID) >= want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("room %q never reached %d members", roomID, want)
}

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

// assertNoEvent drains the channel for a short window and fails if anything
// arrives.
func assertNoEvent(t *testing.T, ch <-chan *Event) {
	t.Helper()

	select {
	case ev := <-ch:
		if ev != nil {
			t.Fatalf("unexpected event: %+v", ev)
		}
	case <-time.After(150 * time.Millisecond):
	}
}
