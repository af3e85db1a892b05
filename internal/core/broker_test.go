package core

import (
	"encoding/json"
	"testing"
	"time"
)

func TestBrokerCallFlow(t *testing.T) {
	b := newTestBroker(t, 0)

	c1 := joinAs(t, b, "c1", "u1")
	c2 := joinAs(t, b, "c2", "u2")

	offer := json.RawMessage(`{"sdp":"offer"}`)
	c1.Commands <- &Command{Kind: CommandCallUser, Caller: "u1", Recipient: "u2", Signal: offer}

	ev := mustEvent(t, c2.Events, EventIncomingCall)
	if ev.Caller != "u1" || string(ev.Signal) != string(offer) {
		t.Fatalf("unexpected incoming-call: %+v", ev)
	}

	answer := json.RawMessage(`{"sdp":"answer"}`)
	c2.Commands <- &Command{Kind: CommandAnswerCall, Caller: "u1", Signal: answer}

	ev = mustEvent(t, c1.Events, EventCallAnswered)
	if string(ev.Signal) != string(answer) {
		t.Fatalf("unexpected call-answered: %+v", ev)
	}

	// Candidates flow both ways once connected.
	c1.Commands <- &Command{Kind: CommandICECandidate, Recipient: "u2", Signal: json.RawMessage(`{"c":1}`)}
	ev = mustEvent(t, c2.Events, EventICECandidate)
	if string(ev.Signal) != `{"c":1}` {
		t.Fatalf("unexpected candidate: %+v", ev)
	}
}

func TestBrokerDisconnectEndsCall(t *testing.T) {
	b := newTestBroker(t, 0)

	c1 := joinAs(t, b, "c1", "u1")
	c2 := joinAs(t, b, "c2", "u2")

	c1.Commands <- &Command{Kind: CommandCallUser, Caller: "u1", Recipient: "u2", Signal: json.RawMessage(`{}`)}
	mustEvent(t, c2.Events, EventIncomingCall)
	c2.Commands <- &Command{Kind: CommandAnswerCall, Caller: "u1", Signal: json.RawMessage(`{}`)}
	mustEvent(t, c1.Events, EventCallAnswered)

	b.UnregisterClient(c1)

	mustEvent(t, c2.Events, EventCallEnded)
	if b.Online("u1") {
		t.Fatal("u1 should be offline after unregister")
	}
}

func TestBrokerDisconnectKeepsCallWhileOtherTabRemains(t *testing.T) {
	b := newTestBroker(t, 0)

	c1a := joinAs(t, b, "c1a", "u1")
	c1b := NewClient("c1b")
	b.RegisterClient(c1b)
	c1b.Commands <- &Command{Kind: CommandJoin, UserID: "u1"}
	waitRoomSize(t, b, "u1", 2)
	c2 := joinAs(t, b, "c2", "u2")

	c1a.Commands <- &Command{Kind: CommandCallUser, Caller: "u1", Recipient: "u2", Signal: json.RawMessage(`{}`)}
	mustEvent(t, c2.Events, EventIncomingCall)

	// One of u1's two tabs closes; the call keeps ringing.
	b.UnregisterClient(c1b)
	assertNoEvent(t, c2.Events)
}

func TestBrokerBusyReply(t *testing.T) {
	b := newTestBroker(t, 0)

	c1 := joinAs(t, b, "c1", "u1")
	c2 := joinAs(t, b, "c2", "u2")
	c3 := joinAs(t, b, "c3", "u3")

	c1.Commands <- &Command{Kind: CommandCallUser, Caller: "u1", Recipient: "u2", Signal: json.RawMessage(`{}`)}
	mustEvent(t, c2.Events, EventIncomingCall)

	c3.Commands <- &Command{Kind: CommandCallUser, Caller: "u3", Recipient: "u2", Signal: json.RawMessage(`{}`)}

	ev := mustEvent(t, c3.Events, EventBusy)
	if ev.Recipient != "u2" {
		t.Fatalf("unexpected busy reply: %+v", ev)
	}
	assertNoEvent(t, c2.Events)
}

func TestBrokerSelfCallRejected(t *testing.T) {
	b := newTestBroker(t, 0)

	c1 := joinAs(t, b, "c1", "u1")

	c1.Commands <- &Command{Kind: CommandCallUser, Caller: "u1", Recipient: "u1", Signal: json.RawMessage(`{}`)}

	ev := mustEvent(t, c1.Events, EventError)
	if ev.Error == nil || ev.Error.Code != ErrCodeBadRequest {
		t.Fatalf("unexpected error reply: %+v", ev)
	}
}

func TestBrokerChannelFanOut(t *testing.T) {
	b := newTestBroker(t, 0)

	c1 := joinAs(t, b, "c1", "u1")
	c2 := joinAs(t, b, "c2", "u2")
	c3 := joinAs(t, b, "c3", "u3")

	for _, c := range []*Client{c1, c2, c3} {
		c.Commands <- &Command{Kind: CommandJoinChannel, Channel: "ch1"}
	}
	waitRoomSize(t, b, "ch1", 3)

	c1.Commands <- &Command{
		Kind:    CommandSendChannelMessage,
		Message: Message{Channel: "ch1", Sender: "u1", Content: "hi"},
	}

	for _, c := range []*Client{c2, c3} {
		ev := mustEvent(t, c.Events, EventChannelMessage)
		if ev.Message.Content != "hi" || ev.Message.Channel != "ch1" || ev.Message.Sender != "u1" {
			t.Fatalf("unexpected channel-message: %+v", ev)
		}
	}
	// The sender is excluded from its own fan-out.
	assertNoEvent(t, c1.Events)
}

func TestBrokerLeaveChannelStopsDelivery(t *testing.T) {
	b := newTestBroker(t, 0)

	c1 := joinAs(t, b, "c1", "u1")
	c2 := joinAs(t, b, "c2", "u2")

	c1.Commands <- &Command{Kind: CommandJoinChannel, Channel: "ch1"}
	c2.Commands <- &Command{Kind: CommandJoinChannel, Channel: "ch1"}
	waitRoomSize(t, b, "ch1", 2)

	c2.Commands <- &Command{Kind: CommandLeaveChannel, Channel: "ch1"}
	deadline := time.Now().Add(2 * time.Second)
	for b.RoomSize("ch1") > 1 {
		if time.Now().After(deadline) {
			t.Fatal("leave-channel never took effect")
		}
		time.Sleep(5 * time.Millisecond)
	}

	c1.Commands <- &Command{
		Kind:    CommandSendChannelMessage,
		Message: Message{Channel: "ch1", Sender: "u1", Content: "hi"},
	}
	assertNoEvent(t, c2.Events)
}

func TestBrokerRejectWithoutCallerDropped(t *testing.T) {
	b := newTestBroker(t, 0)

	c1 := joinAs(t, b, "c1", "u1")
	c2 := joinAs(t, b, "c2", "u2")

	c1.Commands <- &Command{Kind: CommandCallUser, Caller: "u1", Recipient: "u2", Signal: json.RawMessage(`{}`)}
	mustEvent(t, c2.Events, EventIncomingCall)

	// A reject with no caller id is dropped before it reaches the call
	// table: nothing is forwarded anywhere and the broker keeps running.
	c2.Commands <- &Command{Kind: CommandRejectCall, Caller: ""}

	assertNoEvent(t, c1.Events)
	assertNoEvent(t, c2.Events)

	// The session is still ringing and a proper reject works.
	c2.Commands <- &Command{Kind: CommandRejectCall, Caller: "u1"}
	ev := mustEvent(t, c1.Events, EventCallRejected)
	if ev.Caller != "u1" {
		t.Fatalf("unexpected call-rejected: %+v", ev)
	}
}

func TestBrokerEndCall(t *testing.T) {
	b := newTestBroker(t, 0)

	c1 := joinAs(t, b, "c1", "u1")
	c2 := joinAs(t, b, "c2", "u2")

	c1.Commands <- &Command{Kind: CommandCallUser, Caller: "u1", Recipient: "u2", Signal: json.RawMessage(`{}`)}
	mustEvent(t, c2.Events, EventIncomingCall)

	// Ringing is non-terminal; the caller can cancel before the answer.
	c1.Commands <- &Command{Kind: CommandEndCall, Recipient: "u2"}
	mustEvent(t, c2.Events, EventCallEnded)
}

func TestBrokerMultiTabIncomingCall(t *testing.T) {
	b := newTestBroker(t, 0)

	c1 := joinAs(t, b, "c1", "u1")
	c2a := joinAs(t, b, "c2a", "u2")
	c2b := NewClient("c2b")
	b.RegisterClient(c2b)
	c2b.Commands <- &Command{Kind: CommandJoin, UserID: "u2"}
	waitRoomSize(t, b, "u2", 2)

	c1.Commands <- &Command{Kind: CommandCallUser, Caller: "u1", Recipient: "u2", Signal: json.RawMessage(`{}`)}

	// Every connection in the user's room rings.
	mustEvent(t, c2a.Events, EventIncomingCall)
	mustEvent(t, c2b.Events, EventIncomingCall)
}

func TestBrokerNoticeSeam(t *testing.T) {
	b := newTestBroker(t, 0)

	c1 := joinAs(t, b, "c1", "u1")
	c2 := joinAs(t, b, "c2", "u2")
	c1.Commands <- &Command{Kind: CommandJoinChannel, Channel: "ch1"}
	c2.Commands <- &Command{Kind: CommandJoinChannel, Channel: "ch1"}
	waitRoomSize(t, b, "ch1", 2)

	// The REST layer persisted the message and asks the broker to echo it.
	b.BroadcastChannelMessage(Message{ID: 7, Channel: "ch1", Sender: "u1", Content: "saved"})
	ev := mustEvent(t, c2.Events, EventChannelMessage)
	if ev.Message.ID != 7 || ev.Message.Content != "saved" {
		t.Fatalf("unexpected echo: %+v", ev)
	}

	b.NotifyDirectMessage(Message{ID: 8, Sender: "u1", Recipient: "u2", Content: "dm"})
	ev = mustEvent(t, c2.Events, EventDirectMessage)
	if ev.Message.ID != 8 || ev.Message.Recipient != "u2" {
		t.Fatalf("unexpected dm echo: %+v", ev)
	}
	// The sender's own room gets a copy for its other tabs.
	ev = mustEvent(t, c1.Events, EventDirectMessage)
	if ev.Message.ID != 8 {
		t.Fatalf("unexpected sender echo: %+v", ev)
	}
}

func TestBrokerLateCommandAfterDisconnect(t *testing.T) {
	b := newTestBroker(t, 0)

	c1 := joinAs(t, b, "c1", "u1")
	c2 := joinAs(t, b, "c2", "u2")

	b.UnregisterClient(c1)

	// The pump may still forward buffered commands; they are dropped.
	c1.Commands <- &Command{Kind: CommandCallUser, Caller: "u1", Recipient: "u2", Signal: json.RawMessage(`{}`)}
	assertNoEvent(t, c2.Events)
}
