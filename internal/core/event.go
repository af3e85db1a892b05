package core

import "encoding/json"

// EventKind is a notification the broker emits to clients.
type EventKind int

const (
	// EventChannelMessage delivers a chat message to channel members.
	EventChannelMessage EventKind = iota
	// EventDirectMessage delivers a persisted direct message to a user's room.
	EventDirectMessage

	// Call events
	// EventIncomingCall notifies the recipient's room of a new call offer.
	EventIncomingCall
	// EventCallAnswered notifies the caller's room that the call was accepted.
	EventCallAnswered
	// EventICECandidate relays an ICE candidate to the other call party.
	EventICECandidate
	// EventCallRejected notifies the caller that the call was declined.
	EventCallRejected
	// EventCallEnded notifies the other party of a hangup, disconnect or
	// ringing timeout.
	EventCallEnded
	// EventBusy notifies the caller that the recipient is already in a call.
	EventBusy

	// EventError notifies a client about a domain error.
	EventError
)

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind    EventKind
	Channel string
	Message Message

	// Caller identifies the originating party for call events; included on
	// call-rejected so a client with several outgoing attempts can tell
	// which one was declined.
	Caller    string
	Recipient string
	// Signal is the opaque offer/answer/candidate blob being relayed.
	Signal json.RawMessage

	Error *CoreError
}
