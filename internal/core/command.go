package core

import "encoding/json"

// CommandKind describes what the client wants to do. One variant exists per
// inbound wire event; payloads are decoded and validated at the transport
// boundary before a Command is ever constructed.
type CommandKind int

const (
	// CommandJoin binds the connection to its personal room.
	CommandJoin CommandKind = iota
	// CommandJoinChannel subscribes the connection to a channel room.
	CommandJoinChannel
	// CommandLeaveChannel unsubscribes the connection from a channel room.
	CommandLeaveChannel
	// CommandSendChannelMessage fans a chat message out to a channel room.
	// The message is assumed to be already persisted by the REST layer.
	CommandSendChannelMessage
	// CommandCallUser initiates a call with a WebRTC offer.
	CommandCallUser
	// CommandAnswerCall accepts a ringing call with a WebRTC answer.
	CommandAnswerCall
	// CommandICECandidate relays an ICE candidate to the call peer.
	CommandICECandidate
	// CommandRejectCall declines a ringing call.
	CommandRejectCall
	// CommandEndCall hangs up a call in any non-terminal state.
	CommandEndCall
)

// Command represents an action requested by a client. Signaling payloads
// (offer, answer, candidate) are carried opaque; the broker relays them
// without inspecting their contents.
type Command struct {
	Kind CommandKind

	// UserID is set for CommandJoin.
	UserID string
	// Channel is set for the channel commands.
	Channel string
	// Message is set for CommandSendChannelMessage.
	Message Message

	// Caller and Recipient identify call parties where the wire payload
	// carries them; the rest comes from the connection's bound user.
	Caller    string
	Recipient string
	// Signal is the opaque offer/answer/candidate blob.
	Signal json.RawMessage
}
