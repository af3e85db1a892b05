package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client. Type carries
// the event name; Data is decoded per event by the transport mapper.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	InboundTypeJoin               = "join"
	InboundTypeJoinChannel        = "join-channel"
	InboundTypeLeaveChannel       = "leave-channel"
	InboundTypeSendChannelMessage = "send-channel-message"
	InboundTypeCallUser           = "call-user"
	InboundTypeAnswerCall         = "answer-call"
	InboundTypeICECandidate       = "ice-candidate"
	InboundTypeCallRejected       = "call-rejected"
	InboundTypeEndCall            = "end-call"

	OutboundTypeChannelMessage = "channel-message"
	OutboundTypeDirectMessage  = "direct-message"
	OutboundTypeIncomingCall   = "incoming-call"
	OutboundTypeCallAnswered   = "call-answered"
	OutboundTypeICECandidate   = "ice-candidate"
	OutboundTypeCallRejected   = "call-rejected"
	OutboundTypeCallEnded      = "call-ended"
	OutboundTypeBusy           = "busy"
	OutboundTypeError          = "error"
)

// JoinData binds the connection to its personal room.
type JoinData struct {
	User string `json:"user"`
}

// ChannelData carries the channel id for join-channel and leave-channel.
type ChannelData struct {
	Channel string `json:"channel"`
}

// ChannelMessageData is a chat message addressed to a channel. The message is
// expected to be persisted by the REST layer before this event is emitted.
type ChannelMessageData struct {
	ID      int64  `json:"id,omitempty"`
	Channel string `json:"channel"`
	Sender  string `json:"sender,omitempty"`
	Content string `json:"content"`
}

// CallUserData initiates a call. The offer is relayed opaque.
type CallUserData struct {
	Caller    string          `json:"caller"`
	Recipient string          `json:"recipient"`
	Offer     json.RawMessage `json:"offer"`
}

// AnswerCallData accepts a ringing call; the recipient is the connection's
// bound user.
type AnswerCallData struct {
	Caller string          `json:"caller"`
	Answer json.RawMessage `json:"answer"`
}

// ICECandidateData relays a candidate toward the named recipient.
type ICECandidateData struct {
	Recipient string          `json:"recipient"`
	Candidate json.RawMessage `json:"candidate"`
}

// CallRejectedData declines a ringing call. Caller is required.
type CallRejectedData struct {
	Caller string `json:"caller"`
}

// EndCallData hangs up on the named other party.
type EndCallData struct {
	Recipient string `json:"recipient"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// EventMessage is a fanned-out chat message, channel or direct.
type EventMessage struct {
	ID        int64  `json:"id,omitempty"`
	Channel   string `json:"channel,omitempty"`
	Sender    string `json:"sender"`
	Recipient string `json:"recipient,omitempty"`
	Content   string `json:"content"`
	TS        int64  `json:"ts"`
}

// EventIncomingCall notifies the recipient of a new call offer.
type EventIncomingCall struct {
	Caller string          `json:"caller"`
	Offer  json.RawMessage `json:"offer"`
}

// EventCallAnswered notifies the caller that the call was accepted.
type EventCallAnswered struct {
	Answer json.RawMessage `json:"answer"`
}

// EventICECandidate relays a candidate to the other call party.
type EventICECandidate struct {
	Candidate json.RawMessage `json:"candidate"`
}

// EventCallRejected tells the caller which outgoing attempt was declined.
type EventCallRejected struct {
	Caller string `json:"caller"`
}

// EventBusy tells the caller the recipient is already in a call.
type EventBusy struct {
	Recipient string `json:"recipient"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
