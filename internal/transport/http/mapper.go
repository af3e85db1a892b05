package http

import (
	"encoding/json"
	"time"

	"github.com/Daniel-Penner/CampusLink-sub000/internal/core"
	"github.com/Daniel-Penner/CampusLink-sub000/internal/proto"
)

func malformed(msg string) *proto.Error {
	return &proto.Error{Code: core.ErrCodeMalformedPayload, Msg: msg}
}

// inboundToCommand decodes and validates a wire event into a broker command.
// A non-nil proto.Error means the payload was rejected at this boundary and
// never reaches the broker.
func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.Error) {
	switch inbound.Type {
	case proto.InboundTypeJoin:
		var join proto.JoinData
		if err := json.Unmarshal(inbound.Data, &join); err != nil {
			return nil, malformed("invalid join payload")
		}
		if join.User == "" {
			return nil, malformed("user is required")
		}
		return &core.Command{Kind: core.CommandJoin, UserID: join.User}, nil

	case proto.InboundTypeJoinChannel, proto.InboundTypeLeaveChannel:
		var ch proto.ChannelData
		if err := json.Unmarshal(inbound.Data, &ch); err != nil {
			return nil, malformed("invalid channel payload")
		}
		if ch.Channel == "" {
			return nil, malformed("channel is required")
		}
		kind := core.CommandJoinChannel
		if inbound.Type == proto.InboundTypeLeaveChannel {
			kind = core.CommandLeaveChannel
		}
		return &core.Command{Kind: kind, Channel: ch.Channel}, nil

	case proto.InboundTypeSendChannelMessage:
		var msg proto.ChannelMessageData
		if err := json.Unmarshal(inbound.Data, &msg); err != nil {
			return nil, malformed("invalid message payload")
		}
		if msg.Channel == "" {
			return nil, malformed("channel is required")
		}
		return &core.Command{
			Kind: core.CommandSendChannelMessage,
			Message: core.Message{
				ID:        msg.ID,
				Channel:   msg.Channel,
				Sender:    msg.Sender,
				Content:   msg.Content,
				CreatedAt: time.Now(),
			},
		}, nil

	case proto.InboundTypeCallUser:
		var call proto.CallUserData
		if err := json.Unmarshal(inbound.Data, &call); err != nil {
			return nil, malformed("invalid call payload")
		}
		if call.Caller == "" || call.Recipient == "" {
			return nil, malformed("caller and recipient are required")
		}
		return &core.Command{
			Kind:      core.CommandCallUser,
			Caller:    call.Caller,
			Recipient: call.Recipient,
			Signal:    call.Offer,
		}, nil

	case proto.InboundTypeAnswerCall:
		var answer proto.AnswerCallData
		if err := json.Unmarshal(inbound.Data, &answer); err != nil {
			return nil, malformed("invalid answer payload")
		}
		if answer.Caller == "" {
			return nil, malformed("caller is required")
		}
		return &core.Command{
			Kind:   core.CommandAnswerCall,
			Caller: answer.Caller,
			Signal: answer.Answer,
		}, nil

	case proto.InboundTypeICECandidate:
		var ice proto.ICECandidateData
		if err := json.Unmarshal(inbound.Data, &ice); err != nil {
			return nil, malformed("invalid candidate payload")
		}
		if ice.Recipient == "" {
			return nil, malformed("recipient is required")
		}
		return &core.Command{
			Kind:      core.CommandICECandidate,
			Recipient: ice.Recipient,
			Signal:    ice.Candidate,
		}, nil

	case proto.InboundTypeCallRejected:
		var rejected proto.CallRejectedData
		if err := json.Unmarshal(inbound.Data, &rejected); err != nil {
			return nil, malformed("invalid reject payload")
		}
		// A payload missing the caller id is rejected here, before it
		// reaches the call table.
		if rejected.Caller == "" {
			return nil, malformed("caller is required")
		}
		return &core.Command{Kind: core.CommandRejectCall, Caller: rejected.Caller}, nil

	case proto.InboundTypeEndCall:
		var end proto.EndCallData
		if err := json.Unmarshal(inbound.Data, &end); err != nil {
			return nil, malformed("invalid end payload")
		}
		if end.Recipient == "" {
			return nil, malformed("recipient is required")
		}
		return &core.Command{Kind: core.CommandEndCall, Recipient: end.Recipient}, nil

	default:
		return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "unknown message type"}
	}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventChannelMessage:
		return proto.Outbound{
			Type: proto.OutboundTypeChannelMessage,
			Data: proto.EventMessage{
				ID:      event.Message.ID,
				Channel: event.Message.Channel,
				Sender:  event.Message.Sender,
				Content: event.Message.Content,
				TS:      event.Message.CreatedAt.Unix(),
			},
		}
	case core.EventDirectMessage:
		return proto.Outbound{
			Type: proto.OutboundTypeDirectMessage,
			Data: proto.EventMessage{
				ID:        event.Message.ID,
				Sender:    event.Message.Sender,
				Recipient: event.Message.Recipient,
				Content:   event.Message.Content,
				TS:        event.Message.CreatedAt.Unix(),
			},
		}
	case core.EventIncomingCall:
		return proto.Outbound{
			Type: proto.OutboundTypeIncomingCall,
			Data: proto.EventIncomingCall{
				Caller: event.Caller,
				Offer:  event.Signal,
			},
		}
	case core.EventCallAnswered:
		return proto.Outbound{
			Type: proto.OutboundTypeCallAnswered,
			Data: proto.EventCallAnswered{Answer: event.Signal},
		}
	case core.EventICECandidate:
		return proto.Outbound{
			Type: proto.OutboundTypeICECandidate,
			Data: proto.EventICECandidate{Candidate: event.Signal},
		}
	case core.EventCallRejected:
		return proto.Outbound{
			Type: proto.OutboundTypeCallRejected,
			Data: proto.EventCallRejected{Caller: event.Caller},
		}
	case core.EventCallEnded:
		return proto.Outbound{Type: proto.OutboundTypeCallEnded}
	case core.EventBusy:
		return proto.Outbound{
			Type: proto.OutboundTypeBusy,
			Data: proto.EventBusy{Recipient: event.Recipient},
		}
	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: event.Error.Code, Msg: event.Error.Message},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown event"}}
	}
}
