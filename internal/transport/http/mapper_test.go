package http

import (
	"encoding/json"
	"testing"

	"github.com/Daniel-Penner/CampusLink-sub000/internal/core"
	"github.com/Daniel-Penner/CampusLink-sub000/internal/proto"
)

func inbound(t *testing.T, eventType string, data any) proto.Inbound {
	t.Helper()

	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return proto.Inbound{Type: eventType, Data: raw}
}

func TestInboundToCommandKinds(t *testing.T) {
	cases := []struct {
		name string
		in   proto.Inbound
		kind core.CommandKind
	}{
		{"join", inbound(t, proto.InboundTypeJoin, proto.JoinData{User: "u1"}), core.CommandJoin},
		{"join channel", inbound(t, proto.InboundTypeJoinChannel, proto.ChannelData{Channel: "ch"}), core.CommandJoinChannel},
		{"leave channel", inbound(t, proto.InboundTypeLeaveChannel, proto.ChannelData{Channel: "ch"}), core.CommandLeaveChannel},
		{"channel message", inbound(t, proto.InboundTypeSendChannelMessage, proto.ChannelMessageData{Channel: "ch", Content: "hi"}), core.CommandSendChannelMessage},
		{"call user", inbound(t, proto.InboundTypeCallUser, proto.CallUserData{Caller: "u1", Recipient: "u2"}), core.CommandCallUser},
		{"answer", inbound(t, proto.InboundTypeAnswerCall, proto.AnswerCallData{Caller: "u1"}), core.CommandAnswerCall},
		{"ice", inbound(t, proto.InboundTypeICECandidate, proto.ICECandidateData{Recipient: "u2", Candidate: json.RawMessage(`{}`)}), core.CommandICECandidate},
		{"reject", inbound(t, proto.InboundTypeCallRejected, proto.CallRejectedData{Caller: "u1"}), core.CommandRejectCall},
		{"end", inbound(t, proto.InboundTypeEndCall, proto.EndCallData{Recipient: "u2"}), core.CommandEndCall},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cmd, protoErr := inboundToCommand(tc.in)
			if protoErr != nil {
				t.Fatalf("unexpected error: %+v", protoErr)
			}
			if cmd.Kind != tc.kind {
				t.Fatalf("kind = %v, want %v", cmd.Kind, tc.kind)
			}
		})
	}
}

func TestInboundToCommandRejectsMissingFields(t *testing.T) {
	cases := []struct {
		name string
		in   proto.Inbound
	}{
		{"join without user", inbound(t, proto.InboundTypeJoin, proto.JoinData{})},
		{"join channel without id", inbound(t, proto.InboundTypeJoinChannel, proto.ChannelData{})},
		{"message without channel", inbound(t, proto.InboundTypeSendChannelMessage, proto.ChannelMessageData{Content: "hi"})},
		{"call without recipient", inbound(t, proto.InboundTypeCallUser, proto.CallUserData{Caller: "u1"})},
		{"answer without caller", inbound(t, proto.InboundTypeAnswerCall, proto.AnswerCallData{})},
		{"ice without recipient", inbound(t, proto.InboundTypeICECandidate, proto.ICECandidateData{})},
		{"reject without caller", inbound(t, proto.InboundTypeCallRejected, proto.CallRejectedData{})},
		{"end without recipient", inbound(t, proto.InboundTypeEndCall, proto.EndCallData{})},
		{"garbage payload", proto.Inbound{Type: proto.InboundTypeJoin, Data: json.RawMessage(`"nope"`)}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cmd, protoErr := inboundToCommand(tc.in)
			if cmd != nil {
				t.Fatalf("expected rejection, got command %+v", cmd)
			}
			if protoErr == nil || protoErr.Code != core.ErrCodeMalformedPayload {
				t.Fatalf("expected malformed_payload, got %+v", protoErr)
			}
		})
	}
}

func TestInboundToCommandUnknownType(t *testing.T) {
	cmd, protoErr := inboundToCommand(proto.Inbound{Type: "shrug", Data: json.RawMessage(`{}`)})
	if cmd != nil {
		t.Fatalf("expected rejection, got command %+v", cmd)
	}
	if protoErr == nil || protoErr.Code != core.ErrCodeBadRequest {
		t.Fatalf("expected bad_request, got %+v", protoErr)
	}
}

func TestOutboundFromEventRoundTrip(t *testing.T) {
	ev := &core.Event{Kind: core.EventIncomingCall, Caller: "u1", Signal: json.RawMessage(`{"sdp":"o"}`)}
	out := outboundFromEvent(ev)
	if out.Type != proto.OutboundTypeIncomingCall {
		t.Fatalf("type = %q", out.Type)
	}
	data, ok := out.Data.(proto.EventIncomingCall)
	if !ok {
		t.Fatalf("unexpected data type %T", out.Data)
	}
	if data.Caller != "u1" || string(data.Offer) != `{"sdp":"o"}` {
		t.Fatalf("unexpected payload: %+v", data)
	}

	busy := outboundFromEvent(&core.Event{Kind: core.EventBusy, Recipient: "u2"})
	if busy.Type != proto.OutboundTypeBusy {
		t.Fatalf("type = %q", busy.Type)
	}
	if payload := busy.Data.(proto.EventBusy); payload.Recipient != "u2" {
		t.Fatalf("unexpected busy payload: %+v", payload)
	}

	errOut := outboundFromEvent(&core.Event{
		Kind:  core.EventError,
		Error: &core.CoreError{Code: core.ErrCodeBadRequest, Message: "invalid call target"},
	})
	if errOut.Type != proto.OutboundTypeError || errOut.Error == nil ||
		errOut.Error.Code != core.ErrCodeBadRequest || errOut.Error.Msg != "invalid call target" {
		t.Fatalf("unexpected error frame: %+v", errOut)
	}
}
