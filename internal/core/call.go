package core

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
)

// CallState is the lifecycle state of a call session.
type CallState int

const (
	// CallRinging means the offer was forwarded and no answer arrived yet.
	CallRinging CallState = iota + 1
	// CallConnected means the recipient answered.
	CallConnected
)

// Ended sessions are discarded immediately rather than kept in a terminal
// state: the pair key must be free for the next call between the same users.

type callSession struct {
	caller    string
	recipient string
	state     CallState
	// gen guards ring timers: a timer whose generation no longer matches the
	// session fires for a call that was already answered or replaced.
	gen uint64
	// pendingICE buffers candidates headed for the caller while the session
	// is still ringing; the caller has no remote description until the
	// answer arrives. Flushed on transition to Connected.
	pendingICE []json.RawMessage
}

// other returns the session party that is not userID.
func (s *callSession) other(userID string) string {
	if userID == s.caller {
		return s.recipient
	}
	return s.caller
}

// CallTable is the call signaling state machine: one session per unordered
// pair of users, relaying offer/answer/ICE payloads without inspecting them.
// A user participates in at most one non-terminal session at a time.
//
// Like the registry, the table is owned by the broker's run loop and is not
// safe for concurrent use.
type CallTable struct {
	router      *Router
	log         *zerolog.Logger
	ringTimeout time.Duration
	// schedule arranges for ExpireRing(key, gen) to be invoked on the
	// broker's loop after ringTimeout. Nil disables the timeout.
	schedule func(key string, gen uint64, d time.Duration)

	sessions map[string]*callSession
	// engaged maps a user to the pair key of its non-terminal session.
	engaged map[string]string
	nextGen uint64
}

// NewCallTable builds an empty call table.
func NewCallTable(router *Router, logger *zerolog.Logger, ringTimeout time.Duration, schedule func(key string, gen uint64, d time.Duration)) *CallTable {
	return &CallTable{
		router:      router,
		log:         logger,
		ringTimeout: ringTimeout,
		schedule:    schedule,
		sessions:    make(map[string]*callSession),
		engaged:     make(map[string]string),
	}
}

// pairKey derives the unordered-pair session key.
func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

// Initiate starts a call. A repeat call-user from the same caller to the same
// recipient while ringing is treated as a retry: the offer is forwarded again
// and the session is left untouched. If either party is already engaged in a
// different session the call fails with ErrBusy and no incoming-call reaches
// the recipient.
func (t *CallTable) Initiate(caller, recipient string, offer json.RawMessage) error {
	if caller == "" || recipient == "" || caller == recipient {
		return ErrBadRequest
	}

	key := pairKey(caller, recipient)
	if s, ok := t.sessions[key]; ok {
		if s.state == CallRinging && s.caller == caller {
			// Retry, e.g. the caller reconnected before the answer.
			t.forwardIncoming(s, offer)
			return nil
		}
		return ErrBusy
	}
	if _, ok := t.engaged[caller]; ok {
		return ErrBusy
	}
	if _, ok := t.engaged[recipient]; ok {
		return ErrBusy
	}

	t.nextGen++
	s := &callSession{
		caller:    caller,
		recipient: recipient,
		state:     CallRinging,
		gen:       t.nextGen,
	}
	t.sessions[key] = s
	t.engaged[caller] = key
	t.engaged[recipient] = key

	if t.schedule != nil && t.ringTimeout > 0 {
		t.schedule(key, s.gen, t.ringTimeout)
	}

	t.forwardIncoming(s, offer)
	return nil
}

func (t *CallTable) forwardIncoming(s *callSession, offer json.RawMessage) {
	t.router.SendToUser(s.recipient, &Event{
		Kind:   EventIncomingCall,
		Caller: s.caller,
		Signal: offer,
	})
}

// Answer accepts a ringing call. The session moves to Connected, the answer
// is forwarded to the caller's room and any ICE candidates buffered during
// the ringing window are flushed after it.
func (t *CallTable) Answer(caller, recipient string, answer json.RawMessage) error {
	s, ok := t.sessions[pairKey(caller, recipient)]
	if !ok || s.state != CallRinging || s.caller != caller {
		return ErrNoSuchSession
	}

	s.state = CallConnected
	s.gen = 0 // invalidate the ring timer

	t.router.SendToUser(s.caller, &Event{
		Kind:   EventCallAnswered,
		Caller: s.caller,
		Signal: answer,
	})
	for _, candidate := range s.pendingICE {
		t.router.SendToUser(s.caller, &Event{
			Kind:   EventICECandidate,
			Signal: candidate,
		})
	}
	s.pendingICE = nil
	return nil
}

// RelayICE forwards an ICE candidate to the other call party. Candidates
// headed for the caller while the session is still ringing are buffered until
// the answer. No session means the candidate raced with a hangup; it is
// dropped, the caller sees no error.
func (t *CallTable) RelayICE(from, to string, candidate json.RawMessage) error {
	s, ok := t.sessions[pairKey(from, to)]
	if !ok {
		return ErrNoSuchSession
	}

	if s.state == CallRinging && to == s.caller {
		s.pendingICE = append(s.pendingICE, candidate)
		return nil
	}

	t.router.SendToUser(to, &Event{
		Kind:   EventICECandidate,
		Signal: candidate,
	})
	return nil
}

// Reject declines a ringing call. The caller's room is told which caller was
// rejected so a client with several outgoing attempts can match the event.
func (t *CallTable) Reject(caller, recipient string) error {
	key := pairKey(caller, recipient)
	s, ok := t.sessions[key]
	if !ok || s.state != CallRinging || s.caller != caller {
		return ErrNoSuchSession
	}

	t.discard(key, s)
	t.router.SendToUser(caller, &Event{
		Kind:   EventCallRejected,
		Caller: caller,
	})
	return nil
}

// End hangs up from any non-terminal state. The other party's room receives
// call-ended; the requester gets nothing back.
func (t *CallTable) End(requester, otherParty string) error {
	key := pairKey(requester, otherParty)
	s, ok := t.sessions[key]
	if !ok {
		return ErrNoSuchSession
	}

	t.discard(key, s)
	t.router.SendToUser(s.other(requester), &Event{Kind: EventCallEnded})
	return nil
}

// OnDisconnect ends every non-terminal session involving the user. The broker
// calls this once the user's last connection is gone.
func (t *CallTable) OnDisconnect(userID string) {
	key, ok := t.engaged[userID]
	if !ok {
		return
	}
	s := t.sessions[key]
	t.discard(key, s)
	t.router.SendToUser(s.other(userID), &Event{Kind: EventCallEnded})
}

// ExpireRing ends a call the callee never answered. Stale timers, identified
// by a generation mismatch, are ignored.
func (t *CallTable) ExpireRing(key string, gen uint64) {
	s, ok := t.sessions[key]
	if !ok || s.state != CallRinging || s.gen != gen {
		return
	}

	t.discard(key, s)
	t.log.Debug().Str("caller", s.caller).Str("recipient", s.recipient).Msg("ringing timed out")
	t.router.SendToUser(s.caller, &Event{Kind: EventCallEnded})
	t.router.SendToUser(s.recipient, &Event{Kind: EventCallEnded})
}

// Session reports the state of the session between two users, if any.
func (t *CallTable) Session(a, b string) (CallState, bool) {
	s, ok := t.sessions[pairKey(a, b)]
	if !ok {
		return 0, false
	}
	return s.state, true
}

func (t *CallTable) discard(key string, s *callSession) {
	delete(t.sessions, key)
	delete(t.engaged, s.caller)
	delete(t.engaged, s.recipient)
}
