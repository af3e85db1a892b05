package core

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// Broker is the realtime composition root: it owns the registry, the room
// router and the call table, and dispatches every inbound event to one of
// them. All mutable state is touched only from the Run loop, so handlers run
// to completion one at a time and need no locking.
type Broker struct {
	registry *Registry
	router   *Router
	calls    *CallTable
	log      *zerolog.Logger

	register   chan *Client
	unregister chan *Client
	commands   chan clientCommand
	notices    chan Message
	expired    chan ringExpiry
	queries    chan roomQuery
}

type roomQuery struct {
	room  string
	reply chan int
}

type clientCommand struct {
	client *Client
	cmd    *Command
}

type ringExpiry struct {
	key string
	gen uint64
}

// NewBroker constructs a broker. ringTimeout bounds how long a call may stay
// ringing before it is ended automatically; zero disables the timeout.
func NewBroker(logger *zerolog.Logger, ringTimeout time.Duration) *Broker {
	b := &Broker{
		log:        logger,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		commands:   make(chan clientCommand, 64),
		notices:    make(chan Message, 64),
		expired:    make(chan ringExpiry, 16),
		queries:    make(chan roomQuery),
	}
	b.registry = NewRegistry()
	b.router = NewRouter(b.registry, logger)
	b.calls = NewCallTable(b.router, logger, ringTimeout, func(key string, gen uint64, d time.Duration) {
		time.AfterFunc(d, func() {
			b.expired <- ringExpiry{key: key, gen: gen}
		})
	})
	return b
}

// Run processes events until the context is cancelled. Exactly one Run loop
// may be active per broker.
func (b *Broker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-b.register:
			b.registry.Register(c)
		case c := <-b.unregister:
			b.handleDisconnect(c)
		case cc := <-b.commands:
			b.handleCommand(cc.client, cc.cmd)
		case msg := <-b.notices:
			b.handleNotice(msg)
		case e := <-b.expired:
			b.calls.ExpireRing(e.key, e.gen)
		case q := <-b.queries:
			q.reply <- len(b.registry.MembersOf(q.room))
		}
	}
}

// RegisterClient adds the connection to the registry and starts forwarding
// its commands into the run loop. The transport closes client.Commands when
// its read side is done.
func (b *Broker) RegisterClient(c *Client) {
	b.register <- c
	go func() {
		for cmd := range c.Commands {
			b.commands <- clientCommand{client: c, cmd: cmd}
		}
	}()
}

// UnregisterClient removes the connection; membership cleanup and call
// teardown happen inside the run loop.
func (b *Broker) UnregisterClient(c *Client) {
	b.unregister <- c
}

// BroadcastChannelMessage is the seam for the REST layer: after persisting a
// channel message it asks the broker to echo it to the channel room.
func (b *Broker) BroadcastChannelMessage(msg Message) {
	b.notices <- msg
}

// NotifyDirectMessage echoes a persisted direct message to the recipient's
// personal room, and to the sender's room so their other tabs stay in sync.
func (b *Broker) NotifyDirectMessage(msg Message) {
	b.notices <- msg
}

// RoomSize reports how many connections are currently joined to a room.
func (b *Broker) RoomSize(roomID string) int {
	q := roomQuery{room: roomID, reply: make(chan int, 1)}
	b.queries <- q
	return <-q.reply
}

// Online reports whether the user has at least one live connection. The REST
// layer uses this for presence indicators.
func (b *Broker) Online(userID string) bool {
	return b.RoomSize(userID) > 0
}

func (b *Broker) handleDisconnect(c *Client) {
	rooms, ok := b.registry.Unregister(c.ID)
	if !ok {
		return
	}

	if c.UserID != "" {
		for _, room := range rooms {
			if room != c.UserID {
				continue
			}
			// Last tab gone: treat the user as hung up.
			if len(b.registry.MembersOf(c.UserID)) == 0 {
				b.calls.OnDisconnect(c.UserID)
			}
			break
		}
	}

	close(c.Events)
	b.log.Debug().Str("conn_id", c.ID).Str("user", c.UserID).Msg("connection unregistered")
}

func (b *Broker) handleNotice(msg Message) {
	if msg.Channel != "" {
		b.router.Broadcast(msg.Channel, &Event{
			Kind:    EventChannelMessage,
			Channel: msg.Channel,
			Message: msg,
		}, "")
		return
	}
	ev := &Event{Kind: EventDirectMessage, Message: msg}
	b.router.SendToUser(msg.Recipient, ev)
	if msg.Sender != msg.Recipient {
		b.router.SendToUser(msg.Sender, ev)
	}
}

func (b *Broker) handleCommand(c *Client, cmd *Command) {
	if !b.registry.Registered(c.ID) {
		// Late command after disconnect.
		b.log.Debug().Str("conn_id", c.ID).Msg("command from unknown connection dropped")
		return
	}

	switch cmd.Kind {
	case CommandJoin:
		b.handleJoin(c, cmd)
	case CommandJoinChannel:
		if cmd.Channel == "" {
			b.logMalformed(c, "join-channel without channel")
			return
		}
		if err := b.registry.JoinRoom(c.ID, cmd.Channel); err != nil {
			b.log.Debug().Err(err).Str("conn_id", c.ID).Msg("join-channel dropped")
		}
	case CommandLeaveChannel:
		if cmd.Channel == "" {
			b.logMalformed(c, "leave-channel without channel")
			return
		}
		b.registry.LeaveRoom(c.ID, cmd.Channel)
	case CommandSendChannelMessage:
		b.handleChannelMessage(c, cmd)
	case CommandCallUser:
		b.handleCallUser(c, cmd)
	case CommandAnswerCall:
		if c.UserID == "" {
			b.logMalformed(c, "answer-call before join")
			return
		}
		if err := b.calls.Answer(cmd.Caller, c.UserID, cmd.Signal); err != nil {
			// Stale or duplicate answer; a hangup crossed it on the wire.
			b.log.Debug().Err(err).Str("caller", cmd.Caller).Str("recipient", c.UserID).Msg("answer-call dropped")
		}
	case CommandICECandidate:
		if c.UserID == "" || cmd.Recipient == "" {
			b.logMalformed(c, "ice-candidate without bound user or recipient")
			return
		}
		if err := b.calls.RelayICE(c.UserID, cmd.Recipient, cmd.Signal); err != nil {
			b.log.Debug().Str("from", c.UserID).Str("to", cmd.Recipient).Msg("ice candidate raced with hangup")
		}
	case CommandRejectCall:
		// The caller id must be present so the rejected client can match the
		// event to one of its outgoing attempts.
		if cmd.Caller == "" {
			b.logMalformed(c, "call-rejected without caller")
			return
		}
		if c.UserID == "" {
			b.logMalformed(c, "call-rejected before join")
			return
		}
		if err := b.calls.Reject(cmd.Caller, c.UserID); err != nil {
			b.log.Debug().Err(err).Str("caller", cmd.Caller).Msg("call-rejected dropped")
		}
	case CommandEndCall:
		if c.UserID == "" || cmd.Recipient == "" {
			b.logMalformed(c, "end-call without bound user or recipient")
			return
		}
		if err := b.calls.End(c.UserID, cmd.Recipient); err != nil {
			b.log.Debug().Err(err).Str("requester", c.UserID).Msg("end-call dropped")
		}
	default:
		b.log.Warn().Int("kind", int(cmd.Kind)).Msg("unhandled command kind")
	}
}

func (b *Broker) handleJoin(c *Client, cmd *Command) {
	if cmd.UserID == "" {
		b.logMalformed(c, "join without user")
		return
	}
	if c.UserID != "" && c.UserID != cmd.UserID {
		b.log.Warn().Str("conn_id", c.ID).Str("bound", c.UserID).Str("requested", cmd.UserID).
			Msg("join with different user id ignored")
		return
	}
	c.UserID = cmd.UserID
	// Repeated joins (reconnects) are idempotent.
	if err := b.registry.JoinRoom(c.ID, cmd.UserID); err != nil {
		b.log.Debug().Err(err).Str("conn_id", c.ID).Msg("join dropped")
	}
}

func (b *Broker) handleChannelMessage(c *Client, cmd *Command) {
	msg := cmd.Message
	if msg.Channel == "" {
		b.logMalformed(c, "send-channel-message without channel")
		return
	}
	if msg.Sender == "" {
		msg.Sender = c.UserID
	}
	// The REST layer already persisted the message; fan it out to everyone
	// else in the channel room.
	b.router.Broadcast(msg.Channel, &Event{
		Kind:    EventChannelMessage,
		Channel: msg.Channel,
		Message: msg,
	}, c.ID)
}

func (b *Broker) handleCallUser(c *Client, cmd *Command) {
	if cmd.Caller == "" || cmd.Recipient == "" {
		b.logMalformed(c, "call-user without caller or recipient")
		return
	}
	err := b.calls.Initiate(cmd.Caller, cmd.Recipient, cmd.Signal)
	switch {
	case errors.Is(err, ErrBusy):
		b.reply(c, &Event{Kind: EventBusy, Recipient: cmd.Recipient})
	case errors.Is(err, ErrBadRequest):
		// Calling yourself (or a blank target) is a client bug; tell the
		// originating connection instead of dropping silently.
		b.reply(c, &Event{Kind: EventError, Error: coreError(CodeFor(err), "invalid call target")})
	case err != nil:
		b.log.Debug().Err(err).Str("caller", cmd.Caller).Msg("call-user dropped")
	}
}

// reply delivers an event directly to the originating connection.
func (b *Broker) reply(c *Client, ev *Event) {
	select {
	case c.Events <- ev:
	default:
		b.log.Debug().Str("conn_id", c.ID).Msg("dropping reply for slow consumer")
	}
}

func (b *Broker) logMalformed(c *Client, reason string) {
	b.log.Debug().Str("conn_id", c.ID).Str("reason", reason).Msg("malformed command dropped")
}
