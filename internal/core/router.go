package core

import "github.com/rs/zerolog"

// Router fans events out to the current members of a room. Delivery to an
// individual connection is best-effort: a slow or closing consumer is skipped
// and logged, never aborting delivery to the rest of the room.
type Router struct {
	registry *Registry
	log      *zerolog.Logger
}

// NewRouter builds a router over the given registry.
func NewRouter(registry *Registry, logger *zerolog.Logger) *Router {
	return &Router{registry: registry, log: logger}
}

// Broadcast delivers the event to every member of the room except the
// connection identified by exclude. Pass an empty exclude to reach all
// members. An absent room drops the event silently.
func (rt *Router) Broadcast(roomID string, event *Event, exclude string) {
	for _, client := range rt.registry.MembersOf(roomID) {
		if client.ID == exclude {
			continue
		}
		select {
		case client.Events <- event:
		default:
			rt.log.Debug().
				Str("conn_id", client.ID).
				Str("room", roomID).
				Msg("dropping event for slow consumer")
		}
	}
}

// SendToUser delivers the event to every connection in the user's personal
// room. Zero members means the user is offline; the event is dropped, live
// delivery is at-most-once and missed events are recovered via history fetch.
func (rt *Router) SendToUser(userID string, event *Event) {
	rt.Broadcast(userID, event, "")
}
