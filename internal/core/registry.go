package core

// Registry tracks live connections and which rooms each has joined, plus the
// reverse index from room id to member connections. Rooms are implicit: a
// room exists exactly while it has members. Two disjoint id spaces share the
// mechanism, personal rooms keyed by user id and channel rooms keyed by
// channel id.
//
// Registry is not safe for concurrent use; it is owned exclusively by the
// broker's run loop, which serializes every mutation.
type Registry struct {
	conns map[string]*connEntry
	rooms map[string]map[string]*Client
}

type connEntry struct {
	client *Client
	rooms  map[string]struct{}
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]*connEntry),
		rooms: make(map[string]map[string]*Client),
	}
}

// Register creates an empty membership record for the connection.
func (r *Registry) Register(c *Client) {
	if _, exists := r.conns[c.ID]; exists {
		return
	}
	r.conns[c.ID] = &connEntry{
		client: c,
		rooms:  make(map[string]struct{}),
	}
}

// Registered reports whether the connection is currently registered.
func (r *Registry) Registered(connID string) bool {
	_, ok := r.conns[connID]
	return ok
}

// JoinRoom adds the connection to the room's member set. Idempotent; joining
// a room twice leaves the membership unchanged. Returns ErrUnknownConnection
// if the connection is not registered.
func (r *Registry) JoinRoom(connID, roomID string) error {
	entry, ok := r.conns[connID]
	if !ok {
		return ErrUnknownConnection
	}
	entry.rooms[roomID] = struct{}{}

	members, ok := r.rooms[roomID]
	if !ok {
		members = make(map[string]*Client)
		r.rooms[roomID] = members
	}
	members[connID] = entry.client
	return nil
}

// LeaveRoom removes the connection from the room. Removing a non-member is a
// no-op, not an error.
func (r *Registry) LeaveRoom(connID, roomID string) {
	if entry, ok := r.conns[connID]; ok {
		delete(entry.rooms, roomID)
	}
	r.removeMember(roomID, connID)
}

// MembersOf returns a snapshot of the room's current members. The slice does
// not reflect later mutations; an absent room yields an empty slice.
func (r *Registry) MembersOf(roomID string) []*Client {
	members := r.rooms[roomID]
	out := make([]*Client, 0, len(members))
	for _, c := range members {
		out = append(out, c)
	}
	return out
}

// Unregister removes the connection from every room it belonged to and
// discards its record. It returns the rooms the connection was removed from
// so the broker can run cleanup, e.g. ending in-flight calls. The second
// return value is false if the connection was not registered.
func (r *Registry) Unregister(connID string) ([]string, bool) {
	entry, ok := r.conns[connID]
	if !ok {
		return nil, false
	}

	left := make([]string, 0, len(entry.rooms))
	for roomID := range entry.rooms {
		r.removeMember(roomID, connID)
		left = append(left, roomID)
	}
	delete(r.conns, connID)
	return left, true
}

func (r *Registry) removeMember(roomID, connID string) {
	members, ok := r.rooms[roomID]
	if !ok {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(r.rooms, roomID)
	}
}
