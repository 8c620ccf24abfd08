package presence

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/example/roomchat/domain/chat"
)

// DefaultShardCount is the number of room shards used by NewRegistry.
const DefaultShardCount = 32

// Change describes a committed membership mutation together with the state
// of the affected room immediately after it.
type Change struct {
	Presence chat.Presence   // entry that joined or left
	Members  []chat.Presence // room members after the change, in join order
}

// Users returns the display names of the members in join order.
func (c Change) Users() []string {
	return displayNames(c.Members)
}

// RoomData returns the membership snapshot for the affected room.
func (c Change) RoomData() chat.RoomData {
	return chat.RoomData{Room: c.Presence.Room, Users: c.Users()}
}

// CommitFunc observes a Change while the room is still locked. It must not
// block: it is meant for queuing deliveries, not for performing them.
type CommitFunc func(Change)

// RoomSummary reports the size of one room.
type RoomSummary struct {
	Room    string `json:"room"`
	Members int    `json:"members"`
}

// Stats is a point-in-time view of registry occupancy.
type Stats struct {
	Rooms       int `json:"rooms"`
	Connections int `json:"connections"`
}

type shard struct {
	mu    sync.Mutex
	rooms map[string][]chat.Presence // canonical room -> members in join order
}

// Registry is the in-memory presence store. Rooms are partitioned across
// shards by name, so operations on different rooms rarely contend. Lock
// order is always shard, then connMu.
type Registry struct {
	shards []*shard
	connMu sync.RWMutex
	byConn map[string]chat.Presence
	now    func() time.Time
}

// NewRegistry creates an empty registry with DefaultShardCount shards.
func NewRegistry() *Registry {
	return NewRegistryWithShards(DefaultShardCount)
}

// NewRegistryWithShards creates an empty registry with n shards.
func NewRegistryWithShards(n int) *Registry {
	if n <= 0 {
		n = DefaultShardCount
	}
	shards := make([]*shard, n)
	for i := range shards {
		shards[i] = &shard{rooms: make(map[string][]chat.Presence)}
	}
	return &Registry{
		shards: shards,
		byConn: make(map[string]chat.Presence),
		now:    time.Now,
	}
}

func (r *Registry) shardFor(room string) *shard {
	return r.shards[xxhash.Sum64String(room)%uint64(len(r.shards))]
}

// Add inserts a presence entry for connID.
func (r *Registry) Add(connID, displayName, roomName string) (chat.Presence, error) {
	change, err := r.Join(connID, displayName, roomName, nil)
	if err != nil {
		return chat.Presence{}, err
	}
	return change.Presence, nil
}

// Join inserts a presence entry and returns the room state after the
// insert. onCommit, when non-nil, runs before the room is unlocked.
func (r *Registry) Join(connID, displayName, roomName string, onCommit CommitFunc) (Change, error) {
	if connID == "" {
		return Change{}, fmt.Errorf("%w: connection id is required", chat.ErrInvalidInput)
	}
	name, err := chat.NormalizeDisplayName(displayName)
	if err != nil {
		return Change{}, err
	}
	room, err := chat.NormalizeRoomName(roomName)
	if err != nil {
		return Change{}, err
	}

	if existing, ok := r.Get(connID); ok {
		return Change{}, fmt.Errorf("%w: already in room %q", chat.ErrAlreadyJoined, existing.Room)
	}

	s := r.shardFor(room)
	s.mu.Lock()
	defer s.mu.Unlock()

	key := chat.NameKey(name)
	for _, member := range s.rooms[room] {
		if chat.NameKey(member.DisplayName) == key {
			return Change{}, fmt.Errorf("%w: %q in room %q", chat.ErrNameTaken, name, room)
		}
	}

	entry := chat.Presence{
		ConnID:      connID,
		DisplayName: name,
		Room:        room,
		JoinedAt:    r.now(),
	}

	r.connMu.Lock()
	if existing, ok := r.byConn[connID]; ok {
		r.connMu.Unlock()
		return Change{}, fmt.Errorf("%w: already in room %q", chat.ErrAlreadyJoined, existing.Room)
	}
	r.byConn[connID] = entry
	r.connMu.Unlock()

	s.rooms[room] = append(s.rooms[room], entry)

	change := Change{Presence: entry, Members: cloneMembers(s.rooms[room])}
	if onCommit != nil {
		onCommit(change)
	}
	return change, nil
}

// Remove deletes the entry for connID. It is a no-op for unknown connections.
func (r *Registry) Remove(connID string) (chat.Presence, bool) {
	change, ok := r.Leave(connID, nil)
	return change.Presence, ok
}

// Leave deletes the entry for connID and returns the room state after the
// removal. onCommit, when non-nil, runs before the room is unlocked.
func (r *Registry) Leave(connID string, onCommit CommitFunc) (Change, bool) {
	for {
		r.connMu.RLock()
		seen, ok := r.byConn[connID]
		r.connMu.RUnlock()
		if !ok {
			return Change{}, false
		}

		s := r.shardFor(seen.Room)
		s.mu.Lock()

		r.connMu.Lock()
		current, ok := r.byConn[connID]
		if !ok {
			r.connMu.Unlock()
			s.mu.Unlock()
			return Change{}, false
		}
		if current.Room != seen.Room {
			// Moved to a room on another shard between the two lookups.
			r.connMu.Unlock()
			s.mu.Unlock()
			continue
		}
		delete(r.byConn, connID)
		r.connMu.Unlock()

		remaining := removeMember(s.rooms[current.Room], connID)
		if len(remaining) == 0 {
			delete(s.rooms, current.Room)
		} else {
			s.rooms[current.Room] = remaining
		}

		change := Change{Presence: current, Members: cloneMembers(remaining)}
		if onCommit != nil {
			onCommit(change)
		}
		s.mu.Unlock()
		return change, true
	}
}

// WithMembership looks up connID and runs fn with its entry and the current
// members of its room while that room is locked. It reports false, without
// calling fn, when connID has no entry.
func (r *Registry) WithMembership(connID string, fn CommitFunc) (Change, bool) {
	for {
		seen, ok := r.Get(connID)
		if !ok {
			return Change{}, false
		}

		s := r.shardFor(seen.Room)
		s.mu.Lock()
		current, ok := r.Get(connID)
		if !ok {
			s.mu.Unlock()
			return Change{}, false
		}
		if current.Room != seen.Room {
			s.mu.Unlock()
			continue
		}

		change := Change{Presence: current, Members: cloneMembers(s.rooms[current.Room])}
		if fn != nil {
			fn(change)
		}
		s.mu.Unlock()
		return change, true
	}
}

// Get returns the entry for connID.
func (r *Registry) Get(connID string) (chat.Presence, bool) {
	r.connMu.RLock()
	defer r.connMu.RUnlock()
	entry, ok := r.byConn[connID]
	return entry, ok
}

// ListRoom returns the display names in room, in join order.
func (r *Registry) ListRoom(roomName string) []string {
	return displayNames(r.Members(roomName))
}

// Members returns the entries in room, in join order.
func (r *Registry) Members(roomName string) []chat.Presence {
	room, err := chat.NormalizeRoomName(roomName)
	if err != nil {
		return []chat.Presence{}
	}
	s := r.shardFor(room)
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneMembers(s.rooms[room])
}

// Rooms returns every non-empty room with its member count, sorted by name.
func (r *Registry) Rooms() []RoomSummary {
	var rooms []RoomSummary
	for _, s := range r.shards {
		s.mu.Lock()
		for name, members := range s.rooms {
			rooms = append(rooms, RoomSummary{Room: name, Members: len(members)})
		}
		s.mu.Unlock()
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].Room < rooms[j].Room })
	return rooms
}

// Stats reports the number of live rooms and joined connections.
func (r *Registry) Stats() Stats {
	rooms := 0
	for _, s := range r.shards {
		s.mu.Lock()
		rooms += len(s.rooms)
		s.mu.Unlock()
	}
	r.connMu.RLock()
	defer r.connMu.RUnlock()
	return Stats{Rooms: rooms, Connections: len(r.byConn)}
}

func removeMember(members []chat.Presence, connID string) []chat.Presence {
	for i, member := range members {
		if member.ConnID == connID {
			out := make([]chat.Presence, 0, len(members)-1)
			out = append(out, members[:i]...)
			return append(out, members[i+1:]...)
		}
	}
	return members
}

func cloneMembers(members []chat.Presence) []chat.Presence {
	out := make([]chat.Presence, len(members))
	copy(out, members)
	return out
}

func displayNames(members []chat.Presence) []string {
	names := make([]string, len(members))
	for i, member := range members {
		names[i] = member.DisplayName
	}
	return names
}
