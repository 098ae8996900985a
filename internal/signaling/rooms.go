package signaling

import (
	"errors"
	"strings"
	"sync"
)

var (
	// ErrInvalidRoomName rejects empty or whitespace-only room names. The
	// rejection stays local to the joining connection; nothing is broadcast.
	ErrInvalidRoomName = errors.New("invalid room name")

	// ErrRoomFull rejects joins beyond the configured per-room limit.
	ErrRoomFull = errors.New("room full")
)

// Directory is the source of truth for room membership. Rooms are created
// implicitly on first join and dropped atomically when their last member
// leaves, so an empty room entry can never be observed or leaked.
//
// All mutations and the membership snapshots used for broadcast scope happen
// under one mutex: a join or leave is linearizable with respect to the peer
// list handed back for fan-out. Fan-out itself is a non-blocking queue send,
// so a single lock stays cheap.
type Directory struct {
	mu         sync.Mutex
	rooms      map[string]map[string]struct{}
	current    map[string]string // connection id -> room name
	maxPerRoom int               // <= 0 means unlimited
}

func NewDirectory(maxPerRoom int) *Directory {
	return &Directory{
		rooms:      make(map[string]map[string]struct{}),
		current:    make(map[string]string),
		maxPerRoom: maxPerRoom,
	}
}

// JoinResult describes a completed join, with membership snapshots taken
// atomically with the mutation.
type JoinResult struct {
	// Room is the trimmed room name.
	Room string

	// Members is the room's member count after the join.
	Members int

	// Rejoined is true when the connection was already a member of Room; the
	// join was an idempotent no-op.
	Rejoined bool

	// Peers are the members present at join time, excluding the joiner.
	Peers []string

	// Left names the room the connection implicitly left, if any, and
	// LeftPeers its remaining members.
	Left      string
	LeftPeers []string
}

// Join adds the connection to the named room, implicitly leaving its current
// room first. A connection belongs to at most one room at a time.
func (d *Directory) Join(id, name string) (JoinResult, error) {
	room := strings.TrimSpace(name)
	if room == "" {
		return JoinResult{}, ErrInvalidRoomName
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if cur, ok := d.current[id]; ok && cur == room {
		return JoinResult{Room: room, Members: len(d.rooms[room]), Rejoined: true}, nil
	}

	// Capacity is checked before touching the old room so a rejected join
	// leaves the existing membership intact.
	if d.maxPerRoom > 0 && len(d.rooms[room]) >= d.maxPerRoom {
		return JoinResult{}, ErrRoomFull
	}

	res := JoinResult{Room: room}
	if cur, ok := d.current[id]; ok {
		res.Left = cur
		res.LeftPeers = d.removeLocked(id, cur)
	}

	members := d.rooms[room]
	if members == nil {
		members = make(map[string]struct{})
		d.rooms[room] = members
	}
	res.Peers = make([]string, 0, len(members))
	for peer := range members {
		res.Peers = append(res.Peers, peer)
	}

	members[id] = struct{}{}
	d.current[id] = room
	res.Members = len(members)
	return res, nil
}

// LeaveResult describes a completed leave: the room left and the members
// remaining in it.
type LeaveResult struct {
	Room  string
	Peers []string
}

// Leave removes the connection from its current room. It reports false when
// the connection was not in a room (the leave is a no-op).
func (d *Directory) Leave(id string) (LeaveResult, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	room, ok := d.current[id]
	if !ok {
		return LeaveResult{}, false
	}
	return LeaveResult{Room: room, Peers: d.removeLocked(id, room)}, true
}

// removeLocked deletes the membership entry, drops the room if now empty, and
// returns the remaining members.
func (d *Directory) removeLocked(id, room string) []string {
	delete(d.current, id)

	members := d.rooms[room]
	delete(members, id)
	if len(members) == 0 {
		delete(d.rooms, room)
		return nil
	}

	out := make([]string, 0, len(members))
	for peer := range members {
		out = append(out, peer)
	}
	return out
}

// MembersOf returns the current members of the named room (nil when the room
// does not exist).
func (d *Directory) MembersOf(name string) []string {
	room := strings.TrimSpace(name)

	d.mu.Lock()
	defer d.mu.Unlock()

	members := d.rooms[room]
	if len(members) == 0 {
		return nil
	}
	out := make([]string, 0, len(members))
	for peer := range members {
		out = append(out, peer)
	}
	return out
}

// RoomOf returns the connection's current room.
func (d *Directory) RoomOf(id string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	room, ok := d.current[id]
	return room, ok
}

// ChatScope resolves the broadcast scope for a chat message in one step: the
// sender's room and all of its members, including the sender. It reports
// false when the sender is not in a room.
func (d *Directory) ChatScope(id string) (room string, members []string, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	room, ok = d.current[id]
	if !ok {
		return "", nil, false
	}
	set := d.rooms[room]
	members = make([]string, 0, len(set))
	for peer := range set {
		members = append(members, peer)
	}
	return room, members, true
}

// RoomCount reports how many rooms currently have members.
func (d *Directory) RoomCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.rooms)
}
