package hub

import (
	"crypto/sha1"
	"encoding/binary"
	"sort"
	"sync"

	"github.com/Trushar30/AURA-Message/internal/event"
)

const (
	shardCount = 64 // tune: 16/64/128 depending on load
)

type roomBucket struct {
	sync.RWMutex
	rooms map[string]map[string]Conn
}

// Rooms maps conversation ids to the connections subscribed to them.
// Rooms are spread over sha1 shards so busy conversations do not contend
// on a single lock. A reverse index per handle makes LeaveAll cheap.
type Rooms struct {
	shards [shardCount]*roomBucket

	membershipMu sync.RWMutex
	memberships  map[string]map[string]struct{}
}

func NewRooms() *Rooms {
	r := &Rooms{memberships: make(map[string]map[string]struct{})}
	for i := 0; i < shardCount; i++ {
		r.shards[i] = &roomBucket{
			rooms: make(map[string]map[string]Conn),
		}
	}
	return r
}

func getShard(conversationID string) uint32 {
	if conversationID == "" {
		return 0
	}

	h := sha1.Sum([]byte(conversationID))
	return binary.BigEndian.Uint32(h[:4]) % shardCount
}

// Join subscribes c to the conversation room. Returns false if it already was.
func (r *Rooms) Join(c Conn, conversationID string) bool {
	b := r.shards[getShard(conversationID)]
	b.Lock()
	room, ok := b.rooms[conversationID]
	if !ok {
		room = make(map[string]Conn)
		b.rooms[conversationID] = room
	}
	_, existed := room[c.ID()]
	room[c.ID()] = c
	b.Unlock()

	r.membershipMu.Lock()
	joined, ok := r.memberships[c.ID()]
	if !ok {
		joined = make(map[string]struct{})
		r.memberships[c.ID()] = joined
	}
	joined[conversationID] = struct{}{}
	r.membershipMu.Unlock()

	return !existed
}

// Leave unsubscribes c from the conversation room. Returns false if it was not in it.
func (r *Rooms) Leave(c Conn, conversationID string) bool {
	removed := r.removeFromRoom(c.ID(), conversationID)

	r.membershipMu.Lock()
	if joined, ok := r.memberships[c.ID()]; ok {
		delete(joined, conversationID)
		if len(joined) == 0 {
			delete(r.memberships, c.ID())
		}
	}
	r.membershipMu.Unlock()

	return removed
}

// LeaveAll removes c from every room it joined and returns those rooms
func (r *Rooms) LeaveAll(c Conn) []string {
	r.membershipMu.Lock()
	joined := r.memberships[c.ID()]
	delete(r.memberships, c.ID())
	r.membershipMu.Unlock()

	left := make([]string, 0, len(joined))
	for conversationID := range joined {
		if r.removeFromRoom(c.ID(), conversationID) {
			left = append(left, conversationID)
		}
	}
	sort.Strings(left)
	return left
}

func (r *Rooms) removeFromRoom(handleID, conversationID string) bool {
	b := r.shards[getShard(conversationID)]
	b.Lock()
	defer b.Unlock()

	room, ok := b.rooms[conversationID]
	if !ok {
		return false
	}
	if _, exists := room[handleID]; !exists {
		return false
	}
	delete(room, handleID)
	if len(room) == 0 {
		delete(b.rooms, conversationID)
	}
	return true
}

// IsMember reports whether the handle is subscribed to the room
func (r *Rooms) IsMember(handleID, conversationID string) bool {
	b := r.shards[getShard(conversationID)]
	b.RLock()
	defer b.RUnlock()

	_, ok := b.rooms[conversationID][handleID]
	return ok
}

// MembersOf returns the live connections subscribed to the room
func (r *Rooms) MembersOf(conversationID string) []Conn {
	b := r.shards[getShard(conversationID)]

	// collect clients while holding RLock
	b.RLock()
	room, ok := b.rooms[conversationID]
	if !ok || len(room) == 0 {
		b.RUnlock()
		return nil
	}
	members := make([]Conn, 0, len(room))
	for _, c := range room {
		if !c.IsClosed() {
			members = append(members, c)
		}
	}
	b.RUnlock()

	return members
}

// RoomsOf lists the conversations a handle is subscribed to
func (r *Rooms) RoomsOf(handleID string) []string {
	r.membershipMu.RLock()
	defer r.membershipMu.RUnlock()

	out := make([]string, 0, len(r.memberships[handleID]))
	for conversationID := range r.memberships[handleID] {
		out = append(out, conversationID)
	}
	sort.Strings(out)
	return out
}

// Broadcast delivers ev to every live member except the handle named by
// except, without holding the shard lock while sending
func (r *Rooms) Broadcast(conversationID string, ev event.WsEvent, except string) int {
	return sendAll(r.MembersOf(conversationID), ev, except)
}

// roomSnapshot is a point-in-time copy of one room used by the monitor
type roomSnapshot struct {
	conversationID string
	userIDs        []string
	handles        int
}

func (r *Rooms) snapshot() []roomSnapshot {
	var out []roomSnapshot
	for _, b := range r.shards {
		b.RLock()
		for conversationID, room := range b.rooms {
			seen := make(map[string]struct{}, len(room))
			snap := roomSnapshot{conversationID: conversationID, handles: len(room)}
			for _, c := range room {
				if _, dup := seen[c.UserID()]; dup {
					continue
				}
				seen[c.UserID()] = struct{}{}
				snap.userIDs = append(snap.userIDs, c.UserID())
			}
			sort.Strings(snap.userIDs)
			out = append(out, snap)
		}
		b.RUnlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].conversationID < out[j].conversationID })
	return out
}
