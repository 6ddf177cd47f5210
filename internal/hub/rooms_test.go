package hub

import (
	"testing"

	"github.com/Trushar30/AURA-Message/internal/event"
	"github.com/stretchr/testify/assert"
)

func TestRoomsJoinLeave(t *testing.T) {
	f := newFixture()
	r := NewRooms()

	a := newFakeConn(f.alice)
	b := newFakeConn(f.bob)

	assert.True(t, r.Join(a, "c1"))
	assert.False(t, r.Join(a, "c1"))
	r.Join(a, "c2")
	r.Join(b, "c1")

	assert.Len(t, r.MembersOf("c1"), 2)
	assert.Equal(t, []string{"c1", "c2"}, r.RoomsOf(a.ID()))
	assert.True(t, r.IsMember(a.ID(), "c2"))

	assert.True(t, r.Leave(a, "c2"))
	assert.False(t, r.Leave(a, "c2"))
	assert.Nil(t, r.MembersOf("c2"))

	assert.Equal(t, []string{"c1"}, r.LeaveAll(a))
	assert.Empty(t, r.RoomsOf(a.ID()))
	assert.Len(t, r.MembersOf("c1"), 1)
}

func TestRoomsMembersOfSkipsClosedHandles(t *testing.T) {
	f := newFixture()
	r := NewRooms()

	a := newFakeConn(f.alice)
	b := newFakeConn(f.bob)
	r.Join(a, "c1")
	r.Join(b, "c1")
	b.close()

	members := r.MembersOf("c1")
	if assert.Len(t, members, 1) {
		assert.Equal(t, a.ID(), members[0].ID())
	}
}

func TestRoomsBroadcastExcludesSender(t *testing.T) {
	f := newFixture()
	r := NewRooms()

	a := newFakeConn(f.alice)
	b := newFakeConn(f.bob)
	r.Join(a, "c1")
	r.Join(b, "c1")

	n := r.Broadcast("c1", event.New(event.MessageRead, event.ReceiptEvent{UserID: "x"}), a.ID())
	assert.Equal(t, 1, n)
	assert.Empty(t, a.named(event.MessageRead))
	assert.Len(t, b.named(event.MessageRead), 1)
}

func TestGetShardIsStable(t *testing.T) {
	assert.Equal(t, uint32(0), getShard(""))
	assert.Equal(t, getShard("abc"), getShard("abc"))
	assert.Less(t, getShard("some-conversation"), uint32(shardCount))
}
