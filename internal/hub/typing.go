package hub

import (
	"sort"
	"sync"

	"github.com/Trushar30/AURA-Message/internal/event"
)

// Typing holds the transient "is typing" facts keyed by handle and
// conversation. Facts never outlive the connection that created them.
type Typing struct {
	mu    sync.Mutex
	facts map[string]map[string]struct{}
	rooms *Rooms
}

func NewTyping(rooms *Rooms) *Typing {
	return &Typing{
		facts: make(map[string]map[string]struct{}),
		rooms: rooms,
	}
}

// Start records that c is typing in the conversation and tells the other
// room members. Repeating it while the fact is open does nothing.
func (t *Typing) Start(c Conn, conversationID string) error {
	if !t.rooms.IsMember(c.ID(), conversationID) {
		return &DeliveryError{Code: CodeNotJoined, Err: errNotJoined}
	}

	t.mu.Lock()
	open, ok := t.facts[c.ID()]
	if !ok {
		open = make(map[string]struct{})
		t.facts[c.ID()] = open
	}
	if _, typing := open[conversationID]; typing {
		t.mu.Unlock()
		return nil
	}
	open[conversationID] = struct{}{}
	t.mu.Unlock()

	t.rooms.Broadcast(conversationID, event.New(event.TypingStart, event.TypingEvent{
		UserID:         c.UserID(),
		UserName:       c.User().Name,
		ConversationID: conversationID,
	}), c.ID())
	return nil
}

// Stop closes the fact if it is open. It reports whether a stop was broadcast.
func (t *Typing) Stop(c Conn, conversationID string) bool {
	t.mu.Lock()
	open, ok := t.facts[c.ID()]
	if !ok {
		t.mu.Unlock()
		return false
	}
	if _, typing := open[conversationID]; !typing {
		t.mu.Unlock()
		return false
	}
	delete(open, conversationID)
	if len(open) == 0 {
		delete(t.facts, c.ID())
	}
	t.mu.Unlock()

	t.broadcastStop(c, conversationID)
	return true
}

// ClearAll closes every open fact of c, emitting exactly one stop for each.
// Returns the conversations that were cleared.
func (t *Typing) ClearAll(c Conn) []string {
	t.mu.Lock()
	open := t.facts[c.ID()]
	delete(t.facts, c.ID())
	t.mu.Unlock()

	cleared := make([]string, 0, len(open))
	for conversationID := range open {
		cleared = append(cleared, conversationID)
	}
	sort.Strings(cleared)

	for _, conversationID := range cleared {
		t.broadcastStop(c, conversationID)
	}
	return cleared
}

// IsTyping reports whether the handle has an open fact in the conversation
func (t *Typing) IsTyping(handleID, conversationID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, ok := t.facts[handleID][conversationID]
	return ok
}

// Count returns the number of open facts
func (t *Typing) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := 0
	for _, open := range t.facts {
		n += len(open)
	}
	return n
}

func (t *Typing) broadcastStop(c Conn, conversationID string) {
	t.rooms.Broadcast(conversationID, event.New(event.TypingStop, event.TypingEvent{
		UserID:         c.UserID(),
		ConversationID: conversationID,
	}), c.ID())
}
