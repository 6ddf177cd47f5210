package hub

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/Trushar30/AURA-Message/internal/event"
	"github.com/Trushar30/AURA-Message/internal/model"
	"github.com/Trushar30/AURA-Message/internal/repo"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// fakeConn records everything sent to it
type fakeConn struct {
	id   string
	user *model.User

	mu     sync.Mutex
	events []event.WsEvent
	closed bool
}

func newFakeConn(user model.User) *fakeConn {
	return &fakeConn{id: uuid.New().String(), user: &user}
}

func (f *fakeConn) ID() string        { return f.id }
func (f *fakeConn) UserID() string    { return f.user.UserID() }
func (f *fakeConn) User() *model.User { return f.user }

func (f *fakeConn) Send(ev event.WsEvent) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return false
	}
	f.events = append(f.events, ev)
	return true
}

func (f *fakeConn) IsClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeConn) close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

func (f *fakeConn) named(name string) []event.WsEvent {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []event.WsEvent
	for _, ev := range f.events {
		if ev.Event == name {
			out = append(out, ev)
		}
	}
	return out
}

func (f *fakeConn) reset() {
	f.mu.Lock()
	f.events = nil
	f.mu.Unlock()
}

func decode[T any](t *testing.T, ev event.WsEvent) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(ev.Payload, &out))
	return out
}

// fixture is a memory store seeded with three users
type fixture struct {
	store *repo.MemoryStore
	alice model.User
	bob   model.User
	carol model.User
}

func newFixture() *fixture {
	store := repo.NewMemoryStore()
	return &fixture{
		store: store,
		alice: store.PutUser(model.User{Name: "Alice", Avatar: "a.png"}),
		bob:   store.PutUser(model.User{Name: "Bob"}),
		carol: store.PutUser(model.User{Name: "Carol"}),
	}
}

func (f *fixture) conversation(users ...model.User) model.Conversation {
	parts := make([]model.Participant, 0, len(users))
	for _, u := range users {
		parts = append(parts, model.Participant{UserID: u.UserID(), Role: model.RoleMember})
	}
	return f.store.PutConversation(model.Conversation{Type: model.ConversationGroup, Name: "room", Participants: parts})
}
