package hub

import (
	"github.com/Trushar30/AURA-Message/internal/event"
	"github.com/Trushar30/AURA-Message/internal/model"
)

// Conn is one authenticated connection handle as seen by the presence,
// room and typing engines. *Client is the production implementation.
type Conn interface {
	ID() string
	UserID() string
	User() *model.User
	// Send enqueues ev without blocking and reports whether it was accepted
	Send(ev event.WsEvent) bool
	IsClosed() bool
}

// sendAll delivers ev to every conn except the one whose id is except.
// It returns how many connections accepted the event.
func sendAll(conns []Conn, ev event.WsEvent, except string) int {
	delivered := 0
	for _, c := range conns {
		if c.ID() == except || c.IsClosed() {
			continue
		}
		if c.Send(ev) {
			delivered++
		}
	}
	return delivered
}
