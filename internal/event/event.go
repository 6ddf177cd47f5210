package event

import (
	"encoding/json"
	"fmt"
)

// Client to server
const (
	ConversationJoin  = "conversation:join"
	ConversationLeave = "conversation:leave"
	MessageSend       = "message:send"
	TypingStart       = "typing:start"
	TypingStop        = "typing:stop"
	MessageRead       = "message:read"
	MessageDelivered  = "message:delivered"
	StatusChange      = "status:change"
)

// Server to client
const (
	MessageNew         = "message:new"
	MessageSent        = "message:sent"
	UserOnline         = "user:online"
	UserOffline        = "user:offline"
	UserStatus         = "user:status"
	ConversationJoined = "conversation:joined"
	ConversationLeft   = "conversation:left"
	Error              = "error"
)

// WsEvent is the envelope for every frame in both directions
type WsEvent struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// New marshals payload into an envelope. Payloads are package-local structs,
// so a marshal failure is a programming error.
func New(name string, payload any) WsEvent {
	raw, err := json.Marshal(payload)
	if err != nil {
		panic(fmt.Sprintf("event %s: marshal payload: %v", name, err))
	}
	return WsEvent{Event: name, Payload: raw}
}

// Inbound reports whether name is an event clients may send
func Inbound(name string) bool {
	switch name {
	case ConversationJoin, ConversationLeave, MessageSend, TypingStart, TypingStop,
		MessageRead, MessageDelivered, StatusChange:
		return true
	}
	return false
}
