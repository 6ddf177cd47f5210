package event

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Trushar30/AURA-Message/internal/model"
)

var ErrInvalidPayload = errors.New("invalid payload")

// -----------------------------------------------------------------
// Client to Server payloads
// -----------------------------------------------------------------

// ConversationRef is the payload of join/leave/typing events.
// Clients may send a bare JSON string or {"conversationId": "..."}.
type ConversationRef struct {
	ConversationID string `json:"conversationId"`
}

// SendPayload is sent by a client to post a message
type SendPayload struct {
	ConversationID string `json:"conversationId"`
	Content        string `json:"content"`
	Type           string `json:"type,omitempty"`
	ReplyTo        string `json:"replyTo,omitempty"`
}

// ReceiptPayload marks a batch of messages delivered or read
type ReceiptPayload struct {
	ConversationID string   `json:"conversationId"`
	MessageIDs     []string `json:"messageIds"`
}

// StatusPayload carries an explicit status override
type StatusPayload struct {
	Status model.UserStatus `json:"status"`
}

// -----------------------------------------------------------------
// Server to Client payloads
// -----------------------------------------------------------------

type NewMessageEvent struct {
	Message        *model.Message `json:"message"`
	ConversationID string         `json:"conversationId"`
}

type SentEvent struct {
	MessageID      string `json:"messageId"`
	ConversationID string `json:"conversationId"`
}

type TypingEvent struct {
	UserID         string `json:"userId"`
	UserName       string `json:"userName,omitempty"`
	ConversationID string `json:"conversationId"`
}

type ReceiptEvent struct {
	UserID         string   `json:"userId"`
	ConversationID string   `json:"conversationId"`
	MessageIDs     []string `json:"messageIds"`
}

type PresenceEvent struct {
	UserID   string           `json:"userId"`
	Status   model.UserStatus `json:"status,omitempty"`
	LastSeen *int64           `json:"lastSeen,omitempty"` // unix millis
}

// -----------------------------------------------------------------
// Decoding
// -----------------------------------------------------------------

// DecodeConversationRef accepts `"id"` or `{"conversationId":"id"}`
func DecodeConversationRef(raw json.RawMessage) (ConversationRef, error) {
	var ref ConversationRef
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return ref, fmt.Errorf("%w: conversation id is required", ErrInvalidPayload)
	}

	if trimmed[0] == '"' {
		if err := json.Unmarshal(trimmed, &ref.ConversationID); err != nil {
			return ref, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
	} else if err := json.Unmarshal(trimmed, &ref); err != nil {
		return ref, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	ref.ConversationID = strings.TrimSpace(ref.ConversationID)
	if ref.ConversationID == "" {
		return ref, fmt.Errorf("%w: conversation id is required", ErrInvalidPayload)
	}
	return ref, nil
}

// DecodeSend validates the message:send payload and fills the default type
func DecodeSend(raw json.RawMessage) (SendPayload, error) {
	var p SendPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	p.ConversationID = strings.TrimSpace(p.ConversationID)
	if p.ConversationID == "" {
		return p, fmt.Errorf("%w: conversation id is required", ErrInvalidPayload)
	}
	if strings.TrimSpace(p.Content) == "" {
		return p, fmt.Errorf("%w: content is required", ErrInvalidPayload)
	}
	if len([]rune(p.Content)) > model.MaxContentLength {
		return p, fmt.Errorf("%w: content exceeds %d characters", ErrInvalidPayload, model.MaxContentLength)
	}
	if p.Type == "" {
		p.Type = model.MessageText
	}
	if !model.ValidMessageType(p.Type) {
		return p, fmt.Errorf("%w: unsupported message type %q", ErrInvalidPayload, p.Type)
	}
	return p, nil
}

// DecodeReceipt checks the envelope shape only; id filtering is the tracker's job
func DecodeReceipt(raw json.RawMessage) (ReceiptPayload, error) {
	var p ReceiptPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	p.ConversationID = strings.TrimSpace(p.ConversationID)
	if p.ConversationID == "" {
		return p, fmt.Errorf("%w: conversation id is required", ErrInvalidPayload)
	}
	return p, nil
}

// DecodeStatus accepts `"away"` or `{"status":"away"}`
func DecodeStatus(raw json.RawMessage) (StatusPayload, error) {
	var p StatusPayload
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return p, fmt.Errorf("%w: status is required", ErrInvalidPayload)
	}

	if trimmed[0] == '"' {
		if err := json.Unmarshal(trimmed, &p.Status); err != nil {
			return p, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
	} else if err := json.Unmarshal(trimmed, &p); err != nil {
		return p, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	if !p.Status.Selectable() {
		return p, fmt.Errorf("%w: unsupported status %q", ErrInvalidPayload, p.Status)
	}
	return p, nil
}
