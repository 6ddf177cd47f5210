package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const MaxContentLength = 5000

const (
	MessageText   = "text"
	MessageImage  = "image"
	MessageFile   = "file"
	MessageAudio  = "audio"
	MessageVideo  = "video"
	MessageSystem = "system"
)

// ValidMessageType reports whether t is one of the supported message types
func ValidMessageType(t string) bool {
	switch t {
	case MessageText, MessageImage, MessageFile, MessageAudio, MessageVideo, MessageSystem:
		return true
	}
	return false
}

// ReceiptKind selects one of the two receipt sets on a message
type ReceiptKind string

const (
	ReceiptDelivered ReceiptKind = "delivered"
	ReceiptRead      ReceiptKind = "read"
)

// Message represents a chat message in MongoDB
type Message struct {
	ID             primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	ConversationID primitive.ObjectID  `json:"conversationId" bson:"conversation_id"`
	SenderID       string              `json:"senderId" bson:"sender_id"`
	Sender         *Sender             `json:"sender,omitempty" bson:"-"`
	Content        string              `json:"content" bson:"content"`
	Type           string              `json:"type" bson:"type"`
	ReplyTo        *primitive.ObjectID `json:"replyTo,omitempty" bson:"reply_to,omitempty"`
	DeliveredTo    []DeliveryReceipt   `json:"deliveredTo" bson:"delivered_to"`
	ReadBy         []ReadReceipt       `json:"readBy" bson:"read_by"`
	IsEdited       bool                `json:"isEdited" bson:"is_edited"`
	IsDeleted      bool                `json:"isDeleted" bson:"is_deleted"`
	CreatedAt      time.Time           `json:"createdAt" bson:"created_at"`
	UpdatedAt      time.Time           `json:"updatedAt" bson:"updated_at"`
}

// DeliveryReceipt records that a message reached one of the user's devices
type DeliveryReceipt struct {
	UserID      string    `json:"userId" bson:"user_id"`
	DeliveredAt time.Time `json:"deliveredAt" bson:"delivered_at"`
}

// ReadReceipt records that the user has seen the message
type ReadReceipt struct {
	UserID string    `json:"userId" bson:"user_id"`
	ReadAt time.Time `json:"readAt" bson:"read_at"`
}

// IsDeliveredTo reports whether userID already has a delivery receipt
func (m *Message) IsDeliveredTo(userID string) bool {
	for _, r := range m.DeliveredTo {
		if r.UserID == userID {
			return true
		}
	}
	return false
}

// IsReadBy reports whether userID already has a read receipt
func (m *Message) IsReadBy(userID string) bool {
	for _, r := range m.ReadBy {
		if r.UserID == userID {
			return true
		}
	}
	return false
}

// AddReceipt appends a receipt of the given kind unless userID already has one.
// Returns true when the set grew.
func (m *Message) AddReceipt(kind ReceiptKind, userID string, at time.Time) bool {
	switch kind {
	case ReceiptDelivered:
		if m.IsDeliveredTo(userID) {
			return false
		}
		m.DeliveredTo = append(m.DeliveredTo, DeliveryReceipt{UserID: userID, DeliveredAt: at})
		return true
	case ReceiptRead:
		if m.IsReadBy(userID) {
			return false
		}
		m.ReadBy = append(m.ReadBy, ReadReceipt{UserID: userID, ReadAt: at})
		return true
	}
	return false
}

// NewOutgoingMessage builds a message delivered-to and read-by its own author
func NewOutgoingMessage(conversationID primitive.ObjectID, senderID, content, msgType string, replyTo *primitive.ObjectID, now time.Time) *Message {
	return &Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		Type:           msgType,
		ReplyTo:        replyTo,
		DeliveredTo:    []DeliveryReceipt{{UserID: senderID, DeliveredAt: now}},
		ReadBy:         []ReadReceipt{{UserID: senderID, ReadAt: now}},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// ErrorPayload represents an error response sent to client via WebSocket
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
