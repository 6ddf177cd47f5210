package model

import (
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ConversationDirect = "direct"
	ConversationGroup  = "group"

	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Conversation represents a chat conversation/room in MongoDB
type Conversation struct {
	ID           primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	Type         string              `json:"type" bson:"type"`
	Name         string              `json:"name,omitempty" bson:"name,omitempty"`
	Avatar       string              `json:"avatar,omitempty" bson:"avatar,omitempty"`
	Description  string              `json:"description,omitempty" bson:"description,omitempty"`
	Participants []Participant       `json:"participants" bson:"participants"`
	DirectKey    string              `json:"-" bson:"direct_key,omitempty"`
	LastMessage  *primitive.ObjectID `json:"lastMessage,omitempty" bson:"last_message,omitempty"`
	IsArchived   bool                `json:"isArchived" bson:"is_archived"`
	CreatedBy    string              `json:"createdBy" bson:"created_by"`
	CreatedAt    time.Time           `json:"createdAt" bson:"created_at"`
	UpdatedAt    time.Time           `json:"updatedAt" bson:"updated_at"`
}

// Participant represents a user in a conversation
type Participant struct {
	UserID   string     `json:"userId" bson:"user_id"`
	Role     string     `json:"role" bson:"role"`
	JoinedAt time.Time  `json:"joinedAt" bson:"joined_at"`
	LastRead *time.Time `json:"lastRead,omitempty" bson:"last_read,omitempty"`
}

// HasParticipant reports whether userID is part of the conversation
func (c *Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// ParticipantIDs lists the user ids in participant order
func (c *Conversation) ParticipantIDs() []string {
	ids := make([]string, 0, len(c.Participants))
	for _, p := range c.Participants {
		ids = append(ids, p.UserID)
	}
	return ids
}

// DirectKeyFor builds the order-independent key identifying a direct conversation
func DirectKeyFor(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return strings.Join(pair, ":")
}
