package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserStatus is the presence status stored on a user document
type UserStatus string

const (
	StatusOnline  UserStatus = "online"
	StatusOffline UserStatus = "offline"
	StatusAway    UserStatus = "away"
	StatusBusy    UserStatus = "busy"
)

// Selectable reports whether a user may pick the status explicitly.
// Offline is only ever derived from the connection count.
func (s UserStatus) Selectable() bool {
	switch s {
	case StatusOnline, StatusAway, StatusBusy:
		return true
	}
	return false
}

// User represents a user document in MongoDB
type User struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name      string             `json:"name" bson:"name"`
	Email     string             `json:"email" bson:"email"`
	Avatar    string             `json:"avatar" bson:"avatar"`
	Bio       string             `json:"bio,omitempty" bson:"bio"`
	Status    UserStatus         `json:"status" bson:"status"`
	LastSeen  time.Time          `json:"lastSeen" bson:"last_seen"`
	CreatedAt time.Time          `json:"createdAt" bson:"created_at"`
	UpdatedAt *time.Time         `json:"updatedAt" bson:"updated_at"`
}

// UserID returns the hex form used everywhere outside the database
func (u *User) UserID() string {
	return u.ID.Hex()
}

// Sender is the display projection of a user attached to outgoing messages
type Sender struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	Avatar string `json:"avatar"`
}

func (u *User) AsSender() *Sender {
	return &Sender{
		ID:     u.UserID(),
		Name:   u.Name,
		Email:  u.Email,
		Avatar: u.Avatar,
	}
}
