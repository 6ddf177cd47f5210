package model

import "time"

// Presence is the transient, non-authoritative view of a user's status held by the realtime core
type Presence struct {
	UserID      string     `json:"userId"`
	Status      UserStatus `json:"status"`
	LastSeen    time.Time  `json:"lastSeen"`
	Online      bool       `json:"online"`
	Connections int        `json:"connections"`
}
