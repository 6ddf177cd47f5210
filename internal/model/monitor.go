package model

// -----------------------------------------------------------------
// Monitor API Response Models
// -----------------------------------------------------------------

// MonitorResponse is the main response for the monitor API
type MonitorResponse struct {
	Status      string          `json:"status"`      // "healthy", "idle"
	Connections ConnectionStats `json:"connections"` // Client connection stats
	Rooms       RoomStats       `json:"rooms"`       // Room/conversation stats
	Typing      int             `json:"typing"`      // Open typing indicators
	Clients     []ClientInfo    `json:"clients"`     // List of connected clients
	StatusCount map[string]int  `json:"statusCount"` // Online users by status
}

// ConnectionStats holds connection-related statistics
type ConnectionStats struct {
	TotalConnected int `json:"totalConnected"` // Connection handles currently admitted
	UsersOnline    int `json:"usersOnline"`    // Distinct users with at least one handle
	TotalOnline    int `json:"totalOnline"`    // Users with status "online"
	TotalBusy      int `json:"totalBusy"`      // Users with status "busy"
	TotalAway      int `json:"totalAway"`      // Users with status "away"
}

// RoomStats holds room/conversation statistics
type RoomStats struct {
	TotalRooms  int        `json:"totalRooms"`  // Rooms with at least one subscribed handle
	RoomDetails []RoomInfo `json:"roomDetails"` // Details of each room
}

// RoomInfo contains information about a single room
type RoomInfo struct {
	ConversationID string   `json:"conversationId"`
	Handles        int      `json:"handles"`       // Subscribed connection handles
	OnlineMembers  int      `json:"onlineMembers"` // Distinct users subscribed
	MemberIDs      []string `json:"memberIds"`
}

// ClientInfo contains information about a connected client
type ClientInfo struct {
	ClientID string   `json:"clientId"`
	UserID   string   `json:"userId"`
	Status   string   `json:"status"`
	Rooms    []string `json:"rooms"`
}
