package hub

import (
	"sort"

	"github.com/Trushar30/AURA-Message/internal/model"
)

// MonitorService provides methods to gather hub statistics
type MonitorService struct {
	hub *Hub
}

// NewMonitorService creates a new monitor service
func NewMonitorService(hub *Hub) *MonitorService {
	return &MonitorService{hub: hub}
}

// GetStats gathers and returns all hub statistics
func (ms *MonitorService) GetStats() model.MonitorResponse {
	online := ms.hub.presence.OnlineUsers()

	connectionStats := ms.getConnectionStats(online)
	roomStats := ms.getRoomStats()
	clients := ms.getClientList()
	statusCount := ms.getStatusCount(online)

	// Determine overall health status
	status := "healthy"
	if connectionStats.TotalConnected == 0 {
		status = "idle"
	}

	return model.MonitorResponse{
		Status:      status,
		Connections: connectionStats,
		Rooms:       roomStats,
		Typing:      ms.hub.typing.Count(),
		Clients:     clients,
		StatusCount: statusCount,
	}
}

// getConnectionStats returns connection statistics
func (ms *MonitorService) getConnectionStats(online []model.Presence) model.ConnectionStats {
	stats := model.ConnectionStats{
		TotalConnected: ms.hub.ConnectionCount(),
		UsersOnline:    len(online),
	}

	for _, p := range online {
		switch p.Status {
		case model.StatusOnline:
			stats.TotalOnline++
		case model.StatusBusy:
			stats.TotalBusy++
		case model.StatusAway:
			stats.TotalAway++
		}
	}

	return stats
}

// getRoomStats returns room/conversation statistics
func (ms *MonitorService) getRoomStats() model.RoomStats {
	stats := model.RoomStats{
		RoomDetails: make([]model.RoomInfo, 0),
	}

	for _, room := range ms.hub.rooms.snapshot() {
		stats.RoomDetails = append(stats.RoomDetails, model.RoomInfo{
			ConversationID: room.conversationID,
			Handles:        room.handles,
			OnlineMembers:  len(room.userIDs),
			MemberIDs:      room.userIDs,
		})
		stats.TotalRooms++
	}

	return stats
}

// getClientList returns list of all connected clients
func (ms *MonitorService) getClientList() []model.ClientInfo {
	all := ms.hub.snapshotClients()
	clients := make([]model.ClientInfo, 0, len(all))

	for _, client := range all {
		status := string(model.StatusOffline)
		if p, ok := ms.hub.presence.Status(client.UserID()); ok {
			status = string(p.Status)
		}

		clients = append(clients, model.ClientInfo{
			ClientID: client.ID(),
			UserID:   client.UserID(),
			Status:   status,
			Rooms:    ms.hub.rooms.RoomsOf(client.ID()),
		})
	}

	sort.Slice(clients, func(i, j int) bool { return clients[i].ClientID < clients[j].ClientID })
	return clients
}

// getStatusCount returns count of online users by status
func (ms *MonitorService) getStatusCount(online []model.Presence) map[string]int {
	statusCount := map[string]int{
		string(model.StatusOnline): 0,
		string(model.StatusBusy):   0,
		string(model.StatusAway):   0,
	}

	for _, p := range online {
		statusCount[string(p.Status)]++
	}

	return statusCount
}
