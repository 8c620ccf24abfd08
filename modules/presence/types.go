package presence

import "context"

// Service names registered by the presence module.
const (
	ServiceRoomStats   = "room-stats"
	ServiceRoomMembers = "room-members"
)

// RoomStatsRequest is the request for the room-stats service.
type RoomStatsRequest struct{}

// RoomStatsResponse is the response for the room-stats service.
type RoomStatsResponse struct {
	Stats Stats         `json:"stats"`
	Rooms []RoomSummary `json:"rooms"`
}

// RoomMembersRequest is the request for the room-members service.
type RoomMembersRequest struct {
	Room string `json:"room"`
}

// RoomMembersResponse is the response for the room-members service.
type RoomMembersResponse struct {
	Room  string   `json:"room"`
	Users []string `json:"users"`
}

// PresencePort is the read-only view of presence offered to other modules.
type PresencePort interface {
	RoomStats(ctx context.Context) (*RoomStatsResponse, error)
	RoomMembers(ctx context.Context, room string) (*RoomMembersResponse, error)
}
