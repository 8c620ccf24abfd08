package presence

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// presenceAdapter implements PresencePort over the presence module's
// ServiceContainer.
type presenceAdapter struct {
	container mono.ServiceContainer
}

// NewPresenceAdapter creates a PresencePort backed by container.
func NewPresenceAdapter(container mono.ServiceContainer) PresencePort {
	if container == nil {
		panic("presence adapter requires non-nil ServiceContainer")
	}
	return &presenceAdapter{container: container}
}

// RoomStats calls the room-stats service.
func (a *presenceAdapter) RoomStats(ctx context.Context) (*RoomStatsResponse, error) {
	req := RoomStatsRequest{}
	var resp RoomStatsResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceRoomStats,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("room-stats service call failed: %w", err)
	}
	return &resp, nil
}

// RoomMembers calls the room-members service.
func (a *presenceAdapter) RoomMembers(ctx context.Context, room string) (*RoomMembersResponse, error) {
	req := RoomMembersRequest{Room: room}
	var resp RoomMembersResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceRoomMembers,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("room-members service call failed: %w", err)
	}
	return &resp, nil
}
