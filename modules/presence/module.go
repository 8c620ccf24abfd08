package presence

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"

	"github.com/example/roomchat/domain/chat"
)

// Module owns the process-wide presence Registry.
type Module struct {
	registry *Registry
	logger   types.Logger
}

var _ mono.Module = (*Module)(nil)
var _ mono.ServiceProviderModule = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates the presence module with a fresh registry.
func NewModule(logger types.Logger) *Module {
	return &Module{
		registry: NewRegistry(),
		logger:   logger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "presence"
}

// Registry returns the registry shared with the session coordinator.
func (m *Module) Registry() *Registry {
	return m.registry
}

// RegisterServices exposes read-only presence queries to dependent modules.
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceRoomStats, json.Unmarshal, json.Marshal, m.roomStats,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceRoomStats, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceRoomMembers, json.Unmarshal, json.Marshal, m.roomMembers,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceRoomMembers, err)
	}
	m.logger.Info("Registered presence services", "services", []string{ServiceRoomStats, ServiceRoomMembers})
	return nil
}

func (m *Module) roomStats(_ context.Context, _ RoomStatsRequest, _ *mono.Msg) (RoomStatsResponse, error) {
	rooms := m.registry.Rooms()
	if rooms == nil {
		rooms = []RoomSummary{}
	}
	return RoomStatsResponse{
		Stats: m.registry.Stats(),
		Rooms: rooms,
	}, nil
}

func (m *Module) roomMembers(_ context.Context, req RoomMembersRequest, _ *mono.Msg) (RoomMembersResponse, error) {
	room, err := chat.NormalizeRoomName(req.Room)
	if err != nil {
		return RoomMembersResponse{}, err
	}
	return RoomMembersResponse{
		Room:  room,
		Users: m.registry.ListRoom(room),
	}, nil
}

// Start starts the module.
func (m *Module) Start(_ context.Context) error {
	m.logger.Info("Presence module started", "shards", len(m.registry.shards))
	return nil
}

// Stop stops the module.
func (m *Module) Stop(_ context.Context) error {
	stats := m.registry.Stats()
	m.logger.Info("Presence module stopped", "rooms", stats.Rooms, "connections", stats.Connections)
	return nil
}

// Health reports registry occupancy.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	stats := m.registry.Stats()
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"rooms":       stats.Rooms,
			"connections": stats.Connections,
		},
	}
}
