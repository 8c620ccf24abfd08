package activity

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"

	"github.com/example/roomchat/events"
)

// Module consumes session events and keeps activity counters.
type Module struct {
	tracker *Tracker
	logger  types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.EventConsumerModule = (*Module)(nil)
var _ mono.ServiceProviderModule = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates a new activity module.
func NewModule(logger types.Logger) *Module {
	return &Module{
		tracker: NewTracker(),
		logger:  logger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "activity"
}

// Tracker returns the module's counters.
func (m *Module) Tracker() *Tracker {
	return m.tracker
}

// RegisterEventConsumers subscribes to every session event.
func (m *Module) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		registry, events.UserJoinedV1, m.handleUserJoined, m,
	); err != nil {
		return fmt.Errorf("failed to register UserJoined consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(
		registry, events.UserLeftV1, m.handleUserLeft, m,
	); err != nil {
		return fmt.Errorf("failed to register UserLeft consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(
		registry, events.MessageSentV1, m.handleMessageSent, m,
	); err != nil {
		return fmt.Errorf("failed to register MessageSent consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(
		registry, events.JoinRejectedV1, m.handleJoinRejected, m,
	); err != nil {
		return fmt.Errorf("failed to register JoinRejected consumer: %w", err)
	}

	m.logger.Info("Registered event consumers",
		"events", []string{"UserJoined", "UserLeft", "MessageSent", "JoinRejected"})
	return nil
}

// RegisterServices exposes the counters as a request-reply service.
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceActivityStats, json.Unmarshal, json.Marshal, m.stats,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceActivityStats, err)
	}
	return nil
}

func (m *Module) stats(_ context.Context, _ StatsRequest, _ *mono.Msg) (StatsResponse, error) {
	return StatsResponse{Snapshot: m.tracker.Snapshot()}, nil
}

func (m *Module) handleUserJoined(_ context.Context, event events.UserJoinedEvent, _ *mono.Msg) error {
	m.tracker.RecordJoin(event.Timestamp)
	m.logger.Debug("Observed join", "room", event.Room, "members", event.Members)
	return nil
}

func (m *Module) handleUserLeft(_ context.Context, event events.UserLeftEvent, _ *mono.Msg) error {
	m.tracker.RecordLeave(event.Timestamp)
	m.logger.Debug("Observed leave", "room", event.Room, "members", event.Members)
	return nil
}

func (m *Module) handleMessageSent(_ context.Context, event events.MessageSentEvent, _ *mono.Msg) error {
	m.tracker.RecordMessage(event.Recipients, event.Timestamp)
	return nil
}

func (m *Module) handleJoinRejected(_ context.Context, event events.JoinRejectedEvent, _ *mono.Msg) error {
	m.tracker.RecordRejectedJoin(event.Code, event.Timestamp)
	return nil
}

// Start starts the module.
func (m *Module) Start(_ context.Context) error {
	m.logger.Info("Activity module started")
	return nil
}

// Stop stops the module.
func (m *Module) Stop(_ context.Context) error {
	s := m.tracker.Snapshot()
	m.logger.Info("Activity module stopped", "joins", s.Joins, "messages", s.Messages)
	return nil
}

// Health reports the activity counters.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	s := m.tracker.Snapshot()
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"joins":          s.Joins,
			"leaves":         s.Leaves,
			"messages":       s.Messages,
			"rejected_joins": s.RejectedJoins,
		},
	}
}
