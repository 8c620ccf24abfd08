package session

import (
	"context"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"

	"github.com/example/roomchat/events"
	"github.com/example/roomchat/modules/presence"
)

// Module hosts the session Coordinator and publishes its domain events.
type Module struct {
	coordinator *Coordinator
	logger      types.Logger
}

var _ mono.Module = (*Module)(nil)
var _ mono.EventBusAwareModule = (*Module)(nil)
var _ mono.EventEmitterModule = (*Module)(nil)

// NewModule creates the session module.
func NewModule(registry *presence.Registry, emitter Emitter, logger types.Logger) *Module {
	return &Module{
		coordinator: NewCoordinator(registry, emitter, logger),
		logger:      logger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "session"
}

// Coordinator returns the coordinator driven by the transport.
func (m *Module) Coordinator() *Coordinator {
	return m.coordinator
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.coordinator.SetEventBus(bus)
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.UserJoinedV1.ToBase(),
		events.UserLeftV1.ToBase(),
		events.MessageSentV1.ToBase(),
		events.JoinRejectedV1.ToBase(),
	}
}

// Start starts the module.
func (m *Module) Start(_ context.Context) error {
	if m.coordinator.eventBus == nil {
		m.logger.Warn("EventBus not set, session events will not be published")
	}
	m.logger.Info("Session module started")
	return nil
}

// Stop stops the module.
func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("Session module stopped")
	return nil
}
