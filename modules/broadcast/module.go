package broadcast

import (
	"context"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
)

// Module owns the Hub for the lifetime of the application.
type Module struct {
	hub    *Hub
	logger types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates a new broadcast module.
func NewModule(logger types.Logger) *Module {
	return &Module{
		hub:    NewHub(logger),
		logger: logger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "broadcast"
}

// Hub returns the connection table shared with the session and ws-server modules.
func (m *Module) Hub() *Hub {
	return m.hub
}

// Start starts the module.
func (m *Module) Start(_ context.Context) error {
	m.logger.Info("Broadcast module started")
	return nil
}

// Stop reports the connections left in the table. Sockets are closed by
// the ws-server module, which stops first and waits for its readers.
func (m *Module) Stop(_ context.Context) error {
	if remaining := m.hub.ClientCount(); remaining > 0 {
		m.logger.Warn("Broadcast module stopped with live clients", "clients", remaining)
		return nil
	}
	m.logger.Info("Broadcast module stopped")
	return nil
}

// Health returns the health status.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"connected_clients": m.hub.ClientCount(),
		},
	}
}
