package wsserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/example/roomchat/config"
	"github.com/example/roomchat/modules/activity"
	"github.com/example/roomchat/modules/broadcast"
	"github.com/example/roomchat/modules/presence"
)

// Options configures the server and every connection it accepts.
type Options struct {
	Addr               string
	AllowedOrigins     string
	MaxMessageSize     int64
	SendBufferSize     int
	RateLimitPerSecond float64
	RateLimitBurst     int
	WriteWait          time.Duration
	PongWait           time.Duration
	PingPeriod         time.Duration
}

// OptionsFromConfig derives server options from the process configuration.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		Addr:               cfg.Addr(),
		AllowedOrigins:     cfg.AllowedOrigins,
		MaxMessageSize:     cfg.MaxMessageSize,
		SendBufferSize:     cfg.SendBufferSize,
		RateLimitPerSecond: cfg.RateLimitPerSecond,
		RateLimitBurst:     cfg.RateLimitBurst,
		WriteWait:          broadcast.DefaultWriteWait,
		PongWait:           broadcast.DefaultPongWait,
		PingPeriod:         broadcast.DefaultPingPeriod,
	}
}

// Module implements the WebSocket server module using Fiber framework.
type Module struct {
	app          *fiber.App
	handlers     *Handlers
	opts         Options
	session      Session
	hub          *broadcast.Hub
	presencePort presence.PresencePort
	activityPort activity.ActivityPort
	logger       types.Logger
}

// Compile-time interface checks.
var (
	_ mono.Module                              = (*Module)(nil)
	_ mono.DependentModule                     = (*Module)(nil)
	_ mono.SetDependencyServiceContainerModule = (*Module)(nil)
)

// NewModule creates a new WebSocket server module.
func NewModule(opts Options, sess Session, hub *broadcast.Hub, moduleLogger types.Logger) *Module {
	return &Module{
		opts:    opts,
		session: sess,
		hub:     hub,
		logger:  moduleLogger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "ws-server"
}

// Dependencies returns the modules whose services back the HTTP endpoints.
func (m *Module) Dependencies() []string {
	return []string{"presence", "activity"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *Module) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "presence":
		m.presencePort = presence.NewPresenceAdapter(container)
	case "activity":
		m.activityPort = activity.NewActivityAdapter(container)
	}
}

// Start binds the listen address and serves in the background. Bind
// errors are returned directly.
func (m *Module) Start(_ context.Context) error {
	if m.presencePort == nil {
		return fmt.Errorf("presencePort dependency not set")
	}

	ln, err := net.Listen("tcp", m.opts.Addr)
	if err != nil {
		return fmt.Errorf("ws-server: listen on %s: %w", m.opts.Addr, err)
	}
	m.serve(ln)

	m.logger.Info("WebSocket server started", "addr", ln.Addr().String())
	return nil
}

// serve builds the app and serves it on ln until Stop.
func (m *Module) serve(ln net.Listener) {
	m.app = m.newApp()
	go func() {
		if err := m.app.Listener(ln); err != nil {
			m.logger.Error("WebSocket server stopped serving", "error", err)
		}
	}()
}

// Stop closes every socket, waits for each reader to finish its disconnect
// path, then shuts the HTTP server down. It runs before the broadcast and
// session modules are stopped.
func (m *Module) Stop(ctx context.Context) error {
	closed := 0
	if m.handlers != nil {
		var err error
		if closed, err = m.handlers.Drain(ctx); err != nil {
			m.logger.Warn("Connections still open at shutdown",
				"remaining", m.handlers.ActiveConnections(), "error", err)
		}
	}
	if m.app != nil {
		if err := m.app.ShutdownWithContext(ctx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
	}
	m.logger.Info("WebSocket server stopped", "closedClients", closed)
	return nil
}

// newApp builds the Fiber app with middleware and routes.
func (m *Module) newApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "Room Chat",
		DisableStartupMessage: true,
		UnescapePath:          true,
		ErrorHandler:          m.errorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} ${method} ${path} ${latency}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: m.opts.AllowedOrigins,
		AllowMethods: "GET,OPTIONS",
		AllowHeaders: "Content-Type",
	}))

	m.handlers = NewHandlers(m.session, m.hub, m.presencePort, m.activityPort, m.opts, m.logger)
	m.registerRoutes(app)
	return app
}

// registerRoutes sets up all HTTP and WebSocket routes.
func (m *Module) registerRoutes(app *fiber.App) {
	app.Get("/health", m.handlers.HealthCheck)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(m.handlers.HandleWebSocket, websocket.Config{
		HandshakeTimeout: 10 * time.Second,
	}))

	api := app.Group("/api/v1")
	api.Get("/rooms", m.handlers.ListRooms)
	api.Get("/rooms/:room/users", m.handlers.GetRoomUsers)
}

// errorHandler renders *fiber.Error values as JSON; anything else is a 500.
func (m *Module) errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if !errors.As(err, &fe) {
		m.logger.Error("Unhandled HTTP error", "method", c.Method(), "path", c.Path(), "error", err)
		fe = fiber.ErrInternalServerError
	}
	return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
}
