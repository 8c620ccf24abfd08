package main

import (
	"context"
	"log"
	"os"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"

	"github.com/example/roomchat/config"
	"github.com/example/roomchat/modules/activity"
	"github.com/example/roomchat/modules/broadcast"
	"github.com/example/roomchat/modules/presence"
	"github.com/example/roomchat/modules/session"
	"github.com/example/roomchat/modules/wsserver"
)

func main() {
	log.Println("=== Room Chat - Fiber WebSocket + mono ===")

	cfg := config.Load()

	logLevel := mono.LogLevelInfo
	if cfg.LogLevel == config.LogLevelError {
		logLevel = mono.LogLevelError
	}

	// Create mono application
	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(cfg.ShutdownTimeout),
		mono.WithLogLevel(logLevel),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	logger := app.Logger()
	for _, warning := range cfg.Warnings {
		logger.Warn("Configuration", "warning", warning)
	}

	// Create modules
	presenceModule := presence.NewModule(logger.WithModule("presence"))
	activityModule := activity.NewModule(logger.WithModule("activity"))
	broadcastModule := broadcast.NewModule(logger.WithModule("broadcast"))

	// The registry and hub are shared in-process state, not services, so
	// they are injected directly.
	sessionModule := session.NewModule(
		presenceModule.Registry(),
		broadcastModule.Hub(),
		logger.WithModule("session"),
	)
	wsModule := wsserver.NewModule(
		wsserver.OptionsFromConfig(cfg),
		sessionModule.Coordinator(),
		broadcastModule.Hub(),
		logger.WithModule("ws-server"),
	)

	// Register modules with the framework.
	// Order: independent modules first, then modules with dependencies
	// - presence: Registry owner (ServiceProviderModule)
	// - broadcast: Connection table
	// - session: Coordinator (EventEmitterModule)
	// - activity: Event consumer + activity-stats service
	// - ws-server: Driving adapter (Fiber HTTP/WebSocket, depends on presence, activity)
	app.Register(presenceModule)
	app.Register(broadcastModule)
	app.Register(sessionModule)
	app.Register(activityModule)
	app.Register(wsModule)

	// Start application
	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo(cfg)

	// Graceful shutdown
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				logger.Info("Graceful shutdown initiated")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func printStartupInfo(cfg config.Config) {
	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Printf("HTTP Endpoints (http://localhost:%s):", cfg.Port)
	log.Println("  GET    /health                   - Health check")
	log.Println("  GET    /api/v1/rooms             - List live rooms")
	log.Println("  GET    /api/v1/rooms/:room/users - List users in a room")
	log.Println("")
	log.Printf("WebSocket Endpoint (ws://localhost:%s/ws):", cfg.Port)
	log.Println(`  -> {"event":"join","id":1,"data":{"displayName":"Alice","roomName":"general"}}`)
	log.Println(`  -> {"event":"sendMessage","id":2,"data":{"text":"hi"}}`)
	log.Println(`  <- {"event":"message","data":{"senderLabel":"Alice","text":"hi","createdAt":...}}`)
	log.Println(`  <- {"event":"roomData","data":{"room":"general","users":["Alice"]}}`)
	log.Println("")
	log.Printf("Limits: %d byte frames, %.1f msg/s (burst %d), %d queued frames per client",
		cfg.MaxMessageSize, cfg.RateLimitPerSecond, cfg.RateLimitBurst, cfg.SendBufferSize)
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
