package wsserver

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/example/roomchat/domain/chat"
	"github.com/example/roomchat/modules/activity"
	"github.com/example/roomchat/modules/broadcast"
	"github.com/example/roomchat/modules/presence"
	"github.com/example/roomchat/modules/session"
)

const (
	healthTimeout     = 2 * time.Second
	drainPollInterval = 10 * time.Millisecond
)

// Session is the connection state machine driven by the socket handler.
type Session interface {
	Connect(connID string)
	Join(connID string, req session.JoinRequest) error
	SendMessage(connID string, req session.SendMessageRequest) error
	Disconnect(connID string)
}

// Handlers contains HTTP and WebSocket handlers.
type Handlers struct {
	session   Session
	hub       *broadcast.Hub
	presence  presence.PresencePort
	activity  activity.ActivityPort
	opts      Options
	logger    types.Logger
	startedAt time.Time

	active atomic.Int64 // sockets whose handler has not returned
}

// NewHandlers creates a new handlers instance. presencePort and
// activityPort may be nil, in which case the HTTP endpoints that need
// them report less or answer 503.
func NewHandlers(
	sess Session,
	hub *broadcast.Hub,
	presencePort presence.PresencePort,
	activityPort activity.ActivityPort,
	opts Options,
	logger types.Logger,
) *Handlers {
	return &Handlers{
		session:   sess,
		hub:       hub,
		presence:  presencePort,
		activity:  activityPort,
		opts:      opts,
		logger:    logger,
		startedAt: time.Now(),
	}
}

// HandleWebSocket runs one connection from upgrade to close. The calling
// goroutine is the connection's reader; a second goroutine owns writes.
func (h *Handlers) HandleWebSocket(c *websocket.Conn) {
	h.active.Add(1)
	defer h.active.Add(-1)

	connID := uuid.New().String()
	client := broadcast.NewClient(connID, c, h.opts.SendBufferSize)
	h.hub.Register(client)

	pumpDone := make(chan struct{})
	go func() {
		defer close(pumpDone)
		client.WritePump(h.opts.WriteWait, h.opts.PingPeriod)
	}()

	defer func() {
		h.session.Disconnect(connID)
		h.hub.Unregister(connID)
		// The connection is recycled once this handler returns.
		<-pumpDone
	}()

	c.SetReadLimit(h.opts.MaxMessageSize)
	_ = c.SetReadDeadline(time.Now().Add(h.opts.PongWait))
	c.SetPongHandler(func(string) error {
		return c.SetReadDeadline(time.Now().Add(h.opts.PongWait))
	})

	h.logger.Info("WebSocket connected", "connID", connID, "remote", c.RemoteAddr().String())
	h.session.Connect(connID)

	limiter := rate.NewLimiter(rate.Limit(h.opts.RateLimitPerSecond), h.opts.RateLimitBurst)
	for {
		messageType, raw, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure,
				websocket.CloseNoStatusReceived,
			) {
				h.logger.Warn("WebSocket read error", "connID", connID, "error", err)
			}
			break
		}
		if messageType != websocket.TextMessage {
			h.logger.Debug("Ignoring non-text frame", "connID", connID, "type", messageType)
			continue
		}
		if ack := h.handleFrame(connID, raw, limiter); ack != nil {
			h.hub.Send(connID, ack)
		}
	}

	h.logger.Info("WebSocket disconnected", "connID", connID)
}

// ActiveConnections returns the number of sockets still being served.
func (h *Handlers) ActiveConnections() int64 {
	return h.active.Load()
}

// Drain closes every registered socket and waits until each handler has
// run its disconnect path, or ctx is done. Sockets accepted while draining
// are closed on the next poll. It returns the number of sockets closed.
func (h *Handlers) Drain(ctx context.Context) (int, error) {
	closed := h.hub.CloseAll()
	ticker := time.NewTicker(drainPollInterval)
	defer ticker.Stop()
	for h.active.Load() > 0 {
		select {
		case <-ctx.Done():
			return closed, ctx.Err()
		case <-ticker.C:
			closed += h.hub.CloseAll()
		}
	}
	return closed, nil
}

// handleFrame processes one client frame and returns its encoded
// acknowledgment, or nil when the frame carried no id.
func (h *Handlers) handleFrame(connID string, raw []byte, limiter *rate.Limiter) []byte {
	frame, err := DecodeFrame(raw)
	if err == nil {
		err = h.dispatch(connID, frame, limiter)
	}

	if frame.ID == nil {
		if err != nil {
			h.logger.Debug("Client event failed", "connID", connID, "event", frame.Event, "error", err)
		}
		return nil
	}

	ack, encErr := EncodeAck(*frame.ID, err)
	if encErr != nil {
		h.logger.Error("Failed to encode ack", "connID", connID, "error", encErr)
		return nil
	}
	return ack
}

func (h *Handlers) dispatch(connID string, frame ClientFrame, limiter *rate.Limiter) error {
	switch frame.Event {
	case chat.EventJoin:
		var req session.JoinRequest
		if err := decodeData(frame.Data, &req); err != nil {
			return err
		}
		return h.session.Join(connID, req)

	case chat.EventSendMessage:
		if limiter != nil && !limiter.Allow() {
			return chat.ErrRateLimited
		}
		var req session.SendMessageRequest
		if err := decodeData(frame.Data, &req); err != nil {
			return err
		}
		return h.session.SendMessage(connID, req)

	default:
		return fmt.Errorf("%w: unknown event %q", chat.ErrInvalidInput, frame.Event)
	}
}

// REST Handlers

// HealthCheck handles health check requests (GET /health).
func (h *Handlers) HealthCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout)
	defer cancel()

	status := "healthy"
	body := fiber.Map{
		"service":           "roomchat",
		"uptime":            time.Since(h.startedAt).Round(time.Second).String(),
		"connected_clients": h.hub.ClientCount(),
	}

	if h.presence != nil {
		stats, err := h.presence.RoomStats(ctx)
		if err != nil {
			h.logger.Warn("Health check could not reach presence", "error", err)
			status = "degraded"
		} else {
			body["rooms"] = stats.Stats.Rooms
			body["connections"] = stats.Stats.Connections
		}
	}

	if h.activity != nil {
		stats, err := h.activity.Stats(ctx)
		if err != nil {
			h.logger.Warn("Health check could not reach activity", "error", err)
			status = "degraded"
		} else {
			body["activity"] = stats.Snapshot
		}
	}

	body["status"] = status
	return c.JSON(body)
}

// ListRooms handles room listing requests (GET /api/v1/rooms).
func (h *Handlers) ListRooms(c *fiber.Ctx) error {
	if h.presence == nil {
		return fiber.ErrServiceUnavailable
	}
	stats, err := h.presence.RoomStats(c.UserContext())
	if err != nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "presence unavailable")
	}
	return c.JSON(fiber.Map{
		"rooms": stats.Rooms,
		"total": len(stats.Rooms),
	})
}

// GetRoomUsers handles member listing requests (GET /api/v1/rooms/:room/users).
func (h *Handlers) GetRoomUsers(c *fiber.Ctx) error {
	if h.presence == nil {
		return fiber.ErrServiceUnavailable
	}
	room, err := chat.NormalizeRoomName(c.Params("room"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	members, err := h.presence.RoomMembers(c.UserContext(), room)
	if err != nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "presence unavailable")
	}
	return c.JSON(fiber.Map{
		"room":  members.Room,
		"users": members.Users,
		"total": len(members.Users),
	})
}
