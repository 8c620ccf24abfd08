package session

import (
	"fmt"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"

	"github.com/example/roomchat/domain/chat"
	"github.com/example/roomchat/events"
	"github.com/example/roomchat/modules/presence"
)

// Coordinator drives the per-connection state machine: it mutates the
// presence registry on connect, join, send and disconnect and tells the
// transport whom to deliver to.
//
// Room-scoped deliveries are queued while the room is locked so that every
// member observes notices and snapshots in the same order. Queuing never
// touches the network.
type Coordinator struct {
	registry *presence.Registry
	emitter  Emitter
	eventBus mono.EventBus
	logger   types.Logger
	now      func() time.Time
}

// NewCoordinator creates a coordinator over registry that delivers through emitter.
func NewCoordinator(registry *presence.Registry, emitter Emitter, logger types.Logger) *Coordinator {
	if registry == nil {
		panic("session: registry is nil")
	}
	if emitter == nil {
		panic("session: emitter is nil")
	}
	return &Coordinator{
		registry: registry,
		emitter:  emitter,
		logger:   logger,
		now:      time.Now,
	}
}

// SetEventBus enables best-effort domain event publishing.
func (c *Coordinator) SetEventBus(bus mono.EventBus) {
	c.eventBus = bus
}

// Connect greets a freshly registered connection and tells everyone else
// that somebody arrived. No room is known yet, so the notice is global.
func (c *Coordinator) Connect(connID string) {
	now := c.now()
	c.emitter.Emit([]string{connID}, chat.EventMessage, System("Welcome!", now))
	c.emitter.EmitAllExcept(connID, chat.EventMessage, System("A new user has joined", now))
	c.logger.Debug("Connection opened", "connID", connID)
}

// Join binds connID to a display name in a room. On failure nothing is
// broadcast and the registry is unchanged; the error is meant for the
// caller's acknowledgment.
func (c *Coordinator) Join(connID string, req JoinRequest) error {
	change, err := c.registry.Join(connID, req.DisplayName, req.RoomName, func(ch presence.Change) {
		now := c.now()
		name, room := ch.Presence.DisplayName, ch.Presence.Room

		c.emitter.Emit([]string{connID}, chat.EventMessage,
			System(fmt.Sprintf("Welcome to %s, %s!", room, name), now))
		if others := connIDs(ch.Members, connID); len(others) > 0 {
			c.emitter.Emit(others, chat.EventMessage, System(name+" has joined", now))
		}
		c.emitter.Emit(connIDs(ch.Members, ""), chat.EventRoomData, ch.RoomData())
	})
	if err != nil {
		c.logger.Info("Join rejected", "connID", connID, "room", req.RoomName, "code", chat.ErrorCode(err))
		c.publishJoinRejected(connID, req.RoomName, err)
		return err
	}

	c.logger.Info("User joined room",
		"connID", connID,
		"name", change.Presence.DisplayName,
		"room", change.Presence.Room,
		"members", len(change.Members))
	c.publishUserJoined(change)
	return nil
}

// SendMessage fans text out to the sender's room, sender included. A send
// from a connection that has not joined is dropped without error.
func (c *Coordinator) SendMessage(connID string, req SendMessageRequest) error {
	if err := chat.ValidateMessageText(req.Text); err != nil {
		return err
	}

	change, ok := c.registry.WithMembership(connID, func(ch presence.Change) {
		envelope := Format(ch.Presence.DisplayName, req.Text, c.now())
		c.emitter.Emit(connIDs(ch.Members, ""), chat.EventMessage, envelope)
	})
	if !ok {
		c.logger.Debug("Dropping message from connection without a room", "connID", connID)
		return nil
	}

	c.publishMessageSent(connID, change)
	return nil
}

// Disconnect releases connID's presence entry, if any, and tells the
// remaining members of its room.
func (c *Coordinator) Disconnect(connID string) {
	change, ok := c.registry.Leave(connID, func(ch presence.Change) {
		recipients := connIDs(ch.Members, "")
		if len(recipients) == 0 {
			return
		}
		c.emitter.Emit(recipients, chat.EventMessage, System(ch.Presence.DisplayName+" has left", c.now()))
		c.emitter.Emit(recipients, chat.EventRoomData, ch.RoomData())
	})
	if !ok {
		c.logger.Debug("Connection closed before joining", "connID", connID)
		return
	}

	c.logger.Info("User left room",
		"connID", connID,
		"name", change.Presence.DisplayName,
		"room", change.Presence.Room,
		"members", len(change.Members))
	c.publishUserLeft(change)
}

func (c *Coordinator) publishUserJoined(change presence.Change) {
	if c.eventBus == nil {
		return
	}
	event := events.UserJoinedEvent{
		ConnID:      change.Presence.ConnID,
		DisplayName: change.Presence.DisplayName,
		Room:        change.Presence.Room,
		Members:     len(change.Members),
		Timestamp:   change.Presence.JoinedAt,
	}
	if err := events.UserJoinedV1.Publish(c.eventBus, event, nil); err != nil {
		c.logger.Warn("Failed to publish UserJoined event", "connID", event.ConnID, "error", err)
	}
}

func (c *Coordinator) publishUserLeft(change presence.Change) {
	if c.eventBus == nil {
		return
	}
	event := events.UserLeftEvent{
		ConnID:      change.Presence.ConnID,
		DisplayName: change.Presence.DisplayName,
		Room:        change.Presence.Room,
		Members:     len(change.Members),
		Timestamp:   c.now(),
	}
	if err := events.UserLeftV1.Publish(c.eventBus, event, nil); err != nil {
		c.logger.Warn("Failed to publish UserLeft event", "connID", event.ConnID, "error", err)
	}
}

func (c *Coordinator) publishMessageSent(connID string, change presence.Change) {
	if c.eventBus == nil {
		return
	}
	event := events.MessageSentEvent{
		ConnID:     connID,
		Room:       change.Presence.Room,
		Recipients: len(change.Members),
		Timestamp:  c.now(),
	}
	if err := events.MessageSentV1.Publish(c.eventBus, event, nil); err != nil {
		c.logger.Warn("Failed to publish MessageSent event", "connID", connID, "error", err)
	}
}

func (c *Coordinator) publishJoinRejected(connID, room string, cause error) {
	if c.eventBus == nil {
		return
	}
	event := events.JoinRejectedEvent{
		ConnID:    connID,
		Room:      room,
		Code:      chat.ErrorCode(cause),
		Timestamp: c.now(),
	}
	if err := events.JoinRejectedV1.Publish(c.eventBus, event, nil); err != nil {
		c.logger.Warn("Failed to publish JoinRejected event", "connID", connID, "error", err)
	}
}

// connIDs lists the members' connection ids in join order, leaving out except.
func connIDs(members []chat.Presence, except string) []string {
	ids := make([]string, 0, len(members))
	for _, m := range members {
		if m.ConnID != except {
			ids = append(ids, m.ConnID)
		}
	}
	return ids
}
