package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"
)

// UserJoinedEvent is emitted after a connection joins a room.
type UserJoinedEvent struct {
	ConnID      string    `json:"conn_id"`
	DisplayName string    `json:"display_name"`
	Room        string    `json:"room"`
	Members     int       `json:"members"`
	Timestamp   time.Time `json:"timestamp"`
}

// UserJoinedV1 is the typed event definition for room joins.
// Subject: events.session.v1.user-joined
var UserJoinedV1 = helper.EventDefinition[UserJoinedEvent](
	"session", "UserJoined", "v1",
)

// UserLeftEvent is emitted after a joined connection disconnects.
type UserLeftEvent struct {
	ConnID      string    `json:"conn_id"`
	DisplayName string    `json:"display_name"`
	Room        string    `json:"room"`
	Members     int       `json:"members"`
	Timestamp   time.Time `json:"timestamp"`
}

// UserLeftV1 is the typed event definition for room departures.
// Subject: events.session.v1.user-left
var UserLeftV1 = helper.EventDefinition[UserLeftEvent](
	"session", "UserLeft", "v1",
)

// MessageSentEvent is emitted after a chat message is fanned out to a room.
// It carries no message text.
type MessageSentEvent struct {
	ConnID     string    `json:"conn_id"`
	Room       string    `json:"room"`
	Recipients int       `json:"recipients"`
	Timestamp  time.Time `json:"timestamp"`
}

// MessageSentV1 is the typed event definition for chat messages.
// Subject: events.session.v1.message-sent
var MessageSentV1 = helper.EventDefinition[MessageSentEvent](
	"session", "MessageSent", "v1",
)

// JoinRejectedEvent is emitted when a join attempt fails validation.
type JoinRejectedEvent struct {
	ConnID    string    `json:"conn_id"`
	Room      string    `json:"room"`
	Code      string    `json:"code"`
	Timestamp time.Time `json:"timestamp"`
}

// JoinRejectedV1 is the typed event definition for rejected joins.
// Subject: events.session.v1.join-rejected
var JoinRejectedV1 = helper.EventDefinition[JoinRejectedEvent](
	"session", "JoinRejected", "v1",
)
