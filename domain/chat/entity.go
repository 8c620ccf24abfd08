package chat

import (
	"encoding/json"
	"time"
)

// AdminLabel is the reserved sender label for server-originated notices.
const AdminLabel = "Admin"

// Presence binds a live connection to a display name inside a room.
type Presence struct {
	ConnID      string    `json:"conn_id"`
	DisplayName string    `json:"display_name"`
	Room        string    `json:"room"`
	JoinedAt    time.Time `json:"joined_at"`
}

// Envelope is a single timestamped message delivered to one or more connections.
type Envelope struct {
	SenderLabel string
	Text        string
	CreatedAt   time.Time
}

type envelopeJSON struct {
	SenderLabel string `json:"senderLabel"`
	Text        string `json:"text"`
	CreatedAt   int64  `json:"createdAt"`
}

// MarshalJSON encodes CreatedAt as Unix milliseconds.
func (e Envelope) MarshalJSON() ([]byte, error) {
	return json.Marshal(envelopeJSON{
		SenderLabel: e.SenderLabel,
		Text:        e.Text,
		CreatedAt:   e.CreatedAt.UnixMilli(),
	})
}

// UnmarshalJSON decodes the wire form produced by MarshalJSON.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	var raw envelopeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	e.SenderLabel = raw.SenderLabel
	e.Text = raw.Text
	e.CreatedAt = time.UnixMilli(raw.CreatedAt)
	return nil
}

// IsSystem reports whether the envelope was issued by the server.
func (e Envelope) IsSystem() bool {
	return e.SenderLabel == AdminLabel
}

// RoomData is a full membership snapshot of a room.
type RoomData struct {
	Room  string   `json:"room"`
	Users []string `json:"users"`
}
