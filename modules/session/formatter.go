package session

import (
	"time"

	"github.com/example/roomchat/domain/chat"
)

// Format builds the envelope for a single delivery.
func Format(senderLabel, text string, now time.Time) chat.Envelope {
	return chat.Envelope{
		SenderLabel: senderLabel,
		Text:        text,
		CreatedAt:   now,
	}
}

// System builds a server notice.
func System(text string, now time.Time) chat.Envelope {
	return Format(chat.AdminLabel, text, now)
}
