package chat

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Validation limits.
const (
	MaxDisplayNameLength = 50
	MaxRoomNameLength    = 100
	MaxMessageLength     = 5000
)

// NormalizeDisplayName trims name and checks it against the display name rules.
func NormalizeDisplayName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: display name is required", ErrInvalidInput)
	}
	if !utf8.ValidString(name) {
		return "", fmt.Errorf("%w: display name contains invalid characters", ErrInvalidInput)
	}
	if utf8.RuneCountInString(name) > MaxDisplayNameLength {
		return "", fmt.Errorf("%w: display name exceeds %d characters", ErrInvalidInput, MaxDisplayNameLength)
	}
	return name, nil
}

// NormalizeRoomName returns the canonical room name: trimmed and lower-cased.
func NormalizeRoomName(room string) (string, error) {
	room = strings.TrimSpace(room)
	if room == "" {
		return "", fmt.Errorf("%w: room name is required", ErrInvalidInput)
	}
	if !utf8.ValidString(room) {
		return "", fmt.Errorf("%w: room name contains invalid characters", ErrInvalidInput)
	}
	if utf8.RuneCountInString(room) > MaxRoomNameLength {
		return "", fmt.Errorf("%w: room name exceeds %d characters", ErrInvalidInput, MaxRoomNameLength)
	}
	return strings.ToLower(room), nil
}

// NameKey is the case-insensitive comparison key for a display name.
func NameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ValidateMessageText checks the body of a chat message. Text is opaque:
// empty and blank messages are delivered as-is, only the size and encoding
// are bounded.
func ValidateMessageText(text string) error {
	if len(text) > MaxMessageLength {
		return fmt.Errorf("%w: message exceeds %d bytes", ErrInvalidInput, MaxMessageLength)
	}
	if !utf8.ValidString(text) {
		return fmt.Errorf("%w: message contains invalid characters", ErrInvalidInput)
	}
	return nil
}
