package chat

import "errors"

// Errors returned to clients through event acknowledgments.
var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrNameTaken     = errors.New("display name is already taken in this room")
	ErrNotJoined     = errors.New("connection has not joined a room")
	ErrAlreadyJoined = errors.New("connection has already joined a room")
	ErrRateLimited   = errors.New("rate limit exceeded")
)

// Wire codes for acknowledgment errors.
const (
	CodeInvalidInput  = "invalid_input"
	CodeNameTaken     = "name_taken"
	CodeNotJoined     = "not_joined"
	CodeAlreadyJoined = "already_joined"
	CodeRateLimited   = "rate_limited"
	CodeInternal      = "internal"
)

// ErrorCode maps err onto a stable wire code.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return CodeInvalidInput
	case errors.Is(err, ErrNameTaken):
		return CodeNameTaken
	case errors.Is(err, ErrNotJoined):
		return CodeNotJoined
	case errors.Is(err, ErrAlreadyJoined):
		return CodeAlreadyJoined
	case errors.Is(err, ErrRateLimited):
		return CodeRateLimited
	default:
		return CodeInternal
	}
}
