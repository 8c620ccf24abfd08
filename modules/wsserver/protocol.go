package wsserver

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/example/roomchat/domain/chat"
	"github.com/example/roomchat/modules/broadcast"
)

// ClientFrame is the JSON shape of every client-to-server text message.
type ClientFrame struct {
	Event string          `json:"event"`
	ID    *int64          `json:"id,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// DecodeFrame parses raw into a ClientFrame. When the envelope parses but
// is unusable the returned frame still carries the client's id.
func DecodeFrame(raw []byte) (ClientFrame, error) {
	var frame ClientFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return ClientFrame{}, fmt.Errorf("%w: malformed frame", chat.ErrInvalidInput)
	}
	if frame.Event == "" {
		return frame, fmt.Errorf("%w: event is required", chat.ErrInvalidInput)
	}
	return frame, nil
}

// decodeData unmarshals a frame's data into v.
func decodeData(data json.RawMessage, v any) error {
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return fmt.Errorf("%w: data is required", chat.ErrInvalidInput)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: invalid data: %v", chat.ErrInvalidInput, err)
	}
	return nil
}

// EncodeAck builds the acknowledgment for the client event with the given
// id. A nil cause yields a successful ack.
func EncodeAck(id int64, cause error) ([]byte, error) {
	frame := broadcast.Frame{Event: chat.EventAck, ID: &id}
	if cause != nil {
		frame.Error = ackError(cause)
	}
	return json.Marshal(frame)
}

func ackError(cause error) *broadcast.FrameError {
	code := chat.ErrorCode(cause)
	if code == chat.CodeInternal {
		return &broadcast.FrameError{Code: code, Message: "internal error"}
	}
	return &broadcast.FrameError{Code: code, Message: cause.Error()}
}
