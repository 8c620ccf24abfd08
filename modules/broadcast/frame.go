package broadcast

import "encoding/json"

// Frame is the JSON shape of every server-to-client text message.
type Frame struct {
	Event string      `json:"event"`
	ID    *int64      `json:"id,omitempty"`
	Data  any         `json:"data,omitempty"`
	Error *FrameError `json:"error,omitempty"`
}

// FrameError carries a failed acknowledgment.
type FrameError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// EncodeFrame marshals an event frame.
func EncodeFrame(event string, data any) ([]byte, error) {
	return json.Marshal(Frame{Event: event, Data: data})
}
