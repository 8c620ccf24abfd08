package session

// JoinRequest is the payload of a join event.
type JoinRequest struct {
	DisplayName string `json:"displayName"`
	RoomName    string `json:"roomName"`
}

// SendMessageRequest is the payload of a sendMessage event.
type SendMessageRequest struct {
	Text string `json:"text"`
}

// Emitter is the transport's group-addressing primitive. Implementations
// queue deliveries and return immediately; they never block on the network.
type Emitter interface {
	// Emit delivers event to each listed connection.
	Emit(connIDs []string, event string, payload any)
	// EmitAllExcept delivers event to every connected socket but except.
	EmitAllExcept(except string, event string, payload any)
}
