package chat

// Event names carried on the wire.
const (
	// Client-originated.
	EventJoin        = "join"
	EventSendMessage = "sendMessage"

	// Server-originated.
	EventMessage  = "message"
	EventRoomData = "roomData"
	EventAck      = "ack"
)
