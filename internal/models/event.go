package models

// Realtime frame types sent over the chat socket.
const (
	EventReady   = "ready"
	EventMessage = "message"
)

// Event is a frame on the realtime channel.
type Event struct {
	Type    string   `json:"type"`
	Message *Message `json:"message,omitempty"`
}
