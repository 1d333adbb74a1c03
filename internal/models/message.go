package models

import "time"

// PublicScope is the scope key of the public room.
const PublicScope = "public"

// Message is one row of the chat log. Content is opaque to the server: it is
// whatever the client submitted, normally codec-encoded.
type Message struct {
	ID               int64     `json:"id"`
	Scope            string    `json:"scope"`
	SenderID         string    `json:"sender_id"`
	SenderEmail      string    `json:"sender_email"`
	SenderUsername   *string   `json:"sender_username"`
	ReceiverID       *string   `json:"receiver_id"`
	ReceiverEmail    *string   `json:"receiver_email"`
	ReceiverUsername *string   `json:"receiver_username"`
	Content          string    `json:"content"`
	CreatedAt        time.Time `json:"created_at"`
}

// IsPublic reports whether the message belongs to the public room.
func (m *Message) IsPublic() bool {
	return m.ReceiverID == nil
}

// PeerOf returns the other participant of a private message as seen by
// selfID, or "" for public messages.
func (m *Message) PeerOf(selfID string) string {
	if m.ReceiverID == nil {
		return ""
	}
	if m.SenderID == selfID {
		return *m.ReceiverID
	}
	return m.SenderID
}

// Involves reports whether userID may read the message.
func (m *Message) Involves(userID string) bool {
	if m.ReceiverID == nil {
		return true
	}
	return m.SenderID == userID || *m.ReceiverID == userID
}

// NewMessage is the write-side input for the message store.
type NewMessage struct {
	SenderID       string
	SenderEmail    string
	SenderUsername *string
	ReceiverID     string
	Content        string
}
