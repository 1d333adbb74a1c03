package models

import (
	"errors"
	"sort"
	"strings"
	"time"
)

// ConversationSeparator joins the two sorted participant ids. User ids are
// uuids, which never contain it.
const ConversationSeparator = "|"

var ErrSelfConversation = errors.New("a conversation needs two distinct participants")

// ConversationID derives the scope key shared by two users. The result does
// not depend on argument order.
func ConversationID(a, b string) (string, error) {
	if a == "" || b == "" {
		return "", errors.New("participant id is empty")
	}
	if a == b {
		return "", ErrSelfConversation
	}
	if strings.Contains(a, ConversationSeparator) || strings.Contains(b, ConversationSeparator) {
		return "", errors.New("participant id contains the conversation separator")
	}
	participants := []string{a, b}
	sort.Strings(participants)
	return strings.Join(participants, ConversationSeparator), nil
}

// Conversation is the materialised row kept next to the message log.
type Conversation struct {
	ID                 string    `json:"id"`
	Participants       [2]string `json:"participants"`
	LastMessageID      int64     `json:"last_message_id"`
	LastMessagePreview string    `json:"last_message_preview"`
	LastSenderID       string    `json:"last_sender_id"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// ConversationSummary is one entry of a user's recent conversations.
type ConversationSummary struct {
	ConversationID string    `json:"conversation_id"`
	PeerID         string    `json:"peer_id"`
	Peer           Profile   `json:"peer"`
	LastMessageID  int64     `json:"last_message_id"`
	LastMessage    string    `json:"last_message"`
	LastSenderID   string    `json:"last_sender_id"`
	LastTimestamp  time.Time `json:"last_timestamp"`
}
