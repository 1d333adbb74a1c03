// Package chatview keeps the client-side state of a chat session: the list
// of conversations, the active one and its transcript. History and realtime
// events are merged here, and optimistic sends are reconciled with the
// copies the server echoes back.
package chatview

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Vasu1712/lounge-backend/internal/codec"
	"github.com/Vasu1712/lounge-backend/internal/models"
	"github.com/google/uuid"
)

// PublicKey is the entry key of the public room. Private entries are keyed
// by peer id.
const PublicKey = "public"

// DefaultMatchWindow bounds how far apart an optimistic bubble and its
// server copy may be in time and still be treated as the same message.
const DefaultMatchWindow = 2 * time.Minute

var (
	ErrEmptyMessage = errors.New("message is empty")
	ErrUnknownSend  = errors.New("no such pending message")
)

type Status int

const (
	StatusSent Status = iota
	StatusPending
	StatusFailed
)

type Entry struct {
	Key           string
	Peer          models.Profile
	Preview       string
	LastMessageID int64
	LastTimestamp time.Time
}

// Bubble is one rendered message. ID is zero until the server has
// confirmed it.
type Bubble struct {
	LocalID   string
	ID        int64
	SenderID  string
	Text      string
	CreatedAt time.Time
	Status    Status
}

// Outgoing is what BeginSend asks the caller to submit.
type Outgoing struct {
	LocalID    string
	ReceiverID string
	Content    string
}

type Session struct {
	mu         sync.Mutex
	self       models.Profile
	codec      codec.Codec
	entries    map[string]*Entry
	active     string
	transcript []*Bubble
	seen       map[int64]bool
	window     time.Duration
	now        func() time.Time
}

func NewSession(self models.Profile, c codec.Codec) *Session {
	s := &Session{
		self:    self,
		codec:   c,
		entries: map[string]*Entry{PublicKey: {Key: PublicKey, Preview: codec.EmptyPreview}},
		active:  PublicKey,
		seen:    make(map[int64]bool),
		window:  DefaultMatchWindow,
		now:     time.Now,
	}
	return s
}

// ScopeKey is the entry a message belongs to for the local user, or "" if
// the message is a private one between two other users.
func (s *Session) ScopeKey(msg *models.Message) string {
	if msg.IsPublic() {
		return PublicKey
	}
	if !msg.Involves(s.self.ID) {
		return ""
	}
	return msg.PeerOf(s.self.ID)
}

// LoadConversations materialises an entry per summary. Newer state already
// held locally wins.
func (s *Session) LoadConversations(summaries []models.ConversationSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range summaries {
		e := s.entry(c.PeerID, c.Peer)
		if c.LastMessageID >= e.LastMessageID {
			e.Preview = s.codec.Decode(c.LastMessage)
			e.LastMessageID = c.LastMessageID
			e.LastTimestamp = c.LastTimestamp
		}
	}
}

// SwitchChat makes key the active entry and clears the transcript until
// LoadHistory fills it.
func (s *Session) SwitchChat(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if key == "" {
		key = PublicKey
	}
	if key == s.active {
		return
	}
	s.entry(key, models.Profile{ID: key})
	s.active = key
	s.transcript = nil
	s.seen = make(map[int64]bool)
}

// SelectSearchResult opens a conversation with a user found by search,
// creating its entry when this is the first contact.
func (s *Session) SelectSearchResult(p models.Profile) {
	s.mu.Lock()
	e := s.entry(p.ID, p)
	e.Peer = p
	s.mu.Unlock()
	s.SwitchChat(p.ID)
}

// LoadHistory merges a history snapshot for key. Snapshots for an entry that
// is no longer active are dropped. Messages already shown are kept once and
// unconfirmed local bubbles survive the merge.
func (s *Session) LoadHistory(key string, msgs []models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if key != s.active {
		return
	}
	for i := range msgs {
		s.apply(&msgs[i])
	}
}

// HandleRealtime applies a realtime event and reports whether it changed
// the visible transcript.
func (s *Session) HandleRealtime(msg models.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply(&msg)
}

func (s *Session) apply(msg *models.Message) bool {
	key := s.ScopeKey(msg)
	if key == "" {
		return false
	}
	text := s.codec.Decode(msg.Content)

	e := s.entry(key, s.peerProfile(msg))
	if msg.ID >= e.LastMessageID {
		e.Preview = text
		e.LastMessageID = msg.ID
		e.LastTimestamp = msg.CreatedAt
	}

	if key != s.active || s.seen[msg.ID] {
		return false
	}
	s.seen[msg.ID] = true
	if b := s.matchPending(msg.SenderID, text, msg.CreatedAt); b != nil {
		b.ID = msg.ID
		b.CreatedAt = msg.CreatedAt
		b.Status = StatusSent
		return true
	}
	s.transcript = append(s.transcript, &Bubble{
		ID:        msg.ID,
		SenderID:  msg.SenderID,
		Text:      text,
		CreatedAt: msg.CreatedAt,
		Status:    StatusSent,
	})
	return true
}

// matchPending finds the oldest unconfirmed local bubble that the server
// copy most likely stands for.
func (s *Session) matchPending(senderID, text string, at time.Time) *Bubble {
	if senderID != s.self.ID {
		return nil
	}
	for _, b := range s.transcript {
		if b.ID != 0 || b.Status != StatusPending || b.Text != text {
			continue
		}
		if d := at.Sub(b.CreatedAt); d < -s.window || d > s.window {
			continue
		}
		return b
	}
	return nil
}

// BeginSend renders text immediately as a pending bubble in the active
// conversation and returns the encoded request to submit.
func (s *Session) BeginSend(text string) (Outgoing, error) {
	if strings.TrimSpace(text) == "" {
		return Outgoing{}, ErrEmptyMessage
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b := &Bubble{
		LocalID:   uuid.NewString(),
		SenderID:  s.self.ID,
		Text:      text,
		CreatedAt: s.now(),
		Status:    StatusPending,
	}
	s.transcript = append(s.transcript, b)
	return s.outgoing(b), nil
}

func (s *Session) outgoing(b *Bubble) Outgoing {
	out := Outgoing{LocalID: b.LocalID, Content: s.codec.Encode(b.Text)}
	if s.active != PublicKey {
		out.ReceiverID = s.active
	}
	return out
}

// ConfirmSend records the server's copy of a pending bubble. When the
// realtime echo already rendered the message separately, the local bubble
// is dropped instead. The entry preview is updated even when the bubble is
// gone because the user switched chats meanwhile.
func (s *Session) ConfirmSend(localID string, msg models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text := s.codec.Decode(msg.Content)
	if idx := s.indexOf(localID); idx >= 0 {
		b := s.transcript[idx]
		switch {
		case b.ID == 0 && s.seen[msg.ID]:
			s.transcript = append(s.transcript[:idx], s.transcript[idx+1:]...)
		case b.ID == 0:
			b.ID = msg.ID
			b.CreatedAt = msg.CreatedAt
			b.Status = StatusSent
			s.seen[msg.ID] = true
		}
		text = b.Text
	}
	if key := s.ScopeKey(&msg); key != "" {
		e := s.entry(key, s.peerProfile(&msg))
		if msg.ID >= e.LastMessageID {
			e.Preview = text
			e.LastMessageID = msg.ID
			e.LastTimestamp = msg.CreatedAt
		}
	}
}

// FailSend marks the bubble failed and returns its text so the input can be
// restored. The bubble stays visible until retried.
func (s *Session) FailSend(localID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOf(localID)
	if idx < 0 || s.transcript[idx].ID != 0 {
		return "", ErrUnknownSend
	}
	s.transcript[idx].Status = StatusFailed
	return s.transcript[idx].Text, nil
}

// RetrySend puts a failed bubble back to pending and returns the request to
// submit again.
func (s *Session) RetrySend(localID string) (Outgoing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOf(localID)
	if idx < 0 || s.transcript[idx].Status != StatusFailed {
		return Outgoing{}, ErrUnknownSend
	}
	b := s.transcript[idx]
	b.Status = StatusPending
	b.CreatedAt = s.now()
	return s.outgoing(b), nil
}

func (s *Session) indexOf(localID string) int {
	for i, b := range s.transcript {
		if b.LocalID == localID {
			return i
		}
	}
	return -1
}

func (s *Session) entry(key string, peer models.Profile) *Entry {
	e, ok := s.entries[key]
	if !ok {
		e = &Entry{Key: key, Peer: peer, Preview: codec.EmptyPreview}
		s.entries[key] = e
	}
	return e
}

func (s *Session) peerProfile(msg *models.Message) models.Profile {
	if msg.IsPublic() {
		return models.Profile{}
	}
	if msg.SenderID == s.self.ID {
		p := models.Profile{ID: *msg.ReceiverID, Username: msg.ReceiverUsername}
		if msg.ReceiverEmail != nil {
			p.Email = *msg.ReceiverEmail
		}
		return p
	}
	return models.Profile{ID: msg.SenderID, Email: msg.SenderEmail, Username: msg.SenderUsername}
}

func (s *Session) Active() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Entries returns the public room first, then conversations by recency.
func (s *Session) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Key == PublicKey || out[j].Key == PublicKey {
			return out[i].Key == PublicKey
		}
		if out[i].LastMessageID != out[j].LastMessageID {
			return out[i].LastMessageID > out[j].LastMessageID
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// Transcript returns the active conversation in timestamp order. Bubbles
// with equal timestamps keep server order.
func (s *Session) Transcript() []Bubble {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Bubble, len(s.transcript))
	for i, b := range s.transcript {
		out[i] = *b
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		if out[i].ID != 0 && out[j].ID != 0 {
			return out[i].ID < out[j].ID
		}
		return false
	})
	return out
}
