// Package chat implements the public room and private conversations on top
// of the message store and the realtime broker.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Vasu1712/lounge-backend/internal/apperr"
	"github.com/Vasu1712/lounge-backend/internal/codec"
	"github.com/Vasu1712/lounge-backend/internal/metrics"
	"github.com/Vasu1712/lounge-backend/internal/models"
	"github.com/Vasu1712/lounge-backend/internal/realtime"
	"github.com/Vasu1712/lounge-backend/internal/storage"
)

const (
	MinSearchLength = 2
	searchLimit     = 20
	publishTimeout  = 5 * time.Second
)

type Service struct {
	users    storage.UserStore
	messages storage.MessageStore
	broker   realtime.Broker
	codec    codec.Codec
	opts     Options
	log      *slog.Logger
}

type Options struct {
	HistoryLimit     int
	MaxContentLength int
}

func NewService(users storage.UserStore, messages storage.MessageStore, broker realtime.Broker,
	c codec.Codec, opts Options, log *slog.Logger) *Service {
	return &Service{
		users:    users,
		messages: messages,
		broker:   broker,
		codec:    c,
		opts:     opts,
		log:      log,
	}
}

// Send persists a message from senderID. An empty receiverID targets the
// public room. The persisted row is published for realtime delivery; a
// failed publish is logged and does not fail the send.
func (s *Service) Send(ctx context.Context, senderID string, receiverID *string, content string) (*models.Message, error) {
	if err := s.validateContent(content); err != nil {
		return nil, err
	}
	receiver := ""
	if receiverID != nil {
		if receiver = strings.TrimSpace(*receiverID); receiver == "" {
			return nil, apperr.InvalidArgument("receiverId is empty")
		}
	}
	sender, err := s.users.GetUserByID(ctx, senderID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.Unauthenticated("account no longer exists")
	}
	if err != nil {
		return nil, err
	}
	if sender.Banned {
		return nil, apperr.Forbidden("account is banned")
	}

	in := models.NewMessage{
		SenderID:       sender.ID,
		SenderEmail:    sender.Email,
		SenderUsername: sender.Username,
		ReceiverID:     receiver,
		Content:        content,
	}
	var msg *models.Message
	if in.ReceiverID == "" {
		msg, err = s.messages.AppendPublicMessage(ctx, in)
	} else {
		if in.ReceiverID == sender.ID {
			return nil, apperr.InvalidArgument("cannot send a private message to yourself")
		}
		msg, err = s.messages.AppendPrivateMessage(ctx, in)
	}
	if err != nil {
		return nil, err
	}

	s.publish(ctx, *msg)
	return msg, nil
}

// validateContent checks the decoded body. The stored content stays exactly
// what the client sent.
func (s *Service) validateContent(content string) error {
	plain := s.codec.Decode(content)
	if strings.TrimSpace(plain) == "" {
		return apperr.InvalidArgument("message content is required")
	}
	if n := utf8.RuneCountInString(plain); n > s.opts.MaxContentLength {
		return apperr.InvalidArgument("message is too long (%d > %d characters)", n, s.opts.MaxContentLength)
	}
	return nil
}

func (s *Service) publish(ctx context.Context, msg models.Message) {
	// The row is committed; a client disconnecting now must not stop fan-out.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.broker.Publish(ctx, msg); err != nil {
		metrics.RealtimePublishErrors.Inc()
		s.log.Error("realtime publish failed", "id", msg.ID, "scope", msg.Scope, "err", err)
	}
}

func (s *Service) PublicHistory(ctx context.Context) ([]models.Message, error) {
	return s.messages.ListPublicMessages(ctx, s.opts.HistoryLimit)
}

// PrivateHistory only ever reads the conversation between selfID and peerID,
// so a third party asking for someone else's peer sees their own (empty)
// conversation with that peer.
func (s *Service) PrivateHistory(ctx context.Context, selfID, peerID string) ([]models.Message, error) {
	peerID = strings.TrimSpace(peerID)
	if peerID == "" {
		return nil, apperr.InvalidArgument("peer id is required")
	}
	if peerID == selfID {
		return nil, apperr.InvalidArgument("cannot open a conversation with yourself")
	}
	return s.messages.ListPrivateMessages(ctx, selfID, peerID, s.opts.HistoryLimit)
}

func (s *Service) Conversations(ctx context.Context, selfID string) ([]models.ConversationSummary, error) {
	return s.messages.ListRecentConversations(ctx, selfID)
}

func (s *Service) SearchUsers(ctx context.Context, selfID, query string) ([]models.Profile, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < MinSearchLength {
		return nil, apperr.InvalidArgument("search query must be at least %d characters", MinSearchLength)
	}
	return s.users.SearchUsers(ctx, selfID, query, searchLimit)
}
