package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"slices"
	"time"

	"github.com/Vasu1712/lounge-backend/internal/apperr"
	"github.com/Vasu1712/lounge-backend/internal/metrics"
	"github.com/Vasu1712/lounge-backend/internal/models"
)

const messageColumns = `id, scope, sender_id, sender_email, sender_username,
	receiver_id, receiver_email, receiver_username, content, created_at`

func scanMessage(row interface{ Scan(...any) error }) (models.Message, error) {
	var m models.Message
	err := row.Scan(&m.ID, &m.Scope, &m.SenderID, &m.SenderEmail, &m.SenderUsername,
		&m.ReceiverID, &m.ReceiverEmail, &m.ReceiverUsername, &m.Content, &m.CreatedAt)
	return m, err
}

// AppendPublicMessage stores a message in the public room and trims the room
// to the retention cap in the same transaction.
func (s *SQLStore) AppendPublicMessage(ctx context.Context, in models.NewMessage) (*models.Message, error) {
	msg := &models.Message{
		Scope:          models.PublicScope,
		SenderID:       in.SenderID,
		SenderEmail:    in.SenderEmail,
		SenderUsername: in.SenderUsername,
		Content:        in.Content,
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.lockScope(ctx, tx, msg.Scope); err != nil {
			return err
		}
		if err := s.insertMessage(ctx, tx, msg); err != nil {
			return err
		}
		return s.trimTx(ctx, tx, msg.Scope, s.retention)
	})
	if err != nil {
		return nil, err
	}
	metrics.MessagesAppended.WithLabelValues("public").Inc()
	return msg, nil
}

// AppendPrivateMessage resolves the receiver, stores the message with the
// receiver's profile denormalised into the row, refreshes the conversation
// row and trims the conversation. Nothing is written if any step fails.
func (s *SQLStore) AppendPrivateMessage(ctx context.Context, in models.NewMessage) (*models.Message, error) {
	scope, err := models.ConversationID(in.SenderID, in.ReceiverID)
	if err != nil {
		return nil, apperr.InvalidArgument("%v", err)
	}
	receiverID := in.ReceiverID
	msg := &models.Message{
		Scope:          scope,
		SenderID:       in.SenderID,
		SenderEmail:    in.SenderEmail,
		SenderUsername: in.SenderUsername,
		ReceiverID:     &receiverID,
		Content:        in.Content,
	}
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.lockScope(ctx, tx, scope); err != nil {
			return err
		}

		var email string
		var username *string
		err := tx.QueryRowContext(ctx, s.rebind("SELECT email, username FROM users WHERE id = ?"), receiverID).
			Scan(&email, &username)
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound("receiver %s not found", receiverID)
		}
		if err != nil {
			return apperr.Unavailable(err)
		}
		msg.ReceiverEmail = &email
		msg.ReceiverUsername = username

		if err := s.insertMessage(ctx, tx, msg); err != nil {
			return err
		}
		if err := s.upsertConversation(ctx, tx, msg); err != nil {
			return err
		}
		return s.trimTx(ctx, tx, scope, s.retention)
	})
	if err != nil {
		return nil, err
	}
	metrics.MessagesAppended.WithLabelValues("private").Inc()
	return msg, nil
}

func (s *SQLStore) insertMessage(ctx context.Context, tx *sql.Tx, msg *models.Message) error {
	msg.CreatedAt = time.Now().UTC()
	query := s.rebind(`
		INSERT INTO messages (scope, sender_id, sender_email, sender_username,
			receiver_id, receiver_email, receiver_username, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)
	err := tx.QueryRowContext(ctx, query,
		msg.Scope, msg.SenderID, msg.SenderEmail, msg.SenderUsername,
		msg.ReceiverID, msg.ReceiverEmail, msg.ReceiverUsername, msg.Content, msg.CreatedAt,
	).Scan(&msg.ID)
	if err != nil {
		return apperr.Unavailable(err)
	}
	return nil
}

func (s *SQLStore) upsertConversation(ctx context.Context, tx *sql.Tx, msg *models.Message) error {
	a, b := msg.SenderID, *msg.ReceiverID
	if b < a {
		a, b = b, a
	}
	query := s.rebind(`
		INSERT INTO conversations (id, participant_a, participant_b, last_message_id,
			last_message_preview, last_sender_id, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			last_message_id = excluded.last_message_id,
			last_message_preview = excluded.last_message_preview,
			last_sender_id = excluded.last_sender_id,
			updated_at = excluded.updated_at
	`)
	_, err := tx.ExecContext(ctx, query, msg.Scope, a, b, msg.ID, msg.Content, msg.SenderID, msg.CreatedAt)
	if err != nil {
		return apperr.Unavailable(err)
	}
	return nil
}

// trimTx deletes every row of scope older than the limit newest ones.
func (s *SQLStore) trimTx(ctx context.Context, tx *sql.Tx, scope string, limit int) error {
	query := s.rebind(`
		DELETE FROM messages
		WHERE scope = ? AND id <= (
			SELECT id FROM messages WHERE scope = ? ORDER BY id DESC LIMIT 1 OFFSET ?
		)
	`)
	res, err := tx.ExecContext(ctx, query, scope, scope, limit)
	if err != nil {
		return apperr.Unavailable(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Unavailable(err)
	}
	if n > 0 {
		metrics.MessagesTrimmed.Add(float64(n))
		s.log.Debug("trimmed messages", "scope", scope, "deleted", n, "limit", limit)
	}
	return nil
}

// TrimRetention applies the cap to one scope outside of an append. The
// appends already do this; it exists for maintenance after lowering the
// configured retention.
func (s *SQLStore) TrimRetention(ctx context.Context, scope string, limit int) (int64, error) {
	if limit < 1 {
		return 0, apperr.InvalidArgument("retention limit must be positive")
	}
	var deleted int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.lockScope(ctx, tx, scope); err != nil {
			return err
		}
		var before int64
		if err := tx.QueryRowContext(ctx, s.rebind("SELECT COUNT(*) FROM messages WHERE scope = ?"), scope).Scan(&before); err != nil {
			return apperr.Unavailable(err)
		}
		if before <= int64(limit) {
			return nil
		}
		deleted = before - int64(limit)
		return s.trimTx(ctx, tx, scope, limit)
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

func (s *SQLStore) listScope(ctx context.Context, scope string, limit int) ([]models.Message, error) {
	query := s.rebind("SELECT " + messageColumns + " FROM messages WHERE scope = ? ORDER BY id DESC LIMIT ?")
	rows, err := s.db.QueryContext(ctx, query, scope, limit)
	if err != nil {
		return nil, apperr.Unavailable(err)
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, apperr.Unavailable(err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Unavailable(err)
	}
	// Newest first from the index, oldest first for display.
	slices.Reverse(messages)
	return messages, nil
}

// ListPublicMessages returns up to limit most recent public messages in
// chronological order.
func (s *SQLStore) ListPublicMessages(ctx context.Context, limit int) ([]models.Message, error) {
	return s.listScope(ctx, models.PublicScope, limit)
}

// ListPrivateMessages returns up to limit most recent messages exchanged
// between selfID and peerID in chronological order.
func (s *SQLStore) ListPrivateMessages(ctx context.Context, selfID, peerID string, limit int) ([]models.Message, error) {
	scope, err := models.ConversationID(selfID, peerID)
	if err != nil {
		return nil, apperr.InvalidArgument("%v", err)
	}
	return s.listScope(ctx, scope, limit)
}

// ListRecentConversations returns one summary per peer, most recent first.
func (s *SQLStore) ListRecentConversations(ctx context.Context, selfID string) ([]models.ConversationSummary, error) {
	query := s.rebind(`
		SELECT c.id, c.last_message_id, c.last_message_preview, c.last_sender_id, c.updated_at,
			u.id, u.email, u.username
		FROM conversations c
		JOIN users u ON u.id = CASE WHEN c.participant_a = ? THEN c.participant_b ELSE c.participant_a END
		WHERE c.participant_a = ? OR c.participant_b = ?
		ORDER BY c.last_message_id DESC
	`)
	rows, err := s.db.QueryContext(ctx, query, selfID, selfID, selfID)
	if err != nil {
		return nil, apperr.Unavailable(err)
	}
	defer rows.Close()

	summaries := []models.ConversationSummary{}
	for rows.Next() {
		var c models.ConversationSummary
		err := rows.Scan(&c.ConversationID, &c.LastMessageID, &c.LastMessage, &c.LastSenderID, &c.LastTimestamp,
			&c.Peer.ID, &c.Peer.Email, &c.Peer.Username)
		if err != nil {
			return nil, apperr.Unavailable(err)
		}
		c.PeerID = c.Peer.ID
		summaries = append(summaries, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Unavailable(err)
	}
	return summaries, nil
}
