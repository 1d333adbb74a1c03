package client

import (
	"context"

	"github.com/Vasu1712/lounge-backend/internal/chatview"
	"github.com/Vasu1712/lounge-backend/internal/models"
)

// Sync subscribes first and only then loads conversations and the active
// history into session, so nothing persisted in between is missed. The
// caller feeds the returned subscription to Follow.
func (c *Client) Sync(ctx context.Context, session *chatview.Session) (*Subscription, error) {
	cfg, err := c.Config(ctx)
	if err != nil {
		return nil, err
	}
	sub, err := c.Subscribe(ctx, cfg.RealtimeEndpoint)
	if err != nil {
		return nil, err
	}
	convs, err := c.Conversations(ctx)
	if err != nil {
		sub.Close()
		return nil, err
	}
	session.LoadConversations(convs)
	if err := c.LoadActive(ctx, session); err != nil {
		sub.Close()
		return nil, err
	}
	return sub, nil
}

// LoadActive fetches the history of the session's active conversation.
func (c *Client) LoadActive(ctx context.Context, session *chatview.Session) error {
	key := session.Active()
	var (
		msgs []models.Message
		err  error
	)
	if key == chatview.PublicKey {
		msgs, err = c.PublicMessages(ctx)
	} else {
		msgs, err = c.PrivateMessages(ctx, key)
	}
	if err != nil {
		return err
	}
	session.LoadHistory(key, msgs)
	return nil
}

// Follow applies realtime messages to session until the subscription ends.
// onChange, when set, runs after each event that changed the transcript.
func Follow(sub *Subscription, session *chatview.Session, onChange func()) error {
	for msg := range sub.Messages {
		if session.HandleRealtime(msg) && onChange != nil {
			onChange()
		}
	}
	return sub.Err()
}

// Send renders text optimistically, submits it and reconciles the result.
// On failure the bubble is marked failed and the text is returned for the
// input field.
func (c *Client) Send(ctx context.Context, session *chatview.Session, text string) (string, error) {
	out, err := session.BeginSend(text)
	if err != nil {
		return text, err
	}
	msg, err := c.SendMessage(ctx, out.ReceiverID, out.Content)
	if err != nil {
		restored, _ := session.FailSend(out.LocalID)
		return restored, err
	}
	session.ConfirmSend(out.LocalID, *msg)
	return "", nil
}
