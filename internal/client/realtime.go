package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/Vasu1712/lounge-backend/internal/models"
	"github.com/gorilla/websocket"
)

// Subscription is an open realtime socket that has passed the ready
// handshake.
type Subscription struct {
	Messages <-chan models.Message

	conn *websocket.Conn
	mu   sync.Mutex
	err  error
}

// Err reports why Messages was closed.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Subscription) Close() error {
	return s.conn.Close()
}

// Subscribe dials the realtime endpoint and returns once the server has
// sent its ready frame, so every message persisted afterwards is delivered.
func (c *Client) Subscribe(ctx context.Context, endpoint string) (*Subscription, error) {
	wsURL, err := c.realtimeURL(endpoint)
	if err != nil {
		return nil, err
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial realtime: %w", err)
	}

	var ev models.Event
	if err := conn.ReadJSON(&ev); err != nil {
		conn.Close()
		return nil, fmt.Errorf("read ready frame: %w", err)
	}
	if ev.Type != models.EventReady {
		conn.Close()
		return nil, fmt.Errorf("expected ready frame, got %q", ev.Type)
	}

	out := make(chan models.Message, 64)
	sub := &Subscription{Messages: out, conn: conn}
	go sub.read(ctx, out)
	return sub, nil
}

func (s *Subscription) read(ctx context.Context, out chan<- models.Message) {
	defer close(out)
	stop := context.AfterFunc(ctx, func() { s.conn.Close() })
	defer stop()
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			if ctx.Err() != nil {
				s.err = ctx.Err()
			} else if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				s.err = err
			}
			s.mu.Unlock()
			return
		}
		var ev models.Event
		if err := json.Unmarshal(data, &ev); err != nil || ev.Type != models.EventMessage || ev.Message == nil {
			continue
		}
		select {
		case out <- *ev.Message:
		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) realtimeURL(endpoint string) (string, error) {
	if c.token == "" {
		return "", errors.New("realtime subscription needs a session token")
	}
	target := endpoint
	if !strings.Contains(endpoint, "://") {
		target = c.baseURL + endpoint
	}
	u, err := url.Parse(target)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	q := u.Query()
	q.Set("token", c.token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
