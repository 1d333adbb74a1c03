// Package client is a Go client for the lounge HTTP and realtime API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Vasu1712/lounge-backend/internal/apperr"
	"github.com/Vasu1712/lounge-backend/internal/models"
)

// APIError is a non-2xx answer. It unwraps to the apperr kind of its status
// so callers can use errors.Is.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusBadRequest:
		return apperr.ErrInvalidArgument
	case http.StatusUnauthorized:
		return apperr.ErrUnauthenticated
	case http.StatusForbidden:
		return apperr.ErrForbidden
	case http.StatusNotFound:
		return apperr.ErrNotFound
	case http.StatusConflict:
		return apperr.ErrConflict
	case http.StatusTooManyRequests:
		return apperr.ErrRateLimited
	default:
		return apperr.ErrUnavailable
	}
}

type ServerConfig struct {
	RealtimeEndpoint  string `json:"realtimeEndpoint"`
	RealtimeKey       string `json:"realtimeKey"`
	ChatEncryptionKey string `json:"chatEncryptionKey"`
}

type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

func (c *Client) SetToken(token string) { c.token = token }

func (c *Client) Token() string { return c.token }

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var e struct {
			Message string `json:"message"`
		}
		json.NewDecoder(resp.Body).Decode(&e)
		return &APIError{Status: resp.StatusCode, Message: e.Message}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Login stores the session token for later calls.
func (c *Client) Login(ctx context.Context, email, password string) (*models.User, error) {
	var out struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	err := c.do(ctx, http.MethodPost, "/api/login", map[string]string{"email": email, "password": password}, &out)
	if err != nil {
		return nil, err
	}
	c.token = out.Token
	return &out.User, nil
}

func (c *Client) Config(ctx context.Context) (*ServerConfig, error) {
	var cfg ServerConfig
	if err := c.do(ctx, http.MethodGet, "/api/config", nil, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SendMessage posts already-encoded content. An empty receiverID targets
// the public room.
func (c *Client) SendMessage(ctx context.Context, receiverID, content string) (*models.Message, error) {
	body := map[string]any{"content": content}
	if receiverID != "" {
		body["receiverId"] = receiverID
	}
	var msg models.Message
	if err := c.do(ctx, http.MethodPost, "/api/chat/messages", body, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *Client) PublicMessages(ctx context.Context) ([]models.Message, error) {
	var msgs []models.Message
	err := c.do(ctx, http.MethodGet, "/api/chat/public", nil, &msgs)
	return msgs, err
}

func (c *Client) PrivateMessages(ctx context.Context, peerID string) ([]models.Message, error) {
	var msgs []models.Message
	err := c.do(ctx, http.MethodGet, "/api/chat/private/"+url.PathEscape(peerID), nil, &msgs)
	return msgs, err
}

func (c *Client) Conversations(ctx context.Context) ([]models.ConversationSummary, error) {
	var convs []models.ConversationSummary
	err := c.do(ctx, http.MethodGet, "/api/chat/conversations", nil, &convs)
	return convs, err
}

func (c *Client) SearchUsers(ctx context.Context, query string) ([]models.Profile, error) {
	var users []models.Profile
	err := c.do(ctx, http.MethodGet, "/api/users/search?q="+url.QueryEscape(query), nil, &users)
	return users, err
}
