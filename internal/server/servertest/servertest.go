// Package servertest starts the full HTTP stack on an httptest server,
// backed by an in-memory SQLite database and in-process brokers.
package servertest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/Vasu1712/lounge-backend/internal/auth"
	"github.com/Vasu1712/lounge-backend/internal/captcha"
	"github.com/Vasu1712/lounge-backend/internal/chat"
	"github.com/Vasu1712/lounge-backend/internal/codec"
	"github.com/Vasu1712/lounge-backend/internal/config"
	"github.com/Vasu1712/lounge-backend/internal/email"
	"github.com/Vasu1712/lounge-backend/internal/logging"
	"github.com/Vasu1712/lounge-backend/internal/middleware"
	"github.com/Vasu1712/lounge-backend/internal/models"
	"github.com/Vasu1712/lounge-backend/internal/realtime"
	"github.com/Vasu1712/lounge-backend/internal/server"
	"github.com/Vasu1712/lounge-backend/internal/storage/memory"
	"github.com/Vasu1712/lounge-backend/internal/storage/sqlstore"
	"github.com/Vasu1712/lounge-backend/internal/verify"
	"github.com/Vasu1712/lounge-backend/internal/ws"
	"github.com/stretchr/testify/require"
)

const (
	ChatKey  = "test-chat-key"
	Password = "password1"
)

// Mailbox records every mail instead of sending it.
type Mailbox struct {
	mu   sync.Mutex
	sent []email.Message
	Err  error
}

func (m *Mailbox) Send(_ context.Context, msg email.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return m.Err
}

func (m *Mailbox) Sent() []email.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]email.Message(nil), m.sent...)
}

var sixDigits = regexp.MustCompile(`\b\d{6}\b`)

// LastCode returns the code of the most recent mail to addr.
func (m *Mailbox) LastCode(addr string) string {
	sent := m.Sent()
	for i := len(sent) - 1; i >= 0; i-- {
		if sent[i].To == addr {
			return sixDigits.FindString(sent[i].HTML)
		}
	}
	return ""
}

// Captcha accepts "ok", rejects everything else and fails when Down.
type Captcha struct {
	Down bool
}

func (c *Captcha) Verify(_ context.Context, token, _ string) error {
	if c.Down {
		return captcha.ErrUnavailable
	}
	if token != "ok" {
		return captcha.ErrRejected
	}
	return nil
}

type Env struct {
	Server   *httptest.Server
	Config   *config.Config
	Store    *sqlstore.SQLStore
	Broker   *realtime.MemoryBroker
	Sessions *auth.Issuer
	Resets   *auth.Issuer
	Mail     *Mailbox
	Captcha  *Captcha
}

func TestConfig() *config.Config {
	return &config.Config{
		DatabaseDriver:      sqlstore.DriverSQLite,
		DatabaseURL:         ":memory:",
		JWTSecret:           "session-secret",
		PasswordResetSecret: "reset-secret",
		TokenTTL:            time.Hour,
		ResetTokenTTL:       15 * time.Minute,
		BaseURL:             "https://lounge.example",
		SupportEmail:        "support@lounge.example",
		MailTimeout:         time.Second,
		ChatEncryptionKey:   ChatKey,
		MessageRetention:    500,
		HistoryLimit:        500,
		MaxContentLength:    2000,
		CodeTTL:             5 * time.Minute,
		LoginAttempts:       5,
		LoginWindow:         15 * time.Minute,
		AllowedOrigin:       "*",
	}
}

// New starts the stack. The optional tweak edits the config first.
func New(t testing.TB, tweak ...func(*config.Config)) *Env {
	t.Helper()
	cfg := TestConfig()
	for _, f := range tweak {
		f(cfg)
	}
	log := logging.Discard()

	store, err := sqlstore.New(cfg.DatabaseDriver, cfg.DatabaseURL,
		sqlstore.Options{Retention: cfg.MessageRetention, Logger: log})
	require.NoError(t, err)

	broker := realtime.NewMemoryBroker(64)
	hub := ws.NewHub(broker, log)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	env := &Env{
		Config:   cfg,
		Store:    store,
		Broker:   broker,
		Sessions: auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL, auth.SessionIssuer),
		Resets:   auth.NewIssuer(cfg.PasswordResetSecret, cfg.ResetTokenTTL, auth.ResetIssuer),
		Mail:     &Mailbox{},
		Captcha:  &Captcha{},
	}
	limiter := middleware.NewRateLimiter(cfg.LoginAttempts, cfg.LoginWindow, cfg.TrustProxy)
	handler := server.NewRouter(server.Deps{
		Config: cfg,
		Store:  store,
		Chat: chat.NewService(store, store, broker, codec.New(cfg.ChatEncryptionKey),
			chat.Options{HistoryLimit: cfg.HistoryLimit, MaxContentLength: cfg.MaxContentLength}, log),
		Hub:      hub,
		Codes:    verify.NewCodes(memory.NewCodeStore(), cfg.CodeTTL),
		Captcha:  env.Captcha,
		Mail:     email.NewDispatcher(env.Mail, cfg.MailTimeout, log),
		Sessions: env.Sessions,
		Resets:   env.Resets,
		Limiter:  limiter,
		Log:      log,
	})
	env.Server = httptest.NewServer(handler)

	t.Cleanup(func() {
		env.Server.Close()
		cancel()
		limiter.Stop()
		store.Close()
	})
	return env
}

// CreateUser inserts a user with Password as password.
func (e *Env) CreateUser(t testing.TB, id, addr, role string) *models.User {
	t.Helper()
	hash, err := auth.HashPassword(Password)
	require.NoError(t, err)
	u := &models.User{ID: id, Email: addr, Password: hash, Role: role}
	require.NoError(t, e.Store.CreateUser(context.Background(), u))
	return u
}

func (e *Env) Token(t testing.TB, u *models.User) string {
	t.Helper()
	token, err := e.Sessions.Issue(u.ID, u.Email, u.Role)
	require.NoError(t, err)
	return token
}

// Do sends a JSON request and returns the status and the raw body.
func (e *Env) Do(t testing.TB, method, path, token string, body any) (int, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.Server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.Server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out bytes.Buffer
	_, err = out.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out.Bytes()
}

// DoJSON is Do followed by decoding the body into out.
func (e *Env) DoJSON(t testing.TB, method, path, token string, body, out any) int {
	t.Helper()
	status, raw := e.Do(t, method, path, token, body)
	if out != nil && len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, out), string(raw))
	}
	return status
}
