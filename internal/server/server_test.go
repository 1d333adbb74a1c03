package server_test

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/Vasu1712/lounge-backend/internal/codec"
	"github.com/Vasu1712/lounge-backend/internal/config"
	"github.com/Vasu1712/lounge-backend/internal/models"
	"github.com/Vasu1712/lounge-backend/internal/server/servertest"
	"github.com/stretchr/testify/require"
)

func enc(s string) string { return codec.Encode(s, servertest.ChatKey) }

func TestPublicMessageScenario(t *testing.T) {
	env := servertest.New(t)
	a := env.CreateUser(t, "u1", "a@example.com", models.RoleUser)
	b := env.CreateUser(t, "u2", "b@example.com", models.RoleUser)

	var sent models.Message
	status := env.DoJSON(t, http.MethodPost, "/api/chat/messages", env.Token(t, a),
		map[string]any{"content": enc("hello")}, &sent)
	require.Equal(t, http.StatusCreated, status)
	require.Equal(t, models.PublicScope, sent.Scope)

	var public []models.Message
	status = env.DoJSON(t, http.MethodGet, "/api/chat/public", env.Token(t, b), nil, &public)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, public, 1)
	require.Equal(t, "u1", public[0].SenderID)
	require.Nil(t, public[0].ReceiverID)
	require.Equal(t, "hello", codec.Decode(public[0].Content, servertest.ChatKey))
}

func TestPrivateMessageScenario(t *testing.T) {
	env := servertest.New(t)
	a := env.CreateUser(t, "u1", "a@example.com", models.RoleUser)
	b := env.CreateUser(t, "u2", "b@example.com", models.RoleUser)
	c := env.CreateUser(t, "u3", "c@example.com", models.RoleUser)

	status := env.DoJSON(t, http.MethodPost, "/api/chat/messages", env.Token(t, a),
		map[string]any{"content": enc("secret"), "receiverId": "u2"}, nil)
	require.Equal(t, http.StatusCreated, status)

	var asA, asB, asC []models.Message
	require.Equal(t, http.StatusOK, env.DoJSON(t, http.MethodGet, "/api/chat/private/u2", env.Token(t, a), nil, &asA))
	require.Equal(t, http.StatusOK, env.DoJSON(t, http.MethodGet, "/api/chat/private/u1", env.Token(t, b), nil, &asB))
	require.Equal(t, http.StatusOK, env.DoJSON(t, http.MethodGet, "/api/chat/private/u2", env.Token(t, c), nil, &asC))

	require.Len(t, asA, 1)
	require.Equal(t, "secret", codec.Decode(asA[0].Content, servertest.ChatKey))
	require.Equal(t, asA, asB)
	require.Empty(t, asC)

	var convs []models.ConversationSummary
	require.Equal(t, http.StatusOK, env.DoJSON(t, http.MethodGet, "/api/chat/conversations", env.Token(t, b), nil, &convs))
	require.Len(t, convs, 1)
	require.Equal(t, "u1", convs[0].PeerID)
}

func TestSendFailures(t *testing.T) {
	env := servertest.New(t)
	a := env.CreateUser(t, "u1", "a@example.com", models.RoleUser)
	token := env.Token(t, a)

	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{"unknown receiver", map[string]any{"content": enc("hi"), "receiverId": "nobody"}, http.StatusNotFound},
		{"empty content", map[string]any{"content": ""}, http.StatusBadRequest},
		{"whitespace content", map[string]any{"content": enc("   ")}, http.StatusBadRequest},
		{"self conversation", map[string]any{"content": enc("hi"), "receiverId": "u1"}, http.StatusBadRequest},
		{"blank receiver", map[string]any{"content": enc("secret for bob"), "receiverId": "   "}, http.StatusBadRequest},
		{"empty receiver", map[string]any{"content": enc("secret for bob"), "receiverId": ""}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := env.DoJSON(t, http.MethodPost, "/api/chat/messages", token, tt.body, nil)
			require.Equal(t, tt.want, status)
		})
	}

	public, err := env.Store.ListPublicMessages(context.Background(), 10)
	require.NoError(t, err)
	require.Empty(t, public)
	private, err := env.Store.ListPrivateMessages(context.Background(), "u1", "nobody", 10)
	require.NoError(t, err)
	require.Empty(t, private)
}

func TestPublicHistoryReturnsRetainedWindow(t *testing.T) {
	env := servertest.New(t)
	a := env.CreateUser(t, "u1", "a@example.com", models.RoleUser)
	token := env.Token(t, a)

	const total = 510
	for i := 0; i < total; i++ {
		status := env.DoJSON(t, http.MethodPost, "/api/chat/messages", token,
			map[string]any{"content": enc(fmt.Sprintf("m%d", i))}, nil)
		require.Equal(t, http.StatusCreated, status)
	}

	var public []models.Message
	require.Equal(t, http.StatusOK, env.DoJSON(t, http.MethodGet, "/api/chat/public", token, nil, &public))
	require.Len(t, public, env.Config.MessageRetention)
	require.Equal(t, "m10", codec.Decode(public[0].Content, servertest.ChatKey))
	require.Equal(t, "m509", codec.Decode(public[len(public)-1].Content, servertest.ChatKey))
	for i := 1; i < len(public); i++ {
		require.Less(t, public[i-1].ID, public[i].ID)
	}
}

func TestChatRequiresToken(t *testing.T) {
	env := servertest.New(t)
	status, _ := env.Do(t, http.MethodGet, "/api/chat/public", "", nil)
	require.Equal(t, http.StatusUnauthorized, status)
}

func TestSearchUsers(t *testing.T) {
	env := servertest.New(t)
	a := env.CreateUser(t, "u1", "alice@example.com", models.RoleUser)
	env.CreateUser(t, "u2", "bob@example.com", models.RoleUser)

	status := env.DoJSON(t, http.MethodGet, "/api/users/search?q=b", env.Token(t, a), nil, nil)
	require.Equal(t, http.StatusBadRequest, status)

	var found []models.Profile
	status = env.DoJSON(t, http.MethodGet, "/api/users/search?q=example", env.Token(t, a), nil, &found)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, found, 1)
	require.Equal(t, "u2", found[0].ID)
}

func TestRegisterAndLogin(t *testing.T) {
	env := servertest.New(t)
	addr := "new@example.com"

	status := env.DoJSON(t, http.MethodPost, "/api/send-verification-code", "", map[string]string{"email": addr}, nil)
	require.Equal(t, http.StatusOK, status)
	code := env.Mail.LastCode(addr)
	require.Len(t, code, 6)

	register := map[string]string{"email": addr, "password": "hunter22", "code": code, "username": "newbie"}

	var msg map[string]string
	status = env.DoJSON(t, http.MethodPost, "/api/register", "", register, &msg)
	require.Equal(t, http.StatusBadRequest, status, "missing captcha token")

	register["turnstileToken"] = "bad"
	require.Equal(t, http.StatusForbidden, env.DoJSON(t, http.MethodPost, "/api/register", "", register, nil))

	env.Captcha.Down = true
	register["turnstileToken"] = "ok"
	require.Equal(t, http.StatusInternalServerError, env.DoJSON(t, http.MethodPost, "/api/register", "", register, nil))
	env.Captcha.Down = false

	require.Equal(t, http.StatusCreated, env.DoJSON(t, http.MethodPost, "/api/register", "", register, nil))
	require.Equal(t, http.StatusConflict, env.DoJSON(t, http.MethodPost, "/api/register", "", register, nil))
	require.Equal(t, http.StatusConflict,
		env.DoJSON(t, http.MethodPost, "/api/send-verification-code", "", map[string]string{"email": addr}, nil))

	var login struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	status = env.DoJSON(t, http.MethodPost, "/api/login", "", map[string]string{"email": addr, "password": "hunter22"}, &login)
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, login.Token)
	require.Equal(t, addr, login.User.Email)

	claims, err := env.Sessions.Verify(login.Token)
	require.NoError(t, err)
	require.Equal(t, login.User.ID, claims.UserID)
	require.Equal(t, models.RoleUser, claims.Role)

	status = env.DoJSON(t, http.MethodPost, "/api/login", "", map[string]string{"email": addr, "password": "wrong-pass"}, nil)
	require.Equal(t, http.StatusUnauthorized, status)
}

func TestRegisterRejectsWrongCode(t *testing.T) {
	env := servertest.New(t)
	addr := "new@example.com"
	require.Equal(t, http.StatusOK,
		env.DoJSON(t, http.MethodPost, "/api/send-verification-code", "", map[string]string{"email": addr}, nil))

	register := map[string]string{"email": addr, "password": "hunter22", "code": "000000", "turnstileToken": "ok"}
	if env.Mail.LastCode(addr) == "000000" {
		register["code"] = "111111"
	}
	require.Equal(t, http.StatusBadRequest, env.DoJSON(t, http.MethodPost, "/api/register", "", register, nil))
}

func TestLoginRateLimit(t *testing.T) {
	env := servertest.New(t)
	body := map[string]string{"email": "who@example.com", "password": "whatever"}
	for i := 0; i < 5; i++ {
		require.Equal(t, http.StatusUnauthorized, env.DoJSON(t, http.MethodPost, "/api/login", "", body, nil))
	}
	require.Equal(t, http.StatusTooManyRequests, env.DoJSON(t, http.MethodPost, "/api/login", "", body, nil))
}

func TestPasswordReset(t *testing.T) {
	env := servertest.New(t)
	u := env.CreateUser(t, "u1", "a@example.com", models.RoleUser)

	var unknown, known map[string]string
	require.Equal(t, http.StatusOK,
		env.DoJSON(t, http.MethodPost, "/api/forgot-password", "", map[string]string{"email": "ghost@example.com"}, &unknown))
	require.Equal(t, http.StatusOK,
		env.DoJSON(t, http.MethodPost, "/api/forgot-password", "", map[string]string{"email": u.Email}, &known))
	require.Equal(t, unknown, known, "replies must not reveal which accounts exist")

	require.Eventually(t, func() bool { return len(env.Mail.Sent()) == 1 }, time.Second, 10*time.Millisecond)
	mail := env.Mail.Sent()[0]
	require.Equal(t, u.Email, mail.To)
	require.Contains(t, mail.HTML, "https://lounge.example/reset-password.html?token=")

	token, err := env.Resets.Issue(u.ID, u.Email, u.Role)
	require.NoError(t, err)

	status := env.DoJSON(t, http.MethodPost, "/api/reset-password", "",
		map[string]string{"token": env.Token(t, u), "newPassword": "brandnew"}, nil)
	require.Equal(t, http.StatusBadRequest, status, "a session token is not a reset token")

	status = env.DoJSON(t, http.MethodPost, "/api/reset-password", "",
		map[string]string{"token": token, "newPassword": "brandnew"}, nil)
	require.Equal(t, http.StatusOK, status)

	status = env.DoJSON(t, http.MethodPost, "/api/login", "", map[string]string{"email": u.Email, "password": "brandnew"}, nil)
	require.Equal(t, http.StatusOK, status)
}

func TestTicketSurvivesMailFailure(t *testing.T) {
	env := servertest.New(t)
	u := env.CreateUser(t, "u1", "a@example.com", models.RoleUser)
	env.Mail.Err = context.DeadlineExceeded

	var ticket models.Ticket
	status := env.DoJSON(t, http.MethodPost, "/api/tickets", env.Token(t, u),
		map[string]string{"subject": "Help", "message": "It broke"}, &ticket)
	require.Equal(t, http.StatusCreated, status)
	require.Equal(t, models.TicketStatusOpen, ticket.Status)
	require.Equal(t, u.Email, ticket.UserEmail)

	status = env.DoJSON(t, http.MethodPost, "/api/tickets", env.Token(t, u), map[string]string{"subject": "Help"}, nil)
	require.Equal(t, http.StatusBadRequest, status)
}

func TestAdminConsole(t *testing.T) {
	env := servertest.New(t)
	root := env.CreateUser(t, "admin", "root@example.com", models.RoleAdmin)
	user := env.CreateUser(t, "u1", "a@example.com", models.RoleUser)
	peer := env.CreateUser(t, "u2", "b@example.com", models.RoleUser)
	adminToken := env.Token(t, root)

	require.Equal(t, http.StatusForbidden,
		env.DoJSON(t, http.MethodGet, "/api/admin/users", env.Token(t, user), nil, nil))
	require.Equal(t, http.StatusForbidden,
		env.DoJSON(t, http.MethodPost, "/api/admin/login", "", map[string]string{"email": user.Email, "password": servertest.Password}, nil))
	require.Equal(t, http.StatusOK,
		env.DoJSON(t, http.MethodPost, "/api/admin/login", "", map[string]string{"email": root.Email, "password": servertest.Password}, nil))

	var users []models.User
	require.Equal(t, http.StatusOK, env.DoJSON(t, http.MethodGet, "/api/admin/users", adminToken, nil, &users))
	require.Len(t, users, 3)

	var ban struct {
		Banned bool `json:"isBanned"`
	}
	require.Equal(t, http.StatusOK, env.DoJSON(t, http.MethodPost, "/api/admin/users/u1/toggle-ban", adminToken, nil, &ban))
	require.True(t, ban.Banned)
	require.Equal(t, http.StatusForbidden,
		env.DoJSON(t, http.MethodPost, "/api/login", "", map[string]string{"email": user.Email, "password": servertest.Password}, nil))
	require.Equal(t, http.StatusForbidden,
		env.DoJSON(t, http.MethodPost, "/api/chat/messages", env.Token(t, user), map[string]string{"content": enc("hi")}, nil))

	require.Equal(t, http.StatusBadRequest, env.DoJSON(t, http.MethodPost, "/api/admin/users/admin/toggle-ban", adminToken, nil, nil))
	require.Equal(t, http.StatusBadRequest, env.DoJSON(t, http.MethodDelete, "/api/admin/users/admin", adminToken, nil, nil))
	require.Equal(t, http.StatusNotFound, env.DoJSON(t, http.MethodDelete, "/api/admin/users/ghost", adminToken, nil, nil))

	require.Equal(t, http.StatusCreated, env.DoJSON(t, http.MethodPost, "/api/chat/messages", env.Token(t, peer),
		map[string]string{"content": enc("bye"), "receiverId": "u1"}, nil))
	require.Equal(t, http.StatusOK, env.DoJSON(t, http.MethodDelete, "/api/admin/users/u1", adminToken, nil, nil))

	var convs []models.ConversationSummary
	require.Equal(t, http.StatusOK, env.DoJSON(t, http.MethodGet, "/api/chat/conversations", env.Token(t, peer), nil, &convs))
	require.Empty(t, convs, "conversations go with the deleted user")

	var tickets []models.Ticket
	require.Equal(t, http.StatusOK, env.DoJSON(t, http.MethodGet, "/api/admin/tickets", adminToken, nil, &tickets))
	require.Empty(t, tickets)
}

func TestConfigEndpoint(t *testing.T) {
	env := servertest.New(t, func(c *config.Config) { c.RealtimeKey = "pub-key" })
	var body map[string]string
	require.Equal(t, http.StatusOK, env.DoJSON(t, http.MethodGet, "/api/config", "", nil, &body))
	require.Equal(t, "/ws/chat", body["realtimeEndpoint"])
	require.Equal(t, "pub-key", body["realtimeKey"])
	require.Equal(t, servertest.ChatKey, body["chatEncryptionKey"])

	plain := servertest.New(t, func(c *config.Config) { c.ChatEncryptionKey = "" })
	_, raw := plain.Do(t, http.MethodGet, "/api/config", "", nil)
	require.False(t, strings.Contains(string(raw), "chatEncryptionKey"))
}

func TestHealthAndMetrics(t *testing.T) {
	env := servertest.New(t)
	status, _ := env.Do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, status)

	status, raw := env.Do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, string(raw), "lounge_connected_sockets")
}

func TestPreflight(t *testing.T) {
	env := servertest.New(t)
	status, _ := env.Do(t, http.MethodOptions, "/api/chat/messages", "", nil)
	require.Equal(t, http.StatusNoContent, status)
}
