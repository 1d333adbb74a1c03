package ws

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Vasu1712/lounge-backend/internal/auth"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxInboundSize = 512
)

// Handler upgrades authenticated requests and attaches them to the hub.
type Handler struct {
	Hub           *Hub
	Tokens        *auth.Issuer
	AllowedOrigin string
	Log           *slog.Logger
}

func (h *Handler) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return h.AllowedOrigin == "*" || origin == "" || origin == h.AllowedOrigin
		},
	}
}

// ServeWS handles GET /ws/chat. The token comes from the "token" query
// parameter, since browsers cannot set headers on a websocket handshake, or
// from a bearer Authorization header.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	claims, err := h.Tokens.Verify(token)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	upgrader := h.upgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Log.Debug("websocket upgrade failed", "err", err)
		return
	}
	client := &Client{
		ID:     uuid.NewString(),
		UserID: claims.UserID,
		Send:   make(chan []byte, sendBuffer),
		Conn:   conn,
	}
	if !h.Hub.register(client) {
		conn.Close()
		return
	}
	h.Log.Debug("realtime client connected", "client", client.ID, "user", client.UserID)

	go h.writePump(client)
	go h.readPump(client)
}

// readPump only services control frames; clients send messages over HTTP.
func (h *Handler) readPump(c *Client) {
	defer func() {
		h.Hub.unregister(c)
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxInboundSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.Log.Debug("realtime client read error", "client", c.ID, "err", err)
			}
			return
		}
	}
}

func (h *Handler) writePump(c *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case frame, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
