package chats

import (
	"log/slog"
	"net/http"

	"github.com/Vasu1712/lounge-backend/internal/api/respond"
	"github.com/Vasu1712/lounge-backend/internal/chat"
	"github.com/Vasu1712/lounge-backend/internal/middleware"
	"github.com/gorilla/mux"
)

// ChatHandler serves the chat endpoints. Every route runs behind
// middleware.Authenticate.
type ChatHandler struct {
	Chat *chat.Service
	Log  *slog.Logger
}

type sendRequest struct {
	Content    string  `json:"content"`
	ReceiverID *string `json:"receiverId"`
}

// SendMessage handles POST /api/chat/messages. Content arrives encoded by
// the client and is stored as is.
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFrom(r.Context())
	var req sendRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	msg, err := h.Chat.Send(r.Context(), claims.UserID, req.ReceiverID, req.Content)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusCreated, msg)
}

// PublicMessages handles GET /api/chat/public.
func (h *ChatHandler) PublicMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.Chat.PublicHistory(r.Context())
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, msgs)
}

// PrivateMessages handles GET /api/chat/private/{peerId}. The caller only
// ever reads their own conversation with the peer.
func (h *ChatHandler) PrivateMessages(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFrom(r.Context())
	msgs, err := h.Chat.PrivateHistory(r.Context(), claims.UserID, mux.Vars(r)["peerId"])
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, msgs)
}

func (h *ChatHandler) Conversations(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFrom(r.Context())
	convs, err := h.Chat.Conversations(r.Context(), claims.UserID)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, convs)
}

// SearchUsers handles GET /api/users/search?q=.
func (h *ChatHandler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFrom(r.Context())
	users, err := h.Chat.SearchUsers(r.Context(), claims.UserID, r.URL.Query().Get("q"))
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, users)
}
