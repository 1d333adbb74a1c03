package chats

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterChatRoutes registers the chat routes on an authenticated router.
func RegisterChatRoutes(r *mux.Router, handler *ChatHandler) {
	r.HandleFunc("/api/chat/messages", handler.SendMessage).Methods(http.MethodPost)
	r.HandleFunc("/api/chat/public", handler.PublicMessages).Methods(http.MethodGet)
	r.HandleFunc("/api/chat/private/{peerId}", handler.PrivateMessages).Methods(http.MethodGet)
	r.HandleFunc("/api/chat/conversations", handler.Conversations).Methods(http.MethodGet)
	r.HandleFunc("/api/users/search", handler.SearchUsers).Methods(http.MethodGet)
}
