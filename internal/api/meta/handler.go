package meta

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/Vasu1712/lounge-backend/internal/api/respond"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// MetaHandler serves unauthenticated client bootstrap and health routes.
type MetaHandler struct {
	RealtimeEndpoint  string
	RealtimeKey       string
	ChatEncryptionKey string
	DB                Pinger
	Log               *slog.Logger
}

type clientConfig struct {
	RealtimeEndpoint  string `json:"realtimeEndpoint"`
	RealtimeKey       string `json:"realtimeKey"`
	ChatEncryptionKey string `json:"chatEncryptionKey,omitempty"`
}

// Config handles GET /api/config. The chat key is public by construction;
// see package codec.
func (h *MetaHandler) Config(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, clientConfig{
		RealtimeEndpoint:  h.RealtimeEndpoint,
		RealtimeKey:       h.RealtimeKey,
		ChatEncryptionKey: h.ChatEncryptionKey,
	})
}

func (h *MetaHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.DB.Ping(ctx); err != nil {
		h.Log.Warn("health check failed", "err", err)
		respond.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
