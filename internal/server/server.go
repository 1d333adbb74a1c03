// Package server assembles the HTTP routes of the service.
package server

import (
	"log/slog"
	"net/http"

	"github.com/Vasu1712/lounge-backend/internal/api/accounts"
	"github.com/Vasu1712/lounge-backend/internal/api/admin"
	"github.com/Vasu1712/lounge-backend/internal/api/chats"
	"github.com/Vasu1712/lounge-backend/internal/api/meta"
	"github.com/Vasu1712/lounge-backend/internal/api/tickets"
	"github.com/Vasu1712/lounge-backend/internal/auth"
	"github.com/Vasu1712/lounge-backend/internal/captcha"
	"github.com/Vasu1712/lounge-backend/internal/chat"
	"github.com/Vasu1712/lounge-backend/internal/config"
	"github.com/Vasu1712/lounge-backend/internal/email"
	"github.com/Vasu1712/lounge-backend/internal/metrics"
	"github.com/Vasu1712/lounge-backend/internal/middleware"
	"github.com/Vasu1712/lounge-backend/internal/storage"
	"github.com/Vasu1712/lounge-backend/internal/verify"
	"github.com/Vasu1712/lounge-backend/internal/ws"
	"github.com/gorilla/mux"
)

// DefaultRealtimeEndpoint is advertised when REALTIME_ENDPOINT is unset.
const DefaultRealtimeEndpoint = "/ws/chat"

type Store interface {
	storage.UserStore
	storage.TicketStore
	meta.Pinger
}

type Deps struct {
	Config   *config.Config
	Store    Store
	Chat     *chat.Service
	Hub      *ws.Hub
	Codes    *verify.Codes
	Captcha  captcha.Verifier
	Mail     *email.Dispatcher
	Sessions *auth.Issuer
	Resets   *auth.Issuer
	Limiter  *middleware.RateLimiter
	Log      *slog.Logger
}

// NewRouter wires every handler. CORS and request logging wrap the router
// so preflight requests never need a matching route.
func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	r := mux.NewRouter()

	endpoint := cfg.RealtimeEndpoint
	if endpoint == "" {
		endpoint = DefaultRealtimeEndpoint
	}
	meta.RegisterMetaRoutes(r, &meta.MetaHandler{
		RealtimeEndpoint:  endpoint,
		RealtimeKey:       cfg.RealtimeKey,
		ChatEncryptionKey: cfg.ChatEncryptionKey,
		DB:                d.Store,
		Log:               d.Log,
	})
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	accounts.RegisterAccountRoutes(r, &accounts.AccountsHandler{
		Users:      d.Store,
		Codes:      d.Codes,
		Captcha:    d.Captcha,
		Mail:       d.Mail,
		Sessions:   d.Sessions,
		Resets:     d.Resets,
		BaseURL:    cfg.BaseURL,
		CodeTTL:    cfg.CodeTTL,
		ResetTTL:   cfg.ResetTokenTTL,
		TrustProxy: cfg.TrustProxy,
		Log:        d.Log,
	}, d.Limiter)

	wsHandler := &ws.Handler{Hub: d.Hub, Tokens: d.Sessions, AllowedOrigin: cfg.AllowedOrigin, Log: d.Log}
	r.HandleFunc("/ws/chat", wsHandler.ServeWS).Methods(http.MethodGet)

	adminRouter := r.NewRoute().Subrouter()
	adminRouter.Use(middleware.Authenticate(d.Sessions), middleware.RequireAdmin)
	admin.RegisterAdminRoutes(adminRouter, &admin.AdminHandler{Users: d.Store, Tickets: d.Store, Log: d.Log})

	userRouter := r.NewRoute().Subrouter()
	userRouter.Use(middleware.Authenticate(d.Sessions))
	chats.RegisterChatRoutes(userRouter, &chats.ChatHandler{Chat: d.Chat, Log: d.Log})
	tickets.RegisterTicketRoutes(userRouter, &tickets.TicketHandler{
		Tickets:      d.Store,
		Mail:         d.Mail,
		SupportEmail: cfg.SupportEmail,
		Log:          d.Log,
	})

	return middleware.Logging(d.Log)(middleware.CORS(cfg.AllowedOrigin)(r))
}
