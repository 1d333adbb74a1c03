package accounts

import (
	"net/http"

	"github.com/Vasu1712/lounge-backend/internal/middleware"
	"github.com/gorilla/mux"
)

// RegisterAccountRoutes registers the public account routes. Both login
// routes share the limiter budget of a client.
func RegisterAccountRoutes(r *mux.Router, handler *AccountsHandler, limiter *middleware.RateLimiter) {
	r.HandleFunc("/api/send-verification-code", handler.SendVerificationCode).Methods(http.MethodPost)
	r.HandleFunc("/api/register", handler.Register).Methods(http.MethodPost)
	r.Handle("/api/login", limiter.Limit("login", http.HandlerFunc(handler.Login))).Methods(http.MethodPost)
	r.Handle("/api/admin/login", limiter.Limit("login", http.HandlerFunc(handler.AdminLogin))).Methods(http.MethodPost)
	r.HandleFunc("/api/forgot-password", handler.ForgotPassword).Methods(http.MethodPost)
	r.HandleFunc("/api/reset-password", handler.ResetPassword).Methods(http.MethodPost)
}
