package accounts

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Vasu1712/lounge-backend/internal/api/respond"
	"github.com/Vasu1712/lounge-backend/internal/apperr"
	"github.com/Vasu1712/lounge-backend/internal/auth"
	"github.com/Vasu1712/lounge-backend/internal/captcha"
	"github.com/Vasu1712/lounge-backend/internal/email"
	"github.com/Vasu1712/lounge-backend/internal/metrics"
	"github.com/Vasu1712/lounge-backend/internal/middleware"
	"github.com/Vasu1712/lounge-backend/internal/models"
	"github.com/Vasu1712/lounge-backend/internal/storage"
	"github.com/Vasu1712/lounge-backend/internal/verify"
)

const forgotPasswordReply = "If an account with that email exists, a password reset link has been sent."

// AccountsHandler serves registration, login and password recovery.
type AccountsHandler struct {
	Users    storage.UserStore
	Codes    *verify.Codes
	Captcha  captcha.Verifier
	Mail     *email.Dispatcher
	Sessions *auth.Issuer
	Resets   *auth.Issuer
	BaseURL  string
	CodeTTL  time.Duration
	ResetTTL time.Duration
	// TrustProxy makes the captcha check report the X-Forwarded-For client.
	TrustProxy bool
	Log        *slog.Logger
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// SendVerificationCode handles POST /api/send-verification-code. The mail
// is sent synchronously because the code is the whole point of the call.
func (h *AccountsHandler) SendVerificationCode(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	addr := normalizeEmail(req.Email)
	exists, err := h.Users.EmailExists(r.Context(), addr)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if exists {
		respond.Error(w, r, h.Log, apperr.Conflict("this email is already registered"))
		return
	}

	code, err := h.Codes.Issue(r.Context(), addr)
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Unavailable(err))
		return
	}
	msg, err := email.VerificationCode(addr, code, h.CodeTTL)
	if err == nil {
		err = h.Mail.Send(r.Context(), "verification_code", msg)
	}
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Unavailable(err))
		return
	}
	respond.Message(w, http.StatusOK, "Verification code sent")
}

type registerRequest struct {
	Email          string `json:"email" validate:"required,email"`
	Password       string `json:"password" validate:"required,min=6"`
	Code           string `json:"code" validate:"required,len=6,numeric"`
	TurnstileToken string `json:"turnstileToken"`
	Username       string `json:"username" validate:"omitempty,min=3,max=30"`
}

// Register handles POST /api/register. The captcha is checked before
// anything else and its failure is always reported to the caller.
func (h *AccountsHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if err := h.checkCaptcha(r, req.TurnstileToken); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	addr := normalizeEmail(req.Email)
	exists, err := h.Users.EmailExists(r.Context(), addr)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if exists {
		respond.Error(w, r, h.Log, apperr.Conflict("this email is already registered"))
		return
	}
	ok, err := h.Codes.Redeem(r.Context(), addr, req.Code)
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Unavailable(err))
		return
	}
	if !ok {
		respond.Error(w, r, h.Log, apperr.InvalidArgument("invalid or expired verification code"))
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Unavailable(err))
		return
	}
	user := &models.User{Email: addr, Password: hash, Role: models.RoleUser}
	if name := strings.TrimSpace(req.Username); name != "" {
		user.Username = &name
	}
	if err := h.Users.CreateUser(r.Context(), user); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	h.Log.Info("user registered", "user", user.ID)
	respond.JSON(w, http.StatusCreated, map[string]any{
		"message": "Registration successful",
		"user":    user,
	})
}

func (h *AccountsHandler) checkCaptcha(r *http.Request, token string) error {
	if token == "" {
		return apperr.InvalidArgument("captcha token is required")
	}
	err := h.Captcha.Verify(r.Context(), token, middleware.ClientIP(r, h.TrustProxy))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, captcha.ErrRejected):
		return apperr.Forbidden("captcha verification failed")
	default:
		return apperr.Unavailable(err)
	}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login handles POST /api/login.
func (h *AccountsHandler) Login(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, false)
}

// AdminLogin handles POST /api/admin/login. Only admin accounts get a
// token.
func (h *AccountsHandler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, true)
}

func (h *AccountsHandler) login(w http.ResponseWriter, r *http.Request, adminOnly bool) {
	var req loginRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	user, err := h.authenticate(r.Context(), normalizeEmail(req.Email), req.Password)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if adminOnly && user.Role != models.RoleAdmin {
		metrics.LoginRejections.WithLabelValues("not_admin").Inc()
		respond.Error(w, r, h.Log, apperr.Forbidden("admin access required"))
		return
	}
	token, err := h.Sessions.Issue(user.ID, user.Email, user.Role)
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Unavailable(err))
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  user,
	})
}

func (h *AccountsHandler) authenticate(ctx context.Context, addr, password string) (*models.User, error) {
	user, err := h.Users.GetUserByEmail(ctx, addr)
	if errors.Is(err, apperr.ErrNotFound) {
		metrics.LoginRejections.WithLabelValues("bad_credentials").Inc()
		return nil, apperr.Unauthenticated("invalid email or password")
	}
	if err != nil {
		return nil, err
	}
	if !auth.ComparePassword(user.Password, password) {
		metrics.LoginRejections.WithLabelValues("bad_credentials").Inc()
		return nil, apperr.Unauthenticated("invalid email or password")
	}
	if user.Banned {
		metrics.LoginRejections.WithLabelValues("banned").Inc()
		return nil, apperr.Forbidden("this account has been banned")
	}
	return user, nil
}

// ForgotPassword handles POST /api/forgot-password. The reply is the same
// whether or not the account exists.
func (h *AccountsHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	user, err := h.Users.GetUserByEmail(r.Context(), normalizeEmail(req.Email))
	switch {
	case errors.Is(err, apperr.ErrNotFound):
	case err != nil:
		h.Log.Error("forgot-password lookup failed", "err", err)
	default:
		h.mailResetLink(user)
	}
	respond.Message(w, http.StatusOK, forgotPasswordReply)
}

func (h *AccountsHandler) mailResetLink(user *models.User) {
	token, err := h.Resets.Issue(user.ID, user.Email, user.Role)
	if err != nil {
		h.Log.Error("issue reset token", "user", user.ID, "err", err)
		return
	}
	link := strings.TrimRight(h.BaseURL, "/") + "/reset-password.html?token=" + url.QueryEscape(token)
	msg, err := email.PasswordReset(user.Email, link, h.ResetTTL)
	if err != nil {
		h.Log.Error("render reset mail", "err", err)
		return
	}
	h.Mail.Go("password_reset", msg)
}

type resetRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6"`
}

// ResetPassword handles POST /api/reset-password.
func (h *AccountsHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	claims, err := h.Resets.Verify(req.Token)
	if errors.Is(err, auth.ErrTokenExpired) {
		respond.Error(w, r, h.Log, apperr.InvalidArgument("password reset link has expired, please request a new one"))
		return
	}
	if err != nil {
		respond.Error(w, r, h.Log, apperr.InvalidArgument("invalid password reset link"))
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Unavailable(err))
		return
	}
	err = h.Users.UpdatePassword(r.Context(), claims.UserID, hash)
	if errors.Is(err, apperr.ErrNotFound) {
		respond.Error(w, r, h.Log, apperr.InvalidArgument("invalid password reset link"))
		return
	}
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.Message(w, http.StatusOK, "Password has been reset")
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
