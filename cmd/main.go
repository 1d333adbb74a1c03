package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Vasu1712/lounge-backend/internal/auth"
	"github.com/Vasu1712/lounge-backend/internal/captcha"
	"github.com/Vasu1712/lounge-backend/internal/chat"
	"github.com/Vasu1712/lounge-backend/internal/codec"
	"github.com/Vasu1712/lounge-backend/internal/config"
	"github.com/Vasu1712/lounge-backend/internal/email"
	"github.com/Vasu1712/lounge-backend/internal/logging"
	"github.com/Vasu1712/lounge-backend/internal/middleware"
	"github.com/Vasu1712/lounge-backend/internal/realtime"
	"github.com/Vasu1712/lounge-backend/internal/server"
	"github.com/Vasu1712/lounge-backend/internal/storage/memory"
	"github.com/Vasu1712/lounge-backend/internal/storage/sqlstore"
	valkeystore "github.com/Vasu1712/lounge-backend/internal/storage/valkey"
	"github.com/Vasu1712/lounge-backend/internal/verify"
	"github.com/Vasu1712/lounge-backend/internal/ws"
)

// errMissingConfig exits with status 2 so supervisors can tell a bad
// deployment from a crash.
var errMissingConfig = errors.New("required configuration is missing")

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		if errors.Is(err, errMissingConfig) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logging.New(cfg.LogLevel)

	if missing := cfg.Missing(); len(missing) > 0 {
		if cfg.StrictConfig {
			return fmt.Errorf("%w: %s", errMissingConfig, strings.Join(missing, ", "))
		}
		log.Warn("starting with missing configuration, dependent features are degraded",
			"missing", missing)
	}
	if cfg.ChatEncryptionKey == "" {
		log.Warn("CHAT_ENCRYPTION_KEY is empty, messages are stored as sent")
	}

	store, err := sqlstore.New(cfg.DatabaseDriver, cfg.DatabaseURL,
		sqlstore.Options{Retention: cfg.MessageRetention, Logger: log})
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		_ = store.Close()
	}()

	var (
		broker realtime.Broker
		codes  verify.Store
	)
	if cfg.ValkeyAddr != "" {
		client, err := valkeystore.Open(cfg.ValkeyAddr)
		if err != nil {
			return err
		}
		defer client.Close()
		broker = realtime.NewValkeyBroker(client, log)
		codes = valkeystore.NewCodeStore(client)
		log.Info("using valkey for realtime and verification codes", "addr", cfg.ValkeyAddr)
	} else {
		broker = realtime.NewMemoryBroker(256)
		codes = memory.NewCodeStore()
		log.Info("using in-process realtime and verification codes, single instance only")
	}

	var sender email.Sender = email.LogSender{Log: log}
	if cfg.ResendAPIKey != "" {
		sender = email.NewResendSender(cfg.ResendAPIKey, cfg.MailFrom)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := ws.NewHub(broker, log)
	hubErr := make(chan error, 1)
	go func() { hubErr <- hub.Run(ctx) }()

	limiter := middleware.NewRateLimiter(cfg.LoginAttempts, cfg.LoginWindow, cfg.TrustProxy)
	defer limiter.Stop()

	handler := server.NewRouter(server.Deps{
		Config: cfg,
		Store:  store,
		Chat: chat.NewService(store, store, broker, codec.New(cfg.ChatEncryptionKey),
			chat.Options{HistoryLimit: cfg.HistoryLimit, MaxContentLength: cfg.MaxContentLength}, log),
		Hub:      hub,
		Codes:    verify.NewCodes(codes, cfg.CodeTTL),
		Captcha:  captcha.NewTurnstile(cfg.TurnstileSecret),
		Mail:     email.NewDispatcher(sender, cfg.MailTimeout, log),
		Sessions: auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL, auth.SessionIssuer),
		Resets:   auth.NewIssuer(cfg.PasswordResetSecret, cfg.ResetTokenTTL, auth.ResetIssuer),
		Limiter:  limiter,
		Log:      log,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errChan := make(chan error, 1)
	go func() {
		log.Info("server started", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errChan:
		return err
	case err := <-hubErr:
		if err != nil {
			return fmt.Errorf("realtime hub: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", slog.Any("err", err))
	}
	log.Info("server stopped")
	return nil
}
