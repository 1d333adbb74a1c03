// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

type Config struct {
	Port     int    `env:"PORT,default=3000"`
	LogLevel string `env:"LOG_LEVEL,default=info"`

	// StrictConfig turns missing required variables into a startup failure.
	// When false they are logged and the dependent features degrade.
	StrictConfig bool `env:"STRICT_CONFIG,default=true"`

	DatabaseDriver string `env:"DATABASE_DRIVER,default=postgres"`
	DatabaseURL    string `env:"DATABASE_URL"`

	JWTSecret           string        `env:"JWT_SECRET"`
	PasswordResetSecret string        `env:"PASSWORD_RESET_SECRET"`
	TokenTTL            time.Duration `env:"TOKEN_TTL,default=1h"`
	ResetTokenTTL       time.Duration `env:"RESET_TOKEN_TTL,default=15m"`
	BaseURL             string        `env:"BASE_URL"`

	RealtimeEndpoint string `env:"REALTIME_ENDPOINT"`
	RealtimeKey      string `env:"REALTIME_KEY"`
	ValkeyAddr       string `env:"VALKEY_ADDR"`

	TurnstileSecret string        `env:"TURNSTILE_SECRET_KEY"`
	ResendAPIKey    string        `env:"RESEND_API_KEY"`
	MailFrom        string        `env:"MAIL_FROM_ADDRESS"`
	SupportEmail    string        `env:"SUPPORT_EMAIL"`
	MailTimeout     time.Duration `env:"MAIL_TIMEOUT,default=10s"`

	// ChatEncryptionKey is optional; empty disables the message transform.
	ChatEncryptionKey string        `env:"CHAT_ENCRYPTION_KEY"`
	MessageRetention  int           `env:"MESSAGE_RETENTION,default=500"`
	// HistoryLimit defaults to MessageRetention so a history read returns
	// everything the store keeps.
	HistoryLimit      int           `env:"HISTORY_LIMIT"`
	MaxContentLength  int           `env:"MAX_CONTENT_LENGTH,default=2000"`
	CodeTTL           time.Duration `env:"VERIFICATION_CODE_TTL,default=5m"`

	LoginAttempts int           `env:"LOGIN_ATTEMPTS,default=5"`
	LoginWindow   time.Duration `env:"LOGIN_WINDOW,default=15m"`

	AllowedOrigin string `env:"CORS_ALLOWED_ORIGIN,default=*"`

	// TrustProxy lets X-Forwarded-For pick the client address for rate
	// limiting and captcha checks.
	TrustProxy bool `env:"TRUST_PROXY,default=false"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	// A missing .env is normal in production.
	_ = godotenv.Load()

	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	if err := cfg.validateRanges(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Missing lists the required variables that are empty.
func (c *Config) Missing() []string {
	required := []struct {
		name  string
		value string
	}{
		{"DATABASE_URL", c.DatabaseURL},
		{"JWT_SECRET", c.JWTSecret},
		{"PASSWORD_RESET_SECRET", c.PasswordResetSecret},
		{"BASE_URL", c.BaseURL},
		{"TURNSTILE_SECRET_KEY", c.TurnstileSecret},
		{"RESEND_API_KEY", c.ResendAPIKey},
		{"MAIL_FROM_ADDRESS", c.MailFrom},
	}
	var missing []string
	for _, r := range required {
		if r.value == "" {
			missing = append(missing, r.name)
		}
	}
	return missing
}

func (c *Config) validateRanges() error {
	if c.MessageRetention < 1 {
		return fmt.Errorf("MESSAGE_RETENTION must be positive, got %d", c.MessageRetention)
	}
	if c.HistoryLimit == 0 {
		c.HistoryLimit = c.MessageRetention
	}
	if c.HistoryLimit < c.MessageRetention {
		return fmt.Errorf("HISTORY_LIMIT (%d) must not be below MESSAGE_RETENTION (%d)", c.HistoryLimit, c.MessageRetention)
	}
	if c.MaxContentLength < 1 {
		return fmt.Errorf("MAX_CONTENT_LENGTH must be positive, got %d", c.MaxContentLength)
	}
	if c.LoginAttempts < 1 || c.LoginWindow <= 0 {
		return fmt.Errorf("LOGIN_ATTEMPTS and LOGIN_WINDOW must be positive")
	}
	return nil
}
