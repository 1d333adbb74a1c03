package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/lounge")
	t.Setenv("JWT_SECRET", "s1")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 3000, cfg.Port)
	require.Equal(t, "postgres", cfg.DatabaseDriver)
	require.Equal(t, 500, cfg.MessageRetention)
	require.Equal(t, 500, cfg.HistoryLimit)
	require.False(t, cfg.TrustProxy)
	require.Equal(t, time.Hour, cfg.TokenTTL)
	require.Equal(t, 15*time.Minute, cfg.ResetTokenTTL)
	require.Equal(t, 5*time.Minute, cfg.CodeTTL)
	require.True(t, cfg.StrictConfig)
	require.Equal(t, "postgres://localhost/lounge", cfg.DatabaseURL)
}

func TestMissingListsRequiredVariables(t *testing.T) {
	cfg := &Config{DatabaseURL: "x", JWTSecret: "y", BaseURL: "http://localhost"}
	require.Equal(t, []string{
		"PASSWORD_RESET_SECRET",
		"TURNSTILE_SECRET_KEY",
		"RESEND_API_KEY",
		"MAIL_FROM_ADDRESS",
	}, cfg.Missing())
}

func TestLoadRejectsNonPositiveRetention(t *testing.T) {
	t.Setenv("MESSAGE_RETENTION", "0")
	_, err := Load()
	require.Error(t, err)
}

func TestHistoryLimitFollowsRetention(t *testing.T) {
	t.Setenv("MESSAGE_RETENTION", "50")
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 50, cfg.HistoryLimit)

	t.Setenv("HISTORY_LIMIT", "20")
	_, err = Load()
	require.Error(t, err)
}
