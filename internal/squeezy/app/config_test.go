package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGetEnvDurationOrDefault(t *testing.T) {
	t.Setenv("SQUEEZY_TEST_DURATION", "90s")
	require.Equal(t, 90*time.Second, getEnvDurationOrDefault("SQUEEZY_TEST_DURATION", time.Hour))

	t.Setenv("SQUEEZY_TEST_DURATION", "5")
	require.Equal(t, 5*time.Minute, getEnvDurationOrDefault("SQUEEZY_TEST_DURATION", time.Hour))

	t.Setenv("SQUEEZY_TEST_DURATION", "soon")
	require.Equal(t, time.Hour, getEnvDurationOrDefault("SQUEEZY_TEST_DURATION", time.Hour))
}

func TestLoadConfigDefaults(t *testing.T) {
	for _, k := range []string{"DATABASE_FILE", "PORT", "MFA_ISSUER", "AUCTION_SWEEP_INTERVAL", "REDIS_ADDR"} {
		t.Setenv(k, "")
	}
	t.Setenv("REDIS_DB", "3")

	cfg := LoadConfig()
	require.Equal(t, "squeezy.db", cfg.DatabaseFile)
	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, "squeezy", cfg.MFAIssuer)
	require.Equal(t, time.Minute, cfg.AuctionSweepInterval)
	require.Equal(t, 3, cfg.RedisDB)
	require.Empty(t, cfg.RedisAddr)
}

func TestTokenSecrets(t *testing.T) {
	t.Run("configured", func(t *testing.T) {
		cfg := Config{Env: "prod", JWTSecret: "a", JWTRefreshSecret: "b"}
		access, refresh, generated, err := cfg.tokenSecrets()
		require.NoError(t, err)
		require.False(t, generated)
		require.Equal(t, []byte("a"), access)
		require.Equal(t, []byte("b"), refresh)
	})

	t.Run("missing in prod", func(t *testing.T) {
		_, _, _, err := Config{Env: "prod", JWTSecret: "a"}.tokenSecrets()
		require.Error(t, err)
	})

	t.Run("generated outside prod", func(t *testing.T) {
		access, refresh, generated, err := Config{Env: "dev"}.tokenSecrets()
		require.NoError(t, err)
		require.True(t, generated)
		require.NotEmpty(t, access)
		require.NotEqual(t, access, refresh)
	})
}

func TestAllowedOrigins(t *testing.T) {
	require.Nil(t, allowedOrigins(""))
	require.Equal(t, []string{"https://app.example"}, allowedOrigins("https://app.example/"))
}
