package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("AUTHUI_GOTRUE_URL", "https://xyz.supabase.co")
	t.Setenv("AUTHUI_GOTRUE_ANON_KEY", "anon")
	t.Setenv("AUTHUI_JWT_SECRET", "super-secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8572", cfg.Addr)
	assert.Equal(t, "http://localhost:8572", cfg.GetSiteURL())
	assert.Equal(t, "/auth/login", cfg.GetLoginPath())
	assert.Equal(t, "/auth/reset-password", cfg.GetResetPasswordPath())
	assert.Equal(t, "/auth/callback", cfg.GetCallbackPath())
	assert.Equal(t, "authenticated", cfg.JWT.Audience)
	assert.Equal(t, 10*time.Second, cfg.ProviderTimeout)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.GetCookieSecure())
	assert.Empty(t, cfg.Database.DSN)
}

func TestLoadProduction(t *testing.T) {
	setRequired(t)
	t.Setenv("AUTHUI_ENV", "production")
	t.Setenv("AUTHUI_SITE_URL", "https://app.example.com/")
	t.Setenv("AUTHUI_JWT_JWKS_URLS", "https://a/jwks,https://b/jwks")

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.IsDevelopment())
	assert.True(t, cfg.GetCookieSecure())
	assert.Equal(t, "https://app.example.com", cfg.GetSiteURL())
	assert.Equal(t, []string{"https://a/jwks", "https://b/jwks"}, cfg.JWT.JWKSURLs)
}

func TestCookieSecureOverride(t *testing.T) {
	setRequired(t)
	t.Setenv("AUTHUI_ENV", "production")
	t.Setenv("AUTHUI_COOKIE_SECURE", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.GetCookieSecure())
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing gotrue", func(t *testing.T) {
		t.Setenv("AUTHUI_JWT_SECRET", "s")
		t.Setenv("AUTHUI_GOTRUE_URL", "")
		t.Setenv("AUTHUI_GOTRUE_ANON_KEY", "")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse env:")
	})

	t.Run("invalid duration", func(t *testing.T) {
		setRequired(t)
		t.Setenv("AUTHUI_PROVIDER_TIMEOUT", "soon")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse env:")
	})

	t.Run("missing jwt key", func(t *testing.T) {
		setRequired(t)
		t.Setenv("AUTHUI_JWT_SECRET", "")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "AUTHUI_JWT_SECRET")
	})

	t.Run("short csrf key", func(t *testing.T) {
		setRequired(t)
		t.Setenv("AUTHUI_CSRF_KEY", "short")

		_, err := Load()
		require.Error(t, err)
	})
}
