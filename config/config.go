// Package config loads the auth UI settings from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the runtime configuration of the auth UI server. It satisfies
// authui.Config.
type Config struct {
	Env     string `env:"AUTHUI_ENV"      envDefault:"development"`
	Debug   bool   `env:"AUTHUI_DEBUG"`
	Addr    string `env:"AUTHUI_ADDR"     envDefault:":8572"`
	SiteURL string `env:"AUTHUI_SITE_URL" envDefault:"http://localhost:8572"`

	LoginPath         string `env:"AUTHUI_LOGIN_PATH"          envDefault:"/auth/login"`
	ResetPasswordPath string `env:"AUTHUI_RESET_PASSWORD_PATH" envDefault:"/auth/reset-password"`
	CallbackPath      string `env:"AUTHUI_CALLBACK_PATH"       envDefault:"/auth/callback"`
	SocialPath        string `env:"AUTHUI_SOCIAL_PATH"         envDefault:"/auth/oauth"`

	// CookieSecure overrides the Secure cookie flag, which otherwise is on
	// outside development.
	CookieSecure *bool `env:"AUTHUI_COOKIE_SECURE"`

	GoTrue   GoTrue
	JWT      JWT
	Database Database
	CSRF     CSRF
	Metrics  Metrics

	ProviderTimeout time.Duration `env:"AUTHUI_PROVIDER_TIMEOUT" envDefault:"10s"`
	ResendEvery     time.Duration `env:"AUTHUI_RESEND_EVERY"     envDefault:"1m"`
	ResendBurst     int           `env:"AUTHUI_RESEND_BURST"     envDefault:"3"`
}

// GoTrue locates the identity server.
type GoTrue struct {
	URL        string `env:"AUTHUI_GOTRUE_URL,required,notEmpty"`
	APIKey     string `env:"AUTHUI_GOTRUE_ANON_KEY,required,notEmpty"`
	ServiceKey string `env:"AUTHUI_GOTRUE_SERVICE_KEY"`
}

// JWT configures access token validation on protected pages. Either the
// shared secret or a JWKS URL is required.
type JWT struct {
	Secret   string   `env:"AUTHUI_JWT_SECRET"`
	JWKSURLs []string `env:"AUTHUI_JWT_JWKS_URLS" envSeparator:","`
	Audience string   `env:"AUTHUI_JWT_AUDIENCE" envDefault:"authenticated"`
	Issuer   string   `env:"AUTHUI_JWT_ISSUER"`
}

// Database is optional. When DSN is empty the verification lookup goes
// through the identity server RPC and activity is only logged.
type Database struct {
	Driver string `env:"AUTHUI_DB_DRIVER" envDefault:"postgres"`
	DSN    string `env:"AUTHUI_DB_DSN"`
}

type CSRF struct {
	Key string `env:"AUTHUI_CSRF_KEY"`
}

type Metrics struct {
	Addr string `env:"AUTHUI_METRICS_ADDR" envDefault:":9572"`
}

// Load parses the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings env tags cannot express.
func (c *Config) Validate() error {
	if c.JWT.Secret == "" && len(c.JWT.JWKSURLs) == 0 {
		return fmt.Errorf("config: AUTHUI_JWT_SECRET or AUTHUI_JWT_JWKS_URLS is required")
	}
	if c.CSRF.Key != "" && len(c.CSRF.Key) < 32 {
		return fmt.Errorf("config: AUTHUI_CSRF_KEY must be at least 32 characters")
	}
	return nil
}

func (c *Config) GetSiteURL() string           { return strings.TrimRight(c.SiteURL, "/") }
func (c *Config) GetLoginPath() string         { return c.LoginPath }
func (c *Config) GetResetPasswordPath() string { return c.ResetPasswordPath }
func (c *Config) GetCallbackPath() string      { return c.CallbackPath }

// IsDevelopment reports whether the server runs locally.
func (c *Config) IsDevelopment() bool {
	switch strings.ToLower(c.Env) {
	case "", "dev", "development", "local":
		return true
	}
	return false
}

func (c *Config) GetCookieSecure() bool {
	if c.CookieSecure != nil {
		return *c.CookieSecure
	}
	return !c.IsDevelopment()
}
