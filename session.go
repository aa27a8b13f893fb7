package authui

import (
	"time"

	"github.com/goliatone/go-router"
)

const (
	DefaultAccessTokenCookie  = "sb-access-token"
	DefaultRefreshTokenCookie = "sb-refresh-token"
	DefaultVerifierCookie     = "sb-code-verifier"
)

const (
	verifierTTL        = 10 * time.Minute
	refreshTokenTTL    = 30 * 24 * time.Hour
	defaultAccessTTL   = time.Hour
	expiredCookieShift = -24 * 365 * time.Hour
)

// SessionCookies reads and writes the provider session on the response.
type SessionCookies struct {
	AccessName   string
	RefreshName  string
	VerifierName string
	Secure       bool
	SameSite     string
	now          func() time.Time
}

// NewSessionCookies returns cookies with the default names.
func NewSessionCookies(secure bool) SessionCookies {
	return SessionCookies{
		AccessName:   DefaultAccessTokenCookie,
		RefreshName:  DefaultRefreshTokenCookie,
		VerifierName: DefaultVerifierCookie,
		Secure:       secure,
		SameSite:     "Lax",
		now:          time.Now,
	}
}

func (s SessionCookies) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}

// Set stores the session tokens. The access cookie lives as long as the
// token does.
func (s SessionCookies) Set(ctx router.Context, session *Session) {
	if session == nil || session.AccessToken == "" {
		return
	}

	ttl := defaultAccessTTL
	if session.ExpiresIn > 0 {
		ttl = time.Duration(session.ExpiresIn) * time.Second
	}

	s.write(ctx, s.AccessName, session.AccessToken, ttl)
	if session.RefreshToken != "" {
		s.write(ctx, s.RefreshName, session.RefreshToken, refreshTokenTTL)
	}
}

// Clear removes the session tokens.
func (s SessionCookies) Clear(ctx router.Context) {
	s.del(ctx, s.AccessName)
	s.del(ctx, s.RefreshName)
}

func (s SessionCookies) AccessToken(ctx router.Context) string {
	return ctx.Cookies(s.AccessName)
}

func (s SessionCookies) RefreshToken(ctx router.Context) string {
	return ctx.Cookies(s.RefreshName)
}

// SetVerifier stores the PKCE verifier until the callback comes back.
func (s SessionCookies) SetVerifier(ctx router.Context, verifier string) {
	s.write(ctx, s.VerifierName, verifier, verifierTTL)
}

func (s SessionCookies) Verifier(ctx router.Context) string {
	return ctx.Cookies(s.VerifierName)
}

func (s SessionCookies) ClearVerifier(ctx router.Context) {
	s.del(ctx, s.VerifierName)
}

func (s SessionCookies) write(ctx router.Context, name, value string, ttl time.Duration) {
	ctx.Cookie(&router.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  s.clock().Add(ttl),
		HTTPOnly: true,
		Secure:   s.Secure,
		SameSite: s.SameSite,
	})
}

func (s SessionCookies) del(ctx router.Context, name string) {
	ctx.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  s.clock().Add(expiredCookieShift),
		HTTPOnly: true,
		Secure:   s.Secure,
		SameSite: s.SameSite,
	})
}
