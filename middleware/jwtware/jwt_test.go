package jwtware_test

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-authui/middleware/jwtware"
)

var signingKey = []byte("test-secret")

// By default we set an expiration time 1 hour from now
func generateToken(t *testing.T, method jwt.SigningMethod, key []byte, claims jwt.MapClaims) string {
	t.Helper()

	if claims["exp"] == nil {
		claims["exp"] = time.Now().Add(time.Hour).Unix()
	}
	if claims["aud"] == nil {
		claims["aud"] = jwtware.DefaultAudience
	}

	signed, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return signed
}

func hs256Config() jwtware.Config {
	return jwtware.Config{
		SigningKey: jwtware.SigningKey{
			Key:    signingKey,
			JWTAlg: jwt.SigningMethodHS256.Alg(),
		},
	}
}

type nextRecorder struct {
	called bool
}

func (n *nextRecorder) handler(router.Context) error {
	n.called = true
	return nil
}

func TestNewAcceptsAccessCookie(t *testing.T) {
	token := generateToken(t, jwt.SigningMethodHS256, signingKey, jwt.MapClaims{
		"sub":           "user-1",
		"email":         "a@b.com",
		"role":          "authenticated",
		"user_metadata": map[string]any{"full_name": "Ada Lovelace"},
	})

	next := &nextRecorder{}
	handler := jwtware.New(hs256Config())(next.handler)

	ctx := router.NewMockContext()
	ctx.CookiesM[jwtware.DefaultAccessCookie] = token

	var stored *jwtware.Claims
	ctx.On("Locals", "user", mock.AnythingOfType("*jwtware.Claims")).Run(func(args mock.Arguments) {
		stored = args.Get(1).(*jwtware.Claims)
	}).Return(nil)

	var user map[string]any
	ctx.On("Locals", "current_user", mock.Anything).Run(func(args mock.Arguments) {
		user = args.Get(1).(map[string]any)
	}).Return(nil)

	require.NoError(t, handler(ctx))
	assert.True(t, next.called)

	require.NotNil(t, stored)
	assert.Equal(t, "user-1", stored.UserID())
	assert.Equal(t, "a@b.com", stored.Email)
	assert.Equal(t, map[string]any{
		"id":        "user-1",
		"email":     "a@b.com",
		"role":      "authenticated",
		"full_name": "Ada Lovelace",
	}, user)
	ctx.AssertExpectations(t)
}

func TestNewFallsBackToAuthorizationHeader(t *testing.T) {
	token := generateToken(t, jwt.SigningMethodHS256, signingKey, jwt.MapClaims{"sub": "user-2"})

	next := &nextRecorder{}
	handler := jwtware.New(hs256Config())(next.handler)

	ctx := router.NewMockContext()
	ctx.HeadersM["Authorization"] = "Bearer " + token
	ctx.On("Locals", mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, handler(ctx))
	assert.True(t, next.called)
}

func TestNewRedirectsToLoginWithoutToken(t *testing.T) {
	next := &nextRecorder{}
	handler := jwtware.New(hs256Config())(next.handler)

	ctx := router.NewMockContext()
	ctx.On("OriginalURL").Return("/dashboard?tab=1")
	ctx.On("Redirect", "/auth/login?redirect_to=%2Fdashboard%3Ftab%3D1", []int{router.StatusSeeOther}).Return(nil)

	require.NoError(t, handler(ctx))
	assert.False(t, next.called)
	ctx.AssertExpectations(t)
}

func TestNewRejectsInvalidTokens(t *testing.T) {
	tests := []struct {
		name   string
		token  func(t *testing.T) string
		target error
	}{
		{
			name: "expired",
			token: func(t *testing.T) string {
				return generateToken(t, jwt.SigningMethodHS256, signingKey, jwt.MapClaims{
					"sub": "user-1",
					"exp": time.Now().Add(-time.Hour).Unix(),
				})
			},
			target: jwt.ErrTokenExpired,
		},
		{
			name: "wrong audience",
			token: func(t *testing.T) string {
				return generateToken(t, jwt.SigningMethodHS256, signingKey, jwt.MapClaims{
					"sub": "user-1",
					"aud": "service_role",
				})
			},
			target: jwt.ErrTokenInvalidAudience,
		},
		{
			name: "wrong key",
			token: func(t *testing.T) string {
				return generateToken(t, jwt.SigningMethodHS256, []byte("other-secret"), jwt.MapClaims{"sub": "user-1"})
			},
			target: jwt.ErrTokenSignatureInvalid,
		},
		{
			name: "unexpected algorithm",
			token: func(t *testing.T) string {
				return generateToken(t, jwt.SigningMethodHS384, signingKey, jwt.MapClaims{"sub": "user-1"})
			},
			target: jwt.ErrTokenUnverifiable,
		},
		{
			name: "malformed",
			token: func(t *testing.T) string {
				return "malformed.token.structure"
			},
			target: jwt.ErrTokenMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := hs256Config()
			var handled error
			cfg.ErrorHandler = func(c router.Context, err error) error {
				handled = err
				return err
			}

			next := &nextRecorder{}
			handler := jwtware.New(cfg)(next.handler)

			ctx := router.NewMockContext()
			ctx.CookiesM[jwtware.DefaultAccessCookie] = tt.token(t)

			err := handler(ctx)
			require.Error(t, err)
			assert.True(t, errors.Is(handled, tt.target), "got %v", handled)
			assert.False(t, next.called)
		})
	}
}

func TestNewFilterSkipsValidation(t *testing.T) {
	cfg := hs256Config()
	cfg.Filter = func(router.Context) bool { return true }

	next := &nextRecorder{}
	handler := jwtware.New(cfg)(next.handler)

	require.NoError(t, handler(router.NewMockContext()))
	assert.True(t, next.called)
}

func TestRedirectAuthenticated(t *testing.T) {
	token := generateToken(t, jwt.SigningMethodHS256, signingKey, jwt.MapClaims{"sub": "user-1"})

	t.Run("signed in", func(t *testing.T) {
		next := &nextRecorder{}
		handler := jwtware.RedirectAuthenticated("/", hs256Config())(next.handler)

		ctx := router.NewMockContext()
		ctx.CookiesM[jwtware.DefaultAccessCookie] = token
		ctx.On("Redirect", "/", []int{router.StatusSeeOther}).Return(nil)

		require.NoError(t, handler(ctx))
		assert.False(t, next.called)
		ctx.AssertExpectations(t)
	})

	t.Run("anonymous", func(t *testing.T) {
		next := &nextRecorder{}
		handler := jwtware.RedirectAuthenticated("/", hs256Config())(next.handler)

		ctx := router.NewMockContext()
	
		require.NoError(t, handler(ctx))
		assert.True(t, next.called)
	})
}

func TestGetDefaultConfigRequiresKey(t *testing.T) {
	assert.Panics(t, func() {
		jwtware.GetDefaultConfig(jwtware.Config{})
	})
}

func TestGetExtractors(t *testing.T) {
	extractors := jwtware.GetExtractors("cookie:sb-access-token, header:Authorization, query:token, bogus")
	assert.Len(t, extractors, 3)
}
