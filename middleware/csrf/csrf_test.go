package csrf

import (
	"testing"
	"time"

	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestSecureKey() []byte {
	return []byte("0123456789abcdef0123456789abcdef")
}

func newMockContext(method, binding string) *router.MockContext {
	ctx := router.NewMockContext()
	ctx.On("Method").Return(method)
	ctx.On("Locals", DefaultContextKey, mock.Anything).Return(nil)
	ctx.On("Locals", DefaultContextKey+"_field", mock.Anything).Return(nil)
	ctx.On("Locals", DefaultContextKey+"_header", mock.Anything).Return(nil)
	if binding != "" {
		ctx.CookiesM[DefaultCookieName] = binding
	}
	return ctx
}

func passErrors(_ router.Context, err error) error { return err }

func noop(router.Context) error { return nil }

func TestGetIssuesTokenAndBindingCookie(t *testing.T) {
	handler := New(Config{SecureKey: newTestSecureKey(), ErrorHandler: passErrors})(noop)

	ctx := newMockContext("GET", "")
	var binding *router.Cookie
	ctx.On("Cookie", mock.Anything).Run(func(args mock.Arguments) {
		binding = args.Get(0).(*router.Cookie)
	}).Return()

	require.NoError(t, handler(ctx))

	require.NotNil(t, binding)
	assert.Equal(t, DefaultCookieName, binding.Name)
	assert.True(t, binding.HTTPOnly)
	assert.Len(t, binding.Value, bindingLength*2)

	token, ok := ctx.LocalsMock[DefaultContextKey].(string)
	require.True(t, ok)
	assert.NotEmpty(t, token)
}

func TestPostWithValidToken(t *testing.T) {
	handler := New(Config{SecureKey: newTestSecureKey(), ErrorHandler: passErrors})(noop)

	getCtx := newMockContext("GET", "browser-1")
	require.NoError(t, handler(getCtx))
	token := getCtx.LocalsMock[DefaultContextKey].(string)

	postCtx := newMockContext("POST", "browser-1")
	postCtx.On("FormValue", DefaultFormFieldName).Return(token)

	require.NoError(t, handler(postCtx))
	assert.NotEqual(t, token, postCtx.LocalsMock[DefaultContextKey])
}

func TestPostWithHeaderToken(t *testing.T) {
	handler := New(Config{SecureKey: newTestSecureKey(), ErrorHandler: passErrors})(noop)

	getCtx := newMockContext("GET", "browser-1")
	require.NoError(t, handler(getCtx))
	token := getCtx.LocalsMock[DefaultContextKey].(string)

	postCtx := newMockContext("POST", "browser-1")
	postCtx.On("FormValue", DefaultFormFieldName).Return("")
	postCtx.HeadersM[DefaultHeaderName] = token

	require.NoError(t, handler(postCtx))
}

func TestPostTokenBoundToBrowser(t *testing.T) {
	handler := New(Config{SecureKey: newTestSecureKey(), ErrorHandler: passErrors})(noop)

	getCtx := newMockContext("GET", "browser-1")
	require.NoError(t, handler(getCtx))
	token := getCtx.LocalsMock[DefaultContextKey].(string)

	postCtx := newMockContext("POST", "browser-2")
	postCtx.On("FormValue", DefaultFormFieldName).Return(token)

	assert.ErrorIs(t, handler(postCtx), ErrTokenMismatch)
}

func TestPostRejectsBadTokens(t *testing.T) {
	handler := New(Config{SecureKey: newTestSecureKey(), ErrorHandler: passErrors})(noop)

	missing := newMockContext("POST", "browser-1")
	missing.On("FormValue", DefaultFormFieldName).Return("")
	assert.ErrorIs(t, handler(missing), ErrTokenMissing)

	tampered := newMockContext("POST", "browser-1")
	tampered.On("FormValue", DefaultFormFieldName).Return("tampered")
	assert.ErrorIs(t, handler(tampered), ErrTokenMismatch)
}

func TestTokenExpiration(t *testing.T) {
	clock := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	cfg := Config{SecureKey: newTestSecureKey(), ErrorHandler: passErrors, Expiration: time.Hour}
	cfg.now = func() time.Time { return clock }
	handler := New(cfg)(noop)

	getCtx := newMockContext("GET", "browser-1")
	require.NoError(t, handler(getCtx))
	token := getCtx.LocalsMock[DefaultContextKey].(string)

	clock = clock.Add(2 * time.Hour)

	postCtx := newMockContext("POST", "browser-1")
	postCtx.On("FormValue", DefaultFormFieldName).Return(token)
	assert.ErrorIs(t, handler(postCtx), ErrTokenExpired)
}

func TestSkip(t *testing.T) {
	handler := New(Config{
		SecureKey: newTestSecureKey(),
		Skip:      func(router.Context) bool { return true },
	})(noop)

	require.NoError(t, handler(router.NewMockContext()))
}

func TestShortSecureKeyPanics(t *testing.T) {
	require.Panics(t, func() {
		New(Config{SecureKey: []byte("short")})
	})
}
