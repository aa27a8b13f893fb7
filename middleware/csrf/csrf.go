package csrf

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

const (
	TextCodeTokenMissing  = "csrf_token_missing"
	TextCodeTokenMismatch = "csrf_token_mismatch"
	TextCodeTokenExpired  = "csrf_token_expired"
)

var (
	ErrTokenMissing = errors.New("csrf token missing", errors.CategoryBadInput).
			WithTextCode(TextCodeTokenMissing).
			WithCode(errors.CodeBadRequest)

	ErrTokenMismatch = errors.New("csrf token mismatch", errors.CategoryAuthz).
				WithTextCode(TextCodeTokenMismatch).
				WithCode(errors.CodeForbidden)

	ErrTokenExpired = errors.New("csrf token expired", errors.CategoryAuthz).
			WithTextCode(TextCodeTokenExpired).
			WithCode(errors.CodeForbidden)
)

const (
	// DefaultContextKey is the locals key holding the token for templates.
	DefaultContextKey = "csrf_token"
	// DefaultFormFieldName matches the hidden input rendered by the auth pages.
	DefaultFormFieldName = "_token"
	DefaultHeaderName    = "X-CSRF-Token"
	// DefaultCookieName holds the anonymous browser id tokens are bound to.
	DefaultCookieName = "authui-csrf"

	nonceLength   = 16
	bindingLength = 32
)

// Config defines the configuration for CSRF middleware
type Config struct {
	// Skip defines a function to skip middleware
	Skip func(router.Context) bool

	// SecureKey signs tokens. Must be at least 32 bytes.
	SecureKey []byte

	ContextKey    string
	FormFieldName string
	HeaderName    string

	// CookieName is the browser binding cookie.
	CookieName   string
	CookieSecure bool

	// SafeMethods are not validated.
	SafeMethods []string

	// Expiration bounds token age.
	Expiration time.Duration

	ErrorHandler router.ErrorHandler

	now func() time.Time
}

// New creates a new CSRF middleware. Every request gets a fresh token in
// locals; unsafe methods must echo a valid token in the form or header.
func New(config Config) router.MiddlewareFunc {
	cfg := configDefault(config)

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if cfg.Skip != nil && cfg.Skip(ctx) {
				return next(ctx)
			}

			binding := ctx.Cookies(cfg.CookieName)
			if binding == "" {
				binding = randomHex(bindingLength)
				ctx.Cookie(&router.Cookie{
					Name:     cfg.CookieName,
					Value:    binding,
					Path:     "/",
					HTTPOnly: true,
					Secure:   cfg.CookieSecure,
					SameSite: "Lax",
				})
			}

			if !slices.Contains(cfg.SafeMethods, strings.ToUpper(ctx.Method())) {
				if err := cfg.validate(ctx, binding); err != nil {
					return cfg.ErrorHandler(ctx, err)
				}
			}

			ctx.Locals(cfg.ContextKey, cfg.issue(binding))
			ctx.Locals(cfg.ContextKey+"_field", cfg.FormFieldName)
			ctx.Locals(cfg.ContextKey+"_header", cfg.HeaderName)

			return next(ctx)
		}
	}
}

// issue signs "<unix>:<nonce>" together with the binding id.
func (cfg Config) issue(binding string) string {
	payload := strconv.FormatInt(cfg.now().UTC().Unix(), 10) + ":" + randomHex(nonceLength)
	token := payload + ":" + hex.EncodeToString(cfg.sign(payload, binding))
	return base64.RawURLEncoding.EncodeToString([]byte(token))
}

func (cfg Config) validate(ctx router.Context, binding string) error {
	received := ctx.FormValue(cfg.FormFieldName)
	if received == "" {
		received = ctx.Header(cfg.HeaderName)
	}
	if received == "" {
		return ErrTokenMissing
	}

	decoded, err := base64.RawURLEncoding.DecodeString(received)
	if err != nil {
		return ErrTokenMismatch
	}

	parts := strings.Split(string(decoded), ":")
	if len(parts) != 3 {
		return ErrTokenMismatch
	}

	signature, err := hex.DecodeString(parts[2])
	if err != nil {
		return ErrTokenMismatch
	}
	if !hmac.Equal(signature, cfg.sign(parts[0]+":"+parts[1], binding)) {
		return ErrTokenMismatch
	}

	issued, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return ErrTokenMismatch
	}
	if cfg.now().UTC().After(time.Unix(issued, 0).Add(cfg.Expiration)) {
		return ErrTokenExpired
	}
	return nil
}

func (cfg Config) sign(payload, binding string) []byte {
	mac := hmac.New(sha256.New, cfg.SecureKey)
	mac.Write([]byte(payload + ":" + binding))
	return mac.Sum(nil)
}

func randomHex(n int) string {
	buf := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		panic(fmt.Errorf("csrf: read random: %w", err))
	}
	return hex.EncodeToString(buf)
}

func configDefault(cfg Config) Config {
	if len(cfg.SecureKey) < 32 {
		panic(fmt.Errorf("csrf: secure key must be at least 32 bytes, got %d", len(cfg.SecureKey)))
	}
	if cfg.ContextKey == "" {
		cfg.ContextKey = DefaultContextKey
	}
	if cfg.FormFieldName == "" {
		cfg.FormFieldName = DefaultFormFieldName
	}
	if cfg.HeaderName == "" {
		cfg.HeaderName = DefaultHeaderName
	}
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCookieName
	}
	if cfg.SafeMethods == nil {
		cfg.SafeMethods = []string{"GET", "HEAD", "OPTIONS", "TRACE"}
	}
	if cfg.Expiration == 0 {
		cfg.Expiration = 2 * time.Hour
	}
	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = defaultErrorHandler
	}
	if cfg.now == nil {
		cfg.now = time.Now
	}
	return cfg
}

func defaultErrorHandler(ctx router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return ctx.Status(router.StatusInternalServerError).SendString("csrf validation error")
	}
	return ctx.Status(richErr.Code).SendString(richErr.Message)
}
