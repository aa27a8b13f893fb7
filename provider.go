package authui

import (
	"context"
	"time"
)

// User is the identity provider's view of an account.
type User struct {
	ID               string         `json:"id"`
	Email            string         `json:"email"`
	EmailConfirmedAt *time.Time     `json:"email_confirmed_at,omitempty"`
	AppMetadata      map[string]any `json:"app_metadata,omitempty"`
	UserMetadata     map[string]any `json:"user_metadata,omitempty"`
}

// IsEmailConfirmed reports whether the provider recorded a confirmation.
func (u *User) IsEmailConfirmed() bool {
	return u != nil && u.EmailConfirmedAt != nil && !u.EmailConfirmedAt.IsZero()
}

// Provider returns the provider the user last signed in with, as recorded
// in app metadata.
func (u *User) Provider() string {
	if u == nil || u.AppMetadata == nil {
		return ""
	}
	p, _ := u.AppMetadata["provider"].(string)
	return p
}

// MetadataString returns a string value from the user metadata.
func (u *User) MetadataString(key string) string {
	if u == nil || u.UserMetadata == nil {
		return ""
	}
	v, _ := u.UserMetadata[key].(string)
	return v
}

// Session is an authenticated provider session.
type Session struct {
	AccessToken   string `json:"access_token"`
	RefreshToken  string `json:"refresh_token"`
	TokenType     string `json:"token_type"`
	ExpiresIn     int    `json:"expires_in"`
	ExpiresAt     int64  `json:"expires_at"`
	ProviderToken string `json:"provider_token,omitempty"`
	User          *User  `json:"user"`
}

// SignUpRequest carries the signup parameters.
type SignUpRequest struct {
	Email           string
	Password        string
	EmailRedirectTo string
	Data            map[string]any
}

// UserUpdate lists the fields UpdateUser may change. Empty fields are left
// untouched.
type UserUpdate struct {
	Password string
	Data     map[string]any
}

// OAuthRequest starts an OAuth sign in.
type OAuthRequest struct {
	Provider      string
	RedirectTo    string
	Scopes        string
	CodeChallenge string
}

// SessionProvider covers the password and session operations of the
// identity provider.
type SessionProvider interface {
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	SignUp(ctx context.Context, req SignUpRequest) (*User, error)
	SignOut(ctx context.Context, accessToken string) error
	GetUser(ctx context.Context, accessToken string) (*User, error)
	// GetSession trades a refresh token for a fresh session.
	GetSession(ctx context.Context, refreshToken string) (*Session, error)
	ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error
	UpdateUser(ctx context.Context, accessToken string, update UserUpdate) (*User, error)
}

// CallbackProvider covers what the callback classifier needs.
type CallbackProvider interface {
	// GetUser is called with the raw callback code. Providers that do not
	// accept codes there return an error, which the classifier treats as
	// "not yet verified".
	GetUser(ctx context.Context, accessToken string) (*User, error)
	ExchangeCodeForSession(ctx context.Context, code, codeVerifier string) (*Session, error)
	UpdateUser(ctx context.Context, accessToken string, update UserUpdate) (*User, error)
	SignOut(ctx context.Context, accessToken string) error
}

// OAuthProvider builds the provider authorize URL.
type OAuthProvider interface {
	AuthorizeURL(req OAuthRequest) (string, error)
}

// VerificationLookup answers whether an email has been confirmed, without
// requiring a session.
type VerificationLookup interface {
	IsEmailVerified(ctx context.Context, email string) (bool, error)
}

// Provider is the full identity provider surface used by the auth pages.
type Provider interface {
	SessionProvider
	CallbackProvider
	OAuthProvider
	VerificationLookup
}
