package authui

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

// MockProvider implements Provider
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	args := m.Called(ctx, email, password)
	s, _ := args.Get(0).(*Session)
	return s, args.Error(1)
}

func (m *MockProvider) SignUp(ctx context.Context, req SignUpRequest) (*User, error) {
	args := m.Called(ctx, req)
	u, _ := args.Get(0).(*User)
	return u, args.Error(1)
}

func (m *MockProvider) SignOut(ctx context.Context, accessToken string) error {
	args := m.Called(ctx, accessToken)
	return args.Error(0)
}

func (m *MockProvider) GetUser(ctx context.Context, accessToken string) (*User, error) {
	args := m.Called(ctx, accessToken)
	u, _ := args.Get(0).(*User)
	return u, args.Error(1)
}

func (m *MockProvider) GetSession(ctx context.Context, refreshToken string) (*Session, error) {
	args := m.Called(ctx, refreshToken)
	s, _ := args.Get(0).(*Session)
	return s, args.Error(1)
}

func (m *MockProvider) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	args := m.Called(ctx, email, redirectTo)
	return args.Error(0)
}

func (m *MockProvider) UpdateUser(ctx context.Context, accessToken string, update UserUpdate) (*User, error) {
	args := m.Called(ctx, accessToken, update)
	u, _ := args.Get(0).(*User)
	return u, args.Error(1)
}

func (m *MockProvider) ExchangeCodeForSession(ctx context.Context, code, codeVerifier string) (*Session, error) {
	args := m.Called(ctx, code, codeVerifier)
	s, _ := args.Get(0).(*Session)
	return s, args.Error(1)
}

func (m *MockProvider) AuthorizeURL(req OAuthRequest) (string, error) {
	args := m.Called(req)
	return args.String(0), args.Error(1)
}

func (m *MockProvider) IsEmailVerified(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

type stubLookup struct {
	verified map[string]bool
	err      error
	calls    []string
}

func (s *stubLookup) IsEmailVerified(ctx context.Context, email string) (bool, error) {
	s.calls = append(s.calls, email)
	if s.err != nil {
		return false, s.err
	}
	return s.verified[email], nil
}

type stubAvatars struct {
	url string
}

func (s stubAvatars) ResolveAvatar(provider string, user *User, baseURL string) string {
	return s.url
}

type testConfig struct {
	dev bool
}

func (c testConfig) GetSiteURL() string           { return "https://app.example.com" }
func (c testConfig) GetLoginPath() string         { return "/auth/login" }
func (c testConfig) GetResetPasswordPath() string { return "/auth/reset-password" }
func (c testConfig) GetCallbackPath() string      { return "/auth/callback" }
func (c testConfig) IsDevelopment() bool          { return c.dev }
func (c testConfig) GetCookieSecure() bool        { return !c.dev }

type recordingObserver struct {
	outcomes []CallbackOutcome
	alerts   []Alert
	failures []ProviderErrorKind
}

func (r *recordingObserver) CallbackResolved(o CallbackOutcome) {
	r.outcomes = append(r.outcomes, o)
}

func (r *recordingObserver) AlertAdded(a Alert) {
	r.alerts = append(r.alerts, a)
}

func (r *recordingObserver) ProviderFailed(op string, kind ProviderErrorKind) {
	r.failures = append(r.failures, kind)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

func confirmedAt() *time.Time {
	t := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	return &t
}
