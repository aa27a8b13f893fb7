package authui

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"net/url"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/time/rate"
)

const defaultProviderTimeout = 10 * time.Second

// FormState is the result of a form action. Provider failures are folded
// into it so handlers only render.
type FormState struct {
	Success             bool              `json:"success"`
	Message             string            `json:"message,omitempty"`
	Errors              map[string]string `json:"errors,omitempty"`
	VerificationPending bool              `json:"verification_pending,omitempty"`
	Email               string            `json:"email,omitempty"`
	Alert               *Alert            `json:"alert,omitempty"`
	Session             *Session          `json:"-"`
}

func failed(errs map[string]string, alert Alert) FormState {
	return FormState{Errors: errs, Alert: &alert}
}

// AuthService runs the auth form actions against the identity provider.
type AuthService struct {
	provider SessionProvider
	config   Config
	logger   Logger
	observer Observer
	activity ActivitySink
	timeout  time.Duration

	resendLimit rate.Limit
	resendBurst int
	limitersMu  sync.Mutex
	limiters    map[string]*rate.Limiter
}

type AuthServiceOption func(*AuthService)

func WithServiceLogger(l Logger) AuthServiceOption {
	return func(s *AuthService) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithServiceObserver(o Observer) AuthServiceOption {
	return func(s *AuthService) {
		s.observer = normalizeObserver(o)
	}
}

func WithActivitySink(sink ActivitySink) AuthServiceOption {
	return func(s *AuthService) {
		s.activity = normalizeActivitySink(sink)
	}
}

// WithProviderTimeout bounds every provider call.
func WithProviderTimeout(d time.Duration) AuthServiceOption {
	return func(s *AuthService) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithResendLimit throttles verification resends per email address.
func WithResendLimit(every time.Duration, burst int) AuthServiceOption {
	return func(s *AuthService) {
		if every > 0 {
			s.resendLimit = rate.Every(every)
		}
		if burst > 0 {
			s.resendBurst = burst
		}
	}
}

func NewAuthService(provider SessionProvider, cfg Config, opts ...AuthServiceOption) *AuthService {
	s := &AuthService{
		provider:    provider,
		config:      cfg,
		logger:      defLogger{},
		observer:    noopObserver{},
		activity:    noopActivitySink{},
		timeout:     defaultProviderTimeout,
		resendLimit: rate.Every(time.Minute),
		resendBurst: 2,
		limiters:    map[string]*rate.Limiter{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// call runs a provider operation with the service timeout and reports
// failures to the observer.
func (s *AuthService) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := fn(ctx); err != nil {
		kind := ClassifyProviderError(err)
		s.observer.ProviderFailed(op, kind)
		s.logger.Debug("provider call failed", "operation", op, "kind", kind, "error", err)
		return err
	}
	return nil
}

func (s *AuthService) record(ctx context.Context, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	if err := s.activity.Record(ctx, event); err != nil {
		s.logger.Warn("activity sink failed", "event", event.EventType, "error", err)
	}
}

func (s *AuthService) callbackURL(email string) string {
	base := strings.TrimRight(s.config.GetSiteURL(), "/") + s.config.GetCallbackPath()
	if email == "" {
		return base
	}
	return base + "?email_verify=" + url.QueryEscape(email)
}

// Signup creates an account. Existing accounts are reported as such, with
// unverified ones flagged for a verification resend.
func (s *AuthService) Signup(ctx context.Context, payload SignupPayload) FormState {
	if err := payload.Validate(); err != nil {
		errs, alert := formErrors(err, nil)
		return FormState{Errors: errs, Alert: alert, Email: payload.Email}
	}

	email := strings.TrimSpace(payload.Email)
	err := s.call(ctx, "signup", func(ctx context.Context) error {
		_, err := s.provider.SignUp(ctx, SignUpRequest{
			Email:           email,
			Password:        payload.Password,
			EmailRedirectTo: s.callbackURL(email),
			Data:            map[string]any{"full_name": strings.TrimSpace(payload.FullName)},
		})
		return err
	})

	if err != nil {
		if ClassifyProviderError(err) == ProviderErrorAlreadyRegistered {
			return s.existingAccount(ctx, email)
		}
		s.logger.Error("signup failed", "error", wrapProviderError(ErrProviderFailure, "signup", err))
		alert := NewAuthAlert(AlertSignupError)
		return FormState{
			Errors: map[string]string{FieldGeneral: alert.Message},
			Alert:  &alert,
			Email:  email,
		}
	}

	s.record(ctx, ActivityEvent{EventType: ActivityEventSignup, Email: email})

	alert := NewAuthAlert(AlertSignupSuccess, WithResendVerification(&ResendVerification{Email: email}))
	return FormState{
		Success:             true,
		Message:             alert.Message,
		VerificationPending: true,
		Email:               email,
		Alert:               &alert,
	}
}

// existingAccount probes the account with a throwaway password: the
// provider only reports "not confirmed" for unverified accounts.
func (s *AuthService) existingAccount(ctx context.Context, email string) FormState {
	probe := s.call(ctx, "signup_probe", func(ctx context.Context) error {
		_, err := s.provider.SignInWithPassword(ctx, email, randomSecret())
		return err
	})

	if ClassifyProviderError(probe) == ProviderErrorEmailNotConfirmed {
		alert := NewAuthAlert(AlertSignupAccountExistsUnverified, WithResendVerification(&ResendVerification{Email: email}))
		return FormState{
			Errors:              map[string]string{FieldGeneral: MessageAccountExistsUnverified},
			VerificationPending: true,
			Email:               email,
			Alert:               &alert,
		}
	}

	alert := NewAuthAlert(AlertSignupAccountExists)
	return FormState{
		Errors: map[string]string{FieldGeneral: MessageAccountExists},
		Email:  email,
		Alert:  &alert,
	}
}

// Login signs the user in with email and password.
func (s *AuthService) Login(ctx context.Context, payload LoginPayload) FormState {
	if err := payload.Validate(); err != nil {
		errs, alert := formErrors(err, nil)
		return FormState{Errors: errs, Alert: alert, Email: payload.Email}
	}

	email := strings.TrimSpace(payload.Email)
	var session *Session
	err := s.call(ctx, "login", func(ctx context.Context) error {
		var err error
		session, err = s.provider.SignInWithPassword(ctx, email, payload.Password)
		return err
	})

	if err != nil {
		s.record(ctx, ActivityEvent{
			EventType: ActivityEventLoginFailure,
			Email:     email,
			Metadata:  map[string]any{"kind": string(ClassifyProviderError(err))},
		})

		if ClassifyProviderError(err) == ProviderErrorEmailNotConfirmed {
			alert := NewAuthAlert(AlertLoginVerificationRequired, WithResendVerification(&ResendVerification{Email: email}))
			return FormState{
				Errors:              map[string]string{FieldGeneral: CodeEmailNotConfirmed},
				VerificationPending: true,
				Email:               email,
				Alert:               &alert,
			}
		}

		alert := NewAuthAlert(AlertLoginError)
		state := failed(map[string]string{FieldGeneral: alert.Message}, alert)
		state.Email = email
		return state
	}

	userID := ""
	if session != nil && session.User != nil {
		userID = session.User.ID
	}
	s.record(ctx, ActivityEvent{EventType: ActivityEventLoginSuccess, UserID: userID, Email: email})

	alert := NewAuthAlert(AlertLoginSuccess)
	return FormState{Success: true, Message: alert.Message, Email: email, Alert: &alert, Session: session}
}

// Logout ends the provider session. A missing token is not an error.
func (s *AuthService) Logout(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return nil
	}
	err := s.call(ctx, "logout", func(ctx context.Context) error {
		return s.provider.SignOut(ctx, accessToken)
	})
	if err != nil {
		return wrapProviderError(ErrProviderFailure, "logout", err)
	}
	s.record(ctx, ActivityEvent{EventType: ActivityEventLogout})
	return nil
}

// ResendVerification asks the provider to send the verification email
// again. Requests are throttled per address.
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	if err := (ResendVerificationPayload{Email: email}).Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid email").
			WithTextCode(TextCodeInvalidPayload)
	}

	if !s.allowResend(email) {
		return ErrRateLimited
	}

	err := s.call(ctx, "resend_verification", func(ctx context.Context) error {
		_, err := s.provider.SignUp(ctx, SignUpRequest{
			Email:           email,
			Password:        randomSecret(),
			EmailRedirectTo: s.callbackURL(email),
			Data:            map[string]any{"email_confirm_resend": true},
		})
		return err
	})

	switch ClassifyProviderError(err) {
	case ProviderErrorDuplicate, ProviderErrorAlreadyRegistered:
		err = nil
	}
	if err != nil {
		return wrapProviderError(ErrProviderFailure, "resend_verification", err)
	}

	s.record(ctx, ActivityEvent{EventType: ActivityEventVerificationResent, Email: email})
	return nil
}

func (s *AuthService) allowResend(email string) bool {
	s.limitersMu.Lock()
	defer s.limitersMu.Unlock()

	lim, ok := s.limiters[email]
	if !ok {
		lim = rate.NewLimiter(s.resendLimit, s.resendBurst)
		s.limiters[email] = lim
	}
	return lim.Allow()
}

// ResetPassword sends recovery instructions.
func (s *AuthService) ResetPassword(ctx context.Context, payload ForgotPasswordPayload) FormState {
	if err := payload.Validate(); err != nil {
		errs, alert := formErrors(err, nil)
		return FormState{Errors: errs, Alert: alert, Email: payload.Email}
	}

	email := strings.TrimSpace(payload.Email)
	redirect := strings.TrimRight(s.config.GetSiteURL(), "/") + s.config.GetResetPasswordPath()
	err := s.call(ctx, "reset_password", func(ctx context.Context) error {
		return s.provider.ResetPasswordForEmail(ctx, email, redirect)
	})
	if err != nil {
		s.logger.Error("reset password failed", "error", wrapProviderError(ErrProviderFailure, "reset_password", err))
		alert := NewAuthAlert(AlertPasswordResetError)
		return failed(map[string]string{FieldGeneral: alert.Message}, alert)
	}

	s.record(ctx, ActivityEvent{EventType: ActivityEventPasswordResetRequest, Email: email})

	alert := NewAuthAlert(AlertPasswordResetSuccess)
	return FormState{Success: true, Message: alert.Message, Email: email, Alert: &alert}
}

// RestoreSession refreshes an expired session from its refresh token.
func (s *AuthService) RestoreSession(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, ErrSessionMissing
	}

	var session *Session
	err := s.call(ctx, "get_session", func(ctx context.Context) error {
		var e error
		session, e = s.provider.GetSession(ctx, refreshToken)
		return e
	})
	if err != nil {
		return nil, wrapProviderError(ErrProviderFailure, "get_session", err)
	}
	if session == nil || session.AccessToken == "" {
		return nil, ErrSessionMissing
	}
	return session, nil
}

// UpdatePassword sets a new password using the recovery session and signs
// the user out afterwards.
func (s *AuthService) UpdatePassword(ctx context.Context, accessToken string, payload UpdatePasswordPayload) FormState {
	if err := payload.Validate(); err != nil {
		errs, alert := formErrors(err, map[string]AlertKey{FieldPassword: AlertFormPasswordMinLength})
		return FormState{Errors: errs, Alert: alert}
	}

	var user *User
	var err error = ErrSessionMissing
	if accessToken != "" {
		err = s.call(ctx, "get_user", func(ctx context.Context) error {
			var e error
			user, e = s.provider.GetUser(ctx, accessToken)
			return e
		})
	}
	if err != nil || user == nil {
		s.logger.Info("password update without valid recovery session", "error", err)
		alert := NewAuthAlert(AlertPasswordLinkExpired)
		return failed(map[string]string{FieldGeneral: alert.Message}, alert)
	}

	if e := s.call(ctx, "update_user", func(ctx context.Context) error {
		_, e := s.provider.UpdateUser(ctx, accessToken, UserUpdate{Password: payload.Password})
		return e
	}); e != nil {
		s.logger.Error("update password failed", "error", wrapProviderError(ErrProviderFailure, "update_user", e))
		alert := NewAuthAlert(AlertPasswordUpdateError)
		return failed(map[string]string{FieldGeneral: alert.Message}, alert)
	}

	if e := s.call(ctx, "logout", func(ctx context.Context) error {
		return s.provider.SignOut(ctx, accessToken)
	}); e != nil {
		s.logger.Warn("sign out after password update failed", "error", e)
	}

	s.record(ctx, ActivityEvent{EventType: ActivityEventPasswordUpdated, UserID: user.ID, Email: user.Email})

	alert := NewAuthAlert(AlertPasswordUpdateSuccess)
	return FormState{Success: true, Message: alert.Message, Alert: &alert}
}

// randomSecret returns a password no account will ever have.
func randomSecret() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b) + "aA1!"
}
