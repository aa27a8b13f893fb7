package authui

import (
	"context"
	"net/url"
	"strings"
)

// CallbackOutcome names the branch the classifier took.
type CallbackOutcome string

const (
	OutcomeExpiredAlreadyVerified     CallbackOutcome = "expired_already_verified"
	OutcomeExpiredPendingReverify     CallbackOutcome = "expired_pending_reverify"
	OutcomeAlreadyVerified            CallbackOutcome = "already_verified"
	OutcomeExchangeFailedCrossBrowser CallbackOutcome = "exchange_failed_cross_browser"
	OutcomeExchangeFailed             CallbackOutcome = "exchange_failed"
	OutcomeRecovery                   CallbackOutcome = "recovery"
	OutcomeOAuthContinue              CallbackOutcome = "oauth_continue"
	OutcomeVerifiedFresh              CallbackOutcome = "verified_fresh"
	OutcomeUnresolved                 CallbackOutcome = "unresolved"
)

const (
	CallbackTypeRecovery = "recovery"
	CallbackTypeOAuth    = "oauth"
)

const (
	verifyEmailErrorPrefix = "Could not verify email: "
	unexpectedErrorMessage = "An unexpected error occurred"
)

// CallbackRequest is the parsed callback query plus request metadata.
type CallbackRequest struct {
	Origin           string
	ForwardedHost    string
	Error            string
	ErrorDescription string
	Code             string
	Type             string
	EmailVerify      string
	Next             string
	CodeVerifier     string
}

// CallbackDecision is the single result of classifying a callback.
type CallbackDecision struct {
	Outcome     CallbackOutcome
	RedirectURL string
	Message     string
	ErrorCode   string
	Email       string
	// Session is set when the user should stay signed in.
	Session *Session
}

// AvatarResolver picks the avatar URL to store for a user that signed in
// with provider. An empty result leaves the profile untouched.
type AvatarResolver interface {
	ResolveAvatar(provider string, user *User, baseURL string) string
}

// CallbackClassifier decides where a verification or OAuth callback goes.
type CallbackClassifier struct {
	provider CallbackProvider
	lookup   VerificationLookup
	avatars  AvatarResolver
	config   Config
	logger   Logger
	observer Observer
}

type CallbackClassifierOption func(*CallbackClassifier)

func WithCallbackLogger(l Logger) CallbackClassifierOption {
	return func(c *CallbackClassifier) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithCallbackObserver(o Observer) CallbackClassifierOption {
	return func(c *CallbackClassifier) {
		c.observer = normalizeObserver(o)
	}
}

func WithAvatarResolver(r AvatarResolver) CallbackClassifierOption {
	return func(c *CallbackClassifier) {
		c.avatars = r
	}
}

func NewCallbackClassifier(provider CallbackProvider, lookup VerificationLookup, cfg Config, opts ...CallbackClassifierOption) *CallbackClassifier {
	c := &CallbackClassifier{
		provider: provider,
		lookup:   lookup,
		config:   cfg,
		logger:   defLogger{},
		observer: noopObserver{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify resolves req into exactly one decision. Collaborator failures
// are folded into the decision, never returned.
func (c *CallbackClassifier) Classify(ctx context.Context, req CallbackRequest) CallbackDecision {
	decision := c.classify(ctx, req)
	c.observer.CallbackResolved(decision.Outcome)
	c.logger.Debug("callback classified",
		"outcome", decision.Outcome,
		"type", req.Type,
		"has_code", req.Code != "",
	)
	return decision
}

func (c *CallbackClassifier) classify(ctx context.Context, req CallbackRequest) CallbackDecision {
	if req.Error != "" && strings.Contains(req.ErrorDescription, "expired") {
		return c.classifyExpired(ctx, req)
	}

	if req.Code != "" {
		return c.classifyCode(ctx, req)
	}

	return c.loginDecision(req, OutcomeUnresolved, queryParam{"error", CodeVerificationExpired})
}

func (c *CallbackClassifier) classifyExpired(ctx context.Context, req CallbackRequest) CallbackDecision {
	if req.EmailVerify != "" && c.isVerified(ctx, req.EmailVerify) {
		return c.loginDecision(req, OutcomeExpiredAlreadyVerified,
			queryParam{"message", CodeAlreadyVerified},
			queryParam{"email", req.EmailVerify},
		)
	}

	params := []queryParam{{"error", CodeVerificationExpired}}
	if req.EmailVerify != "" {
		params = append(params, queryParam{"email", req.EmailVerify})
	}
	return c.loginDecision(req, OutcomeExpiredPendingReverify, params...)
}

func (c *CallbackClassifier) classifyCode(ctx context.Context, req CallbackRequest) CallbackDecision {
	if user, err := c.provider.GetUser(ctx, req.Code); err == nil && user.IsEmailConfirmed() {
		return c.loginDecision(req, OutcomeAlreadyVerified, queryParam{"message", CodeAlreadyVerified})
	}

	session, err := c.provider.ExchangeCodeForSession(ctx, req.Code, req.CodeVerifier)
	if err != nil {
		return c.classifyExchangeFailure(ctx, req, err)
	}
	if session == nil {
		return c.loginDecision(req, OutcomeExchangeFailed, queryParam{"error", verifyEmailErrorPrefix + unexpectedErrorMessage})
	}

	switch req.Type {
	case CallbackTypeRecovery:
		return CallbackDecision{
			Outcome:     OutcomeRecovery,
			RedirectURL: joinURL(req.Origin, c.config.GetResetPasswordPath()),
			Session:     session,
		}
	case CallbackTypeOAuth:
		return c.continueOAuth(ctx, req, session)
	}

	if err := c.provider.SignOut(ctx, session.AccessToken); err != nil {
		c.logger.Warn("sign out after verification failed", "error", err)
	}
	return c.loginDecision(req, OutcomeVerifiedFresh, queryParam{"message", CodeVerificationSuccess})
}

func (c *CallbackClassifier) classifyExchangeFailure(ctx context.Context, req CallbackRequest, err error) CallbackDecision {
	kind := ClassifyProviderError(err)
	c.logger.Info("code exchange failed", "kind", kind, "error", err)

	if kind == ProviderErrorFlowState && req.EmailVerify != "" && c.isVerified(ctx, req.EmailVerify) {
		return c.loginDecision(req, OutcomeExchangeFailedCrossBrowser,
			queryParam{"message", CodeVerifiedDifferentBrowser},
			queryParam{"email", req.EmailVerify},
		)
	}

	msg := unexpectedErrorMessage
	if perr, ok := AsProviderError(err); ok {
		msg = perr.Error()
	}
	return c.loginDecision(req, OutcomeExchangeFailed, queryParam{"error", verifyEmailErrorPrefix + msg})
}

func (c *CallbackClassifier) continueOAuth(ctx context.Context, req CallbackRequest, session *Session) CallbackDecision {
	next := SanitizeNext(req.Next)
	base := c.publicBase(req)

	if c.avatars != nil && session.User != nil {
		avatar := c.avatars.ResolveAvatar(session.User.Provider(), session.User, base)
		if avatar != "" {
			_, err := c.provider.UpdateUser(ctx, session.AccessToken, UserUpdate{
				Data: map[string]any{"avatar_url": avatar},
			})
			if err != nil {
				c.logger.Warn("avatar update failed", "provider", session.User.Provider(), "error", err)
			}
		}
	}

	return CallbackDecision{
		Outcome:     OutcomeOAuthContinue,
		RedirectURL: base + next,
		Session:     session,
	}
}

// publicBase is the origin users should be sent back to. Behind a proxy
// the forwarded host wins outside development.
func (c *CallbackClassifier) publicBase(req CallbackRequest) string {
	if c.config.IsDevelopment() || req.ForwardedHost == "" {
		return strings.TrimRight(req.Origin, "/")
	}
	return "https://" + req.ForwardedHost
}

// isVerified treats lookup failures as not verified.
func (c *CallbackClassifier) isVerified(ctx context.Context, email string) bool {
	if c.lookup == nil {
		return false
	}
	ok, err := c.lookup.IsEmailVerified(ctx, email)
	if err != nil {
		c.logger.Warn("verification lookup failed", "error", err)
		return false
	}
	return ok
}

type queryParam struct {
	key   string
	value string
}

func (c *CallbackClassifier) loginDecision(req CallbackRequest, outcome CallbackOutcome, params ...queryParam) CallbackDecision {
	d := CallbackDecision{
		Outcome:     outcome,
		RedirectURL: joinURL(req.Origin, c.config.GetLoginPath()) + encodeOrdered(params),
	}
	for _, p := range params {
		switch p.key {
		case "message":
			d.Message = p.value
		case "error":
			d.ErrorCode = p.value
		case "email":
			d.Email = p.value
		}
	}
	return d
}

// encodeOrdered builds a query string keeping params in the given order.
func encodeOrdered(params []queryParam) string {
	if len(params) == 0 {
		return ""
	}
	var b strings.Builder
	for i, p := range params {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.value))
	}
	return b.String()
}

func joinURL(origin, path string) string {
	return strings.TrimRight(origin, "/") + path
}

// SanitizeNext keeps next only when it is a local path.
func SanitizeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") {
		return "/"
	}
	if strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}
