package authui

import (
	"errors"
	"fmt"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeSessionMissing  = "authui_session_missing"
	TextCodeRateLimited     = "authui_rate_limited"
	TextCodeInvalidPayload  = "authui_invalid_payload"
	TextCodeProviderFailure = "authui_provider_failure"
	TextCodeInvalidRedirect = "authui_invalid_redirect"
)

// ErrSessionMissing is returned when a request carries no session cookie.
var ErrSessionMissing = goerrors.New("session not found", goerrors.CategoryAuth).
	WithTextCode(TextCodeSessionMissing).
	WithCode(goerrors.CodeUnauthorized)

// ErrRateLimited is returned when resend requests for an email come too
// fast.
var ErrRateLimited = goerrors.New("too many requests", goerrors.CategoryRateLimit).
	WithTextCode(TextCodeRateLimited).
	WithCode(goerrors.CodeBadRequest)

// ErrInvalidPayload is returned when a form cannot be parsed.
var ErrInvalidPayload = goerrors.New("invalid form payload", goerrors.CategoryBadInput).
	WithTextCode(TextCodeInvalidPayload).
	WithCode(goerrors.CodeBadRequest)

// ErrProviderFailure wraps unexpected identity provider failures.
var ErrProviderFailure = goerrors.New("identity provider request failed", goerrors.CategoryOperation).
	WithTextCode(TextCodeProviderFailure).
	WithCode(goerrors.CodeInternal)

// ErrInvalidRedirect is returned for redirect targets outside the site.
var ErrInvalidRedirect = goerrors.New("invalid redirect target", goerrors.CategoryBadInput).
	WithTextCode(TextCodeInvalidRedirect).
	WithCode(goerrors.CodeBadRequest)

// ProviderError is the normalized failure returned by identity provider
// clients.
type ProviderError struct {
	Operation string
	Status    int
	Code      string
	Message   string
	Err       error
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "provider error"
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Operation != "" {
		return fmt.Sprintf("%s failed", e.Operation)
	}
	return "provider error"
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *ProviderError) Metadata() map[string]any {
	if e == nil {
		return nil
	}
	meta := map[string]any{}
	if e.Operation != "" {
		meta["operation"] = e.Operation
	}
	if e.Status != 0 {
		meta["status"] = e.Status
	}
	if e.Code != "" {
		meta["code"] = e.Code
	}
	if e.Message != "" {
		meta["message"] = e.Message
	}
	return meta
}

// AsProviderError reports whether err carries a *ProviderError.
func AsProviderError(err error) (*ProviderError, bool) {
	var perr *ProviderError
	if errors.As(err, &perr) && perr != nil {
		return perr, true
	}
	return nil, false
}

// ProviderErrorKind is the meaning assigned to a provider failure.
type ProviderErrorKind string

const (
	ProviderErrorUnclassified      ProviderErrorKind = "unclassified"
	ProviderErrorAlreadyRegistered ProviderErrorKind = "already_registered"
	ProviderErrorEmailNotConfirmed ProviderErrorKind = "email_not_confirmed"
	ProviderErrorFlowState         ProviderErrorKind = "flow_state"
	ProviderErrorDuplicate         ProviderErrorKind = "duplicate"
)

// providerErrorRules maps provider error codes and message fragments to a
// kind. The first matching rule wins. Provider wording changes only need an
// edit here.
var providerErrorRules = []struct {
	code     string
	fragment string
	kind     ProviderErrorKind
}{
	{code: "user_already_exists", fragment: "User already registered", kind: ProviderErrorAlreadyRegistered},
	{code: "email_not_confirmed", fragment: "Email not confirmed", kind: ProviderErrorEmailNotConfirmed},
	{code: "flow_state_not_found", fragment: "flow state", kind: ProviderErrorFlowState},
	{code: "flow_state_expired", fragment: "code verifier", kind: ProviderErrorFlowState},
	{code: "otp_expired", fragment: "expired", kind: ProviderErrorFlowState},
	{fragment: "unique", kind: ProviderErrorDuplicate},
}

// ClassifyProviderError returns the kind of err, or ProviderErrorUnclassified
// when no rule matches.
func ClassifyProviderError(err error) ProviderErrorKind {
	if err == nil {
		return ProviderErrorUnclassified
	}

	code := ""
	if perr, ok := AsProviderError(err); ok {
		code = perr.Code
	}
	msg := err.Error()

	for _, rule := range providerErrorRules {
		if code != "" && rule.code != "" && code == rule.code {
			return rule.kind
		}
		if strings.Contains(msg, rule.fragment) {
			return rule.kind
		}
	}
	return ProviderErrorUnclassified
}

// wrapProviderError clones base and attaches the provider failure details.
func wrapProviderError(base *goerrors.Error, operation string, err error) *goerrors.Error {
	meta := map[string]any{"operation": operation}
	if perr, ok := AsProviderError(err); ok {
		for k, v := range perr.Metadata() {
			meta[k] = v
		}
	} else if err != nil {
		meta["error"] = err.Error()
	}
	meta["kind"] = string(ClassifyProviderError(err))

	clone := base.Clone()
	if clone == nil {
		clone = base
	}
	if err != nil {
		clone.Source = err
	}
	clone.WithMetadata(meta)
	return clone
}
