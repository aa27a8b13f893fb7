package authui

import (
	"context"
	"strings"
)

// Login page query codes.
const (
	CodeEmailNotConfirmed        = "email_not_confirmed"
	CodeVerificationExpired      = "verification_expired"
	CodeVerificationSuccess      = "verification_success"
	CodeAlreadyVerified          = "already_verified"
	CodeVerifiedDifferentBrowser = "verified_different_browser"
	CodeSignupSuccess            = "signup_success"
)

// AlertSignals are the inputs a page offers to the orchestrator, usually
// read from the query string or from a form action result.
type AlertSignals struct {
	Error          string
	Message        string
	Email          string
	SocialProvider string
}

// ResendFunc requests a new verification email.
type ResendFunc func(ctx context.Context, email string) error

// AlertOrchestrator turns page signals into alerts.
type AlertOrchestrator struct {
	resend ResendFunc
	logger Logger
}

func NewAlertOrchestrator(resend ResendFunc, logger Logger) *AlertOrchestrator {
	if logger == nil {
		logger = defLogger{}
	}
	return &AlertOrchestrator{resend: resend, logger: logger}
}

// Alert maps signals to at most one alert. Errors take precedence over
// messages.
func (o *AlertOrchestrator) Alert(s AlertSignals) (Alert, bool) {
	if s.Error != "" {
		return o.errorAlert(s)
	}
	if s.Message != "" {
		return o.messageAlert(s)
	}
	if s.SocialProvider != "" {
		return socialRedirectAlert(s.SocialProvider)
	}
	return Alert{}, false
}

// Apply feeds the alert for s, if any, into manager.
func (o *AlertOrchestrator) Apply(manager *AlertManager, s AlertSignals) {
	if alert, ok := o.Alert(s); ok {
		manager.Add(alert)
	}
}

func (o *AlertOrchestrator) errorAlert(s AlertSignals) (Alert, bool) {
	switch {
	case s.Error == CodeEmailNotConfirmed:
		return NewAuthAlert(AlertLoginVerificationRequired, o.resendOption(s.Email)), true
	case s.Error == MessageAccountExists:
		return NewAuthAlert(AlertSignupAccountExists), true
	case s.Error == MessageAccountExistsUnverified:
		return NewAuthAlert(AlertSignupAccountExistsUnverified, o.resendOption(s.Email)), true
	case s.Error == CodeVerificationExpired:
		return NewAuthAlert(AlertVerificationExpired, o.resendOption(s.Email)), true
	case strings.Contains(s.Error, "verify"):
		// verification failures without a known code are not surfaced
		return Alert{}, false
	}
	return NewAuthAlert(AlertLoginError, WithAlertMessage(s.Error)), true
}

func (o *AlertOrchestrator) messageAlert(s AlertSignals) (Alert, bool) {
	switch s.Message {
	case CodeVerificationSuccess:
		return NewAuthAlert(AlertVerificationSuccess), true
	case CodeAlreadyVerified:
		return NewAuthAlert(AlertVerificationAlreadyVerified), true
	case CodeVerifiedDifferentBrowser:
		return NewAuthAlert(AlertVerificationVerifiedDifferentBrowser), true
	case CodeSignupSuccess, CatalogMessage(AlertSignupSuccess):
		return NewAuthAlert(AlertSignupSuccess, o.resendOption(s.Email)), true
	}
	return NewAuthAlert(AlertLoginSuccess, WithAlertMessage(s.Message)), true
}

func socialRedirectAlert(provider string) (Alert, bool) {
	switch strings.ToLower(provider) {
	case "azure", "microsoft":
		return NewAuthAlert(AlertLoginRedirectMicrosoft), true
	case "google":
		return NewAuthAlert(AlertLoginRedirectGoogle), true
	case "github":
		return NewAuthAlert(AlertLoginRedirectGithub), true
	}
	return Alert{}, false
}

func (o *AlertOrchestrator) resendOption(email string) AlertOption {
	if email == "" || o.resend == nil {
		return func(*Alert) {}
	}
	return WithResendVerification(&ResendVerification{
		Email:  email,
		Resend: o.resend,
		OnError: func(err error) {
			o.logger.Error("resend verification failed", "email", email, "error", err)
		},
	})
}

// Resend runs the resend capability of alert and reports the result through
// manager.
func (o *AlertOrchestrator) Resend(ctx context.Context, manager *AlertManager, alert Alert) {
	if alert.ResendVerification == nil {
		return
	}
	if err := alert.ResendVerification.Do(ctx); err != nil {
		manager.Add(NewAuthAlert(AlertVerificationResendError))
		return
	}
	manager.Add(NewAuthAlert(AlertVerificationResendSuccess))
}
