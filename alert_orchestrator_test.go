package authui

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAuthAlertSubstitutesEmail(t *testing.T) {
	alert := NewAuthAlert(AlertSignupSuccess, WithResendVerification(&ResendVerification{Email: "a@b.com"}))
	assert.Equal(t, "We sent an email to a@b.com. Click the link inside to get started.", alert.Message)
	assert.Equal(t, AlertVariantInfo, alert.Variant)

	alert = NewAuthAlert(AlertLoginVerificationRequired)
	assert.Contains(t, alert.Message, "unknown")
	assert.Equal(t, AlertVariantWarning, alert.Variant)
}

func TestNewAuthAlertDoesNotShareCatalogAction(t *testing.T) {
	alert := NewAuthAlert(AlertPasswordLinkExpired)
	require.NotNil(t, alert.Action)
	alert.Action.Label = "changed"

	assert.Equal(t, "Request a new link", AlertCatalog[AlertPasswordLinkExpired].Action.Label)
}

func TestCatalogVariants(t *testing.T) {
	for key := range AlertCatalog {
		alert := NewAuthAlert(key)
		assert.Equal(t, VariantForStatus(alert.Status), alert.Variant, key)
		assert.NotEmpty(t, alert.Title, key)
		assert.NotEmpty(t, alert.Message, key)
	}
	assert.Equal(t, AlertVariantDestructive, NewAuthAlert(AlertLoginError).Variant)
}

func TestOrchestratorErrorCodes(t *testing.T) {
	resend := func(ctx context.Context, email string) error { return nil }
	o := NewAlertOrchestrator(resend, nil)

	cases := []struct {
		name    string
		signals AlertSignals
		want    AlertKey
		resend  bool
	}{
		{"email not confirmed", AlertSignals{Error: CodeEmailNotConfirmed, Email: "a@b.com"}, AlertLoginVerificationRequired, true},
		{"account exists", AlertSignals{Error: MessageAccountExists}, AlertSignupAccountExists, false},
		{"account exists unverified", AlertSignals{Error: MessageAccountExistsUnverified, Email: "a@b.com"}, AlertSignupAccountExistsUnverified, true},
		{"verification expired", AlertSignals{Error: CodeVerificationExpired, Email: "a@b.com"}, AlertVerificationExpired, true},
		{"verification expired no email", AlertSignals{Error: CodeVerificationExpired}, AlertVerificationExpired, false},
		{"verification success", AlertSignals{Message: CodeVerificationSuccess}, AlertVerificationSuccess, false},
		{"already verified", AlertSignals{Message: CodeAlreadyVerified}, AlertVerificationAlreadyVerified, false},
		{"different browser", AlertSignals{Message: CodeVerifiedDifferentBrowser}, AlertVerificationVerifiedDifferentBrowser, false},
		{"signup success", AlertSignals{Message: CodeSignupSuccess, Email: "a@b.com"}, AlertSignupSuccess, true},
		{"google redirect", AlertSignals{SocialProvider: "google"}, AlertLoginRedirectGoogle, false},
		{"azure redirect", AlertSignals{SocialProvider: "azure"}, AlertLoginRedirectMicrosoft, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			alert, ok := o.Alert(tc.signals)
			require.True(t, ok)
			expected := AlertCatalog[tc.want]
			assert.Equal(t, expected.Kind, alert.Kind)
			assert.Equal(t, expected.Title, alert.Title)
			assert.Equal(t, tc.resend, alert.ResendVerification != nil)
		})
	}
}

func TestOrchestratorFreeTextSignals(t *testing.T) {
	o := NewAlertOrchestrator(nil, nil)

	alert, ok := o.Alert(AlertSignals{Error: "Something broke"})
	require.True(t, ok)
	assert.Equal(t, "Invalid Credentials", alert.Title)
	assert.Equal(t, "Something broke", alert.Message)

	alert, ok = o.Alert(AlertSignals{Message: "Password changed"})
	require.True(t, ok)
	assert.Equal(t, "Welcome Back", alert.Title)
	assert.Equal(t, "Password changed", alert.Message)

	_, ok = o.Alert(AlertSignals{Error: "Could not verify email: boom"})
	assert.False(t, ok)

	_, ok = o.Alert(AlertSignals{})
	assert.False(t, ok)

	_, ok = o.Alert(AlertSignals{SocialProvider: "myspace"})
	assert.False(t, ok)
}

func TestOrchestratorApplyAndResend(t *testing.T) {
	var calls []string
	fail := true
	resend := func(ctx context.Context, email string) error {
		calls = append(calls, email)
		if fail {
			return errors.New("smtp down")
		}
		return nil
	}

	o := NewAlertOrchestrator(resend, nil)
	m, _ := newTestAlertManager()

	o.Apply(m, AlertSignals{Error: CodeVerificationExpired, Email: "a@b.com"})
	alerts := m.Alerts()
	require.Len(t, alerts, 1)

	o.Resend(context.Background(), m, alerts[0])
	assert.Equal(t, "Email Failed", m.Alerts()[0].Title)

	fail = false
	o.Resend(context.Background(), m, alerts[0])
	assert.Equal(t, "Email Sent", m.Alerts()[0].Title)
	assert.Equal(t, []string{"a@b.com", "a@b.com"}, calls)
}
