package authui

import (
	"strings"
	"time"
)

// AlertKey names an entry of the alert catalog.
type AlertKey string

const (
	AlertLoginSuccess              AlertKey = "LOGIN.SUCCESS"
	AlertLoginError                AlertKey = "LOGIN.ERROR"
	AlertLoginVerificationRequired AlertKey = "LOGIN.VERIFICATION_REQUIRED"
	AlertLoginRedirectMicrosoft    AlertKey = "LOGIN.REDIRECT_MICROSOFT"
	AlertLoginRedirectGoogle       AlertKey = "LOGIN.REDIRECT_GOOGLE"
	AlertLoginRedirectGithub       AlertKey = "LOGIN.REDIRECT_GITHUB"

	AlertSignupSuccess                 AlertKey = "SIGNUP.SUCCESS"
	AlertSignupAccountExists           AlertKey = "SIGNUP.ACCOUNT_EXISTS"
	AlertSignupAccountExistsUnverified AlertKey = "SIGNUP.ACCOUNT_EXISTS_UNVERIFIED"
	AlertSignupError                   AlertKey = "SIGNUP.ERROR"

	AlertVerificationSuccess                  AlertKey = "VERIFICATION.SUCCESS"
	AlertVerificationAlreadyVerified          AlertKey = "VERIFICATION.ALREADY_VERIFIED"
	AlertVerificationExpired                  AlertKey = "VERIFICATION.EXPIRED"
	AlertVerificationPending                  AlertKey = "VERIFICATION.PENDING"
	AlertVerificationResendSuccess            AlertKey = "VERIFICATION.RESEND_SUCCESS"
	AlertVerificationResendError              AlertKey = "VERIFICATION.RESEND_ERROR"
	AlertVerificationVerifiedDifferentBrowser AlertKey = "VERIFICATION.VERIFIED_DIFFERENT_BROWSER"

	AlertPasswordResetSuccess  AlertKey = "PASSWORD.RESET_SUCCESS"
	AlertPasswordResetError    AlertKey = "PASSWORD.RESET_ERROR"
	AlertPasswordUpdateSuccess AlertKey = "PASSWORD.UPDATE_SUCCESS"
	AlertPasswordUpdateError   AlertKey = "PASSWORD.UPDATE_ERROR"
	AlertPasswordLinkExpired   AlertKey = "PASSWORD.LINK_EXPIRED"

	AlertFormFullNameRequired     AlertKey = "FORM.FULL_NAME_REQUIRED"
	AlertFormEmailRequired        AlertKey = "FORM.EMAIL_REQUIRED"
	AlertFormPasswordRequirements AlertKey = "FORM.PASSWORD_REQUIREMENTS"
	AlertFormPasswordMinLength    AlertKey = "FORM.PASSWORD_MIN_LENGTH"
	AlertFormPasswordsDontMatch   AlertKey = "FORM.PASSWORDS_DONT_MATCH"
)

// emailPlaceholder is replaced with the address the alert refers to.
const emailPlaceholder = "${email}"

const verifyEmailMessage = "We sent an email to ${email}. Click the link inside to get started."

// Messages compared verbatim by the orchestrator when they round trip
// through the login page query string.
const (
	MessageAccountExists           = "An account with this email already exists."
	MessageAccountExistsUnverified = "An account with this email already exists. If you recently signed up, please check your email for a verification link."
)

// AlertCatalog holds the predefined alerts.
var AlertCatalog = map[AlertKey]Alert{
	AlertLoginSuccess: {
		Kind:    AlertKindLogin,
		Status:  AlertStatusSuccess,
		Title:   "Welcome Back",
		Message: "Successfully logged in. Redirecting...",
	},
	AlertLoginError: {
		Kind:    AlertKindLogin,
		Status:  AlertStatusError,
		Title:   "Invalid Credentials",
		Message: "Wrong email or password.",
	},
	AlertLoginVerificationRequired: {
		Kind:       AlertKindLogin,
		Status:     AlertStatusWarning,
		Title:      "Verify Your Email",
		Message:    verifyEmailMessage,
		Persistent: true,
	},
	AlertLoginRedirectMicrosoft: {
		Kind:    AlertKindLogin,
		Status:  AlertStatusInfo,
		Title:   "Redirecting",
		Message: "Redirecting to Microsoft login...",
	},
	AlertLoginRedirectGoogle: {
		Kind:    AlertKindLogin,
		Status:  AlertStatusInfo,
		Title:   "Redirecting",
		Message: "Redirecting to Google login...",
	},
	AlertLoginRedirectGithub: {
		Kind:    AlertKindLogin,
		Status:  AlertStatusInfo,
		Title:   "Redirecting",
		Message: "Redirecting to GitHub login...",
	},

	AlertSignupSuccess: {
		Kind:       AlertKindSignup,
		Status:     AlertStatusInfo,
		Title:      "Verify Your Email",
		Message:    verifyEmailMessage,
		Persistent: true,
	},
	AlertSignupAccountExists: {
		Kind:    AlertKindSignup,
		Status:  AlertStatusWarning,
		Title:   "Account Exists",
		Message: MessageAccountExists,
	},
	AlertSignupAccountExistsUnverified: {
		Kind:       AlertKindSignup,
		Status:     AlertStatusWarning,
		Title:      "Account Exists",
		Message:    MessageAccountExistsUnverified,
		Persistent: true,
	},
	AlertSignupError: {
		Kind:    AlertKindSignup,
		Status:  AlertStatusError,
		Title:   "Signup Failed",
		Message: "An error occurred during signup",
	},

	AlertVerificationSuccess: {
		Kind:    AlertKindVerification,
		Status:  AlertStatusSuccess,
		Title:   "Email Verified",
		Message: "Your email has been verified successfully. You can now log in.",
	},
	AlertVerificationAlreadyVerified: {
		Kind:    AlertKindVerification,
		Status:  AlertStatusSuccess,
		Title:   "Already Verified",
		Message: "Your email has already been verified. You can now log in.",
	},
	AlertVerificationExpired: {
		Kind:       AlertKindVerification,
		Status:     AlertStatusWarning,
		Title:      "Verification Link Expired",
		Message:    "Your verification link has expired. Click the link to get a new verification email.",
		Persistent: true,
	},
	AlertVerificationPending: {
		Kind:    AlertKindVerification,
		Status:  AlertStatusInfo,
		Title:   "Verification Required",
		Message: "Please check your email to verify your account",
	},
	AlertVerificationResendSuccess: {
		Kind:            AlertKindVerification,
		Status:          AlertStatusSuccess,
		Title:           "Email Sent",
		Message:         "Verification email has been resent",
		AutoExpireAfter: 5 * time.Second,
	},
	AlertVerificationResendError: {
		Kind:    AlertKindVerification,
		Status:  AlertStatusError,
		Title:   "Email Failed",
		Message: "Could not resend verification email",
	},
	AlertVerificationVerifiedDifferentBrowser: {
		Kind:       AlertKindVerification,
		Status:     AlertStatusSuccess,
		Title:      "Email Verified",
		Message:    "Your email was verified but you are no longer authenticated. Please return to the device where you began sign up and proceed with login, or login on this device to continue.",
		Persistent: true,
	},

	AlertPasswordResetSuccess: {
		Kind:    AlertKindPassword,
		Status:  AlertStatusSuccess,
		Title:   "Reset Email Sent",
		Message: "Check your email for password reset instructions",
	},
	AlertPasswordResetError: {
		Kind:    AlertKindPassword,
		Status:  AlertStatusError,
		Title:   "Reset Failed",
		Message: "Unable to send reset instructions",
	},
	AlertPasswordUpdateSuccess: {
		Kind:    AlertKindPassword,
		Status:  AlertStatusSuccess,
		Title:   "Password Updated",
		Message: "Your password has been updated successfully",
	},
	AlertPasswordUpdateError: {
		Kind:    AlertKindPassword,
		Status:  AlertStatusError,
		Title:   "Update Failed",
		Message: "Unable to update password",
	},
	AlertPasswordLinkExpired: {
		Kind:    AlertKindPassword,
		Status:  AlertStatusError,
		Title:   "Link Expired",
		Message: "Your password reset link has expired",
		Action:  &AlertAction{Label: "Request a new link", Href: "/auth/forgot-password"},
	},

	AlertFormFullNameRequired: {
		Kind:    AlertKindForm,
		Status:  AlertStatusError,
		Title:   "Invalid Input",
		Message: "Please enter your full name",
	},
	AlertFormEmailRequired: {
		Kind:    AlertKindForm,
		Status:  AlertStatusError,
		Title:   "Invalid Input",
		Message: "Please enter a valid email address",
	},
	AlertFormPasswordRequirements: {
		Kind:    AlertKindForm,
		Status:  AlertStatusError,
		Title:   "Invalid Input",
		Message: "Password must meet all requirements",
	},
	AlertFormPasswordMinLength: {
		Kind:    AlertKindForm,
		Status:  AlertStatusError,
		Title:   "Invalid Input",
		Message: "Password must be at least 8 characters",
	},
	AlertFormPasswordsDontMatch: {
		Kind:    AlertKindForm,
		Status:  AlertStatusError,
		Title:   "Invalid Input",
		Message: "Passwords do not match",
	},
}

// CatalogMessage returns the catalog message for key.
func CatalogMessage(key AlertKey) string {
	return AlertCatalog[key].Message
}

// AlertOption customizes an alert built from the catalog.
type AlertOption func(*Alert)

// WithAlertMessage overrides the catalog message.
func WithAlertMessage(msg string) AlertOption {
	return func(a *Alert) {
		if msg != "" {
			a.Message = msg
		}
	}
}

func WithAlertAction(action *AlertAction) AlertOption {
	return func(a *Alert) {
		a.Action = action
	}
}

// WithResendVerification attaches the resend capability.
func WithResendVerification(r *ResendVerification) AlertOption {
	return func(a *Alert) {
		a.ResendVerification = r
	}
}

func WithAutoExpire(d time.Duration) AlertOption {
	return func(a *Alert) {
		a.AutoExpireAfter = d
	}
}

// NewAuthAlert builds an alert from the catalog entry for key. The email
// placeholder is filled with the resend email, or "unknown" when there is
// none.
func NewAuthAlert(key AlertKey, opts ...AlertOption) Alert {
	alert, ok := AlertCatalog[key]
	if !ok {
		alert = AlertCatalog[AlertLoginError]
	}
	if alert.Action != nil {
		action := *alert.Action
		alert.Action = &action
	}

	for _, opt := range opts {
		opt(&alert)
	}

	email := "unknown"
	if alert.ResendVerification != nil && alert.ResendVerification.Email != "" {
		email = alert.ResendVerification.Email
	}
	alert.Message = strings.ReplaceAll(alert.Message, emailPlaceholder, email)
	alert.Title = strings.ReplaceAll(alert.Title, emailPlaceholder, email)

	if alert.Variant == "" {
		alert.Variant = VariantForStatus(alert.Status)
	}
	return alert
}
