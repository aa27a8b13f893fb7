package authui

import (
	"context"
	"time"
)

// AlertKind groups alerts by the auth flow that raised them.
type AlertKind string

const (
	AlertKindLogin        AlertKind = "LOGIN"
	AlertKindSignup       AlertKind = "SIGNUP"
	AlertKindVerification AlertKind = "VERIFICATION"
	AlertKindPassword     AlertKind = "PASSWORD"
	AlertKindForm         AlertKind = "FORM"
)

type AlertStatus string

const (
	AlertStatusSuccess AlertStatus = "SUCCESS"
	AlertStatusError   AlertStatus = "ERROR"
	AlertStatusWarning AlertStatus = "WARNING"
	AlertStatusInfo    AlertStatus = "INFO"
)

// AlertVariant is the presentation style of an alert.
type AlertVariant string

const (
	AlertVariantSuccess     AlertVariant = "success"
	AlertVariantDestructive AlertVariant = "destructive"
	AlertVariantWarning     AlertVariant = "warning"
	AlertVariantInfo        AlertVariant = "info"
)

// VariantForStatus returns the default presentation for a status.
func VariantForStatus(status AlertStatus) AlertVariant {
	switch status {
	case AlertStatusSuccess:
		return AlertVariantSuccess
	case AlertStatusError:
		return AlertVariantDestructive
	case AlertStatusWarning:
		return AlertVariantWarning
	default:
		return AlertVariantInfo
	}
}

// AlertAction is an optional call to action rendered with an alert.
type AlertAction struct {
	Label string `json:"label"`
	Href  string `json:"href,omitempty"`
}

// ResendVerification lets the user request a new verification email
// straight from the alert.
type ResendVerification struct {
	Email   string                                        `json:"email"`
	Resend  func(ctx context.Context, email string) error `json:"-"`
	OnError func(err error)                               `json:"-"`
}

// Do runs the resend callback and reports failures to OnError.
func (r *ResendVerification) Do(ctx context.Context) error {
	if r == nil || r.Resend == nil {
		return nil
	}
	err := r.Resend(ctx, r.Email)
	if err != nil && r.OnError != nil {
		r.OnError(err)
	}
	return err
}

// Alert is a user facing notification.
type Alert struct {
	ID                 string              `json:"id"`
	Kind               AlertKind           `json:"kind"`
	Status             AlertStatus         `json:"status"`
	Title              string              `json:"title"`
	Message            string              `json:"message"`
	Variant            AlertVariant        `json:"variant"`
	Action             *AlertAction        `json:"action,omitempty"`
	AutoExpireAfter    time.Duration       `json:"auto_expire_after,omitempty"`
	Persistent         bool                `json:"persistent"`
	ResendVerification *ResendVerification `json:"resend_verification,omitempty"`
}

// ViewData flattens the alert for templates.
func (a Alert) ViewData() map[string]any {
	out := map[string]any{
		"id":         a.ID,
		"kind":       string(a.Kind),
		"status":     string(a.Status),
		"title":      a.Title,
		"message":    a.Message,
		"variant":    string(a.Variant),
		"persistent": a.Persistent,
	}
	if a.Action != nil {
		out["action"] = map[string]any{
			"label": a.Action.Label,
			"href":  a.Action.Href,
		}
	}
	if a.ResendVerification != nil && a.ResendVerification.Email != "" {
		out["resend_email"] = a.ResendVerification.Email
	}
	if a.AutoExpireAfter > 0 {
		out["auto_expire_ms"] = a.AutoExpireAfter.Milliseconds()
	}
	return out
}

func alertsViewData(alerts []Alert) []map[string]any {
	out := make([]map[string]any, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, a.ViewData())
	}
	return out
}
