package authui

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

const (
	FieldFullName        = "full_name"
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldConfirmPassword = "confirm_password"
	FieldGeneral         = "general"
)

// UpdatePasswordMinLength is the minimum accepted when changing a password
// from a recovery link.
const UpdatePasswordMinLength = 8

// SignupPayload is the signup form
type SignupPayload struct {
	FullName string `form:"full_name" json:"full_name"`
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r SignupPayload) Validate() error {
	r.FullName = strings.TrimSpace(r.FullName)
	return validation.ValidateStruct(&r,
		validation.Field(&r.FullName, validation.Required, validation.RuneLength(2, 200)),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, PasswordRule),
	)
}

// LoginPayload is the login form
type LoginPayload struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
	Next     string `form:"redirect_to" json:"redirect_to"`
}

func (r LoginPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

// ForgotPasswordPayload requests a recovery email
type ForgotPasswordPayload struct {
	Email string `form:"email" json:"email"`
}

func (r ForgotPasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

// ResendVerificationPayload requests a new verification email
type ResendVerificationPayload struct {
	Email string `form:"email" json:"email"`
}

func (r ResendVerificationPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

// UpdatePasswordPayload sets a new password from a recovery session
type UpdatePasswordPayload struct {
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

func (r UpdatePasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Password, validation.Required, validation.RuneLength(UpdatePasswordMinLength, PasswordMaxLength)),
		validation.Field(&r.ConfirmPassword, validation.By(ValidateStringEquals(r.Password))),
	)
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match")
		}
		return nil
	}
}

// FormatValidationErrorToMap flattens ozzo errors into field messages.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for field, ferr := range verrs {
			if ferr != nil {
				out[field] = ferr.Error()
			}
		}
		return out
	}

	out[FieldGeneral] = err.Error()
	return out
}

// fieldAlerts maps invalid form fields to the catalog alert shown for them.
var fieldAlerts = map[string]AlertKey{
	FieldFullName:        AlertFormFullNameRequired,
	FieldEmail:           AlertFormEmailRequired,
	FieldPassword:        AlertFormPasswordRequirements,
	FieldConfirmPassword: AlertFormPasswordsDontMatch,
}

// fieldOrder is the order fields appear on the forms.
var fieldOrder = []string{FieldFullName, FieldEmail, FieldPassword, FieldConfirmPassword}

// formErrors replaces validator output with user facing catalog messages
// and returns the alert for the first invalid field.
func formErrors(err error, overrides map[string]AlertKey) (map[string]string, *Alert) {
	raw := FormatValidationErrorToMap(err)
	out := map[string]string{}
	var first *Alert

	for _, field := range fieldOrder {
		if _, bad := raw[field]; !bad {
			continue
		}
		key, ok := overrides[field]
		if !ok {
			key = fieldAlerts[field]
		}
		alert := NewAuthAlert(key)
		out[field] = alert.Message
		if first == nil {
			first = &alert
		}
	}

	if msg, ok := raw[FieldGeneral]; ok {
		out[FieldGeneral] = msg
	}
	return out, first
}
