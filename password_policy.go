package authui

import (
	"errors"
	"strings"
	"unicode/utf8"

	validation "github.com/go-ozzo/ozzo-validation"
)

const (
	PasswordMinLength = 12
	PasswordMaxLength = 123

	// PasswordSpecialCharacters is the closed set accepted by the special
	// character rule.
	PasswordSpecialCharacters = "!@#$%^&*"
)

// PasswordRequirement is one line of the password requirements report.
type PasswordRequirement struct {
	Description string `json:"description"`
	Satisfied   bool   `json:"satisfied"`
}

type passwordRule struct {
	description string
	check       func(string) bool
}

// order matters, views render the report as is
var passwordRules = []passwordRule{
	{
		description: "Be between 12 and 123 characters long",
		check: func(s string) bool {
			n := utf8.RuneCountInString(s)
			return n >= PasswordMinLength && n <= PasswordMaxLength
		},
	},
	{
		description: "Contain at least one lowercase letter (a-z)",
		check:       containsInRange('a', 'z'),
	},
	{
		description: "Contain at least one uppercase letter (A-Z)",
		check:       containsInRange('A', 'Z'),
	},
	{
		description: "Contain at least one number (0-9)",
		check:       containsInRange('0', '9'),
	},
	{
		description: "Contain at least one special character (!@#$%^&*)",
		check: func(s string) bool {
			return strings.ContainsAny(s, PasswordSpecialCharacters)
		},
	},
}

func containsInRange(lo, hi rune) func(string) bool {
	return func(s string) bool {
		for _, r := range s {
			if r >= lo && r <= hi {
				return true
			}
		}
		return false
	}
}

// IsValidPassword reports whether password satisfies every rule of the
// policy.
func IsValidPassword(password string) bool {
	for _, rule := range passwordRules {
		if !rule.check(password) {
			return false
		}
	}
	return true
}

// PasswordRequirements evaluates each rule independently and returns the
// report in display order.
func PasswordRequirements(password string) []PasswordRequirement {
	out := make([]PasswordRequirement, 0, len(passwordRules))
	for _, rule := range passwordRules {
		out = append(out, PasswordRequirement{
			Description: rule.description,
			Satisfied:   rule.check(password),
		})
	}
	return out
}

// UnmetPasswordRequirements returns the descriptions of the failed rules.
func UnmetPasswordRequirements(password string) []string {
	var unmet []string
	for _, req := range PasswordRequirements(password) {
		if !req.Satisfied {
			unmet = append(unmet, req.Description)
		}
	}
	return unmet
}

// PasswordRule validates a string field against the password policy.
var PasswordRule validation.Rule = validation.By(func(value any) error {
	s, _ := value.(string)
	if s == "" {
		// Required handles emptiness
		return nil
	}
	if unmet := UnmetPasswordRequirements(s); len(unmet) > 0 {
		return errors.New("password requirements not met: " + strings.Join(unmet, "; "))
	}
	return nil
})
