package social

import "github.com/goliatone/go-errors"

const (
	TextCodeProviderNotFound = "social_provider_not_found"
	TextCodeAuthorizeFailed  = "social_authorize_failed"
)

// ErrProviderNotFound is returned when a requested provider is not configured.
var ErrProviderNotFound = errors.New("social provider not found", errors.CategoryNotFound).
	WithTextCode(TextCodeProviderNotFound).
	WithCode(errors.CodeNotFound)

func authorizeFailed(err error, provider string) error {
	wrapped := errors.Wrap(err, errors.CategoryAuth, "could not start social sign in").
		WithTextCode(TextCodeAuthorizeFailed).
		WithCode(errors.CodeBadRequest)
	wrapped.WithMetadata(map[string]any{"provider": provider})
	return wrapped
}
