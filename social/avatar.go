package social

import (
	"strings"

	authui "github.com/goliatone/go-authui"
)

// DefaultMicrosoftPhotoPath serves the signed in user's Microsoft profile photo.
const DefaultMicrosoftPhotoPath = "/api/auth/microsoft/photo"

// AvatarFunc returns the avatar URL for user, or "" to keep the current one.
type AvatarFunc func(user *authui.User, baseURL string) string

// AvatarResolver maps upstream provider names to avatar rules.
type AvatarResolver struct {
	rules map[string]AvatarFunc
}

var _ authui.AvatarResolver = (*AvatarResolver)(nil)

// NewAvatarResolver returns a resolver with the Microsoft and Google rules.
func NewAvatarResolver() *AvatarResolver {
	r := &AvatarResolver{rules: map[string]AvatarFunc{}}
	photo := PhotoEndpoint(DefaultMicrosoftPhotoPath)
	r.Set("azure", photo)
	r.Set("microsoft", photo)
	r.Set("google", MetadataAvatar("avatar_url", "picture"))
	return r
}

// Set registers fn for provider, replacing any previous rule.
func (r *AvatarResolver) Set(provider string, fn AvatarFunc) {
	r.rules[strings.ToLower(provider)] = fn
}

// ResolveAvatar implements authui.AvatarResolver.
func (r *AvatarResolver) ResolveAvatar(provider string, user *authui.User, baseURL string) string {
	fn, ok := r.rules[strings.ToLower(provider)]
	if !ok || user == nil {
		return ""
	}
	return fn(user, baseURL)
}

// PhotoEndpoint points the avatar at a path served by this application.
func PhotoEndpoint(path string) AvatarFunc {
	return func(_ *authui.User, baseURL string) string {
		return strings.TrimRight(baseURL, "/") + path
	}
}

// MetadataAvatar uses the first non empty user metadata key.
func MetadataAvatar(keys ...string) AvatarFunc {
	return func(user *authui.User, _ string) string {
		for _, key := range keys {
			if v := user.MetadataString(key); v != "" {
				return v
			}
		}
		return ""
	}
}
