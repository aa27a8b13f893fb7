package social

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	authui "github.com/goliatone/go-authui"
	"github.com/goliatone/go-authui/gotrue"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

const signInFailedMessage = "Could not start social sign in. Please try again."

// RouteRegistrar captures the router methods used by the controller.
type RouteRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

// HTTPController starts social sign in through the identity server.
type HTTPController struct {
	registry *Registry
	oauth    authui.OAuthProvider
	site     authui.Config
	config   HTTPConfig
}

// HTTPConfig configures the HTTP controller.
type HTTPConfig struct {
	// Cookies stores the PKCE verifier until the callback exchanges the code.
	Cookies authui.SessionCookies

	// Activity receives a record for every redirect to a provider (optional)
	Activity authui.ActivitySink

	Logger authui.Logger

	// PKCE generates a verifier and challenge (default: gotrue.NewPKCE)
	PKCE func() (verifier, challenge string)

	// ErrorHandler handles errors on the redirect route (optional)
	ErrorHandler func(ctx router.Context, err error) error
}

// NewHTTPController creates a new social auth HTTP controller.
func NewHTTPController(registry *Registry, oauth authui.OAuthProvider, site authui.Config, cfg HTTPConfig) *HTTPController {
	if registry == nil {
		registry = NewRegistry(DefaultProviders()...)
	}
	if cfg.Cookies.VerifierName == "" {
		cfg.Cookies = authui.NewSessionCookies(site.GetCookieSecure())
	}
	if cfg.Activity == nil {
		cfg.Activity = authui.ActivitySinkFunc(func(context.Context, authui.ActivityEvent) error { return nil })
	}
	if cfg.Logger == nil {
		cfg.Logger = nopLogger{}
	}
	if cfg.PKCE == nil {
		cfg.PKCE = gotrue.NewPKCE
	}

	return &HTTPController{
		registry: registry,
		oauth:    oauth,
		site:     site,
		config:   cfg,
	}
}

// RegisterRoutes registers social auth routes on group.
func (c *HTTPController) RegisterRoutes(group RouteRegistrar) {
	group.Get("/providers", c.ListProviders)
	group.Get("/:provider/url", c.AuthorizeURL)
	group.Get("/:provider", c.BeginAuth)
}

// ListProviders returns available social providers.
func (c *HTTPController) ListProviders(ctx router.Context) error {
	return ctx.JSON(router.StatusOK, map[string]any{
		"providers": c.registry.List(),
	})
}

// BeginAuth redirects the browser to the provider.
func (c *HTTPController) BeginAuth(ctx router.Context) error {
	target, err := c.authorize(ctx)
	if err != nil {
		return c.handleError(ctx, err)
	}
	return ctx.Redirect(target, http.StatusTemporaryRedirect)
}

// AuthorizeURL answers with {"url": ...} or {"error": ...} for script
// driven sign in buttons.
func (c *HTTPController) AuthorizeURL(ctx router.Context) error {
	target, err := c.authorize(ctx)
	if err != nil {
		status := http.StatusInternalServerError
		message := err.Error()
		var richErr *errors.Error
		if errors.As(err, &richErr) {
			if richErr.Code != 0 {
				status = richErr.Code
			}
			message = richErr.Message
		}
		return ctx.JSON(status, map[string]string{"error": message})
	}
	return ctx.JSON(router.StatusOK, map[string]string{"url": target})
}

func (c *HTTPController) authorize(ctx router.Context) (string, error) {
	provider, err := c.registry.Get(ctx.Param("provider"))
	if err != nil {
		return "", err
	}

	next := authui.SanitizeNext(ctx.Query("next"))
	verifier, challenge := c.config.PKCE()

	target, err := c.oauth.AuthorizeURL(authui.OAuthRequest{
		Provider:      provider.upstream(),
		RedirectTo:    c.callbackURL(next),
		Scopes:        provider.Scopes,
		CodeChallenge: challenge,
	})
	if err != nil {
		return "", authorizeFailed(err, provider.Name)
	}

	c.config.Cookies.SetVerifier(ctx, verifier)

	event := authui.ActivityEvent{
		EventType:  authui.ActivityEventSocialLoginRedirected,
		Metadata:   map[string]any{"provider": provider.Name, "next": next},
		OccurredAt: time.Now(),
	}
	if err := c.config.Activity.Record(ctx.Context(), event); err != nil {
		c.config.Logger.Warn("activity sink failed", "event", event.EventType, "error", err)
	}

	return target, nil
}

func (c *HTTPController) callbackURL(next string) string {
	params := url.Values{}
	params.Set("type", authui.CallbackTypeOAuth)
	params.Set("next", next)
	return strings.TrimRight(c.site.GetSiteURL(), "/") + c.site.GetCallbackPath() + "?" + params.Encode()
}

func (c *HTTPController) handleError(ctx router.Context, err error) error {
	if c.config.ErrorHandler != nil {
		return c.config.ErrorHandler(ctx, err)
	}

	c.config.Logger.Warn("social sign in failed", "error", err)

	params := url.Values{}
	params.Set("error", signInFailedMessage)
	return ctx.Redirect(c.site.GetLoginPath()+"?"+params.Encode(), http.StatusSeeOther)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// Links returns sign in buttons for the registered providers, assuming the
// controller routes are mounted under prefix.
func (c *HTTPController) Links(prefix string) []authui.SocialLink {
	prefix = strings.TrimRight(prefix, "/")
	providers := c.registry.List()
	links := make([]authui.SocialLink, 0, len(providers))
	for _, p := range providers {
		links = append(links, authui.SocialLink{
			Name:  p.Name,
			Label: p.Label,
			Href:  prefix + "/" + p.Name,
		})
	}
	return links
}
