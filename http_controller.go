package authui

import (
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-authui/middleware/csrf"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-router/flash"
)

// RegisterAuthRoutes mounts the auth pages and form actions on app.
func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) *AuthController {
	controller := NewAuthController(opts...)

	app.Get(controller.Routes.Login, controller.LoginShow, controller.GuestOnly...).
		SetName("sign-in.get")
	app.Post(controller.Routes.Login, controller.LoginPost).
		SetName("sign-in.post")

	app.Get(controller.Routes.Signup, controller.SignupShow, controller.GuestOnly...).
		SetName("sign-up.get")
	app.Post(controller.Routes.Signup, controller.SignupPost).
		SetName("sign-up.post")

	app.Get(controller.Routes.Logout, controller.Logout).
		SetName("sign-out.get")

	app.Get(controller.Routes.ForgotPassword, controller.ForgotPasswordShow).
		SetName("pwd-forgot.get")
	app.Post(controller.Routes.ForgotPassword, controller.ForgotPasswordPost).
		SetName("pwd-forgot.post")

	app.Get(controller.Routes.ResetPassword, controller.ResetPasswordShow).
		SetName("pwd-reset.get")
	app.Post(controller.Routes.ResetPassword, controller.ResetPasswordPost).
		SetName("pwd-reset.post")

	app.Post(controller.Routes.ResendVerification, controller.ResendVerificationPost).
		SetName("verification-resend.post")

	app.Get(controller.Routes.Callback, controller.Callback).
		SetName("auth-callback.get")

	app.Post(controller.Routes.PasswordRequirements, controller.PasswordRequirementsPost).
		SetName("pwd-requirements.post")

	return controller
}

type AuthControllerRoutes struct {
	Login                string
	Signup               string
	Logout               string
	ForgotPassword       string
	ResetPassword        string
	ResendVerification   string
	Callback             string
	PasswordRequirements string
}

type AuthControllerViews struct {
	Login          string
	Signup         string
	ForgotPassword string
	ResetPassword  string
}

// AuthController serves the auth pages. Every render builds its own
// AlertManager seeded from the query string and the action result.
type AuthController struct {
	Debug        bool
	Logger       Logger
	Config       Config
	Service      *AuthService
	Classifier   *CallbackClassifier
	Orchestrator *AlertOrchestrator
	Observer     Observer
	Cookies      SessionCookies
	Routes       *AuthControllerRoutes
	Views        *AuthControllerViews
	SocialLinks  []SocialLink
	// GuestOnly guards the sign in and sign up pages, e.g. to send
	// visitors with a session elsewhere.
	GuestOnly    []router.MiddlewareFunc
	ErrorHandler router.ErrorHandler
}

// SocialLink is a sign in button rendered on the login and signup pages.
type SocialLink struct {
	Name  string
	Label string
	Href  string
}

type AuthControllerOption func(*AuthController) *AuthController

func WithControllerDebug(debug bool) AuthControllerOption {
	return func(a *AuthController) *AuthController {
		a.Debug = debug
		return a
	}
}

func WithControllerLogger(l Logger) AuthControllerOption {
	return func(a *AuthController) *AuthController {
		if l != nil {
			a.Logger = l
		}
		return a
	}
}

func WithControllerConfig(cfg Config) AuthControllerOption {
	return func(a *AuthController) *AuthController {
		a.Config = cfg
		return a
	}
}

func WithControllerService(s *AuthService) AuthControllerOption {
	return func(a *AuthController) *AuthController {
		a.Service = s
		return a
	}
}

func WithControllerClassifier(c *CallbackClassifier) AuthControllerOption {
	return func(a *AuthController) *AuthController {
		a.Classifier = c
		return a
	}
}

func WithControllerOrchestrator(o *AlertOrchestrator) AuthControllerOption {
	return func(a *AuthController) *AuthController {
		a.Orchestrator = o
		return a
	}
}

func WithControllerObserver(o Observer) AuthControllerOption {
	return func(a *AuthController) *AuthController {
		a.Observer = normalizeObserver(o)
		return a
	}
}

func WithControllerCookies(c SessionCookies) AuthControllerOption {
	return func(a *AuthController) *AuthController {
		a.Cookies = c
		return a
	}
}

func WithControllerSocialLinks(links ...SocialLink) AuthControllerOption {
	return func(a *AuthController) *AuthController {
		a.SocialLinks = append(a.SocialLinks, links...)
		return a
	}
}

func WithControllerGuestOnly(mw ...router.MiddlewareFunc) AuthControllerOption {
	return func(a *AuthController) *AuthController {
		a.GuestOnly = append(a.GuestOnly, mw...)
		return a
	}
}

func WithControllerErrorHandler(h router.ErrorHandler) AuthControllerOption {
	return func(a *AuthController) *AuthController {
		if h != nil {
			a.ErrorHandler = h
		}
		return a
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:       defLogger{},
		Observer:     noopObserver{},
		ErrorHandler: defaultErrHandler,
		Routes: &AuthControllerRoutes{
			Login:                "/auth/login",
			Signup:               "/auth/signup",
			Logout:               "/auth/logout",
			ForgotPassword:       "/auth/forgot-password",
			ResetPassword:        "/auth/reset-password",
			ResendVerification:   "/auth/resend-verification",
			Callback:             "/auth/callback",
			PasswordRequirements: "/auth/password-requirements",
		},
		Views: &AuthControllerViews{
			Login:          "login",
			Signup:         "signup",
			ForgotPassword: "forgot_password",
			ResetPassword:  "reset_password",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Service == nil {
		panic("Missing AuthService in auth controller...")
	}

	if c.Classifier == nil {
		panic("Missing CallbackClassifier in auth controller...")
	}

	if c.Config == nil {
		panic("Missing Config in auth controller...")
	}

	if c.Orchestrator == nil {
		c.Orchestrator = NewAlertOrchestrator(c.Service.ResendVerification, c.Logger)
	}

	if c.Cookies.AccessName == "" {
		c.Cookies = NewSessionCookies(c.Config.GetCookieSecure())
	}

	return c
}

// renderScheduler drops expiry timers: pages carry auto_expire_ms and
// the browser removes the alert.
func renderScheduler(time.Duration, func()) {}

func (a *AuthController) newAlertManager() *AlertManager {
	return NewAlertManager(
		WithAlertScheduler(renderScheduler),
		WithAlertAddedHook(a.Observer.AlertAdded),
	)
}

func (a *AuthController) signals(ctx router.Context) AlertSignals {
	return AlertSignals{
		Error:          ctx.Query("error"),
		Message:        ctx.Query("message"),
		Email:          ctx.Query("email"),
		SocialProvider: ctx.Query("provider"),
	}
}

func (a *AuthController) render(ctx router.Context, view string, alerts *AlertManager, data router.ViewContext) error {
	if data == nil {
		data = router.ViewContext{}
	}
	if _, ok := data["errors"]; !ok {
		data["errors"] = map[string]string{}
	}
	data["alerts"] = alertsViewData(alerts.Alerts())
	data["routes"] = a.Routes
	data["social"] = a.SocialLinks
	if token, ok := ctx.Locals(csrf.DefaultContextKey).(string); ok {
		data["csrf_token"] = token
	}
	return ctx.Render(view, data)
}

// renderState shows a form again with the outcome of its action.
func (a *AuthController) renderState(ctx router.Context, view string, state FormState, record any) error {
	alerts := a.newAlertManager()
	if state.Alert != nil {
		alerts.Add(*state.Alert)
	}
	return a.render(ctx, view, alerts, router.ViewContext{
		"errors":               state.Errors,
		"record":               record,
		"success":              state.Success,
		"verification_pending": state.VerificationPending,
	})
}

func (a *AuthController) debug(label string, v any) {
	if !a.Debug {
		return
	}
	fmt.Println("======= " + label + " ======")
	fmt.Println(print.MaybePrettyJSON(v))
	fmt.Println("=========================")
}

func (a *AuthController) LoginShow(ctx router.Context) error {
	alerts := a.newAlertManager()
	a.Orchestrator.Apply(alerts, a.signals(ctx))

	return a.render(ctx, a.Views.Login, alerts, router.ViewContext{
		"record": LoginPayload{
			Email: ctx.Query("email"),
			Next:  SanitizeNext(ctx.Query("redirect_to")),
		},
	})
}

func (a *AuthController) LoginPost(ctx router.Context) error {
	payload := new(LoginPayload)
	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("login parse payload", "error", err)
		return a.ErrorHandler(ctx, invalidPayload(err, "login"))
	}

	a.debug("AUTH LOGIN", map[string]string{"email": payload.Email, "redirect_to": payload.Next})

	state := a.Service.Login(ctx.Context(), *payload)
	if !state.Success {
		return a.renderState(ctx, a.Views.Login, state, LoginPayload{
			Email: payload.Email,
			Next:  payload.Next,
		})
	}

	a.Cookies.Set(ctx, state.Session)

	redirect := SanitizeNext(payload.Next)
	a.Logger.Debug("login redirect", "to", redirect)

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": state.Message,
	}).Redirect(redirect, router.StatusSeeOther)
}

func (a *AuthController) SignupShow(ctx router.Context) error {
	alerts := a.newAlertManager()
	a.Orchestrator.Apply(alerts, a.signals(ctx))

	return a.render(ctx, a.Views.Signup, alerts, router.ViewContext{
		"record":       SignupPayload{Email: ctx.Query("email")},
		"requirements": PasswordRequirements(""),
	})
}

func (a *AuthController) SignupPost(ctx router.Context) error {
	payload := new(SignupPayload)
	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("signup parse payload", "error", err)
		return a.ErrorHandler(ctx, invalidPayload(err, "signup"))
	}

	a.debug("AUTH SIGNUP", map[string]string{"email": payload.Email, "full_name": payload.FullName})

	state := a.Service.Signup(ctx.Context(), *payload)

	alerts := a.newAlertManager()
	if state.Alert != nil {
		alerts.Add(*state.Alert)
	}

	return a.render(ctx, a.Views.Signup, alerts, router.ViewContext{
		"errors":               state.Errors,
		"record":               SignupPayload{FullName: payload.FullName, Email: payload.Email},
		"success":              state.Success,
		"verification_pending": state.VerificationPending,
		"requirements":         PasswordRequirements(payload.Password),
	})
}

func (a *AuthController) Logout(ctx router.Context) error {
	if err := a.Service.Logout(ctx.Context(), a.Cookies.AccessToken(ctx)); err != nil {
		a.Logger.Warn("logout failed", "error", err)
	}
	a.Cookies.Clear(ctx)
	return ctx.Redirect(a.Routes.Login, router.StatusSeeOther)
}

func (a *AuthController) ForgotPasswordShow(ctx router.Context) error {
	alerts := a.newAlertManager()
	a.Orchestrator.Apply(alerts, a.signals(ctx))

	return a.render(ctx, a.Views.ForgotPassword, alerts, router.ViewContext{
		"record": ForgotPasswordPayload{Email: ctx.Query("email")},
	})
}

func (a *AuthController) ForgotPasswordPost(ctx router.Context) error {
	payload := new(ForgotPasswordPayload)
	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("forgot password parse payload", "error", err)
		return a.ErrorHandler(ctx, invalidPayload(err, "forgot_password"))
	}

	state := a.Service.ResetPassword(ctx.Context(), *payload)
	return a.renderState(ctx, a.Views.ForgotPassword, state, ForgotPasswordPayload{Email: payload.Email})
}

// sessionToken returns the access token cookie, refreshing the session
// when only the refresh token survived.
func (a *AuthController) sessionToken(ctx router.Context) string {
	if token := a.Cookies.AccessToken(ctx); token != "" {
		return token
	}
	refresh := a.Cookies.RefreshToken(ctx)
	if refresh == "" {
		return ""
	}

	session, err := a.Service.RestoreSession(ctx.Context(), refresh)
	if err != nil {
		a.Logger.Info("session restore failed", "error", err)
		return ""
	}
	a.Cookies.Set(ctx, session)
	return session.AccessToken
}

// ResetPasswordShow expects the recovery session set by the callback.
func (a *AuthController) ResetPasswordShow(ctx router.Context) error {
	alerts := a.newAlertManager()
	if a.sessionToken(ctx) == "" {
		alerts.Add(NewAuthAlert(AlertPasswordLinkExpired))
	}

	return a.render(ctx, a.Views.ResetPassword, alerts, router.ViewContext{
		"record": UpdatePasswordPayload{},
	})
}

func (a *AuthController) ResetPasswordPost(ctx router.Context) error {
	payload := new(UpdatePasswordPayload)
	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("reset password parse payload", "error", err)
		return a.ErrorHandler(ctx, invalidPayload(err, "reset_password"))
	}

	state := a.Service.UpdatePassword(ctx.Context(), a.sessionToken(ctx), *payload)
	if !state.Success {
		return a.renderState(ctx, a.Views.ResetPassword, state, UpdatePasswordPayload{})
	}

	a.Cookies.Clear(ctx)
	return a.renderState(ctx, a.Views.Login, state, LoginPayload{Next: "/"})
}

// ResendVerificationPost runs the resend capability of the verification
// alert and shows the login page with the result.
func (a *AuthController) ResendVerificationPost(ctx router.Context) error {
	payload := new(ResendVerificationPayload)
	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("resend verification parse payload", "error", err)
		return a.ErrorHandler(ctx, invalidPayload(err, "resend_verification"))
	}

	alerts := a.newAlertManager()
	pending := NewAuthAlert(AlertLoginVerificationRequired, a.Orchestrator.resendOption(payload.Email))
	a.Orchestrator.Resend(ctx.Context(), alerts, pending)

	return a.render(ctx, a.Views.Login, alerts, router.ViewContext{
		"record": LoginPayload{Email: payload.Email, Next: "/"},
	})
}

// Callback resolves verification, recovery and OAuth returns from the
// identity provider.
func (a *AuthController) Callback(ctx router.Context) error {
	req := CallbackRequest{
		Origin:           strings.TrimRight(a.Config.GetSiteURL(), "/"),
		ForwardedHost:    ctx.Header("X-Forwarded-Host"),
		Error:            ctx.Query("error"),
		ErrorDescription: ctx.Query("error_description"),
		Code:             ctx.Query("code"),
		Type:             ctx.Query("type"),
		EmailVerify:      ctx.Query("email_verify"),
		Next:             ctx.Query("next"),
		CodeVerifier:     a.Cookies.Verifier(ctx),
	}

	decision := a.Classifier.Classify(ctx.Context(), req)
	a.debug("AUTH CALLBACK", map[string]any{
		"outcome":  decision.Outcome,
		"redirect": decision.RedirectURL,
	})

	if req.CodeVerifier != "" {
		a.Cookies.ClearVerifier(ctx)
	}
	if decision.Session != nil {
		a.Cookies.Set(ctx, decision.Session)
	}

	a.Service.record(ctx.Context(), ActivityEvent{
		EventType: ActivityEventCallbackResolved,
		Email:     decision.Email,
		Metadata:  map[string]any{"outcome": string(decision.Outcome), "type": req.Type},
	})

	return ctx.Redirect(decision.RedirectURL, router.StatusTemporaryRedirect)
}

// PasswordRequirementsPost reports which rules a candidate password meets.
func (a *AuthController) PasswordRequirementsPost(ctx router.Context) error {
	payload := new(passwordCheckPayload)
	if err := ctx.Bind(payload); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]any{
			"error": invalidPayload(err, "password_requirements"),
		})
	}
	return ctx.JSON(router.StatusOK, passwordReport(payload.Password))
}

type passwordCheckPayload struct {
	Password string `form:"password" json:"password"`
}

func passwordReport(password string) map[string]any {
	return map[string]any{
		"valid":        IsValidPassword(password),
		"requirements": PasswordRequirements(password),
	}
}

func invalidPayload(err error, form string) error {
	return goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse "+form+" form").
		WithTextCode(TextCodeInvalidPayload).
		WithCode(goerrors.CodeBadRequest)
}

func defaultErrHandler(c router.Context, err error) error {
	return c.Render("errors/500", router.ViewContext{
		"message": err.Error(),
	})
}
