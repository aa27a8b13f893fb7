package main

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/django/v3"
	authui "github.com/goliatone/go-authui"
	"github.com/goliatone/go-authui/config"
	"github.com/goliatone/go-authui/gotrue"
	"github.com/goliatone/go-authui/metrics"
	"github.com/goliatone/go-authui/middleware/csrf"
	"github.com/goliatone/go-authui/middleware/jwtware"
	"github.com/goliatone/go-authui/repository"
	"github.com/goliatone/go-authui/social"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-router"
	mflash "github.com/goliatone/go-router/middleware/flash"
)

type App struct {
	config  *config.Config
	logger  *glog.BaseLogger
	client  *gotrue.Client
	repo    *repository.Manager
	metrics *metrics.Observer
	srv     router.Server[*fiber.App]
}

func (a *App) GetLogger(name string) glog.Logger {
	return a.logger.GetLogger(name)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Trace),
		glog.WithName("authui"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(goerrors.ToSlogAttributes),
	)

	app := &App{
		config:  cfg,
		logger:  lgr,
		metrics: metrics.New(),
	}

	ctx := context.Background()

	if err := WithProvider(app); err != nil {
		lgr.Error("provider setup failed", "error", err)
		os.Exit(1)
	}

	if err := WithPersistence(ctx, app); err != nil {
		lgr.Error("persistence setup failed", "error", err)
		os.Exit(1)
	}

	if err := WithHTTPServer(app); err != nil {
		lgr.Error("http setup failed", "error", err)
		os.Exit(1)
	}

	WithAuthRoutes(app)

	metricsSrv := &http.Server{
		Addr:              cfg.Metrics.Addr,
		Handler:           app.metrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lgr.Error("metrics server stopped", "error", err)
		}
	}()

	go func() {
		if err := app.srv.Serve(cfg.Addr); err != nil {
			lgr.Error("http server stopped", "error", err)
		}
	}()

	lgr.Info("auth ui listening", "addr", cfg.Addr, "metrics", cfg.Metrics.Addr)

	WaitExitSignal()

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		lgr.Warn("metrics shutdown", "error", err)
	}
}

func WithProvider(app *App) error {
	client, err := gotrue.New(gotrue.Config{
		URL:        app.config.GoTrue.URL,
		APIKey:     app.config.GoTrue.APIKey,
		ServiceKey: app.config.GoTrue.ServiceKey,
		HTTPClient: &http.Client{Timeout: app.config.ProviderTimeout},
	})
	if err != nil {
		return err
	}
	app.client = client
	return nil
}

// WithPersistence opens the database when a DSN is configured. Without one
// the identity server answers verification lookups.
func WithPersistence(ctx context.Context, app *App) error {
	if app.config.Database.DSN == "" {
		return nil
	}

	db, err := repository.Open(app.config.Database.Driver, app.config.Database.DSN)
	if err != nil {
		return err
	}

	manager := repository.NewManager(db)
	if err := manager.Validate(); err != nil {
		return err
	}
	if err := manager.Activity().CreateTable(ctx); err != nil {
		return fmt.Errorf("create activity table: %w", err)
	}

	app.repo = manager
	return nil
}

func WithHTTPServer(app *App) error {
	views, err := authui.GetViewsFS()
	if err != nil {
		return err
	}

	engine := django.NewFileSystem(http.FS(views), ".html")
	engine.Reload(app.config.IsDevelopment())

	app.srv = router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:      true,
			StrictRouting:     false,
			PassLocalsToViews: true,
			Views:             engine,
		}))
	})

	app.srv.Router().WithLogger(app.GetLogger("router"))
	app.srv.Router().Use(mflash.New(mflash.ConfigDefault))

	csrfKey := []byte(app.config.CSRF.Key)
	if len(csrfKey) == 0 {
		// derived keys do not survive a change of anon key or jwt secret
		sum := sha256.Sum256([]byte(app.config.GoTrue.APIKey + app.config.JWT.Secret + app.config.SiteURL))
		csrfKey = sum[:]
	}
	app.srv.Router().Use(csrf.New(csrf.Config{
		SecureKey:    csrfKey,
		CookieSecure: app.config.GetCookieSecure(),
	}))
	csrf.RegisterRoutes(app.srv.Router())

	return nil
}

func WithAuthRoutes(app *App) {
	cfg := app.config
	r := app.srv.Router()

	var lookup authui.VerificationLookup = app.client
	activity := authui.LoggerActivitySink(app.GetLogger("activity"))
	if app.repo != nil {
		lookup = app.repo.Verification()
		activity = authui.MultiActivitySink(activity, app.repo.Activity())
	}

	service := authui.NewAuthService(app.client, cfg,
		authui.WithServiceLogger(app.GetLogger("service")),
		authui.WithServiceObserver(app.metrics),
		authui.WithActivitySink(activity),
		authui.WithProviderTimeout(cfg.ProviderTimeout),
		authui.WithResendLimit(cfg.ResendEvery, cfg.ResendBurst),
	)

	avatars := social.NewAvatarResolver()
	classifier := authui.NewCallbackClassifier(app.client, lookup, cfg,
		authui.WithCallbackLogger(app.GetLogger("callback")),
		authui.WithCallbackObserver(app.metrics),
		authui.WithAvatarResolver(avatars),
	)

	jwtCfg := jwtware.Config{
		JWKSetURLs: cfg.JWT.JWKSURLs,
		Audience:   cfg.JWT.Audience,
		Issuer:     cfg.JWT.Issuer,
		LoginPath:  cfg.GetLoginPath(),
		ContextEnricher: func(c context.Context, claims *jwtware.Claims) context.Context {
			return authui.WithUser(c, &authui.User{
				ID:           claims.UserID(),
				Email:        claims.Email,
				AppMetadata:  claims.AppMetadata,
				UserMetadata: claims.UserMetadata,
			})
		},
	}
	if cfg.JWT.Secret != "" {
		jwtCfg.SigningKey = jwtware.SigningKey{JWTAlg: "HS256", Key: []byte(cfg.JWT.Secret)}
	}

	socialCtrl := social.NewHTTPController(
		social.NewRegistry(social.DefaultProviders()...),
		app.client,
		cfg,
		social.HTTPConfig{
			Activity: activity,
			Logger:   app.GetLogger("social"),
		},
	)
	socialCtrl.RegisterRoutes(r.Group(cfg.SocialPath))

	authui.RegisterAuthRoutes(r,
		authui.WithControllerDebug(cfg.Debug),
		authui.WithControllerLogger(app.GetLogger("auth")),
		authui.WithControllerConfig(cfg),
		authui.WithControllerService(service),
		authui.WithControllerClassifier(classifier),
		authui.WithControllerObserver(app.metrics),
		authui.WithControllerSocialLinks(socialCtrl.Links(cfg.SocialPath)...),
		authui.WithControllerGuestOnly(jwtware.RedirectAuthenticated("/", jwtCfg)),
	)

	r.Get("/", func(ctx router.Context) error {
		user, ok := authui.UserFromContext(ctx.Context())
		if !ok {
			return ctx.Redirect(cfg.GetLoginPath(), router.StatusSeeOther)
		}
		return ctx.Render("home", router.ViewContext{
			"user": map[string]any{
				"id":     user.ID,
				"email":  user.Email,
				"avatar": avatars.ResolveAvatar(user.Provider(), user, cfg.GetSiteURL()),
			},
		})
	}, app.metrics.Instrument("home"), jwtware.New(jwtCfg)).SetName("home")
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
