package csrf

import "github.com/goliatone/go-router"

const (
	DefaultTokenPath      = "/auth/csrf"
	DefaultTokenRouteName = "csrf.get"
)

// RegisterRoutes exposes the current token as JSON for script driven forms
// such as the live password requirements check. The CSRF middleware must
// run before the handler.
func RegisterRoutes[T any](app router.Router[T], mw ...router.MiddlewareFunc) {
	app.Get(DefaultTokenPath, TokenHandler(DefaultContextKey), mw...).SetName(DefaultTokenRouteName)
}

// TokenHandler answers with the token stored under contextKey.
func TokenHandler(contextKey string) router.HandlerFunc {
	return func(ctx router.Context) error {
		token, _ := ctx.Locals(contextKey).(string)
		if token == "" {
			return ctx.JSON(router.StatusBadRequest, map[string]string{
				"error": ErrTokenMissing.Message,
			})
		}

		ctx.SetHeader("Cache-Control", "no-store, max-age=0")

		field, _ := ctx.Locals(contextKey + "_field").(string)
		header, _ := ctx.Locals(contextKey + "_header").(string)
		return ctx.JSON(router.StatusOK, map[string]string{
			"token":       token,
			"field_name":  field,
			"header_name": header,
		})
	}
}
