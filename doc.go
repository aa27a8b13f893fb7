// Package authui serves the pages and callback handling that sit in front of
// a hosted identity provider: sign in, sign up, password reset, and the
// email link callback.
//
// Callback classification:
//   - CallbackClassifier turns the query parameters of an emailed link or an
//     OAuth return into one CallbackOutcome. Tokens are exchanged with the
//     provider and the resulting session is written to cookies before the
//     browser is redirected.
//
// Alerts:
//   - Pages show at most one alert. AlertManager keeps the current alert and
//     the orchestrator derives it from flash data, query errors, and form
//     results so every page reports outcomes the same way.
//
// Activity sinks:
//   - ActivitySink records sign in, sign up, reset, and callback events.
//     Sinks run best effort; errors are logged and never block a request.
package authui
