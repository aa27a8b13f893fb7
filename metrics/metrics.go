// Package metrics exposes auth flow counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	authui "github.com/goliatone/go-authui"
	"github.com/goliatone/go-router"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "authui"

// Observer implements authui.Observer on top of Prometheus collectors.
type Observer struct {
	registry *prometheus.Registry

	callbacks        *prometheus.CounterVec
	alerts           *prometheus.CounterVec
	providerFailures *prometheus.CounterVec
	requests         *prometheus.HistogramVec
}

var _ authui.Observer = (*Observer)(nil)

// New creates the collectors and registers them on a private registry
// together with the Go and process collectors.
func New() *Observer {
	o := &Observer{
		registry: prometheus.NewRegistry(),
		callbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "callback_outcomes_total",
			Help:      "Verification and OAuth callbacks by resolved outcome.",
		}, []string{"outcome"}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_added_total",
			Help:      "Alerts shown to users.",
		}, []string{"kind", "status"}),
		providerFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_failures_total",
			Help:      "Identity provider failures by operation and kind.",
		}, []string{"operation", "kind"}),
		requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Auth page latencies in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method", "result"}),
	}

	o.registry.MustRegister(
		o.callbacks,
		o.alerts,
		o.providerFailures,
		o.requests,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return o
}

func (o *Observer) CallbackResolved(outcome authui.CallbackOutcome) {
	o.callbacks.WithLabelValues(string(outcome)).Inc()
}

func (o *Observer) AlertAdded(alert authui.Alert) {
	o.alerts.WithLabelValues(string(alert.Kind), string(alert.Status)).Inc()
}

func (o *Observer) ProviderFailed(operation string, kind authui.ProviderErrorKind) {
	o.providerFailures.WithLabelValues(operation, string(kind)).Inc()
}

// Registry returns the registry the collectors live in.
func (o *Observer) Registry() *prometheus.Registry {
	return o.registry
}

// Handler serves the registry in the Prometheus text format.
func (o *Observer) Handler() http.Handler {
	return promhttp.HandlerFor(o.registry, promhttp.HandlerOpts{})
}

// Instrument times handlers registered under route.
func (o *Observer) Instrument(route string) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			start := time.Now()
			err := next(ctx)

			result := "ok"
			if err != nil {
				result = "error"
			}
			o.requests.WithLabelValues(route, ctx.Method(), result).Observe(time.Since(start).Seconds())
			return err
		}
	}
}
