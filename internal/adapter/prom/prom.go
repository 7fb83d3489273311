// Package prom exports record store and auth gate activity as Prometheus metrics.
package prom

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"weightlog/internal/app"
)

// Observer implements app.Observer on a dedicated registry.
type Observer struct {
	registry   *prometheus.Registry
	mutations  *prometheus.CounterVec
	auth       *prometheus.CounterVec
	entries    prometheus.Gauge
	difference prometheus.Gauge
}

var _ app.Observer = (*Observer)(nil)

// New registers the weightlog collectors along with the Go and process collectors.
func New() *Observer {
	reg := prometheus.NewRegistry()
	o := &Observer{
		registry: reg,
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weightlog",
			Name:      "mutations_total",
			Help:      "Record store mutations by operation and result.",
		}, []string{"op", "result"}),
		auth: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weightlog",
			Name:      "auth_outcomes_total",
			Help:      "Authentication attempts by outcome.",
		}, []string{"outcome"}),
		entries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "weightlog",
			Name:      "entries",
			Help:      "Entries currently held by the record store.",
		}),
		difference: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "weightlog",
			Name:      "difference",
			Help:      "Latest value minus earliest value.",
		}),
	}
	reg.MustRegister(
		o.mutations, o.auth, o.entries, o.difference,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return o
}

// ObserveMutation counts one mutation. Results are "ok", "rejected" or "error".
func (o *Observer) ObserveMutation(op string, err error) {
	o.mutations.WithLabelValues(op, app.MutationResult(err)).Inc()
}

// ObserveCollection records the collection size and difference.
func (o *Observer) ObserveCollection(size int, difference float64) {
	o.entries.Set(float64(size))
	o.difference.Set(difference)
}

// ObserveAuth counts one authentication outcome.
func (o *Observer) ObserveAuth(kind app.OutcomeKind) {
	o.auth.WithLabelValues(kind.String()).Inc()
}

// Registry exposes the underlying registry.
func (o *Observer) Registry() *prometheus.Registry { return o.registry }

// Handler serves the registry in the Prometheus exposition format.
func (o *Observer) Handler() http.Handler {
	return promhttp.HandlerFor(o.registry, promhttp.HandlerOpts{})
}
