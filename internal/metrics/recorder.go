// Package metrics exposes Prometheus instrumentation for authentication
// attempts and refresh cycles.
package metrics

import (
	"errors"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "paperless"

// Recorder records sensor metrics on a Prometheus registry.
//
// All methods are safe on a nil *Recorder, which records nothing.
type Recorder struct {
	refreshes       *prom.CounterVec
	refreshDuration *prom.HistogramVec
	fetchDuration   *prom.HistogramVec
	authAttempts    *prom.CounterVec
	documents       *prom.GaugeVec
	todoDocuments   *prom.GaugeVec
}

// NewRecorder constructs the collectors and registers them on reg.
// A nil reg gets a fresh registry. When reg already holds collectors of the
// same name, as with two recorders sharing one registry, the registered
// ones are reused.
func NewRecorder(reg *prom.Registry) *Recorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	r := &Recorder{
		refreshes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_total",
			Help:      "Refresh cycles by sensor and resulting connectivity status",
		}, []string{"sensor", "status"}),
		refreshDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_duration_seconds",
			Help:      "Duration of a full refresh cycle",
			Buckets:   prom.DefBuckets,
		}, []string{"sensor"}),
		fetchDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of individual API fetches",
			Buckets:   prom.DefBuckets,
		}, []string{"endpoint", "status"}),
		authAttempts: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "auth_attempts_total",
			Help:      "Token requests by outcome",
		}, []string{"result"}),
		documents: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "documents",
			Help:      "Total document count from the last successful refresh",
		}, []string{"sensor"}),
		todoDocuments: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "todo_documents",
			Help:      "Document count of the configured to-do tag from the last successful refresh",
		}, []string{"sensor"}),
	}
	r.refreshes = register(reg, r.refreshes)
	r.refreshDuration = register(reg, r.refreshDuration)
	r.fetchDuration = register(reg, r.fetchDuration)
	r.authAttempts = register(reg, r.authAttempts)
	r.documents = register(reg, r.documents)
	r.todoDocuments = register(reg, r.todoDocuments)
	return r
}

// register adds c to reg, returning the collector already registered under
// the same descriptor if there is one. Any other registration error is a
// programming error and panics like MustRegister.
func register[C prom.Collector](reg prom.Registerer, c C) C {
	err := reg.Register(c)
	if err == nil {
		return c
	}
	var are prom.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing
		}
	}
	panic(err)
}

// ObserveRefresh records one completed refresh cycle.
func (r *Recorder) ObserveRefresh(sensor, status string, d time.Duration) {
	if r == nil {
		return
	}
	r.refreshes.WithLabelValues(sensor, status).Inc()
	r.refreshDuration.WithLabelValues(sensor).Observe(d.Seconds())
}

// ObserveFetch records one API call. endpoint is a short name such as "tags".
func (r *Recorder) ObserveFetch(endpoint, status string, d time.Duration) {
	if r == nil {
		return
	}
	r.fetchDuration.WithLabelValues(endpoint, status).Observe(d.Seconds())
}

// IncAuthAttempt counts a token request outcome.
func (r *Recorder) IncAuthAttempt(result string) {
	if r == nil {
		return
	}
	r.authAttempts.WithLabelValues(result).Inc()
}

// SetDocuments sets the total document gauge for a sensor.
func (r *Recorder) SetDocuments(sensor string, n int) {
	if r == nil {
		return
	}
	r.documents.WithLabelValues(sensor).Set(float64(n))
}

// SetTodoDocuments sets the to-do document gauge for a sensor.
func (r *Recorder) SetTodoDocuments(sensor string, n int) {
	if r == nil {
		return
	}
	r.todoDocuments.WithLabelValues(sensor).Set(float64(n))
}

// HTTPHandler serves the metrics of reg in the Prometheus exposition format.
func HTTPHandler(reg *prom.Registry) http.Handler {
	if reg == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
