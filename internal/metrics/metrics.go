// Package metrics exposes Prometheus counters for the HTTP API, field mapping
// setup, column mapping and group imports.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"

	domainerrors "github.com/GetThruTools/ThruText-API/internal/errors"
)

// Namespace prefixes every metric name.
const Namespace = "thrutext"

// Outcome label values.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Metrics holds the collectors, registered on a private registry.
//
// Safe for concurrent use.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	setupRuns    *prometheus.CounterVec
	synonyms     prometheus.Gauge
	codes        prometheus.Gauge
	lastReloadAt prometheus.Gauge

	mappings *prometheus.CounterVec
	imports  *prometheus.CounterVec
}

// New creates the collectors and registers them, together with the Go runtime
// and process collectors.
func New() *Metrics {
	// Private registry, so tests can create as many as they like.
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "HTTP requests served, by method, route and status.",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request latency in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		setupRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "fields",
				Name:      "setup_runs_total",
				Help:      "Field mapping setup runs, by outcome.",
			},
			[]string{"outcome"},
		),
		synonyms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "fields",
			Name:      "synonyms",
			Help:      "Synonyms in the active session.",
		}),
		codes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "fields",
			Name:      "codes",
			Help:      "Field codes in the active registry.",
		}),
		lastReloadAt: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "fields",
			Name:      "last_reload_timestamp_seconds",
			Help:      "Unix time of the last successful setup.",
		}),
		mappings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "fields",
				Name:      "mappings_total",
				Help:      "Column mapping attempts, by result code.",
			},
			[]string{"result"},
		),
		imports: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "groups",
				Name:      "imports_total",
				Help:      "Group imports, by final status.",
			},
			[]string{"status"},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.setupRuns,
		m.synonyms,
		m.codes,
		m.lastReloadAt,
		m.mappings,
		m.imports,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Gather collects every metric family.
func (m *Metrics) Gather() ([]*dto.MetricFamily, error) {
	return m.registry.Gather()
}

// ObserveHTTP records one served request. route is the matched pattern, not the raw path.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// SetupFinished records a setup run. synonyms and codes describe the new
// session and are ignored when err is non-nil.
func (m *Metrics) SetupFinished(err error, synonyms, codes int) {
	if m == nil {
		return
	}
	if err != nil {
		m.setupRuns.WithLabelValues(OutcomeError).Inc()
		return
	}
	m.setupRuns.WithLabelValues(OutcomeOK).Inc()
	m.synonyms.Set(float64(synonyms))
	m.codes.Set(float64(codes))
	m.lastReloadAt.SetToCurrentTime()
}

// MappingFinished records a column mapping attempt, labelled with the error
// code on failure.
func (m *Metrics) MappingFinished(err error) {
	if m == nil {
		return
	}
	m.mappings.WithLabelValues(resultLabel(err)).Inc()
}

// ImportFinished records the final status of a group import.
func (m *Metrics) ImportFinished(status string) {
	if m == nil {
		return
	}
	m.imports.WithLabelValues(status).Inc()
}

func resultLabel(err error) string {
	if err == nil {
		return OutcomeOK
	}
	return string(domainerrors.CodeOf(err))
}
