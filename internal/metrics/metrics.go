// Package metrics exposes check-session counters in Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "applicheck"

// Metrics owns its registry so tests can create isolated instances.
type Metrics struct {
	registry *prometheus.Registry

	ChecksStarted      *prometheus.CounterVec
	ResultsRecorded    *prometheus.CounterVec
	ContainersFinished prometheus.Counter
	ReportsSaved       prometheus.Counter
	SessionsExited     prometheus.Counter
	HTTPRequests       *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ChecksStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checks_started_total",
			Help:      "Check sessions opened, by whether an existing session was resumed.",
		}, []string{"resumed"}),
		ResultsRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "results_recorded_total",
			Help:      "Item results written during checks, by status.",
		}, []string{"status"}),
		ContainersFinished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "containers_finished_total",
			Help:      "Containers whose sub-items were all checked and rolled up.",
		}),
		ReportsSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_saved_total",
			Help:      "Signed-off reports saved.",
		}),
		SessionsExited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_exited_total",
			Help:      "Check sessions abandoned without a report.",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by method and status code.",
		}, []string{"method", "code"}),
	}
	m.registry.MustRegister(
		m.ChecksStarted,
		m.ResultsRecorded,
		m.ContainersFinished,
		m.ReportsSaved,
		m.SessionsExited,
		m.HTTPRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
