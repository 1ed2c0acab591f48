// Package metrics owns the Prometheus registry served at /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var Registry = prometheus.NewRegistry()

var (
	StageTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "onboarding",
		Name:      "stage_transitions_total",
		Help:      "Stage status writes by source and resulting status.",
	}, []string{"source", "status"})

	AnalyticsEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "onboarding",
		Name:      "analytics_events_total",
		Help:      "Analytics events by outcome (stored, dropped).",
	}, []string{"outcome"})

	EmailsSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "onboarding",
		Name:      "emails_total",
		Help:      "Outbound emails by outcome.",
	}, []string{"outcome"})

	CascadeDeletes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "onboarding",
		Name:      "user_deletes_total",
		Help:      "Admin user deletions by outcome; failed deletions carry the failing step.",
	}, []string{"outcome", "step"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		StageTransitions,
		AnalyticsEvents,
		EmailsSent,
		CascadeDeletes,
	)
}

// Handler serves the registry in the text exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
