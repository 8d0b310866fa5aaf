// Package metrics holds the prometheus collectors for the bot. Each Metrics
// value owns its registry so tests can build as many as they like.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	GateDecisions   *prometheus.CounterVec
	Replays         *prometheus.CounterVec
	Resolutions     *prometheus.CounterVec
	Deliveries      *prometheus.CounterVec
	DeliveryLatency prometheus.Histogram
	ScheduledRuns   *prometheus.CounterVec
	SweptArtifacts  prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		GateDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mediagate_gate_decisions_total",
			Help: "Membership gate decisions by outcome",
		}, []string{"decision"}), // allowed, blocked, error
		Replays: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mediagate_intent_replays_total",
			Help: "Deferred intents replayed after release, by intent kind",
		}, []string{"kind"}),
		Resolutions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mediagate_resolutions_total",
			Help: "Media resolutions by outcome",
		}, []string{"outcome"}),
		Deliveries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mediagate_deliveries_total",
			Help: "Artifact pipeline invocations by outcome",
		}, []string{"outcome"}),
		DeliveryLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "mediagate_delivery_duration_seconds",
			Help:    "Time from selection to completed upload",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}),
		ScheduledRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mediagate_scheduled_actions_total",
			Help: "Delayed actions run by the scheduler, by result",
		}, []string{"result"}),
		SweptArtifacts: f.NewCounter(prometheus.CounterOpts{
			Name: "mediagate_swept_artifacts_total",
			Help: "Leftover transient entries removed by the sweeper",
		}),
	}
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
