package main

import (
	"github.com/prometheus/client_golang/prometheus"
)

// workerMetrics tracks the claim loop. Claim outcomes per candidate are
// recorded by the frontier collectors; these count what the worker did with
// the entries it won. A nil *workerMetrics records nothing.
type workerMetrics struct {
	claims        prometheus.Counter
	events        prometheus.Counter
	publishErrors prometheus.Counter
	loops         prometheus.Gauge
}

func newWorkerMetrics(reg prometheus.Registerer) *workerMetrics {
	m := &workerMetrics{
		claims: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "frontier_worker_claims_total",
			Help: "Entries claimed by this worker.",
		}),
		events: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "frontier_worker_events_published_total",
			Help: "Claim events written to Kafka.",
		}),
		publishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "frontier_worker_publish_errors_total",
			Help: "Claim events that could not be written to Kafka.",
		}),
		loops: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "frontier_worker_loops",
			Help: "Claim loops currently running.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.claims, m.events, m.publishErrors, m.loops)
	}
	return m
}

func (m *workerMetrics) claimed() {
	if m != nil {
		m.claims.Inc()
	}
}

func (m *workerMetrics) published() {
	if m != nil {
		m.events.Inc()
	}
}

func (m *workerMetrics) publishFailed() {
	if m != nil {
		m.publishErrors.Inc()
	}
}

func (m *workerMetrics) loopStarted() {
	if m != nil {
		m.loops.Inc()
	}
}

func (m *workerMetrics) loopStopped() {
	if m != nil {
		m.loops.Dec()
	}
}
