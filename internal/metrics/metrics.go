// Package metrics exposes Prometheus collectors for the frontier services.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Claim outcomes recorded in frontier_claims_total.
const (
	OutcomeClaimed  = "claimed"
	OutcomeConflict = "conflict"
	OutcomeSkipped  = "skipped"
	OutcomeEmpty    = "empty"
	OutcomeError    = "error"
)

// Frontier holds the collectors updated by the frontier service. A nil
// *Frontier is valid and records nothing.
type Frontier struct {
	entriesCreated prometheus.Counter
	claims         *prometheus.CounterVec
	claimDuration  prometheus.Histogram
	backlog        *prometheus.GaugeVec
}

// NewFrontier creates the frontier collectors and registers them with reg.
func NewFrontier(reg prometheus.Registerer) *Frontier {
	m := &Frontier{
		entriesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "frontier_entries_created_total",
			Help: "Total number of domain entries created.",
		}),
		claims: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "frontier_claims_total",
			Help: "Claim attempts per candidate, labeled by outcome.",
		}, []string{"outcome"}),
		claimDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "frontier_claim_duration_seconds",
			Help:    "Duration of ClaimOldest calls.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		backlog: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "frontier_entries",
			Help: "Entries per frontier set, as of the last stats read.",
		}, []string{"set"}),
	}
	if reg != nil {
		reg.MustRegister(m.entriesCreated, m.claims, m.claimDuration, m.backlog)
	}
	return m
}

func (m *Frontier) EntryCreated() {
	if m == nil {
		return
	}
	m.entriesCreated.Inc()
}

func (m *Frontier) ClaimOutcome(outcome string) {
	if m == nil {
		return
	}
	m.claims.WithLabelValues(outcome).Inc()
}

func (m *Frontier) ObserveClaim(d time.Duration) {
	if m == nil {
		return
	}
	m.claimDuration.Observe(d.Seconds())
}

func (m *Frontier) SetBacklog(unassigned, assigned int64) {
	if m == nil {
		return
	}
	m.backlog.WithLabelValues("unassigned").Set(float64(unassigned))
	m.backlog.WithLabelValues("assigned").Set(float64(assigned))
}

// Graph writer event results recorded in graph_writer_events_total.
const (
	ResultWritten = "written"
	ResultFailed  = "failed"
	ResultInvalid = "invalid"
)

// GraphWriter holds the collectors of the assignment graph writer. A nil
// *GraphWriter is valid and records nothing.
type GraphWriter struct {
	events        *prometheus.CounterVec
	commitErrors  prometheus.Counter
	commitPending prometheus.Gauge
	commitLatency prometheus.Histogram
}

// NewGraphWriter creates the graph writer collectors and registers them with reg.
func NewGraphWriter(reg prometheus.Registerer) *GraphWriter {
	m := &GraphWriter{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "graph_writer_events_total",
			Help: "Claim events consumed by the graph writer, labeled by result.",
		}, []string{"result"}),
		commitErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "graph_writer_commit_errors_total",
			Help: "Kafka offset commits that failed.",
		}),
		commitPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "graph_writer_commit_pending",
			Help: "Processed messages waiting for an in-order offset commit.",
		}),
		commitLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "graph_writer_commit_duration_seconds",
			Help:    "Duration of Kafka offset commits.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
	if reg != nil {
		reg.MustRegister(m.events, m.commitErrors, m.commitPending, m.commitLatency)
	}
	return m
}

func (m *GraphWriter) Event(result string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(result).Inc()
}

func (m *GraphWriter) CommitError() {
	if m == nil {
		return
	}
	m.commitErrors.Inc()
}

// AddPending moves the pending-commit gauge by delta.
func (m *GraphWriter) AddPending(delta int) {
	if m == nil {
		return
	}
	m.commitPending.Add(float64(delta))
}

func (m *GraphWriter) ObserveCommit(d time.Duration) {
	if m == nil {
		return
	}
	m.commitLatency.Observe(d.Seconds())
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
