package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors. Each instance owns its
// registry so tests can create as many as they need.
type Metrics struct {
	registry *prometheus.Registry

	BracketOperations   *prometheus.CounterVec
	InvalidatedPicks    prometheus.Counter
	Submissions         *prometheus.CounterVec
	ArchiveFailures     prometheus.Counter
	LeaderboardDuration prometheus.Histogram
	LeaderboardEntries  prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		BracketOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wc26_bracket_operations_total",
			Help: "Bracket mutations by operation and outcome",
		}, []string{"operation", "outcome"}),
		InvalidatedPicks: factory.NewCounter(prometheus.CounterOpts{
			Name: "wc26_invalidated_picks_total",
			Help: "Knockout picks cleared by cascading invalidation",
		}),
		Submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wc26_submissions_total",
			Help: "Bracket submissions by outcome",
		}, []string{"outcome"}),
		ArchiveFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "wc26_snapshot_archive_failures_total",
			Help: "Snapshots that could not be written to object storage",
		}),
		LeaderboardDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "wc26_leaderboard_duration_seconds",
			Help:    "Time to score and rank all submissions",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		LeaderboardEntries: factory.NewGauge(prometheus.GaugeOpts{
			Name: "wc26_leaderboard_entries",
			Help: "Number of submissions on the last computed leaderboard",
		}),
	}
}

// ObserveOperation records one bracket mutation. outcome is "ok" or the
// error kind.
func (m *Metrics) ObserveOperation(operation, outcome string, invalidated int) {
	m.BracketOperations.WithLabelValues(operation, outcome).Inc()
	if invalidated > 0 {
		m.InvalidatedPicks.Add(float64(invalidated))
	}
}

func (m *Metrics) ObserveSubmission(outcome string) {
	m.Submissions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementArchiveFailures() {
	m.ArchiveFailures.Inc()
}

// ObserveLeaderboard records a leaderboard computation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveLeaderboard(start time.Time, entries int) {
	m.LeaderboardDuration.Observe(time.Since(start).Seconds())
	m.LeaderboardEntries.Set(float64(entries))
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
