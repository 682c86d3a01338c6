package engine

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes the engine's cycle diagnostics to Prometheus. It owns a
// private registry so the daemon can serve it without inheriting global
// collectors.
type Metrics struct {
	registry *prometheus.Registry

	CyclesTotal        *prometheus.CounterVec
	CycleDuration      prometheus.Histogram
	EventsFetched      *prometheus.CounterVec
	ContractsFetched   *prometheus.CounterVec
	MatchedPairs       *prometheus.CounterVec
	UnmatchedContracts *prometheus.CounterVec
	MalformedQuotes    prometheus.Counter
	FilteredLopsided   prometheus.Counter
	FilteredIlliquid   prometheus.Counter
	ModelErrors        prometheus.Counter
	StaleCycles        prometheus.Counter
	MatchScore         prometheus.Histogram
	OpportunityEV      prometheus.Histogram
	OpportunitiesHeld  prometheus.Gauge
}

// NewMetrics creates and registers the engine metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		CyclesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "magnus_cycles_total",
				Help: "Synchronization cycles by outcome",
			},
			[]string{"status"},
		),
		CycleDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "magnus_cycle_duration_seconds",
				Help:    "Wall time of one full synchronization cycle",
				Buckets: prometheus.DefBuckets,
			},
		),
		EventsFetched: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "magnus_events_fetched_total",
				Help: "Events pulled from the schedule feed",
			},
			[]string{"sport"},
		),
		ContractsFetched: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "magnus_contracts_fetched_total",
				Help: "Contracts pulled from the market feed",
			},
			[]string{"sport"},
		),
		MatchedPairs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "magnus_matched_pairs_total",
				Help: "Contracts joined to an event",
			},
			[]string{"sport"},
		),
		UnmatchedContracts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "magnus_unmatched_contracts_total",
				Help: "Contracts dropped because a title side did not resolve",
			},
			[]string{"sport"},
		),
		MalformedQuotes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "magnus_malformed_quotes_total",
			Help: "Contracts excluded for prices outside (0,1); indicates an upstream bug",
		}),
		FilteredLopsided: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "magnus_filtered_lopsided_total",
			Help: "Pairs rejected for near-certain implied probability",
		}),
		FilteredIlliquid: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "magnus_filtered_illiquid_total",
			Help: "Pairs rejected below the liquidity floor",
		}),
		ModelErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "magnus_model_errors_total",
			Help: "Prediction model calls that failed",
		}),
		StaleCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "magnus_stale_cycles_total",
			Help: "Cycles that served cached feed snapshots",
		}),
		MatchScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "magnus_match_score",
			Help:    "Similarity scores of accepted matches, for threshold tuning",
			Buckets: prometheus.LinearBuckets(50, 5, 11),
		}),
		OpportunityEV: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "magnus_opportunity_ev",
			Help:    "Expected value of ranked opportunities",
			Buckets: prometheus.LinearBuckets(-0.5, 0.1, 16),
		}),
		OpportunitiesHeld: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "magnus_opportunities",
			Help: "Opportunities in the latest ranked set",
		}),
	}

	registry.MustRegister(
		m.CyclesTotal, m.CycleDuration,
		m.EventsFetched, m.ContractsFetched,
		m.MatchedPairs, m.UnmatchedContracts,
		m.MalformedQuotes, m.FilteredLopsided, m.FilteredIlliquid,
		m.ModelErrors, m.StaleCycles,
		m.MatchScore, m.OpportunityEV, m.OpportunitiesHeld,
	)
	return m
}

// Handler returns an HTTP handler serving the engine's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// observeDiagnostics records one sport-merged cycle's counters.
func (m *Metrics) observeDiagnostics(sport string, d Diagnostics) {
	if m == nil {
		return
	}
	m.EventsFetched.WithLabelValues(sport).Add(float64(d.EventsFetched))
	m.ContractsFetched.WithLabelValues(sport).Add(float64(d.ContractsFetched))
	m.MatchedPairs.WithLabelValues(sport).Add(float64(d.MatchedPairs))
	m.UnmatchedContracts.WithLabelValues(sport).Add(float64(d.UnmatchedContracts))
	m.MalformedQuotes.Add(float64(d.MalformedQuotes))
	m.FilteredLopsided.Add(float64(d.FilteredLopsided))
	m.FilteredIlliquid.Add(float64(d.FilteredIlliquid))
	m.ModelErrors.Add(float64(d.ModelErrors))
	if d.Stale {
		m.StaleCycles.Inc()
	}
}
