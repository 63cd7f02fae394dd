package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ConsultationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_gateway_consultations_total",
			Help: "Inbound consultation messages by channel",
		},
		[]string{"channel"},
	)

	TriageLevelTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_gateway_triage_level_total",
			Help: "Triage classifications by urgency level",
		},
		[]string{"level"},
	)

	QuickRepliesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "triage_gateway_quick_replies_total",
			Help: "Consultations answered from the canned pattern table without a remote call",
		},
	)

	RemoteAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_gateway_remote_attempts_total",
			Help: "Remote model attempts by outcome (success, rate_limit, quota, auth, other)",
		},
		[]string{"outcome"},
	)

	RemoteLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "triage_gateway_remote_latency_seconds",
			Help: "Remote model call latency in seconds",
		},
	)

	PoolExhaustedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "triage_gateway_pool_exhausted_total",
			Help: "Consultations that exhausted the whole provider pool",
		},
	)

	SlotsAvailable = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "triage_gateway_slots_available",
			Help: "Provider slots currently selectable",
		},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "triage_gateway_active_sessions",
			Help: "Number of active user sessions",
		},
	)

	EnrichmentLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_gateway_enrichment_lookups_total",
			Help: "Enrichment lookups by result (hit, miss, error)",
		},
		[]string{"result"},
	)
)
