package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "orderdesk"

// Metrics groups the collectors fed by the engine hooks.
type Metrics struct {
	Turns         *prometheus.CounterVec
	ModelCalls    *prometheus.CounterVec
	ModelLatency  *prometheus.HistogramVec
	CacheLookups  *prometheus.CounterVec
	Tasks         *prometheus.CounterVec
	SessionStarts prometheus.Counter
	SessionEnds   prometheus.Counter
	SessionLength prometheus.Histogram
}

// NewMetrics creates the collectors and registers them on reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Handled user messages by resulting phase",
		}, []string{"phase"}),
		ModelCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_calls_total",
			Help:      "Language model calls by purpose and outcome",
		}, []string{"purpose", "outcome"}),
		ModelLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_call_duration_seconds",
			Help:      "Duration of language model calls",
			Buckets:   []float64{.25, .5, 1, 2, 4, 8, 16, 32},
		}, []string{"purpose"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reply_cache_lookups_total",
			Help:      "Reply cache lookups by result",
		}, []string{"result"}),
		Tasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_completed_total",
			Help:      "Scripted tasks completed",
		}, []string{"task"}),
		SessionStarts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Sessions created",
		}),
		SessionEnds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_ended_total",
			Help:      "Sessions ended by the client",
		}),
		SessionLength: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Time from session start to end",
			Buckets:   prometheus.ExponentialBuckets(30, 2, 8),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Turns, m.ModelCalls, m.ModelLatency, m.CacheLookups,
			m.Tasks, m.SessionStarts, m.SessionEnds, m.SessionLength)
	}
	return m
}
