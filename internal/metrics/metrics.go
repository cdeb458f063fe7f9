// Package metrics exposes the service's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	MessagesProcessed   *prometheus.CounterVec
	EscalationsSent     *prometheus.CounterVec
	NotificationsFailed prometheus.Counter
	RemindersSent       prometheus.Counter
	ActiveSessions      prometheus.Gauge
	SessionsClosed      *prometheus.CounterVec
	ProcessingDuration  prometheus.Histogram
	LeadScore           prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		MessagesProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "leadflow_messages_processed_total",
			Help: "Total chat messages processed, labeled by top intent",
		}, []string{"intent"}),
		EscalationsSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "leadflow_escalations_sent_total",
			Help: "Total escalation notifications sent, by team and priority",
		}, []string{"team", "priority"}),
		NotificationsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "leadflow_notifications_failed_total",
			Help: "Total escalation notifications that failed to deliver",
		}),
		RemindersSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "leadflow_reminders_sent_total",
			Help: "Total follow-up reminders delivered",
		}),
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "leadflow_active_sessions",
			Help: "Current number of live conversation sessions",
		}),
		SessionsClosed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "leadflow_sessions_closed_total",
			Help: "Closed sessions by outcome",
		}, []string{"outcome"}),
		ProcessingDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "leadflow_message_processing_seconds",
			Help:    "Time taken to process one inbound message",
			Buckets: prometheus.DefBuckets,
		}),
		LeadScore: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "leadflow_lead_score",
			Help:    "Distribution of computed lead scores",
			Buckets: []float64{10, 20, 35, 50, 60, 70, 80, 90, 100},
		}),
	}
}
