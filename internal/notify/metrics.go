package notify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the reminder system.
type Metrics struct {
	// RemindersSentTotal is the total number of reminders sent, by result.
	RemindersSentTotal *prometheus.CounterVec

	// ReminderSendDuration is the time to send a reminder.
	ReminderSendDuration prometheus.Histogram

	// ReminderRetries is the total number of retry attempts.
	ReminderRetries prometheus.Counter
}

// NewMetrics creates and registers Prometheus metrics for reminders.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		RemindersSentTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_sent_total",
			Help:      "Total number of reservation reminders sent, by result.",
		}, []string{"result"}),
		ReminderSendDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reminder_send_duration_seconds",
			Help:      "Time to send a single reminder.",
			Buckets:   prometheus.DefBuckets,
		}),
		ReminderRetries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminder_retries_total",
			Help:      "Total number of reminder retry attempts.",
		}),
	}
}
