package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	admissionTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rezerv",
			Name:      "admission_total",
			Help:      "Count of admission decisions by outcome.",
		},
		[]string{"outcome"},
	)

	transitionTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rezerv",
			Name:      "status_transition_total",
			Help:      "Count of reservation status transitions by target status.",
		},
		[]string{"target"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rezerv",
			Name:      "http_requests_total",
			Help:      "Count of API requests by endpoint.",
		},
		[]string{"endpoint"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(admissionTotal, transitionTotal, httpRequests)
	})
}

func IncAdmission(outcome string) {
	admissionTotal.WithLabelValues(outcome).Inc()
}

func IncTransition(target string) {
	transitionTotal.WithLabelValues(target).Inc()
}

func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}
