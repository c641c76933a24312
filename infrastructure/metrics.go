package infrastructure

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the service collectors. A nil *Metrics records nothing.
type Metrics struct {
	crmRequests *prometheus.CounterVec
	crmDuration *prometheus.HistogramVec
	generations *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		crmRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "staffable",
			Name:      "crm_requests_total",
			Help:      "CRM API calls by operation and HTTP status.",
		}, []string{"operation", "status"}),
		crmDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "staffable",
			Name:      "crm_request_seconds",
			Help:      "CRM API call latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		generations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "staffable",
			Name:      "ai_generations_total",
			Help:      "AI generations by kind and final status.",
		}, []string{"kind", "status"}),
	}
}

// ObserveCRM records one CRM call; status 0 means the request never got a reply.
func (m *Metrics) ObserveCRM(operation string, status int, took time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.crmRequests.WithLabelValues(operation, label).Inc()
	m.crmDuration.WithLabelValues(operation).Observe(took.Seconds())
}

func (m *Metrics) ObserveGeneration(kind, status string) {
	if m == nil {
		return
	}
	m.generations.WithLabelValues(kind, status).Inc()
}
