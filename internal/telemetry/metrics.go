package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/cloo-solutions/corpora/internal/domain"
)

var (
	ingestionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "corpora",
		Name:      "ingestions_total",
		Help:      "Admitted knowledge items by sensitivity tier and final status.",
	}, []string{"tier", "status"})

	rejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "corpora",
		Name:      "ingestion_rejections_total",
		Help:      "Rejected ingestion attempts by error code.",
	}, []string{"code"})

	retentionErasuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "corpora",
		Name:      "retention_erasures_total",
		Help:      "Knowledge items erased by the retention sweeper.",
	})
)

// Metrics implements the ingestion pipeline's MetricsRecorder on the
// default Prometheus registry.
type Metrics struct{}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) ObserveIngestion(tier domain.SensitivityTier, status domain.IngestionStatus) {
	ingestionsTotal.WithLabelValues(string(tier), string(status)).Inc()
}

func (m *Metrics) ObserveRejection(code string) {
	rejectionsTotal.WithLabelValues(code).Inc()
}

func (m *Metrics) ObserveRetentionErasure(count int) {
	retentionErasuresTotal.Add(float64(count))
}
