// Package metrics содержит бизнес-счетчики, отдаваемые на /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Источники рекомендаций.
const (
	SourceAI       = "ai"
	SourceFallback = "fallback"
)

// Metrics группирует счетчики. Nil *Metrics допустим и ничего не пишет.
type Metrics struct {
	Recommendations *prometheus.CounterVec
	Payments        *prometheus.CounterVec
	AdminErrors     *prometheus.CounterVec
	QuotaRejections prometheus.Counter
}

// New регистрирует счетчики в reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Recommendations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "randomlife",
			Name:      "recommendations_generated_total",
			Help:      "Generated recommendations by category and source.",
		}, []string{"category", "source"}),
		Payments: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "randomlife",
			Name:      "payment_transitions_total",
			Help:      "Payment status transitions by provider.",
		}, []string{"provider", "status"}),
		AdminErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "randomlife",
			Name:      "admin_source_errors_total",
			Help:      "Failed admin fan-out calls by backend.",
		}, []string{"source"}),
		QuotaRejections: f.NewCounter(prometheus.CounterOpts{
			Namespace: "randomlife",
			Name:      "free_quota_rejections_total",
			Help:      "Generations refused because the free daily quota was used up.",
		}),
	}
}

// Recommendation учитывает n элементов, выданных источником source.
func (m *Metrics) Recommendation(category, source string, n int) {
	if m == nil {
		return
	}
	m.Recommendations.WithLabelValues(category, source).Add(float64(n))
}

// Payment учитывает смену статуса платежа.
func (m *Metrics) Payment(provider, status string) {
	if m == nil {
		return
	}
	m.Payments.WithLabelValues(provider, status).Inc()
}

// AdminError учитывает неудачный запрос к бэкенду.
func (m *Metrics) AdminError(source string) {
	if m == nil {
		return
	}
	m.AdminErrors.WithLabelValues(source).Inc()
}

// QuotaRejected учитывает отклоненную генерацию.
func (m *Metrics) QuotaRejected() {
	if m == nil {
		return
	}
	m.QuotaRejections.Inc()
}
