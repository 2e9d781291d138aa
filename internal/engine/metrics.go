package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Latency: время обработки запроса маршрутом хоста
	RequestDuration *prometheus.HistogramVec

	// Traffic: общее кол-во запросов
	TotalRequests *prometheus.CounterVec

	// Saturation: запросы в обработке прямо сейчас
	ActiveRequests *prometheus.GaugeVec

	// Ответы, выданные перехватчиком без вызова обработчика
	PreemptedTotal *prometheus.CounterVec

	// Errors: отказы административного API по типу
	AdminErrors *prometheus.CounterVec

	// Состояние Circuit Breaker рассылки настроек (0 - closed, 1 - half-open, 2 - open)
	BroadcastBreakerState prometheus.Gauge

	// Journal: заполненность буфера (backpressure)
	JournalBufferFill prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	// Null Object Pattern - Если рег не передан, используем локальный, который никуда не подключен
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		RequestDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "underscore_request_duration_seconds",
			Help:    "Histogram of request latencies per route.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"route", "status"}),

		TotalRequests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "underscore_requests_total",
			Help: "Total number of processed requests.",
		}, []string{"route"}),

		ActiveRequests: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "underscore_requests_active",
			Help: "Number of requests currently in flight.",
		}, []string{"route"}),

		PreemptedTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "underscore_preempted_total",
			Help: "Requests answered by route settings without calling the handler.",
		}, []string{"route", "status"}),

		AdminErrors: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "underscore_admin_errors_total",
			Help: "Admin API failures by type.",
		}, []string{"type"}), // типы: validation, not_found, internal, rate_limit

		BroadcastBreakerState: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "underscore_broadcast_breaker_state",
			Help: "Current state of the settings broadcast circuit breaker.",
		}),

		JournalBufferFill: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "underscore_journal_buffer_utilization",
			Help: "Current number of records in the journal buffer.",
		}),
	}
}
