package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Latency: сколько времени заняла обработка (включая вызов ANNA)
	RequestDuration *prometheus.HistogramVec

	// Traffic: общее кол-во запросов по сценариям
	TotalRequests *prometheus.CounterVec

	// Errors: классификация отказов
	ErrorTotal *prometheus.CounterVec

	// Saturation: состояние Circuit Breaker (0 - closed, 1 - open, 2 - half-open)
	CircuitBreakerState *prometheus.GaugeVec

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
			Name:    "ftx_attest_request_duration_seconds",
			Help:    "Histogram of scenario submission latencies.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"scenario", "status"}),

		TotalRequests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "ftx_attest_requests_total",
			Help: "Total number of processed scenario submissions.",
		}, []string{"scenario"}),

		ErrorTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "ftx_attest_errors_total",
			Help: "Total number of errors by type.",
		}, []string{"type"}), // типы: malformed_request, unknown_scenario, scenario_disabled, attestation_failed

		CircuitBreakerState: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "ftx_attest_circuit_breaker_state",
			Help: "Current state of the circuit breaker (0=closed, 1=open, 2=half-open).",
		}, []string{"client"}),

		JournalBufferFill: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "ftx_attest_journal_buffer_utilization",
			Help: "Current number of events in the attestation journal buffer.",
		}),
	}
}
