package engine

import (
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// AttestationHealthService — имя сервиса в gRPC health, отражающее состояние предохранителя ANNA.
const AttestationHealthService = "anna.attestation"

// HealthReporter публикует состояние Circuit Breaker в gRPC health и в метрику.
type HealthReporter struct {
	srv     *health.Server
	metrics *Metrics
	logger  *zap.Logger
}

func NewHealthReporter(metrics *Metrics, logger *zap.Logger) *HealthReporter {
	srv := health.NewServer()
	srv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	srv.SetServingStatus(AttestationHealthService, healthpb.HealthCheckResponse_SERVING)
	return &HealthReporter{
		srv:     srv,
		metrics: metrics,
		logger:  logger.Named("health"),
	}
}

func (h *HealthReporter) Server() *health.Server { return h.srv }

// OnBreakerStateChange подключается в gobreaker.Settings.OnStateChange.
func (h *HealthReporter) OnBreakerStateChange(name string, from, to gobreaker.State) {
	h.logger.Warn("circuit breaker state changed",
		zap.String("name", name), zap.String("from", from.String()), zap.String("to", to.String()))

	var gauge float64
	status := healthpb.HealthCheckResponse_SERVING
	switch to {
	case gobreaker.StateOpen:
		gauge = 1
		status = healthpb.HealthCheckResponse_NOT_SERVING
	case gobreaker.StateHalfOpen:
		gauge = 2
	}

	h.metrics.CircuitBreakerState.WithLabelValues(name).Set(gauge)
	h.srv.SetServingStatus(AttestationHealthService, status)
}

// Shutdown переводит все сервисы в NOT_SERVING перед остановкой.
func (h *HealthReporter) Shutdown() {
	h.srv.Shutdown()
}
