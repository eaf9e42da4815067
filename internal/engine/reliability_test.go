package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/xela07ax/ftx-attest/internal/connectors"
	"github.com/xela07ax/ftx-attest/internal/domain"
	"github.com/xela07ax/ftx-attest/internal/infra"
)

func TestReliability_SingleAttemptByDefault(t *testing.T) {
	boom := errors.New("boom")
	fake := &scriptedAttestor{errs: []error{boom}, att: &domain.Attestation{AttestationID: "x"}}
	w := NewReliabilityWrapper(ReliabilityConfig{Name: "t"})

	_, err := w.Submit(context.Background(), fake, domain.Submission{})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, fake.calls())
}

func TestReliability_RetriesHonourThrottle(t *testing.T) {
	throttle := &connectors.ThrottleError{RetryAfter: time.Millisecond, Cause: errors.New("429")}
	fake := &scriptedAttestor{errs: []error{throttle, throttle}, att: &domain.Attestation{AttestationID: "att-3"}}
	w := NewReliabilityWrapper(ReliabilityConfig{Name: "t", RetryAttempts: 3})

	att, err := w.Submit(context.Background(), fake, domain.Submission{})
	require.NoError(t, err)
	assert.Equal(t, "att-3", att.AttestationID)
	assert.Equal(t, 3, fake.calls())
}

func TestReliability_ReturnsLastClientError(t *testing.T) {
	first := &connectors.ThrottleError{RetryAfter: time.Millisecond, Cause: errors.New("first")}
	last := &connectors.ThrottleError{RetryAfter: time.Millisecond, Cause: errors.New("last")}
	fake := &scriptedAttestor{errs: []error{first, last}}
	w := NewReliabilityWrapper(ReliabilityConfig{Name: "t", RetryAttempts: 2})

	_, err := w.Submit(context.Background(), fake, domain.Submission{})
	assert.Same(t, last, err)
}

func TestReliability_BreakerOpens(t *testing.T) {
	health := NewHealthReporter(NewMetrics(nil), zap.NewNop())
	fake := &scriptedAttestor{errs: []error{errors.New("1"), errors.New("2"), errors.New("3")}}
	w := NewReliabilityWrapper(ReliabilityConfig{
		Name:               "anna",
		CBFailureThreshold: 2,
		CBTimeout:          time.Minute,
		OnStateChange:      health.OnBreakerStateChange,
	})

	for i := 0; i < 2; i++ {
		_, err := w.Submit(context.Background(), fake, domain.Submission{})
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, w.State())

	_, err := w.Submit(context.Background(), fake, domain.Submission{})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 2, fake.calls(), "open breaker must not reach the client")

	resp, err := health.Server().Check(context.Background(), &healthpb.HealthCheckRequest{Service: AttestationHealthService})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.Status)
}

func TestReliability_DefaultConfigNeverTrips(t *testing.T) {
	cfg, err := infra.LoadConfig()
	require.NoError(t, err)

	health := NewHealthReporter(NewMetrics(nil), zap.NewNop())
	errs := make([]error, 20)
	for i := range errs {
		errs[i] = errors.New("anna unavailable")
	}
	fake := &scriptedAttestor{errs: errs, att: &domain.Attestation{AttestationID: "att-after"}}
	w := NewReliabilityWrapper(ReliabilityConfigFrom(cfg.Attestation, health.OnBreakerStateChange))

	for i := range errs {
		_, err := w.Submit(context.Background(), fake, domain.Submission{})
		require.Error(t, err)
		assert.NotErrorIs(t, err, gobreaker.ErrOpenState)
		assert.Equal(t, i+1, fake.calls(), "ровно один вызов клиента на запрос")
	}
	assert.Equal(t, gobreaker.StateClosed, w.State())

	att, err := w.Submit(context.Background(), fake, domain.Submission{})
	require.NoError(t, err)
	assert.Equal(t, "att-after", att.AttestationID)
	assert.Equal(t, len(errs)+1, fake.calls())

	resp, err := health.Server().Check(context.Background(), &healthpb.HealthCheckRequest{Service: AttestationHealthService})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
}

func TestReliability_CallTimeout(t *testing.T) {
	fake := &scriptedAttestor{block: true}
	w := NewReliabilityWrapper(ReliabilityConfig{Name: "t", CallTimeout: 20 * time.Millisecond})

	_, err := w.Submit(context.Background(), fake, domain.Submission{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestReliability_RateLimit(t *testing.T) {
	fake := &scriptedAttestor{att: &domain.Attestation{AttestationID: "x"}}
	w := NewReliabilityWrapper(ReliabilityConfig{Name: "t", RateLimit: 0.001, RateBurst: 1})

	_, err := w.Submit(context.Background(), fake, domain.Submission{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = w.Submit(ctx, fake, domain.Submission{})
	assert.ErrorContains(t, err, "rate limit exceeded")
	assert.Equal(t, 1, fake.calls())
}

func TestHealthReporter_States(t *testing.T) {
	h := NewHealthReporter(NewMetrics(nil), zap.NewNop())
	check := func() healthpb.HealthCheckResponse_ServingStatus {
		resp, err := h.Server().Check(context.Background(), &healthpb.HealthCheckRequest{Service: AttestationHealthService})
		require.NoError(t, err)
		return resp.Status
	}

	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check())
	h.OnBreakerStateChange("anna", gobreaker.StateClosed, gobreaker.StateOpen)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check())
	h.OnBreakerStateChange("anna", gobreaker.StateOpen, gobreaker.StateHalfOpen)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check())
}
