package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/xela07ax/ftx-attest/internal/connectors"
	"github.com/xela07ax/ftx-attest/internal/domain"
	"github.com/xela07ax/ftx-attest/internal/infra"
)

type ReliabilityConfig struct {
	Name          string
	RateLimit     float64 // <= 0 — без ограничения
	RateBurst     int
	RetryAttempts uint // 1 — без повторов
	CallTimeout   time.Duration

	CBMaxRequests      uint32
	CBInterval         time.Duration
	CBTimeout          time.Duration
	CBFailureThreshold uint32 // 0 — предохранитель никогда не размыкается

	OnStateChange func(name string, from, to gobreaker.State)
}

// ReliabilityWrapper — Rate Limiter -> Circuit Breaker -> Retry -> Timeout вокруг вызова ANNA.
// Клиент приходит снаружи на каждый вызов, а предохранитель и лимитер общие для процесса.
type ReliabilityWrapper struct {
	cb          *gobreaker.CircuitBreaker
	limiter     *rate.Limiter
	attempts    uint
	callTimeout time.Duration
}

func NewReliabilityWrapper(cfg ReliabilityConfig) *ReliabilityWrapper {
	threshold := cfg.CBFailureThreshold

	// Настройка предохранителя
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.CBMaxRequests,
		Interval:    cfg.CBInterval,
		Timeout:     cfg.CBTimeout, // Время, через которое CB попробует "закрыться"
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// threshold ошибок подряд — открываемся (блокируем трафик)
			return threshold > 0 && counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: cfg.OnStateChange,
	})

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 1
	}

	attempts := cfg.RetryAttempts
	if attempts == 0 {
		attempts = 1
	}

	return &ReliabilityWrapper{
		cb:          cb,
		limiter:     rate.NewLimiter(limit, burst),
		attempts:    attempts,
		callTimeout: cfg.CallTimeout,
	}
}

// ReliabilityConfigFrom переносит секцию attestation конфига в настройки обвязки.
func ReliabilityConfigFrom(cfg infra.AttestationConfig, onStateChange func(name string, from, to gobreaker.State)) ReliabilityConfig {
	return ReliabilityConfig{
		Name:               "anna",
		RateLimit:          cfg.RateLimit,
		RateBurst:          cfg.RateBurst,
		RetryAttempts:      cfg.RetryAttempts,
		CallTimeout:        cfg.HTTPTimeout,
		CBMaxRequests:      cfg.CBMaxRequests,
		CBInterval:         cfg.CBInterval,
		CBTimeout:          cfg.CBTimeout,
		CBFailureThreshold: cfg.CBFailureThreshold,
		OnStateChange:      onStateChange,
	}
}

func (w *ReliabilityWrapper) State() gobreaker.State {
	return w.cb.State()
}

func (w *ReliabilityWrapper) Submit(ctx context.Context, client connectors.Attestor, sub domain.Submission) (*domain.Attestation, error) {
	// 1. Rate Limiter
	if err := w.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit exceeded: %w", err)
	}

	// 2. Circuit Breaker
	cbResult, err := w.cb.Execute(func() (interface{}, error) {
		r := retry.New(
			retry.Context(ctx),
			retry.Attempts(w.attempts),
			// Умный расчет задержки
			retry.DelayType(func(n uint, err error, config retry.DelayContext) time.Duration {
				// ANNA вернула 429 с Retry-After
				var tErr *connectors.ThrottleError
				if errors.As(err, &tErr) && tErr.RetryAfter > 0 {
					return tErr.RetryAfter
				}

				// В остальных случаях (сетевой лаг, 500-ка) — стандартный экспоненциальный бэкофф
				return retry.BackOffDelay(n, err, config)
			}),
		)

		var (
			att     *domain.Attestation
			lastErr error
		)
		retryErr := r.Do(func() error {
			callCtx := ctx
			if w.callTimeout > 0 {
				var cancel context.CancelFunc
				callCtx, cancel = context.WithTimeout(ctx, w.callTimeout)
				defer cancel()
			}

			att, lastErr = client.Submit(callCtx, sub)
			return lastErr
		})
		if retryErr != nil {
			// Наружу отдаем последнюю ошибку клиента, а не агрегат попыток
			if lastErr != nil {
				return nil, lastErr
			}
			return nil, retryErr
		}

		return att, nil
	})

	if err != nil {
		return nil, err
	}

	return cbResult.(*domain.Attestation), nil
}
