package connectors

import (
	"context"
	"fmt"
	"math/rand/v2" // Используем v2 для Go 1.25
	"time"

	"github.com/google/uuid"
	"github.com/xela07ax/ftx-attest/internal/domain"
)

// MockAttestor имитирует ANNA для демо без ключей: задержка и ID без tx_hash.
type MockAttestor struct {
	MinLatency time.Duration
	MaxLatency time.Duration
}

// NewMockFactory игнорирует ключ и сеть.
func NewMockFactory() Factory {
	return func(_, _ string) (Attestor, error) {
		return &MockAttestor{MinLatency: 50 * time.Millisecond, MaxLatency: 300 * time.Millisecond}, nil
	}
}

func (m *MockAttestor) Submit(ctx context.Context, sub domain.Submission) (*domain.Attestation, error) {
	latency := m.MinLatency
	if spread := m.MaxLatency - m.MinLatency; spread > 0 {
		latency += time.Duration(rand.Int64N(int64(spread)))
	}

	select {
	case <-time.After(latency):
		// Имитация работы
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if sub.Content == "" {
		return nil, fmt.Errorf("mock attestor: empty content")
	}

	return &domain.Attestation{AttestationID: "mock-" + uuid.New().String()}, nil
}
